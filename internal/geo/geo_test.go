package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMetersZeroForEqualPoints(t *testing.T) {
	p := Point{Lat: 28.6139, Lon: 77.2090}
	assert.Equal(t, 0.0, DistanceMeters(p, p))
}

func TestDistanceMetersSymmetric(t *testing.T) {
	a := Point{Lat: 28.6139, Lon: 77.2090}
	b := Point{Lat: 19.0760, Lon: 72.8777}

	assert.Equal(t, DistanceMeters(a, b), DistanceMeters(b, a))
}

func TestDistanceMetersKnownValues(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Point
		expected float64
		delta    float64
	}{
		{
			name:     "one degree of longitude at the equator",
			a:        Point{Lat: 0, Lon: 0},
			b:        Point{Lat: 0, Lon: 1},
			expected: 111194.93,
			delta:    1.0,
		},
		{
			name:     "one degree of latitude",
			a:        Point{Lat: 10, Lon: 20},
			b:        Point{Lat: 11, Lon: 20},
			expected: 111194.93,
			delta:    1.0,
		},
		{
			name:     "delhi to mumbai",
			a:        Point{Lat: 28.6139, Lon: 77.2090},
			b:        Point{Lat: 19.0760, Lon: 72.8777},
			expected: 1150000,
			delta:    10000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, DistanceMeters(tt.a, tt.b), tt.delta)
		})
	}
}
