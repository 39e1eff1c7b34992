package report

import (
	"time"

	"github.com/richyrich98/dotanddot/internal/geo"
)

// LocationReport is a single accuracy observation: the location the device
// reported and the location the user says is correct. Reports are immutable
// once created.
type LocationReport struct {
	ID                string    `json:"id"`
	ReporterID        string    `json:"reporter_id,omitempty"` // empty for anonymous reports
	DefaultLocation   geo.Point `json:"default_location"`
	CorrectedLocation geo.Point `json:"corrected_location"`
	GeohashCell       string    `json:"geohash_cell,omitempty"`
	LocalKey          string    `json:"local_key,omitempty"` // dedup key carried through migration
	Timestamp         time.Time `json:"timestamp"`
}

// ErrorMeters is the great-circle distance between the reported and the
// corrected location.
func (r *LocationReport) ErrorMeters() float64 {
	return geo.DistanceMeters(r.DefaultLocation, r.CorrectedLocation)
}

// Statistics summarizes accuracy over a set of reports.
type Statistics struct {
	Count              int     `json:"count"`
	AverageErrorMeters float64 `json:"average_error_meters"`
	MaxErrorMeters     float64 `json:"max_error_meters"`
}
