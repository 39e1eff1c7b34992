package validator

import (
	"strings"

	"github.com/richyrich98/dotanddot/internal/geo"
	apperrors "github.com/richyrich98/dotanddot/pkg/errors"
)

type Validator interface {
	ValidatePathName(name string) error
	ValidateCoordinates(lat, lon float64) error
	ValidatePath(points []geo.Point) error
	ValidateShareablePath(points []geo.Point) error
}

type validator struct{}

func NewValidator() Validator {
	return &validator{}
}

func (v *validator) ValidatePathName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperrors.ErrNameRequired
	}

	return nil
}

func (v *validator) ValidateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return apperrors.ErrInvalidLatitude
	}

	if lon < -180 || lon > 180 {
		return apperrors.ErrInvalidLongitude
	}

	return nil
}

// ValidatePath checks that a path has at least one point and that every
// point carries valid coordinates. Single-point paths are accepted by the
// store; only sharing requires more.
func (v *validator) ValidatePath(points []geo.Point) error {
	if len(points) == 0 {
		return apperrors.ErrEmptyPath
	}

	for _, p := range points {
		if err := v.ValidateCoordinates(p.Lat, p.Lon); err != nil {
			return err
		}
	}

	return nil
}

func (v *validator) ValidateShareablePath(points []geo.Point) error {
	if err := v.ValidatePath(points); err != nil {
		return err
	}

	if len(points) < 2 {
		return apperrors.ErrTooFewPoints
	}

	return nil
}
