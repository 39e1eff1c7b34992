package report

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mmcloughlin/geohash"

	"github.com/richyrich98/dotanddot/internal/geo"
	"github.com/richyrich98/dotanddot/internal/identity"
	"github.com/richyrich98/dotanddot/pkg/validator"
)

// Store is the durable-store contract the report service needs.
type Store interface {
	InsertReport(ctx context.Context, r *LocationReport) error
	ListReports(ctx context.Context) ([]*LocationReport, error)
	ListReportsByCell(ctx context.Context, cellPrefix string) ([]*LocationReport, error)
	ReportExistsByLocalKey(ctx context.Context, localKey string) (bool, error)
}

// Publisher receives every successfully stored report, for the live feed.
type Publisher interface {
	PublishReport(r *LocationReport)
}

type Service struct {
	store            Store
	validator        validator.Validator
	publisher        Publisher
	geohashPrecision uint
}

func NewService(store Store, val validator.Validator, publisher Publisher, geohashPrecision uint) *Service {
	return &Service{
		store:            store,
		validator:        val,
		publisher:        publisher,
		geohashPrecision: geohashPrecision,
	}
}

// SubmitReport stores one accuracy observation. The reporter is best-effort:
// an anonymous submission is as valid as an authenticated one.
func (s *Service) SubmitReport(ctx context.Context, defaultLocation, correctedLocation geo.Point, ident *identity.Identity) (string, error) {
	if err := s.validator.ValidateCoordinates(defaultLocation.Lat, defaultLocation.Lon); err != nil {
		return "", err
	}
	if err := s.validator.ValidateCoordinates(correctedLocation.Lat, correctedLocation.Lon); err != nil {
		return "", err
	}

	r := &LocationReport{
		ID:                uuid.New().String(),
		DefaultLocation:   defaultLocation,
		CorrectedLocation: correctedLocation,
		GeohashCell:       geohash.EncodeWithPrecision(correctedLocation.Lat, correctedLocation.Lon, s.geohashPrecision),
		Timestamp:         time.Now(),
	}
	if ident != nil {
		r.ReporterID = ident.ID
	}

	if err := s.store.InsertReport(ctx, r); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}

	if s.publisher != nil {
		s.publisher.PublishReport(r)
	}

	return r.ID, nil
}

// ListAllReports returns every report, newest first.
func (s *Service) ListAllReports(ctx context.Context) ([]*LocationReport, error) {
	reports, err := s.store.ListReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	if reports == nil {
		reports = []*LocationReport{}
	}
	return reports, nil
}

// ListReportsInCell returns reports whose geohash cell starts with the
// given prefix, newest first.
func (s *Service) ListReportsInCell(ctx context.Context, cellPrefix string) ([]*LocationReport, error) {
	reports, err := s.store.ListReportsByCell(ctx, cellPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	if reports == nil {
		reports = []*LocationReport{}
	}
	return reports, nil
}

// ReportExists reports whether a migrated record with the given local key
// already landed in the store.
func (s *Service) ReportExists(ctx context.Context, localKey string) (bool, error) {
	if localKey == "" {
		return false, nil
	}
	return s.store.ReportExistsByLocalKey(ctx, localKey)
}

// ImportReport inserts a report carried over by migration, keeping its
// local key and original timestamp.
func (s *Service) ImportReport(ctx context.Context, r *LocationReport) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	if r.GeohashCell == "" {
		r.GeohashCell = geohash.EncodeWithPrecision(r.CorrectedLocation.Lat, r.CorrectedLocation.Lon, s.geohashPrecision)
	}

	return s.store.InsertReport(ctx, r)
}

// LocalKey derives a stable dedup key for a cached report that was stored
// before local ids existed.
func LocalKey(defaultLocation, correctedLocation geo.Point, timestamp time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf(
		"%.7f,%.7f|%.7f,%.7f|%d",
		defaultLocation.Lat, defaultLocation.Lon,
		correctedLocation.Lat, correctedLocation.Lon,
		timestamp.UnixMilli(),
	)))
	return hex.EncodeToString(sum[:16])
}
