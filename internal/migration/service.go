package migration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/richyrich98/dotanddot/internal/geo"
	"github.com/richyrich98/dotanddot/internal/identity"
	"github.com/richyrich98/dotanddot/internal/path"
	"github.com/richyrich98/dotanddot/internal/report"
	apperrors "github.com/richyrich98/dotanddot/pkg/errors"
	"github.com/richyrich98/dotanddot/pkg/logger"
)

// Paths is the slice of the path service migration needs.
type Paths interface {
	SharedPathExists(ctx context.Context, pathID string) (bool, error)
	ImportSharedPath(ctx context.Context, shared *path.SharedPath) error
}

// Reports is the slice of the report service migration needs.
type Reports interface {
	ReportExists(ctx context.Context, localKey string) (bool, error)
	ImportReport(ctx context.Context, r *report.LocationReport) error
}

// Cache reads records a device stored locally before it had a backend.
type Cache interface {
	PathKeys(ctx context.Context, deviceID string) ([]string, error)
	CachedPath(ctx context.Context, key string) (*CachedPath, error)
	CachedReports(ctx context.Context, deviceID string) ([]CachedReport, error)
}

// CachedPath is a path record as the device cached it.
type CachedPath struct {
	Coordinates  []geo.Point            `json:"coordinates"`
	UserLocation *geo.Point             `json:"user_location,omitempty"`
	VertexData   map[string]interface{} `json:"vertex_data,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// CachedReport is an accuracy report as the device cached it. LocalKey is
// the device-assigned stable id; older caches may leave it empty, in which
// case a content hash stands in.
type CachedReport struct {
	LocalKey          string    `json:"local_key,omitempty"`
	DefaultLocation   geo.Point `json:"default_location"`
	CorrectedLocation geo.Point `json:"corrected_location"`
	Timestamp         time.Time `json:"timestamp"`
}

// Result summarizes one migration run.
type Result struct {
	PathsMigrated   int `json:"paths_migrated"`
	PathsSkipped    int `json:"paths_skipped"`
	PathsFailed     int `json:"paths_failed"`
	ReportsMigrated int `json:"reports_migrated"`
	ReportsSkipped  int `json:"reports_skipped"`
	ReportsFailed   int `json:"reports_failed"`
}

// Service moves locally-cached paths and reports into the durable store
// exactly once per record. Records are processed sequentially so the
// check-then-insert never races against itself; a failed record is logged
// and skipped, never aborting the rest of the batch.
type Service struct {
	provider identity.Provider
	cache    Cache
	paths    Paths
	reports  Reports
	logger   logger.Logger
}

func NewService(provider identity.Provider, cache Cache, paths Paths, reports Reports, log logger.Logger) *Service {
	return &Service{
		provider: provider,
		cache:    cache,
		paths:    paths,
		reports:  reports,
		logger:   log,
	}
}

// Run migrates everything the device cached. No identity makes the whole
// run a no-op, not an error; a failing identity lookup is the one fatal
// outcome.
func (s *Service) Run(ctx context.Context, token, deviceID string) (*Result, error) {
	ident, err := s.provider.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, apperrors.ErrIdentityProvider) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrIdentityProvider, err)
	}
	if ident == nil {
		s.logger.Info("migration skipped, no identity", "device_id", deviceID)
		return &Result{}, nil
	}

	result := &Result{}
	s.migratePaths(ctx, deviceID, result)
	s.migrateReports(ctx, ident, deviceID, result)

	s.logger.Info("migration finished",
		"device_id", deviceID,
		"paths_migrated", result.PathsMigrated,
		"paths_skipped", result.PathsSkipped,
		"paths_failed", result.PathsFailed,
		"reports_migrated", result.ReportsMigrated,
		"reports_skipped", result.ReportsSkipped,
		"reports_failed", result.ReportsFailed,
	)

	return result, nil
}

func (s *Service) migratePaths(ctx context.Context, deviceID string, result *Result) {
	keys, err := s.cache.PathKeys(ctx, deviceID)
	if err != nil {
		s.logger.Error("failed to list cached paths", "device_id", deviceID, "error", err)
		return
	}

	for _, key := range keys {
		pathID := pathIDFromKey(key)
		if pathID == "" {
			s.logger.Warn("cached path key has no embedded id", "key", key)
			result.PathsFailed++
			continue
		}

		exists, err := s.paths.SharedPathExists(ctx, pathID)
		if err != nil {
			s.logger.Error("failed to check for existing shared path", "path_id", pathID, "error", err)
			result.PathsFailed++
			continue
		}
		if exists {
			result.PathsSkipped++
			continue
		}

		cached, err := s.cache.CachedPath(ctx, key)
		if err != nil {
			s.logger.Error("failed to read cached path", "key", key, "error", err)
			result.PathsFailed++
			continue
		}

		shared := &path.SharedPath{
			PathID:       pathID,
			Coordinates:  cached.Coordinates,
			UserLocation: cached.UserLocation,
			VertexData:   cached.VertexData,
			CreatedAt:    cached.CreatedAt,
		}
		if err := s.paths.ImportSharedPath(ctx, shared); err != nil {
			s.logger.Error("failed to import cached path", "path_id", pathID, "error", err)
			result.PathsFailed++
			continue
		}

		result.PathsMigrated++
	}
}

func (s *Service) migrateReports(ctx context.Context, ident *identity.Identity, deviceID string, result *Result) {
	cached, err := s.cache.CachedReports(ctx, deviceID)
	if err != nil {
		s.logger.Error("failed to read cached reports", "device_id", deviceID, "error", err)
		return
	}

	for _, c := range cached {
		localKey := c.LocalKey
		if localKey == "" {
			localKey = report.LocalKey(c.DefaultLocation, c.CorrectedLocation, c.Timestamp)
		}

		exists, err := s.reports.ReportExists(ctx, localKey)
		if err != nil {
			s.logger.Error("failed to check for existing report", "local_key", localKey, "error", err)
			result.ReportsFailed++
			continue
		}
		if exists {
			result.ReportsSkipped++
			continue
		}

		r := &report.LocationReport{
			ReporterID:        ident.ID,
			DefaultLocation:   c.DefaultLocation,
			CorrectedLocation: c.CorrectedLocation,
			LocalKey:          localKey,
			Timestamp:         c.Timestamp,
		}
		if err := s.reports.ImportReport(ctx, r); err != nil {
			s.logger.Error("failed to import cached report", "local_key", localKey, "error", err)
			result.ReportsFailed++
			continue
		}

		result.ReportsMigrated++
	}
}

// pathIDFromKey extracts the path id embedded as the last segment of a
// cache key such as "devicecache:<device>:path:<id>".
func pathIDFromKey(key string) string {
	idx := strings.LastIndex(key, ":")
	if idx < 0 || idx == len(key)-1 {
		return ""
	}
	return key[idx+1:]
}
