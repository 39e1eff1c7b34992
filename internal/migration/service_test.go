package migration

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richyrich98/dotanddot/internal/geo"
	"github.com/richyrich98/dotanddot/internal/identity"
	"github.com/richyrich98/dotanddot/internal/path"
	"github.com/richyrich98/dotanddot/internal/report"
	apperrors "github.com/richyrich98/dotanddot/pkg/errors"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}

type fakeProvider struct {
	ident *identity.Identity
	err   error
}

func (f *fakeProvider) Resolve(context.Context, string) (*identity.Identity, error) {
	return f.ident, f.err
}

type fakeCache struct {
	paths   map[string]*CachedPath
	reports []CachedReport
}

func (f *fakeCache) PathKeys(_ context.Context, deviceID string) ([]string, error) {
	var keys []string
	for k := range f.paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *fakeCache) CachedPath(_ context.Context, key string) (*CachedPath, error) {
	p, ok := f.paths[key]
	if !ok {
		return nil, errors.New("cached path vanished")
	}
	return p, nil
}

func (f *fakeCache) CachedReports(context.Context, string) ([]CachedReport, error) {
	return f.reports, nil
}

type fakePaths struct {
	existing map[string]*path.SharedPath
	failIDs  map[string]bool
}

func (f *fakePaths) SharedPathExists(_ context.Context, pathID string) (bool, error) {
	_, ok := f.existing[pathID]
	return ok, nil
}

func (f *fakePaths) ImportSharedPath(_ context.Context, shared *path.SharedPath) error {
	if f.failIDs[shared.PathID] {
		return errors.New("insert failed")
	}
	f.existing[shared.PathID] = shared
	return nil
}

type fakeReports struct {
	existing map[string]*report.LocationReport
}

func (f *fakeReports) ReportExists(_ context.Context, localKey string) (bool, error) {
	_, ok := f.existing[localKey]
	return ok, nil
}

func (f *fakeReports) ImportReport(_ context.Context, r *report.LocationReport) error {
	f.existing[r.LocalKey] = r
	return nil
}

func cacheKey(pathID string) string {
	return fmt.Sprintf("devicecache:device-1:path:%s", pathID)
}

func newMigrationFixture(ident *identity.Identity, identErr error) (*Service, *fakeCache, *fakePaths, *fakeReports) {
	cache := &fakeCache{paths: make(map[string]*CachedPath)}
	paths := &fakePaths{existing: make(map[string]*path.SharedPath), failIDs: make(map[string]bool)}
	reports := &fakeReports{existing: make(map[string]*report.LocationReport)}
	svc := NewService(&fakeProvider{ident: ident, err: identErr}, cache, paths, reports, nopLogger{})
	return svc, cache, paths, reports
}

var (
	testIdent  = &identity.Identity{ID: "alice"}
	testCoords = []geo.Point{{Lat: 28.6139, Lon: 77.2090}, {Lat: 28.6200, Lon: 77.2150}}
)

func TestRunNoIdentityIsNoOp(t *testing.T) {
	svc, cache, paths, reports := newMigrationFixture(nil, nil)
	cache.paths[cacheKey("p1")] = &CachedPath{Coordinates: testCoords, CreatedAt: time.Now()}
	cache.reports = []CachedReport{{
		LocalKey:          "r1",
		DefaultLocation:   testCoords[0],
		CorrectedLocation: testCoords[1],
		Timestamp:         time.Now(),
	}}

	result, err := svc.Run(context.Background(), "", "device-1")
	require.NoError(t, err)
	assert.Equal(t, &Result{}, result)
	assert.Empty(t, paths.existing)
	assert.Empty(t, reports.existing)
}

func TestRunIdentityLookupFailureIsFatal(t *testing.T) {
	svc, _, _, _ := newMigrationFixture(nil, errors.New("provider exploded"))

	result, err := svc.Run(context.Background(), "token", "device-1")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrIdentityProvider)
}

func TestRunMigratesCachedRecords(t *testing.T) {
	svc, cache, paths, reports := newMigrationFixture(testIdent, nil)
	cache.paths[cacheKey("p1")] = &CachedPath{Coordinates: testCoords, CreatedAt: time.Now()}
	cache.paths[cacheKey("p2")] = &CachedPath{Coordinates: testCoords, CreatedAt: time.Now()}
	cache.reports = []CachedReport{{
		LocalKey:          "r1",
		DefaultLocation:   testCoords[0],
		CorrectedLocation: testCoords[1],
		Timestamp:         time.Now(),
	}}

	result, err := svc.Run(context.Background(), "token", "device-1")
	require.NoError(t, err)

	assert.Equal(t, 2, result.PathsMigrated)
	assert.Equal(t, 1, result.ReportsMigrated)
	assert.Contains(t, paths.existing, "p1")
	assert.Contains(t, paths.existing, "p2")

	require.Contains(t, reports.existing, "r1")
	assert.Equal(t, "alice", reports.existing["r1"].ReporterID)
}

func TestRunIsIdempotent(t *testing.T) {
	svc, cache, paths, reports := newMigrationFixture(testIdent, nil)
	cache.paths[cacheKey("p1")] = &CachedPath{Coordinates: testCoords, CreatedAt: time.Now()}
	cache.reports = []CachedReport{{
		LocalKey:          "r1",
		DefaultLocation:   testCoords[0],
		CorrectedLocation: testCoords[1],
		Timestamp:         time.Now(),
	}}

	first, err := svc.Run(context.Background(), "token", "device-1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.PathsMigrated)
	assert.Equal(t, 1, first.ReportsMigrated)

	second, err := svc.Run(context.Background(), "token", "device-1")
	require.NoError(t, err)
	assert.Equal(t, 0, second.PathsMigrated)
	assert.Equal(t, 1, second.PathsSkipped)
	assert.Equal(t, 0, second.ReportsMigrated)
	assert.Equal(t, 1, second.ReportsSkipped)

	assert.Len(t, paths.existing, 1)
	assert.Len(t, reports.existing, 1)
}

func TestRunContinuesPastFailedRecords(t *testing.T) {
	svc, cache, paths, _ := newMigrationFixture(testIdent, nil)
	cache.paths[cacheKey("bad")] = &CachedPath{Coordinates: testCoords, CreatedAt: time.Now()}
	cache.paths[cacheKey("good")] = &CachedPath{Coordinates: testCoords, CreatedAt: time.Now()}
	paths.failIDs["bad"] = true

	result, err := svc.Run(context.Background(), "token", "device-1")
	require.NoError(t, err)

	assert.Equal(t, 1, result.PathsMigrated)
	assert.Equal(t, 1, result.PathsFailed)
	assert.Contains(t, paths.existing, "good")
	assert.NotContains(t, paths.existing, "bad")
}

func TestRunDerivesLocalKeyForLegacyReports(t *testing.T) {
	svc, cache, _, reports := newMigrationFixture(testIdent, nil)
	ts := time.Unix(1700000000, 0)
	cache.reports = []CachedReport{{
		DefaultLocation:   testCoords[0],
		CorrectedLocation: testCoords[1],
		Timestamp:         ts,
	}}

	result, err := svc.Run(context.Background(), "token", "device-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ReportsMigrated)

	expectedKey := report.LocalKey(testCoords[0], testCoords[1], ts)
	assert.Contains(t, reports.existing, expectedKey)

	// A second run dedups on the derived key too
	second, err := svc.Run(context.Background(), "token", "device-1")
	require.NoError(t, err)
	assert.Equal(t, 1, second.ReportsSkipped)
	assert.Len(t, reports.existing, 1)
}

func TestPathIDFromKey(t *testing.T) {
	assert.Equal(t, "abc", pathIDFromKey("devicecache:d1:path:abc"))
	assert.Equal(t, "", pathIDFromKey("devicecache:d1:path:"))
	assert.Equal(t, "", pathIDFromKey("nokey"))
}
