package path

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richyrich98/dotanddot/internal/geo"
	"github.com/richyrich98/dotanddot/internal/identity"
	apperrors "github.com/richyrich98/dotanddot/pkg/errors"
	"github.com/richyrich98/dotanddot/pkg/validator"
)

var errStoreDown = errors.New("store down")

// fakeStore mirrors the durable store's contract in memory: absent rows are
// (nil, nil), updates and deletes are filtered by owner.
type fakeStore struct {
	shared      map[string]*SharedPath
	users       map[string]*UserPath
	failInserts bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		shared: make(map[string]*SharedPath),
		users:  make(map[string]*UserPath),
	}
}

func (f *fakeStore) InsertSharedPath(_ context.Context, p *SharedPath) error {
	if f.failInserts {
		return errStoreDown
	}
	clone := *p
	f.shared[p.PathID] = &clone
	return nil
}

func (f *fakeStore) GetSharedPath(_ context.Context, pathID string) (*SharedPath, error) {
	p, ok := f.shared[pathID]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

func (f *fakeStore) SharedPathExists(_ context.Context, pathID string) (bool, error) {
	_, ok := f.shared[pathID]
	return ok, nil
}

func (f *fakeStore) InsertUserPath(_ context.Context, p *UserPath) error {
	if f.failInserts {
		return errStoreDown
	}
	clone := *p
	f.users[p.ID] = &clone
	return nil
}

func (f *fakeStore) GetUserPath(_ context.Context, id string) (*UserPath, error) {
	p, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

func (f *fakeStore) ListUserPathsByOwner(_ context.Context, ownerID string) ([]*UserPath, error) {
	var paths []*UserPath
	for _, p := range f.users {
		if p.OwnerID == ownerID {
			clone := *p
			paths = append(paths, &clone)
		}
	}
	sort.Slice(paths, func(i, j int) bool {
		return paths[i].CreatedAt.After(paths[j].CreatedAt)
	})
	return paths, nil
}

func (f *fakeStore) UpdateUserPath(_ context.Context, id, ownerID string, upd *Update) error {
	p, ok := f.users[id]
	if !ok || p.OwnerID != ownerID {
		return nil
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Coordinates != nil {
		p.Coordinates = *upd.Coordinates
	}
	if upd.VertexData != nil {
		p.VertexData = *upd.VertexData
	}
	return nil
}

func (f *fakeStore) DeleteUserPath(_ context.Context, id, ownerID string) error {
	p, ok := f.users[id]
	if ok && p.OwnerID == ownerID {
		delete(f.users, id)
	}
	return nil
}

func newTestService() (*Service, *fakeStore) {
	store := newFakeStore()
	return NewService(store, validator.NewValidator()), store
}

func strPtr(s string) *string { return &s }

var (
	alice = &identity.Identity{ID: "alice", DisplayName: "Alice"}
	bob   = &identity.Identity{ID: "bob", DisplayName: "Bob"}

	testCoords = []geo.Point{
		{Lat: 28.6139, Lon: 77.2090},
		{Lat: 28.6200, Lon: 77.2150},
	}
)

func TestSaveSharedPathRoundTrip(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	userLoc := &geo.Point{Lat: 28.6100, Lon: 77.2000}
	vertexData := map[string]interface{}{"0": "start", "1": "end"}

	pathID, err := svc.SaveSharedPath(ctx, testCoords, userLoc, vertexData)
	require.NoError(t, err)
	require.NotEmpty(t, pathID)

	got, err := svc.GetSharedPath(ctx, pathID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, testCoords, got.Coordinates)
	assert.Equal(t, userLoc, got.UserLocation)
	assert.Equal(t, vertexData, got.VertexData)
	assert.Empty(t, got.SourceUserPathID)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSaveSharedPathAcceptsSinglePoint(t *testing.T) {
	svc, _ := newTestService()

	pathID, err := svc.SaveSharedPath(context.Background(), testCoords[:1], nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, pathID)
}

func TestSaveSharedPathRejectsEmptyPath(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.SaveSharedPath(context.Background(), nil, nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrEmptyPath)
}

func TestSaveSharedPathStorageFailure(t *testing.T) {
	svc, store := newTestService()
	store.failInserts = true

	pathID, err := svc.SaveSharedPath(context.Background(), testCoords, nil, nil)
	assert.Error(t, err)
	assert.Empty(t, pathID)
}

func TestGetSharedPathNotFound(t *testing.T) {
	svc, _ := newTestService()

	got, err := svc.GetSharedPath(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveUserPathRequiresIdentity(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.SaveUserPath(context.Background(), nil, "Morning walk", "", testCoords, nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestSaveUserPathRequiresName(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.SaveUserPath(context.Background(), alice, "   ", "", testCoords, nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrNameRequired)
}

func TestListUserPathsNewestFirst(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	for i, name := range []string{"first", "second", "third"} {
		id, err := svc.SaveUserPath(ctx, alice, name, "", testCoords, nil, nil)
		require.NoError(t, err)
		// Spread creation times out so ordering is deterministic
		store.users[id].CreatedAt = time.Now().Add(time.Duration(i) * time.Minute)
	}

	paths, err := svc.ListUserPaths(ctx, alice)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, "third", paths[0].Name)
	assert.Equal(t, "first", paths[2].Name)
}

func TestListUserPathsUnauthenticated(t *testing.T) {
	svc, _ := newTestService()

	paths, err := svc.ListUserPaths(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestUpdateUserPathPartial(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	vertexData := map[string]interface{}{"0": "home"}
	id, err := svc.SaveUserPath(ctx, alice, "Morning walk", "around the park", testCoords, vertexData, nil)
	require.NoError(t, err)

	err = svc.UpdateUserPath(ctx, alice, id, &Update{Name: strPtr("Evening walk")})
	require.NoError(t, err)

	got := store.users[id]
	assert.Equal(t, "Evening walk", got.Name)
	assert.Equal(t, "around the park", got.Description)
	assert.Equal(t, testCoords, got.Coordinates)
	assert.Equal(t, vertexData, got.VertexData)
}

func TestUpdateUserPathExplicitEmptyValue(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	id, err := svc.SaveUserPath(ctx, alice, "Morning walk", "around the park", testCoords, nil, nil)
	require.NoError(t, err)

	// A present-but-empty field is a real update, unlike an absent one
	err = svc.UpdateUserPath(ctx, alice, id, &Update{Description: strPtr("")})
	require.NoError(t, err)

	assert.Equal(t, "", store.users[id].Description)
	assert.Equal(t, "Morning walk", store.users[id].Name)
}

func TestUpdateUserPathNotFound(t *testing.T) {
	svc, _ := newTestService()

	err := svc.UpdateUserPath(context.Background(), alice, "missing", &Update{Name: strPtr("x")})
	assert.ErrorIs(t, err, apperrors.ErrPathNotFound)
}

func TestUpdateUserPathWrongOwner(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	id, err := svc.SaveUserPath(ctx, alice, "Morning walk", "", testCoords, nil, nil)
	require.NoError(t, err)

	err = svc.UpdateUserPath(ctx, bob, id, &Update{Name: strPtr("stolen")})
	assert.ErrorIs(t, err, apperrors.ErrNotPathOwner)
	assert.Equal(t, "Morning walk", store.users[id].Name)
}

func TestDeleteUserPathIdempotent(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	id, err := svc.SaveUserPath(ctx, alice, "Morning walk", "", testCoords, nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUserPath(ctx, alice, id))
	assert.NotContains(t, store.users, id)

	// Second delete of the same id is not an error
	assert.NoError(t, svc.DeleteUserPath(ctx, alice, id))
}

func TestDeleteUserPathWrongOwner(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	id, err := svc.SaveUserPath(ctx, alice, "Morning walk", "", testCoords, nil, nil)
	require.NoError(t, err)

	err = svc.DeleteUserPath(ctx, bob, id)
	assert.ErrorIs(t, err, apperrors.ErrNotPathOwner)
	assert.Contains(t, store.users, id)
}

func TestShareUserPathSnapshot(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	id, err := svc.SaveUserPath(ctx, alice, "Morning walk", "", testCoords, nil, nil)
	require.NoError(t, err)

	sharedID, err := svc.ShareUserPath(ctx, alice, id)
	require.NoError(t, err)
	require.NotEmpty(t, sharedID)
	assert.NotEqual(t, id, sharedID)

	shared, err := svc.GetSharedPath(ctx, sharedID)
	require.NoError(t, err)
	require.NotNil(t, shared)
	assert.Equal(t, testCoords, shared.Coordinates)
	assert.Equal(t, id, shared.SourceUserPathID)

	// Mutating the user path afterwards must not alter the snapshot
	newCoords := []geo.Point{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}}
	require.NoError(t, svc.UpdateUserPath(ctx, alice, id, &Update{Coordinates: &newCoords}))
	require.NoError(t, svc.DeleteUserPath(ctx, alice, id))

	shared, err = svc.GetSharedPath(ctx, sharedID)
	require.NoError(t, err)
	require.NotNil(t, shared)
	assert.Equal(t, testCoords, shared.Coordinates)
}

func TestShareUserPathRequiresOwnership(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	id, err := svc.SaveUserPath(ctx, alice, "Morning walk", "", testCoords, nil, nil)
	require.NoError(t, err)

	_, err = svc.ShareUserPath(ctx, bob, id)
	assert.ErrorIs(t, err, apperrors.ErrNotPathOwner)

	_, err = svc.ShareUserPath(ctx, alice, "missing")
	assert.ErrorIs(t, err, apperrors.ErrPathNotFound)
}

func TestShareUserPathRequiresTwoPoints(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	id, err := svc.SaveUserPath(ctx, alice, "Single dot", "", testCoords[:1], nil, nil)
	require.NoError(t, err)

	_, err = svc.ShareUserPath(ctx, alice, id)
	assert.ErrorIs(t, err, apperrors.ErrTooFewPoints)
}
