package path

import (
	"context"
	"fmt"
	"time"

	"github.com/richyrich98/dotanddot/internal/geo"
	"github.com/richyrich98/dotanddot/internal/identity"
	apperrors "github.com/richyrich98/dotanddot/pkg/errors"
	"github.com/richyrich98/dotanddot/pkg/validator"
)

// Store is the durable-store contract the path service needs. Reads return
// (nil, nil) for absent records; only a failing round-trip is an error.
type Store interface {
	InsertSharedPath(ctx context.Context, p *SharedPath) error
	GetSharedPath(ctx context.Context, pathID string) (*SharedPath, error)
	SharedPathExists(ctx context.Context, pathID string) (bool, error)
	InsertUserPath(ctx context.Context, p *UserPath) error
	GetUserPath(ctx context.Context, id string) (*UserPath, error)
	ListUserPathsByOwner(ctx context.Context, ownerID string) ([]*UserPath, error)
	UpdateUserPath(ctx context.Context, id, ownerID string, upd *Update) error
	DeleteUserPath(ctx context.Context, id, ownerID string) error
}

type Service struct {
	store     Store
	validator validator.Validator
}

func NewService(store Store, val validator.Validator) *Service {
	return &Service{
		store:     store,
		validator: val,
	}
}

// SaveSharedPath persists an anonymous shared path and returns its id. The
// id is only returned after the write succeeded.
func (s *Service) SaveSharedPath(ctx context.Context, coordinates []geo.Point, userLocation *geo.Point, vertexData map[string]interface{}) (string, error) {
	if err := s.validator.ValidatePath(coordinates); err != nil {
		return "", err
	}

	shared := &SharedPath{
		PathID:       NewPathID(),
		Coordinates:  coordinates,
		UserLocation: userLocation,
		VertexData:   vertexData,
		CreatedAt:    time.Now(),
	}

	if err := s.store.InsertSharedPath(ctx, shared); err != nil {
		return "", fmt.Errorf("failed to save shared path: %w", err)
	}

	return shared.PathID, nil
}

// GetSharedPath looks up a shared path by id. Absence is (nil, nil), not an
// error; callers must distinguish "does not exist" from "read failed".
func (s *Service) GetSharedPath(ctx context.Context, pathID string) (*SharedPath, error) {
	shared, err := s.store.GetSharedPath(ctx, pathID)
	if err != nil {
		return nil, fmt.Errorf("failed to get shared path: %w", err)
	}
	return shared, nil
}

// SharedPathExists reports whether a shared path id is already taken. Used
// by migration for its idempotence check.
func (s *Service) SharedPathExists(ctx context.Context, pathID string) (bool, error) {
	return s.store.SharedPathExists(ctx, pathID)
}

// ImportSharedPath inserts a shared path keeping its caller-assigned id and
// creation time. Used by migration to carry cached records over unchanged.
func (s *Service) ImportSharedPath(ctx context.Context, shared *SharedPath) error {
	if shared.PathID == "" {
		shared.PathID = NewPathID()
	}
	if shared.CreatedAt.IsZero() {
		shared.CreatedAt = time.Now()
	}

	if err := s.validator.ValidatePath(shared.Coordinates); err != nil {
		return err
	}

	return s.store.InsertSharedPath(ctx, shared)
}

// SaveUserPath persists a named path owned by the caller.
func (s *Service) SaveUserPath(ctx context.Context, ident *identity.Identity, name, description string, coordinates []geo.Point, vertexData map[string]interface{}, userLocation *geo.Point) (string, error) {
	if ident == nil {
		return "", apperrors.ErrUnauthorized
	}

	if err := s.validator.ValidatePathName(name); err != nil {
		return "", err
	}
	if err := s.validator.ValidatePath(coordinates); err != nil {
		return "", err
	}

	userPath := &UserPath{
		ID:           NewPathID(),
		OwnerID:      ident.ID,
		Name:         name,
		Description:  description,
		Coordinates:  coordinates,
		VertexData:   vertexData,
		UserLocation: userLocation,
		CreatedAt:    time.Now(),
	}

	if err := s.store.InsertUserPath(ctx, userPath); err != nil {
		return "", fmt.Errorf("failed to save user path: %w", err)
	}

	return userPath.ID, nil
}

// ListUserPaths returns the caller's paths, newest first. An
// unauthenticated caller gets an empty list, not an error.
func (s *Service) ListUserPaths(ctx context.Context, ident *identity.Identity) ([]*UserPath, error) {
	if ident == nil {
		return []*UserPath{}, nil
	}

	paths, err := s.store.ListUserPathsByOwner(ctx, ident.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user paths: %w", err)
	}
	if paths == nil {
		paths = []*UserPath{}
	}

	return paths, nil
}

// UpdateUserPath applies a partial update to an owned path. Fields absent
// from the update are left untouched.
func (s *Service) UpdateUserPath(ctx context.Context, ident *identity.Identity, id string, upd *Update) error {
	if ident == nil {
		return apperrors.ErrUnauthorized
	}

	if upd.Name != nil {
		if err := s.validator.ValidatePathName(*upd.Name); err != nil {
			return err
		}
	}
	if upd.Coordinates != nil {
		if err := s.validator.ValidatePath(*upd.Coordinates); err != nil {
			return err
		}
	}

	existing, err := s.store.GetUserPath(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get user path: %w", err)
	}
	if existing == nil {
		return apperrors.ErrPathNotFound
	}
	if existing.OwnerID != ident.ID {
		return apperrors.ErrNotPathOwner
	}

	if upd.IsEmpty() {
		return nil
	}

	if err := s.store.UpdateUserPath(ctx, id, ident.ID, upd); err != nil {
		return fmt.Errorf("failed to update user path: %w", err)
	}

	return nil
}

// DeleteUserPath removes an owned path. Deleting an id that does not exist
// (or was already deleted) succeeds.
func (s *Service) DeleteUserPath(ctx context.Context, ident *identity.Identity, id string) error {
	if ident == nil {
		return apperrors.ErrUnauthorized
	}

	existing, err := s.store.GetUserPath(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get user path: %w", err)
	}
	if existing == nil {
		return nil
	}
	if existing.OwnerID != ident.ID {
		return apperrors.ErrNotPathOwner
	}

	if err := s.store.DeleteUserPath(ctx, id, ident.ID); err != nil {
		return fmt.Errorf("failed to delete user path: %w", err)
	}

	return nil
}

// ShareUserPath snapshots an owned path into a new anonymous shared path
// and returns the new id. The copy is fully decoupled: later updates or
// deletes of the user path never alter the snapshot.
func (s *Service) ShareUserPath(ctx context.Context, ident *identity.Identity, userPathID string) (string, error) {
	if ident == nil {
		return "", apperrors.ErrUnauthorized
	}

	userPath, err := s.store.GetUserPath(ctx, userPathID)
	if err != nil {
		return "", fmt.Errorf("failed to get user path: %w", err)
	}
	if userPath == nil {
		return "", apperrors.ErrPathNotFound
	}
	if userPath.OwnerID != ident.ID {
		return "", apperrors.ErrNotPathOwner
	}

	if err := s.validator.ValidateShareablePath(userPath.Coordinates); err != nil {
		return "", err
	}

	shared := &SharedPath{
		PathID:           NewPathID(),
		Coordinates:      copyPoints(userPath.Coordinates),
		UserLocation:     copyPoint(userPath.UserLocation),
		VertexData:       copyVertexData(userPath.VertexData),
		SourceUserPathID: userPath.ID,
		CreatedAt:        time.Now(),
	}

	if err := s.store.InsertSharedPath(ctx, shared); err != nil {
		return "", fmt.Errorf("failed to save shared path: %w", err)
	}

	return shared.PathID, nil
}

func copyPoints(points []geo.Point) []geo.Point {
	out := make([]geo.Point, len(points))
	copy(out, points)
	return out
}

func copyPoint(p *geo.Point) *geo.Point {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

func copyVertexData(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return nil
	}
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
