package path

import (
	"time"

	"github.com/richyrich98/dotanddot/internal/geo"
)

// SharedPath is an anonymous, publicly readable path addressed by an opaque
// id. It is written once and never mutated.
type SharedPath struct {
	PathID           string                 `json:"path_id"`
	Coordinates      []geo.Point            `json:"coordinates"`
	UserLocation     *geo.Point             `json:"user_location,omitempty"`
	VertexData       map[string]interface{} `json:"vertex_data,omitempty"`
	SourceUserPathID string                 `json:"source_user_path_id,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

// UserPath is a named path owned by one identity. It is the only mutable
// entity; every read, update and delete checks ownership.
type UserPath struct {
	ID           string                 `json:"id"`
	OwnerID      string                 `json:"owner_id"`
	Name         string                 `json:"name"`
	Description  string                 `json:"description,omitempty"`
	Coordinates  []geo.Point            `json:"coordinates"`
	VertexData   map[string]interface{} `json:"vertex_data,omitempty"`
	UserLocation *geo.Point             `json:"user_location,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// Update is a partial update of a UserPath. A nil field means "leave
// untouched"; a non-nil pointer to a zero value is a real update. This
// keeps "unset" distinguishable from "set to empty".
type Update struct {
	Name        *string
	Description *string
	Coordinates *[]geo.Point
	VertexData  *map[string]interface{}
}

// IsEmpty reports whether the update touches any field.
func (u *Update) IsEmpty() bool {
	return u.Name == nil && u.Description == nil &&
		u.Coordinates == nil && u.VertexData == nil
}
