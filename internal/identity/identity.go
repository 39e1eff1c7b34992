package identity

import "context"

// Identity is the authenticated caller. It is resolved once at the request
// boundary and threaded explicitly into every ownership-checked operation.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Provider resolves a bearer token to an identity. A missing or expired
// token yields (nil, nil); an error means the lookup itself failed, which
// callers treat as "no identity" everywhere except migration.
type Provider interface {
	Resolve(ctx context.Context, token string) (*Identity, error)
}
