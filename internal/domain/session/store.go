package session

import (
	"context"
	"errors"
)

// Keys under which the session is persisted.
const (
	KeyToken   = "accessToken"
	KeyRole    = "userRole"
	KeyProfile = "userProfile"
)

// Keys lists every persisted key.
var Keys = []string{KeyToken, KeyRole, KeyProfile}

// Storage is the persisted key/value mirror of the session. Values are opaque
// strings: no expiry or encryption is applied at this layer.
// Implementations: memory (tests, proxy), file (CLI default), sqlite.
type Storage interface {
	// Get returns the value for key. ok is false if the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// ErrStorageClosed is returned by storage drivers used after Close.
var ErrStorageClosed = errors.New("session storage closed")

// Load reads the persisted session. A persisted profile that fails to parse
// is reported through profileErr; the returned session then has no profile
// but still honors the token and role. err is only set for storage failures.
func Load(ctx context.Context, st Storage) (s Session, profileErr error, err error) {
	token, hasToken, err := st.Get(ctx, KeyToken)
	if err != nil {
		return Anonymous(), nil, err
	}
	role, hasRole, err := st.Get(ctx, KeyRole)
	if err != nil {
		return Anonymous(), nil, err
	}
	if !hasToken || !hasRole || token == "" || role == "" {
		return Anonymous(), nil, nil
	}

	s = Authenticated(token, Role(role))

	raw, hasProfile, err := st.Get(ctx, KeyProfile)
	if err != nil {
		return Anonymous(), nil, err
	}
	if !hasProfile || raw == "" {
		return s, nil, nil
	}

	p, perr := ParseProfile([]byte(raw))
	if perr != nil {
		return s, perr, nil
	}
	return s.WithProfile(p), nil, nil
}

// Clear deletes every persisted key. All keys are attempted even if one
// fails; the joined errors are returned.
func Clear(ctx context.Context, st Storage) error {
	var errs []error
	for _, key := range Keys {
		if err := st.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
