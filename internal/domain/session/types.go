// Package session holds the client-side authentication state: who is using
// the application right now, their role, their profile and the bearer token.
package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Role is the role the backend assigned to the authenticated user.
// Values are the backend's wire values.
type Role string

const (
	// RoleGuest is the role of an anonymous session. Never persisted.
	RoleGuest Role = ""
	// RoleFan is a supporter account.
	RoleFan Role = "torcedor"
	// RoleAmateurPlayer is an amateur player account.
	RoleAmateurPlayer Role = "jogadora_amadora"
	// RoleProfessionalPlayer is a professional player account.
	RoleProfessionalPlayer Role = "jogadora_profissional"
	// RoleScout is a scout account.
	RoleScout Role = "olheiro"
	// RoleAdmin has full access.
	RoleAdmin Role = "admin"
)

// Known returns true if the role is one of the roles the backend defines.
// Unknown roles are kept verbatim since the backend is authoritative.
func (r Role) Known() bool {
	switch r {
	case RoleFan, RoleAmateurPlayer, RoleProfessionalPlayer, RoleScout, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsPlayer returns true for both player roles. Only players own a profile.
func (r Role) IsPlayer() bool {
	return r == RoleAmateurPlayer || r == RoleProfessionalPlayer
}

// Name returns the English name of the role ("guest" for the anonymous role).
func (r Role) Name() string {
	switch r {
	case RoleGuest:
		return "guest"
	case RoleFan:
		return "fan"
	case RoleAmateurPlayer:
		return "amateur_player"
	case RoleProfessionalPlayer:
		return "professional_player"
	case RoleScout:
		return "scout"
	case RoleAdmin:
		return "admin"
	default:
		return string(r)
	}
}

// ErrInvalidProfile is returned when a profile payload is not a JSON object.
var ErrInvalidProfile = errors.New("invalid profile payload")

// Profile is the current user's profile as returned by the backend.
// The payload is kept verbatim; DisplayName and ImageURL are read from it
// for convenience and nothing else is interpreted.
type Profile struct {
	DisplayName string
	ImageURL    string

	raw json.RawMessage
}

// profileFields are the only fields read out of the payload.
type profileFields struct {
	FullName string `json:"full_name"`
	ImageURL string `json:"image_url"`
}

// ParseProfile decodes a profile payload. The payload must be a JSON object.
func ParseProfile(data []byte) (*Profile, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrInvalidProfile
	}

	var fields profileFields
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	raw := make(json.RawMessage, len(trimmed))
	copy(raw, trimmed)
	return &Profile{
		DisplayName: fields.FullName,
		ImageURL:    fields.ImageURL,
		raw:         raw,
	}, nil
}

// Raw returns a copy of the payload the profile was parsed from.
func (p *Profile) Raw() []byte {
	if p == nil {
		return nil
	}
	out := make([]byte, len(p.raw))
	copy(out, p.raw)
	return out
}

// Fields decodes the full payload into a generic map.
func (p *Profile) Fields() (map[string]any, error) {
	fields := make(map[string]any)
	if p == nil || len(p.raw) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(p.raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	return fields, nil
}

// MarshalJSON writes the original payload.
func (p *Profile) MarshalJSON() ([]byte, error) {
	if p == nil || len(p.raw) == 0 {
		return []byte("null"), nil
	}
	return p.Raw(), nil
}

// clone returns a deep copy so callers cannot mutate stored state.
func (p *Profile) clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.raw = p.Raw()
	return &c
}

// Session is a snapshot of the authentication state.
// IsLoggedIn is true iff Token is non-empty. Role is meaningful only when
// logged in. Expiry is never checked here: the backend rejects stale tokens.
type Session struct {
	IsLoggedIn bool
	Role       Role
	Token      string
	Profile    *Profile
}

// Anonymous returns the empty session.
func Anonymous() Session {
	return Session{}
}

// Authenticated returns a logged-in session without a profile.
func Authenticated(token string, role Role) Session {
	if token == "" {
		return Anonymous()
	}
	return Session{
		IsLoggedIn: true,
		Role:       role,
		Token:      token,
	}
}

// WithProfile returns a copy of s carrying the given profile. Anonymous
// sessions never carry a profile.
func (s Session) WithProfile(p *Profile) Session {
	if !s.IsLoggedIn {
		return s
	}
	s.Profile = p.clone()
	return s
}

// Clone returns a deep copy of s.
func (s Session) Clone() Session {
	s.Profile = s.Profile.clone()
	return s
}

// Equal reports whether two snapshots hold the same state.
func (s Session) Equal(o Session) bool {
	if s.IsLoggedIn != o.IsLoggedIn || s.Role != o.Role || s.Token != o.Token {
		return false
	}
	if (s.Profile == nil) != (o.Profile == nil) {
		return false
	}
	if s.Profile == nil {
		return true
	}
	return bytes.Equal(s.Profile.raw, o.Profile.raw)
}
