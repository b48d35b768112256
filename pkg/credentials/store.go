package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/grocerycart/pkg/types"
)

// Well-known keys persisted by the storefront session.
const (
	KeyToken       = "token"
	KeyUserDetails = "userDetails"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("credential not found")

// Reader is the read-only surface the cart and checkout core depends on.
type Reader interface {
	Get(ctx context.Context, name string) (string, error)
}

// Store is a small key-value store holding the session credentials.
type Store interface {
	Reader
	Set(ctx context.Context, name, value string) error
	Remove(ctx context.Context, name string) error
}

// Token returns the bearer token, or "" when none is stored.
func Token(ctx context.Context, r Reader) (string, error) {
	if r == nil {
		return "", nil
	}
	token, err := r.Get(ctx, KeyToken)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}
	return strings.TrimSpace(token), nil
}

// Profile decodes the cached customer profile.
func Profile(ctx context.Context, r Reader) (*types.CustomerProfile, error) {
	if r == nil {
		return nil, ErrNotFound
	}
	raw, err := r.Get(ctx, KeyUserDetails)
	if err != nil {
		return nil, err
	}
	var profile types.CustomerProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", KeyUserDetails, err)
	}
	return &profile, nil
}

// SaveSession stores the token and profile returned by a login.
func SaveSession(ctx context.Context, s Store, token string, profile types.CustomerProfile) error {
	body, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", KeyUserDetails, err)
	}
	if err := s.Set(ctx, KeyToken, token); err != nil {
		return err
	}
	return s.Set(ctx, KeyUserDetails, string(body))
}

// ClearSession forgets the token and profile.
func ClearSession(ctx context.Context, s Store) error {
	if err := s.Remove(ctx, KeyToken); err != nil {
		return err
	}
	return s.Remove(ctx, KeyUserDetails)
}

func validName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("credential name is required")
	}
	return nil
}
