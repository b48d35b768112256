package enums

import (
	"fmt"
	"strings"
)

// CredentialBackend selects where the bearer token and cached profile are persisted.
type CredentialBackend string

const (
	CredentialBackendMemory CredentialBackend = "memory"
	CredentialBackendRedis  CredentialBackend = "redis"
	CredentialBackendSQL    CredentialBackend = "sql"
)

var validCredentialBackends = []CredentialBackend{
	CredentialBackendMemory,
	CredentialBackendRedis,
	CredentialBackendSQL,
}

// String implements fmt.Stringer.
func (c CredentialBackend) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CredentialBackend.
func (c CredentialBackend) IsValid() bool {
	for _, candidate := range validCredentialBackends {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCredentialBackend converts raw input into a CredentialBackend.
func ParseCredentialBackend(value string) (CredentialBackend, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validCredentialBackends {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid credential backend %q", value)
}
