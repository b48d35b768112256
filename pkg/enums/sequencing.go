package enums

import (
	"fmt"
	"strings"
)

// SequencingPolicy decides how concurrent mutations of the same cart line are ordered.
type SequencingPolicy string

const (
	// SequencingSerialize queues same-line requests so only one is in flight.
	SequencingSerialize SequencingPolicy = "serialize"
	// SequencingSequence tags requests and drops responses older than the newest applied one.
	SequencingSequence SequencingPolicy = "sequence"
)

var validSequencingPolicies = []SequencingPolicy{
	SequencingSerialize,
	SequencingSequence,
}

// String implements fmt.Stringer.
func (s SequencingPolicy) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SequencingPolicy.
func (s SequencingPolicy) IsValid() bool {
	for _, candidate := range validSequencingPolicies {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSequencingPolicy converts raw input into a SequencingPolicy.
func ParseSequencingPolicy(value string) (SequencingPolicy, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validSequencingPolicies {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sequencing policy %q", value)
}
