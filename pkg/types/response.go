package types

import "encoding/json"

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// RawEnvelope defers decoding of data until the caller knows the schema.
type RawEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
