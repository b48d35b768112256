package cartapi

import (
	"bytes"
	"fmt"
	"strconv"
)

// flag decodes booleans the API sends as true/false, 0/1 or "0"/"1".
type flag bool

func (f *flag) UnmarshalJSON(data []byte) error {
	raw := bytes.Trim(bytes.TrimSpace(data), `"`)
	switch string(raw) {
	case "", "null":
		*f = false
		return nil
	}
	if b, err := strconv.ParseBool(string(raw)); err == nil {
		*f = flag(b)
		return nil
	}
	n, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid flag value %s", data)
	}
	*f = n != 0
	return nil
}
