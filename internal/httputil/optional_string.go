package httputil

import (
	"bytes"
	"encoding/json"
)

// OptionalString is a JSON string field that remembers whether it was sent.
// Present=false means the key was absent; Present with a nil Value means an
// explicit null.
type OptionalString struct {
	Present bool
	Value   *string
}

// UnmarshalJSON only runs for keys present in the body
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}
