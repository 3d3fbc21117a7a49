package catalog

import (
	"bytes"
	"encoding/json"
)

// marshalCanonical serializes v deterministically: map keys sorted (the
// encoding/json default), HTML escaping off, no trailing newline. Used
// for edit snapshots, where byte equality must mean semantic equality.
func marshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
