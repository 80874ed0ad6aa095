package core

import (
	"encoding/json"

	"github.com/radome/sequencescape/pkg/domain"
)

// decodeChangePayload unmarshals a change payload into T. The boolean is
// false when the payload is undefined, empty, or does not decode into T.
func decodeChangePayload[T any](payload domain.ChangePayload) (T, bool) {
	var out T
	if !payload.Defined() {
		return out, false
	}
	raw := payload.Raw()
	if len(raw) == 0 {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false
	}
	return out, true
}
