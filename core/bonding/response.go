package bonding

import (
	"encoding/json"
	"log"
)

// Response is the outcome of one engine operation. Code zero means the
// operation committed; any other code means the state is untouched.
type Response struct {
	Code uint32 `json:"code,omitempty"`
	Log  string `json:"log,omitempty"`
	Info string `json:"info,omitempty"`
}

// EncodeError marshals a typed error detail into the response Info field
func EncodeError(data interface{}) string {
	marshaled, err := json.Marshal(data)
	if err != nil {
		log.Panicf("failed to marshal error data: %s", err)
	}

	return string(marshaled)
}
