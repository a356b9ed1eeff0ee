// Package respond writes the {"data", "errors"} JSON envelope every API
// endpoint answers with.
package respond

import (
	"encoding/json"
	"net/http"
)

type Envelope struct {
	Data   any      `json:"data"`
	Errors []string `json:"errors"`
}

func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Envelope{Data: data, Errors: []string{}})
}

func Error(w http.ResponseWriter, status int, msgs ...string) {
	if len(msgs) == 0 {
		msgs = []string{http.StatusText(status)}
	}
	write(w, status, Envelope{Errors: msgs})
}

func write(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Decode reads a JSON request body. Unknown fields are rejected.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
