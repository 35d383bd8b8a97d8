package transport

import "encoding/json"

// QueryRequest is the body of POST /query: a named operation plus its variables.
type QueryRequest struct {
	Operation string          `json:"operation"`
	Variables json.RawMessage `json:"variables"`
}
