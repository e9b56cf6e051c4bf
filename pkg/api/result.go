package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Op names an access client operation.
type Op string

const (
	OpFetchAll Op = "fetch_all"
	OpFetch    Op = "fetch"
	OpWrite    Op = "write"
)

// Result is the outcome of one call. It is returned to the caller and is
// the authoritative record of that call.
type Result[RT any] struct {
	RequestID  uuid.UUID
	Op         Op
	Target     string
	Status     int
	StatusText string
	Data       json.RawMessage
	Entity     *RT
	Entities   []RT
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r Result[RT]) OK() bool { return r.Err == nil }

// State is the aggregate view of a client: completed results merged in
// completion order, plus whether any call is still in flight.
type State[RT any] struct {
	Status     int
	StatusText string
	Data       json.RawMessage
	Entity     *RT
	Entities   []RT
	Err        error
	Loading    bool
}

// TokenSource selects the token a write is sent with.
type TokenSource struct {
	explicit bool
	token    string
}

// SessionToken uses the token of the authentication context.
func SessionToken() TokenSource { return TokenSource{} }

// ExplicitToken uses token instead of the session token. An empty token
// falls back to the session token.
func ExplicitToken(token string) TokenSource {
	return TokenSource{explicit: true, token: token}
}

func (s TokenSource) String() string {
	if s.explicit {
		return "explicit"
	}
	return "session"
}
