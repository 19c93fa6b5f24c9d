package productinfo

// Status discriminates the outcome of a lookup.
type Status int

const (
	// StatusNotFound means no non-empty value exists in the chain.
	StatusNotFound Status = iota
	// StatusFound means Value holds a non-empty value.
	StatusFound
	// StatusTransientError means a repository read failed somewhere along the
	// chain and nothing was found elsewhere. Callers treat it as not found.
	StatusTransientError
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusTransientError:
		return "transient_error"
	default:
		return "not_found"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "found":
		*s = StatusFound
	case "transient_error":
		*s = StatusTransientError
	default:
		*s = StatusNotFound
	}
	return nil
}

// Result is the outcome of resolving one property.
type Result struct {
	Value  string
	Status Status
	// NodeID is the node the value was read from, when found.
	NodeID int64
}

// Found reports whether the result carries a value.
func (r Result) Found() bool {
	return r.Status == StatusFound && r.Value != ""
}

// String returns the value, or "" when nothing was found.
func (r Result) String() string {
	if !r.Found() {
		return ""
	}
	return r.Value
}

func found(value string, nodeID int64) Result {
	if value == "" {
		return Result{}
	}
	return Result{Value: value, Status: StatusFound, NodeID: nodeID}
}

func transient(nodeID int64) Result {
	return Result{Status: StatusTransientError, NodeID: nodeID}
}

// worse keeps a transient error visible when a later step finds nothing.
func worse(a, b Result) Result {
	if a.Found() {
		return a
	}
	if b.Found() {
		return b
	}
	if a.Status == StatusTransientError {
		return a
	}
	return b
}
