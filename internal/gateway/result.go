package gateway

// Outcome tags a read result so the cache layer can tell "legitimately no
// rows" from "call failed" instead of collapsing both into a zero value.
type Outcome int

const (
	// Success means the call completed and returned data.
	Success Outcome = iota
	// Empty means the call completed and legitimately matched no rows.
	Empty
	// Failed means the call itself failed; Err carries the cause.
	Failed
)

// Result is the tagged outcome of a single gateway read.
type Result[T any] struct {
	Outcome Outcome
	Value   T
	Err     error
}

// Ok returns a successful result carrying v.
func Ok[T any](v T) Result[T] {
	return Result[T]{Outcome: Success, Value: v}
}

// None returns an empty result: the call worked, nothing matched.
func None[T any]() Result[T] {
	return Result[T]{Outcome: Empty}
}

// Fail returns a failed result carrying the cause.
func Fail[T any](err error) Result[T] {
	return Result[T]{Outcome: Failed, Err: err}
}
