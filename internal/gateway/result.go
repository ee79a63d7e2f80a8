package gateway

import "github.com/angelmondragon/luvwish-checkout/internal/failure"

// Result is what every gateway call returns: either a value or a failure that
// was classified once, at the boundary.
type Result[T any] struct {
	value   T
	failure *failure.Classified
}

// Empty is the value of calls that only report success.
type Empty struct{}

func ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

func failed[T any](f *failure.Classified) Result[T] {
	return Result[T]{failure: f}
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool {
	return r.failure == nil
}

// Value returns the payload; it is the zero value when the call failed.
func (r Result[T]) Value() T {
	return r.value
}

// Failure returns the classified failure, or nil on success.
func (r Result[T]) Failure() *failure.Classified {
	return r.failure
}

// Unwrap adapts the result to the (value, error) convention.
func (r Result[T]) Unwrap() (T, error) {
	if r.failure != nil {
		return r.value, r.failure
	}
	return r.value, nil
}

// Succeeded builds a successful result; test doubles use it.
func Succeeded[T any](value T) Result[T] {
	return ok(value)
}

// Failed builds a failed result; test doubles use it.
func Failed[T any](f *failure.Classified) Result[T] {
	return failed[T](f)
}
