package source

import "github.com/vietddude/reconciler/internal/core/domain"

// Result is the outcome of one sub-fetch: either data or the reason it is
// unavailable. Callers fold it explicitly with OrEmpty.
type Result[T any] struct {
	value  T
	err    error
	source string
}

// Ok wraps successfully fetched data.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Unavailable records that a source could not deliver data.
func Unavailable[T any](source string, err error) Result[T] {
	return Result[T]{err: err, source: source}
}

// Available reports whether the fetch succeeded.
func (r Result[T]) Available() bool {
	return r.err == nil
}

// Err returns the failure reason, nil when available.
func (r Result[T]) Err() error {
	return r.err
}

// Source names the failed source, empty when available.
func (r Result[T]) Source() string {
	return r.source
}

// Get returns the value and whether it is available.
func (r Result[T]) Get() (T, bool) {
	return r.value, r.err == nil
}

// OrEmpty returns the value, or the zero value when unavailable.
func (r Result[T]) OrEmpty() T {
	if r.err != nil {
		var zero T
		return zero
	}
	return r.value
}

// Degradation describes an unavailable result for the run report.
func (r Result[T]) Degradation(chain domain.ChainID, campaign string) (domain.Degradation, bool) {
	if r.err == nil {
		return domain.Degradation{}, false
	}
	return domain.Degradation{
		Source:   r.source,
		ChainID:  chain,
		Campaign: campaign,
		Error:    r.err.Error(),
	}, true
}
