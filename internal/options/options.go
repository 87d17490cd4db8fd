// Package options is the functional-option plumbing behind the library's
// three public configuration surfaces: codec.EncodeOption and
// codec.DecodeOption (both aliases of Option over the respective config
// structs) and validate.Option (Option over *Validator).
//
// Option constructors that can reject their argument (depth limits, ratio
// guards) are built with New; ones that cannot fail use NoError. The
// config types call Apply once, at the top of Encode/Decode/validate.New,
// so a bad option surfaces before any bytes are touched.
package options

// Option mutates a configuration target of type T, or rejects it.
type Option[T any] interface {
	apply(T) error
}

// Func adapts a plain function into an Option.
type Func[T any] struct {
	applyFunc func(T) error
}

func (f *Func[T]) apply(target T) error {
	return f.applyFunc(target)
}

// New wraps a fallible configuration function. Used by options that
// validate their argument, e.g. codec.WithMaxDepth rejecting zero.
func New[T any](fn func(T) error) *Func[T] {
	return &Func[T]{applyFunc: fn}
}

// NoError wraps an infallible configuration function, e.g. toggles like
// codec.WithStrictMode or validate.WithFastMode.
func NoError[T any](fn func(T)) *Func[T] {
	return &Func[T]{
		applyFunc: func(target T) error {
			fn(target)
			return nil
		},
	}
}

// Apply runs opts against target in order and stops at the first
// rejection, leaving target partially configured; callers treat that as
// fatal and discard it.
func Apply[T any](target T, opts ...Option[T]) error {
	for _, opt := range opts {
		if err := opt.apply(target); err != nil {
			return err
		}
	}

	return nil
}
