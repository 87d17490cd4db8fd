// Package validate implements the BTOON validator: a read-only walker over
// the wire grammar that produces a report instead of materializing values.
//
// The validator is non-throwing. Any grammar violation becomes an entry in
// the report's error list, and where the decoder would stop at the first
// structural problem the validator resynchronizes and keeps walking so a
// single call can surface several problems. It applies the same bounds
// discipline as the decoder and never allocates from a length claim alone.
package validate

import (
	"fmt"

	"github.com/BTOON-project/btoon-core/errs"
)

// Issue is a single validation finding: the error kind, the byte offset at
// which it was detected, and a short description.
type Issue struct {
	Kind    errs.Kind
	Offset  int
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s at offset %d: %s", i.Kind, i.Offset, i.Message)
}

// Stats summarizes a validated buffer. Collection is skipped in fast mode.
type Stats struct {
	// MaxDepth is the deepest nesting level encountered.
	MaxDepth int
	// CountByTag counts decoded elements per variant name.
	CountByTag map[string]uint64
	// TotalBytes is the length of the validated buffer.
	TotalBytes int
	// Digest is the xxHash64 of the validated buffer, usable as a cheap
	// content fingerprint for caching and deduplication.
	Digest uint64
}

// Report is the result of a validation pass.
type Report struct {
	// Valid is true when no errors were recorded. Warnings do not affect it.
	Valid    bool
	Errors   []Issue
	Warnings []Issue
	// Stats is nil in fast mode.
	Stats *Stats
}

func (r *Report) addError(kind errs.Kind, offset int, format string, args ...any) {
	r.Errors = append(r.Errors, Issue{Kind: kind, Offset: offset, Message: fmt.Sprintf(format, args...)})
	r.Valid = false
}

func (r *Report) addWarning(kind errs.Kind, offset int, format string, args ...any) {
	r.Warnings = append(r.Warnings, Issue{Kind: kind, Offset: offset, Message: fmt.Sprintf(format, args...)})
}
