// Package errs defines the error taxonomy shared by every storage and
// report-generation component (spec §7). Callers compare against these
// sentinels with errors.Is; components wrap them with fmt.Errorf("%w", ...)
// to add context without losing the taxonomy.
package errs

import "errors"

var (
	// InvalidArgument covers malformed IDs, empty chains, bad pagination
	// tokens, out-of-range variable counts, and row-type mismatches.
	InvalidArgument = errors.New("invalid argument")
	// NotFound covers missing metrics, encoding configs, report configs,
	// and report IDs.
	NotFound = errors.New("not found")
	// AlreadyExists covers a derived report ID whose metadata already exists.
	AlreadyExists = errors.New("already exists")
	// PreconditionFailed covers state-machine violations.
	PreconditionFailed = errors.New("precondition failed")
	// OperationFailed covers a key-value store operation returning non-OK
	// after retries are exhausted.
	OperationFailed = errors.New("operation failed")
	// Unimplemented covers JOINT reports, string-RR analysis, and
	// heterogeneous encoding-config groups within one report.
	Unimplemented = errors.New("unimplemented")
	// Aborted covers queue overflow and shutdown-in-progress rejections.
	Aborted = errors.New("aborted")
)

// IsPermanent reports whether err is one of the sentinels above that
// represents a caller mistake or a definite application-level outcome
// rather than a transient backend failure. remotekv uses this to decide
// which errors are worth retrying.
func IsPermanent(err error) bool {
	return errors.Is(err, InvalidArgument) ||
		errors.Is(err, NotFound) ||
		errors.Is(err, AlreadyExists) ||
		errors.Is(err, PreconditionFailed) ||
		errors.Is(err, Unimplemented)
}
