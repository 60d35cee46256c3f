package tid

import (
	"errors"
	"fmt"
)

// GenerationError reports a failure to lock, read or persist the durable
// counter behind a Generator.
type GenerationError struct {
	// Op is the step that failed: "open", "lock", "read", "write" or "range".
	Op string

	// Path is the lock file.
	Path string

	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("tid generation %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IsGenerationError reports whether err is, or wraps, a GenerationError.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
