// Fatal error classes shared by the matching packages.
// Every error returned by the core wraps exactly one of them.
package errs

import (
	"errors"
)

var (
	// key sets, missing death policy, unknown modes
	ERR_CONFIGURATION error = errors.New("Invalid configuration")
	// caller bug or corrupted state
	ERR_INVARIANT error = errors.New("Invariant violated")
	// malformed detection or track data
	ERR_DATA error = errors.New("Invalid data")
)
