package main

import (
	"errors"
)

var (
	ERR_BAD_INPUT            error = errors.New("Can't read input")
	ERR_BAD_OUTPUT           error = errors.New("Can't write output")
	ERR_INVALID_CONFIG       error = errors.New("Invalid config")
	ERR_BROKER               error = errors.New("Broker unavailable")
	ERR_CANCELLED_BY_CONTEXT error = errors.New("Cancelled via context")
	ERR_INTERRUPTED_BY_USER  error = errors.New("Interrupted by user")
)
