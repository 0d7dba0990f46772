package gate

import "errors"

var (
	// ErrNotLoaded indicates the boot target's configuration could not be
	// loaded. Fatal for the invocation; no later pipeline step runs.
	ErrNotLoaded = errors.New("boot target not loaded")
)
