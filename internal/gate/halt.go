package gate

import "os"

// ProcessController terminates the host process. Injected so tests can
// assert the halt happened without ending the test binary.
type ProcessController interface {
	Halt()
}

// OSController is the real controller: an unconditional clean exit. The
// supervisor is expected to restart the process into a post-migration state.
type OSController struct{}

func (OSController) Halt() { os.Exit(0) }
