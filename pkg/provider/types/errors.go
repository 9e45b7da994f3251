package types

import "errors"

// Validation sentinels for the conversation model. The richer error
// taxonomy for the request path lives in pkg/provider/errors; these cover
// the pure value types so this package stays dependency-light.
var (
	// ErrInvalidMessage indicates a message or context violates a
	// structural invariant
	ErrInvalidMessage = errors.New("invalid message")

	// ErrInvalidTool indicates a tool definition is malformed
	ErrInvalidTool = errors.New("invalid tool")
)
