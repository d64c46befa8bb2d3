package biconomy

import (
	"errors"
	"fmt"
)

// ErrUserOpNotIncluded is returned when a submitted user operation never
// makes it on chain within the polling window
var ErrUserOpNotIncluded = errors.New("user operation not included on chain")

// ErrUserOpReverted is returned when the user operation landed on chain but
// its execution reverted
var ErrUserOpReverted = errors.New("user operation reverted on chain")

// RPCError represents a JSON-RPC error from the bundler or paymaster
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *RPCError) Error() string {
	return fmt.Sprintf("bundler RPC error [%d]: %s", e.Code, e.Message)
}

// IsRateLimited returns true for bundler rate limit errors
func (e *RPCError) IsRateLimited() bool {
	return e.Code == -32029
}
