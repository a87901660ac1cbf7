package store

import (
	"fmt"

	ai "github.com/spetersoncode/relay"
)

// InvalidMessageError reports an append that would break the
// conversation's structure.
type InvalidMessageError struct {
	Role   ai.Role
	Reason string
}

func (e *InvalidMessageError) Error() string {
	return fmt.Sprintf("store: invalid %s message: %s", e.Role, e.Reason)
}

// ContextOverflowError reports that the system preamble and the newest
// user message alone exceed the token budget.
type ContextOverflowError struct {
	Required int
	Budget   int
}

func (e *ContextOverflowError) Error() string {
	return fmt.Sprintf("store: context overflow: %d tokens required, budget is %d", e.Required, e.Budget)
}
