package provider

import (
	"fmt"

	"github.com/erg0nix/parley/internal/core"
)

// RoleError describes a message list the chat endpoint would reject or misread.
type RoleError struct {
	Index        int
	CurrentRole  core.Role
	PreviousRole core.Role
	Message      string
}

func (e *RoleError) Error() string {
	return e.Message
}

// validateRoleAlternation checks that messages open with the system instruction, alternate
// between user and assistant after it and end on a user message.
func validateRoleAlternation(messages []core.Message) error {
	if len(messages) == 0 {
		return &RoleError{Message: "no messages"}
	}

	if messages[0].Role != core.RoleSystem {
		return &RoleError{
			Index:       0,
			CurrentRole: messages[0].Role,
			Message:     fmt.Sprintf("first message must be system role, got: %s", messages[0].Role),
		}
	}

	prevRole := core.RoleSystem

	for i := 1; i < len(messages); i++ {
		role := messages[i].Role

		switch {
		case role == core.RoleSystem:
			return &RoleError{
				Index:        i,
				CurrentRole:  role,
				PreviousRole: prevRole,
				Message:      fmt.Sprintf("system message at index %d", i),
			}
		case role == prevRole:
			return &RoleError{
				Index:        i,
				CurrentRole:  role,
				PreviousRole: prevRole,
				Message:      fmt.Sprintf("consecutive %s messages at index %d and %d", role, i-1, i),
			}
		case prevRole == core.RoleSystem && role != core.RoleUser:
			return &RoleError{
				Index:        i,
				CurrentRole:  role,
				PreviousRole: prevRole,
				Message:      fmt.Sprintf("%s message at index %d must follow a user message", role, i),
			}
		}

		prevRole = role
	}

	if prevRole != core.RoleUser {
		return &RoleError{
			Index:       len(messages) - 1,
			CurrentRole: prevRole,
			Message:     fmt.Sprintf("last message must be user role, got: %s", prevRole),
		}
	}

	return nil
}
