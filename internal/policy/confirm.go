package policy

import (
	"fmt"
	"strings"
)

// RequireConfirmation enforces explicit confirm=true for bulk-mutating tools.
// Batch resolution touches many bugs in one call, so the contract flag and
// the batch tool name both demand confirmation.
func RequireConfirmation(toolName string, confirmationRequired bool, args map[string]any) error {
	name := strings.TrimSpace(toolName)
	if name == "" {
		return nil
	}

	if !confirmationRequired && !strings.HasSuffix(name, ".batch_resolve") {
		return nil
	}
	if hasConfirmTrue(args) {
		return nil
	}
	return fmt.Errorf("tool %s requires confirm=true for bulk mutations", name)
}

func hasConfirmTrue(args map[string]any) bool {
	if args == nil {
		return false
	}
	value, ok := args["confirm"]
	if !ok {
		return false
	}
	confirm, ok := value.(bool)
	return ok && confirm
}
