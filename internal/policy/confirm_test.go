package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequireConfirmation_NotNeededForPlainTools(t *testing.T) {
	require.NoError(t, RequireConfirmation("bugs.resolve", false, nil))
	require.NoError(t, RequireConfirmation("bugs.list", false, map[string]any{}))
}

func TestRequireConfirmation_ContractFlagDemandsConfirm(t *testing.T) {
	err := RequireConfirmation("bugs.resolve", true, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "confirm=true")

	require.NoError(t, RequireConfirmation("bugs.resolve", true, map[string]any{"confirm": true}))
}

func TestRequireConfirmation_BatchSuffixAlwaysDemandsConfirm(t *testing.T) {
	err := RequireConfirmation("bugs.batch_resolve", false, map[string]any{"status": "active"})
	require.Error(t, err)

	require.NoError(t, RequireConfirmation("bugs.batch_resolve", false, map[string]any{"confirm": true}))
}

func TestRequireConfirmation_NonBooleanConfirmRejected(t *testing.T) {
	err := RequireConfirmation("bugs.batch_resolve", true, map[string]any{"confirm": "yes"})
	require.Error(t, err)

	err = RequireConfirmation("bugs.batch_resolve", true, map[string]any{"confirm": false})
	require.Error(t, err)
}

func TestRequireConfirmation_EmptyToolNameSkipped(t *testing.T) {
	require.NoError(t, RequireConfirmation("  ", true, nil))
}
