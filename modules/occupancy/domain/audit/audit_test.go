package audit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOperationAndTarget(t *testing.T) {
	op, err := ParseOperation(" Finalization ")
	require.NoError(t, err)
	require.Equal(t, OperationFinalization, op)

	_, err = ParseOperation("update")
	require.Error(t, err)

	target, err := ParseTarget("occupancy")
	require.NoError(t, err)
	require.Equal(t, TargetOccupancy, target)

	_, err = ParseTarget("user")
	require.Error(t, err)
}

func TestFilterMatches(t *testing.T) {
	e := NewEntry(OperationAddition, TargetPosition, "position %q added", "Director")
	require.Equal(t, `position "Director" added`, e.Description)

	require.True(t, Filter{}.Matches(e))
	require.True(t, Filter{Operations: []Operation{OperationRemoval, OperationAddition}}.Matches(e))
	require.False(t, Filter{Targets: []Target{TargetPerson}}.Matches(e))
}
