package reservation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCheckedIn, false},
		{StatusConfirmed, StatusCheckedIn, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusCompleted, false},
		{StatusCheckedIn, StatusCheckedOut, true},
		{StatusCheckedIn, StatusCancelled, false},
		{StatusCheckedOut, StatusCompleted, true},
		{StatusCheckedOut, StatusCancelled, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusConfirmed, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusCheckedOut.IsTerminal())

	assert.True(t, Status("garbage").IsTerminal())
}

func TestStatusHoldsCapacity(t *testing.T) {
	assert.True(t, StatusPending.HoldsCapacity())
	assert.True(t, StatusConfirmed.HoldsCapacity())
	assert.True(t, StatusCheckedIn.HoldsCapacity())
	assert.False(t, StatusCheckedOut.HoldsCapacity())
	assert.False(t, StatusCompleted.HoldsCapacity())
	assert.False(t, StatusCancelled.HoldsCapacity())
}

func TestStatusCanBeCancelled(t *testing.T) {
	assert.True(t, StatusPending.CanBeCancelled())
	assert.True(t, StatusConfirmed.CanBeCancelled())
	assert.False(t, StatusCheckedIn.CanBeCancelled())
	assert.False(t, StatusCompleted.CanBeCancelled())
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus("checked_in")
	require.NoError(t, err)
	assert.Equal(t, StatusCheckedIn, status)

	_, err = ParseStatus("CONFIRMED")
	assert.Error(t, err)
}
