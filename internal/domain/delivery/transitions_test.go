package delivery

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"pending to assigned", StatusPending, StatusAssigned, true},
		{"assigned to picked up", StatusAssigned, StatusPickedUp, true},
		{"picked up to in transit", StatusPickedUp, StatusInTransit, true},
		{"in transit to delivered", StatusInTransit, StatusDelivered, true},
		{"skip ahead", StatusPending, StatusDelivered, true},
		{"reassign rider", StatusAssigned, StatusAssigned, true},
		{"cancel pending", StatusPending, StatusCancelled, true},
		{"cancel in transit", StatusInTransit, StatusCancelled, true},
		{"backwards", StatusInTransit, StatusAssigned, false},
		{"delivered to pending", StatusDelivered, StatusPending, false},
		{"delivered again", StatusDelivered, StatusDelivered, false},
		{"cancelled to pending", StatusCancelled, StatusPending, false},
		{"cancel delivered", StatusDelivered, StatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanTransition(tt.from, tt.to)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCanTransition_ErrorDetails(t *testing.T) {
	err := CanTransition(StatusDelivered, StatusPending)

	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, StatusDelivered, te.From)
	assert.Equal(t, StatusPending, te.To)
	assert.Empty(t, te.Allowed)
	assert.Contains(t, err.Error(), "none (terminal state)")

	err = CanTransition(StatusPickedUp, StatusPending)
	require.True(t, errors.As(err, &te))
	assert.Equal(t, []Status{StatusPickedUp, StatusInTransit, StatusDelivered, StatusCancelled}, te.Allowed)
}

func TestValidTransitionsFrom(t *testing.T) {
	assert.Equal(t,
		[]Status{StatusPending, StatusAssigned, StatusPickedUp, StatusInTransit, StatusDelivered, StatusCancelled},
		ValidTransitionsFrom(StatusPending))
	assert.Empty(t, ValidTransitionsFrom(StatusCancelled))
}

func TestStatus_IsValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusAssigned, StatusPickedUp, StatusInTransit, StatusDelivered, StatusCancelled} {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, Status("banana").IsValid())
	assert.False(t, Status("").IsValid())

	assert.True(t, PaymentMobileMoney.IsValid())
	assert.False(t, PaymentMethod("cheque").IsValid())
}
