package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/shipment-tracker/internal/domain"
)

func TestParseShipmentStatus(t *testing.T) {
	for _, raw := range []string{
		"created", "assigned", "picked_up", "in_transit",
		"out_for_delivery", "delivered", "cancelled",
	} {
		status, ok := domain.ParseShipmentStatus(raw)
		require.True(t, ok, raw)
		assert.Equal(t, raw, string(status))
	}

	_, ok := domain.ParseShipmentStatus("shipped")
	assert.False(t, ok)
	_, ok = domain.ParseShipmentStatus("")
	assert.False(t, ok)
}

func TestCanTransition_ForwardEdges(t *testing.T) {
	assert.True(t, domain.CanTransition(domain.StatusCreated, domain.StatusAssigned))
	assert.True(t, domain.CanTransition(domain.StatusAssigned, domain.StatusPickedUp))
	assert.True(t, domain.CanTransition(domain.StatusAssigned, domain.StatusInTransit))
	assert.True(t, domain.CanTransition(domain.StatusPickedUp, domain.StatusInTransit))
	assert.True(t, domain.CanTransition(domain.StatusInTransit, domain.StatusOutForDelivery))
	assert.True(t, domain.CanTransition(domain.StatusOutForDelivery, domain.StatusDelivered))
}

func TestCanTransition_RejectsSkips(t *testing.T) {
	assert.False(t, domain.CanTransition(domain.StatusCreated, domain.StatusDelivered))
	assert.False(t, domain.CanTransition(domain.StatusCreated, domain.StatusInTransit))
	assert.False(t, domain.CanTransition(domain.StatusAssigned, domain.StatusOutForDelivery))
	assert.False(t, domain.CanTransition(domain.StatusPickedUp, domain.StatusDelivered))
	assert.False(t, domain.CanTransition(domain.StatusInTransit, domain.StatusDelivered))
}

func TestCanTransition_NoBackwardEdges(t *testing.T) {
	assert.False(t, domain.CanTransition(domain.StatusDelivered, domain.StatusInTransit))
	assert.False(t, domain.CanTransition(domain.StatusInTransit, domain.StatusPickedUp))
	assert.False(t, domain.CanTransition(domain.StatusAssigned, domain.StatusCreated))
}

func TestCanTransition_CancelledFromAnyNonTerminal(t *testing.T) {
	for _, status := range []domain.ShipmentStatus{
		domain.StatusCreated, domain.StatusAssigned, domain.StatusPickedUp,
		domain.StatusInTransit, domain.StatusOutForDelivery,
	} {
		assert.True(t, domain.CanTransition(status, domain.StatusCancelled), string(status))
	}
}

func TestTerminalStatesHaveNoSuccessors(t *testing.T) {
	for _, terminal := range []domain.ShipmentStatus{domain.StatusDelivered, domain.StatusCancelled} {
		require.True(t, domain.IsTerminal(terminal))
		assert.Empty(t, domain.NextStatuses(terminal), string(terminal))
	}
	assert.False(t, domain.IsTerminal(domain.StatusOutForDelivery))
}

// Every path from created to delivered must pass through assigned: the only
// edge out of created besides cancellation is assignment.
func TestDeliveryRequiresAssignment(t *testing.T) {
	reachable := map[domain.ShipmentStatus]bool{domain.StatusCreated: true}
	frontier := []domain.ShipmentStatus{domain.StatusCreated}
	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]
		for _, next := range domain.NextStatuses(current) {
			if next == domain.StatusAssigned {
				continue // sever assignment and see what remains reachable
			}
			if !reachable[next] {
				reachable[next] = true
				frontier = append(frontier, next)
			}
		}
	}
	assert.False(t, reachable[domain.StatusDelivered])
	assert.False(t, reachable[domain.StatusInTransit])
	assert.True(t, reachable[domain.StatusCancelled])
}

func TestActiveStatuses(t *testing.T) {
	assert.False(t, domain.IsActive(domain.StatusCreated))
	assert.False(t, domain.IsActive(domain.StatusDelivered))
	assert.False(t, domain.IsActive(domain.StatusCancelled))

	for _, status := range []domain.ShipmentStatus{
		domain.StatusAssigned, domain.StatusPickedUp,
		domain.StatusInTransit, domain.StatusOutForDelivery,
	} {
		assert.True(t, domain.IsActive(status), string(status))
	}
}
