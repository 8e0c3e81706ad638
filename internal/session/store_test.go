package session_test

import (
	"testing"

	"github.com/Saraahamrr/bulk-shipping-platform/internal/session"
	"github.com/Saraahamrr/bulk-shipping-platform/pkg/shipment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(ids ...int64) *session.Store {
	store := session.NewStore()
	records := make([]shipment.ShipmentRecord, len(ids))
	for i, id := range ids {
		records[i] = shipment.ShipmentRecord{
			ID:              id,
			ToFirstName:     "Salina",
			ShippingService: shipment.ServiceGround,
			ShippingPrice:   shipment.Price(float64(id)),
			Status:          shipment.StatusPending,
		}
	}
	store.SetRecords(records)
	return store
}

func TestAdvance_UploadRequiresRecords(t *testing.T) {
	store := session.NewStore()

	err := store.Advance()
	var gateErr *session.GateError
	require.ErrorAs(t, err, &gateErr)
	assert.Equal(t, session.StepUpload, store.Step())

	store.SetRecords([]shipment.ShipmentRecord{{ID: 1}})
	require.NoError(t, store.Advance())
	assert.Equal(t, session.StepReview, store.Step())
}

func TestAdvance_ReviewBlockedOnErrorStatus(t *testing.T) {
	store := seeded(1, 2, 3)
	require.NoError(t, store.Advance())

	ok := store.PatchRecordByID(2, shipment.StatusPatch(shipment.StatusError))
	require.True(t, ok)

	err := store.Advance()
	var gateErr *session.GateError
	require.ErrorAs(t, err, &gateErr)
	assert.Equal(t, session.StepReview, store.Step())

	// Fixing the record unblocks the same transition.
	store.PatchRecordByID(2, shipment.StatusPatch(shipment.StatusPending))
	require.NoError(t, store.Advance())
	assert.Equal(t, session.StepShipping, store.Step())
}

func TestAdvance_ReviewToShippingClearsSelection(t *testing.T) {
	store := seeded(1, 2)
	store.SetSelection([]int64{1})
	require.NoError(t, store.Advance())
	require.NoError(t, store.Advance())
	assert.Empty(t, store.Selection())
}

func TestAdvance_ShippingRequiresServiceInScope(t *testing.T) {
	store := seeded(1, 2)
	require.NoError(t, store.Advance())
	require.NoError(t, store.Advance())

	// Strip the service from one record; with no selection the scope is
	// every record, so the gate blocks.
	empty := ""
	store.PatchRecordByID(2, shipment.Patch{ShippingService: &empty})
	err := store.Advance()
	var gateErr *session.GateError
	require.ErrorAs(t, err, &gateErr)
	assert.Equal(t, session.StepShipping, store.Step())

	// Selecting only the serviced record narrows the scope and unblocks.
	store.SetSelection([]int64{1})
	require.NoError(t, store.Advance())
	assert.Equal(t, session.StepPurchase, store.Step())
}

func TestGoTo_BackNavigationUnconditional(t *testing.T) {
	store := seeded(1)
	require.NoError(t, store.Advance())

	require.NoError(t, store.GoTo(session.StepUpload))
	assert.Equal(t, session.StepUpload, store.Step())
	// Records survive a Review -> Upload hop.
	assert.Equal(t, 1, store.Len())
}

func TestGoTo_SkippingAheadRefused(t *testing.T) {
	store := seeded(1)
	err := store.GoTo(session.StepShipping)
	var gateErr *session.GateError
	require.ErrorAs(t, err, &gateErr)
	assert.Equal(t, session.StepUpload, store.Step())
}

func TestGoTo_PurchaseToUploadResets(t *testing.T) {
	store := seeded(1, 2)
	require.NoError(t, store.Advance())
	require.NoError(t, store.Advance())
	require.NoError(t, store.Advance())
	require.Equal(t, session.StepPurchase, store.Step())

	require.NoError(t, store.GoTo(session.StepUpload))
	assert.Equal(t, 0, store.Len())
	assert.Empty(t, store.Selection())
}

func TestSetSelection_PrunedToLoadedIDs(t *testing.T) {
	store := seeded(1, 2, 3)
	store.SetSelection([]int64{3, 99, 1, 3})
	assert.Equal(t, []int64{3, 1}, store.Selection())
}

func TestRemoveRecords_PrunesSelection(t *testing.T) {
	store := seeded(1, 2, 3)
	store.SetSelection([]int64{1, 2})

	store.RemoveRecords([]int64{2})
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, []int64{1}, store.Selection())
}

func TestSetRecords_PrunesSelection(t *testing.T) {
	store := seeded(1, 2, 3)
	store.SetSelection([]int64{2, 3})

	store.SetRecords([]shipment.ShipmentRecord{{ID: 3}})
	assert.Equal(t, []int64{3}, store.Selection())
}

func TestTotals(t *testing.T) {
	store := seeded(1, 2, 3)
	assert.Equal(t, shipment.Price(6), store.Total())

	store.SetSelection([]int64{1, 3})
	assert.Equal(t, shipment.Price(4), store.SelectedTotal())
}

func TestMergeRecords_OnlyMatchedIDs(t *testing.T) {
	store := seeded(1, 2, 3)

	n := store.MergeRecords([]shipment.ShipmentRecord{
		{ID: 2, ShippingService: shipment.ServicePriority, ShippingPrice: 9},
		{ID: 42, ShippingService: shipment.ServicePriority},
	})
	assert.Equal(t, 1, n)

	r, ok := store.Record(2)
	require.True(t, ok)
	assert.Equal(t, shipment.ServicePriority, r.ShippingService)

	r, ok = store.Record(1)
	require.True(t, ok)
	assert.Equal(t, shipment.ServiceGround, r.ShippingService)
}

func TestPatchRecordByID_AbsentIsNoop(t *testing.T) {
	store := seeded(1)
	assert.False(t, store.PatchRecordByID(99, shipment.StatusPatch(shipment.StatusError)))
}

func TestReset_KeepsProfileAndTemplates(t *testing.T) {
	store := seeded(1)
	store.SetProfile(&shipment.Profile{Username: "salina", AccountBalance: 1000})
	store.SetAddresses([]shipment.SavedAddress{{Name: "warehouse"}})
	require.NoError(t, store.Advance())

	store.Reset()
	assert.Equal(t, session.StepUpload, store.Step())
	assert.Equal(t, 0, store.Len())
	require.NotNil(t, store.Profile())
	assert.Len(t, store.Addresses(), 1)
}
