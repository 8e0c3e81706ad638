package workflow_test

import (
	"context"
	"strings"
	"testing"

	"github.com/Saraahamrr/bulk-shipping-platform/internal/session"
	"github.com/Saraahamrr/bulk-shipping-platform/internal/telemetry"
	"github.com/Saraahamrr/bulk-shipping-platform/internal/workflow"
	"github.com/Saraahamrr/bulk-shipping-platform/pkg/backend"
	"github.com/Saraahamrr/bulk-shipping-platform/pkg/shipment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memFlags is an in-memory FlagStore.
type memFlags struct {
	purchased bool
}

func (f *memFlags) SetPurchaseCompleted(done bool) error { f.purchased = done; return nil }
func (f *memFlags) PurchaseCompleted() (bool, error)     { return f.purchased, nil }

func newCoordinator(t *testing.T) (*workflow.Coordinator, *backend.MockAPIClient, *memFlags) {
	t.Helper()
	mock := backend.NewMockAPIClient()
	client := backend.NewWithAPIClient(mock, telemetry.NopLogger())
	flags := &memFlags{}
	coord := workflow.New(client, session.NewStore(), flags, telemetry.NopLogger(), telemetry.NewTestMetrics())
	return coord, mock, flags
}

func seedRecords(mock *backend.MockAPIClient, n int) {
	records := make([]shipment.ShipmentRecord, n)
	for i := range records {
		records[i] = shipment.ShipmentRecord{
			ToFirstName:     "Salina",
			ToLastName:      "Dixon",
			ToAddress:       "61 Sunny Trail Rd",
			ToCity:          "Wallace",
			ToState:         "NC",
			ToZip:           "28466",
			WeightLbs:       1,
			Length:          10,
			Width:           6,
			Height:          4,
			OrderNo:         "ORDER-" + string(rune('0'+i)),
			ShippingService: shipment.ServiceGround,
			Status:          shipment.StatusPending,
		}
		records[i].RecalculatePrice()
	}
	mock.SeedRecords(records)
}

func TestLoadAll_SeedsStoreAndAdvances(t *testing.T) {
	coord, mock, _ := newCoordinator(t)
	seedRecords(mock, 2)

	require.NoError(t, coord.LoadAll(context.Background()))

	store := coord.Store()
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, session.StepReview, store.Step())
	require.NotNil(t, store.Profile())
	assert.Equal(t, shipment.Price(1000), store.Profile().AccountBalance)
}

func TestLoadAll_EmptyStaysAtUpload(t *testing.T) {
	coord, _, _ := newCoordinator(t)
	require.NoError(t, coord.LoadAll(context.Background()))
	assert.Equal(t, session.StepUpload, coord.Store().Step())
}

func TestUpload_ReplacesRecordsAndResetsFlag(t *testing.T) {
	coord, mock, flags := newCoordinator(t)
	flags.purchased = true
	seedRecords(mock, 3)

	resp, err := coord.Upload(context.Background(), "batch.csv", strings.NewReader("csv"))
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "3 records")
	assert.Equal(t, 3, coord.Store().Len())
	assert.Equal(t, session.StepReview, coord.Store().Step())
	assert.False(t, flags.purchased)
}

func TestUpdateRecord_StoresCanonicalVersion(t *testing.T) {
	coord, mock, _ := newCoordinator(t)
	seedRecords(mock, 1)
	require.NoError(t, coord.LoadAll(context.Background()))
	id := coord.Store().Records()[0].ID

	updated, err := coord.AssignService(context.Background(), id, shipment.ServicePriority)
	require.NoError(t, err)

	// The mock recomputes the price server-side; the store must hold that
	// canonical record, not the raw patch.
	assert.Equal(t, shipment.ServicePriority, updated.ShippingService)
	assert.InDelta(t, 5.00+0.10*16, updated.ShippingPrice.Float(), 1e-9)

	local, ok := coord.Store().Record(id)
	require.True(t, ok)
	assert.Equal(t, updated.ShippingPrice, local.ShippingPrice)
}

func TestUpdateRecord_RemoteFailureLeavesStoreUntouched(t *testing.T) {
	coord, mock, _ := newCoordinator(t)
	seedRecords(mock, 1)
	require.NoError(t, coord.LoadAll(context.Background()))
	id := coord.Store().Records()[0].ID
	before, _ := coord.Store().Record(id)

	mock.SimulateErrors = true
	_, err := coord.AssignService(context.Background(), id, shipment.ServicePriority)
	require.Error(t, err)

	after, _ := coord.Store().Record(id)
	assert.Equal(t, before, after)
}

func TestBulkUpdate_MergesOnlyAcknowledgedRecords(t *testing.T) {
	coord, mock, _ := newCoordinator(t)
	seedRecords(mock, 3)
	require.NoError(t, coord.LoadAll(context.Background()))
	records := coord.Store().Records()

	updated, err := coord.BulkAssignService(context.Background(),
		[]int64{records[0].ID, records[1].ID}, shipment.ServicePriority)
	require.NoError(t, err)
	assert.Len(t, updated, 2)

	untouched, ok := coord.Store().Record(records[2].ID)
	require.True(t, ok)
	assert.Equal(t, shipment.ServiceGround, untouched.ShippingService)
}

func TestDeleteRecord_RemovesFromStoreAndSelection(t *testing.T) {
	coord, mock, _ := newCoordinator(t)
	seedRecords(mock, 2)
	require.NoError(t, coord.LoadAll(context.Background()))
	records := coord.Store().Records()
	coord.Store().SetSelection([]int64{records[0].ID})

	require.NoError(t, coord.DeleteRecord(context.Background(), records[0].ID))
	assert.Equal(t, 1, coord.Store().Len())
	assert.Empty(t, coord.Store().Selection())
}

func TestPurchase_EndToEnd(t *testing.T) {
	coord, mock, flags := newCoordinator(t)
	seedRecords(mock, 3)
	require.NoError(t, coord.LoadAll(context.Background()))

	resp, err := coord.Purchase(context.Background(), shipment.FormatLetter, true)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.RecordsProcessed)
	assert.Contains(t, resp.Message, "Successfully purchased 3 labels")

	for _, r := range coord.Store().Records() {
		assert.Equal(t, shipment.StatusProcessed, r.Status)
	}
	profile := coord.Store().Profile()
	require.NotNil(t, profile)
	assert.Equal(t, resp.NewBalance, profile.AccountBalance)
	assert.True(t, flags.purchased)
}

func TestPurchase_SelectionScopesThePurchase(t *testing.T) {
	coord, mock, _ := newCoordinator(t)
	seedRecords(mock, 3)
	require.NoError(t, coord.LoadAll(context.Background()))
	records := coord.Store().Records()
	coord.Store().SetSelection([]int64{records[0].ID})

	resp, err := coord.Purchase(context.Background(), shipment.FormatLetter, true)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.RecordsProcessed)

	unselected, _ := coord.Store().Record(records[1].ID)
	assert.Equal(t, shipment.StatusPending, unselected.Status)
}

func TestPurchase_RequiresTerms(t *testing.T) {
	coord, mock, _ := newCoordinator(t)
	seedRecords(mock, 1)
	require.NoError(t, coord.LoadAll(context.Background()))

	_, err := coord.Purchase(context.Background(), shipment.FormatLetter, false)
	assert.ErrorIs(t, err, shipment.ErrTermsNotAccepted)
}

func TestPurchase_NoRecords(t *testing.T) {
	coord, _, _ := newCoordinator(t)
	_, err := coord.Purchase(context.Background(), shipment.FormatLetter, true)
	assert.ErrorIs(t, err, shipment.ErrNoRecords)
}

func TestPurchase_InsufficientBalance(t *testing.T) {
	coord, mock, _ := newCoordinator(t)
	seedRecords(mock, 1)
	mock.SetBalance(1)
	require.NoError(t, coord.LoadAll(context.Background()))

	_, err := coord.Purchase(context.Background(), shipment.FormatLetter, true)
	assert.ErrorIs(t, err, shipment.ErrInsufficientBalance)

	// Nothing was marked processed.
	for _, r := range coord.Store().Records() {
		assert.Equal(t, shipment.StatusPending, r.Status)
	}
}

func TestLogout_ResetsEvenWhenRemoteFails(t *testing.T) {
	coord, mock, _ := newCoordinator(t)
	seedRecords(mock, 1)
	require.NoError(t, coord.LoadAll(context.Background()))

	mock.SimulateErrors = true
	err := coord.Logout(context.Background())
	assert.Error(t, err)
	assert.Nil(t, coord.Store().Profile())
	assert.Equal(t, 0, coord.Store().Len())
	assert.Equal(t, session.StepUpload, coord.Store().Step())
}
