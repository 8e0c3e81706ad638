package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Saraahamrr/bulk-shipping-platform/internal/server"
	"github.com/Saraahamrr/bulk-shipping-platform/internal/telemetry"
	"github.com/Saraahamrr/bulk-shipping-platform/pkg/backend"
	"github.com/Saraahamrr/bulk-shipping-platform/pkg/shipment"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

// memCreds is a minimal CredentialStore for driving the real HTTP client
// against the simulation server.
type memCreds struct {
	access  string
	refresh string
}

func (c *memCreds) AccessToken() (string, error)  { return c.access, nil }
func (c *memCreds) RefreshToken() (string, error) { return c.refresh, nil }
func (c *memCreds) SessionID() (string, error)    { return "test-session", nil }
func (c *memCreds) SetAccessToken(t string) error { c.access = t; return nil }
func (c *memCreds) SetTokens(a, r string) error   { c.access, c.refresh = a, r; return nil }
func (c *memCreds) Clear() error                  { c.access, c.refresh = "", ""; return nil }

// newEnv starts a simulation server on httptest and returns a logged-in API
// client talking to it.
func newEnv(t *testing.T) *backend.HTTPAPIClient {
	client, _ := newEnvWithCreds(t)
	return client
}

func newEnvWithCreds(t *testing.T) (*backend.HTTPAPIClient, *memCreds) {
	t.Helper()

	store, err := server.OpenStore(filepath.Join(t.TempDir(), "sim.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	srv := server.New(server.Config{}, store, telemetry.NopLogger(), telemetry.NewTestMetrics())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(http.DefaultClient.CloseIdleConnections)

	creds := &memCreds{}
	client := backend.NewHTTPAPIClient(backend.HTTPAPIClientConfig{BaseURL: ts.URL + "/api"}, creds)
	ctx := context.Background()

	_, err = client.Register(ctx, backend.RegisterRequest{
		Username: "salina",
		Email:    "salina@example.com",
		Password: "secret",
	})
	require.NoError(t, err)

	_, err = client.Login(ctx, "salina", "secret")
	require.NoError(t, err)
	return client, creds
}

const uploadCSV = `From,,,,,,,,To,,,,,,,,weight*,weight*,Dimensions*,Dimensions*,Dimensions*,,,,
First name*,Last name,Address*,Address2,City*,ZIP/Postal code*,Abbreviation*,First name*,Last name,Address*,Address2,City*,ZIP/Postal code*,Abbreviation*,lbs,oz,Length,width,Height,phone num1,phone num2,order no,Item-sku
Pat,Reyes,10 Dock St,,Newark,07102,NJ,Salina,Dixon,61 Sunny Trail Rd,Apt 10885,Wallace,28466-9087,NC,1,2,10,6,4,5551234,,ORD-1,SKU-1
Pat,Reyes,10 Dock St,,Newark,07102,NJ,Marcus,Webb,9 Pine Ave,,Raleigh,27601,NC,0,8,6,4,2,,,,
Pat,Reyes,10 Dock St,,Newark,07102,NJ,,,,,,,,,,,,,,,,
`

func uploadBatch(t *testing.T, client *backend.HTTPAPIClient) []shipment.ShipmentRecord {
	t.Helper()
	resp, err := client.Upload(context.Background(), "batch.csv", strings.NewReader(uploadCSV))
	require.NoError(t, err)
	return resp.Records
}

func TestUpload_ImportsRowsAndSkipsEmptyRecipients(t *testing.T) {
	client := newEnv(t)

	resp, err := client.Upload(context.Background(), "batch.csv", strings.NewReader(uploadCSV))
	require.NoError(t, err)
	assert.Equal(t, "Successfully imported 2 records", resp.Message)
	assert.Empty(t, resp.Errors)
	require.Len(t, resp.Records, 2)

	// Newest first; the second data row has no order number and defaults.
	var orderNos []string
	for _, r := range resp.Records {
		orderNos = append(orderNos, r.OrderNo)
	}
	assert.ElementsMatch(t, []string{"ORD-1", "ORDER-1"}, orderNos)

	for _, r := range resp.Records {
		assert.Equal(t, shipment.ServiceGround, r.ShippingService)
		assert.Equal(t, shipment.StatusPending, r.Status)
		assert.Greater(t, r.ShippingPrice.Float(), 0.0)
		assert.NotEmpty(t, r.ToAddressFormatted)
	}
}

func TestUpload_PriceMatchesSchedule(t *testing.T) {
	client := newEnv(t)
	records := uploadBatch(t, client)

	for _, r := range records {
		want := shipment.PriceFor(shipment.ServiceGround, r.TotalOunces())
		assert.InDelta(t, want.Float(), r.ShippingPrice.Float(), 1e-9)
	}
}

func TestUpdateShipment_ServiceChangeRecomputesPrice(t *testing.T) {
	client := newEnv(t)
	records := uploadBatch(t, client)
	target := records[0]

	service := shipment.ServicePriority
	updated, err := client.UpdateShipment(context.Background(), target.ID, shipment.Patch{ShippingService: &service})
	require.NoError(t, err)

	want := shipment.PriceFor(shipment.ServicePriority, target.TotalOunces())
	assert.InDelta(t, want.Float(), updated.ShippingPrice.Float(), 1e-9)
}

func TestBulkUpdate_ReturnsCanonicalRecords(t *testing.T) {
	client := newEnv(t)
	records := uploadBatch(t, client)
	ids := []int64{records[0].ID, records[1].ID}

	service := shipment.ServicePriority
	updated, err := client.BulkUpdateShipments(context.Background(), ids, shipment.Patch{ShippingService: &service})
	require.NoError(t, err)
	require.Len(t, updated, 2)

	listed, err := client.ListShipments(context.Background())
	require.NoError(t, err)
	if diff := cmp.Diff(sortedByID(updated), sortedByID(listed)); diff != "" {
		t.Errorf("bulk response and list disagree (-updated +listed):\n%s", diff)
	}
}

func TestBulkUpdate_InvalidIDsRejected(t *testing.T) {
	client := newEnv(t)
	records := uploadBatch(t, client)

	service := shipment.ServicePriority
	_, err := client.BulkUpdateShipments(context.Background(),
		[]int64{records[0].ID, 9999}, shipment.Patch{ShippingService: &service})
	require.Error(t, err)

	var apiErr *shipment.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "9999")

	// The valid record was not partially updated.
	r, err := client.GetShipment(context.Background(), records[0].ID)
	require.NoError(t, err)
	assert.Equal(t, shipment.ServiceGround, r.ShippingService)
}

func TestBulkUpdate_EmptyPatchRejected(t *testing.T) {
	client := newEnv(t)
	records := uploadBatch(t, client)

	_, err := client.BulkUpdateShipments(context.Background(), []int64{records[0].ID}, shipment.Patch{})
	var apiErr *shipment.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestDeleteFlows(t *testing.T) {
	client := newEnv(t)
	records := uploadBatch(t, client)
	ctx := context.Background()

	require.NoError(t, client.DeleteShipment(ctx, records[0].ID))

	listed, err := client.ListShipments(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	msg, err := client.DeleteAllShipments(ctx)
	require.NoError(t, err)
	assert.Contains(t, msg.Message, "1 records")

	listed, err = client.ListShipments(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestPurchase_DebitsBalanceAndMarksProcessed(t *testing.T) {
	client := newEnv(t)
	records := uploadBatch(t, client)
	ctx := context.Background()

	ids := make([]int64, len(records))
	var total shipment.Price
	for i, r := range records {
		ids[i] = r.ID
		total += r.ShippingPrice
	}

	resp, err := client.Purchase(ctx, ids, shipment.Format4x6)
	require.NoError(t, err)
	assert.Equal(t, "Successfully purchased 2 labels", resp.Message)
	assert.Equal(t, 2, resp.RecordsProcessed)
	assert.Equal(t, shipment.Format4x6, resp.LabelFormat)
	assert.InDelta(t, total.Float(), resp.Total.Float(), 1e-9)
	assert.InDelta(t, 1000-total.Float(), resp.NewBalance.Float(), 1e-9)

	listed, err := client.ListShipments(ctx)
	require.NoError(t, err)
	for _, r := range listed {
		assert.Equal(t, shipment.StatusProcessed, r.Status)
	}

	profile, err := client.Profile(ctx)
	require.NoError(t, err)
	assert.InDelta(t, resp.NewBalance.Float(), profile.AccountBalance.Float(), 1e-9)
}

func TestPurchase_InsufficientBalance(t *testing.T) {
	client := newEnv(t)
	records := uploadBatch(t, client)
	ctx := context.Background()

	// Burn the balance down with a manual price update, then try to buy.
	price := shipment.Price(5000)
	_, err := client.UpdateShipment(ctx, records[0].ID, shipment.Patch{ShippingPrice: &price})
	require.NoError(t, err)

	_, err = client.Purchase(ctx, []int64{records[0].ID}, shipment.FormatLetter)
	var apiErr *shipment.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Insufficient balance", apiErr.Message)

	// Balance untouched, record still pending.
	profile, err := client.Profile(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1000, profile.AccountBalance.Float(), 1e-9)
}

func TestAddressesAndPackages_CRUD(t *testing.T) {
	client := newEnv(t)
	ctx := context.Background()

	addr, err := client.CreateAddress(ctx, shipment.SavedAddress{
		Name:         "warehouse",
		FirstName:    "Pat",
		AddressLine1: "10 Dock St",
		City:         "Newark",
		State:        "NJ",
		ZipCode:      "07102",
	})
	require.NoError(t, err)
	require.NotZero(t, addr.ID)

	addr.City = "Jersey City"
	updated, err := client.UpdateAddress(ctx, addr.ID, *addr)
	require.NoError(t, err)
	assert.Equal(t, "Jersey City", updated.City)

	pkg, err := client.CreatePackage(ctx, shipment.SavedPackage{
		Name: "small box", Length: 10, Width: 6, Height: 4, WeightOz: 8,
	})
	require.NoError(t, err)
	require.NotZero(t, pkg.ID)

	addrs, err := client.ListAddresses(ctx)
	require.NoError(t, err)
	assert.Len(t, addrs, 1)

	require.NoError(t, client.DeleteAddress(ctx, addr.ID))
	require.NoError(t, client.DeletePackage(ctx, pkg.ID))

	addrs, err = client.ListAddresses(ctx)
	require.NoError(t, err)
	assert.Empty(t, addrs)
}

func TestTemplate_ThreeRows(t *testing.T) {
	client := newEnv(t)

	data, err := client.Template(context.Background())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[1], "First name*")
}

func TestAuth_RejectsMissingAndBadTokens(t *testing.T) {
	store, err := server.OpenStore(filepath.Join(t.TempDir(), "sim.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	srv := server.New(server.Config{}, store, telemetry.NopLogger(), telemetry.NewTestMetrics())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(http.DefaultClient.CloseIdleConnections)

	resp, err := http.Get(ts.URL + "/api/shipments/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/shipments/", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefresh_RecoversFromStaleAccessToken(t *testing.T) {
	client, creds := newEnvWithCreds(t)
	ctx := context.Background()

	// Break the access token; the client's single refresh-and-retry must
	// recover using the still-valid refresh token.
	creds.access = "stale"
	records, err := client.ListShipments(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotEqual(t, "stale", creds.access)
}

func sortedByID(in []shipment.ShipmentRecord) []shipment.ShipmentRecord {
	out := make([]shipment.ShipmentRecord, len(in))
	copy(out, in)
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].ID < out[i].ID {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}
