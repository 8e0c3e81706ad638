package shipment_test

import (
	"encoding/json"
	"testing"

	"github.com/Saraahamrr/bulk-shipping-platform/pkg/shipment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrice_Unmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want shipment.Price
	}{
		{"number", `12.5`, 12.5},
		{"quoted decimal", `"12.50"`, 12.5},
		{"null", `null`, 0},
		{"empty string", `""`, 0},
		{"garbage", `"N/A"`, 0},
		{"integer", `7`, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p shipment.Price
			require.NoError(t, json.Unmarshal([]byte(tt.in), &p))
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestPrice_MixedWireValuesSum(t *testing.T) {
	payload := `[
		{"id": 1, "shipping_price": "12.50"},
		{"id": 2, "shipping_price": null},
		{"id": 3, "shipping_price": 7}
	]`
	var records []shipment.ShipmentRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &records))
	assert.Equal(t, shipment.Price(19.5), shipment.TotalPrice(records))
}

func TestPrice_MarshalAsNumber(t *testing.T) {
	data, err := json.Marshal(shipment.Price(7.5))
	require.NoError(t, err)
	assert.Equal(t, "7.50", string(data))
}

func TestPriceFor(t *testing.T) {
	// 2 lb 3 oz = 35 oz total.
	assert.Equal(t, shipment.Price(2.50+0.05*35), shipment.PriceFor(shipment.ServiceGround, 35))
	assert.Equal(t, shipment.Price(5.00+0.10*35), shipment.PriceFor(shipment.ServicePriority, 35))
}

func TestRecalculatePrice(t *testing.T) {
	r := shipment.ShipmentRecord{
		WeightLbs:       1,
		WeightOz:        4,
		ShippingService: shipment.ServicePriority,
	}
	r.RecalculatePrice()
	assert.Equal(t, 20, r.TotalOunces())
	assert.InDelta(t, 7.00, r.ShippingPrice.Float(), 1e-9)
}

func TestPatch_Apply(t *testing.T) {
	r := shipment.ShipmentRecord{
		ID:              1,
		ToFirstName:     "Salina",
		ShippingService: shipment.ServiceGround,
		ShippingPrice:   3,
	}
	service := shipment.ServicePriority
	patch := shipment.Patch{ShippingService: &service}
	patch.Apply(&r)

	assert.Equal(t, shipment.ServicePriority, r.ShippingService)
	// Untouched fields stay as they were.
	assert.Equal(t, "Salina", r.ToFirstName)
	assert.Equal(t, shipment.Price(3), r.ShippingPrice)
}

func TestPatch_ApplyIdempotent(t *testing.T) {
	r := shipment.ShipmentRecord{ID: 1, WeightLbs: 2}
	lbs := 5
	patch := shipment.Patch{WeightLbs: &lbs}

	patch.Apply(&r)
	once := r
	patch.Apply(&r)
	assert.Equal(t, once, r)
}

func TestPatch_IsEmpty(t *testing.T) {
	var p shipment.Patch
	assert.True(t, p.IsEmpty())

	service := shipment.ServiceGround
	p.ShippingService = &service
	assert.False(t, p.IsEmpty())
}

func TestAddressPatch_OnlyFromFields(t *testing.T) {
	addr := shipment.SavedAddress{
		Name:         "warehouse",
		FirstName:    "Pat",
		LastName:     "Reyes",
		AddressLine1: "10 Dock St",
		City:         "Newark",
		State:        "NJ",
		ZipCode:      "07102",
	}
	r := shipment.ShipmentRecord{ToFirstName: "Salina", ToCity: "Wallace"}
	patch := shipment.AddressPatch(addr)
	patch.Apply(&r)

	assert.Equal(t, "Pat", r.FromFirstName)
	assert.Equal(t, "Newark", r.FromCity)
	assert.Equal(t, "Salina", r.ToFirstName)
	assert.Equal(t, "Wallace", r.ToCity)
}

func TestFormatFromAddress_NotProvided(t *testing.T) {
	r := shipment.ShipmentRecord{}
	assert.Equal(t, "Not provided", r.FormatFromAddress())
}

func TestFormatPackageDetails(t *testing.T) {
	r := shipment.ShipmentRecord{Length: 10, Width: 6, Height: 4, WeightLbs: 1, WeightOz: 2}
	assert.Equal(t, "10x6x4 inches, 1 lb 2 oz", r.FormatPackageDetails())

	r.WeightLbs = 0
	assert.Equal(t, "10x6x4 inches, 2 oz", r.FormatPackageDetails())
}

func TestParseLabelFormat(t *testing.T) {
	for _, valid := range []string{"letter", "A4", "4x6"} {
		_, err := shipment.ParseLabelFormat(valid)
		assert.NoError(t, err, valid)
	}
	_, err := shipment.ParseLabelFormat("legal")
	assert.Error(t, err)
}

func TestSavedAddress_Validate(t *testing.T) {
	addr := shipment.SavedAddress{
		Name:         "warehouse",
		FirstName:    "Pat",
		AddressLine1: "10 Dock St",
		City:         "Newark",
		State:        "NJ",
		ZipCode:      "07102",
	}
	assert.NoError(t, addr.Validate())

	addr.State = "New Jersey"
	assert.Error(t, addr.Validate())
}

func TestSavedPackage_Validate(t *testing.T) {
	pkg := shipment.SavedPackage{Name: "small box", Length: 10, Width: 6, Height: 4, WeightOz: 8}
	assert.NoError(t, pkg.Validate())

	pkg.Length = -1
	assert.Error(t, pkg.Validate())
}
