package label_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Saraahamrr/bulk-shipping-platform/internal/label"
	"github.com/Saraahamrr/bulk-shipping-platform/pkg/shipment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord(id int64) shipment.ShipmentRecord {
	r := shipment.ShipmentRecord{
		ID:              id,
		ToFirstName:     "Salina",
		ToLastName:      "Dixon",
		ToAddress:       "61 Sunny Trail Rd",
		ToAddress2:      "Apt 10885",
		ToCity:          "Wallace",
		ToState:         "NC",
		ToZip:           "28466-9087",
		WeightLbs:       1,
		WeightOz:        2,
		Length:          10,
		Width:           6,
		Height:          4,
		OrderNo:         "ORDER-1",
		ItemSKU:         "SKU-9",
		ShippingService: shipment.ServiceGround,
		ShippingPrice:   3.4,
	}
	r.Refresh()
	return r
}

func TestRender_ProducesPDF(t *testing.T) {
	for _, format := range []shipment.LabelFormat{shipment.FormatLetter, shipment.FormatA4, shipment.Format4x6} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			renderer := label.NewRenderer(format)
			err := renderer.Render([]shipment.ShipmentRecord{validRecord(1)}, &buf)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
		})
	}
}

func TestRender_OnePagePerRecord(t *testing.T) {
	renderer := label.NewRenderer(shipment.FormatLetter)

	var one, three bytes.Buffer
	require.NoError(t, renderer.Render([]shipment.ShipmentRecord{validRecord(1)}, &one))
	require.NoError(t, renderer.Render([]shipment.ShipmentRecord{
		validRecord(1), validRecord(2), validRecord(3),
	}, &three))

	assert.Greater(t, three.Len(), one.Len())
}

func TestRender_NoRecords(t *testing.T) {
	renderer := label.NewRenderer(shipment.FormatLetter)
	err := renderer.Render(nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, shipment.ErrNoRecords)
}

func TestRender_InvalidRecordAbortsWithoutOutput(t *testing.T) {
	bad := validRecord(2)
	bad.ToFirstName = ""

	var buf bytes.Buffer
	renderer := label.NewRenderer(shipment.FormatLetter)
	err := renderer.Render([]shipment.ShipmentRecord{validRecord(1), bad}, &buf)
	require.Error(t, err)
	assert.Zero(t, buf.Len(), "a failed render must not emit partial output")
}

func TestRenderFile_RemovesFileOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labels.pdf")

	bad := validRecord(1)
	bad.Length = 0

	renderer := label.NewRenderer(shipment.Format4x6)
	err := renderer.RenderFile([]shipment.ShipmentRecord{bad}, path)
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRenderFile_WritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labels.pdf")

	renderer := label.NewRenderer(shipment.Format4x6)
	require.NoError(t, renderer.RenderFile([]shipment.ShipmentRecord{validRecord(1)}, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
