package server

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Saraahamrr/bulk-shipping-platform/pkg/backend"
	"github.com/Saraahamrr/bulk-shipping-platform/pkg/shipment"
)

// The upload format is positional: two header rows (category row, column
// row), then one data row per shipment with 23 columns.
const csvColumns = 23

const (
	colFromFirstName = iota
	colFromLastName
	colFromAddress
	colFromAddress2
	colFromCity
	colFromZip
	colFromState
	colToFirstName
	colToLastName
	colToAddress
	colToAddress2
	colToCity
	colToZip
	colToState
	colWeightLbs
	colWeightOz
	colLength
	colWidth
	colHeight
	colPhoneNum1
	colPhoneNum2
	colOrderNo
	colItemSKU
)

func safeInt(s string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return int(f)
}

func safeFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func cell(row []string, i, maxLen int) string {
	if i >= len(row) {
		return ""
	}
	s := strings.TrimSpace(row[i])
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}

// parseShipmentsCSV parses an upload. Rows without a recipient name are
// skipped silently; rows that fail to parse are reported per row (numbered
// as in the file, data starting at row 2) without aborting the rest. Every
// imported record starts on ground service with its price computed.
func parseShipmentsCSV(r io.Reader) ([]shipment.ShipmentRecord, []backend.RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var records []shipment.ShipmentRecord
	var rowErrors []backend.RowError

	rowIndex := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if rowIndex < 2 {
				return nil, nil, fmt.Errorf("reading CSV header: %w", err)
			}
			rowErrors = append(rowErrors, backend.RowError{Row: rowIndex, Error: err.Error()})
			rowIndex++
			continue
		}
		rowIndex++
		if rowIndex <= 2 {
			continue
		}

		dataIndex := rowIndex - 3
		if cell(row, colToFirstName, 50) == "" && cell(row, colToLastName, 50) == "" {
			continue
		}

		rec := shipment.ShipmentRecord{
			FromFirstName:   cell(row, colFromFirstName, 50),
			FromLastName:    cell(row, colFromLastName, 50),
			FromAddress:     cell(row, colFromAddress, 100),
			FromAddress2:    cell(row, colFromAddress2, 100),
			FromCity:        cell(row, colFromCity, 50),
			FromZip:         cell(row, colFromZip, 20),
			FromState:       cell(row, colFromState, 50),
			ToFirstName:     cell(row, colToFirstName, 50),
			ToLastName:      cell(row, colToLastName, 50),
			ToAddress:       cell(row, colToAddress, 100),
			ToAddress2:      cell(row, colToAddress2, 100),
			ToCity:          cell(row, colToCity, 50),
			ToZip:           cell(row, colToZip, 20),
			ToState:         cell(row, colToState, 50),
			WeightLbs:       safeInt(cell(row, colWeightLbs, 20)),
			WeightOz:        safeInt(cell(row, colWeightOz, 20)),
			Length:          safeFloat(cell(row, colLength, 20)),
			Width:           safeFloat(cell(row, colWidth, 20)),
			Height:          safeFloat(cell(row, colHeight, 20)),
			PhoneNum1:       cell(row, colPhoneNum1, 20),
			PhoneNum2:       cell(row, colPhoneNum2, 20),
			OrderNo:         cell(row, colOrderNo, 30),
			ItemSKU:         cell(row, colItemSKU, 30),
			ShippingService: shipment.ServiceGround,
			Status:          shipment.StatusPending,
		}
		if rec.OrderNo == "" {
			rec.OrderNo = fmt.Sprintf("ORDER-%d", dataIndex)
		}
		rec.RecalculatePrice()
		records = append(records, rec)
	}

	return records, rowErrors, nil
}

// templateCSV renders the downloadable upload template: category row,
// column-header row, and one sample data row.
func templateCSV() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	w.Write([]string{
		"From", "", "", "", "", "", "", "",
		"To", "", "", "", "", "", "", "",
		"weight*", "weight*",
		"Dimensions*", "Dimensions*", "Dimensions*",
		"", "", "", "",
	})
	w.Write([]string{
		"First name*", "Last name", "Address*", "Address2", "City*", "ZIP/Postal code*", "Abbreviation*",
		"First name*", "Last name", "Address*", "Address2", "City*", "ZIP/Postal code*", "Abbreviation*",
		"lbs", "oz", "Length", "width", "Height",
		"phone num1", "phone num2", "order no", "Item-sku",
	})
	w.Write([]string{
		"", "", "", "", "", "", "",
		"Salina", "Dixon", "61 Sunny Trail Rd", "Apt 10885", "Wallace", "28466-9087", "NC",
		"", "", "", "",
		"", "", "", "",
	})
	w.Flush()
	return buf.Bytes()
}
