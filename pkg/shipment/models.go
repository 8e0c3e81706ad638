// Package shipment defines the domain model for the bulk shipping workflow:
// shipment records, saved templates, user profiles, and the price schedule.
package shipment

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Status represents the lifecycle status of a shipment record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusError     Status = "error"
)

// Shipping services offered by the platform.
const (
	ServiceGround   = "ground"
	ServicePriority = "priority"
)

// LabelFormat represents the physical page format of a rendered label.
type LabelFormat string

const (
	FormatLetter LabelFormat = "letter"
	FormatA4     LabelFormat = "a4"
	Format4x6    LabelFormat = "4x6"
)

// ParseLabelFormat validates a label format string.
func ParseLabelFormat(s string) (LabelFormat, error) {
	switch LabelFormat(strings.ToLower(s)) {
	case FormatLetter:
		return FormatLetter, nil
	case FormatA4:
		return FormatA4, nil
	case Format4x6:
		return Format4x6, nil
	default:
		return "", fmt.Errorf("unknown label format %q (want letter, a4 or 4x6)", s)
	}
}

// Price is a monetary amount in dollars. The backend serializes decimal
// fields as JSON strings, so Price accepts numbers, numeric strings, and
// null; anything non-numeric decodes to zero.
type Price float64

// UnmarshalJSON implements json.Unmarshaler.
func (p *Price) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	if s == "" || s == "null" {
		*p = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*p = 0
		return nil
	}
	*p = Price(f)
	return nil
}

// MarshalJSON implements json.Marshaler. Prices round-trip as plain numbers.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(p), 'f', 2, 64)), nil
}

// Float returns the amount as a float64.
func (p Price) Float() float64 { return float64(p) }

// String formats the price for display.
func (p Price) String() string { return fmt.Sprintf("$%.2f", float64(p)) }

// ShipmentRecord is one shipment's full address, package, shipping, and
// status data. Field names mirror the backend's wire format.
type ShipmentRecord struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id,omitempty"`

	// Ship from
	FromFirstName string `json:"from_first_name"`
	FromLastName  string `json:"from_last_name"`
	FromAddress   string `json:"from_address"`
	FromAddress2  string `json:"from_address2"`
	FromCity      string `json:"from_city"`
	FromZip       string `json:"from_zip"`
	FromState     string `json:"from_state"`

	// Ship to
	ToFirstName string `json:"to_first_name"`
	ToLastName  string `json:"to_last_name"`
	ToAddress   string `json:"to_address"`
	ToAddress2  string `json:"to_address2"`
	ToCity      string `json:"to_city"`
	ToZip       string `json:"to_zip"`
	ToState     string `json:"to_state"`

	// Package
	WeightLbs int     `json:"weight_lbs"`
	WeightOz  int     `json:"weight_oz"`
	Length    float64 `json:"length"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`

	// Contact
	PhoneNum1 string `json:"phone_num1"`
	PhoneNum2 string `json:"phone_num2"`

	// Reference
	OrderNo string `json:"order_no"`
	ItemSKU string `json:"item_sku"`

	// Shipping assignment. Service and price stay empty/zero until
	// explicitly assigned.
	ShippingService string `json:"shipping_service"`
	ShippingPrice   Price  `json:"shipping_price"`

	Status Status `json:"status"`

	// Display strings computed by the backend.
	FromAddressFormatted string `json:"from_address_formatted"`
	ToAddressFormatted   string `json:"to_address_formatted"`
	PackageDetails       string `json:"package_details"`
}

// TotalOunces returns the record's total weight in ounces.
func (r *ShipmentRecord) TotalOunces() int {
	return r.WeightLbs*16 + r.WeightOz
}

// FormatFromAddress builds the one-line ship-from display string.
func (r *ShipmentRecord) FormatFromAddress() string {
	if r.FromFirstName == "" {
		return "Not provided"
	}
	parts := []string{
		strings.TrimSpace(r.FromFirstName + " " + r.FromLastName),
		r.FromAddress,
	}
	if r.FromAddress2 != "" {
		parts = append(parts, r.FromAddress2)
	}
	parts = append(parts, fmt.Sprintf("%s, %s %s", r.FromCity, r.FromState, r.FromZip))
	return strings.Join(parts, ", ")
}

// FormatToAddress builds the one-line ship-to display string.
func (r *ShipmentRecord) FormatToAddress() string {
	parts := []string{
		strings.TrimSpace(r.ToFirstName + " " + r.ToLastName),
		r.ToAddress,
	}
	if r.ToAddress2 != "" {
		parts = append(parts, r.ToAddress2)
	}
	parts = append(parts, fmt.Sprintf("%s, %s %s", r.ToCity, r.ToState, r.ToZip))
	return strings.Join(parts, ", ")
}

// FormatPackageDetails builds the dimensions-and-weight display string.
func (r *ShipmentRecord) FormatPackageDetails() string {
	dims := fmt.Sprintf("%gx%gx%g inches", r.Length, r.Width, r.Height)
	weight := fmt.Sprintf("%d oz", r.WeightOz)
	if r.WeightLbs > 0 {
		weight = fmt.Sprintf("%d lb %d oz", r.WeightLbs, r.WeightOz)
	}
	return dims + ", " + weight
}

// Refresh recomputes the backend-owned display strings. The simulation
// server calls this before serializing a record.
func (r *ShipmentRecord) Refresh() {
	r.FromAddressFormatted = r.FormatFromAddress()
	r.ToAddressFormatted = r.FormatToAddress()
	r.PackageDetails = r.FormatPackageDetails()
}

// SavedAddress is a reusable ship-from address template.
type SavedAddress struct {
	ID           int64  `json:"id,omitempty"`
	Name         string `json:"name"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zip_code"`
	Phone        string `json:"phone"`
}

// SavedPackage is a reusable package dimension template.
type SavedPackage struct {
	ID        int64   `json:"id,omitempty"`
	Name      string  `json:"name"`
	Length    float64 `json:"length"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	WeightLbs int     `json:"weight_lbs"`
	WeightOz  int     `json:"weight_oz"`
}

// Profile is the authenticated user's identity and balance. The balance is
// informational on the client; only the backend debits it.
type Profile struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	AccountBalance Price  `json:"account_balance"`
}
