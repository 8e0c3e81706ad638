// Package backend provides the client for the shipping platform's REST
// backend.
package backend

import (
	"context"
	"encoding/json"
	"io"

	"github.com/Saraahamrr/bulk-shipping-platform/pkg/shipment"
)

// APIClient defines the wire-level operations against the backend. The
// abstraction allows mock implementations during testing and the real HTTP
// implementation in production.
type APIClient interface {
	// Shipments
	ListShipments(ctx context.Context) ([]shipment.ShipmentRecord, error)
	GetShipment(ctx context.Context, id int64) (*shipment.ShipmentRecord, error)
	UpdateShipment(ctx context.Context, id int64, patch shipment.Patch) (*shipment.ShipmentRecord, error)
	DeleteShipment(ctx context.Context, id int64) error
	DeleteAllShipments(ctx context.Context) (*MessageResponse, error)
	BulkUpdateShipments(ctx context.Context, ids []int64, patch shipment.Patch) ([]shipment.ShipmentRecord, error)
	BulkDeleteShipments(ctx context.Context, ids []int64) error

	// Saved templates
	ListAddresses(ctx context.Context) ([]shipment.SavedAddress, error)
	CreateAddress(ctx context.Context, addr shipment.SavedAddress) (*shipment.SavedAddress, error)
	UpdateAddress(ctx context.Context, id int64, addr shipment.SavedAddress) (*shipment.SavedAddress, error)
	DeleteAddress(ctx context.Context, id int64) error
	ListPackages(ctx context.Context) ([]shipment.SavedPackage, error)
	CreatePackage(ctx context.Context, pkg shipment.SavedPackage) (*shipment.SavedPackage, error)
	UpdatePackage(ctx context.Context, id int64, pkg shipment.SavedPackage) (*shipment.SavedPackage, error)
	DeletePackage(ctx context.Context, id int64) error

	// Upload and purchase
	Upload(ctx context.Context, filename string, file io.Reader) (*UploadResponse, error)
	Purchase(ctx context.Context, ids []int64, format shipment.LabelFormat) (*PurchaseResponse, error)
	Template(ctx context.Context) ([]byte, error)

	// Auth
	Login(ctx context.Context, username, password string) (*LoginResponse, error)
	Logout(ctx context.Context) error
	Register(ctx context.Context, req RegisterRequest) (*shipment.Profile, error)
	Profile(ctx context.Context) (*shipment.Profile, error)
}

// ============================================================================
// Wire types
// ============================================================================

// MessageResponse is the backend's generic acknowledgment payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// RowError reports a CSV row the backend could not import.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// UploadResponse is the result of POST /upload/.
type UploadResponse struct {
	Message string                    `json:"message"`
	Records []shipment.ShipmentRecord `json:"records"`
	Errors  []RowError                `json:"errors,omitempty"`
}

// PurchaseRequest is the body of POST /purchase/.
type PurchaseRequest struct {
	RecordIDs   []int64              `json:"record_ids"`
	LabelFormat shipment.LabelFormat `json:"label_format"`
}

// PurchaseResponse is the result of POST /purchase/.
type PurchaseResponse struct {
	Message          string               `json:"message"`
	Total            shipment.Price       `json:"total"`
	LabelFormat      shipment.LabelFormat `json:"label_format"`
	RecordsProcessed int                  `json:"records_processed"`
	NewBalance       shipment.Price       `json:"new_balance"`
}

// BulkUpdateRequest is the body of PATCH /shipments/bulk/update/. The field
// set is flattened next to record_ids on the wire.
type BulkUpdateRequest struct {
	RecordIDs []int64
	Patch     shipment.Patch
}

// MarshalJSON flattens the patch fields alongside record_ids.
func (b BulkUpdateRequest) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(b.Patch)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	ids, err := json.Marshal(b.RecordIDs)
	if err != nil {
		return nil, err
	}
	fields["record_ids"] = ids
	return json.Marshal(fields)
}

// UnmarshalJSON restores a flattened bulk update body.
func (b *BulkUpdateRequest) UnmarshalJSON(data []byte) error {
	var ids struct {
		RecordIDs []int64 `json:"record_ids"`
	}
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &b.Patch); err != nil {
		return err
	}
	b.RecordIDs = ids.RecordIDs
	return nil
}

// BulkDeleteRequest is the body of POST /shipments/bulk/delete/.
type BulkDeleteRequest struct {
	RecordIDs []int64 `json:"record_ids"`
}

// LoginRequest is the body of POST /auth/login/.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the token pair and the user's profile.
type LoginResponse struct {
	Access  string           `json:"access"`
	Refresh string           `json:"refresh"`
	User    shipment.Profile `json:"user"`
}

// RegisterRequest is the body of POST /auth/register/.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /auth/refresh/.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshResponse carries the rotated access token.
type RefreshResponse struct {
	Access string `json:"access"`
}

// LogoutRequest is the body of POST /auth/logout/.
type LogoutRequest struct {
	Refresh string `json:"refresh"`
}
