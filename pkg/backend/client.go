package backend

import (
	"context"
	"io"
	"time"

	"github.com/Saraahamrr/bulk-shipping-platform/pkg/shipment"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Client is the domain-facing backend client. It validates form input before
// any remote call is attempted and delegates the wire work to the underlying
// APIClient (mock or HTTP).
type Client struct {
	api    APIClient
	logger *otelzap.Logger
}

// Config holds client configuration for the production HTTP transport.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// New creates a backend client over the real HTTP transport.
func New(cfg Config, creds CredentialStore, logger *otelzap.Logger) *Client {
	api := NewHTTPAPIClient(HTTPAPIClientConfig{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	}, creds)
	return &Client{api: api, logger: logger}
}

// NewWithAPIClient creates a backend client with a custom API client. This
// is how tests inject the mock.
func NewWithAPIClient(api APIClient, logger *otelzap.Logger) *Client {
	return &Client{api: api, logger: logger}
}

// API exposes the underlying wire client.
func (c *Client) API() APIClient { return c.api }

func (c *Client) ListShipments(ctx context.Context) ([]shipment.ShipmentRecord, error) {
	return c.api.ListShipments(ctx)
}

func (c *Client) GetShipment(ctx context.Context, id int64) (*shipment.ShipmentRecord, error) {
	return c.api.GetShipment(ctx, id)
}

// UpdateShipment sends a partial update and returns the server's canonical
// record, which includes server-computed fields like the formatted address
// strings.
func (c *Client) UpdateShipment(ctx context.Context, id int64, patch shipment.Patch) (*shipment.ShipmentRecord, error) {
	c.logger.Info("Updating shipment", zap.Int64("id", id))
	record, err := c.api.UpdateShipment(ctx, id, patch)
	if err != nil {
		c.logger.Error("Shipment update failed", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return record, nil
}

func (c *Client) DeleteShipment(ctx context.Context, id int64) error {
	c.logger.Info("Deleting shipment", zap.Int64("id", id))
	return c.api.DeleteShipment(ctx, id)
}

func (c *Client) DeleteAllShipments(ctx context.Context) (*MessageResponse, error) {
	c.logger.Info("Deleting all shipments")
	return c.api.DeleteAllShipments(ctx)
}

// BulkUpdateShipments applies the same field changes to many records. The
// returned slice contains only the records the backend actually updated.
func (c *Client) BulkUpdateShipments(ctx context.Context, ids []int64, patch shipment.Patch) ([]shipment.ShipmentRecord, error) {
	if len(ids) == 0 {
		return nil, shipment.ErrNoSelection
	}
	if patch.IsEmpty() {
		return nil, &shipment.APIError{Message: "No fields to update", StatusCode: 400}
	}
	c.logger.Info("Bulk updating shipments", zap.Int("count", len(ids)))
	records, err := c.api.BulkUpdateShipments(ctx, ids, patch)
	if err != nil {
		c.logger.Error("Bulk update failed", zap.Int("count", len(ids)), zap.Error(err))
		return nil, err
	}
	return records, nil
}

func (c *Client) BulkDeleteShipments(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return shipment.ErrNoSelection
	}
	c.logger.Info("Bulk deleting shipments", zap.Int("count", len(ids)))
	return c.api.BulkDeleteShipments(ctx, ids)
}

func (c *Client) ListAddresses(ctx context.Context) ([]shipment.SavedAddress, error) {
	return c.api.ListAddresses(ctx)
}

func (c *Client) CreateAddress(ctx context.Context, addr shipment.SavedAddress) (*shipment.SavedAddress, error) {
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	return c.api.CreateAddress(ctx, addr)
}

func (c *Client) UpdateAddress(ctx context.Context, id int64, addr shipment.SavedAddress) (*shipment.SavedAddress, error) {
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	return c.api.UpdateAddress(ctx, id, addr)
}

func (c *Client) DeleteAddress(ctx context.Context, id int64) error {
	return c.api.DeleteAddress(ctx, id)
}

func (c *Client) ListPackages(ctx context.Context) ([]shipment.SavedPackage, error) {
	return c.api.ListPackages(ctx)
}

func (c *Client) CreatePackage(ctx context.Context, pkg shipment.SavedPackage) (*shipment.SavedPackage, error) {
	if err := pkg.Validate(); err != nil {
		return nil, err
	}
	return c.api.CreatePackage(ctx, pkg)
}

func (c *Client) UpdatePackage(ctx context.Context, id int64, pkg shipment.SavedPackage) (*shipment.SavedPackage, error) {
	if err := pkg.Validate(); err != nil {
		return nil, err
	}
	return c.api.UpdatePackage(ctx, id, pkg)
}

func (c *Client) DeletePackage(ctx context.Context, id int64) error {
	return c.api.DeletePackage(ctx, id)
}

// Upload sends a CSV to the backend, which parses it and creates the
// records.
func (c *Client) Upload(ctx context.Context, filename string, file io.Reader) (*UploadResponse, error) {
	c.logger.Info("Uploading shipment CSV", zap.String("filename", filename))
	resp, err := c.api.Upload(ctx, filename, file)
	if err != nil {
		c.logger.Error("Upload failed", zap.String("filename", filename), zap.Error(err))
		return nil, err
	}
	c.logger.Info("Upload accepted",
		zap.Int("records", len(resp.Records)),
		zap.Int("row_errors", len(resp.Errors)),
	)
	return resp, nil
}

func (c *Client) Purchase(ctx context.Context, ids []int64, format shipment.LabelFormat) (*PurchaseResponse, error) {
	if len(ids) == 0 {
		return nil, shipment.ErrNoSelection
	}
	c.logger.Info("Purchasing labels",
		zap.Int("count", len(ids)),
		zap.String("format", string(format)),
	)
	return c.api.Purchase(ctx, ids, format)
}

func (c *Client) Template(ctx context.Context) ([]byte, error) {
	return c.api.Template(ctx)
}

func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	c.logger.Info("Logging in", zap.String("username", username))
	return c.api.Login(ctx, username, password)
}

func (c *Client) Logout(ctx context.Context) error {
	c.logger.Info("Logging out")
	return c.api.Logout(ctx)
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*shipment.Profile, error) {
	return c.api.Register(ctx, req)
}

func (c *Client) Profile(ctx context.Context) (*shipment.Profile, error) {
	return c.api.Profile(ctx)
}
