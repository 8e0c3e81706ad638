package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/Saraahamrr/bulk-shipping-platform/pkg/shipment"
)

// CredentialStore supplies and persists the auth material every request
// carries: the bearer token pair and the client-generated session
// identifier. Clear wipes everything on session teardown.
type CredentialStore interface {
	AccessToken() (string, error)
	RefreshToken() (string, error)
	SessionID() (string, error)
	SetAccessToken(token string) error
	SetTokens(access, refresh string) error
	Clear() error
}

// HTTPAPIClient is the production implementation of APIClient.
type HTTPAPIClient struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialStore
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig, creds CredentialStore) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPAPIClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		creds: creds,
	}
}

// ============================================================================
// Shipments
// ============================================================================

func (c *HTTPAPIClient) ListShipments(ctx context.Context) ([]shipment.ShipmentRecord, error) {
	var records []shipment.ShipmentRecord
	if err := c.doJSON(ctx, http.MethodGet, "/shipments/", nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *HTTPAPIClient) GetShipment(ctx context.Context, id int64) (*shipment.ShipmentRecord, error) {
	var record shipment.ShipmentRecord
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/shipments/%d/", id), nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *HTTPAPIClient) UpdateShipment(ctx context.Context, id int64, patch shipment.Patch) (*shipment.ShipmentRecord, error) {
	var record shipment.ShipmentRecord
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/shipments/%d/", id), patch, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *HTTPAPIClient) DeleteShipment(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/shipments/%d/delete/", id), nil, nil)
}

func (c *HTTPAPIClient) DeleteAllShipments(ctx context.Context) (*MessageResponse, error) {
	var resp MessageResponse
	if err := c.doJSON(ctx, http.MethodDelete, "/shipments/delete-all/", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPAPIClient) BulkUpdateShipments(ctx context.Context, ids []int64, patch shipment.Patch) ([]shipment.ShipmentRecord, error) {
	body := BulkUpdateRequest{RecordIDs: ids, Patch: patch}
	var records []shipment.ShipmentRecord
	if err := c.doJSON(ctx, http.MethodPatch, "/shipments/bulk/update/", body, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *HTTPAPIClient) BulkDeleteShipments(ctx context.Context, ids []int64) error {
	return c.doJSON(ctx, http.MethodPost, "/shipments/bulk/delete/", BulkDeleteRequest{RecordIDs: ids}, nil)
}

// ============================================================================
// Saved templates
// ============================================================================

func (c *HTTPAPIClient) ListAddresses(ctx context.Context) ([]shipment.SavedAddress, error) {
	var addrs []shipment.SavedAddress
	if err := c.doJSON(ctx, http.MethodGet, "/addresses/", nil, &addrs); err != nil {
		return nil, err
	}
	return addrs, nil
}

func (c *HTTPAPIClient) CreateAddress(ctx context.Context, addr shipment.SavedAddress) (*shipment.SavedAddress, error) {
	var created shipment.SavedAddress
	if err := c.doJSON(ctx, http.MethodPost, "/addresses/", addr, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *HTTPAPIClient) UpdateAddress(ctx context.Context, id int64, addr shipment.SavedAddress) (*shipment.SavedAddress, error) {
	var updated shipment.SavedAddress
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/addresses/%d/", id), addr, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *HTTPAPIClient) DeleteAddress(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/addresses/%d/", id), nil, nil)
}

func (c *HTTPAPIClient) ListPackages(ctx context.Context) ([]shipment.SavedPackage, error) {
	var pkgs []shipment.SavedPackage
	if err := c.doJSON(ctx, http.MethodGet, "/packages/", nil, &pkgs); err != nil {
		return nil, err
	}
	return pkgs, nil
}

func (c *HTTPAPIClient) CreatePackage(ctx context.Context, pkg shipment.SavedPackage) (*shipment.SavedPackage, error) {
	var created shipment.SavedPackage
	if err := c.doJSON(ctx, http.MethodPost, "/packages/", pkg, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *HTTPAPIClient) UpdatePackage(ctx context.Context, id int64, pkg shipment.SavedPackage) (*shipment.SavedPackage, error) {
	var updated shipment.SavedPackage
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/packages/%d/", id), pkg, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *HTTPAPIClient) DeletePackage(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/packages/%d/", id), nil, nil)
}

// ============================================================================
// Upload, purchase, template
// ============================================================================

// Upload sends a CSV as multipart form data to POST /upload/.
func (c *HTTPAPIClient) Upload(ctx context.Context, filename string, file io.Reader) (*UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("building multipart body: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("reading upload file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finishing multipart body: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/upload/", mw.FormDataContentType(), buf.Bytes())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding upload response: %w", err)
	}
	return &result, nil
}

func (c *HTTPAPIClient) Purchase(ctx context.Context, ids []int64, format shipment.LabelFormat) (*PurchaseResponse, error) {
	body := PurchaseRequest{RecordIDs: ids, LabelFormat: format}
	var resp PurchaseResponse
	if err := c.doJSON(ctx, http.MethodPost, "/purchase/", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Template downloads the CSV template blob.
func (c *HTTPAPIClient) Template(ctx context.Context) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, "/template/", "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}
	return io.ReadAll(resp.Body)
}

// ============================================================================
// Auth
// ============================================================================

func (c *HTTPAPIClient) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var resp LoginResponse
	body := LoginRequest{Username: username, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login/", body, &resp); err != nil {
		return nil, err
	}
	if err := c.creds.SetTokens(resp.Access, resp.Refresh); err != nil {
		return nil, fmt.Errorf("persisting tokens: %w", err)
	}
	return &resp, nil
}

// Logout invalidates the refresh token server-side and clears everything
// persisted locally, whether or not the remote call succeeded.
func (c *HTTPAPIClient) Logout(ctx context.Context) error {
	refresh, _ := c.creds.RefreshToken()
	remoteErr := c.doJSON(ctx, http.MethodPost, "/auth/logout/", LogoutRequest{Refresh: refresh}, nil)
	if err := c.creds.Clear(); err != nil {
		return fmt.Errorf("clearing local session: %w", err)
	}
	return remoteErr
}

func (c *HTTPAPIClient) Register(ctx context.Context, req RegisterRequest) (*shipment.Profile, error) {
	var profile shipment.Profile
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register/", req, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *HTTPAPIClient) Profile(ctx context.Context) (*shipment.Profile, error) {
	var profile shipment.Profile
	if err := c.doJSON(ctx, http.MethodGet, "/auth/profile/", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ============================================================================
// Transport plumbing
// ============================================================================

// doJSON performs a JSON request and decodes the response into out (out may
// be nil for endpoints that return no useful body).
func (c *HTTPAPIClient) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	contentType := ""
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		contentType = "application/json"
	}

	resp, err := c.do(ctx, method, path, contentType, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.parseError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// do sends the request with auth headers. A 401 triggers exactly one token
// refresh followed by a retry of the original request; if the refresh fails
// the local session is torn down and ErrSessionExpired is returned.
func (c *HTTPAPIClient) do(ctx context.Context, method, path, contentType string, body []byte) (*http.Response, error) {
	resp, err := c.send(ctx, method, path, contentType, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	resp.Body.Close()

	if err := c.refreshAccessToken(ctx); err != nil {
		return nil, err
	}
	return c.send(ctx, method, path, contentType, body)
}

func (c *HTTPAPIClient) send(ctx context.Context, method, path, contentType string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	sessionID, err := c.creds.SessionID()
	if err != nil {
		return nil, fmt.Errorf("loading session id: %w", err)
	}
	req.Header.Set("X-Session-ID", sessionID)

	if token, err := c.creds.AccessToken(); err == nil && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.httpClient.Do(req)
}

// refreshAccessToken exchanges the refresh token for a new access token. Any
// failure here is session-terminating.
func (c *HTTPAPIClient) refreshAccessToken(ctx context.Context) error {
	refresh, err := c.creds.RefreshToken()
	if err != nil || refresh == "" {
		c.creds.Clear()
		return shipment.ErrSessionExpired
	}

	payload, err := json.Marshal(RefreshRequest{Refresh: refresh})
	if err != nil {
		return fmt.Errorf("marshaling refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/refresh/", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("refreshing token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.creds.Clear()
		return shipment.ErrSessionExpired
	}

	var result RefreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.creds.Clear()
		return shipment.ErrSessionExpired
	}
	if err := c.creds.SetAccessToken(result.Access); err != nil {
		return fmt.Errorf("persisting refreshed token: %w", err)
	}
	return nil
}

// parseError extracts a shipment.APIError from an error response.
func (c *HTTPAPIClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	apiErr := &shipment.APIError{StatusCode: resp.StatusCode}

	var wire struct {
		Error   string            `json:"error"`
		Message string            `json:"message"`
		Detail  string            `json:"detail"`
		Fields  map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(body, &wire); err == nil {
		switch {
		case wire.Error != "":
			apiErr.Message = wire.Error
		case wire.Message != "":
			apiErr.Message = wire.Message
		case wire.Detail != "":
			apiErr.Message = wire.Detail
		}
		apiErr.Fields = wire.Fields
	}
	if apiErr.Message == "" {
		apiErr.Message = string(body)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		apiErr.Cause = shipment.ErrUnauthorized
	}
	return apiErr
}

// Ensure HTTPAPIClient implements APIClient.
var _ APIClient = (*HTTPAPIClient)(nil)
