// Package server implements the simulation backend: the same REST contract
// the hosted shipping platform exposes, backed by a local sqlite database.
// It exists so the CLI and the workflow can run end to end without the
// hosted service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Saraahamrr/bulk-shipping-platform/internal/telemetry"
	"github.com/Saraahamrr/bulk-shipping-platform/pkg/backend"
	"github.com/Saraahamrr/bulk-shipping-platform/pkg/shipment"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Server is the HTTP server for the simulation backend.
type Server struct {
	port    int
	store   *Store
	tokens  *tokenSet
	logger  *otelzap.Logger
	metrics *telemetry.Metrics
}

// Config holds server configuration.
type Config struct {
	Port int
}

// New creates a new server instance.
func New(cfg Config, store *Store, logger *otelzap.Logger, metrics *telemetry.Metrics) *Server {
	return &Server{
		port:    cfg.Port,
		store:   store,
		tokens:  newTokenSet(),
		logger:  logger,
		metrics: metrics,
	}
}

// Handler builds the full route table. Exposed separately from Run so tests
// can mount it on httptest.Server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/auth/register/", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login/", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout/", s.auth(s.handleLogout))
	mux.HandleFunc("POST /api/auth/refresh/", s.handleRefresh)
	mux.HandleFunc("GET /api/auth/profile/", s.auth(s.handleProfile))

	mux.HandleFunc("GET /api/shipments/", s.auth(s.handleListShipments))
	mux.HandleFunc("GET /api/shipments/{id}/", s.auth(s.handleGetShipment))
	mux.HandleFunc("PUT /api/shipments/{id}/", s.auth(s.handleUpdateShipment))
	mux.HandleFunc("DELETE /api/shipments/{id}/delete/", s.auth(s.handleDeleteShipment))
	mux.HandleFunc("DELETE /api/shipments/delete-all/{$}", s.auth(s.handleDeleteAllShipments))
	mux.HandleFunc("PATCH /api/shipments/bulk/update/", s.auth(s.handleBulkUpdate))
	mux.HandleFunc("POST /api/shipments/bulk/delete/", s.auth(s.handleBulkDelete))

	mux.HandleFunc("GET /api/addresses/", s.auth(s.handleListAddresses))
	mux.HandleFunc("POST /api/addresses/", s.auth(s.handleCreateAddress))
	mux.HandleFunc("PUT /api/addresses/{id}/", s.auth(s.handleUpdateAddress))
	mux.HandleFunc("DELETE /api/addresses/{id}/", s.auth(s.handleDeleteAddress))

	mux.HandleFunc("GET /api/packages/", s.auth(s.handleListPackages))
	mux.HandleFunc("POST /api/packages/", s.auth(s.handleCreatePackage))
	mux.HandleFunc("PUT /api/packages/{id}/", s.auth(s.handleUpdatePackage))
	mux.HandleFunc("DELETE /api/packages/{id}/", s.auth(s.handleDeletePackage))

	mux.HandleFunc("POST /api/upload/", s.auth(s.handleUpload))
	mux.HandleFunc("POST /api/purchase/", s.auth(s.handlePurchase))
	mux.HandleFunc("GET /api/template/", s.handleTemplate)

	return mux
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting simulation server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down simulation server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// ============================================================================
// Plumbing
// ============================================================================

type userHandler func(w http.ResponseWriter, r *http.Request, username string)

// auth resolves the Bearer token to a username or answers 401.
func (s *Server) auth(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || token == r.Header.Get("Authorization") {
			writeError(w, http.StatusUnauthorized, "Authentication credentials were not provided")
			return
		}
		username, ok := s.tokens.Username(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		start := time.Now()
		next(w, r, username)
		s.metrics.RecordRequest(r.Method+" "+r.URL.Path, "handled", time.Since(start).Seconds())
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Invalid id")
		return 0, false
	}
	return id, true
}

// ============================================================================
// Auth
// ============================================================================

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req backend.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}
	if err := s.store.CreateUser(req.Username, req.Email, req.Password); err != nil {
		writeError(w, http.StatusBadRequest, "A user with that username already exists")
		return
	}
	profile, err := s.store.GetProfile(req.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("User registered", zap.String("username", req.Username))
	writeJSON(w, http.StatusCreated, profile)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req backend.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	profile, err := s.store.Authenticate(req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	access, refresh := s.tokens.Issue(req.Username)
	writeJSON(w, http.StatusOK, backend.LoginResponse{
		Access:  access,
		Refresh: refresh,
		User:    *profile,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, username string) {
	s.tokens.Revoke(username)
	writeJSON(w, http.StatusOK, backend.MessageResponse{Message: "Successfully logged out"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req backend.RefreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	access, ok := s.tokens.Rotate(req.Refresh)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}
	writeJSON(w, http.StatusOK, backend.RefreshResponse{Access: access})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, username string) {
	profile, err := s.store.GetProfile(username)
	if err != nil {
		writeError(w, http.StatusNotFound, "Profile not found")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// ============================================================================
// Shipments
// ============================================================================

func (s *Server) handleListShipments(w http.ResponseWriter, r *http.Request, username string) {
	records, err := s.store.ListShipments(username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []shipment.ShipmentRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetShipment(w http.ResponseWriter, r *http.Request, username string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	record, err := s.store.GetShipment(username, id)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "Shipment not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// applyPatch merges a partial update into a record. A service change without
// an explicit price recomputes the price from the schedule.
func applyPatch(record *shipment.ShipmentRecord, patch shipment.Patch) {
	patch.Apply(record)
	if patch.ShippingService != nil && patch.ShippingPrice == nil {
		record.RecalculatePrice()
	}
	record.Refresh()
}

func (s *Server) handleUpdateShipment(w http.ResponseWriter, r *http.Request, username string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch shipment.Patch
	if !decodeBody(w, r, &patch) {
		return
	}
	record, err := s.store.GetShipment(username, id)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "Shipment not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	applyPatch(record, patch)
	if err := s.store.SaveShipment(username, record); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleDeleteShipment(w http.ResponseWriter, r *http.Request, username string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	err := s.store.DeleteShipment(username, id)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "Shipment not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteAllShipments(w http.ResponseWriter, r *http.Request, username string) {
	n, err := s.store.DeleteAllShipments(username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if n == 0 {
		writeJSON(w, http.StatusOK, backend.MessageResponse{Message: "No shipments to delete"})
		return
	}
	writeJSON(w, http.StatusOK, backend.MessageResponse{
		Message: fmt.Sprintf("Successfully deleted all shipments (%d records)", n),
	})
}

// checkBulkIDs validates a bulk id list against the store: empty lists and
// lists with no matches or unknown ids are all rejected, mirroring the
// hosted backend.
func (s *Server) checkBulkIDs(w http.ResponseWriter, username string, ids []int64) bool {
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "No record IDs provided")
		return false
	}
	existing, err := s.store.ExistingIDs(username, ids)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return false
	}
	if len(existing) == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("No shipments found for IDs: %v", ids))
		return false
	}
	var invalid []int64
	for _, id := range ids {
		if !existing[id] {
			invalid = append(invalid, id)
		}
	}
	if len(invalid) > 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid shipment IDs: %v", invalid))
		return false
	}
	return true
}

func (s *Server) handleBulkUpdate(w http.ResponseWriter, r *http.Request, username string) {
	var req backend.BulkUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !s.checkBulkIDs(w, username, req.RecordIDs) {
		return
	}
	if req.Patch.IsEmpty() {
		writeError(w, http.StatusBadRequest, "No fields to update")
		return
	}

	updated := make([]shipment.ShipmentRecord, 0, len(req.RecordIDs))
	for _, id := range req.RecordIDs {
		record, err := s.store.GetShipment(username, id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		applyPatch(record, req.Patch)
		if err := s.store.SaveShipment(username, record); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		updated = append(updated, *record)
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request, username string) {
	var req backend.BulkDeleteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !s.checkBulkIDs(w, username, req.RecordIDs) {
		return
	}
	if _, err := s.store.DeleteShipments(username, req.RecordIDs); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Saved templates
// ============================================================================

func (s *Server) handleListAddresses(w http.ResponseWriter, r *http.Request, username string) {
	addrs, err := s.store.ListAddresses(username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if addrs == nil {
		addrs = []shipment.SavedAddress{}
	}
	writeJSON(w, http.StatusOK, addrs)
}

func (s *Server) handleCreateAddress(w http.ResponseWriter, r *http.Request, username string) {
	var addr shipment.SavedAddress
	if !decodeBody(w, r, &addr) {
		return
	}
	if err := addr.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.InsertAddress(username, &addr); err != nil {
		writeError(w, http.StatusBadRequest, "An address with that name already exists")
		return
	}
	writeJSON(w, http.StatusCreated, addr)
}

func (s *Server) handleUpdateAddress(w http.ResponseWriter, r *http.Request, username string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var addr shipment.SavedAddress
	if !decodeBody(w, r, &addr) {
		return
	}
	if err := addr.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	err := s.store.UpdateAddress(username, id, &addr)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "Address not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, addr)
}

func (s *Server) handleDeleteAddress(w http.ResponseWriter, r *http.Request, username string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	err := s.store.DeleteAddress(username, id)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "Address not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPackages(w http.ResponseWriter, r *http.Request, username string) {
	pkgs, err := s.store.ListPackages(username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if pkgs == nil {
		pkgs = []shipment.SavedPackage{}
	}
	writeJSON(w, http.StatusOK, pkgs)
}

func (s *Server) handleCreatePackage(w http.ResponseWriter, r *http.Request, username string) {
	var pkg shipment.SavedPackage
	if !decodeBody(w, r, &pkg) {
		return
	}
	if err := pkg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.InsertPackage(username, &pkg); err != nil {
		writeError(w, http.StatusBadRequest, "A package with that name already exists")
		return
	}
	writeJSON(w, http.StatusCreated, pkg)
}

func (s *Server) handleUpdatePackage(w http.ResponseWriter, r *http.Request, username string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var pkg shipment.SavedPackage
	if !decodeBody(w, r, &pkg) {
		return
	}
	if err := pkg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	err := s.store.UpdatePackage(username, id, &pkg)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "Package not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pkg)
}

func (s *Server) handleDeletePackage(w http.ResponseWriter, r *http.Request, username string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	err := s.store.DeletePackage(username, id)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "Package not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Upload, purchase, template
// ============================================================================

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, username string) {
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	records, rowErrors, err := parseShipmentsCSV(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sessionID := r.Header.Get("X-Session-ID")
	for i := range records {
		records[i].SessionID = sessionID
		if err := s.store.InsertShipment(username, &records[i]); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	all, err := s.store.ListShipments(username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("CSV imported",
		zap.String("username", username),
		zap.Int("imported", len(records)),
		zap.Int("row_errors", len(rowErrors)),
	)
	writeJSON(w, http.StatusOK, backend.UploadResponse{
		Message: fmt.Sprintf("Successfully imported %d records", len(records)),
		Records: all,
		Errors:  rowErrors,
	})
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request, username string) {
	var req backend.PurchaseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.RecordIDs) == 0 {
		writeError(w, http.StatusBadRequest, "No records specified")
		return
	}
	format := req.LabelFormat
	if format == "" {
		format = shipment.FormatLetter
	}

	var records []shipment.ShipmentRecord
	for _, id := range req.RecordIDs {
		record, err := s.store.GetShipment(username, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		records = append(records, *record)
	}
	if len(records) == 0 {
		writeError(w, http.StatusNotFound, "No valid records found")
		return
	}

	total := shipment.TotalPrice(records)
	profile, err := s.store.GetProfile(username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if profile.AccountBalance < total {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":     "Insufficient balance",
			"required":  total,
			"available": profile.AccountBalance,
		})
		return
	}

	newBalance, err := s.store.Debit(username, total)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for i := range records {
		records[i].Status = shipment.StatusProcessed
		if err := s.store.SaveShipment(username, &records[i]); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	s.logger.Info("Purchase processed",
		zap.String("username", username),
		zap.Int("labels", len(records)),
		zap.String("total", total.String()),
	)
	writeJSON(w, http.StatusOK, backend.PurchaseResponse{
		Message:          fmt.Sprintf("Successfully purchased %d labels", len(records)),
		Total:            total,
		LabelFormat:      format,
		RecordsProcessed: len(records),
		NewBalance:       newBalance,
	})
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="shipping_template.csv"`)
	w.Write(templateCSV())
}
