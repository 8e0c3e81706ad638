// Package workflow orchestrates the four-step shipping workflow against the
// backend. Every operation calls the backend first and applies the server's
// acknowledged state to the session store; a failed remote call leaves local
// state untouched.
package workflow

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Saraahamrr/bulk-shipping-platform/internal/session"
	"github.com/Saraahamrr/bulk-shipping-platform/internal/telemetry"
	"github.com/Saraahamrr/bulk-shipping-platform/pkg/backend"
	"github.com/Saraahamrr/bulk-shipping-platform/pkg/shipment"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FlagStore persists the purchase-completed flag across runs.
type FlagStore interface {
	SetPurchaseCompleted(done bool) error
	PurchaseCompleted() (bool, error)
}

// Coordinator drives the workflow. It owns no state itself; the session
// store is the single source of truth for local state and the backend for
// remote state.
type Coordinator struct {
	client  *backend.Client
	store   *session.Store
	flags   FlagStore
	logger  *otelzap.Logger
	metrics *telemetry.Metrics
}

// New creates a workflow coordinator.
func New(client *backend.Client, store *session.Store, flags FlagStore, logger *otelzap.Logger, metrics *telemetry.Metrics) *Coordinator {
	return &Coordinator{
		client:  client,
		store:   store,
		flags:   flags,
		logger:  logger,
		metrics: metrics,
	}
}

// Store returns the session store.
func (c *Coordinator) Store() *session.Store { return c.store }

// track wraps a backend call with request metrics.
func (c *Coordinator) track(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRequest(operation, status, time.Since(start).Seconds())
	return err
}

// LoadAll fetches shipments, saved templates, and the profile in parallel
// and seeds the store. When records come back and the workflow is still at
// Upload, it advances to Review automatically.
func (c *Coordinator) LoadAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		records, err := c.client.ListShipments(ctx)
		if err != nil {
			return fmt.Errorf("loading shipments: %w", err)
		}
		c.store.SetRecords(records)
		return nil
	})
	g.Go(func() error {
		addrs, err := c.client.ListAddresses(ctx)
		if err != nil {
			return fmt.Errorf("loading addresses: %w", err)
		}
		c.store.SetAddresses(addrs)
		return nil
	})
	g.Go(func() error {
		pkgs, err := c.client.ListPackages(ctx)
		if err != nil {
			return fmt.Errorf("loading packages: %w", err)
		}
		c.store.SetPackages(pkgs)
		return nil
	})
	g.Go(func() error {
		profile, err := c.client.Profile(ctx)
		if err != nil {
			return fmt.Errorf("loading profile: %w", err)
		}
		c.store.SetProfile(profile)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	if c.store.Len() > 0 && c.store.Step() == session.StepUpload {
		if err := c.store.Advance(); err != nil {
			return err
		}
	}
	return nil
}

// Upload sends a CSV to the backend and replaces the working record set with
// the imported records. A non-empty import advances Upload to Review.
func (c *Coordinator) Upload(ctx context.Context, filename string, file io.Reader) (*backend.UploadResponse, error) {
	var resp *backend.UploadResponse
	err := c.track("upload", func() error {
		var err error
		resp, err = c.client.Upload(ctx, filename, file)
		return err
	})
	if err != nil {
		c.metrics.RecordFailure("upload", "remote")
		return nil, err
	}

	c.store.SetRecords(resp.Records)
	c.metrics.RecordsImported.Add(float64(len(resp.Records)))
	c.flags.SetPurchaseCompleted(false)

	if len(resp.Records) > 0 && c.store.Step() == session.StepUpload {
		if err := c.store.Advance(); err != nil {
			return resp, err
		}
	}
	return resp, nil
}

// UpdateRecord applies a partial update to one record. The store receives
// the server's canonical record, not the supplied patch, so server-computed
// fields (formatted strings, recomputed price) never drift.
func (c *Coordinator) UpdateRecord(ctx context.Context, id int64, patch shipment.Patch) (*shipment.ShipmentRecord, error) {
	var canonical *shipment.ShipmentRecord
	err := c.track("update_shipment", func() error {
		var err error
		canonical, err = c.client.UpdateShipment(ctx, id, patch)
		return err
	})
	if err != nil {
		c.metrics.RecordFailure("update_shipment", "remote")
		return nil, err
	}
	c.store.ReplaceRecord(*canonical)
	return canonical, nil
}

// BulkUpdate applies the same patch to many records. Only records whose ids
// appear in the backend's response are merged locally; the rest stay
// byte-identical to their pre-call state.
func (c *Coordinator) BulkUpdate(ctx context.Context, ids []int64, patch shipment.Patch) ([]shipment.ShipmentRecord, error) {
	var updated []shipment.ShipmentRecord
	err := c.track("bulk_update", func() error {
		var err error
		updated, err = c.client.BulkUpdateShipments(ctx, ids, patch)
		return err
	})
	if err != nil {
		c.metrics.RecordFailure("bulk_update", "remote")
		return nil, err
	}
	c.store.MergeRecords(updated)
	return updated, nil
}

// AssignService sets the shipping service on one record. The backend
// recomputes the price; the canonical record lands in the store.
func (c *Coordinator) AssignService(ctx context.Context, id int64, service string) (*shipment.ShipmentRecord, error) {
	return c.UpdateRecord(ctx, id, shipment.Patch{ShippingService: &service})
}

// BulkAssignService sets the shipping service on many records at once.
func (c *Coordinator) BulkAssignService(ctx context.Context, ids []int64, service string) ([]shipment.ShipmentRecord, error) {
	return c.BulkUpdate(ctx, ids, shipment.Patch{ShippingService: &service})
}

// ApplyAddress copies a saved address into the ship-from fields of the given
// records.
func (c *Coordinator) ApplyAddress(ctx context.Context, addr shipment.SavedAddress, ids []int64) ([]shipment.ShipmentRecord, error) {
	return c.BulkUpdate(ctx, ids, shipment.AddressPatch(addr))
}

// ApplyPackage copies a saved package into the dimension fields of the given
// records.
func (c *Coordinator) ApplyPackage(ctx context.Context, pkg shipment.SavedPackage, ids []int64) ([]shipment.ShipmentRecord, error) {
	return c.BulkUpdate(ctx, ids, shipment.PackagePatch(pkg))
}

// DeleteRecord removes one record remotely, then locally (including from the
// selection).
func (c *Coordinator) DeleteRecord(ctx context.Context, id int64) error {
	err := c.track("delete_shipment", func() error {
		return c.client.DeleteShipment(ctx, id)
	})
	if err != nil {
		c.metrics.RecordFailure("delete_shipment", "remote")
		return err
	}
	c.store.RemoveRecords([]int64{id})
	return nil
}

// BulkDelete removes many records remotely, then locally.
func (c *Coordinator) BulkDelete(ctx context.Context, ids []int64) error {
	err := c.track("bulk_delete", func() error {
		return c.client.BulkDeleteShipments(ctx, ids)
	})
	if err != nil {
		c.metrics.RecordFailure("bulk_delete", "remote")
		return err
	}
	c.store.RemoveRecords(ids)
	return nil
}

// DeleteAll clears the whole working set.
func (c *Coordinator) DeleteAll(ctx context.Context) error {
	err := c.track("delete_all", func() error {
		_, err := c.client.DeleteAllShipments(ctx)
		return err
	})
	if err != nil {
		c.metrics.RecordFailure("delete_all", "remote")
		return err
	}
	c.store.SetRecords(nil)
	return nil
}

// Purchase confirms the purchase of the in-scope records (the selection, or
// every record when nothing is selected). On acknowledgment the records are
// marked processed locally, the profile balance is updated, and the
// purchase-completed flag is persisted.
func (c *Coordinator) Purchase(ctx context.Context, format shipment.LabelFormat, termsAccepted bool) (*backend.PurchaseResponse, error) {
	if !termsAccepted {
		return nil, shipment.ErrTermsNotAccepted
	}

	scope := c.store.SelectedRecords()
	if len(scope) == 0 {
		scope = c.store.Records()
	}
	if len(scope) == 0 {
		return nil, shipment.ErrNoRecords
	}

	total := shipment.TotalPrice(scope)
	if profile := c.store.Profile(); profile != nil && total > profile.AccountBalance {
		return nil, fmt.Errorf("%w: need %s, have %s",
			shipment.ErrInsufficientBalance, total, profile.AccountBalance)
	}

	ids := make([]int64, len(scope))
	for i, r := range scope {
		ids[i] = r.ID
	}

	var resp *backend.PurchaseResponse
	err := c.track("purchase", func() error {
		var err error
		resp, err = c.client.Purchase(ctx, ids, format)
		return err
	})
	if err != nil {
		c.metrics.RecordFailure("purchase", "remote")
		return nil, err
	}

	for _, id := range ids {
		c.store.PatchRecordByID(id, shipment.StatusPatch(shipment.StatusProcessed))
	}
	if profile := c.store.Profile(); profile != nil {
		profile.AccountBalance = resp.NewBalance
		c.store.SetProfile(profile)
	}
	if err := c.flags.SetPurchaseCompleted(true); err != nil {
		c.logger.Warn("Failed to persist purchase flag", zap.Error(err))
	}
	c.metrics.LabelsPurchased.Add(float64(resp.RecordsProcessed))

	c.logger.Info("Purchase complete",
		zap.Int("labels", resp.RecordsProcessed),
		zap.String("total", resp.Total.String()),
	)
	return resp, nil
}

// Login authenticates and stores the profile.
func (c *Coordinator) Login(ctx context.Context, username, password string) (*shipment.Profile, error) {
	resp, err := c.client.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	c.store.SetProfile(&resp.User)
	return &resp.User, nil
}

// Logout tears the session down locally regardless of whether the remote
// call succeeds.
func (c *Coordinator) Logout(ctx context.Context) error {
	err := c.client.Logout(ctx)
	c.store.SetProfile(nil)
	c.store.Reset()
	return err
}
