// Package session holds the single source of truth for the workflow: the
// working record set, the selection, saved templates, the user profile, and
// the current step. The store performs no I/O; callers talk to the backend
// first and apply acknowledged state here.
package session

import (
	"sync"

	"github.com/Saraahamrr/bulk-shipping-platform/pkg/shipment"
)

// Store is the in-memory session state store. All mutation goes through its
// methods; the zero step is Upload.
type Store struct {
	mu        sync.RWMutex
	step      Step
	records   []shipment.ShipmentRecord
	selection []int64
	addresses []shipment.SavedAddress
	packages  []shipment.SavedPackage
	profile   *shipment.Profile
}

// NewStore creates an empty store positioned at the Upload step.
func NewStore() *Store {
	return &Store{step: StepUpload}
}

// ============================================================================
// Records
// ============================================================================

// SetRecords replaces the full record set. The selection is pruned to ids
// that still exist; the derived total recomputes on the next read.
func (s *Store) SetRecords(records []shipment.ShipmentRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make([]shipment.ShipmentRecord, len(records))
	copy(s.records, records)
	s.selection = s.pruneSelectionLocked(s.selection)
}

// Records returns a copy of the current record set.
func (s *Store) Records() []shipment.ShipmentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]shipment.ShipmentRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Record returns the record with the given id, if loaded.
func (s *Store) Record(id int64) (shipment.ShipmentRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.records {
		if s.records[i].ID == id {
			return s.records[i], true
		}
	}
	return shipment.ShipmentRecord{}, false
}

// Len returns the number of loaded records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// PatchRecordByID merges partial fields into the record matching id.
// Returns false (and changes nothing) when the id is absent.
func (s *Store) PatchRecordByID(id int64, patch shipment.Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			patch.Apply(&s.records[i])
			return true
		}
	}
	return false
}

// PatchRecordByIndex merges partial fields into the record at the given
// position. Out-of-range indexes are a no-op.
func (s *Store) PatchRecordByIndex(index int, patch shipment.Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.records) {
		return false
	}
	patch.Apply(&s.records[index])
	return true
}

// ReplaceRecord swaps in the server's canonical version of a record,
// matched by id. Unknown ids are ignored.
func (s *Store) ReplaceRecord(record shipment.ShipmentRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == record.ID {
			s.records[i] = record
			return true
		}
	}
	return false
}

// MergeRecords swaps in canonical versions for every record whose id appears
// in the given slice; records absent from it stay untouched. Returns the
// number of records replaced.
func (s *Store) MergeRecords(records []shipment.ShipmentRecord) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID := make(map[int64]shipment.ShipmentRecord, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}
	n := 0
	for i := range s.records {
		if r, ok := byID[s.records[i].ID]; ok {
			s.records[i] = r
			n++
		}
	}
	return n
}

// RemoveRecords filters the record set and the selection to exclude the
// given ids.
func (s *Store) RemoveRecords(ids []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[int64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.records[:0]
	for _, r := range s.records {
		if !drop[r.ID] {
			kept = append(kept, r)
		}
	}
	s.records = kept
	s.selection = s.pruneSelectionLocked(s.selection)
}

// Total derives the running total from the record set's price fields.
// Unassigned prices contribute zero.
func (s *Store) Total() shipment.Price {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return shipment.TotalPrice(s.records)
}

// SelectedTotal sums prices over the selection only.
func (s *Store) SelectedTotal() shipment.Price {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return shipment.TotalPrice(s.selectedRecordsLocked())
}

// ============================================================================
// Selection
// ============================================================================

// SetSelection replaces the selection. Ids not present in the loaded record
// set are dropped, keeping the selection a subset of loaded ids.
func (s *Store) SetSelection(ids []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = s.pruneSelectionLocked(ids)
}

// Selection returns the selected record ids.
func (s *Store) Selection() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int64, len(s.selection))
	copy(out, s.selection)
	return out
}

// SelectAll selects every loaded record.
func (s *Store) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = make([]int64, 0, len(s.records))
	for _, r := range s.records {
		s.selection = append(s.selection, r.ID)
	}
}

// ClearSelection empties the selection.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = nil
}

// SelectedRecords returns the records in the current selection.
func (s *Store) SelectedRecords() []shipment.ShipmentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedRecordsLocked()
}

func (s *Store) selectedRecordsLocked() []shipment.ShipmentRecord {
	selected := make(map[int64]bool, len(s.selection))
	for _, id := range s.selection {
		selected[id] = true
	}
	var out []shipment.ShipmentRecord
	for _, r := range s.records {
		if selected[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

// pruneSelectionLocked intersects ids with the loaded record set, dropping
// duplicates and preserving order. Callers must hold the lock.
func (s *Store) pruneSelectionLocked(ids []int64) []int64 {
	loaded := make(map[int64]bool, len(s.records))
	for _, r := range s.records {
		loaded[r.ID] = true
	}
	var out []int64
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if loaded[id] && !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	return out
}

// ============================================================================
// Saved templates and profile
// ============================================================================

// SetAddresses replaces the saved address templates.
func (s *Store) SetAddresses(addrs []shipment.SavedAddress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addresses = make([]shipment.SavedAddress, len(addrs))
	copy(s.addresses, addrs)
}

// Addresses returns the saved address templates.
func (s *Store) Addresses() []shipment.SavedAddress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]shipment.SavedAddress, len(s.addresses))
	copy(out, s.addresses)
	return out
}

// SetPackages replaces the saved package templates.
func (s *Store) SetPackages(pkgs []shipment.SavedPackage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packages = make([]shipment.SavedPackage, len(pkgs))
	copy(s.packages, pkgs)
}

// Packages returns the saved package templates.
func (s *Store) Packages() []shipment.SavedPackage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]shipment.SavedPackage, len(s.packages))
	copy(out, s.packages)
	return out
}

// SetProfile stores the authenticated user's profile.
func (s *Store) SetProfile(p *shipment.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == nil {
		s.profile = nil
		return
	}
	cp := *p
	s.profile = &cp
}

// Profile returns the stored profile, or nil when logged out.
func (s *Store) Profile() *shipment.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil
	}
	cp := *s.profile
	return &cp
}

// ============================================================================
// Step gate
// ============================================================================

// Step returns the current workflow step.
func (s *Store) Step() Step {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.step
}

// Advance moves forward one step when the next step's preconditions hold.
// A blocked transition changes nothing and returns a *GateError naming the
// unmet precondition.
func (s *Store) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.step
	switch from {
	case StepUpload:
		if len(s.records) == 0 {
			return &GateError{From: from, To: StepReview, Message: "upload a CSV with at least one shipment first"}
		}
		s.step = StepReview
	case StepReview:
		for i := range s.records {
			if s.records[i].Status == shipment.StatusError {
				return &GateError{From: from, To: StepShipping, Message: "fix or remove records with status \"error\" before continuing"}
			}
		}
		s.selection = nil
		s.step = StepShipping
	case StepShipping:
		scope := s.records
		if len(s.selection) > 0 {
			scope = s.selectedRecordsLocked()
		}
		if len(scope) == 0 {
			return &GateError{From: from, To: StepPurchase, Message: "select at least one shipment"}
		}
		for i := range scope {
			if scope[i].ShippingService == "" {
				return &GateError{From: from, To: StepPurchase, Message: "assign a shipping service to every shipment before purchase"}
			}
		}
		s.step = StepPurchase
	case StepPurchase:
		return &GateError{From: from, To: from, Message: "already at the final step"}
	}
	return nil
}

// GoTo jumps to a lower (or the current) step unconditionally. Skipping
// ahead is refused. Leaving the Purchase step for Upload resets the record
// set, selection, and step; that is the only reset path.
func (s *Store) GoTo(target Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if target < StepUpload || target > StepPurchase {
		return &GateError{From: s.step, To: target, Message: "unknown step"}
	}
	if target > s.step {
		return &GateError{From: s.step, To: target, Message: "cannot skip ahead; complete the current step first"}
	}
	if s.step == StepPurchase && target == StepUpload {
		s.records = nil
		s.selection = nil
	}
	s.step = target
	return nil
}

// Reset returns the store to an empty Upload state. The profile and saved
// templates survive; they belong to the user, not the batch.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.selection = nil
	s.step = StepUpload
}
