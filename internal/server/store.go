package server

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/Saraahamrr/bulk-shipping-platform/pkg/shipment"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned for ids unknown to the store.
var ErrNotFound = errors.New("not found")

// Store is the simulation server's sqlite-backed persistence layer. All
// rows are scoped to a username.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if necessary) the simulation database. Use
// ":memory:" for tests.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening simulation database: %w", err)
	}
	// Single connection keeps sqlite writes serialized.
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS users (
		username TEXT PRIMARY KEY,
		email    TEXT NOT NULL DEFAULT '',
		password TEXT NOT NULL,
		balance  REAL NOT NULL DEFAULT 1000
	);
	CREATE TABLE IF NOT EXISTS shipments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username   TEXT NOT NULL,
		session_id TEXT NOT NULL DEFAULT '',
		from_first_name TEXT NOT NULL DEFAULT '',
		from_last_name  TEXT NOT NULL DEFAULT '',
		from_address    TEXT NOT NULL DEFAULT '',
		from_address2   TEXT NOT NULL DEFAULT '',
		from_city       TEXT NOT NULL DEFAULT '',
		from_zip        TEXT NOT NULL DEFAULT '',
		from_state      TEXT NOT NULL DEFAULT '',
		to_first_name   TEXT NOT NULL DEFAULT '',
		to_last_name    TEXT NOT NULL DEFAULT '',
		to_address      TEXT NOT NULL DEFAULT '',
		to_address2     TEXT NOT NULL DEFAULT '',
		to_city         TEXT NOT NULL DEFAULT '',
		to_zip          TEXT NOT NULL DEFAULT '',
		to_state        TEXT NOT NULL DEFAULT '',
		weight_lbs INTEGER NOT NULL DEFAULT 0,
		weight_oz  INTEGER NOT NULL DEFAULT 0,
		length REAL NOT NULL DEFAULT 0,
		width  REAL NOT NULL DEFAULT 0,
		height REAL NOT NULL DEFAULT 0,
		phone_num1 TEXT NOT NULL DEFAULT '',
		phone_num2 TEXT NOT NULL DEFAULT '',
		order_no TEXT NOT NULL DEFAULT '',
		item_sku TEXT NOT NULL DEFAULT '',
		shipping_service TEXT NOT NULL DEFAULT '',
		shipping_price   REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending'
	);
	CREATE TABLE IF NOT EXISTS addresses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		name TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name  TEXT NOT NULL DEFAULT '',
		address_line1 TEXT NOT NULL DEFAULT '',
		address_line2 TEXT NOT NULL DEFAULT '',
		city  TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		zip_code TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		UNIQUE(username, name)
	);
	CREATE TABLE IF NOT EXISTS packages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		name TEXT NOT NULL,
		length REAL NOT NULL DEFAULT 0,
		width  REAL NOT NULL DEFAULT 0,
		height REAL NOT NULL DEFAULT 0,
		weight_lbs INTEGER NOT NULL DEFAULT 0,
		weight_oz  INTEGER NOT NULL DEFAULT 0,
		UNIQUE(username, name)
	);`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing simulation schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// ============================================================================
// Users
// ============================================================================

// CreateUser registers a user with the default starting balance.
func (s *Store) CreateUser(username, email, password string) error {
	_, err := s.db.Exec(
		`INSERT INTO users (username, email, password) VALUES (?, ?, ?)`,
		username, email, hashPassword(password),
	)
	if err != nil {
		return fmt.Errorf("creating user %s: %w", username, err)
	}
	return nil
}

// Authenticate checks the password and returns the user's profile.
func (s *Store) Authenticate(username, password string) (*shipment.Profile, error) {
	var stored string
	profile := shipment.Profile{Username: username}
	var balance float64
	err := s.db.QueryRow(
		`SELECT email, password, balance FROM users WHERE username = ?`, username,
	).Scan(&profile.Email, &stored, &balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if stored != hashPassword(password) {
		return nil, errors.New("invalid credentials")
	}
	profile.AccountBalance = shipment.Price(balance)
	return &profile, nil
}

// GetProfile returns a user's profile.
func (s *Store) GetProfile(username string) (*shipment.Profile, error) {
	profile := shipment.Profile{Username: username}
	var balance float64
	err := s.db.QueryRow(
		`SELECT email, balance FROM users WHERE username = ?`, username,
	).Scan(&profile.Email, &balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	profile.AccountBalance = shipment.Price(balance)
	return &profile, nil
}

// Debit subtracts amount from a user's balance.
func (s *Store) Debit(username string, amount shipment.Price) (shipment.Price, error) {
	_, err := s.db.Exec(
		`UPDATE users SET balance = balance - ? WHERE username = ?`,
		amount.Float(), username,
	)
	if err != nil {
		return 0, err
	}
	profile, err := s.GetProfile(username)
	if err != nil {
		return 0, err
	}
	return profile.AccountBalance, nil
}

// ============================================================================
// Shipments
// ============================================================================

const shipmentCols = `id, session_id, from_first_name, from_last_name, from_address,
	from_address2, from_city, from_zip, from_state, to_first_name, to_last_name,
	to_address, to_address2, to_city, to_zip, to_state, weight_lbs, weight_oz,
	length, width, height, phone_num1, phone_num2, order_no, item_sku,
	shipping_service, shipping_price, status`

func scanShipment(row interface{ Scan(...interface{}) error }) (shipment.ShipmentRecord, error) {
	var r shipment.ShipmentRecord
	var price float64
	err := row.Scan(
		&r.ID, &r.SessionID, &r.FromFirstName, &r.FromLastName, &r.FromAddress,
		&r.FromAddress2, &r.FromCity, &r.FromZip, &r.FromState, &r.ToFirstName,
		&r.ToLastName, &r.ToAddress, &r.ToAddress2, &r.ToCity, &r.ToZip, &r.ToState,
		&r.WeightLbs, &r.WeightOz, &r.Length, &r.Width, &r.Height, &r.PhoneNum1,
		&r.PhoneNum2, &r.OrderNo, &r.ItemSKU, &r.ShippingService, &price, &r.Status,
	)
	if err != nil {
		return r, err
	}
	r.ShippingPrice = shipment.Price(price)
	r.Refresh()
	return r, nil
}

// ListShipments returns every shipment for a user, newest first.
func (s *Store) ListShipments(username string) ([]shipment.ShipmentRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+shipmentCols+` FROM shipments WHERE username = ? ORDER BY id DESC`,
		username,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []shipment.ShipmentRecord
	for rows.Next() {
		r, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetShipment returns one shipment by id.
func (s *Store) GetShipment(username string, id int64) (*shipment.ShipmentRecord, error) {
	row := s.db.QueryRow(
		`SELECT `+shipmentCols+` FROM shipments WHERE username = ? AND id = ?`,
		username, id,
	)
	r, err := scanShipment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// InsertShipment stores a new record and assigns its id.
func (s *Store) InsertShipment(username string, r *shipment.ShipmentRecord) error {
	res, err := s.db.Exec(
		`INSERT INTO shipments (username, session_id, from_first_name, from_last_name,
			from_address, from_address2, from_city, from_zip, from_state,
			to_first_name, to_last_name, to_address, to_address2, to_city, to_zip,
			to_state, weight_lbs, weight_oz, length, width, height, phone_num1,
			phone_num2, order_no, item_sku, shipping_service, shipping_price, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		username, r.SessionID, r.FromFirstName, r.FromLastName, r.FromAddress,
		r.FromAddress2, r.FromCity, r.FromZip, r.FromState, r.ToFirstName,
		r.ToLastName, r.ToAddress, r.ToAddress2, r.ToCity, r.ToZip, r.ToState,
		r.WeightLbs, r.WeightOz, r.Length, r.Width, r.Height, r.PhoneNum1,
		r.PhoneNum2, r.OrderNo, r.ItemSKU, r.ShippingService,
		r.ShippingPrice.Float(), string(r.Status),
	)
	if err != nil {
		return err
	}
	r.ID, err = res.LastInsertId()
	return err
}

// SaveShipment writes a full record back.
func (s *Store) SaveShipment(username string, r *shipment.ShipmentRecord) error {
	_, err := s.db.Exec(
		`UPDATE shipments SET from_first_name=?, from_last_name=?, from_address=?,
			from_address2=?, from_city=?, from_zip=?, from_state=?, to_first_name=?,
			to_last_name=?, to_address=?, to_address2=?, to_city=?, to_zip=?,
			to_state=?, weight_lbs=?, weight_oz=?, length=?, width=?, height=?,
			phone_num1=?, phone_num2=?, order_no=?, item_sku=?, shipping_service=?,
			shipping_price=?, status=?
		 WHERE username=? AND id=?`,
		r.FromFirstName, r.FromLastName, r.FromAddress, r.FromAddress2, r.FromCity,
		r.FromZip, r.FromState, r.ToFirstName, r.ToLastName, r.ToAddress,
		r.ToAddress2, r.ToCity, r.ToZip, r.ToState, r.WeightLbs, r.WeightOz,
		r.Length, r.Width, r.Height, r.PhoneNum1, r.PhoneNum2, r.OrderNo,
		r.ItemSKU, r.ShippingService, r.ShippingPrice.Float(), string(r.Status),
		username, r.ID,
	)
	return err
}

// DeleteShipment removes one record.
func (s *Store) DeleteShipment(username string, id int64) error {
	res, err := s.db.Exec(`DELETE FROM shipments WHERE username = ? AND id = ?`, username, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteShipments removes many records, returning how many existed.
func (s *Store) DeleteShipments(username string, ids []int64) (int, error) {
	n := 0
	for _, id := range ids {
		if err := s.DeleteShipment(username, id); err == nil {
			n++
		} else if !errors.Is(err, ErrNotFound) {
			return n, err
		}
	}
	return n, nil
}

// DeleteAllShipments removes every record for a user.
func (s *Store) DeleteAllShipments(username string) (int, error) {
	res, err := s.db.Exec(`DELETE FROM shipments WHERE username = ?`, username)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ExistingIDs returns which of the given ids exist for the user.
func (s *Store) ExistingIDs(username string, ids []int64) (map[int64]bool, error) {
	existing := make(map[int64]bool, len(ids))
	for _, id := range ids {
		var one int
		err := s.db.QueryRow(
			`SELECT 1 FROM shipments WHERE username = ? AND id = ?`, username, id,
		).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		existing[id] = true
	}
	return existing, nil
}

// ============================================================================
// Saved addresses
// ============================================================================

// ListAddresses returns a user's saved addresses ordered by name.
func (s *Store) ListAddresses(username string) ([]shipment.SavedAddress, error) {
	rows, err := s.db.Query(
		`SELECT id, name, first_name, last_name, address_line1, address_line2,
			city, state, zip_code, phone
		 FROM addresses WHERE username = ? ORDER BY name`, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addrs []shipment.SavedAddress
	for rows.Next() {
		var a shipment.SavedAddress
		if err := rows.Scan(&a.ID, &a.Name, &a.FirstName, &a.LastName,
			&a.AddressLine1, &a.AddressLine2, &a.City, &a.State, &a.ZipCode, &a.Phone); err != nil {
			return nil, err
		}
		addrs = append(addrs, a)
	}
	return addrs, rows.Err()
}

// InsertAddress stores a new saved address.
func (s *Store) InsertAddress(username string, a *shipment.SavedAddress) error {
	res, err := s.db.Exec(
		`INSERT INTO addresses (username, name, first_name, last_name, address_line1,
			address_line2, city, state, zip_code, phone)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		username, a.Name, a.FirstName, a.LastName, a.AddressLine1, a.AddressLine2,
		a.City, a.State, a.ZipCode, a.Phone,
	)
	if err != nil {
		return err
	}
	a.ID, err = res.LastInsertId()
	return err
}

// UpdateAddress overwrites a saved address.
func (s *Store) UpdateAddress(username string, id int64, a *shipment.SavedAddress) error {
	res, err := s.db.Exec(
		`UPDATE addresses SET name=?, first_name=?, last_name=?, address_line1=?,
			address_line2=?, city=?, state=?, zip_code=?, phone=?
		 WHERE username=? AND id=?`,
		a.Name, a.FirstName, a.LastName, a.AddressLine1, a.AddressLine2,
		a.City, a.State, a.ZipCode, a.Phone, username, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	a.ID = id
	return nil
}

// DeleteAddress removes a saved address.
func (s *Store) DeleteAddress(username string, id int64) error {
	res, err := s.db.Exec(`DELETE FROM addresses WHERE username = ? AND id = ?`, username, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ============================================================================
// Saved packages
// ============================================================================

// ListPackages returns a user's saved packages ordered by name.
func (s *Store) ListPackages(username string) ([]shipment.SavedPackage, error) {
	rows, err := s.db.Query(
		`SELECT id, name, length, width, height, weight_lbs, weight_oz
		 FROM packages WHERE username = ? ORDER BY name`, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pkgs []shipment.SavedPackage
	for rows.Next() {
		var p shipment.SavedPackage
		if err := rows.Scan(&p.ID, &p.Name, &p.Length, &p.Width, &p.Height,
			&p.WeightLbs, &p.WeightOz); err != nil {
			return nil, err
		}
		pkgs = append(pkgs, p)
	}
	return pkgs, rows.Err()
}

// InsertPackage stores a new saved package.
func (s *Store) InsertPackage(username string, p *shipment.SavedPackage) error {
	res, err := s.db.Exec(
		`INSERT INTO packages (username, name, length, width, height, weight_lbs, weight_oz)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		username, p.Name, p.Length, p.Width, p.Height, p.WeightLbs, p.WeightOz,
	)
	if err != nil {
		return err
	}
	p.ID, err = res.LastInsertId()
	return err
}

// UpdatePackage overwrites a saved package.
func (s *Store) UpdatePackage(username string, id int64, p *shipment.SavedPackage) error {
	res, err := s.db.Exec(
		`UPDATE packages SET name=?, length=?, width=?, height=?, weight_lbs=?, weight_oz=?
		 WHERE username=? AND id=?`,
		p.Name, p.Length, p.Width, p.Height, p.WeightLbs, p.WeightOz, username, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	p.ID = id
	return nil
}

// DeletePackage removes a saved package.
func (s *Store) DeletePackage(username string, id int64) error {
	res, err := s.db.Exec(`DELETE FROM packages WHERE username = ? AND id = ?`, username, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
