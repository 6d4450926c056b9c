/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.TxStore plus the list/query methods the API layer needs.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

APPEND-ONLY ENFORCEMENT:
  The two transaction tables have no UPDATE or DELETE statements anywhere in
  this package. Corrections happen through compensating rows.

KEY TABLES:
  customers / agents / vendors:  Party records with balance columns
  deposit_transactions:          Immutable customer/agent ledger
  vendor_transactions:           Immutable vendor ledger
  invoices / tickets:            Issued documents (financials write-once)
  counters:                      Document number sequences

SEQUENCES:
  The counters table replaces in-process counters. Each counter is seeded
  from the existing document maximum at migration time and incremented with
  a single UPDATE inside the caller's transaction, so numbers never repeat
  across restarts.

CONCURRENCY:
  sync.RWMutex serializes writers; WithTx holds the write lock for the whole
  read-modify-write sequence, which is what makes the engine's balance caps
  race-free. Internal helpers take a queryer and never lock, so they run the
  same against *sql.DB and *sql.Tx.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better read
  concurrency and crash recovery.

USAGE:
  store, err := sqlite.New("./data/backoffice.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := ledger.NewEngine(store)

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/engine.go: The commit paths running inside WithTx
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/skytrail/backoffice/ledger"
)

// Store implements ledger.TxStore and the API-facing query methods.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// queryer is satisfied by both *sql.DB and *sql.Tx so the internal helpers
// work inside and outside transactions.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema and seeds the document counters from
// the existing maximums.
func (s *Store) migrate() error {
	schema := `
	-- Parties
	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT NOT NULL,
		email TEXT,
		deposit_balance TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_customers_phone ON customers(phone);

	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT NOT NULL,
		credit_balance TEXT NOT NULL DEFAULT '0',
		deposit_balance TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_agents_phone ON agents(phone);

	CREATE TABLE IF NOT EXISTS vendors (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT,
		credit_balance TEXT NOT NULL DEFAULT '0',
		deposit_balance TEXT NOT NULL DEFAULT '0',
		airlines_json TEXT,
		created_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_vendors_name ON vendors(name);

	-- Deposit/credit ledger for customers and agents (append-only)
	CREATE TABLE IF NOT EXISTS deposit_transactions (
		id TEXT PRIMARY KEY,
		party_kind TEXT NOT NULL,
		party_id TEXT NOT NULL,
		pool TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		reference_type TEXT,
		reference_id TEXT,
		note TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_deposit_tx_party
		ON deposit_transactions(party_kind, party_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_deposit_tx_reference
		ON deposit_transactions(reference_id);

	-- Vendor ledger (append-only)
	CREATE TABLE IF NOT EXISTS vendor_transactions (
		id TEXT PRIMARY KEY,
		vendor_id TEXT NOT NULL,
		pool TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		reference_type TEXT,
		reference_id TEXT,
		note TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_vendor_tx_vendor
		ON vendor_transactions(vendor_id, created_at);

	-- Invoices
	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		invoice_number TEXT NOT NULL UNIQUE,
		customer_type TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		vendor_id TEXT,
		items_json TEXT NOT NULL,
		subtotal TEXT NOT NULL,
		discount_percent TEXT NOT NULL,
		discount_amount TEXT NOT NULL,
		deposit_used TEXT NOT NULL,
		agent_credit_used TEXT NOT NULL,
		use_vendor_balance TEXT NOT NULL,
		vendor_balance_deducted TEXT NOT NULL,
		vendor_cost TEXT NOT NULL,
		total TEXT NOT NULL,
		payment_method TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		paid_at TEXT,
		paid_by TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_invoices_customer ON invoices(customer_id);
	CREATE INDEX IF NOT EXISTS idx_invoices_vendor ON invoices(vendor_id);
	CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices(status);

	-- Tickets
	CREATE TABLE IF NOT EXISTS tickets (
		id TEXT PRIMARY KEY,
		ticket_number TEXT NOT NULL UNIQUE,
		customer_id TEXT NOT NULL,
		vendor_id TEXT,
		passengers INTEGER NOT NULL,
		face_value TEXT NOT NULL,
		mc_addition TEXT NOT NULL,
		deposit_deducted TEXT NOT NULL,
		amount_due TEXT NOT NULL,
		vendor_cost TEXT NOT NULL,
		use_vendor_balance TEXT NOT NULL,
		vendor_balance_deducted TEXT NOT NULL,
		status TEXT NOT NULL,
		is_paid INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		paid_at TEXT,
		paid_by TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_tickets_customer ON tickets(customer_id);
	CREATE INDEX IF NOT EXISTS idx_tickets_vendor ON tickets(vendor_id);

	-- Document number sequences
	CREATE TABLE IF NOT EXISTS counters (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Raise counters to the existing document maximums so a restart against
	// an existing database never reissues a number.
	seed := `
	INSERT INTO counters (name, value) VALUES ('invoice', 0) ON CONFLICT(name) DO NOTHING;
	INSERT INTO counters (name, value) VALUES ('ticket', 0) ON CONFLICT(name) DO NOTHING;

	UPDATE counters SET value = MAX(value,
		(SELECT COALESCE(MAX(CAST(SUBSTR(invoice_number, 5) AS INTEGER)), 0) FROM invoices))
	WHERE name = 'invoice';

	UPDATE counters SET value = MAX(value,
		(SELECT COALESCE(MAX(CAST(SUBSTR(ticket_number, 5) AS INTEGER)), 0) FROM tickets))
	WHERE name = 'ticket';
	`
	_, err := s.db.Exec(seed)
	return err
}

// =============================================================================
// CUSTOMERS
// =============================================================================

// SaveCustomer inserts a customer. A phone collision surfaces as a
// DuplicatePartyError.
func (s *Store) SaveCustomer(ctx context.Context, c ledger.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, email, deposit_balance, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Phone, c.Email,
		c.DepositBalance.String(),
		createdAtOrNow(c.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &ledger.DuplicatePartyError{Kind: "customer", Field: "phone", Value: c.Phone}
		}
		return fmt.Errorf("failed to save customer: %w", err)
	}
	return nil
}

// UpdateCustomerContact updates the non-financial fields of a customer.
func (s *Store) UpdateCustomerContact(ctx context.Context, id, name, phone, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE customers SET name = ?, phone = ?, email = ? WHERE id = ?",
		name, phone, email, id,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &ledger.DuplicatePartyError{Kind: "customer", Field: "phone", Value: phone}
		}
		return err
	}
	return requireRow(res, "customer", id)
}

// GetCustomer retrieves a customer by ID. Returns (nil, nil) when missing.
func (s *Store) GetCustomer(ctx context.Context, id string) (*ledger.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCustomer(ctx, s.db, id)
}

func getCustomer(ctx context.Context, q queryer, id string) (*ledger.Customer, error) {
	row := q.QueryRowContext(ctx,
		"SELECT id, name, phone, email, deposit_balance, created_at FROM customers WHERE id = ?", id)
	return scanCustomer(row)
}

// GetCustomerByPhone looks up a customer for duplicate checking.
func (s *Store) GetCustomerByPhone(ctx context.Context, phone string) (*ledger.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, phone, email, deposit_balance, created_at FROM customers WHERE phone = ?", phone)
	return scanCustomer(row)
}

func scanCustomer(row *sql.Row) (*ledger.Customer, error) {
	var c ledger.Customer
	var email sql.NullString
	var deposit, createdAt string

	err := row.Scan(&c.ID, &c.Name, &c.Phone, &email, &deposit, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.Email = email.String
	c.DepositBalance = parseDecimal(deposit)
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

// ListCustomers returns all customers ordered by name.
func (s *Store) ListCustomers(ctx context.Context) ([]ledger.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, phone, email, deposit_balance, created_at FROM customers ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []ledger.Customer
	for rows.Next() {
		var c ledger.Customer
		var email sql.NullString
		var deposit, createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &email, &deposit, &createdAt); err != nil {
			return nil, err
		}
		c.Email = email.String
		c.DepositBalance = parseDecimal(deposit)
		c.CreatedAt = parseTime(createdAt)
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// DeleteCustomer removes a customer record. The transaction log is never
// touched.
func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM customers WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRow(res, "customer", id)
}

// SetCustomerDeposit writes a customer's new deposit balance.
func (s *Store) SetCustomerDeposit(ctx context.Context, id string, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setCustomerDeposit(ctx, s.db, id, balance)
}

func setCustomerDeposit(ctx context.Context, q queryer, id string, balance decimal.Decimal) error {
	res, err := q.ExecContext(ctx,
		"UPDATE customers SET deposit_balance = ? WHERE id = ?", balance.String(), id)
	if err != nil {
		return err
	}
	return requireRow(res, "customer", id)
}

// =============================================================================
// AGENTS
// =============================================================================

// SaveAgent inserts an agent.
func (s *Store) SaveAgent(ctx context.Context, a ledger.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agents (id, name, phone, credit_balance, deposit_balance, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Phone,
		a.CreditBalance.String(), a.DepositBalance.String(),
		createdAtOrNow(a.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &ledger.DuplicatePartyError{Kind: "agent", Field: "phone", Value: a.Phone}
		}
		return fmt.Errorf("failed to save agent: %w", err)
	}
	return nil
}

// UpdateAgentContact updates the non-financial fields of an agent.
func (s *Store) UpdateAgentContact(ctx context.Context, id, name, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE agents SET name = ?, phone = ? WHERE id = ?", name, phone, id)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &ledger.DuplicatePartyError{Kind: "agent", Field: "phone", Value: phone}
		}
		return err
	}
	return requireRow(res, "agent", id)
}

// GetAgent retrieves an agent by ID. Returns (nil, nil) when missing.
func (s *Store) GetAgent(ctx context.Context, id string) (*ledger.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAgent(ctx, s.db, id)
}

func getAgent(ctx context.Context, q queryer, id string) (*ledger.Agent, error) {
	row := q.QueryRowContext(ctx,
		"SELECT id, name, phone, credit_balance, deposit_balance, created_at FROM agents WHERE id = ?", id)
	return scanAgent(row)
}

// GetAgentByPhone looks up an agent for duplicate checking.
func (s *Store) GetAgentByPhone(ctx context.Context, phone string) (*ledger.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, phone, credit_balance, deposit_balance, created_at FROM agents WHERE phone = ?", phone)
	return scanAgent(row)
}

func scanAgent(row *sql.Row) (*ledger.Agent, error) {
	var a ledger.Agent
	var credit, deposit, createdAt string

	err := row.Scan(&a.ID, &a.Name, &a.Phone, &credit, &deposit, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	a.CreditBalance = parseDecimal(credit)
	a.DepositBalance = parseDecimal(deposit)
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

// ListAgents returns all agents ordered by name.
func (s *Store) ListAgents(ctx context.Context) ([]ledger.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, phone, credit_balance, deposit_balance, created_at FROM agents ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []ledger.Agent
	for rows.Next() {
		var a ledger.Agent
		var credit, deposit, createdAt string
		if err := rows.Scan(&a.ID, &a.Name, &a.Phone, &credit, &deposit, &createdAt); err != nil {
			return nil, err
		}
		a.CreditBalance = parseDecimal(credit)
		a.DepositBalance = parseDecimal(deposit)
		a.CreatedAt = parseTime(createdAt)
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// DeleteAgent removes an agent record.
func (s *Store) DeleteAgent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM agents WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRow(res, "agent", id)
}

// SetAgentBalances writes an agent's new deposit and credit balances.
func (s *Store) SetAgentBalances(ctx context.Context, id string, deposit, credit decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setAgentBalances(ctx, s.db, id, deposit, credit)
}

func setAgentBalances(ctx context.Context, q queryer, id string, deposit, credit decimal.Decimal) error {
	res, err := q.ExecContext(ctx,
		"UPDATE agents SET deposit_balance = ?, credit_balance = ? WHERE id = ?",
		deposit.String(), credit.String(), id)
	if err != nil {
		return err
	}
	return requireRow(res, "agent", id)
}

// =============================================================================
// VENDORS
// =============================================================================

// SaveVendor inserts a vendor. A name collision surfaces as a
// DuplicatePartyError.
func (s *Store) SaveVendor(ctx context.Context, v ledger.Vendor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	airlinesJSON, _ := json.Marshal(v.Airlines)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vendors (id, name, phone, credit_balance, deposit_balance, airlines_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Name, v.Phone,
		v.CreditBalance.String(), v.DepositBalance.String(),
		string(airlinesJSON),
		createdAtOrNow(v.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &ledger.DuplicatePartyError{Kind: "vendor", Field: "name", Value: v.Name}
		}
		return fmt.Errorf("failed to save vendor: %w", err)
	}
	return nil
}

// UpdateVendorContact updates the non-financial fields of a vendor,
// including its airline list.
func (s *Store) UpdateVendorContact(ctx context.Context, id, name, phone string, airlines []ledger.Airline) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	airlinesJSON, _ := json.Marshal(airlines)
	res, err := s.db.ExecContext(ctx,
		"UPDATE vendors SET name = ?, phone = ?, airlines_json = ? WHERE id = ?",
		name, phone, string(airlinesJSON), id)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &ledger.DuplicatePartyError{Kind: "vendor", Field: "name", Value: name}
		}
		return err
	}
	return requireRow(res, "vendor", id)
}

// GetVendor retrieves a vendor by ID. Returns (nil, nil) when missing.
func (s *Store) GetVendor(ctx context.Context, id string) (*ledger.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getVendor(ctx, s.db, id)
}

func getVendor(ctx context.Context, q queryer, id string) (*ledger.Vendor, error) {
	row := q.QueryRowContext(ctx,
		"SELECT id, name, phone, credit_balance, deposit_balance, airlines_json, created_at FROM vendors WHERE id = ?", id)
	return scanVendor(row)
}

// GetVendorByName looks up a vendor for duplicate checking.
func (s *Store) GetVendorByName(ctx context.Context, name string) (*ledger.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, phone, credit_balance, deposit_balance, airlines_json, created_at FROM vendors WHERE name = ?", name)
	return scanVendor(row)
}

func scanVendor(row *sql.Row) (*ledger.Vendor, error) {
	var v ledger.Vendor
	var phone, airlinesJSON sql.NullString
	var credit, deposit, createdAt string

	err := row.Scan(&v.ID, &v.Name, &phone, &credit, &deposit, &airlinesJSON, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	v.Phone = phone.String
	v.CreditBalance = parseDecimal(credit)
	v.DepositBalance = parseDecimal(deposit)
	v.CreatedAt = parseTime(createdAt)
	if airlinesJSON.Valid && airlinesJSON.String != "" {
		json.Unmarshal([]byte(airlinesJSON.String), &v.Airlines)
	}
	return &v, nil
}

// ListVendors returns all vendors ordered by name.
func (s *Store) ListVendors(ctx context.Context) ([]ledger.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, phone, credit_balance, deposit_balance, airlines_json, created_at FROM vendors ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vendors []ledger.Vendor
	for rows.Next() {
		var v ledger.Vendor
		var phone, airlinesJSON sql.NullString
		var credit, deposit, createdAt string
		if err := rows.Scan(&v.ID, &v.Name, &phone, &credit, &deposit, &airlinesJSON, &createdAt); err != nil {
			return nil, err
		}
		v.Phone = phone.String
		v.CreditBalance = parseDecimal(credit)
		v.DepositBalance = parseDecimal(deposit)
		v.CreatedAt = parseTime(createdAt)
		if airlinesJSON.Valid && airlinesJSON.String != "" {
			json.Unmarshal([]byte(airlinesJSON.String), &v.Airlines)
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

// DeleteVendor removes a vendor record.
func (s *Store) DeleteVendor(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM vendors WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRow(res, "vendor", id)
}

// SetVendorBalances writes a vendor's new pool balances.
func (s *Store) SetVendorBalances(ctx context.Context, id string, credit, deposit decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setVendorBalances(ctx, s.db, id, credit, deposit)
}

func setVendorBalances(ctx context.Context, q queryer, id string, credit, deposit decimal.Decimal) error {
	res, err := q.ExecContext(ctx,
		"UPDATE vendors SET credit_balance = ?, deposit_balance = ? WHERE id = ?",
		credit.String(), deposit.String(), id)
	if err != nil {
		return err
	}
	return requireRow(res, "vendor", id)
}

// =============================================================================
// DEPOSIT TRANSACTIONS (append-only)
// =============================================================================

// AppendDepositTransaction persists a customer/agent ledger row.
func (s *Store) AppendDepositTransaction(ctx context.Context, tx ledger.DepositTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendDepositTx(ctx, s.db, tx)
}

func appendDepositTx(ctx context.Context, q queryer, tx ledger.DepositTransaction) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO deposit_transactions
		(id, party_kind, party_id, pool, tx_type, amount, balance_after,
		 reference_type, reference_id, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.PartyKind, tx.PartyID, tx.Pool, tx.Type,
		tx.Amount.String(), tx.BalanceAfter.String(),
		nullString(string(tx.ReferenceType)), nullString(tx.ReferenceID),
		nullString(tx.Note),
		createdAtOrNow(tx.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append deposit transaction: %w", err)
	}
	return nil
}

// ListDepositTransactions returns the ledger rows for a party in creation
// order.
func (s *Store) ListDepositTransactions(ctx context.Context, kind ledger.PartyKind, partyID string) ([]ledger.DepositTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, party_kind, party_id, pool, tx_type, amount, balance_after,
		       reference_type, reference_id, note, created_at
		FROM deposit_transactions
		WHERE party_kind = ? AND party_id = ?
		ORDER BY rowid ASC`,
		kind, partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []ledger.DepositTransaction
	for rows.Next() {
		var tx ledger.DepositTransaction
		var amount, balanceAfter, createdAt string
		var refType, refID, note sql.NullString
		if err := rows.Scan(&tx.ID, &tx.PartyKind, &tx.PartyID, &tx.Pool, &tx.Type,
			&amount, &balanceAfter, &refType, &refID, &note, &createdAt); err != nil {
			return nil, err
		}
		tx.Amount = parseDecimal(amount)
		tx.BalanceAfter = parseDecimal(balanceAfter)
		tx.ReferenceType = ledger.ReferenceType(refType.String)
		tx.ReferenceID = refID.String
		tx.Note = note.String
		tx.CreatedAt = parseTime(createdAt)
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// =============================================================================
// VENDOR TRANSACTIONS (append-only)
// =============================================================================

// AppendVendorTransaction persists a vendor ledger row.
func (s *Store) AppendVendorTransaction(ctx context.Context, tx ledger.VendorTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendVendorTx(ctx, s.db, tx)
}

func appendVendorTx(ctx context.Context, q queryer, tx ledger.VendorTransaction) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO vendor_transactions
		(id, vendor_id, pool, tx_type, amount, balance_after,
		 reference_type, reference_id, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.VendorID, tx.Pool, tx.Type,
		tx.Amount.String(), tx.BalanceAfter.String(),
		nullString(string(tx.ReferenceType)), nullString(tx.ReferenceID),
		nullString(tx.Note),
		createdAtOrNow(tx.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append vendor transaction: %w", err)
	}
	return nil
}

// ListVendorTransactions returns the ledger rows for a vendor in creation
// order.
func (s *Store) ListVendorTransactions(ctx context.Context, vendorID string) ([]ledger.VendorTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, vendor_id, pool, tx_type, amount, balance_after,
		       reference_type, reference_id, note, created_at
		FROM vendor_transactions
		WHERE vendor_id = ?
		ORDER BY rowid ASC`,
		vendorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []ledger.VendorTransaction
	for rows.Next() {
		var tx ledger.VendorTransaction
		var amount, balanceAfter, createdAt string
		var refType, refID, note sql.NullString
		if err := rows.Scan(&tx.ID, &tx.VendorID, &tx.Pool, &tx.Type,
			&amount, &balanceAfter, &refType, &refID, &note, &createdAt); err != nil {
			return nil, err
		}
		tx.Amount = parseDecimal(amount)
		tx.BalanceAfter = parseDecimal(balanceAfter)
		tx.ReferenceType = ledger.ReferenceType(refType.String)
		tx.ReferenceID = refID.String
		tx.Note = note.String
		tx.CreatedAt = parseTime(createdAt)
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// =============================================================================
// INVOICES
// =============================================================================

const invoiceColumns = `id, invoice_number, customer_type, customer_id, vendor_id, items_json,
	subtotal, discount_percent, discount_amount, deposit_used, agent_credit_used,
	use_vendor_balance, vendor_balance_deducted, vendor_cost, total,
	payment_method, status, created_at, paid_at, paid_by`

// SaveInvoice persists a new invoice. Financial fields are written once and
// never updated.
func (s *Store) SaveInvoice(ctx context.Context, inv ledger.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveInvoice(ctx, s.db, inv)
}

func saveInvoice(ctx context.Context, q queryer, inv ledger.Invoice) error {
	itemsJSON, _ := json.Marshal(inv.Items)
	_, err := q.ExecContext(ctx, `
		INSERT INTO invoices (`+invoiceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.InvoiceNumber, inv.CustomerType, inv.CustomerID,
		nullString(inv.VendorID), string(itemsJSON),
		inv.Subtotal.String(), inv.DiscountPercent.String(), inv.DiscountAmount.String(),
		inv.DepositUsed.String(), inv.AgentCreditUsed.String(),
		inv.UseVendorBalance, inv.VendorBalanceDeducted.String(), inv.VendorCost.String(),
		inv.Total.String(),
		nullString(inv.PaymentMethod), inv.Status,
		createdAtOrNow(inv.CreatedAt),
		nullTime(inv.PaidAt), nullString(inv.PaidBy),
	)
	if err != nil {
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	return nil
}

// GetInvoice retrieves an invoice by ID. Returns (nil, nil) when missing.
func (s *Store) GetInvoice(ctx context.Context, id string) (*ledger.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getInvoice(ctx, s.db, id)
}

func getInvoice(ctx context.Context, q queryer, id string) (*ledger.Invoice, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+invoiceColumns+" FROM invoices WHERE id = ?", id)
	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for the document scanners.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*ledger.Invoice, error) {
	var inv ledger.Invoice
	var vendorID, paymentMethod, paidAt, paidBy sql.NullString
	var itemsJSON, subtotal, discountPercent, discountAmount string
	var depositUsed, agentCreditUsed, vendorDeducted, vendorCost, total string
	var createdAt string

	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.CustomerType, &inv.CustomerID,
		&vendorID, &itemsJSON,
		&subtotal, &discountPercent, &discountAmount,
		&depositUsed, &agentCreditUsed,
		&inv.UseVendorBalance, &vendorDeducted, &vendorCost, &total,
		&paymentMethod, &inv.Status, &createdAt, &paidAt, &paidBy)
	if err != nil {
		return nil, err
	}

	inv.VendorID = vendorID.String
	json.Unmarshal([]byte(itemsJSON), &inv.Items)
	inv.Subtotal = parseDecimal(subtotal)
	inv.DiscountPercent = parseDecimal(discountPercent)
	inv.DiscountAmount = parseDecimal(discountAmount)
	inv.DepositUsed = parseDecimal(depositUsed)
	inv.AgentCreditUsed = parseDecimal(agentCreditUsed)
	inv.VendorBalanceDeducted = parseDecimal(vendorDeducted)
	inv.VendorCost = parseDecimal(vendorCost)
	inv.Total = parseDecimal(total)
	inv.PaymentMethod = paymentMethod.String
	inv.CreatedAt = parseTime(createdAt)
	inv.PaidBy = paidBy.String
	if paidAt.Valid && paidAt.String != "" {
		t := parseTime(paidAt.String)
		inv.PaidAt = &t
	}
	return &inv, nil
}

// ListInvoices returns all invoices, newest first.
func (s *Store) ListInvoices(ctx context.Context) ([]ledger.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+invoiceColumns+" FROM invoices ORDER BY created_at DESC, invoice_number DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []ledger.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

// MarkInvoicePaid flips an invoice to paid. Only the status and payment
// side fields change.
func (s *Store) MarkInvoicePaid(ctx context.Context, id string, paidBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return markInvoicePaid(ctx, s.db, id, paidBy)
}

func markInvoicePaid(ctx context.Context, q queryer, id, paidBy string) error {
	res, err := q.ExecContext(ctx,
		"UPDATE invoices SET status = ?, paid_at = ?, paid_by = ? WHERE id = ?",
		ledger.StatusPaid, time.Now().UTC().Format(time.RFC3339), paidBy, id)
	if err != nil {
		return err
	}
	return requireRow(res, "invoice", id)
}

// =============================================================================
// TICKETS
// =============================================================================

const ticketColumns = `id, ticket_number, customer_id, vendor_id, passengers,
	face_value, mc_addition, deposit_deducted, amount_due, vendor_cost,
	use_vendor_balance, vendor_balance_deducted, status, is_paid,
	created_at, paid_at, paid_by`

// SaveTicket persists a new ticket.
func (s *Store) SaveTicket(ctx context.Context, t ledger.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveTicket(ctx, s.db, t)
}

func saveTicket(ctx context.Context, q queryer, t ledger.Ticket) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO tickets (`+ticketColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.TicketNumber, t.CustomerID, nullString(t.VendorID), t.Passengers,
		t.FaceValue.String(), t.MCAddition.String(),
		t.DepositDeducted.String(), t.AmountDue.String(), t.VendorCost.String(),
		t.UseVendorBalance, t.VendorBalanceDeducted.String(),
		t.Status, boolToInt(t.IsPaid),
		createdAtOrNow(t.CreatedAt),
		nullTime(t.PaidAt), nullString(t.PaidBy),
	)
	if err != nil {
		return fmt.Errorf("failed to save ticket: %w", err)
	}
	return nil
}

// GetTicket retrieves a ticket by ID. Returns (nil, nil) when missing.
func (s *Store) GetTicket(ctx context.Context, id string) (*ledger.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getTicket(ctx, s.db, id)
}

func getTicket(ctx context.Context, q queryer, id string) (*ledger.Ticket, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+ticketColumns+" FROM tickets WHERE id = ?", id)
	t, err := scanTicket(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func scanTicket(row rowScanner) (*ledger.Ticket, error) {
	var t ledger.Ticket
	var vendorID, paidAt, paidBy sql.NullString
	var faceValue, mcAddition, depositDeducted, amountDue, vendorCost, vendorDeducted string
	var isPaid int
	var createdAt string

	err := row.Scan(&t.ID, &t.TicketNumber, &t.CustomerID, &vendorID, &t.Passengers,
		&faceValue, &mcAddition, &depositDeducted, &amountDue, &vendorCost,
		&t.UseVendorBalance, &vendorDeducted, &t.Status, &isPaid,
		&createdAt, &paidAt, &paidBy)
	if err != nil {
		return nil, err
	}

	t.VendorID = vendorID.String
	t.FaceValue = parseDecimal(faceValue)
	t.MCAddition = parseDecimal(mcAddition)
	t.DepositDeducted = parseDecimal(depositDeducted)
	t.AmountDue = parseDecimal(amountDue)
	t.VendorCost = parseDecimal(vendorCost)
	t.VendorBalanceDeducted = parseDecimal(vendorDeducted)
	t.IsPaid = isPaid != 0
	t.CreatedAt = parseTime(createdAt)
	t.PaidBy = paidBy.String
	if paidAt.Valid && paidAt.String != "" {
		pt := parseTime(paidAt.String)
		t.PaidAt = &pt
	}
	return &t, nil
}

// ListTickets returns all tickets, newest first.
func (s *Store) ListTickets(ctx context.Context) ([]ledger.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+ticketColumns+" FROM tickets ORDER BY created_at DESC, ticket_number DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []ledger.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

// MarkTicketPaid flips a ticket to paid.
func (s *Store) MarkTicketPaid(ctx context.Context, id string, paidBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return markTicketPaid(ctx, s.db, id, paidBy)
}

func markTicketPaid(ctx context.Context, q queryer, id, paidBy string) error {
	res, err := q.ExecContext(ctx,
		"UPDATE tickets SET status = ?, is_paid = 1, paid_at = ?, paid_by = ? WHERE id = ?",
		ledger.StatusPaid, time.Now().UTC().Format(time.RFC3339), paidBy, id)
	if err != nil {
		return err
	}
	return requireRow(res, "ticket", id)
}

// =============================================================================
// SEQUENCES
// =============================================================================

// NextSequence increments and returns the named counter. Callers inside
// WithTx get the increment in their transaction, so a rolled-back commit
// does not burn a number.
func (s *Store) NextSequence(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return nextSequence(ctx, s.db, name)
}

func nextSequence(ctx context.Context, q queryer, name string) (int64, error) {
	if _, err := q.ExecContext(ctx,
		"INSERT INTO counters (name, value) VALUES (?, 0) ON CONFLICT(name) DO NOTHING", name); err != nil {
		return 0, err
	}
	if _, err := q.ExecContext(ctx,
		"UPDATE counters SET value = value + 1 WHERE name = ?", name); err != nil {
		return 0, err
	}

	var value int64
	err := q.QueryRowContext(ctx,
		"SELECT value FROM counters WHERE name = ?", name).Scan(&value)
	if err != nil {
		return 0, err
	}
	return value, nil
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. The write lock is held
// for the duration, serializing every read-modify-write sequence.
func (s *Store) WithTx(ctx context.Context, fn func(store ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore routes ledger.Store calls through an open transaction. It holds
// no lock of its own; WithTx already owns the write lock.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetCustomer(ctx context.Context, id string) (*ledger.Customer, error) {
	return getCustomer(ctx, ts.tx, id)
}

func (ts *txStore) GetAgent(ctx context.Context, id string) (*ledger.Agent, error) {
	return getAgent(ctx, ts.tx, id)
}

func (ts *txStore) GetVendor(ctx context.Context, id string) (*ledger.Vendor, error) {
	return getVendor(ctx, ts.tx, id)
}

func (ts *txStore) SetCustomerDeposit(ctx context.Context, id string, balance decimal.Decimal) error {
	return setCustomerDeposit(ctx, ts.tx, id, balance)
}

func (ts *txStore) SetAgentBalances(ctx context.Context, id string, deposit, credit decimal.Decimal) error {
	return setAgentBalances(ctx, ts.tx, id, deposit, credit)
}

func (ts *txStore) SetVendorBalances(ctx context.Context, id string, credit, deposit decimal.Decimal) error {
	return setVendorBalances(ctx, ts.tx, id, credit, deposit)
}

func (ts *txStore) AppendDepositTransaction(ctx context.Context, tx ledger.DepositTransaction) error {
	return appendDepositTx(ctx, ts.tx, tx)
}

func (ts *txStore) AppendVendorTransaction(ctx context.Context, tx ledger.VendorTransaction) error {
	return appendVendorTx(ctx, ts.tx, tx)
}

func (ts *txStore) SaveInvoice(ctx context.Context, inv ledger.Invoice) error {
	return saveInvoice(ctx, ts.tx, inv)
}

func (ts *txStore) SaveTicket(ctx context.Context, t ledger.Ticket) error {
	return saveTicket(ctx, ts.tx, t)
}

func (ts *txStore) GetInvoice(ctx context.Context, id string) (*ledger.Invoice, error) {
	return getInvoice(ctx, ts.tx, id)
}

func (ts *txStore) GetTicket(ctx context.Context, id string) (*ledger.Ticket, error) {
	return getTicket(ctx, ts.tx, id)
}

func (ts *txStore) MarkInvoicePaid(ctx context.Context, id string, paidBy string) error {
	return markInvoicePaid(ctx, ts.tx, id, paidBy)
}

func (ts *txStore) MarkTicketPaid(ctx context.Context, id string, paidBy string) error {
	return markTicketPaid(ctx, ts.tx, id, paidBy)
}

func (ts *txStore) NextSequence(ctx context.Context, name string) (int64, error) {
	return nextSequence(ctx, ts.tx, name)
}

// =============================================================================
// UTILITY OPERATIONS
// =============================================================================

// Reset clears all data. Dev/demo tooling only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"deposit_transactions", "vendor_transactions",
		"invoices", "tickets",
		"customers", "agents", "vendors",
		"counters",
	}
	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func createdAtOrNow(t time.Time) string {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &ledger.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
