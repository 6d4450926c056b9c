/*
store.go - Persistence interfaces for parties, documents, and ledgers

PURPOSE:
  Defines the contract between the ledger engine and the database. The
  engine only ever talks to these interfaces; store/sqlite provides the
  concrete implementation.

APPEND-ONLY CONTRACT:
  The two transaction logs expose Append and read methods only. No Update,
  No Delete. Corrections are made with compensating rows.

ATOMICITY:
  TxStore.WithTx runs a function against a transactional view of the store.
  The commit paths in engine.go perform every balance read, balance write,
  log append, sequence increment, and document insert inside one WithTx
  call, so a partial failure rolls everything back.

SEE ALSO:
  - engine.go: The only consumer of these interfaces
  - store/sqlite/sqlite.go: Concrete implementation
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SEQUENCE NAMES
// =============================================================================

const (
	SeqInvoice = "invoice"
	SeqTicket  = "ticket"
)

// =============================================================================
// STORE - Everything the engine needs, transactional-friendly
// =============================================================================

// Store is the persistence surface the engine runs against. A nil entity
// with a nil error means "not found"; the engine turns that into a
// NotFoundError.
type Store interface {
	// Parties
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	GetAgent(ctx context.Context, id string) (*Agent, error)
	GetVendor(ctx context.Context, id string) (*Vendor, error)

	// Balance mutations. These write the new balance; the paired transaction
	// row is appended separately but inside the same WithTx.
	SetCustomerDeposit(ctx context.Context, id string, balance decimal.Decimal) error
	SetAgentBalances(ctx context.Context, id string, deposit, credit decimal.Decimal) error
	SetVendorBalances(ctx context.Context, id string, credit, deposit decimal.Decimal) error

	// Append-only transaction logs.
	AppendDepositTransaction(ctx context.Context, tx DepositTransaction) error
	AppendVendorTransaction(ctx context.Context, tx VendorTransaction) error

	// Documents. Financial fields are written once at creation; only the
	// payment fields change afterwards.
	SaveInvoice(ctx context.Context, inv Invoice) error
	SaveTicket(ctx context.Context, t Ticket) error
	GetInvoice(ctx context.Context, id string) (*Invoice, error)
	GetTicket(ctx context.Context, id string) (*Ticket, error)
	MarkInvoicePaid(ctx context.Context, id string, paidBy string) error
	MarkTicketPaid(ctx context.Context, id string, paidBy string) error

	// NextSequence returns the next integer for the named counter, unique
	// and increasing within its namespace. Counters are seeded from the
	// existing document maximum at migration time.
	NextSequence(ctx context.Context, name string) (int64, error)
}

// TxStore wraps Store with a transactional unit of work.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
