/*
Package ledger implements the balance-ledger engine for the back office.

PURPOSE:
  This package contains the amount-calculation rules and balance-mutation
  recipes for invoice and ticket issuance. Money can be drawn from up to
  three pools per document: the billed party's deposit, an agent's credit
  line, and one of the vendor's two pools. Every mutation is paired with an
  immutable transaction row carrying the resulting balance.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money helpers: decimal arithmetic, never float64
  - PartySnapshot: tagged customer/agent view used by calculations
  - DepositTransaction / VendorTransaction: append-only ledger rows
  - Invoice / Ticket: issued documents with sequential numbers

DESIGN PRINCIPLES:
  1. Purity: amount calculation never touches a store
  2. Precision: decimal.Decimal for all monetary values
  3. Caps: every deduction is min(pool, residual owed), floored at zero
  4. Auditability: each mutation appends a row with the balance after it

SEE ALSO:
  - invoice.go: Invoice amount calculation
  - ticket.go: Ticket amount calculation
  - engine.go: Commit path applying mutations atomically
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY HELPERS
// =============================================================================

// Zero is the zero monetary amount.
var Zero = decimal.Zero

// Amount builds a decimal from a float. Convenience for tests and seeds.
func Amount(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// MinAmount returns the smaller of a and b.
func MinAmount(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// capDeduction returns how much of owed can be taken from pool:
// min(pool, owed), never negative. A zero or negative pool yields zero,
// which is how an exhausted balance is skipped silently.
func capDeduction(pool, owed decimal.Decimal) decimal.Decimal {
	if pool.IsNegative() || owed.IsNegative() {
		return Zero
	}
	return MinAmount(pool, owed)
}

// =============================================================================
// PARTIES
// =============================================================================

// PartyKind tags which ledger a billed party belongs to.
type PartyKind string

const (
	PartyCustomer PartyKind = "customer"
	PartyAgent    PartyKind = "agent"
)

// Customer holds a pre-paid deposit the house can draw down.
type Customer struct {
	ID             string
	Name           string
	Phone          string
	Email          string
	DepositBalance decimal.Decimal
	CreatedAt      time.Time
}

// Agent has both a deposit pool (funds pre-paid to the house) and a credit
// line (credit extended to the agent, decremented as it is used).
type Agent struct {
	ID             string
	Name           string
	Phone          string
	CreditBalance  decimal.Decimal
	DepositBalance decimal.Decimal
	CreatedAt      time.Time
}

// Airline is a carrier a vendor can issue for.
type Airline struct {
	Name string
	Code string
}

// Vendor supplies tickets. CreditBalance is credit the vendor extends to the
// house; DepositBalance is house money parked with the vendor.
type Vendor struct {
	ID             string
	Name           string
	Phone          string
	CreditBalance  decimal.Decimal
	DepositBalance decimal.Decimal
	Airlines       []Airline
	CreatedAt      time.Time
}

// PartySnapshot is the calculation-time view of the billed party.
// CreditBalance is only meaningful when Kind is PartyAgent; the tag replaces
// the ad-hoc duck typing of sharing fields between customer and agent.
type PartySnapshot struct {
	Kind           PartyKind
	ID             string
	DepositBalance decimal.Decimal
	CreditBalance  decimal.Decimal
}

// SnapshotCustomer builds a PartySnapshot from a customer record.
func SnapshotCustomer(c *Customer) PartySnapshot {
	return PartySnapshot{Kind: PartyCustomer, ID: c.ID, DepositBalance: c.DepositBalance}
}

// SnapshotAgent builds a PartySnapshot from an agent record.
func SnapshotAgent(a *Agent) PartySnapshot {
	return PartySnapshot{
		Kind:           PartyAgent,
		ID:             a.ID,
		DepositBalance: a.DepositBalance,
		CreditBalance:  a.CreditBalance,
	}
}

// =============================================================================
// VENDOR POOL SELECTION
// =============================================================================

// VendorPool selects which vendor pool an issuance settles against.
type VendorPool string

const (
	// VendorPoolNone means no vendor deduction. The invoice flow treats this
	// as a no-op; the ticket flow accrues the vendor cost as new credit owed.
	VendorPoolNone    VendorPool = "none"
	VendorPoolCredit  VendorPool = "credit"
	VendorPoolDeposit VendorPool = "deposit"
)

// Valid reports whether p is a recognized pool selection.
func (p VendorPool) Valid() bool {
	switch p {
	case VendorPoolNone, VendorPoolCredit, VendorPoolDeposit:
		return true
	}
	return false
}

// BalancePool names which pool a transaction row touched.
type BalancePool string

const (
	PoolDeposit BalancePool = "deposit"
	PoolCredit  BalancePool = "credit"
)

// =============================================================================
// TRANSACTIONS - Append-only ledger rows
// =============================================================================

// TxType is the direction of a ledger row.
type TxType string

const (
	TxCredit TxType = "credit" // balance increased
	TxDebit  TxType = "debit"  // balance decreased
)

// ReferenceType links a transaction back to its causing event.
type ReferenceType string

const (
	RefInvoice    ReferenceType = "invoice"
	RefTicket     ReferenceType = "ticket"
	RefTopUp      ReferenceType = "topup"
	RefAdjustment ReferenceType = "adjustment"
)

// DepositTransaction records a change to a customer or agent pool.
// BalanceAfter is the materialized running total, written exactly once,
// atomically with the balance mutation it records.
type DepositTransaction struct {
	ID            string
	PartyKind     PartyKind
	PartyID       string
	Pool          BalancePool
	Type          TxType
	Amount        decimal.Decimal
	BalanceAfter  decimal.Decimal
	ReferenceType ReferenceType
	ReferenceID   string
	Note          string
	CreatedAt     time.Time
}

// VendorTransaction records a change to one of a vendor's pools.
type VendorTransaction struct {
	ID            string
	VendorID      string
	Pool          BalancePool
	Type          TxType
	Amount        decimal.Decimal
	BalanceAfter  decimal.Decimal
	ReferenceType ReferenceType
	ReferenceID   string
	Note          string
	CreatedAt     time.Time
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// DocumentStatus tracks the post-issuance lifecycle. Financial fields are
// immutable after creation; only status and payment fields may change.
type DocumentStatus string

const (
	StatusIssued DocumentStatus = "issued"
	StatusPaid   DocumentStatus = "paid"
)

// InvoiceItem is one billed line.
type InvoiceItem struct {
	Sector string
	Amount decimal.Decimal
}

// Invoice is an issued sales document. InvoiceNumber is sequential and
// house-unique ("INV-<n>").
type Invoice struct {
	ID                    string
	InvoiceNumber         string
	CustomerType          PartyKind
	CustomerID            string
	VendorID              string
	Items                 []InvoiceItem
	Subtotal              decimal.Decimal
	DiscountPercent       decimal.Decimal
	DiscountAmount        decimal.Decimal
	DepositUsed           decimal.Decimal
	AgentCreditUsed       decimal.Decimal
	UseVendorBalance      VendorPool
	VendorBalanceDeducted decimal.Decimal
	VendorCost            decimal.Decimal
	Total                 decimal.Decimal
	PaymentMethod         string
	Status                DocumentStatus
	CreatedAt             time.Time
	PaidAt                *time.Time
	PaidBy                string
}

// Ticket is an issued air ticket ("TKT-<n>"). VendorID empty means the
// ticket was bought direct from the airline.
type Ticket struct {
	ID                    string
	TicketNumber          string
	CustomerID            string
	VendorID              string
	Passengers            int
	FaceValue             decimal.Decimal
	MCAddition            decimal.Decimal
	DepositDeducted       decimal.Decimal
	AmountDue             decimal.Decimal
	VendorCost            decimal.Decimal
	UseVendorBalance      VendorPool
	VendorBalanceDeducted decimal.Decimal
	Status                DocumentStatus
	IsPaid                bool
	CreatedAt             time.Time
	PaidAt                *time.Time
	PaidBy                string
}

// PerPassenger derives the display-only per-person figure. The billed total
// is never divided by passenger count.
func (t *Ticket) PerPassenger() decimal.Decimal {
	if t.Passengers <= 0 {
		return t.FaceValue
	}
	return t.FaceValue.Div(decimal.NewFromInt(int64(t.Passengers)))
}
