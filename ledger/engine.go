/*
engine.go - Commit path: calculate, then mutate atomically

PURPOSE:
  The Engine turns a creation request into committed state: it re-reads the
  involved balances inside a store transaction, runs the pure calculation,
  and applies every mutation (balance writes, transaction rows, sequence
  allocation, document insert) in that same transaction.

WHY RE-READ INSIDE THE TRANSACTION:
  Two concurrent requests against the same party must not both deduct
  against the same stale balance. Reading and writing under one WithTx
  serializes the read-modify-write sequence, so the min() caps are always
  evaluated against the committed balance.

BALANCE-AFTER INVARIANT:
  Every transaction row carries the balance that resulted from it, written
  exactly once, in the same transaction as the balance mutation. Replaying
  rows from the initial balance reproduces every recorded BalanceAfter.

SEE ALSO:
  - invoice.go / ticket.go: The pure calculations
  - store.go: The persistence contract
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Engine commits invoices, tickets, and balance adjustments.
type Engine struct {
	store TxStore
	now   func() time.Time
}

// NewEngine creates an engine over the given transactional store.
func NewEngine(store TxStore) *Engine {
	return &Engine{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// =============================================================================
// INVOICE CREATION
// =============================================================================

// CreateInvoice is the commit-side request for a new invoice.
type CreateInvoice struct {
	CustomerType       PartyKind
	CustomerID         string
	VendorID           string
	Items              []InvoiceItem
	DiscountPercent    decimal.Decimal
	UseCustomerDeposit bool
	UseAgentCredit     bool
	UseVendorBalance   VendorPool
	VendorCost         decimal.Decimal
	PaymentMethod      string
}

// CommitInvoice calculates and persists an invoice plus all balance
// mutations, atomically. On any error nothing is written.
func (e *Engine) CommitInvoice(ctx context.Context, req CreateInvoice) (*Invoice, error) {
	if req.UseVendorBalance == "" {
		req.UseVendorBalance = VendorPoolNone
	}
	if req.CustomerID == "" {
		return nil, &ValidationError{Field: "customer_id", Message: "required"}
	}
	if req.CustomerType != PartyCustomer && req.CustomerType != PartyAgent {
		return nil, &ValidationError{Field: "customer_type", Message: "must be customer or agent"}
	}
	if len(req.Items) == 0 {
		return nil, &ValidationError{Field: "items", Message: "at least one line item required"}
	}

	var inv *Invoice
	err := e.store.WithTx(ctx, func(s Store) error {
		party, customer, agent, err := e.resolveParty(ctx, s, req.CustomerType, req.CustomerID)
		if err != nil {
			return err
		}
		vendor, err := e.resolveVendor(ctx, s, req.VendorID, req.UseVendorBalance)
		if err != nil {
			return err
		}

		amounts, err := CalculateInvoice(InvoiceInput{
			Items:              req.Items,
			DiscountPercent:    req.DiscountPercent,
			UseCustomerDeposit: req.UseCustomerDeposit,
			UseAgentCredit:     req.UseAgentCredit,
			UseVendorBalance:   req.UseVendorBalance,
			VendorCost:         req.VendorCost,
			Party:              &party,
			Vendor:             vendor,
		})
		if err != nil {
			return err
		}

		seq, err := s.NextSequence(ctx, SeqInvoice)
		if err != nil {
			return err
		}

		now := e.now()
		inv = &Invoice{
			ID:                    uuid.NewString(),
			InvoiceNumber:         fmt.Sprintf("INV-%d", seq),
			CustomerType:          req.CustomerType,
			CustomerID:            req.CustomerID,
			VendorID:              req.VendorID,
			Items:                 req.Items,
			Subtotal:              amounts.Subtotal,
			DiscountPercent:       req.DiscountPercent,
			DiscountAmount:        amounts.DiscountAmount,
			DepositUsed:           amounts.DepositUsed,
			AgentCreditUsed:       amounts.AgentCreditUsed,
			UseVendorBalance:      req.UseVendorBalance,
			VendorBalanceDeducted: amounts.VendorBalanceDeducted,
			VendorCost:            req.VendorCost,
			Total:                 amounts.Total,
			PaymentMethod:         req.PaymentMethod,
			Status:                StatusIssued,
			CreatedAt:             now,
		}

		if err := e.applyPartyDeductions(ctx, s, customer, agent, amounts.DepositUsed, amounts.AgentCreditUsed, RefInvoice, inv.ID, inv.InvoiceNumber, now); err != nil {
			return err
		}
		if amounts.VendorBalanceDeducted.IsPositive() {
			if err := e.deductVendorPool(ctx, s, vendor, req.UseVendorBalance, amounts.VendorBalanceDeducted, RefInvoice, inv.ID, inv.InvoiceNumber, now); err != nil {
				return err
			}
		}

		return s.SaveInvoice(ctx, *inv)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// =============================================================================
// TICKET CREATION
// =============================================================================

// CreateTicket is the commit-side request for a new ticket.
type CreateTicket struct {
	CustomerID        string
	VendorID          string // empty = direct from airline
	PerPassengerCosts []decimal.Decimal
	MCAddition        decimal.Decimal
	DeductFromDeposit bool
	UseVendorBalance  VendorPool
	VendorCost        decimal.Decimal
}

// CommitTicket calculates and persists a ticket plus all balance mutations,
// atomically. When no vendor pool is selected, the vendor cost accrues onto
// the vendor's credit balance instead (a payable for a ticket bought on
// account).
func (e *Engine) CommitTicket(ctx context.Context, req CreateTicket) (*Ticket, error) {
	if req.UseVendorBalance == "" {
		req.UseVendorBalance = VendorPoolNone
	}
	if req.CustomerID == "" {
		return nil, &ValidationError{Field: "customer_id", Message: "required"}
	}

	var tkt *Ticket
	err := e.store.WithTx(ctx, func(s Store) error {
		customer, err := s.GetCustomer(ctx, req.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return &NotFoundError{Kind: "customer", ID: req.CustomerID}
		}
		vendor, err := e.resolveVendor(ctx, s, req.VendorID, req.UseVendorBalance)
		if err != nil {
			return err
		}

		amounts, err := CalculateTicket(TicketInput{
			PerPassengerCosts: req.PerPassengerCosts,
			MCAddition:        req.MCAddition,
			DeductFromDeposit: req.DeductFromDeposit,
			UseVendorBalance:  req.UseVendorBalance,
			VendorCost:        req.VendorCost,
			Customer:          customer,
			Vendor:            vendor,
		})
		if err != nil {
			return err
		}

		seq, err := s.NextSequence(ctx, SeqTicket)
		if err != nil {
			return err
		}

		now := e.now()
		tkt = &Ticket{
			ID:                    uuid.NewString(),
			TicketNumber:          fmt.Sprintf("TKT-%d", seq),
			CustomerID:            req.CustomerID,
			VendorID:              req.VendorID,
			Passengers:            len(req.PerPassengerCosts),
			FaceValue:             amounts.FaceValue,
			MCAddition:            req.MCAddition,
			DepositDeducted:       amounts.DepositDeducted,
			AmountDue:             amounts.AmountDue,
			VendorCost:            req.VendorCost,
			UseVendorBalance:      req.UseVendorBalance,
			VendorBalanceDeducted: amounts.VendorBalanceDeducted,
			Status:                StatusIssued,
			CreatedAt:             now,
		}

		if amounts.DepositDeducted.IsPositive() {
			newBalance := customer.DepositBalance.Sub(amounts.DepositDeducted)
			if err := s.SetCustomerDeposit(ctx, customer.ID, newBalance); err != nil {
				return err
			}
			if err := s.AppendDepositTransaction(ctx, DepositTransaction{
				ID:            uuid.NewString(),
				PartyKind:     PartyCustomer,
				PartyID:       customer.ID,
				Pool:          PoolDeposit,
				Type:          TxDebit,
				Amount:        amounts.DepositDeducted,
				BalanceAfter:  newBalance,
				ReferenceType: RefTicket,
				ReferenceID:   tkt.ID,
				Note:          tkt.TicketNumber,
				CreatedAt:     now,
			}); err != nil {
				return err
			}
		}

		switch {
		case amounts.VendorBalanceDeducted.IsPositive():
			if err := e.deductVendorPool(ctx, s, vendor, req.UseVendorBalance, amounts.VendorBalanceDeducted, RefTicket, tkt.ID, tkt.TicketNumber, now); err != nil {
				return err
			}
		case amounts.VendorAccrued.IsPositive():
			newCredit := vendor.CreditBalance.Add(amounts.VendorAccrued)
			if err := s.SetVendorBalances(ctx, vendor.ID, newCredit, vendor.DepositBalance); err != nil {
				return err
			}
			if err := s.AppendVendorTransaction(ctx, VendorTransaction{
				ID:            uuid.NewString(),
				VendorID:      vendor.ID,
				Pool:          PoolCredit,
				Type:          TxCredit,
				Amount:        amounts.VendorAccrued,
				BalanceAfter:  newCredit,
				ReferenceType: RefTicket,
				ReferenceID:   tkt.ID,
				Note:          tkt.TicketNumber + " payable accrued",
				CreatedAt:     now,
			}); err != nil {
				return err
			}
		}

		return s.SaveTicket(ctx, *tkt)
	})
	if err != nil {
		return nil, err
	}
	return tkt, nil
}

// =============================================================================
// BALANCE TOP-UPS AND ADJUSTMENTS
// =============================================================================

// TopUpDeposit credits a customer or agent deposit pool and appends the
// matching ledger row.
func (e *Engine) TopUpDeposit(ctx context.Context, kind PartyKind, id string, amount decimal.Decimal, note string) (*DepositTransaction, error) {
	if !amount.IsPositive() {
		return nil, &ValidationError{Field: "amount", Message: "must be positive"}
	}

	var row *DepositTransaction
	err := e.store.WithTx(ctx, func(s Store) error {
		now := e.now()
		var newBalance decimal.Decimal

		switch kind {
		case PartyCustomer:
			c, err := s.GetCustomer(ctx, id)
			if err != nil {
				return err
			}
			if c == nil {
				return &NotFoundError{Kind: "customer", ID: id}
			}
			newBalance = c.DepositBalance.Add(amount)
			if err := s.SetCustomerDeposit(ctx, id, newBalance); err != nil {
				return err
			}
		case PartyAgent:
			a, err := s.GetAgent(ctx, id)
			if err != nil {
				return err
			}
			if a == nil {
				return &NotFoundError{Kind: "agent", ID: id}
			}
			newBalance = a.DepositBalance.Add(amount)
			if err := s.SetAgentBalances(ctx, id, newBalance, a.CreditBalance); err != nil {
				return err
			}
		default:
			return &ValidationError{Field: "party_kind", Message: "must be customer or agent"}
		}

		row = &DepositTransaction{
			ID:            uuid.NewString(),
			PartyKind:     kind,
			PartyID:       id,
			Pool:          PoolDeposit,
			Type:          TxCredit,
			Amount:        amount,
			BalanceAfter:  newBalance,
			ReferenceType: RefTopUp,
			Note:          note,
			CreatedAt:     now,
		}
		return s.AppendDepositTransaction(ctx, *row)
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// AdjustAgentCredit grants (positive delta) or settles (negative delta)
// agent credit and appends the matching ledger row.
func (e *Engine) AdjustAgentCredit(ctx context.Context, id string, delta decimal.Decimal, note string) (*DepositTransaction, error) {
	if delta.IsZero() {
		return nil, &ValidationError{Field: "amount", Message: "must be non-zero"}
	}

	var row *DepositTransaction
	err := e.store.WithTx(ctx, func(s Store) error {
		a, err := s.GetAgent(ctx, id)
		if err != nil {
			return err
		}
		if a == nil {
			return &NotFoundError{Kind: "agent", ID: id}
		}

		newCredit := a.CreditBalance.Add(delta)
		if newCredit.IsNegative() {
			return &ValidationError{Field: "amount", Message: "credit balance cannot go negative"}
		}
		if err := s.SetAgentBalances(ctx, id, a.DepositBalance, newCredit); err != nil {
			return err
		}

		txType := TxCredit
		if delta.IsNegative() {
			txType = TxDebit
		}
		row = &DepositTransaction{
			ID:            uuid.NewString(),
			PartyKind:     PartyAgent,
			PartyID:       id,
			Pool:          PoolCredit,
			Type:          txType,
			Amount:        delta.Abs(),
			BalanceAfter:  newCredit,
			ReferenceType: RefAdjustment,
			Note:          note,
			CreatedAt:     e.now(),
		}
		return s.AppendDepositTransaction(ctx, *row)
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// TopUpVendorBalance credits one of a vendor's pools and appends the
// matching ledger row.
func (e *Engine) TopUpVendorBalance(ctx context.Context, id string, pool VendorPool, amount decimal.Decimal, note string) (*VendorTransaction, error) {
	if !amount.IsPositive() {
		return nil, &ValidationError{Field: "amount", Message: "must be positive"}
	}
	if pool != VendorPoolCredit && pool != VendorPoolDeposit {
		return nil, &ValidationError{Field: "pool", Message: "must be credit or deposit"}
	}

	var row *VendorTransaction
	err := e.store.WithTx(ctx, func(s Store) error {
		v, err := s.GetVendor(ctx, id)
		if err != nil {
			return err
		}
		if v == nil {
			return &NotFoundError{Kind: "vendor", ID: id}
		}

		credit, deposit := v.CreditBalance, v.DepositBalance
		var newBalance decimal.Decimal
		if pool == VendorPoolCredit {
			credit = credit.Add(amount)
			newBalance = credit
		} else {
			deposit = deposit.Add(amount)
			newBalance = deposit
		}
		if err := s.SetVendorBalances(ctx, id, credit, deposit); err != nil {
			return err
		}

		row = &VendorTransaction{
			ID:            uuid.NewString(),
			VendorID:      id,
			Pool:          BalancePool(pool),
			Type:          TxCredit,
			Amount:        amount,
			BalanceAfter:  newBalance,
			ReferenceType: RefTopUp,
			Note:          note,
			CreatedAt:     e.now(),
		}
		return s.AppendVendorTransaction(ctx, *row)
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// =============================================================================
// PAYMENT CONFIRMATION
// =============================================================================

// PayInvoice confirms payment of an issued invoice. Financial fields never
// change; only the status and payment side fields do.
func (e *Engine) PayInvoice(ctx context.Context, id, paidBy string) error {
	return e.store.WithTx(ctx, func(s Store) error {
		inv, err := s.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		if inv == nil {
			return &NotFoundError{Kind: "invoice", ID: id}
		}
		if inv.Status == StatusPaid {
			return ErrAlreadyPaid
		}
		return s.MarkInvoicePaid(ctx, id, paidBy)
	})
}

// PayTicket confirms payment of a ticket.
func (e *Engine) PayTicket(ctx context.Context, id, paidBy string) error {
	return e.store.WithTx(ctx, func(s Store) error {
		tkt, err := s.GetTicket(ctx, id)
		if err != nil {
			return err
		}
		if tkt == nil {
			return &NotFoundError{Kind: "ticket", ID: id}
		}
		if tkt.IsPaid {
			return ErrAlreadyPaid
		}
		return s.MarkTicketPaid(ctx, id, paidBy)
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// resolveParty loads the billed party and returns its snapshot. Exactly one
// of customer/agent is non-nil on success.
func (e *Engine) resolveParty(ctx context.Context, s Store, kind PartyKind, id string) (PartySnapshot, *Customer, *Agent, error) {
	switch kind {
	case PartyCustomer:
		c, err := s.GetCustomer(ctx, id)
		if err != nil {
			return PartySnapshot{}, nil, nil, err
		}
		if c == nil {
			return PartySnapshot{}, nil, nil, &NotFoundError{Kind: "customer", ID: id}
		}
		return SnapshotCustomer(c), c, nil, nil
	case PartyAgent:
		a, err := s.GetAgent(ctx, id)
		if err != nil {
			return PartySnapshot{}, nil, nil, err
		}
		if a == nil {
			return PartySnapshot{}, nil, nil, &NotFoundError{Kind: "agent", ID: id}
		}
		return SnapshotAgent(a), nil, a, nil
	}
	return PartySnapshot{}, nil, nil, &ValidationError{Field: "customer_type", Message: "must be customer or agent"}
}

// resolveVendor loads the vendor when one is referenced. A missing vendor id
// is only an error when a pool deduction was requested.
func (e *Engine) resolveVendor(ctx context.Context, s Store, id string, pool VendorPool) (*Vendor, error) {
	if id == "" {
		if pool != VendorPoolNone && pool != "" {
			return nil, &ValidationError{Field: "vendor_id", Message: "required when deducting a vendor balance"}
		}
		return nil, nil
	}
	v, err := s.GetVendor(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, &NotFoundError{Kind: "vendor", ID: id}
	}
	return v, nil
}

// applyPartyDeductions writes the deposit and agent-credit mutations for an
// invoice, each paired with its ledger row.
func (e *Engine) applyPartyDeductions(ctx context.Context, s Store, customer *Customer, agent *Agent, depositUsed, creditUsed decimal.Decimal, ref ReferenceType, refID, note string, now time.Time) error {
	if depositUsed.IsPositive() {
		var partyKind PartyKind
		var partyID string
		var newBalance decimal.Decimal

		if customer != nil {
			partyKind, partyID = PartyCustomer, customer.ID
			newBalance = customer.DepositBalance.Sub(depositUsed)
			if err := s.SetCustomerDeposit(ctx, customer.ID, newBalance); err != nil {
				return err
			}
		} else {
			partyKind, partyID = PartyAgent, agent.ID
			newBalance = agent.DepositBalance.Sub(depositUsed)
			if err := s.SetAgentBalances(ctx, agent.ID, newBalance, agent.CreditBalance); err != nil {
				return err
			}
			agent.DepositBalance = newBalance
		}

		if err := s.AppendDepositTransaction(ctx, DepositTransaction{
			ID:            uuid.NewString(),
			PartyKind:     partyKind,
			PartyID:       partyID,
			Pool:          PoolDeposit,
			Type:          TxDebit,
			Amount:        depositUsed,
			BalanceAfter:  newBalance,
			ReferenceType: ref,
			ReferenceID:   refID,
			Note:          note,
			CreatedAt:     now,
		}); err != nil {
			return err
		}
	}

	if creditUsed.IsPositive() && agent != nil {
		newCredit := agent.CreditBalance.Sub(creditUsed)
		if err := s.SetAgentBalances(ctx, agent.ID, agent.DepositBalance, newCredit); err != nil {
			return err
		}
		if err := s.AppendDepositTransaction(ctx, DepositTransaction{
			ID:            uuid.NewString(),
			PartyKind:     PartyAgent,
			PartyID:       agent.ID,
			Pool:          PoolCredit,
			Type:          TxDebit,
			Amount:        creditUsed,
			BalanceAfter:  newCredit,
			ReferenceType: ref,
			ReferenceID:   refID,
			Note:          note,
			CreatedAt:     now,
		}); err != nil {
			return err
		}
	}

	return nil
}

// deductVendorPool writes a vendor pool deduction paired with its ledger row.
func (e *Engine) deductVendorPool(ctx context.Context, s Store, vendor *Vendor, pool VendorPool, amount decimal.Decimal, ref ReferenceType, refID, note string, now time.Time) error {
	credit, deposit := vendor.CreditBalance, vendor.DepositBalance
	var newBalance decimal.Decimal
	if pool == VendorPoolCredit {
		credit = credit.Sub(amount)
		newBalance = credit
	} else {
		deposit = deposit.Sub(amount)
		newBalance = deposit
	}
	if err := s.SetVendorBalances(ctx, vendor.ID, credit, deposit); err != nil {
		return err
	}
	return s.AppendVendorTransaction(ctx, VendorTransaction{
		ID:            uuid.NewString(),
		VendorID:      vendor.ID,
		Pool:          BalancePool(pool),
		Type:          TxDebit,
		Amount:        amount,
		BalanceAfter:  newBalance,
		ReferenceType: ref,
		ReferenceID:   refID,
		Note:          note,
		CreatedAt:     now,
	})
}
