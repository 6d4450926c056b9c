/*
invoice.go - Invoice amount calculation

PURPOSE:
  Pure calculation of the amounts on a new invoice. Given line items, a
  discount, and the current balances of the billed party and vendor, it
  computes how much each pool covers and what remains owed to the house.

CALCULATION ORDER (strict, each step feeds the next):
  1. subtotal       = sum(items)
  2. discountAmount = subtotal * discountPercent/100
  3. afterDiscount  = subtotal - discountAmount
  4. depositUsed    = min(party deposit, afterDiscount)       [if requested]
  5. agentCreditUsed= min(agent credit, after deposit)        [agents only]
  6. vendorBalanceDeducted = min(vendor pool, vendorCost)     [independent]
  7. total          = remainder owed by the billed party

  Step 6 is bookkeeping against what the house owes the vendor; it never
  affects the party-facing total.

GUARANTEES:
  Every deduction is capped at both the pool balance and the residual owed,
  so no figure goes negative and total >= 0 always.

SEE ALSO:
  - ticket.go: The ticket variant of this calculation
  - engine.go: Applies the resulting mutations atomically
*/
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// InvoiceInput carries everything the invoice calculation needs. Party and
// Vendor are point-in-time snapshots; the commit path refreshes them inside
// its transaction before recomputing.
type InvoiceInput struct {
	Items              []InvoiceItem
	DiscountPercent    decimal.Decimal
	UseCustomerDeposit bool
	UseAgentCredit     bool
	UseVendorBalance   VendorPool
	VendorCost         decimal.Decimal

	Party  *PartySnapshot // nil when no party is selected
	Vendor *Vendor        // nil when no vendor is selected
}

// InvoiceAmounts is the result of the pure calculation.
type InvoiceAmounts struct {
	Subtotal              decimal.Decimal
	DiscountAmount        decimal.Decimal
	DepositUsed           decimal.Decimal
	AgentCreditUsed       decimal.Decimal
	VendorBalanceDeducted decimal.Decimal
	Total                 decimal.Decimal
}

// validate rejects malformed input before any computation. An unset pool
// selection normalizes to none.
func (in *InvoiceInput) validate() error {
	if in.UseVendorBalance == "" {
		in.UseVendorBalance = VendorPoolNone
	}
	for i, item := range in.Items {
		if item.Amount.IsNegative() {
			return &NegativeAmountError{Field: itemField(i), Value: item.Amount}
		}
	}
	if in.DiscountPercent.IsNegative() || in.DiscountPercent.GreaterThan(hundred) {
		return &ValidationError{Field: "discount_percent", Message: "must be between 0 and 100"}
	}
	if in.VendorCost.IsNegative() {
		return &NegativeAmountError{Field: "vendor_cost", Value: in.VendorCost}
	}
	if !in.UseVendorBalance.Valid() {
		return &ValidationError{Field: "use_vendor_balance", Message: "must be none, credit, or deposit"}
	}
	if in.UseVendorBalance != VendorPoolNone && in.Vendor == nil {
		return &ValidationError{Field: "vendor_id", Message: "required when deducting a vendor balance"}
	}
	if (in.UseCustomerDeposit || in.UseAgentCredit) && in.Party == nil {
		return &ValidationError{Field: "customer_id", Message: "required when drawing a balance"}
	}
	return nil
}

// CalculateInvoice runs the calculation without side effects. Calling it
// twice with the same input yields identical results.
func CalculateInvoice(in InvoiceInput) (InvoiceAmounts, error) {
	if err := in.validate(); err != nil {
		return InvoiceAmounts{}, err
	}

	var out InvoiceAmounts

	// Steps 1-3: subtotal and discount.
	out.Subtotal = Zero
	for _, item := range in.Items {
		out.Subtotal = out.Subtotal.Add(item.Amount)
	}
	out.DiscountAmount = out.Subtotal.Mul(in.DiscountPercent).Div(hundred)
	owed := out.Subtotal.Sub(out.DiscountAmount)

	// Step 4: party deposit. An exhausted pool yields zero, silently.
	out.DepositUsed = Zero
	if in.UseCustomerDeposit && in.Party != nil {
		out.DepositUsed = capDeduction(in.Party.DepositBalance, owed)
		owed = owed.Sub(out.DepositUsed)
	}

	// Step 5: agent credit, only for agents with a positive line.
	out.AgentCreditUsed = Zero
	if in.UseAgentCredit && in.Party != nil && in.Party.Kind == PartyAgent && in.Party.CreditBalance.IsPositive() {
		out.AgentCreditUsed = capDeduction(in.Party.CreditBalance, owed)
		owed = owed.Sub(out.AgentCreditUsed)
	}

	// Step 6: vendor pool, disjoint from the party-facing total.
	out.VendorBalanceDeducted = Zero
	if in.UseVendorBalance != VendorPoolNone && in.VendorCost.IsPositive() {
		out.VendorBalanceDeducted = capDeduction(vendorPoolBalance(in.Vendor, in.UseVendorBalance), in.VendorCost)
	}

	// Step 7: what the billed party still owes the house.
	out.Total = owed
	return out, nil
}

// vendorPoolBalance reads the selected pool off the vendor snapshot.
func vendorPoolBalance(v *Vendor, pool VendorPool) decimal.Decimal {
	if v == nil {
		return Zero
	}
	switch pool {
	case VendorPoolCredit:
		return v.CreditBalance
	case VendorPoolDeposit:
		return v.DepositBalance
	}
	return Zero
}

func itemField(i int) string {
	return fmt.Sprintf("items[%d].amount", i)
}
