/*
ticket.go - Ticket amount calculation

PURPOSE:
  Pure calculation for ticket issuance. The face value billed to the
  customer is the summed per-passenger source cost plus a flat middle-class
  markup (NOT multiplied per passenger). The customer's deposit can cover
  part of it, and the vendor side settles independently.

VENDOR "NONE" ASYMMETRY:
  Unlike the invoice flow, selecting no vendor pool on a ticket does not
  mean "nothing happens": the full vendor cost is accrued onto the vendor's
  credit balance as a payable (the ticket was bought on account). The two
  flows intentionally diverge here.

SEE ALSO:
  - invoice.go: The invoice variant
  - engine.go: Applies the resulting mutations atomically
*/
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TicketInput carries everything the ticket calculation needs.
type TicketInput struct {
	PerPassengerCosts []decimal.Decimal
	MCAddition        decimal.Decimal // flat markup, not per passenger
	DeductFromDeposit bool
	UseVendorBalance  VendorPool
	VendorCost        decimal.Decimal

	Customer *Customer // nil only when no deposit deduction is requested
	Vendor   *Vendor   // nil = direct from airline
}

// TicketAmounts is the result of the pure calculation. VendorAccrued is the
// payable added to the vendor's credit pool when no pool was selected.
type TicketAmounts struct {
	FaceValue             decimal.Decimal
	DepositDeducted       decimal.Decimal
	AmountDue             decimal.Decimal
	VendorBalanceDeducted decimal.Decimal
	VendorAccrued         decimal.Decimal
}

func (in *TicketInput) validate() error {
	if in.UseVendorBalance == "" {
		in.UseVendorBalance = VendorPoolNone
	}
	if len(in.PerPassengerCosts) == 0 {
		return &ValidationError{Field: "per_passenger_costs", Message: "at least one passenger required"}
	}
	for i, c := range in.PerPassengerCosts {
		if c.IsNegative() {
			return &NegativeAmountError{Field: fmt.Sprintf("per_passenger_costs[%d]", i), Value: c}
		}
	}
	if in.MCAddition.IsNegative() {
		return &NegativeAmountError{Field: "mc_addition", Value: in.MCAddition}
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
	if in.DeductFromDeposit && in.Customer == nil {
		return &ValidationError{Field: "customer_id", Message: "required when deducting from deposit"}
	}
	return nil
}

// CalculateTicket runs the calculation without side effects.
func CalculateTicket(in TicketInput) (TicketAmounts, error) {
	if err := in.validate(); err != nil {
		return TicketAmounts{}, err
	}

	var out TicketAmounts

	// Face value: summed source cost plus the flat markup.
	total := Zero
	for _, c := range in.PerPassengerCosts {
		total = total.Add(c)
	}
	out.FaceValue = total.Add(in.MCAddition)

	// Customer deposit covers as much of the face value as it can.
	out.DepositDeducted = Zero
	if in.DeductFromDeposit {
		out.DepositDeducted = capDeduction(in.Customer.DepositBalance, out.FaceValue)
	}
	out.AmountDue = out.FaceValue.Sub(out.DepositDeducted)

	// Vendor side, independent of the customer total.
	out.VendorBalanceDeducted = Zero
	out.VendorAccrued = Zero
	switch {
	case in.UseVendorBalance != VendorPoolNone && in.VendorCost.IsPositive():
		out.VendorBalanceDeducted = capDeduction(vendorPoolBalance(in.Vendor, in.UseVendorBalance), in.VendorCost)
	case in.UseVendorBalance == VendorPoolNone && in.Vendor != nil && in.VendorCost.IsPositive():
		// Bought on account: the house now owes the vendor this much more.
		out.VendorAccrued = in.VendorCost
	}

	return out, nil
}
