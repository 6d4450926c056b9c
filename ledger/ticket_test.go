package ledger_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/skytrail/backoffice/ledger"
)

func testCustomer(deposit float64) *ledger.Customer {
	return &ledger.Customer{ID: "cust-1", Name: "Rahim Uddin", Phone: "+8801711000001", DepositBalance: d(deposit)}
}

func costs(vals ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(vals))
	for _, v := range vals {
		out = append(out, d(v))
	}
	return out
}

// =============================================================================
// FACE VALUE
// =============================================================================

func TestCalculateTicket_FaceValue_FlatMarkup(t *testing.T) {
	// GIVEN: Two passengers at 300 each and a flat 50 markup
	// WHEN: Calculating the ticket
	// THEN: Face value is 650, not 700; the markup is not per passenger

	out, err := ledger.CalculateTicket(ledger.TicketInput{
		PerPassengerCosts: costs(300, 300),
		MCAddition:        d(50),
	})
	require.NoError(t, err)

	assertDecimal(t, 650, out.FaceValue, "faceValue")
	assertDecimal(t, 650, out.AmountDue, "amountDue")
}

func TestCalculateTicket_SinglePassenger_NoMarkup(t *testing.T) {
	out, err := ledger.CalculateTicket(ledger.TicketInput{
		PerPassengerCosts: costs(480),
	})
	require.NoError(t, err)

	assertDecimal(t, 480, out.FaceValue, "faceValue")
}

// =============================================================================
// DEPOSIT DEDUCTION
// =============================================================================

func TestCalculateTicket_DepositPartiallyCovers(t *testing.T) {
	// GIVEN: Face value 650, customer deposit 200
	// WHEN: Deducting from the deposit
	// THEN: 200 is taken and 450 remains due

	out, err := ledger.CalculateTicket(ledger.TicketInput{
		PerPassengerCosts: costs(300, 300),
		MCAddition:        d(50),
		DeductFromDeposit: true,
		Customer:          testCustomer(200),
	})
	require.NoError(t, err)

	assertDecimal(t, 200, out.DepositDeducted, "depositDeducted")
	assertDecimal(t, 450, out.AmountDue, "amountDue")
}

func TestCalculateTicket_DepositExceedsFaceValue_CappedAtFaceValue(t *testing.T) {
	// GIVEN: Face value 650, customer deposit 1000
	// WHEN: Deducting from the deposit
	// THEN: Only 650 is taken and nothing remains due

	out, err := ledger.CalculateTicket(ledger.TicketInput{
		PerPassengerCosts: costs(300, 300),
		MCAddition:        d(50),
		DeductFromDeposit: true,
		Customer:          testCustomer(1000),
	})
	require.NoError(t, err)

	assertDecimal(t, 650, out.DepositDeducted, "depositDeducted")
	assertDecimal(t, 0, out.AmountDue, "amountDue")
	assert.False(t, out.AmountDue.IsNegative(), "amount due must never go negative")
}

func TestCalculateTicket_NoDeduction_FullAmountDue(t *testing.T) {
	out, err := ledger.CalculateTicket(ledger.TicketInput{
		PerPassengerCosts: costs(500),
		Customer:          testCustomer(1000),
	})
	require.NoError(t, err)

	assertDecimal(t, 0, out.DepositDeducted, "depositDeducted")
	assertDecimal(t, 500, out.AmountDue, "amountDue")
}

// =============================================================================
// VENDOR SIDE
// =============================================================================

func TestCalculateTicket_VendorPoolSelected_Deducts(t *testing.T) {
	// GIVEN: Vendor cost 400 against a 1000 credit pool
	// WHEN: Calculating with the credit pool selected
	// THEN: 400 is deducted and nothing accrues

	out, err := ledger.CalculateTicket(ledger.TicketInput{
		PerPassengerCosts: costs(500),
		UseVendorBalance:  ledger.VendorPoolCredit,
		VendorCost:        d(400),
		Vendor:            vendor(1000, 0),
	})
	require.NoError(t, err)

	assertDecimal(t, 400, out.VendorBalanceDeducted, "vendorBalanceDeducted")
	assertDecimal(t, 0, out.VendorAccrued, "vendorAccrued")
}

func TestCalculateTicket_VendorPoolShort_CappedAtPool(t *testing.T) {
	out, err := ledger.CalculateTicket(ledger.TicketInput{
		PerPassengerCosts: costs(500),
		UseVendorBalance:  ledger.VendorPoolDeposit,
		VendorCost:        d(400),
		Vendor:            vendor(0, 150),
	})
	require.NoError(t, err)

	assertDecimal(t, 150, out.VendorBalanceDeducted, "vendorBalanceDeducted")
}

func TestCalculateTicket_NoPoolSelected_AccruesPayable(t *testing.T) {
	// GIVEN: A vendor-supplied ticket with cost 400 and no pool selected
	// WHEN: Calculating the ticket
	// THEN: The full cost accrues as a payable owed to the vendor

	out, err := ledger.CalculateTicket(ledger.TicketInput{
		PerPassengerCosts: costs(500),
		UseVendorBalance:  ledger.VendorPoolNone,
		VendorCost:        d(400),
		Vendor:            vendor(100, 0),
	})
	require.NoError(t, err)

	assertDecimal(t, 0, out.VendorBalanceDeducted, "vendorBalanceDeducted")
	assertDecimal(t, 400, out.VendorAccrued, "vendorAccrued")
}

func TestCalculateTicket_DirectFromAirline_NoVendorSide(t *testing.T) {
	// GIVEN: No vendor at all
	// WHEN: Calculating the ticket
	// THEN: Neither deduction nor accrual happens

	out, err := ledger.CalculateTicket(ledger.TicketInput{
		PerPassengerCosts: costs(500),
		VendorCost:        d(400),
	})
	require.NoError(t, err)

	assertDecimal(t, 0, out.VendorBalanceDeducted, "vendorBalanceDeducted")
	assertDecimal(t, 0, out.VendorAccrued, "vendorAccrued")
}

func TestCalculateTicket_ZeroVendorCost_NoAccrual(t *testing.T) {
	out, err := ledger.CalculateTicket(ledger.TicketInput{
		PerPassengerCosts: costs(500),
		Vendor:            vendor(100, 0),
	})
	require.NoError(t, err)

	assertDecimal(t, 0, out.VendorAccrued, "vendorAccrued")
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestCalculateTicket_NoPassengers_Rejected(t *testing.T) {
	_, err := ledger.CalculateTicket(ledger.TicketInput{})

	require.Error(t, err)
	var valErr *ledger.ValidationError
	assert.ErrorAs(t, err, &valErr)
	assert.Equal(t, "per_passenger_costs", valErr.Field)
}

func TestCalculateTicket_NegativeCost_Rejected(t *testing.T) {
	_, err := ledger.CalculateTicket(ledger.TicketInput{
		PerPassengerCosts: costs(300, -10),
	})

	require.Error(t, err)
	var negErr *ledger.NegativeAmountError
	assert.ErrorAs(t, err, &negErr)
}

func TestCalculateTicket_NegativeMarkup_Rejected(t *testing.T) {
	_, err := ledger.CalculateTicket(ledger.TicketInput{
		PerPassengerCosts: costs(300),
		MCAddition:        d(-5),
	})

	require.Error(t, err)
	assert.True(t, ledger.IsClientError(err))
}

func TestCalculateTicket_DeductWithoutCustomer_Rejected(t *testing.T) {
	_, err := ledger.CalculateTicket(ledger.TicketInput{
		PerPassengerCosts: costs(300),
		DeductFromDeposit: true,
	})

	require.Error(t, err)
	assert.True(t, ledger.IsClientError(err))
}

func TestCalculateTicket_PoolWithoutVendor_Rejected(t *testing.T) {
	_, err := ledger.CalculateTicket(ledger.TicketInput{
		PerPassengerCosts: costs(300),
		UseVendorBalance:  ledger.VendorPoolDeposit,
		VendorCost:        d(100),
	})

	require.Error(t, err)
	assert.True(t, ledger.IsClientError(err))
}
