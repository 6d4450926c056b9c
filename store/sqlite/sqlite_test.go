package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/skytrail/backoffice/ledger"
	"github.com/skytrail/backoffice/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func d(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// =============================================================================
// PARTY CRUD
// =============================================================================

func TestCustomer_SaveGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.SaveCustomer(ctx, ledger.Customer{
		ID:             "c1",
		Name:           "Rahim Uddin",
		Phone:          "+8801711000001",
		Email:          "rahim@example.com",
		DepositBalance: d(250.50),
	})
	require.NoError(t, err)

	got, err := store.GetCustomer(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Rahim Uddin", got.Name)
	assert.Equal(t, "rahim@example.com", got.Email)
	assert.True(t, d(250.50).Equal(got.DepositBalance))
	assert.False(t, got.CreatedAt.IsZero())
}

func TestCustomer_GetMissing_ReturnsNilNil(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetCustomer(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCustomer_DuplicatePhone_Rejected(t *testing.T) {
	// GIVEN: A customer with a phone number
	// WHEN: Saving a second customer with the same phone
	// THEN: DuplicatePartyError identifying the colliding field

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCustomer(ctx, ledger.Customer{ID: "c1", Name: "A", Phone: "0171"}))
	err := store.SaveCustomer(ctx, ledger.Customer{ID: "c2", Name: "B", Phone: "0171"})

	require.Error(t, err)
	var dupErr *ledger.DuplicatePartyError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "phone", dupErr.Field)
	assert.True(t, errors.Is(err, ledger.ErrDuplicateParty))
}

func TestCustomer_UpdateContact_LeavesBalanceAlone(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCustomer(ctx, ledger.Customer{
		ID: "c1", Name: "A", Phone: "0171", DepositBalance: d(300),
	}))
	require.NoError(t, store.UpdateCustomerContact(ctx, "c1", "A. Rahman", "0172", "a@example.com"))

	got, err := store.GetCustomer(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "A. Rahman", got.Name)
	assert.Equal(t, "0172", got.Phone)
	assert.True(t, d(300).Equal(got.DepositBalance))
}

func TestCustomer_DeleteMissing_NotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.DeleteCustomer(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, ledger.IsNotFound(err))
}

func TestAgent_BalanceWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAgent(ctx, ledger.Agent{
		ID: "a1", Name: "City Travels", Phone: "0181",
		DepositBalance: d(100), CreditBalance: d(500),
	}))
	require.NoError(t, store.SetAgentBalances(ctx, "a1", d(70), d(450)))

	got, err := store.GetAgent(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, d(70).Equal(got.DepositBalance))
	assert.True(t, d(450).Equal(got.CreditBalance))
}

func TestVendor_AirlinesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveVendor(ctx, ledger.Vendor{
		ID: "v1", Name: "Skyways Wholesale",
		CreditBalance: d(1000),
		Airlines: []ledger.Airline{
			{Name: "Biman Bangladesh", Code: "BG"},
			{Name: "Emirates", Code: "EK"},
		},
	}))

	got, err := store.GetVendor(ctx, "v1")
	require.NoError(t, err)
	require.Len(t, got.Airlines, 2)
	assert.Equal(t, "EK", got.Airlines[1].Code)
}

func TestVendor_DuplicateName_Rejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveVendor(ctx, ledger.Vendor{ID: "v1", Name: "Skyways"}))
	err := store.SaveVendor(ctx, ledger.Vendor{ID: "v2", Name: "Skyways"})

	require.Error(t, err)
	var dupErr *ledger.DuplicatePartyError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "name", dupErr.Field)
}

// =============================================================================
// TRANSACTION ROWS
// =============================================================================

func TestDepositTransactions_AppendAndListInOrder(t *testing.T) {
	// GIVEN: Three rows appended for one party
	// WHEN: Listing them
	// THEN: They come back in insertion order with decimals intact

	store := newTestStore(t)
	ctx := context.Background()

	for i, amount := range []float64{100, 40, 15.25} {
		require.NoError(t, store.AppendDepositTransaction(ctx, ledger.DepositTransaction{
			ID:           string(rune('a' + i)),
			PartyKind:    ledger.PartyCustomer,
			PartyID:      "c1",
			Pool:         ledger.PoolDeposit,
			Type:         ledger.TxCredit,
			Amount:       d(amount),
			BalanceAfter: d(amount),
		}))
	}

	txs, err := store.ListDepositTransactions(ctx, ledger.PartyCustomer, "c1")
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, "a", txs[0].ID)
	assert.Equal(t, "c", txs[2].ID)
	assert.True(t, d(15.25).Equal(txs[2].Amount))
}

func TestDepositTransactions_FilteredByPartyKind(t *testing.T) {
	// An agent and a customer may share an ID value; rows must not bleed.
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendDepositTransaction(ctx, ledger.DepositTransaction{
		ID: "t1", PartyKind: ledger.PartyCustomer, PartyID: "x",
		Pool: ledger.PoolDeposit, Type: ledger.TxCredit, Amount: d(1), BalanceAfter: d(1),
	}))
	require.NoError(t, store.AppendDepositTransaction(ctx, ledger.DepositTransaction{
		ID: "t2", PartyKind: ledger.PartyAgent, PartyID: "x",
		Pool: ledger.PoolCredit, Type: ledger.TxCredit, Amount: d(2), BalanceAfter: d(2),
	}))

	txs, err := store.ListDepositTransactions(ctx, ledger.PartyAgent, "x")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "t2", txs[0].ID)
}

// =============================================================================
// DOCUMENTS
// =============================================================================

func TestInvoice_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inv := ledger.Invoice{
		ID:               "inv-uuid-1",
		InvoiceNumber:    "INV-7",
		CustomerType:     ledger.PartyAgent,
		CustomerID:       "a1",
		VendorID:         "v1",
		Items:            []ledger.InvoiceItem{{Sector: "DAC-DXB", Amount: d(1000)}},
		Subtotal:         d(1000),
		DiscountPercent:  d(10),
		DiscountAmount:   d(100),
		DepositUsed:      d(300),
		AgentCreditUsed:  d(500),
		UseVendorBalance: ledger.VendorPoolCredit,
		VendorCost:       d(400),
		Total:            d(100),
		Status:           ledger.StatusIssued,
	}
	inv.VendorBalanceDeducted = d(400)
	require.NoError(t, store.SaveInvoice(ctx, inv))

	got, err := store.GetInvoice(ctx, "inv-uuid-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "INV-7", got.InvoiceNumber)
	assert.Equal(t, ledger.PartyAgent, got.CustomerType)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "DAC-DXB", got.Items[0].Sector)
	assert.True(t, d(100).Equal(got.Total))
	assert.Equal(t, ledger.VendorPoolCredit, got.UseVendorBalance)
	assert.Nil(t, got.PaidAt)
}

func TestInvoice_MarkPaid(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveInvoice(ctx, ledger.Invoice{
		ID: "i1", InvoiceNumber: "INV-1",
		CustomerType: ledger.PartyCustomer, CustomerID: "c1",
		UseVendorBalance: ledger.VendorPoolNone,
		Status:           ledger.StatusIssued,
	}))
	require.NoError(t, store.MarkInvoicePaid(ctx, "i1", "operator"))

	got, err := store.GetInvoice(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPaid, got.Status)
	require.NotNil(t, got.PaidAt)
	assert.Equal(t, "operator", got.PaidBy)
}

func TestTicket_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTicket(ctx, ledger.Ticket{
		ID: "t1", TicketNumber: "TKT-3",
		CustomerID: "c1", VendorID: "v1", Passengers: 2,
		FaceValue: d(650), MCAddition: d(50),
		DepositDeducted: d(200), AmountDue: d(450),
		VendorCost: d(400), UseVendorBalance: ledger.VendorPoolNone,
		Status: ledger.StatusIssued,
	}))

	got, err := store.GetTicket(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.Passengers)
	assert.True(t, d(450).Equal(got.AmountDue))
	assert.False(t, got.IsPaid)

	require.NoError(t, store.MarkTicketPaid(ctx, "t1", "operator"))
	got, err = store.GetTicket(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, got.IsPaid)
	assert.Equal(t, ledger.StatusPaid, got.Status)
}

// =============================================================================
// SEQUENCES
// =============================================================================

func TestNextSequence_MonotonicPerName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := store.NextSequence(ctx, "invoice")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// Independent counter.
	got, err := store.NextSequence(ctx, "ticket")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestNextSequence_SeededFromExistingDocuments(t *testing.T) {
	// GIVEN: A database already holding INV-41
	// WHEN: Reopening the store against the same file
	// THEN: The next invoice number is 42

	dbPath := t.TempDir() + "/ledger.db"

	first, err := sqlite.New(dbPath)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, first.SaveInvoice(ctx, ledger.Invoice{
		ID: "i41", InvoiceNumber: "INV-41",
		CustomerType: ledger.PartyCustomer, CustomerID: "c1",
		UseVendorBalance: ledger.VendorPoolNone,
		Status:           ledger.StatusIssued,
	}))
	require.NoError(t, first.Close())

	second, err := sqlite.New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })

	got, err := second.NextSequence(ctx, "invoice")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestWithTx_ErrorRollsBackEverything(t *testing.T) {
	// GIVEN: A customer with a 500 deposit
	// WHEN: A transaction mutates it and then fails
	// THEN: No write survives, including the sequence allocation

	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveCustomer(ctx, ledger.Customer{
		ID: "c1", Name: "A", Phone: "0171", DepositBalance: d(500),
	}))

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(s ledger.Store) error {
		if err := s.SetCustomerDeposit(ctx, "c1", d(0)); err != nil {
			return err
		}
		if _, err := s.NextSequence(ctx, "invoice"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	c, err := store.GetCustomer(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, d(500).Equal(c.DepositBalance))

	seq, err := store.NextSequence(ctx, "invoice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
}

func TestWithTx_CommitPersists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveCustomer(ctx, ledger.Customer{
		ID: "c1", Name: "A", Phone: "0171", DepositBalance: d(500),
	}))

	err := store.WithTx(ctx, func(s ledger.Store) error {
		return s.SetCustomerDeposit(ctx, "c1", d(123))
	})
	require.NoError(t, err)

	c, err := store.GetCustomer(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, d(123).Equal(c.DepositBalance))
}

// =============================================================================
// RESET
// =============================================================================

func TestReset_ClearsAllTablesAndCounters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCustomer(ctx, ledger.Customer{ID: "c1", Name: "A", Phone: "0171"}))
	_, err := store.NextSequence(ctx, "invoice")
	require.NoError(t, err)

	require.NoError(t, store.Reset(ctx))

	customers, err := store.ListCustomers(ctx)
	require.NoError(t, err)
	assert.Empty(t, customers)

	seq, err := store.NextSequence(ctx, "invoice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
}
