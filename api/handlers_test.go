/*
handlers_test.go - HTTP API tests

Tests for:
- Party CRUD and duplicate detection over HTTP
- Invoice/ticket issuance through the full request path
- Preview endpoints leaving balances untouched
- Error status mapping (400/404/409)
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skytrail/backoffice/store/sqlite"
)

func newTestAPI(t *testing.T) (*chiTestServer, *sqlite.Store) {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	h := NewHandler(store, log)
	return &chiTestServer{router: NewRouter(h)}, store
}

// chiTestServer drives the router without a real listener.
type chiTestServer struct {
	router http.Handler
}

func (s *chiTestServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// =============================================================================
// PARTY ENDPOINTS
// =============================================================================

func TestCreateCustomer_RoundTrip(t *testing.T) {
	// GIVEN: A fresh API
	srv, _ := newTestAPI(t)

	// WHEN: Creating a customer
	rec := srv.do(t, "POST", "/api/customers", CreateCustomerRequest{
		Name:  "Rahim Uddin",
		Phone: "+8801711000001",
		Email: "rahim@example.com",
	})

	// THEN: It is created with a zero deposit
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[CustomerDTO](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Rahim Uddin", created.Name)
	assert.Equal(t, 0.0, created.DepositBalance)

	// AND: It comes back via GET
	rec = srv.do(t, "GET", "/api/customers/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[CustomerDTO](t, rec)
	assert.Equal(t, created.ID, got.ID)
}

func TestCreateCustomer_DuplicatePhone(t *testing.T) {
	// GIVEN: An existing customer
	srv, _ := newTestAPI(t)
	rec := srv.do(t, "POST", "/api/customers", CreateCustomerRequest{Name: "First", Phone: "+8801711000001"})
	require.Equal(t, http.StatusCreated, rec.Code)

	// WHEN: Creating another with the same phone
	rec = srv.do(t, "POST", "/api/customers", CreateCustomerRequest{Name: "Second", Phone: "+8801711000001"})

	// THEN: 409 with the duplicate code
	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "duplicate", resp.Code)
}

func TestCreateCustomer_MissingName(t *testing.T) {
	// WHEN: Posting a body without the required name
	srv, _ := newTestAPI(t)
	rec := srv.do(t, "POST", "/api/customers", CreateCustomerRequest{Phone: "+880170000"})

	// THEN: 400 validation error
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "validation_error", resp.Code)
}

func TestGetCustomer_NotFound(t *testing.T) {
	srv, _ := newTestAPI(t)
	rec := srv.do(t, "GET", "/api/customers/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTopUpDeposit_UpdatesBalanceAndHistory(t *testing.T) {
	// GIVEN: A customer
	srv, _ := newTestAPI(t)
	created := decodeBody[CustomerDTO](t, srv.do(t, "POST", "/api/customers", CreateCustomerRequest{Name: "Salma", Phone: "+88017"}))

	// WHEN: Topping up twice
	rec := srv.do(t, "POST", "/api/customers/"+created.ID+"/deposit", TopUpRequest{Amount: 1000, Note: "opening"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = srv.do(t, "POST", "/api/customers/"+created.ID+"/deposit", TopUpRequest{Amount: 250})
	require.Equal(t, http.StatusCreated, rec.Code)

	// THEN: The balance reflects both and history has two rows
	got := decodeBody[CustomerDTO](t, srv.do(t, "GET", "/api/customers/"+created.ID, nil))
	assert.Equal(t, 1250.0, got.DepositBalance)

	txs := decodeBody[[]TransactionDTO](t, srv.do(t, "GET", "/api/customers/"+created.ID+"/transactions", nil))
	require.Len(t, txs, 2)
	assert.Equal(t, 1000.0, txs[0].BalanceAfter)
	assert.Equal(t, 1250.0, txs[1].BalanceAfter)
}

func TestTopUpDeposit_RejectsNonPositive(t *testing.T) {
	srv, _ := newTestAPI(t)
	created := decodeBody[CustomerDTO](t, srv.do(t, "POST", "/api/customers", CreateCustomerRequest{Name: "X", Phone: "+1"}))

	rec := srv.do(t, "POST", "/api/customers/"+created.ID+"/deposit", TopUpRequest{Amount: -5})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVendor_AirlinesRoundTrip(t *testing.T) {
	// GIVEN: A vendor with airlines
	srv, _ := newTestAPI(t)
	rec := srv.do(t, "POST", "/api/vendors", CreateVendorRequest{
		Name:  "Skyways",
		Phone: "+88019",
		Airlines: []AirlineDTO{
			{Name: "Biman Bangladesh", Code: "BG"},
			{Name: "Emirates", Code: "EK"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[VendorDTO](t, rec)

	// THEN: The airline list survives the round trip
	got := decodeBody[VendorDTO](t, srv.do(t, "GET", "/api/vendors/"+created.ID, nil))
	require.Len(t, got.Airlines, 2)
	assert.Equal(t, "EK", got.Airlines[1].Code)
}

// =============================================================================
// INVOICE ENDPOINTS
// =============================================================================

func seedFundedCustomer(t *testing.T, srv *chiTestServer, deposit float64) CustomerDTO {
	t.Helper()
	c := decodeBody[CustomerDTO](t, srv.do(t, "POST", "/api/customers", CreateCustomerRequest{
		Name: "Funded", Phone: "+8801712345678",
	}))
	if deposit > 0 {
		rec := srv.do(t, "POST", "/api/customers/"+c.ID+"/deposit", TopUpRequest{Amount: deposit})
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	return c
}

func TestCreateInvoice_FullPath(t *testing.T) {
	// GIVEN: A customer with 500 on deposit
	srv, _ := newTestAPI(t)
	c := seedFundedCustomer(t, srv, 500)

	// WHEN: Issuing a 1000 invoice at 10% discount drawing the deposit
	rec := srv.do(t, "POST", "/api/invoices", CreateInvoiceRequest{
		CustomerType:       "customer",
		CustomerID:         c.ID,
		Items:              []InvoiceItemDTO{{Sector: "DAC-DXB", Amount: 1000}},
		DiscountPercent:    10,
		UseCustomerDeposit: true,
		PaymentMethod:      "cash",
	})

	// THEN: Amounts follow the calculation order and the deposit is drained
	require.Equal(t, http.StatusCreated, rec.Code)
	inv := decodeBody[InvoiceDTO](t, rec)
	assert.Equal(t, "INV-1", inv.InvoiceNumber)
	assert.Equal(t, 1000.0, inv.Subtotal)
	assert.Equal(t, 100.0, inv.DiscountAmount)
	assert.Equal(t, 500.0, inv.DepositUsed)
	assert.Equal(t, 400.0, inv.Total)
	assert.Equal(t, "issued", inv.Status)

	got := decodeBody[CustomerDTO](t, srv.do(t, "GET", "/api/customers/"+c.ID, nil))
	assert.Equal(t, 0.0, got.DepositBalance)
}

func TestPreviewInvoice_DoesNotTouchBalances(t *testing.T) {
	// GIVEN: A funded customer
	srv, _ := newTestAPI(t)
	c := seedFundedCustomer(t, srv, 500)

	// WHEN: Previewing the same invoice twice
	req := CreateInvoiceRequest{
		CustomerType:       "customer",
		CustomerID:         c.ID,
		Items:              []InvoiceItemDTO{{Sector: "DAC-DXB", Amount: 1000}},
		UseCustomerDeposit: true,
	}
	for i := 0; i < 2; i++ {
		rec := srv.do(t, "POST", "/api/invoices/preview", req)
		require.Equal(t, http.StatusOK, rec.Code)
		amounts := decodeBody[InvoiceAmountsDTO](t, rec)
		assert.Equal(t, 500.0, amounts.DepositUsed)
		assert.Equal(t, 500.0, amounts.Total)
	}

	// THEN: The deposit is untouched and nothing was numbered
	got := decodeBody[CustomerDTO](t, srv.do(t, "GET", "/api/customers/"+c.ID, nil))
	assert.Equal(t, 500.0, got.DepositBalance)

	invoices := decodeBody[[]InvoiceDTO](t, srv.do(t, "GET", "/api/invoices", nil))
	assert.Empty(t, invoices)
}

func TestCreateInvoice_UnknownCustomer(t *testing.T) {
	srv, _ := newTestAPI(t)
	rec := srv.do(t, "POST", "/api/invoices", CreateInvoiceRequest{
		CustomerType: "customer",
		CustomerID:   "ghost",
		Items:        []InvoiceItemDTO{{Sector: "DAC-DXB", Amount: 100}},
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateInvoice_DiscountOutOfRange(t *testing.T) {
	srv, _ := newTestAPI(t)
	c := seedFundedCustomer(t, srv, 0)

	rec := srv.do(t, "POST", "/api/invoices", CreateInvoiceRequest{
		CustomerType:    "customer",
		CustomerID:      c.ID,
		Items:           []InvoiceItemDTO{{Sector: "DAC-DXB", Amount: 100}},
		DiscountPercent: 150,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayInvoice_SecondPayConflicts(t *testing.T) {
	// GIVEN: An issued invoice
	srv, _ := newTestAPI(t)
	c := seedFundedCustomer(t, srv, 0)
	inv := decodeBody[InvoiceDTO](t, srv.do(t, "POST", "/api/invoices", CreateInvoiceRequest{
		CustomerType: "customer",
		CustomerID:   c.ID,
		Items:        []InvoiceItemDTO{{Sector: "DAC-DXB", Amount: 300}},
	}))

	// WHEN: Paying it twice
	rec := srv.do(t, "POST", "/api/invoices/"+inv.ID+"/pay", PayRequest{PaidBy: "operator"})
	require.Equal(t, http.StatusOK, rec.Code)
	paid := decodeBody[InvoiceDTO](t, rec)
	assert.Equal(t, "paid", paid.Status)
	assert.Equal(t, "operator", paid.PaidBy)

	rec = srv.do(t, "POST", "/api/invoices/"+inv.ID+"/pay", PayRequest{PaidBy: "operator"})

	// THEN: The second attempt conflicts
	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "already_paid", resp.Code)
}

// =============================================================================
// TICKET ENDPOINTS
// =============================================================================

func TestCreateTicket_OnAccountAccruesPayable(t *testing.T) {
	// GIVEN: A customer and a vendor
	srv, store := newTestAPI(t)
	c := seedFundedCustomer(t, srv, 0)
	v := decodeBody[VendorDTO](t, srv.do(t, "POST", "/api/vendors", CreateVendorRequest{Name: "Gulf", Phone: "+88019"}))

	// WHEN: Issuing a ticket on account (no vendor pool selected)
	rec := srv.do(t, "POST", "/api/tickets", CreateTicketRequest{
		CustomerID:        c.ID,
		VendorID:          v.ID,
		PerPassengerCosts: []float64{300, 300},
		MCAddition:        50,
		VendorCost:        400,
	})

	// THEN: The ticket is numbered and the vendor payable grew
	require.Equal(t, http.StatusCreated, rec.Code)
	tkt := decodeBody[TicketDTO](t, rec)
	assert.Equal(t, "TKT-1", tkt.TicketNumber)
	assert.Equal(t, 650.0, tkt.FaceValue)
	assert.Equal(t, 2, tkt.Passengers)

	got, err := store.GetVendor(context.Background(), v.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(400).Equal(got.CreditBalance))
}

func TestPreviewTicket_PureCalculation(t *testing.T) {
	// GIVEN: A customer with 200 on deposit
	srv, _ := newTestAPI(t)
	c := seedFundedCustomer(t, srv, 200)

	// WHEN: Previewing a deposit-drawing ticket
	rec := srv.do(t, "POST", "/api/tickets/preview", CreateTicketRequest{
		CustomerID:        c.ID,
		PerPassengerCosts: []float64{600},
		MCAddition:        50,
		DeductFromDeposit: true,
	})

	// THEN: The split is returned and nothing moved
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody[map[string]float64](t, rec)
	assert.Equal(t, 650.0, out["face_value"])
	assert.Equal(t, 200.0, out["deposit_deducted"])
	assert.Equal(t, 450.0, out["amount_due"])

	got := decodeBody[CustomerDTO](t, srv.do(t, "GET", "/api/customers/"+c.ID, nil))
	assert.Equal(t, 200.0, got.DepositBalance)
}

func TestCreateTicket_NoPassengers(t *testing.T) {
	srv, _ := newTestAPI(t)
	rec := srv.do(t, "POST", "/api/tickets", CreateTicketRequest{
		CustomerID:        "any",
		PerPassengerCosts: []float64{},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// REPORTS AND DEMO
// =============================================================================

func TestSummary_AfterDemoLoad(t *testing.T) {
	// GIVEN: The demo dataset
	srv, _ := newTestAPI(t)
	rec := srv.do(t, "POST", "/api/demo/load", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// WHEN: Fetching the summary
	rec = srv.do(t, "GET", "/api/reports/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decodeBody[SummaryDTO](t, rec)

	// THEN: Documents and balances are present
	assert.Equal(t, 2, sum.InvoiceCount)
	assert.Equal(t, 2, sum.TicketCount)
	assert.Greater(t, sum.OutstandingTotal, 0.0)

	// AND: The vendor rollup has both seeded vendors
	vendorRows := decodeBody[[]VendorReportDTO](t, srv.do(t, "GET", "/api/reports/vendors", nil))
	assert.Len(t, vendorRows, 2)
}

func TestDemoReset_WipesEverything(t *testing.T) {
	// GIVEN: Loaded demo data
	srv, _ := newTestAPI(t)
	require.Equal(t, http.StatusOK, srv.do(t, "POST", "/api/demo/load", nil).Code)

	// WHEN: Resetting
	require.Equal(t, http.StatusOK, srv.do(t, "POST", "/api/demo/reset", nil).Code)

	// THEN: Lists are empty and numbering restarts
	assert.Empty(t, decodeBody[[]CustomerDTO](t, srv.do(t, "GET", "/api/customers", nil)))
	assert.Empty(t, decodeBody[[]InvoiceDTO](t, srv.do(t, "GET", "/api/invoices", nil)))

	c := seedFundedCustomer(t, srv, 0)
	inv := decodeBody[InvoiceDTO](t, srv.do(t, "POST", "/api/invoices", CreateInvoiceRequest{
		CustomerType: "customer",
		CustomerID:   c.ID,
		Items:        []InvoiceItemDTO{{Sector: "DAC-DXB", Amount: 100}},
	}))
	assert.Equal(t, "INV-1", inv.InvoiceNumber)
}
