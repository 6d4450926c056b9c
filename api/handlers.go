/*
handlers.go - HTTP API handlers for the back-office ledger

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Parties:
    GET/POST       /api/customers, /api/agents, /api/vendors
    GET/PUT/DELETE /api/.../{id}
    POST           /api/customers/{id}/deposit   Top up deposit
    POST           /api/agents/{id}/deposit      Top up deposit
    POST           /api/agents/{id}/credit       Grant/settle credit
    POST           /api/vendors/{id}/balance     Top up a vendor pool
    GET            /api/.../{id}/transactions    Ledger history

  Documents:
    GET/POST /api/invoices, /api/tickets
    POST     /api/invoices/preview, /api/tickets/preview  Pure calculation
    GET      /api/invoices/{id}, /api/tickets/{id}
    POST     /api/invoices/{id}/pay, /api/tickets/{id}/pay

  Reports:
    GET /api/reports/summary, /api/reports/vendors

  Dev tooling:
    POST /api/demo/load, /api/demo/reset

REQUEST FLOW:
  1. Decode JSON body
  2. Validate with the shared validator
  3. Call domain logic (engine for money paths, store for plumbing)
  4. Serialize response
  5. Map domain errors to HTTP status

ERROR HANDLING:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (duplicate party, already paid)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - seed.go: Demo dataset loader
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/skytrail/backoffice/ledger"
	"github.com/skytrail/backoffice/reports"
	"github.com/skytrail/backoffice/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Engine   *ledger.Engine
	Log      *logrus.Logger
	validate *validator.Validate
}

// NewHandler creates a new handler over the given store.
func NewHandler(store *sqlite.Store, log *logrus.Logger) *Handler {
	return &Handler{
		Store:    store,
		Engine:   ledger.NewEngine(store),
		Log:      log,
		validate: validator.New(),
	}
}

// decodeAndValidate parses the body into dst and runs the validator.
// Returns false after writing the error response.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", "bad_json", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", "validation_error", err)
		return false
	}
	return true
}

// =============================================================================
// CUSTOMER HANDLERS
// =============================================================================

// ListCustomers returns all customers.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Store.ListCustomers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list customers", "internal", err)
		return
	}

	dtos := make([]CustomerDTO, len(customers))
	for i, c := range customers {
		dtos[i] = toCustomerDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCustomer creates a customer with a zero deposit balance.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	c := ledger.Customer{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Phone:          req.Phone,
		Email:          req.Email,
		DepositBalance: ledger.Zero,
	}
	if err := h.Store.SaveCustomer(r.Context(), c); err != nil {
		writeDomainError(w, "Failed to create customer", err)
		return
	}

	h.Log.WithFields(logrus.Fields{"customer_id": c.ID, "phone": c.Phone}).Info("customer created")
	writeJSON(w, http.StatusCreated, toCustomerDTO(c))
}

// GetCustomer returns one customer.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.Store.GetCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get customer", "internal", err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "Customer not found", "not_found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(*c))
}

// UpdateCustomer updates contact fields. Balances only move through the
// ledger endpoints.
func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.Store.UpdateCustomerContact(r.Context(), id, req.Name, req.Phone, req.Email); err != nil {
		writeDomainError(w, "Failed to update customer", err)
		return
	}

	c, err := h.Store.GetCustomer(r.Context(), id)
	if err != nil || c == nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload customer", "internal", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(*c))
}

// DeleteCustomer removes a customer record.
func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteCustomer(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete customer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TopUpCustomerDeposit credits a customer's deposit pool.
func (h *Handler) TopUpCustomerDeposit(w http.ResponseWriter, r *http.Request) {
	h.topUpDeposit(w, r, ledger.PartyCustomer)
}

func (h *Handler) topUpDeposit(w http.ResponseWriter, r *http.Request, kind ledger.PartyKind) {
	var req TopUpRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	row, err := h.Engine.TopUpDeposit(r.Context(), kind, id, decimal.NewFromFloat(req.Amount), req.Note)
	if err != nil {
		writeDomainError(w, "Failed to top up deposit", err)
		return
	}

	h.Log.WithFields(logrus.Fields{
		"party_kind": kind, "party_id": id, "amount": req.Amount,
	}).Info("deposit topped up")
	writeJSON(w, http.StatusCreated, toDepositTxDTO(*row))
}

// ListCustomerTransactions returns a customer's deposit ledger.
func (h *Handler) ListCustomerTransactions(w http.ResponseWriter, r *http.Request) {
	h.listDepositTransactions(w, r, ledger.PartyCustomer)
}

func (h *Handler) listDepositTransactions(w http.ResponseWriter, r *http.Request, kind ledger.PartyKind) {
	txs, err := h.Store.ListDepositTransactions(r.Context(), kind, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transactions", "internal", err)
		return
	}

	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toDepositTxDTO(tx)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// AGENT HANDLERS
// =============================================================================

// ListAgents returns all agents.
func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.Store.ListAgents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list agents", "internal", err)
		return
	}

	dtos := make([]AgentDTO, len(agents))
	for i, a := range agents {
		dtos[i] = toAgentDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAgent creates an agent with zero balances.
func (h *Handler) CreateAgent(w http.ResponseWriter, r *http.Request) {
	var req CreateAgentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	a := ledger.Agent{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Phone:          req.Phone,
		CreditBalance:  ledger.Zero,
		DepositBalance: ledger.Zero,
	}
	if err := h.Store.SaveAgent(r.Context(), a); err != nil {
		writeDomainError(w, "Failed to create agent", err)
		return
	}

	h.Log.WithFields(logrus.Fields{"agent_id": a.ID, "phone": a.Phone}).Info("agent created")
	writeJSON(w, http.StatusCreated, toAgentDTO(a))
}

// GetAgent returns one agent.
func (h *Handler) GetAgent(w http.ResponseWriter, r *http.Request) {
	a, err := h.Store.GetAgent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get agent", "internal", err)
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "Agent not found", "not_found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toAgentDTO(*a))
}

// UpdateAgent updates contact fields.
func (h *Handler) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	var req CreateAgentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.Store.UpdateAgentContact(r.Context(), id, req.Name, req.Phone); err != nil {
		writeDomainError(w, "Failed to update agent", err)
		return
	}

	a, err := h.Store.GetAgent(r.Context(), id)
	if err != nil || a == nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload agent", "internal", err)
		return
	}
	writeJSON(w, http.StatusOK, toAgentDTO(*a))
}

// DeleteAgent removes an agent record.
func (h *Handler) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteAgent(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete agent", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TopUpAgentDeposit credits an agent's deposit pool.
func (h *Handler) TopUpAgentDeposit(w http.ResponseWriter, r *http.Request) {
	h.topUpDeposit(w, r, ledger.PartyAgent)
}

// AdjustAgentCredit grants (positive amount) or settles (negative amount)
// an agent's credit line.
func (h *Handler) AdjustAgentCredit(w http.ResponseWriter, r *http.Request) {
	var req CreditAdjustmentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	row, err := h.Engine.AdjustAgentCredit(r.Context(), id, decimal.NewFromFloat(req.Amount), req.Note)
	if err != nil {
		writeDomainError(w, "Failed to adjust credit", err)
		return
	}

	h.Log.WithFields(logrus.Fields{"agent_id": id, "amount": req.Amount}).Info("agent credit adjusted")
	writeJSON(w, http.StatusCreated, toDepositTxDTO(*row))
}

// ListAgentTransactions returns an agent's deposit/credit ledger.
func (h *Handler) ListAgentTransactions(w http.ResponseWriter, r *http.Request) {
	h.listDepositTransactions(w, r, ledger.PartyAgent)
}

// =============================================================================
// VENDOR HANDLERS
// =============================================================================

// ListVendors returns all vendors.
func (h *Handler) ListVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.Store.ListVendors(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list vendors", "internal", err)
		return
	}

	dtos := make([]VendorDTO, len(vendors))
	for i, v := range vendors {
		dtos[i] = toVendorDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateVendor creates a vendor with zero pool balances.
func (h *Handler) CreateVendor(w http.ResponseWriter, r *http.Request) {
	var req CreateVendorRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	v := ledger.Vendor{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Phone:          req.Phone,
		CreditBalance:  ledger.Zero,
		DepositBalance: ledger.Zero,
		Airlines:       toAirlines(req.Airlines),
	}
	if err := h.Store.SaveVendor(r.Context(), v); err != nil {
		writeDomainError(w, "Failed to create vendor", err)
		return
	}

	h.Log.WithField("vendor_id", v.ID).Info("vendor created")
	writeJSON(w, http.StatusCreated, toVendorDTO(v))
}

// GetVendor returns one vendor.
func (h *Handler) GetVendor(w http.ResponseWriter, r *http.Request) {
	v, err := h.Store.GetVendor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get vendor", "internal", err)
		return
	}
	if v == nil {
		writeError(w, http.StatusNotFound, "Vendor not found", "not_found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toVendorDTO(*v))
}

// UpdateVendor updates contact fields and the airline list.
func (h *Handler) UpdateVendor(w http.ResponseWriter, r *http.Request) {
	var req CreateVendorRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.Store.UpdateVendorContact(r.Context(), id, req.Name, req.Phone, toAirlines(req.Airlines)); err != nil {
		writeDomainError(w, "Failed to update vendor", err)
		return
	}

	v, err := h.Store.GetVendor(r.Context(), id)
	if err != nil || v == nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload vendor", "internal", err)
		return
	}
	writeJSON(w, http.StatusOK, toVendorDTO(*v))
}

// DeleteVendor removes a vendor record.
func (h *Handler) DeleteVendor(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteVendor(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete vendor", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TopUpVendorBalance credits a vendor's credit or deposit pool.
func (h *Handler) TopUpVendorBalance(w http.ResponseWriter, r *http.Request) {
	var req VendorTopUpRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	row, err := h.Engine.TopUpVendorBalance(r.Context(), id, ledger.VendorPool(req.Pool), decimal.NewFromFloat(req.Amount), req.Note)
	if err != nil {
		writeDomainError(w, "Failed to top up vendor balance", err)
		return
	}

	h.Log.WithFields(logrus.Fields{
		"vendor_id": id, "pool": req.Pool, "amount": req.Amount,
	}).Info("vendor balance topped up")
	writeJSON(w, http.StatusCreated, toVendorTxDTO(*row))
}

// ListVendorTransactions returns a vendor's ledger.
func (h *Handler) ListVendorTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Store.ListVendorTransactions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transactions", "internal", err)
		return
	}

	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toVendorTxDTO(tx)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// ListInvoices returns all invoices, newest first.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.Store.ListInvoices(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list invoices", "internal", err)
		return
	}

	dtos := make([]InvoiceDTO, len(invoices))
	for i, inv := range invoices {
		dtos[i] = toInvoiceDTO(inv)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func toCreateInvoice(req CreateInvoiceRequest) ledger.CreateInvoice {
	return ledger.CreateInvoice{
		CustomerType:       ledger.PartyKind(req.CustomerType),
		CustomerID:         req.CustomerID,
		VendorID:           req.VendorID,
		Items:              toItems(req.Items),
		DiscountPercent:    decimal.NewFromFloat(req.DiscountPercent),
		UseCustomerDeposit: req.UseCustomerDeposit,
		UseAgentCredit:     req.UseAgentCredit,
		UseVendorBalance:   ledger.VendorPool(req.UseVendorBalance),
		VendorCost:         decimal.NewFromFloat(req.VendorCost),
		PaymentMethod:      req.PaymentMethod,
	}
}

// CreateInvoice commits an invoice and all balance mutations atomically.
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	inv, err := h.Engine.CommitInvoice(r.Context(), toCreateInvoice(req))
	if err != nil {
		writeDomainError(w, "Failed to create invoice", err)
		return
	}

	h.Log.WithFields(logrus.Fields{
		"invoice_number": inv.InvoiceNumber,
		"customer_id":    inv.CustomerID,
		"total":          f(inv.Total),
	}).Info("invoice issued")
	writeJSON(w, http.StatusCreated, toInvoiceDTO(*inv))
}

// PreviewInvoice runs the calculation without committing anything. The live
// balances are read but never written.
func (h *Handler) PreviewInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	ctx := r.Context()
	in := ledger.InvoiceInput{
		Items:              toItems(req.Items),
		DiscountPercent:    decimal.NewFromFloat(req.DiscountPercent),
		UseCustomerDeposit: req.UseCustomerDeposit,
		UseAgentCredit:     req.UseAgentCredit,
		UseVendorBalance:   ledger.VendorPool(req.UseVendorBalance),
		VendorCost:         decimal.NewFromFloat(req.VendorCost),
	}

	switch ledger.PartyKind(req.CustomerType) {
	case ledger.PartyCustomer:
		c, err := h.Store.GetCustomer(ctx, req.CustomerID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load customer", "internal", err)
			return
		}
		if c == nil {
			writeError(w, http.StatusNotFound, "Customer not found", "not_found", nil)
			return
		}
		snap := ledger.SnapshotCustomer(c)
		in.Party = &snap
	case ledger.PartyAgent:
		a, err := h.Store.GetAgent(ctx, req.CustomerID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load agent", "internal", err)
			return
		}
		if a == nil {
			writeError(w, http.StatusNotFound, "Agent not found", "not_found", nil)
			return
		}
		snap := ledger.SnapshotAgent(a)
		in.Party = &snap
	}

	if req.VendorID != "" {
		v, err := h.Store.GetVendor(ctx, req.VendorID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load vendor", "internal", err)
			return
		}
		if v == nil {
			writeError(w, http.StatusNotFound, "Vendor not found", "not_found", nil)
			return
		}
		in.Vendor = v
	}

	amounts, err := ledger.CalculateInvoice(in)
	if err != nil {
		writeDomainError(w, "Failed to calculate invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, toAmountsDTO(amounts))
}

// GetInvoice returns one invoice.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Store.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get invoice", "internal", err)
		return
	}
	if inv == nil {
		writeError(w, http.StatusNotFound, "Invoice not found", "not_found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv))
}

// PayInvoice confirms payment of an issued invoice.
func (h *Handler) PayInvoice(w http.ResponseWriter, r *http.Request) {
	var req PayRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.Engine.PayInvoice(r.Context(), id, req.PaidBy); err != nil {
		writeDomainError(w, "Failed to pay invoice", err)
		return
	}

	inv, err := h.Store.GetInvoice(r.Context(), id)
	if err != nil || inv == nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload invoice", "internal", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv))
}

// =============================================================================
// TICKET HANDLERS
// =============================================================================

// ListTickets returns all tickets, newest first.
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.Store.ListTickets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tickets", "internal", err)
		return
	}

	dtos := make([]TicketDTO, len(tickets))
	for i, t := range tickets {
		dtos[i] = toTicketDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func toCreateTicket(req CreateTicketRequest) ledger.CreateTicket {
	costs := make([]decimal.Decimal, 0, len(req.PerPassengerCosts))
	for _, c := range req.PerPassengerCosts {
		costs = append(costs, decimal.NewFromFloat(c))
	}
	return ledger.CreateTicket{
		CustomerID:        req.CustomerID,
		VendorID:          req.VendorID,
		PerPassengerCosts: costs,
		MCAddition:        decimal.NewFromFloat(req.MCAddition),
		DeductFromDeposit: req.DeductFromDeposit,
		UseVendorBalance:  ledger.VendorPool(req.UseVendorBalance),
		VendorCost:        decimal.NewFromFloat(req.VendorCost),
	}
}

// CreateTicket commits a ticket and all balance mutations atomically.
func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var req CreateTicketRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	tkt, err := h.Engine.CommitTicket(r.Context(), toCreateTicket(req))
	if err != nil {
		writeDomainError(w, "Failed to create ticket", err)
		return
	}

	h.Log.WithFields(logrus.Fields{
		"ticket_number": tkt.TicketNumber,
		"customer_id":   tkt.CustomerID,
		"amount_due":    f(tkt.AmountDue),
	}).Info("ticket issued")
	writeJSON(w, http.StatusCreated, toTicketDTO(*tkt))
}

// PreviewTicket runs the ticket calculation without committing anything.
func (h *Handler) PreviewTicket(w http.ResponseWriter, r *http.Request) {
	var req CreateTicketRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	ctx := r.Context()
	create := toCreateTicket(req)
	in := ledger.TicketInput{
		PerPassengerCosts: create.PerPassengerCosts,
		MCAddition:        create.MCAddition,
		DeductFromDeposit: create.DeductFromDeposit,
		UseVendorBalance:  create.UseVendorBalance,
		VendorCost:        create.VendorCost,
	}

	c, err := h.Store.GetCustomer(ctx, req.CustomerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load customer", "internal", err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "Customer not found", "not_found", nil)
		return
	}
	in.Customer = c

	if req.VendorID != "" {
		v, err := h.Store.GetVendor(ctx, req.VendorID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load vendor", "internal", err)
			return
		}
		if v == nil {
			writeError(w, http.StatusNotFound, "Vendor not found", "not_found", nil)
			return
		}
		in.Vendor = v
	}

	amounts, err := ledger.CalculateTicket(in)
	if err != nil {
		writeDomainError(w, "Failed to calculate ticket", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"face_value":              f(amounts.FaceValue),
		"deposit_deducted":        f(amounts.DepositDeducted),
		"amount_due":              f(amounts.AmountDue),
		"vendor_balance_deducted": f(amounts.VendorBalanceDeducted),
		"vendor_accrued":          f(amounts.VendorAccrued),
	})
}

// GetTicket returns one ticket.
func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	tkt, err := h.Store.GetTicket(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get ticket", "internal", err)
		return
	}
	if tkt == nil {
		writeError(w, http.StatusNotFound, "Ticket not found", "not_found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toTicketDTO(*tkt))
}

// PayTicket confirms payment of a ticket.
func (h *Handler) PayTicket(w http.ResponseWriter, r *http.Request) {
	var req PayRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.Engine.PayTicket(r.Context(), id, req.PaidBy); err != nil {
		writeDomainError(w, "Failed to pay ticket", err)
		return
	}

	tkt, err := h.Store.GetTicket(r.Context(), id)
	if err != nil || tkt == nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload ticket", "internal", err)
		return
	}
	writeJSON(w, http.StatusOK, toTicketDTO(*tkt))
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetSummary returns the house-wide rollup.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	invoices, err := h.Store.ListInvoices(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load invoices", "internal", err)
		return
	}
	tickets, err := h.Store.ListTickets(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load tickets", "internal", err)
		return
	}
	customers, err := h.Store.ListCustomers(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load customers", "internal", err)
		return
	}
	agents, err := h.Store.ListAgents(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load agents", "internal", err)
		return
	}
	vendors, err := h.Store.ListVendors(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load vendors", "internal", err)
		return
	}

	writeJSON(w, http.StatusOK, toSummaryDTO(reports.BuildSummary(invoices, tickets, customers, agents, vendors)))
}

// GetVendorReports returns the per-vendor rollup.
func (h *Handler) GetVendorReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	vendors, err := h.Store.ListVendors(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load vendors", "internal", err)
		return
	}
	invoices, err := h.Store.ListInvoices(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load invoices", "internal", err)
		return
	}
	tickets, err := h.Store.ListTickets(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load tickets", "internal", err)
		return
	}

	rows := reports.BuildVendorReports(vendors, invoices, tickets)
	dtos := make([]VendorReportDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toVendorReportDTO(row)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// DEV TOOLING
// =============================================================================

// LoadDemo wipes the database and loads the demo dataset.
func (h *Handler) LoadDemo(w http.ResponseWriter, r *http.Request) {
	if err := loadDemoData(r.Context(), h.Store, h.Engine); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load demo data", "internal", err)
		return
	}
	h.Log.Info("demo dataset loaded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded"})
}

// ResetDemo wipes the database.
func (h *Handler) ResetDemo(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset", "internal", err)
		return
	}
	h.Log.Warn("database reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message, code string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps ledger errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, message, "not_found", err)
	case errors.Is(err, ledger.ErrDuplicateParty):
		writeError(w, http.StatusConflict, message, "duplicate", err)
	case errors.Is(err, ledger.ErrAlreadyPaid):
		writeError(w, http.StatusConflict, message, "already_paid", err)
	case errors.Is(err, ledger.ErrValidation):
		writeError(w, http.StatusBadRequest, message, "validation_error", err)
	default:
		writeError(w, http.StatusInternalServerError, message, "internal", err)
	}
}
