/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY AT THE EDGE:
  Internally every amount is a decimal. DTOs carry float64 because that is
  what the JSON clients speak; the conversion happens here and nowhere else.

VALIDATION:
  Request structs carry validator tags; handlers run them through the shared
  validator before touching domain logic.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: The domain model these map from
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/skytrail/backoffice/ledger"
	"github.com/skytrail/backoffice/reports"
)

// =============================================================================
// PARTIES
// =============================================================================

// CustomerDTO represents a customer in API responses.
type CustomerDTO struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Phone          string  `json:"phone"`
	Email          string  `json:"email,omitempty"`
	DepositBalance float64 `json:"deposit_balance"`
	CreatedAt      string  `json:"created_at,omitempty"`
}

// CreateCustomerRequest is the request to create or update a customer.
type CreateCustomerRequest struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
}

// AgentDTO represents an agent in API responses.
type AgentDTO struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Phone          string  `json:"phone"`
	CreditBalance  float64 `json:"credit_balance"`
	DepositBalance float64 `json:"deposit_balance"`
	CreatedAt      string  `json:"created_at,omitempty"`
}

// CreateAgentRequest is the request to create or update an agent.
type CreateAgentRequest struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone" validate:"required"`
}

// AirlineDTO is a carrier entry on a vendor.
type AirlineDTO struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// VendorDTO represents a vendor in API responses.
type VendorDTO struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Phone          string       `json:"phone,omitempty"`
	CreditBalance  float64      `json:"credit_balance"`
	DepositBalance float64      `json:"deposit_balance"`
	Airlines       []AirlineDTO `json:"airlines,omitempty"`
	CreatedAt      string       `json:"created_at,omitempty"`
}

// CreateVendorRequest is the request to create or update a vendor.
type CreateVendorRequest struct {
	Name     string       `json:"name" validate:"required"`
	Phone    string       `json:"phone"`
	Airlines []AirlineDTO `json:"airlines"`
}

// =============================================================================
// BALANCE OPERATIONS
// =============================================================================

// TopUpRequest credits a deposit pool.
type TopUpRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Note   string  `json:"note"`
}

// CreditAdjustmentRequest grants (positive) or settles (negative) agent
// credit.
type CreditAdjustmentRequest struct {
	Amount float64 `json:"amount" validate:"required"`
	Note   string  `json:"note"`
}

// VendorTopUpRequest credits one of a vendor's pools.
type VendorTopUpRequest struct {
	Pool   string  `json:"pool" validate:"required,oneof=credit deposit"`
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Note   string  `json:"note"`
}

// TransactionDTO is one row of a party or vendor ledger.
type TransactionDTO struct {
	ID            string  `json:"id"`
	Pool          string  `json:"pool"`
	Type          string  `json:"type"`
	Amount        float64 `json:"amount"`
	BalanceAfter  float64 `json:"balance_after"`
	ReferenceType string  `json:"reference_type,omitempty"`
	ReferenceID   string  `json:"reference_id,omitempty"`
	Note          string  `json:"note,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// =============================================================================
// INVOICES
// =============================================================================

// InvoiceItemDTO is one sector line on an invoice.
type InvoiceItemDTO struct {
	Sector string  `json:"sector"`
	Amount float64 `json:"amount" validate:"gte=0"`
}

// CreateInvoiceRequest is the request to preview or commit an invoice.
type CreateInvoiceRequest struct {
	CustomerType       string           `json:"customer_type" validate:"required,oneof=customer agent"`
	CustomerID         string           `json:"customer_id" validate:"required"`
	VendorID           string           `json:"vendor_id"`
	Items              []InvoiceItemDTO `json:"items" validate:"required,min=1,dive"`
	DiscountPercent    float64          `json:"discount_percent" validate:"gte=0,lte=100"`
	UseCustomerDeposit bool             `json:"use_customer_deposit"`
	UseAgentCredit     bool             `json:"use_agent_credit"`
	UseVendorBalance   string           `json:"use_vendor_balance" validate:"omitempty,oneof=none credit deposit"`
	VendorCost         float64          `json:"vendor_cost" validate:"gte=0"`
	PaymentMethod      string           `json:"payment_method"`
}

// InvoiceAmountsDTO is the calculation half of an invoice response. The
// preview endpoint returns it bare.
type InvoiceAmountsDTO struct {
	Subtotal              float64 `json:"subtotal"`
	DiscountAmount        float64 `json:"discount_amount"`
	DepositUsed           float64 `json:"deposit_used"`
	AgentCreditUsed       float64 `json:"agent_credit_used"`
	VendorBalanceDeducted float64 `json:"vendor_balance_deducted"`
	Total                 float64 `json:"total"`
}

// InvoiceDTO represents an issued invoice.
type InvoiceDTO struct {
	ID               string           `json:"id"`
	InvoiceNumber    string           `json:"invoice_number"`
	CustomerType     string           `json:"customer_type"`
	CustomerID       string           `json:"customer_id"`
	VendorID         string           `json:"vendor_id,omitempty"`
	Items            []InvoiceItemDTO `json:"items"`
	DiscountPercent  float64          `json:"discount_percent"`
	UseVendorBalance string           `json:"use_vendor_balance"`
	VendorCost       float64          `json:"vendor_cost"`
	PaymentMethod    string           `json:"payment_method,omitempty"`
	Status           string           `json:"status"`
	CreatedAt        string           `json:"created_at"`
	PaidAt           string           `json:"paid_at,omitempty"`
	PaidBy           string           `json:"paid_by,omitempty"`

	InvoiceAmountsDTO
}

// =============================================================================
// TICKETS
// =============================================================================

// CreateTicketRequest is the request to commit a ticket.
type CreateTicketRequest struct {
	CustomerID        string    `json:"customer_id" validate:"required"`
	VendorID          string    `json:"vendor_id"`
	PerPassengerCosts []float64 `json:"per_passenger_costs" validate:"required,min=1,dive,gte=0"`
	MCAddition        float64   `json:"mc_addition" validate:"gte=0"`
	DeductFromDeposit bool      `json:"deduct_from_deposit"`
	UseVendorBalance  string    `json:"use_vendor_balance" validate:"omitempty,oneof=none credit deposit"`
	VendorCost        float64   `json:"vendor_cost" validate:"gte=0"`
}

// TicketDTO represents an issued ticket.
type TicketDTO struct {
	ID                    string  `json:"id"`
	TicketNumber          string  `json:"ticket_number"`
	CustomerID            string  `json:"customer_id"`
	VendorID              string  `json:"vendor_id,omitempty"`
	Passengers            int     `json:"passengers"`
	FaceValue             float64 `json:"face_value"`
	PerPassengerDisplay   float64 `json:"per_passenger_display"`
	MCAddition            float64 `json:"mc_addition"`
	DepositDeducted       float64 `json:"deposit_deducted"`
	AmountDue             float64 `json:"amount_due"`
	VendorCost            float64 `json:"vendor_cost"`
	UseVendorBalance      string  `json:"use_vendor_balance"`
	VendorBalanceDeducted float64 `json:"vendor_balance_deducted"`
	Status                string  `json:"status"`
	IsPaid                bool    `json:"is_paid"`
	CreatedAt             string  `json:"created_at"`
	PaidAt                string  `json:"paid_at,omitempty"`
	PaidBy                string  `json:"paid_by,omitempty"`
}

// PayRequest confirms payment of a document.
type PayRequest struct {
	PaidBy string `json:"paid_by"`
}

// =============================================================================
// REPORTS
// =============================================================================

// SummaryDTO is the house-wide rollup.
type SummaryDTO struct {
	InvoiceCount     int     `json:"invoice_count"`
	TicketCount      int     `json:"ticket_count"`
	InvoiceSales     float64 `json:"invoice_sales"`
	TicketSales      float64 `json:"ticket_sales"`
	OutstandingTotal float64 `json:"outstanding_total"`
	CustomerDeposits float64 `json:"customer_deposits"`
	AgentDeposits    float64 `json:"agent_deposits"`
	AgentCredit      float64 `json:"agent_credit"`
	VendorPayables   float64 `json:"vendor_payables"`
	VendorDeposits   float64 `json:"vendor_deposits"`
}

// VendorReportDTO is the per-vendor rollup.
type VendorReportDTO struct {
	VendorID      string  `json:"vendor_id"`
	VendorName    string  `json:"vendor_name"`
	TicketCount   int     `json:"ticket_count"`
	InvoiceCount  int     `json:"invoice_count"`
	TotalCost     float64 `json:"total_cost"`
	TotalDeducted float64 `json:"total_deducted"`
	CreditBalance float64 `json:"credit_balance"`
	DepositHeld   float64 `json:"deposit_held"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func f(d decimal.Decimal) float64 {
	v, _ := d.Float64()
	return v
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func fmtTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toCustomerDTO(c ledger.Customer) CustomerDTO {
	return CustomerDTO{
		ID:             c.ID,
		Name:           c.Name,
		Phone:          c.Phone,
		Email:          c.Email,
		DepositBalance: f(c.DepositBalance),
		CreatedAt:      fmtTime(c.CreatedAt),
	}
}

func toAgentDTO(a ledger.Agent) AgentDTO {
	return AgentDTO{
		ID:             a.ID,
		Name:           a.Name,
		Phone:          a.Phone,
		CreditBalance:  f(a.CreditBalance),
		DepositBalance: f(a.DepositBalance),
		CreatedAt:      fmtTime(a.CreatedAt),
	}
}

func toVendorDTO(v ledger.Vendor) VendorDTO {
	dto := VendorDTO{
		ID:             v.ID,
		Name:           v.Name,
		Phone:          v.Phone,
		CreditBalance:  f(v.CreditBalance),
		DepositBalance: f(v.DepositBalance),
		CreatedAt:      fmtTime(v.CreatedAt),
	}
	for _, a := range v.Airlines {
		dto.Airlines = append(dto.Airlines, AirlineDTO{Name: a.Name, Code: a.Code})
	}
	return dto
}

func toAirlines(dtos []AirlineDTO) []ledger.Airline {
	out := make([]ledger.Airline, 0, len(dtos))
	for _, a := range dtos {
		out = append(out, ledger.Airline{Name: a.Name, Code: a.Code})
	}
	return out
}

func toItems(dtos []InvoiceItemDTO) []ledger.InvoiceItem {
	out := make([]ledger.InvoiceItem, 0, len(dtos))
	for _, it := range dtos {
		out = append(out, ledger.InvoiceItem{Sector: it.Sector, Amount: decimal.NewFromFloat(it.Amount)})
	}
	return out
}

func toItemDTOs(items []ledger.InvoiceItem) []InvoiceItemDTO {
	out := make([]InvoiceItemDTO, 0, len(items))
	for _, it := range items {
		out = append(out, InvoiceItemDTO{Sector: it.Sector, Amount: f(it.Amount)})
	}
	return out
}

func toInvoiceDTO(inv ledger.Invoice) InvoiceDTO {
	return InvoiceDTO{
		ID:               inv.ID,
		InvoiceNumber:    inv.InvoiceNumber,
		CustomerType:     string(inv.CustomerType),
		CustomerID:       inv.CustomerID,
		VendorID:         inv.VendorID,
		Items:            toItemDTOs(inv.Items),
		DiscountPercent:  f(inv.DiscountPercent),
		UseVendorBalance: string(inv.UseVendorBalance),
		VendorCost:       f(inv.VendorCost),
		PaymentMethod:    inv.PaymentMethod,
		Status:           string(inv.Status),
		CreatedAt:        fmtTime(inv.CreatedAt),
		PaidAt:           fmtTimePtr(inv.PaidAt),
		PaidBy:           inv.PaidBy,
		InvoiceAmountsDTO: InvoiceAmountsDTO{
			Subtotal:              f(inv.Subtotal),
			DiscountAmount:        f(inv.DiscountAmount),
			DepositUsed:           f(inv.DepositUsed),
			AgentCreditUsed:       f(inv.AgentCreditUsed),
			VendorBalanceDeducted: f(inv.VendorBalanceDeducted),
			Total:                 f(inv.Total),
		},
	}
}

func toAmountsDTO(a ledger.InvoiceAmounts) InvoiceAmountsDTO {
	return InvoiceAmountsDTO{
		Subtotal:              f(a.Subtotal),
		DiscountAmount:        f(a.DiscountAmount),
		DepositUsed:           f(a.DepositUsed),
		AgentCreditUsed:       f(a.AgentCreditUsed),
		VendorBalanceDeducted: f(a.VendorBalanceDeducted),
		Total:                 f(a.Total),
	}
}

func toTicketDTO(t ledger.Ticket) TicketDTO {
	return TicketDTO{
		ID:                    t.ID,
		TicketNumber:          t.TicketNumber,
		CustomerID:            t.CustomerID,
		VendorID:              t.VendorID,
		Passengers:            t.Passengers,
		FaceValue:             f(t.FaceValue),
		PerPassengerDisplay:   f(t.PerPassenger()),
		MCAddition:            f(t.MCAddition),
		DepositDeducted:       f(t.DepositDeducted),
		AmountDue:             f(t.AmountDue),
		VendorCost:            f(t.VendorCost),
		UseVendorBalance:      string(t.UseVendorBalance),
		VendorBalanceDeducted: f(t.VendorBalanceDeducted),
		Status:                string(t.Status),
		IsPaid:                t.IsPaid,
		CreatedAt:             fmtTime(t.CreatedAt),
		PaidAt:                fmtTimePtr(t.PaidAt),
		PaidBy:                t.PaidBy,
	}
}

func toDepositTxDTO(tx ledger.DepositTransaction) TransactionDTO {
	return TransactionDTO{
		ID:            tx.ID,
		Pool:          string(tx.Pool),
		Type:          string(tx.Type),
		Amount:        f(tx.Amount),
		BalanceAfter:  f(tx.BalanceAfter),
		ReferenceType: string(tx.ReferenceType),
		ReferenceID:   tx.ReferenceID,
		Note:          tx.Note,
		CreatedAt:     fmtTime(tx.CreatedAt),
	}
}

func toVendorTxDTO(tx ledger.VendorTransaction) TransactionDTO {
	return TransactionDTO{
		ID:            tx.ID,
		Pool:          string(tx.Pool),
		Type:          string(tx.Type),
		Amount:        f(tx.Amount),
		BalanceAfter:  f(tx.BalanceAfter),
		ReferenceType: string(tx.ReferenceType),
		ReferenceID:   tx.ReferenceID,
		Note:          tx.Note,
		CreatedAt:     fmtTime(tx.CreatedAt),
	}
}

func toSummaryDTO(s reports.Summary) SummaryDTO {
	return SummaryDTO{
		InvoiceCount:     s.InvoiceCount,
		TicketCount:      s.TicketCount,
		InvoiceSales:     f(s.InvoiceSales),
		TicketSales:      f(s.TicketSales),
		OutstandingTotal: f(s.OutstandingTotal),
		CustomerDeposits: f(s.CustomerDeposits),
		AgentDeposits:    f(s.AgentDeposits),
		AgentCredit:      f(s.AgentCredit),
		VendorPayables:   f(s.VendorPayables),
		VendorDeposits:   f(s.VendorDeposits),
	}
}

func toVendorReportDTO(r reports.VendorReport) VendorReportDTO {
	return VendorReportDTO{
		VendorID:      r.VendorID,
		VendorName:    r.VendorName,
		TicketCount:   r.TicketCount,
		InvoiceCount:  r.InvoiceCount,
		TotalCost:     f(r.TotalCost),
		TotalDeducted: f(r.TotalDeducted),
		CreditBalance: f(r.CreditBalance),
		DepositHeld:   f(r.DepositHeld),
	}
}
