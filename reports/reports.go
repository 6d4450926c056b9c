/*
Package reports computes back-office rollups as pure functions over already
loaded slices.

PURPOSE:
  Dashboards need sales totals, outstanding receivables, and per-vendor
  payables. Everything here is a linear pass over materialized documents and
  party records; no store access, no side effects, so the functions test
  without a database.

SEE ALSO:
  - api/handlers.go: Loads the slices and serializes the results
*/
package reports

import (
	"github.com/shopspring/decimal"
	"github.com/skytrail/backoffice/ledger"
)

// Summary is the house-wide financial rollup.
type Summary struct {
	InvoiceCount     int
	TicketCount      int
	InvoiceSales     decimal.Decimal // sum of invoice totals
	TicketSales      decimal.Decimal // sum of ticket amounts due
	OutstandingTotal decimal.Decimal // unpaid invoice totals + unpaid ticket dues
	CustomerDeposits decimal.Decimal // deposit funds held for customers
	AgentDeposits    decimal.Decimal
	AgentCredit      decimal.Decimal // open agent credit lines
	VendorPayables   decimal.Decimal // credit owed to vendors
	VendorDeposits   decimal.Decimal // house funds parked with vendors
}

// BuildSummary rolls up documents and party balances in one pass each.
func BuildSummary(invoices []ledger.Invoice, tickets []ledger.Ticket, customers []ledger.Customer, agents []ledger.Agent, vendors []ledger.Vendor) Summary {
	s := Summary{
		InvoiceCount:     len(invoices),
		TicketCount:      len(tickets),
		InvoiceSales:     decimal.Zero,
		TicketSales:      decimal.Zero,
		OutstandingTotal: decimal.Zero,
		CustomerDeposits: decimal.Zero,
		AgentDeposits:    decimal.Zero,
		AgentCredit:      decimal.Zero,
		VendorPayables:   decimal.Zero,
		VendorDeposits:   decimal.Zero,
	}

	for _, inv := range invoices {
		s.InvoiceSales = s.InvoiceSales.Add(inv.Total)
		if inv.Status != ledger.StatusPaid {
			s.OutstandingTotal = s.OutstandingTotal.Add(inv.Total)
		}
	}
	for _, t := range tickets {
		s.TicketSales = s.TicketSales.Add(t.AmountDue)
		if !t.IsPaid {
			s.OutstandingTotal = s.OutstandingTotal.Add(t.AmountDue)
		}
	}
	for _, c := range customers {
		s.CustomerDeposits = s.CustomerDeposits.Add(c.DepositBalance)
	}
	for _, a := range agents {
		s.AgentDeposits = s.AgentDeposits.Add(a.DepositBalance)
		s.AgentCredit = s.AgentCredit.Add(a.CreditBalance)
	}
	for _, v := range vendors {
		s.VendorPayables = s.VendorPayables.Add(v.CreditBalance)
		s.VendorDeposits = s.VendorDeposits.Add(v.DepositBalance)
	}
	return s
}

// VendorReport is the per-vendor cost and payable rollup.
type VendorReport struct {
	VendorID      string
	VendorName    string
	TicketCount   int
	InvoiceCount  int
	TotalCost     decimal.Decimal // vendor costs across documents
	TotalDeducted decimal.Decimal // settled from vendor pools at issuance
	CreditBalance decimal.Decimal // payable still owed to the vendor
	DepositHeld   decimal.Decimal
}

// BuildVendorReports groups documents by vendor. Vendors with no documents
// still appear so open balances are visible. Order follows the vendors slice.
func BuildVendorReports(vendors []ledger.Vendor, invoices []ledger.Invoice, tickets []ledger.Ticket) []VendorReport {
	byID := make(map[string]*VendorReport, len(vendors))
	out := make([]VendorReport, len(vendors))
	for i, v := range vendors {
		out[i] = VendorReport{
			VendorID:      v.ID,
			VendorName:    v.Name,
			TotalCost:     decimal.Zero,
			TotalDeducted: decimal.Zero,
			CreditBalance: v.CreditBalance,
			DepositHeld:   v.DepositBalance,
		}
		byID[v.ID] = &out[i]
	}

	for _, inv := range invoices {
		r, ok := byID[inv.VendorID]
		if !ok {
			continue
		}
		r.InvoiceCount++
		r.TotalCost = r.TotalCost.Add(inv.VendorCost)
		r.TotalDeducted = r.TotalDeducted.Add(inv.VendorBalanceDeducted)
	}
	for _, t := range tickets {
		r, ok := byID[t.VendorID]
		if !ok {
			continue
		}
		r.TicketCount++
		r.TotalCost = r.TotalCost.Add(t.VendorCost)
		r.TotalDeducted = r.TotalDeducted.Add(t.VendorBalanceDeducted)
	}
	return out
}
