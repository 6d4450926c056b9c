/*
seed.go - Demo dataset

PURPOSE:
  Loads a small realistic dataset for local development and UI demos:
  a handful of parties with funded balances plus a few issued documents,
  all created through the engine so every ledger row is real.

SEE ALSO:
  - handlers.go: LoadDemo / ResetDemo endpoints
*/
package api

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/skytrail/backoffice/ledger"
	"github.com/skytrail/backoffice/store/sqlite"
)

// loadDemoData wipes the database and rebuilds the demo world.
func loadDemoData(ctx context.Context, store *sqlite.Store, engine *ledger.Engine) error {
	if err := store.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	customers := []ledger.Customer{
		{ID: "demo-cust-rahim", Name: "Rahim Uddin", Phone: "+8801711000001", Email: "rahim@example.com", DepositBalance: ledger.Zero},
		{ID: "demo-cust-salma", Name: "Salma Akter", Phone: "+8801711000002", DepositBalance: ledger.Zero},
	}
	for _, c := range customers {
		if err := store.SaveCustomer(ctx, c); err != nil {
			return fmt.Errorf("seed customer %s: %w", c.Name, err)
		}
	}

	agents := []ledger.Agent{
		{ID: "demo-agent-karim", Name: "Karim Travels", Phone: "+8801811000001", CreditBalance: ledger.Zero, DepositBalance: ledger.Zero},
	}
	for _, a := range agents {
		if err := store.SaveAgent(ctx, a); err != nil {
			return fmt.Errorf("seed agent %s: %w", a.Name, err)
		}
	}

	vendors := []ledger.Vendor{
		{
			ID: "demo-vendor-skyways", Name: "Skyways International", Phone: "+8801911000001",
			CreditBalance: ledger.Zero, DepositBalance: ledger.Zero,
			Airlines: []ledger.Airline{{Name: "Biman Bangladesh", Code: "BG"}, {Name: "US-Bangla", Code: "BS"}},
		},
		{
			ID: "demo-vendor-gulf", Name: "Gulf Consolidators", Phone: "+8801911000002",
			CreditBalance: ledger.Zero, DepositBalance: ledger.Zero,
			Airlines: []ledger.Airline{{Name: "Emirates", Code: "EK"}},
		},
	}
	for _, v := range vendors {
		if err := store.SaveVendor(ctx, v); err != nil {
			return fmt.Errorf("seed vendor %s: %w", v.Name, err)
		}
	}

	// Fund balances through the engine so the transaction history is real.
	if _, err := engine.TopUpDeposit(ctx, ledger.PartyCustomer, "demo-cust-rahim", decimal.NewFromInt(50000), "opening deposit"); err != nil {
		return fmt.Errorf("fund customer: %w", err)
	}
	if _, err := engine.TopUpDeposit(ctx, ledger.PartyAgent, "demo-agent-karim", decimal.NewFromInt(20000), "opening deposit"); err != nil {
		return fmt.Errorf("fund agent deposit: %w", err)
	}
	if _, err := engine.AdjustAgentCredit(ctx, "demo-agent-karim", decimal.NewFromInt(15000), "opening credit line"); err != nil {
		return fmt.Errorf("fund agent credit: %w", err)
	}
	if _, err := engine.TopUpVendorBalance(ctx, "demo-vendor-skyways", ledger.VendorPoolCredit, decimal.NewFromInt(100000), "advance payment"); err != nil {
		return fmt.Errorf("fund vendor credit: %w", err)
	}
	if _, err := engine.TopUpVendorBalance(ctx, "demo-vendor-gulf", ledger.VendorPoolDeposit, decimal.NewFromInt(40000), "security deposit"); err != nil {
		return fmt.Errorf("fund vendor deposit: %w", err)
	}

	// A paid invoice drawing on the customer deposit.
	inv, err := engine.CommitInvoice(ctx, ledger.CreateInvoice{
		CustomerType: ledger.PartyCustomer,
		CustomerID:   "demo-cust-rahim",
		VendorID:     "demo-vendor-skyways",
		Items: []ledger.InvoiceItem{
			{Sector: "DAC-DXB", Amount: decimal.NewFromInt(42000)},
			{Sector: "DXB-DAC", Amount: decimal.NewFromInt(38000)},
		},
		DiscountPercent:    decimal.NewFromInt(5),
		UseCustomerDeposit: true,
		UseVendorBalance:   ledger.VendorPoolCredit,
		VendorCost:         decimal.NewFromInt(68000),
		PaymentMethod:      "cash",
	})
	if err != nil {
		return fmt.Errorf("seed invoice: %w", err)
	}
	if err := engine.PayInvoice(ctx, inv.ID, "demo"); err != nil {
		return fmt.Errorf("pay seed invoice: %w", err)
	}

	// An outstanding agent invoice drawing on both agent pools.
	if _, err := engine.CommitInvoice(ctx, ledger.CreateInvoice{
		CustomerType: ledger.PartyAgent,
		CustomerID:   "demo-agent-karim",
		Items: []ledger.InvoiceItem{
			{Sector: "DAC-JED", Amount: decimal.NewFromInt(55000)},
		},
		UseCustomerDeposit: true,
		UseAgentCredit:     true,
		PaymentMethod:      "bank",
	}); err != nil {
		return fmt.Errorf("seed agent invoice: %w", err)
	}

	// A ticket bought on account, accruing a payable to the vendor.
	if _, err := engine.CommitTicket(ctx, ledger.CreateTicket{
		CustomerID:        "demo-cust-salma",
		VendorID:          "demo-vendor-gulf",
		PerPassengerCosts: []decimal.Decimal{decimal.NewFromInt(32000), decimal.NewFromInt(32000)},
		MCAddition:        decimal.NewFromInt(3000),
		VendorCost:        decimal.NewFromInt(60000),
	}); err != nil {
		return fmt.Errorf("seed ticket: %w", err)
	}

	// A direct ticket paid from the customer deposit.
	if _, err := engine.CommitTicket(ctx, ledger.CreateTicket{
		CustomerID:        "demo-cust-rahim",
		PerPassengerCosts: []decimal.Decimal{decimal.NewFromInt(18500)},
		MCAddition:        decimal.NewFromInt(1500),
		DeductFromDeposit: true,
	}); err != nil {
		return fmt.Errorf("seed direct ticket: %w", err)
	}

	return nil
}
