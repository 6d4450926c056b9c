/*
server.go - HTTP router setup

PURPOSE:
  Wires all API routes to their handlers and configures middleware
  (request IDs, logging, panic recovery, CORS for the front office UI).

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup and shutdown
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds the chi router with all routes registered.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// =========================================================================
	// MIDDLEWARE
	// =========================================================================

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// =========================================================================
	// ROUTES
	// =========================================================================

	r.Route("/api", func(r chi.Router) {
		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.ListCustomers)
			r.Post("/", h.CreateCustomer)
			r.Get("/{id}", h.GetCustomer)
			r.Put("/{id}", h.UpdateCustomer)
			r.Delete("/{id}", h.DeleteCustomer)
			r.Post("/{id}/deposit", h.TopUpCustomerDeposit)
			r.Get("/{id}/transactions", h.ListCustomerTransactions)
		})

		r.Route("/agents", func(r chi.Router) {
			r.Get("/", h.ListAgents)
			r.Post("/", h.CreateAgent)
			r.Get("/{id}", h.GetAgent)
			r.Put("/{id}", h.UpdateAgent)
			r.Delete("/{id}", h.DeleteAgent)
			r.Post("/{id}/deposit", h.TopUpAgentDeposit)
			r.Post("/{id}/credit", h.AdjustAgentCredit)
			r.Get("/{id}/transactions", h.ListAgentTransactions)
		})

		r.Route("/vendors", func(r chi.Router) {
			r.Get("/", h.ListVendors)
			r.Post("/", h.CreateVendor)
			r.Get("/{id}", h.GetVendor)
			r.Put("/{id}", h.UpdateVendor)
			r.Delete("/{id}", h.DeleteVendor)
			r.Post("/{id}/balance", h.TopUpVendorBalance)
			r.Get("/{id}/transactions", h.ListVendorTransactions)
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", h.ListInvoices)
			r.Post("/", h.CreateInvoice)
			r.Post("/preview", h.PreviewInvoice)
			r.Get("/{id}", h.GetInvoice)
			r.Post("/{id}/pay", h.PayInvoice)
		})

		r.Route("/tickets", func(r chi.Router) {
			r.Get("/", h.ListTickets)
			r.Post("/", h.CreateTicket)
			r.Post("/preview", h.PreviewTicket)
			r.Get("/{id}", h.GetTicket)
			r.Post("/{id}/pay", h.PayTicket)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/summary", h.GetSummary)
			r.Get("/vendors", h.GetVendorReports)
		})

		r.Route("/demo", func(r chi.Router) {
			r.Post("/load", h.LoadDemo)
			r.Post("/reset", h.ResetDemo)
		})
	})

	return r
}
