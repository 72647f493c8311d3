package handlers

import (
	"gw-transaction-webhook/internal/service"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc service.Webhook) {
	webhookHandler := NewWebhookHandler(svc)
	transactionHandler := NewTransactionHandler(svc)
	healthHandler := NewHealthHandler()

	r.Get("/", healthHandler.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/webhooks/transactions", webhookHandler.ReceiveTransaction)
		r.Get("/transactions", transactionHandler.ListTransactions)
		r.Get("/transactions/{transactionID}", transactionHandler.GetTransaction)
	})
}
