package main

import (
	"github.com/hibiken/asynq"

	"paygate/internal/payment/job"
	"paygate/internal/shared"
	"paygate/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	expireStalePayments *job.ExpireStalePaymentsHandler
}

// initializeHandlers creates all job handlers with their dependencies
func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		expireStalePayments: job.NewExpireStalePaymentsHandler(c.PaymentService),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeExpireStalePayments, h.expireStalePayments.ProcessTask)
}
