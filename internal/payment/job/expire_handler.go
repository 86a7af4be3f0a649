package job

import (
	"context"

	"github.com/hibiken/asynq"

	"paygate/internal/payment/service"
	"paygate/pkg/logger"
)

// =====================================================
// EXPIRE STALE PAYMENTS JOB
// =====================================================
// Pending transactions past the payment window are moved to failed so
// they stop blocking order flows. Runs on a schedule; the sweep itself
// is idempotent, an already-expired row is simply not selected again.

type ExpireStalePaymentsHandler struct {
	payments service.PaymentService
}

func NewExpireStalePaymentsHandler(payments service.PaymentService) *ExpireStalePaymentsHandler {
	return &ExpireStalePaymentsHandler{payments: payments}
}

func (h *ExpireStalePaymentsHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	count, err := h.payments.ExpireStalePayments(ctx)
	if err != nil {
		logger.Error("expire stale payments sweep failed", err)
		return err
	}

	if count > 0 {
		logger.Info("expire stale payments sweep completed", map[string]interface{}{
			"expired": count,
		})
	}
	return nil
}
