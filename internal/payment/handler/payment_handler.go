package handler

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"paygate/internal/payment/gateway"
	"paygate/internal/payment/model"
	"paygate/internal/payment/service"
	res "paygate/internal/shared/response"
)

type PaymentHandler struct {
	paymentService service.PaymentService
	reconciler     service.Reconciler
}

// NewPaymentHandler creates new payment handler
func NewPaymentHandler(paymentService service.PaymentService, reconciler service.Reconciler) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		reconciler:     reconciler,
	}
}

// =====================================================
// PAYMENT ENDPOINTS
// =====================================================

// CreatePayment initiates a payment
// POST /api/v1/payments
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	// Step 1: Bind request body
	var req model.PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		res.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if req.Currency == "" {
		req.Currency = model.DefaultCurrency
	}

	// Step 2: Call service (validation happens inside)
	response, err := h.paymentService.Pay(c.Request.Context(), req)
	if err != nil {
		statusCode, errCode := mapPaymentError(err)
		res.ErrorResponse(c, statusCode, errCode, err.Error())
		return
	}

	// Step 3: Return response
	res.Success(c, http.StatusCreated, response)
}

// GetPaymentStatus returns the ledger view of a transaction
// GET /api/v1/payments/:transaction_id
func (h *PaymentHandler) GetPaymentStatus(c *gin.Context) {
	transactionID := c.Param("transaction_id")
	if transactionID == "" {
		res.BadRequest(c, "transaction_id is required")
		return
	}

	response, err := h.paymentService.GetStatus(c.Request.Context(), transactionID)
	if err != nil {
		statusCode, errCode := mapPaymentError(err)
		res.ErrorResponse(c, statusCode, errCode, err.Error())
		return
	}

	res.Success(c, http.StatusOK, response)
}

// VerifyPayment asks the gateway for the authoritative transaction state
// POST /api/v1/payments/:transaction_id/verify
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	transactionID := c.Param("transaction_id")
	if transactionID == "" {
		res.BadRequest(c, "transaction_id is required")
		return
	}

	result, err := h.paymentService.Verify(c.Request.Context(), transactionID)
	if err != nil {
		statusCode, errCode := mapPaymentError(err)
		res.ErrorResponse(c, statusCode, errCode, err.Error())
		return
	}

	res.Success(c, http.StatusOK, gin.H{
		"transaction_id": result.TransactionID,
		"status":         result.Status,
		"amount":         result.Amount,
		"currency":       result.Currency,
	})
}

// RefundPayment initiates a refund against a completed transaction
// POST /api/v1/payments/:transaction_id/refund
func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	transactionID := c.Param("transaction_id")
	if transactionID == "" {
		res.BadRequest(c, "transaction_id is required")
		return
	}

	var req model.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		res.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	req.TransactionID = transactionID

	response, err := h.paymentService.Refund(c.Request.Context(), req)
	if err != nil {
		statusCode, errCode := mapPaymentError(err)
		res.ErrorResponse(c, statusCode, errCode, err.Error())
		return
	}

	res.Success(c, http.StatusOK, response)
}

// =====================================================
// CALLBACK ENDPOINTS
// =====================================================

// Callback handles inbound gateway notifications: the three browser
// redirects and the server-to-server IPN, which has its own
// acknowledgement protocol.
// POST /api/v1/callbacks/:gateway/:kind
func (h *PaymentHandler) Callback(c *gin.Context) {
	kind := c.Param("kind")
	switch kind {
	case model.CallbackSuccess, model.CallbackFail, model.CallbackCancel:
	case model.CallbackIPN:
		h.IPN(c)
		return
	default:
		res.NotFound(c, "unknown callback kind")
		return
	}

	data, err := callbackData(c, kind)
	if err != nil {
		res.BadRequest(c, err.Error())
		return
	}

	result, err := h.reconciler.HandleCallback(c.Request.Context(), c.Param("gateway"), data)
	if err != nil {
		statusCode, errCode := mapPaymentError(err)
		res.ErrorResponse(c, statusCode, errCode, err.Error())
		return
	}

	res.Success(c, http.StatusOK, result)
}

// IPN handles the server-to-server notification. Gateways retry on
// non-2xx, so processing errors other than a bad signature are
// acknowledged with a status field instead of an error code.
// POST /api/v1/callbacks/:gateway/ipn
func (h *PaymentHandler) IPN(c *gin.Context) {
	data, err := callbackData(c, model.CallbackIPN)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": err.Error()})
		return
	}

	result, err := h.reconciler.HandleCallback(c.Request.Context(), c.Param("gateway"), data)
	if err != nil {
		if errors.Is(err, model.ErrInvalidSignature) {
			// A forged notification gets nothing to probe against
			res.ErrorResponse(c, http.StatusUnauthorized, model.ErrCodeInvalidSignature, "invalid signature")
			return
		}
		if errors.Is(err, model.ErrTransactionNotFound) {
			// Ack unknown ids so the gateway stops retrying stale sessions
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"transaction_id": result.TransactionID,
		"duplicate":      result.Duplicate,
	})
}

// callbackData assembles the raw notification material. The body is
// captured untouched because signatures are computed over raw bytes.
func callbackData(c *gin.Context, kind string) (gateway.CallbackData, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return gateway.CallbackData{}, errors.New("failed to read request body")
	}

	fields := make(map[string]string)
	if strings.HasPrefix(c.ContentType(), "application/x-www-form-urlencoded") {
		if values, err := url.ParseQuery(string(body)); err == nil {
			for key := range values {
				fields[key] = values.Get(key)
			}
		}
	}
	for key, values := range c.Request.URL.Query() {
		if _, ok := fields[key]; !ok && len(values) > 0 {
			fields[key] = values[0]
		}
	}

	return gateway.CallbackData{
		Kind:      kind,
		Body:      body,
		Signature: c.GetHeader("X-Signature"),
		Fields:    fields,
	}, nil
}

// =====================================================
// ERROR MAPPING HELPER
// =====================================================

func mapPaymentError(err error) (statusCode int, errorCode string) {
	statusCode = http.StatusInternalServerError
	errorCode = model.ErrCodeInternalError

	var paymentErr *model.PaymentError
	if errors.As(err, &paymentErr) {
		errorCode = paymentErr.Code

		switch paymentErr.Code {
		case model.ErrCodeGatewayNotConfigured, model.ErrCodeGatewayInactive,
			model.ErrCodeInvalidAmount, model.ErrCodeInvalidCurrency,
			model.ErrCodeInvalidPayload:
			statusCode = http.StatusBadRequest
		case model.ErrCodePaymentFlagged:
			statusCode = http.StatusForbidden
		case model.ErrCodeInvalidSignature:
			statusCode = http.StatusUnauthorized
		case model.ErrCodeTransactionNotFound:
			statusCode = http.StatusNotFound
		case model.ErrCodeConflictingStatus, model.ErrCodeTransactionExists:
			statusCode = http.StatusConflict
		case model.ErrCodeRefundNotAllowed, model.ErrCodeRefundTooLarge:
			statusCode = http.StatusUnprocessableEntity
		case model.ErrCodePaymentFailed, model.ErrCodeGatewayUnavailable:
			statusCode = http.StatusBadGateway
		}
		return statusCode, errorCode
	}

	if errors.Is(err, model.ErrTransactionNotFound) {
		return http.StatusNotFound, model.ErrCodeTransactionNotFound
	}
	return statusCode, errorCode
}
