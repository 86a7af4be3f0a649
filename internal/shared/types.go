package shared

// Task types processed by the background worker.
const (
	TypeExpireStalePayments = "payment:expire_stale"
)

// Asynq queue names.
const (
	QueuePayments = "payments"
)

// ExpireStalePaymentsPayload is the (empty) payload for the expiry
// sweep; the cutoff is derived from the payment window at run time.
type ExpireStalePaymentsPayload struct{}
