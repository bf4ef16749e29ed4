package flutterwave

// Event types delivered to the webhook endpoint.
const (
	EventChargeCompleted = "charge.completed"
)

// WebhookEvent is the payload POSTed by Flutterwave.
type WebhookEvent struct {
	Event string           `json:"event"`
	Data  WebhookEventData `json:"data"`
}

// WebhookEventData is the charge carried by a webhook event.
type WebhookEventData struct {
	ID       int64   `json:"id"`
	TxRef    string  `json:"tx_ref"`
	Status   string  `json:"status"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// SuccessfulCharge reports whether the event announces a completed, successful charge.
func (e WebhookEvent) SuccessfulCharge() bool {
	return e.Event == EventChargeCompleted && IsSuccessful(e.Data.Status)
}
