package alert

import "errors"

var (
	// ErrUnknownWebhookType indicates a webhook type other than slack, teams or http.
	ErrUnknownWebhookType = errors.New("alert: unknown webhook type")

	// ErrMissingURL indicates a messenger configured without a destination.
	ErrMissingURL = errors.New("alert: destination URL is required")

	// ErrNoRecipients indicates an email messenger without recipients.
	ErrNoRecipients = errors.New("alert: no email recipients")

	// ErrDeliveryRejected indicates the messaging service answered with an error status.
	ErrDeliveryRejected = errors.New("alert: delivery rejected")
)
