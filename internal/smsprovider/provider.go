package smsprovider

import "context"

// SendRequest holds the data for one outbound text.
type SendRequest struct {
	To      string // recipient, E.164
	From    string // sending number owned by the service
	Content string
}

// SendResponse holds the outcome of a send attempt.
type SendResponse struct {
	// ProviderMessageID is the ID the carrier assigned to the message.
	ProviderMessageID string
}

// Adapter is the outbound SMS capability the core depends on. Failures are
// returned as errors; callers decide whether a failed send is fatal (it never
// is during fanout).
type Adapter interface {
	Send(ctx context.Context, req SendRequest) (*SendResponse, error)
	GetName() string
}
