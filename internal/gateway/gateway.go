// Package gateway abstracts the outbound notification transports. A
// gateway delivers one pre-registered template to one recipient;
// template variables are positionally numbered (1, 2, 3...) to match
// the placeholders registered with the provider.
package gateway

import (
	"context"
)

// Result reports the outcome of a send. MessageID is the provider's
// opaque identifier, used later to correlate delivery receipts.
type Result struct {
	MessageID string
}

type Gateway interface {
	Send(ctx context.Context, recipient, templateID string, vars map[int]string) (*Result, error)
	Channel() string
}
