package notification

import (
	"context"

	"github.com/tendant/token-security/internal/domain"
)

// Dispatcher delivers a one-time code to a contact address over one channel.
// The engine calls it inside the issuance transaction, so a delivery failure
// rolls the token back.
type Dispatcher interface {
	Send(ctx context.Context, contact, code string) error
}

// Registry maps token types to their dispatcher. The mapping is resolved at
// startup; unmapped types are a no-op.
type Registry map[domain.TokenType]Dispatcher

// Dispatch delivers the code using the dispatcher registered for the type.
func (r Registry) Dispatch(ctx context.Context, typ domain.TokenType, contact, code string) error {
	d, ok := r[typ]
	if !ok || d == nil {
		return nil
	}
	return d.Send(ctx, contact, code)
}
