package alert

import (
	"context"
	"errors"
)

// Messenger delivers a notification to one channel.
type Messenger interface {
	Send(ctx context.Context, n Notification) error
}

// MessengerFunc is an adapter to allow ordinary functions to be used as
// Messengers.
type MessengerFunc func(ctx context.Context, n Notification) error

// Send calls f.
func (f MessengerFunc) Send(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Fanout sends to every messenger in turn and joins their errors. One
// failing channel does not stop the others.
type Fanout []Messenger

// Send implements Messenger.
func (f Fanout) Send(ctx context.Context, n Notification) error {
	var errs []error
	for _, m := range f {
		if err := m.Send(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
