package telegram

import "context"

//go:generate go run go.uber.org/mock/mockgen -source=telegram.go -destination=mocks/mock.go

// Notifier tells operators about failures users would otherwise only see as a
// transient notice.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string) error { return nil }
