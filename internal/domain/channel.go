package domain

import "context"

// Channel is the interface for chat-platform adapters (Discord, Slack).
type Channel interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Name() string
}
