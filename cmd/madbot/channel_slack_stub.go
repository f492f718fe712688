//go:build !slack

package main

import (
	"fmt"
	"log/slog"

	"madbot/internal/adapter/channel"
	"madbot/internal/domain"
	"madbot/internal/infra/config"
	"madbot/internal/usecase"
)

func buildSlackChannel(_ *config.SlackConfig, _ *channel.WikiHandler, _ *usecase.Registry, _ *slog.Logger) (domain.Channel, error) {
	return nil, fmt.Errorf("slack channel requires build with -tags slack")
}
