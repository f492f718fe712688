//go:build slack

package main

import (
	"fmt"
	"log/slog"

	"madbot/internal/adapter/channel"
	"madbot/internal/domain"
	"madbot/internal/infra/config"
	"madbot/internal/usecase"
)

func buildSlackChannel(sc *config.SlackConfig, wiki *channel.WikiHandler, reg *usecase.Registry, log *slog.Logger) (domain.Channel, error) {
	if sc.BotToken == "" || sc.AppToken == "" {
		return nil, fmt.Errorf("slack.bot_token and slack.app_token are required")
	}
	return channel.NewSlackChannel(sc.BotToken, sc.AppToken, wiki, reg, log), nil
}
