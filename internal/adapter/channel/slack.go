//go:build slack

package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"madbot/internal/domain"
)

// Block Kit caps button text at 75 characters.
const slackButtonLabelMax = 75

// slackAPI is the part of *slack.Client the channel talks to.
type slackAPI interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

// QuerySplitter separates an optional leading wiki code from the query.
type QuerySplitter interface {
	SplitQuery(args []string) (code, query string)
}

// SlackChannel serves /wiki over Socket Mode with Block Kit result buttons.
type SlackChannel struct {
	botToken  string
	appToken  string
	wiki      *WikiHandler
	splitter  QuerySplitter
	logger    *slog.Logger
	api       slackAPI
	socketCli *socketmode.Client
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewSlackChannel creates a Slack channel. Users type "/wiki [code] query".
func NewSlackChannel(botToken, appToken string, wiki *WikiHandler, splitter QuerySplitter, logger *slog.Logger) *SlackChannel {
	return &SlackChannel{
		botToken: botToken,
		appToken: appToken,
		wiki:     wiki,
		splitter: splitter,
		logger:   logger,
		ctx:      context.Background(),
	}
}

func (s *SlackChannel) Name() string { return "slack" }

func (s *SlackChannel) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	client := slack.New(s.botToken, slack.OptionAppLevelToken(s.appToken))
	authResp, err := client.AuthTest()
	if err != nil {
		return fmt.Errorf("slack auth: %w", err)
	}
	s.api = client
	s.socketCli = socketmode.New(client)
	s.logger.Info("slack channel started", "bot_user_id", authResp.UserID)

	go s.eventLoop()
	go func() {
		if err := s.socketCli.RunContext(s.ctx); err != nil && s.ctx.Err() == nil {
			s.logger.Error("slack socket mode error", "error", err)
		}
	}()
	return nil
}

func (s *SlackChannel) Stop(_ context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

func (s *SlackChannel) eventLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case evt := <-s.socketCli.Events:
			switch evt.Type {
			case socketmode.EventTypeSlashCommand:
				cmd, ok := evt.Data.(slack.SlashCommand)
				if !ok {
					continue
				}
				s.socketCli.Ack(*evt.Request)
				go s.handleSlashCommand(cmd)
			case socketmode.EventTypeInteractive:
				cb, ok := evt.Data.(slack.InteractionCallback)
				if !ok {
					continue
				}
				s.socketCli.Ack(*evt.Request)
				if cb.Type == slack.InteractionTypeBlockActions {
					go s.handleBlockActions(cb)
				}
			}
		}
	}
}

func (s *SlackChannel) handleSlashCommand(cmd slack.SlashCommand) {
	if strings.TrimPrefix(cmd.Command, "/") != CommandName {
		return
	}
	code, query := s.splitter.SplitQuery(strings.Fields(cmd.Text))
	if query == "" {
		s.respondEphemeral(cmd.ChannelID, cmd.ResponseURL, MsgEmptyQuery)
		return
	}

	out := s.wiki.Search(s.ctx, code, query, 0)
	if !out.HasMenu() {
		s.respondEphemeral(cmd.ChannelID, cmd.ResponseURL, slackMrkdwn(out.Text))
		return
	}

	_, _, err := s.api.PostMessage(cmd.ChannelID,
		slack.MsgOptionResponseURL(cmd.ResponseURL, slack.ResponseTypeEphemeral),
		slack.MsgOptionText("Wiki: "+out.Wiki, false),
		slack.MsgOptionBlocks(resultBlocks(out)...),
	)
	if err != nil {
		s.logger.Error("slack reply failed", "error", err, "channel", cmd.ChannelID)
	}
}

func (s *SlackChannel) handleBlockActions(cb slack.InteractionCallback) {
	for _, action := range cb.ActionCallback.BlockActions {
		if !strings.HasPrefix(action.ActionID, ButtonPrefix) {
			continue
		}
		url, notice := s.wiki.Select(action.Value)
		if notice != "" {
			s.respondEphemeral(cb.Channel.ID, cb.ResponseURL, notice)
			return
		}

		_, _, err := s.api.PostMessage(cb.Channel.ID, slack.MsgOptionText(url, false))
		s.wiki.Posted(url, err)
		if err != nil {
			s.respondEphemeral(cb.Channel.ID, cb.ResponseURL, MsgPostFailed)
			return
		}
		_, _, err = s.api.PostMessage(cb.Channel.ID,
			slack.MsgOptionReplaceOriginal(cb.ResponseURL),
			slack.MsgOptionText(MsgLinkPosted, false),
		)
		if err != nil {
			s.logger.Error("slack update failed", "error", err, "channel", cb.Channel.ID)
		}
		return
	}
}

func (s *SlackChannel) respondEphemeral(channelID, responseURL, text string) {
	_, _, err := s.api.PostMessage(channelID,
		slack.MsgOptionResponseURL(responseURL, slack.ResponseTypeEphemeral),
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		s.logger.Error("slack reply failed", "error", err, "channel", channelID)
	}
}

// resultBlocks renders a result menu: a heading, one section per result and
// rows of buttons whose value is "<cacheId>:<index>".
func resultBlocks(out SearchOutcome) []slack.Block {
	blocks := []slack.Block{
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("*Wiki: %s*\n%s", escapeSlack(out.Wiki), slackResultHeading(out.Query)), false, false), nil, nil),
	}
	buttons := make([]slack.BlockElement, len(out.Results))
	for i, r := range out.Results {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("*%s*\n%s", escapeSlack(r.Title), escapeSlack(ResultFieldValue(r))), false, false), nil, nil))

		value := strings.TrimPrefix(ButtonID(out.CacheID, i), ButtonPrefix)
		buttons[i] = slack.NewButtonBlockElement(ButtonID(out.CacheID, i), value,
			slack.NewTextBlockObject(slack.PlainTextType, truncate(r.Title, slackButtonLabelMax), false, false))
	}
	for i, row := range chunk(buttons, ButtonsPerRow) {
		blocks = append(blocks, slack.NewActionBlock(fmt.Sprintf("wiki_results_%d", i), row...))
	}
	blocks = append(blocks, slack.NewContextBlock("", slack.NewTextBlockObject(slack.PlainTextType, out.BaseURL, false, false)))
	return blocks
}

func slackResultHeading(query string) string {
	return fmt.Sprintf("Search results for *%s*. %s", escapeSlack(query), resultHint)
}

// Slack mrkdwn only reserves these three characters.
var slackEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeSlack(s string) string { return slackEscaper.Replace(s) }

// slackMrkdwn rewrites Discord bold (**x**) as Slack bold (*x*).
func slackMrkdwn(s string) string {
	return strings.ReplaceAll(escapeSlack(s), "**", "*")
}

var _ domain.Channel = (*SlackChannel)(nil)
