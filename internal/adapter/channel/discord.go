package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"madbot/internal/domain"
	"madbot/internal/usecase"
)

// discordSession is the part of *discordgo.Session the channel talks to.
type discordSession interface {
	InteractionRespond(i *discordgo.Interaction, r *discordgo.InteractionResponse, opts ...discordgo.RequestOption) error
	InteractionResponseEdit(i *discordgo.Interaction, edit *discordgo.WebhookEdit, opts ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSend(channelID, content string, opts ...discordgo.RequestOption) (*discordgo.Message, error)
	ApplicationCommandBulkOverwrite(appID, guildID string, cmds []*discordgo.ApplicationCommand, opts ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// DiscordOption configures the Discord channel.
type DiscordOption func(*DiscordChannel)

// WithDiscordGuild registers the command for one guild instead of globally.
// Guild commands update immediately, which is handy while developing.
func WithDiscordGuild(guildID string) DiscordOption {
	return func(d *DiscordChannel) { d.guildID = guildID }
}

// DiscordChannel serves the /wiki slash command and its result buttons.
type DiscordChannel struct {
	token   string
	appID   string
	guildID string
	wiki    *WikiHandler
	logger  *slog.Logger

	mu      sync.Mutex
	session *discordgo.Session
	api     discordSession
	ctx     context.Context
	cancel  context.CancelFunc
	now     func() time.Time
}

// NewDiscordChannel creates a Discord bot channel.
func NewDiscordChannel(token, appID string, wiki *WikiHandler, logger *slog.Logger, opts ...DiscordOption) *DiscordChannel {
	d := &DiscordChannel{
		token:  token,
		appID:  appID,
		wiki:   wiki,
		logger: logger,
		ctx:    context.Background(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *DiscordChannel) Name() string { return "discord" }

// Start syncs the command definitions and opens the gateway connection.
// Commands are bulk-overwritten on every start so Discord always shows the
// current definition.
func (d *DiscordChannel) Start(ctx context.Context) error {
	dg, err := discordgo.New("Bot " + d.token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds

	d.mu.Lock()
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.session = dg
	d.api = dg
	d.mu.Unlock()

	if err := d.RegisterCommands(); err != nil {
		return err
	}

	dg.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		d.logger.Info("discord channel started", "user", r.User.String())
	})
	dg.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		d.HandleInteraction(i.Interaction)
	})

	if err := dg.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	return nil
}

func (d *DiscordChannel) Stop(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	if d.session != nil {
		return d.session.Close()
	}
	return nil
}

// RegisterCommands replaces the application's command list with /wiki.
func (d *DiscordChannel) RegisterCommands() error {
	cmds := []*discordgo.ApplicationCommand{WikiCommand(d.wiki.Choices())}
	if _, err := d.api.ApplicationCommandBulkOverwrite(d.appID, d.guildID, cmds); err != nil {
		return fmt.Errorf("sync slash commands: %w", err)
	}
	d.logger.Info("slash commands synced", "count", len(cmds), "guild", d.guildID)
	return nil
}

// WikiCommand is the /wiki definition. choices become the wiki selector.
func WikiCommand(choices []usecase.Choice) *discordgo.ApplicationCommand {
	wikiChoices := make([]*discordgo.ApplicationCommandOptionChoice, len(choices))
	for i, c := range choices {
		wikiChoices[i] = &discordgo.ApplicationCommandOptionChoice{Name: c.Label, Value: c.Value}
	}
	minLimit := float64(MinResultLimit)

	return &discordgo.ApplicationCommand{
		Name:        CommandName,
		Description: "Search a wiki and get links to articles",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "wiki",
				Description: "Which wiki to search",
				Required:    true,
				Choices:     wikiChoices,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "query",
				Description: "Search term (e.g. character or topic name)",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "limit",
				Description: fmt.Sprintf("Max number of results to show (default %d)", DefaultResultLimit),
				MinValue:    &minLimit,
				MaxValue:    MaxResultLimit,
			},
		},
	}
}

// HandleInteraction dispatches slash commands and result buttons.
func (d *DiscordChannel) HandleInteraction(i *discordgo.Interaction) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		if i.ApplicationCommandData().Name == CommandName {
			d.handleWikiCommand(i)
		}
	case discordgo.InteractionMessageComponent:
		if strings.HasPrefix(i.MessageComponentData().CustomID, ButtonPrefix) {
			d.handleWikiButton(i)
		}
	}
}

func (d *DiscordChannel) handleWikiCommand(i *discordgo.Interaction) {
	var code, query string
	var limit int
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "wiki":
			code = opt.StringValue()
		case "query":
			query = opt.StringValue()
		case "limit":
			limit = int(opt.IntValue())
		}
	}

	if strings.TrimSpace(query) == "" {
		d.replyEphemeral(i, MsgEmptyQuery)
		return
	}

	err := d.api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		d.logger.Error("discord defer failed", "error", err, "interaction", i.ID)
		return
	}

	out := d.wiki.Search(d.context(), code, query, limit)

	edit := &discordgo.WebhookEdit{}
	if out.HasMenu() {
		embeds := []*discordgo.MessageEmbed{d.resultEmbed(out)}
		components := resultComponents(out)
		edit.Embeds = &embeds
		edit.Components = &components
	} else {
		edit.Content = &out.Text
	}
	if _, err := d.api.InteractionResponseEdit(i, edit); err != nil {
		d.logger.Error("discord reply failed", "error", err, "interaction", i.ID)
	}
}

func (d *DiscordChannel) handleWikiButton(i *discordgo.Interaction) {
	url, notice := d.wiki.Select(i.MessageComponentData().CustomID)
	if notice != "" {
		d.replyEphemeral(i, notice)
		return
	}

	_, err := d.api.ChannelMessageSend(i.ChannelID, url)
	d.wiki.Posted(url, err)
	if err != nil {
		d.replyEphemeral(i, MsgPostFailed)
		return
	}

	err = d.api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    MsgLinkPosted,
			Embeds:     []*discordgo.MessageEmbed{},
			Components: []discordgo.MessageComponent{},
		},
	})
	if err != nil {
		d.logger.Error("discord update failed", "error", err, "interaction", i.ID)
	}
}

func (d *DiscordChannel) replyEphemeral(i *discordgo.Interaction, content string) {
	err := d.api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		d.logger.Error("discord reply failed", "error", err, "interaction", i.ID)
	}
}

func (d *DiscordChannel) context() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ctx
}

func (d *DiscordChannel) resultEmbed(out SearchOutcome) *discordgo.MessageEmbed {
	fields := make([]*discordgo.MessageEmbedField, len(out.Results))
	for i, r := range out.Results {
		fields[i] = &discordgo.MessageEmbedField{Name: r.Title, Value: ResultFieldValue(r)}
	}
	return &discordgo.MessageEmbed{
		Title:       "Wiki: " + out.Wiki,
		Description: ResultHeading(out.Query),
		Color:       ResultColor,
		Timestamp:   d.now().UTC().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: out.BaseURL},
		Fields:      fields,
	}
}

func resultComponents(out SearchOutcome) []discordgo.MessageComponent {
	buttons := make([]discordgo.MessageComponent, len(out.Results))
	for i, r := range out.Results {
		buttons[i] = discordgo.Button{
			Label:    ButtonLabel(r.Title),
			Style:    discordgo.SecondaryButton,
			CustomID: ButtonID(out.CacheID, i),
		}
	}
	var rows []discordgo.MessageComponent
	for _, row := range chunk(buttons, ButtonsPerRow) {
		rows = append(rows, discordgo.ActionsRow{Components: row})
	}
	return rows
}

var _ domain.Channel = (*DiscordChannel)(nil)
