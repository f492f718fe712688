//go:build slack

package channel

import (
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"madbot/internal/domain"
	"madbot/internal/usecase"
)

type slackPost struct {
	channelID string
	endpoint  string
	values    url.Values
}

// fakeSlack decodes every PostMessage call into its endpoint and form values.
type fakeSlack struct {
	t       *testing.T
	mu      sync.Mutex
	posts   []slackPost
	postErr error
}

func (f *fakeSlack) PostMessage(channelID string, options ...slack.MsgOption) (string, string, error) {
	endpoint, values, err := slack.UnsafeApplyMsgOptions("xoxb-test", channelID, "https://slack.test/api/", options...)
	require.NoError(f.t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	isChannelPost := endpoint == "https://slack.test/api/chat.postMessage"
	if f.postErr != nil && isChannelPost {
		return "", "", f.postErr
	}
	f.posts = append(f.posts, slackPost{channelID: channelID, endpoint: endpoint, values: values})
	return channelID, "1700000000.000100", nil
}

func newTestSlack(t *testing.T) (*SlackChannel, *fakeSlack, *wikiFixture) {
	t.Helper()
	f := newWikiFixture(t)
	reg, err := usecase.NewRegistry(testEntries, func(e domain.WikiEntry) domain.WikiProvider { return f.providers[e.Code] })
	require.NoError(t, err)

	api := &fakeSlack{t: t}
	s := NewSlackChannel("xoxb", "xapp", f.handler, reg, newWikiTestLogger())
	s.api = api
	return s, api, f
}

func TestSlackChannelName(t *testing.T) {
	s, _, _ := newTestSlack(t)
	assert.Equal(t, "slack", s.Name())
}

func TestSlackSlashCommandRendersButtons(t *testing.T) {
	s, api, f := newTestSlack(t)
	f.providers["sgc"].resp = domain.SearchResponse{Results: results("Teal'c", "Jack O'Neill")}

	s.handleSlashCommand(slack.SlashCommand{Command: "/wiki", Text: "sgc jaffa", ChannelID: "C1", ResponseURL: "https://hooks.slack.test/r1"})

	assert.Equal(t, "jaffa", f.providers["sgc"].lastQuery)
	require.Len(t, api.posts, 1)
	post := api.posts[0]
	assert.Equal(t, "https://hooks.slack.test/r1", post.endpoint)
	assert.Contains(t, post.values.Get("blocks"), `"action_id":"wiki:`)
	assert.Contains(t, post.values.Get("blocks"), "Jack O'Neill")
	assert.Equal(t, 1, f.cache.Len())
}

func TestSlackSlashCommandDefaultWiki(t *testing.T) {
	s, _, f := newTestSlack(t)
	s.handleSlashCommand(slack.SlashCommand{Command: "/wiki", Text: "warp core", ChannelID: "C1", ResponseURL: "https://hooks.slack.test/r1"})
	assert.Equal(t, "warp core", f.providers["ma"].lastQuery)
}

func TestSlackSlashCommandEmptyQuery(t *testing.T) {
	s, api, f := newTestSlack(t)
	s.handleSlashCommand(slack.SlashCommand{Command: "/wiki", Text: "ma", ChannelID: "C1", ResponseURL: "https://hooks.slack.test/r1"})

	require.Len(t, api.posts, 1)
	assert.Equal(t, MsgEmptyQuery, api.posts[0].values.Get("text"))
	assert.Equal(t, 0, f.providers["ma"].calls)
}

func TestSlackBlockActionPostsLink(t *testing.T) {
	s, api, f := newTestSlack(t)
	id := f.cache.Put([]string{"https://stargate.fandom.com/wiki/Teal'c"})

	cb := slack.InteractionCallback{
		Type:        slack.InteractionTypeBlockActions,
		Channel:     slack.Channel{GroupConversation: slack.GroupConversation{Conversation: slack.Conversation{ID: "C1"}}},
		ResponseURL: "https://hooks.slack.test/r2",
		ActionCallback: slack.ActionCallbacks{BlockActions: []*slack.BlockAction{
			{ActionID: ButtonID(id, 0), Value: id + ":0"},
		}},
	}
	s.handleBlockActions(cb)

	require.Len(t, api.posts, 2)
	assert.Equal(t, "https://stargate.fandom.com/wiki/Teal'c", api.posts[0].values.Get("text"))
	assert.Equal(t, "https://hooks.slack.test/r2", api.posts[1].endpoint)
	assert.Equal(t, MsgLinkPosted, api.posts[1].values.Get("text"))

	s.handleBlockActions(cb)
	require.Len(t, api.posts, 3)
	assert.Equal(t, MsgMenuExpired, api.posts[2].values.Get("text"))
}

func TestSlackBlockActionPostFailure(t *testing.T) {
	s, api, f := newTestSlack(t)
	api.postErr = errors.New("not_in_channel")
	id := f.cache.Put([]string{"https://a.example"})

	s.handleBlockActions(slack.InteractionCallback{
		Type:        slack.InteractionTypeBlockActions,
		ResponseURL: "https://hooks.slack.test/r3",
		ActionCallback: slack.ActionCallbacks{BlockActions: []*slack.BlockAction{
			{ActionID: ButtonID(id, 0), Value: id + ":0"},
		}},
	})

	require.Len(t, api.posts, 1)
	assert.Equal(t, MsgPostFailed, api.posts[0].values.Get("text"))
}

func TestSlackResultBlocksFitButtonLimit(t *testing.T) {
	long := strings.Repeat("Star Trek: The Next Generation ", 3) + "(episode)"
	blocks := resultBlocks(SearchOutcome{
		Wiki:    "Memory Alpha",
		Query:   "tng",
		CacheID: "wiki-01JTEST",
		Results: results(long, "Data"),
	})

	var labels []string
	for _, b := range blocks {
		ab, ok := b.(*slack.ActionBlock)
		if !ok {
			continue
		}
		for _, el := range ab.Elements.ElementSet {
			labels = append(labels, el.(*slack.ButtonBlockElement).Text.Text)
		}
	}

	require.Len(t, labels, 2)
	assert.Greater(t, utf8.RuneCountInString(long), slackButtonLabelMax)
	assert.Equal(t, slackButtonLabelMax, utf8.RuneCountInString(labels[0]))
	assert.True(t, strings.HasSuffix(labels[0], "…"))
	assert.Equal(t, "Data", labels[1])
}

func TestSlackResultHeadingUsesSlackBold(t *testing.T) {
	blocks := resultBlocks(SearchOutcome{Wiki: "Memory Alpha", Query: "Kirk_James <T>", CacheID: "wiki-01JTEST", Results: results("Kirk")})

	heading := blocks[0].(*slack.SectionBlock).Text.Text
	assert.Equal(t, "*Wiki: Memory Alpha*\nSearch results for *Kirk_James &lt;T&gt;*. Click a result to post its link in the channel.", heading)
	assert.NotContains(t, heading, "**")
	assert.NotContains(t, heading, `\_`)
}

func TestSlackNoResultsUsesSlackBold(t *testing.T) {
	s, api, f := newTestSlack(t)
	f.providers["ma"].resp = domain.SearchResponse{
		Results:    []domain.SearchResult{},
		Suggestion: "Voyager",
		Message:    "No exact results. Did you mean: **Voyager**?",
	}

	s.handleSlashCommand(slack.SlashCommand{Command: "/wiki", Text: "ma voyger", ChannelID: "C1", ResponseURL: "https://hooks.slack.test/r1"})

	require.Len(t, api.posts, 1)
	assert.Equal(t, "No exact results. Did you mean: *Voyager*?\n*Suggestion: Voyager*", api.posts[0].values.Get("text"))
}
