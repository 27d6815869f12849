package slack

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	goslack "github.com/slack-go/slack"

	"github.com/lhoral/ponder/internal/progress"
)

// Session abstracts the slack.Client methods used by the transport,
// enabling test mocking.
type Session interface {
	PostMessageContext(ctx context.Context, channelID string, options ...goslack.MsgOption) (string, string, error)
	UpdateMessageContext(ctx context.Context, channelID, timestamp string, options ...goslack.MsgOption) (string, string, string, error)
	AuthTest() (*goslack.AuthTestResponse, error)
}

// Transport implements orchestrator.Bot against the Slack Web API. It owns
// the shared session and bot identity; message staging lives on per-run
// Composers so concurrent runs never see each other's content.
type Transport struct {
	session Session
	logger  *slog.Logger

	mu        sync.Mutex
	botUserID string
}

// NewTransport creates a Slack transport with the given session and logger.
func NewTransport(session Session, logger *slog.Logger) *Transport {
	return &Transport{
		session: session,
		logger:  logger,
	}
}

// Authenticate resolves the bot's own user ID via auth.test. It must be
// called once before BuildUserInput so self-sent messages can be detected.
func (t *Transport) Authenticate(ctx context.Context) error {
	resp, err := t.session.AuthTest()
	if err != nil {
		return fmt.Errorf("slack auth test: %w", err)
	}
	t.mu.Lock()
	t.botUserID = resp.UserID
	t.mu.Unlock()
	t.logger.InfoContext(ctx, "slack transport authenticated", "bot_user_id", resp.UserID)
	return nil
}

// BotUserID returns the bot's Slack user ID resolved by Authenticate.
func (t *Transport) BotUserID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.botUserID
}

// NewComposer returns a message composer for one coordinated run. The
// composer carries its own staged header and body over the shared session,
// which the Slack client allows to be used concurrently.
func (t *Transport) NewComposer() progress.Transport {
	return &Composer{session: t.session}
}

// Composer stages the content of a single progress message as a header plus
// a body and renders both as one mrkdwn section block. SendMessage creates a
// new message when no message ID is given and edits the existing one
// otherwise.
type Composer struct {
	session Session

	mu     sync.Mutex
	header string
	body   string
}

// SetHeader stages the status line rendered above the message body.
func (c *Composer) SetHeader(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.header = text
}

// SetBody stages the message body rendered under the header.
func (c *Composer) SetBody(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.body = text
}

// Flush clears the staged header and body.
func (c *Composer) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.header = ""
	c.body = ""
}

// currentMessage combines the staged header and body.
func (c *Composer) currentMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.header + "\n" + c.body
}

// SendMessage delivers the staged content. An empty messageID posts a new
// message (threaded under threadID when set); otherwise the identified
// message is updated in place. Returns the timestamp identifying the
// created or updated message.
func (c *Composer) SendMessage(ctx context.Context, channelID, threadID, messageID string) (string, error) {
	text := c.currentMessage()
	opts := []goslack.MsgOption{
		goslack.MsgOptionBlocks(
			goslack.NewSectionBlock(
				goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false),
				nil, nil,
			),
		),
		goslack.MsgOptionText(text, false),
	}
	if threadID != "" {
		opts = append(opts, goslack.MsgOptionTS(threadID))
	}

	var ts string
	var err error
	if messageID == "" {
		_, ts, err = c.session.PostMessageContext(ctx, channelID, opts...)
		if err != nil {
			return "", fmt.Errorf("slack post message: %w", err)
		}
	} else {
		_, ts, _, err = c.session.UpdateMessageContext(ctx, channelID, messageID, opts...)
		if err != nil {
			return "", fmt.Errorf("slack update message: %w", err)
		}
	}
	if ts == "" {
		return "", fmt.Errorf("slack response missing message timestamp (channel %s)", channelID)
	}
	return ts, nil
}
