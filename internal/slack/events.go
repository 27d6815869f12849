package slack

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/slack-go/slack/slackevents"

	"github.com/lhoral/ponder/internal/orchestrator"
)

// UserInput is an alias for orchestrator.UserInput.
type UserInput = orchestrator.UserInput

// ErrChallengeRequest indicates the payload is a url_verification challenge,
// which must be answered by the HTTP layer rather than dispatched.
var ErrChallengeRequest = errors.New("slack url verification challenge")

// BuildUserInput validates a Slack Events API payload and converts it into
// a UserInput. Only event_callback payloads carrying a message or
// app_mention event are accepted.
func (t *Transport) BuildUserInput(body []byte) (*UserInput, error) {
	ev, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		return nil, fmt.Errorf("parsing slack event: %w", err)
	}

	switch ev.Type {
	case slackevents.CallbackEvent:
	case slackevents.URLVerification:
		return nil, ErrChallengeRequest
	default:
		return nil, fmt.Errorf("unsupported slack event type %q", ev.Type)
	}

	input := &UserInput{
		AppID:       ev.APIAppID,
		WorkspaceID: ev.TeamID,
	}

	switch inner := ev.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		input.Message = inner.Text
		input.MessageID = inner.TimeStamp
		input.UserID = inner.User
		input.ChannelID = inner.Channel
		input.ThreadID = threadFor(inner.ThreadTimeStamp, inner.TimeStamp)
		input.EventType = inner.Type
		input.IsBot = inner.BotID != "" || (inner.User != "" && inner.User == t.BotUserID())
	case *slackevents.AppMentionEvent:
		input.Message = inner.Text
		input.MessageID = inner.TimeStamp
		input.UserID = inner.User
		input.ChannelID = inner.Channel
		input.ThreadID = threadFor(inner.ThreadTimeStamp, inner.TimeStamp)
		input.EventType = inner.Type
		input.IsBot = inner.BotID != "" || (inner.User != "" && inner.User == t.BotUserID())
	default:
		return nil, fmt.Errorf("unsupported slack inner event %q", ev.InnerEvent.Type)
	}

	return input, nil
}

// threadFor returns the thread timestamp a reply should target: the existing
// thread when the message is already threaded, otherwise the message itself.
func threadFor(threadTS, ts string) string {
	if threadTS != "" {
		return threadTS
	}
	return ts
}
