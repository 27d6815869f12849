package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lhoral/ponder/internal/progress"
)

// Bot represents the chat platform the orchestrator talks through: payload
// intake plus a per-run progress transport. NewComposer must return a fresh
// transport whose staged content is invisible to other runs, so concurrent
// events on different channels cannot bleed headers or bodies into each
// other's messages.
type Bot interface {
	BuildUserInput(body []byte) (*UserInput, error)
	BotUserID() string
	NewComposer() progress.Transport
}

// Completer sends a user message to the language model and returns the
// answer.
type Completer interface {
	Send(ctx context.Context, message string) (string, error)
}

// UserInput is a platform-neutral view of an incoming chat event.
type UserInput struct {
	Message     string
	MessageID   string
	UserID      string
	ThreadID    string
	ChannelID   string
	AppID       string
	WorkspaceID string
	EventType   string
	IsBot       bool
}

const (
	progressTag  = "Thinking"
	errorMessage = "Sorry, I encountered an error processing your request."
)

// Orchestrator receives chat events, runs the model call under a progress
// coordinator, and publishes the final answer.
type Orchestrator struct {
	bot            Bot
	llm            Completer
	queue          *ChannelQueue
	logger         *slog.Logger
	switchInterval time.Duration
}

// New creates a new Orchestrator. A non-positive switchInterval falls back
// to the progress default.
func New(bot Bot, llm Completer, logger *slog.Logger, switchInterval time.Duration) *Orchestrator {
	if switchInterval <= 0 {
		switchInterval = progress.DefaultSwitchInterval
	}
	return &Orchestrator{
		bot:            bot,
		llm:            llm,
		queue:          NewChannelQueue(),
		logger:         logger,
		switchInterval: switchInterval,
	}
}

// HandleEvent processes one raw Slack Events API payload end to end:
// intake, progress-coordinated model call, final answer edit.
func (o *Orchestrator) HandleEvent(ctx context.Context, body []byte) {
	input, err := o.bot.BuildUserInput(body)
	if err != nil {
		o.logger.Error("building user input", "error", err)
		return
	}

	if input.IsBot {
		o.logger.Debug("ignoring bot message", "channel_id", input.ChannelID)
		return
	}

	o.logger.Info("incoming message",
		"channel_id", input.ChannelID,
		"user_id", input.UserID,
		"content", input.Message,
	)

	// One coordinated run per channel at a time, so two runs never
	// interleave edits on the same progress message.
	o.queue.Acquire(input.ChannelID)
	defer o.queue.Release(input.ChannelID)

	task := progress.NewTask(progressTag)
	task.SwitchInterval = o.switchInterval
	target := &progress.Target{
		ChannelID: input.ChannelID,
		ThreadID:  input.ThreadID,
	}
	comp := o.bot.NewComposer()

	answer, elapsed, err := progress.Run(ctx, func(ctx context.Context) (string, error) {
		return o.llm.Send(ctx, input.Message)
	}, comp, target, task)
	if err != nil {
		o.handleRunError(ctx, comp, target, err)
		return
	}

	comp.SetBody(answer)
	if _, err := comp.SendMessage(ctx, target.ChannelID, target.ThreadID, target.MessageID); err != nil {
		o.logger.Error("publishing answer", "error", err, "channel_id", target.ChannelID)
		return
	}

	o.logger.Info("outgoing message",
		"channel_id", input.ChannelID,
		"elapsed", elapsed,
		"content", answer,
	)
}

// handleRunError logs the failure and, when the progress message already
// exists, replaces it with a warning header so the user is not left staring
// at a stale "thinking" indicator.
func (o *Orchestrator) handleRunError(ctx context.Context, comp progress.Transport, target *progress.Target, err error) {
	o.logger.Error("coordinated run failed", "error", err, "channel_id", target.ChannelID)

	var workErr *progress.WorkError
	if !errors.As(err, &workErr) || target.MessageID == "" {
		return
	}

	comp.Flush()
	comp.SetHeader(progress.ErrorHeader(errorMessage))
	if _, sendErr := comp.SendMessage(ctx, target.ChannelID, target.ThreadID, target.MessageID); sendErr != nil {
		o.logger.Error("publishing error header", "error", sendErr, "channel_id", target.ChannelID)
	}
}
