package progress

import (
	"context"
	"fmt"
	"time"
)

// DefaultSwitchInterval is the default cadence for progress header refreshes.
const DefaultSwitchInterval = time.Second

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// Transport is the chat surface the coordinator publishes progress to.
// Content is staged with SetHeader/SetBody and delivered by SendMessage:
// an empty messageID creates a new message, a non-empty one edits it.
type Transport interface {
	SetHeader(text string)
	SetBody(text string)
	Flush()
	SendMessage(ctx context.Context, channelID, threadID, messageID string) (string, error)
}

// Target identifies where progress messages are published. ChannelID is
// required; ThreadID and MessageID are optional. MessageID is updated by Run
// once the first message is created and must not be shared across concurrent
// runs.
type Target struct {
	ChannelID string
	ThreadID  string
	MessageID string
}

// Task describes one coordinated unit of work. Accumulated carries the total
// waiting time across repeated runs sharing the same Task; only Run mutates
// it, and it never decreases.
type Task struct {
	Tag            string
	Num, Total     int
	SwitchInterval time.Duration
	Accumulated    time.Duration
}

// NewTask creates a Task with the default switch interval.
func NewTask(tag string) *Task {
	return &Task{Tag: tag, SwitchInterval: DefaultSwitchInterval}
}

// WorkError wraps a failure of the coordinated unit of work, distinguishing
// it from transport failures. No terminal header is published on work
// failure; the message is left showing its last progress header.
type WorkError struct {
	Err error
}

func (e *WorkError) Error() string { return fmt.Sprintf("unit of work failed: %v", e.Err) }

func (e *WorkError) Unwrap() error { return e.Err }

// Run drives work to completion while publishing cycling progress headers to
// tr at the task's switch interval. The work starts immediately and runs
// concurrently; the polling loop only observes its completion, never gates
// it. All transport calls are issued sequentially from the calling
// goroutine, and on success the terminal edit is the last edit issued.
//
// Run creates one new message (target.MessageID empty) or takes over an
// existing one, stores the resulting message ID back into target, and edits
// that same message for every subsequent update. The returned duration is
// the task's accumulated processing time including this run.
//
// Cancelling ctx aborts the polling loop and returns ctx.Err(); the message
// is left in its last-edited state.
func Run[R any](ctx context.Context, work func(ctx context.Context) (R, error), tr Transport, target *Target, task *Task) (R, time.Duration, error) {
	var zero R

	if task.SwitchInterval <= 0 {
		return zero, task.Accumulated, fmt.Errorf("%w: switch interval must be positive (got %s)", ErrInvalidConfiguration, task.SwitchInterval)
	}
	var opts []SequencerOption
	if task.Num != 0 || task.Total != 0 {
		opts = append(opts, WithCounter(task.Num, task.Total))
	}
	seq, err := NewSequencer(task.Tag, opts...)
	if err != nil {
		return zero, task.Accumulated, err
	}

	tr.Flush()
	tr.SetHeader(seq.Next())
	msgID, err := tr.SendMessage(ctx, target.ChannelID, target.ThreadID, target.MessageID)
	if err != nil {
		return zero, task.Accumulated, fmt.Errorf("creating progress message: %w", err)
	}
	target.MessageID = msgID

	var (
		result  R
		workErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		result, workErr = work(ctx)
	}()

	start := timeNow()
	for !isDone(done) {
		tr.SetHeader(seq.Next())
		if _, err := tr.SendMessage(ctx, target.ChannelID, target.ThreadID, msgID); err != nil {
			return zero, task.Accumulated, fmt.Errorf("updating progress message: %w", err)
		}
		select {
		case <-done:
		case <-ctx.Done():
			return zero, task.Accumulated, ctx.Err()
		case <-time.After(task.SwitchInterval):
		}
	}
	task.Accumulated += timeNow().Sub(start)

	if workErr != nil {
		return zero, task.Accumulated, &WorkError{Err: workErr}
	}

	tr.SetHeader(DoneHeader(task.Accumulated))
	if _, err := tr.SendMessage(ctx, target.ChannelID, target.ThreadID, msgID); err != nil {
		return zero, task.Accumulated, fmt.Errorf("publishing terminal header: %w", err)
	}

	return result, task.Accumulated, nil
}

func isDone(done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}
