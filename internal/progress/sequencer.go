package progress

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Defaults for the progress header. Two emojis alternating each tick, three
// dots cycling independently.
const (
	DefaultTag     = "Thinking"
	DefaultNbDots  = 3
	doneLabel      = "Done!"
	headerDelim    = "`"
	clockEmoji     = "🕒"
	warningEmoji   = "⚠️"
)

// DefaultEmojis is the default emoji rotation for progress headers.
var DefaultEmojis = []string{"🤔", "💭"}

// ErrInvalidConfiguration indicates bad sequencer or coordinator parameters
// (empty emoji set, mismatched task counters, non-positive interval).
var ErrInvalidConfiguration = errors.New("invalid progress configuration")

// Sequencer produces an infinite sequence of formatted progress headers.
// Each Next call renders the current state then advances the emoji index and
// dot count by exactly one step. A Sequencer cannot be rewound; create a new
// one to restart the cycle.
type Sequencer struct {
	tag        string
	num, total int
	emojis     []string
	nbDots     int // 0 disables dot rendering entirely
	emojiIndex int
	dots       int
}

// SequencerOption configures a Sequencer.
type SequencerOption func(*Sequencer)

// WithCounter renders a "(num/total)" suffix after the tag. Both values must
// be set; supplying only one is a configuration error.
func WithCounter(num, total int) SequencerOption {
	return func(s *Sequencer) {
		s.num = num
		s.total = total
	}
}

// WithEmojis overrides the emoji rotation.
func WithEmojis(emojis []string) SequencerOption {
	return func(s *Sequencer) { s.emojis = emojis }
}

// WithDots sets the number of dots to cycle through (1..n). Zero disables
// dots.
func WithDots(n int) SequencerOption {
	return func(s *Sequencer) { s.nbDots = n }
}

// NewSequencer creates a header sequencer for the given task tag.
func NewSequencer(tag string, opts ...SequencerOption) (*Sequencer, error) {
	s := &Sequencer{
		tag:    tag,
		emojis: DefaultEmojis,
		nbDots: DefaultNbDots,
		dots:   1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.emojis) == 0 {
		return nil, fmt.Errorf("%w: empty emoji set", ErrInvalidConfiguration)
	}
	if (s.num == 0) != (s.total == 0) {
		return nil, fmt.Errorf("%w: task counter requires both num and total (got %d/%d)", ErrInvalidConfiguration, s.num, s.total)
	}
	if s.nbDots < 0 {
		return nil, fmt.Errorf("%w: negative dot count %d", ErrInvalidConfiguration, s.nbDots)
	}
	return s, nil
}

// Next returns the next progress header and advances the sequence.
func (s *Sequencer) Next() string {
	text := s.tag
	if s.num != 0 && s.total != 0 {
		text = fmt.Sprintf("%s (%d/%d)", text, s.num, s.total)
	}
	header := fmt.Sprintf("%s %s", s.emojis[s.emojiIndex], text)
	if s.nbDots > 0 {
		header += " " + strings.Repeat(".", s.dots)
	}

	s.emojiIndex = (s.emojiIndex + 1) % len(s.emojis)
	if s.nbDots > 0 {
		if s.dots < s.nbDots {
			s.dots++
		} else {
			s.dots = 1
		}
	}

	return wrapHeader(header)
}

// DoneHeader renders the terminal header. The elapsed-time suffix is only
// added when elapsed is positive, formatted to one decimal in seconds.
func DoneHeader(elapsed time.Duration) string {
	header := doneLabel
	if elapsed > 0 {
		header += fmt.Sprintf(" (%s %.1fs)", clockEmoji, elapsed.Seconds())
	}
	return wrapHeader(header)
}

// ErrorHeader renders a warning-styled message for user-visible failures.
func ErrorHeader(message string) string {
	return wrapHeader(fmt.Sprintf("%s %s", warningEmoji, message))
}

// wrapHeader wraps the header in backticks so chat surfaces render it in
// code/status style.
func wrapHeader(text string) string {
	return headerDelim + text + headerDelim
}
