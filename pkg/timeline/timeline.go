package timeline

import (
	"log/slog"

	"github.com/jwebster45206/story-client/pkg/stream"
)

// Phase is the observable state of the timeline.
type Phase string

const (
	PhaseEmpty           Phase = "empty"
	PhaseBuffering       Phase = "buffering"
	PhaseAwaitingAdvance Phase = "awaiting_advance"
	PhaseAwaitingChoice  Phase = "awaiting_choice"
	PhaseExitable        Phase = "exitable"
)

// Entry is one reassembled message: the first fragment's metadata plus
// every fragment's content concatenated in arrival order.
type Entry struct {
	MessageID string
	Type      stream.MessageType
	SpeakerID string
	Title     string
	Content   string
	Options   []stream.ChoiceOption

	// Final means no further fragments will arrive for this entry.
	Final bool
	// Shown is set by the presentation collaborator once the entry's
	// content has been fully revealed.
	Shown bool
}

// Timeline holds the ordered list of reassembled messages for one
// narrative event and tracks which one is current. It owns the
// raw-versus-current distinction; character pacing belongs to the
// presenter.
type Timeline struct {
	logger *slog.Logger

	entries  []*Entry
	current  int
	ended    bool
	exitable bool
}

// New returns an empty timeline.
func New(logger *slog.Logger) *Timeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Timeline{logger: logger}
}

// Append folds one stream message into the timeline. A message whose ID
// matches the last entry is a continuation fragment; any other ID starts
// a new entry and finalizes everything before it, which is the only
// implicit finality signal while the stream is open.
func (tl *Timeline) Append(msg stream.Message) {
	if last := tl.last(); last != nil && last.MessageID == msg.MessageID {
		last.Content += msg.Content
		if msg.Title != "" {
			last.Title = msg.Title
		}
		if len(msg.Options) > 0 {
			last.Options = msg.Options
		}
		return
	}

	tl.finalizeAllPrior()
	tl.entries = append(tl.entries, &Entry{
		MessageID: msg.MessageID,
		Type:      msg.Type,
		SpeakerID: msg.SpeakerID,
		Title:     msg.Title,
		Content:   msg.Content,
		Options:   msg.Options,
	})
}

// finalizeAllPrior is the named transition behind new-ID finality: every
// entry already in the list will receive no further fragments.
func (tl *Timeline) finalizeAllPrior() {
	for _, e := range tl.entries {
		e.Final = true
	}
}

// EndStream handles the transport's out-of-band stream-ended signal. The
// last entry is finalized; the segment becomes exitable unless the stream
// stopped on a player choice, which must be answered first. A stream that
// ends with zero messages is a protocol anomaly and leaves the timeline
// parked un-exitable.
func (tl *Timeline) EndStream() {
	tl.ended = true
	last := tl.last()
	if last == nil {
		tl.logger.Warn("stream ended with no messages")
		tl.exitable = false
		return
	}
	last.Final = true
	tl.exitable = last.Type != stream.TypePlayerChoice
}

// last returns the most recently appended entry, or nil when empty.
func (tl *Timeline) last() *Entry {
	if len(tl.entries) == 0 {
		return nil
	}
	return tl.entries[len(tl.entries)-1]
}

// Current returns the current entry, or nil when the timeline is empty.
func (tl *Timeline) Current() *Entry {
	if tl.current >= len(tl.entries) {
		return nil
	}
	return tl.entries[tl.current]
}

// CurrentIndex returns the index of the current entry.
func (tl *Timeline) CurrentIndex() int {
	return tl.current
}

// Entries returns the reassembled entries in order.
func (tl *Timeline) Entries() []*Entry {
	return tl.entries
}

// MarkShown records that the presenter has fully revealed the current
// entry's content.
func (tl *Timeline) MarkShown() {
	if cur := tl.Current(); cur != nil {
		cur.Shown = true
	}
}

// CanAdvance reports whether the advance gesture is legal: the current
// entry must be final and fully shown, and a player choice can never be
// advanced past, only answered.
func (tl *Timeline) CanAdvance() bool {
	cur := tl.Current()
	if cur == nil {
		return false
	}
	if cur.Type == stream.TypePlayerChoice {
		return false
	}
	return cur.Final && cur.Shown
}

// Advance moves to the next entry. It is a no-op (returning false) when
// advancing is not legal or there is nothing after the current entry.
func (tl *Timeline) Advance() bool {
	if !tl.CanAdvance() {
		return false
	}
	if tl.current+1 >= len(tl.entries) {
		return false
	}
	tl.current++
	return true
}

// AwaitingChoice reports whether the timeline is parked on a finalized
// player choice.
func (tl *Timeline) AwaitingChoice() bool {
	cur := tl.Current()
	return cur != nil && cur.Type == stream.TypePlayerChoice && cur.Final
}

// ChoiceOptions returns the options of the pending player choice, or nil
// when no choice is pending.
func (tl *Timeline) ChoiceOptions() []stream.ChoiceOption {
	if !tl.AwaitingChoice() {
		return nil
	}
	return tl.Current().Options
}

// Exitable reports whether the interactive segment may be exited.
func (tl *Timeline) Exitable() bool {
	return tl.exitable
}

// Ended reports whether the stream-ended signal has been received.
func (tl *Timeline) Ended() bool {
	return tl.ended
}

// Phase derives the observable state from the entry list.
func (tl *Timeline) Phase() Phase {
	cur := tl.Current()
	if cur == nil {
		return PhaseEmpty
	}
	if tl.exitable && tl.current == len(tl.entries)-1 {
		return PhaseExitable
	}
	if cur.Type == stream.TypePlayerChoice && cur.Final {
		return PhaseAwaitingChoice
	}
	if cur.Final {
		return PhaseAwaitingAdvance
	}
	return PhaseBuffering
}

// Reset clears the timeline back to empty. Called after a successful
// choice submission (the stream restarts from scratch) and on event
// teardown.
func (tl *Timeline) Reset() {
	tl.entries = nil
	tl.current = 0
	tl.ended = false
	tl.exitable = false
}
