package session

import (
	"context"

	"github.com/jwebster45206/story-client/internal/api"
	"github.com/jwebster45206/story-client/pkg/timeline"
)

// handleFollowUp dispatches the server's post-action instruction.
func (s *Session) handleFollowUp(action *api.FollowUpAction) {
	if action == nil || action.Type == api.FollowUpNone {
		return
	}

	switch action.Type {
	case api.FollowUpStartNarrativeStream:
		if action.Payload == nil || action.Payload.EventID == "" {
			s.logger.Warn("start-stream follow-up without event id")
			return
		}
		s.startEventStream(action.Payload.EventID, action.Payload.InvolvedCharacterIDs)
	default:
		s.logger.Warn("unknown follow-up action", "type", action.Type)
	}
}

// startEventStream attaches a fresh timeline and reassembler to the
// event's stream and begins reading it. Any previous stream is torn down
// first; its late completions fail the active-event check and vanish.
func (s *Session) startEventStream(eventID string, involvedCharacterIDs []string) {
	s.stopStream()

	s.activeEventID = eventID
	s.timeline.Reset()
	s.assembly.Reset()
	s.presenter.EventStarted(eventID, involvedCharacterIDs)

	s.openStream(eventID)
}

// openStream starts the background reader for eventID. Decoded messages
// and the end-of-stream signal come back through Tasks, each guarded by
// an identity check against the active event.
func (s *Session) openStream(eventID string) {
	ctx, cancel := context.WithCancel(s.ctx)
	s.streamCancel = cancel

	go func() {
		err := s.transport.StreamEvent(ctx, eventID, func(cumulative string) {
			buf := cumulative
			s.post(func() {
				if s.activeEventID != eventID {
					return
				}
				s.ingest(buf)
			})
		})
		s.post(func() {
			if s.activeEventID != eventID {
				return
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.presenter.ActionFailed("stream", err)
				return
			}
			s.onStreamEnded()
		})
	}()
}

// ingest feeds the cumulative buffer through the reassembler and folds
// any newly completed messages into the timeline.
func (s *Session) ingest(buffer string) {
	messages := s.assembly.Feed(buffer)
	if len(messages) == 0 {
		return
	}
	for _, msg := range messages {
		s.timeline.Append(msg)
	}
	s.presenter.NarrativeUpdated()
}

// onStreamEnded applies the out-of-band terminal signal and reports the
// resulting phase: a pending choice, an exitable segment, or (for the
// empty-stream anomaly) nothing.
func (s *Session) onStreamEnded() {
	s.streamCancel = nil
	s.timeline.EndStream()
	s.presenter.NarrativeUpdated()

	if s.timeline.AwaitingChoice() {
		cur := s.timeline.Current()
		s.presenter.ChoicesOffered(cur.Title, cur.Options)
		return
	}
	if s.timeline.Exitable() {
		s.presenter.EventExitable()
	}
}

// MarkShown records that the presenter finished revealing the current
// entry.
func (s *Session) MarkShown() {
	s.timeline.MarkShown()
}

// Advance moves the timeline to the next entry when legal. If the new
// position leaves the segment exitable, the presenter is told.
func (s *Session) Advance() bool {
	moved := s.timeline.Advance()
	if moved {
		s.presenter.NarrativeUpdated()
		if s.timeline.AwaitingChoice() {
			cur := s.timeline.Current()
			s.presenter.ChoicesOffered(cur.Title, cur.Options)
		} else if s.timeline.Phase() == timeline.PhaseExitable {
			s.presenter.EventExitable()
		}
	}
	return moved
}

// SubmitChoice submits the chosen label for the pending player choice.
// On success the timeline and reassembler reset and the stream reconnects
// from scratch on the same event. Submitting with no pending choice is a
// protocol desync: the whole segment is torn down, stream included, so a
// late buffer delivery cannot repopulate the reset timeline.
func (s *Session) SubmitChoice(choiceLabel string) {
	eventID := s.activeEventID
	if eventID == "" {
		s.logger.Warn("choice submitted with no active event", "label", choiceLabel)
		return
	}
	if !s.timeline.AwaitingChoice() {
		s.logger.Warn("choice submitted while not awaiting one; abandoning event", "label", choiceLabel, "event_id", eventID)
		s.stopStream()
		s.activeEventID = ""
		s.timeline.Reset()
		s.assembly.Reset()
		s.presenter.EventEnded(eventID)
		return
	}

	go func() {
		err := s.transport.SubmitChoice(s.ctx, eventID, choiceLabel)
		s.post(func() {
			if s.activeEventID != eventID {
				return
			}
			if err != nil {
				s.presenter.ActionFailed("choice", err)
				return
			}
			s.stopStream()
			s.timeline.Reset()
			s.assembly.Reset()
			s.presenter.NarrativeUpdated()
			s.openStream(eventID)
		})
	}()
}

// ExitEvent tears down the narrative segment once the presenter has
// confirmed the exit gesture. Ignored unless the timeline is exitable.
func (s *Session) ExitEvent() {
	if s.activeEventID == "" {
		return
	}
	if !s.timeline.Exitable() {
		s.logger.Warn("exit requested before segment is exitable", "event_id", s.activeEventID)
		return
	}
	eventID := s.activeEventID
	s.stopStream()
	s.activeEventID = ""
	s.timeline.Reset()
	s.assembly.Reset()
	s.presenter.EventEnded(eventID)
}

func (s *Session) stopStream() {
	if s.streamCancel != nil {
		s.streamCancel()
		s.streamCancel = nil
	}
}
