package session

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jwebster45206/story-client/internal/api"
	"github.com/jwebster45206/story-client/internal/snapshot"
	"github.com/jwebster45206/story-client/pkg/changeset"
	"github.com/jwebster45206/story-client/pkg/stream"
	"github.com/jwebster45206/story-client/pkg/timeline"
	"github.com/jwebster45206/story-client/pkg/world"
)

// Transport is the action-request and stream surface of the game server.
// Satisfied by api.Client; mocked in tests.
type Transport interface {
	FullState(ctx context.Context) (*changeset.ChangeSet, error)
	Changes(ctx context.Context, fromCheckpoint string) (*changeset.ChangeSet, error)
	MovePlayer(ctx context.Context, scenarioID, fromCheckpoint string) (*api.ActionResponse, error)
	TriggerCondition(ctx context.Context, conditionID, fromCheckpoint string) (*api.ActionResponse, error)
	SubmitChoice(ctx context.Context, eventID, choiceLabel string) error
	StreamEvent(ctx context.Context, eventID string, onBuffer func(cumulative string)) error
	Image(ctx context.Context, path string) ([]byte, error)
}

// Presenter is the presentation collaborator. It is notified of state it
// should re-render; it never mutates the world directly. Every call
// happens on the session's owning goroutine.
type Presenter interface {
	WorldUpdated()
	ScenarioImageReady(scenarioID string)
	CharacterPortraitReady(characterID string)
	ActionFailed(action string, err error)
	EventStarted(eventID string, involvedCharacterIDs []string)
	NarrativeUpdated()
	ChoicesOffered(title string, options []stream.ChoiceOption)
	EventExitable()
	EventEnded(eventID string)
}

type imageKey struct {
	target changeset.TargetKind
	id     string
}

// Session owns the client-side mirror of one game session: the world
// state, the checkpoint, and (while a narrative event is running) the
// message timeline. All mutation happens on a single owning goroutine;
// background work (HTTP requests, image fetches, the stream reader)
// completes by posting a closure to Tasks, which the owner must drain.
type Session struct {
	ID uuid.UUID

	transport Transport
	store     snapshot.Store
	presenter Presenter
	logger    *slog.Logger

	world    *world.State
	applier  *changeset.Applier
	timeline *timeline.Timeline
	assembly *stream.Reassembler

	ctx    context.Context
	cancel context.CancelFunc
	tasks  chan func()

	// imageGen holds a generation counter per image target. A completion
	// whose generation no longer matches is stale and dropped.
	imageGen      map[imageKey]uint64
	pendingImages int
	onImagesIdle  func()

	activeEventID string
	streamCancel  context.CancelFunc
}

// New creates a session. store may be nil to disable snapshot persistence;
// presenter may be nil during tests of the non-visual path.
func New(transport Transport, store snapshot.Store, presenter Presenter, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if presenter == nil {
		presenter = noopPresenter{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ID:        uuid.New(),
		transport: transport,
		store:     store,
		presenter: presenter,
		logger:    logger,
		world:     world.NewState(),
		applier:   changeset.NewApplier(logger),
		timeline:  timeline.New(logger),
		assembly:  stream.NewReassembler(logger),
		ctx:       ctx,
		cancel:    cancel,
		tasks:     make(chan func(), 64),
		imageGen:  make(map[imageKey]uint64),
	}
}

// Tasks is the queue of completions waiting to run on the owning
// goroutine. The owner must execute each received closure promptly.
func (s *Session) Tasks() <-chan func() {
	return s.tasks
}

// Stop cancels all background work for the session.
func (s *Session) Stop() {
	s.stopStream()
	s.cancel()
}

// World exposes the mirror for rendering. Owning goroutine only.
func (s *Session) World() *world.State {
	return s.world
}

// Timeline exposes the narrative timeline. Owning goroutine only.
func (s *Session) Timeline() *timeline.Timeline {
	return s.timeline
}

// Checkpoint returns the token of the last fully applied changeset.
func (s *Session) Checkpoint() string {
	return s.world.CheckpointID
}

// ActiveEventID returns the narrative event currently streaming, or "".
func (s *Session) ActiveEventID() string {
	return s.activeEventID
}

// post marshals a completion back onto the owning goroutine.
func (s *Session) post(fn func()) {
	select {
	case s.tasks <- fn:
	case <-s.ctx.Done():
	}
}

// Bootstrap initializes the mirror: from a persisted snapshot plus an
// incremental catch-up when one exists, otherwise from a full-state
// fetch. Called on the owning goroutine before any other operation.
func (s *Session) Bootstrap(ctx context.Context) error {
	if s.store != nil {
		saved, err := s.store.Load(ctx, s.ID)
		if err != nil {
			s.logger.Warn("snapshot load failed, falling back to full state", "error", err)
		} else if saved != nil {
			s.world = saved
			s.logger.Info("session resumed from snapshot", "checkpoint", saved.CheckpointID)
			cs, err := s.transport.Changes(ctx, saved.CheckpointID)
			if err != nil {
				return err
			}
			s.applyChangeSet(cs)
			s.presenter.WorldUpdated()
			return nil
		}
	}

	cs, err := s.transport.FullState(ctx)
	if err != nil {
		return err
	}
	s.applyChangeSet(cs)
	s.presenter.WorldUpdated()
	return nil
}

// Refresh fetches and applies changes since the current checkpoint.
// Runs in the background; completion is delivered through Tasks.
func (s *Session) Refresh() {
	from := s.world.CheckpointID
	go func() {
		cs, err := s.transport.Changes(s.ctx, from)
		s.post(func() {
			if err != nil {
				s.logger.Warn("incremental refresh failed", "error", err)
				return
			}
			if cs.IsEmpty() && cs.CheckpointID == s.world.CheckpointID {
				return
			}
			s.applyChangeSet(cs)
			s.presenter.WorldUpdated()
		})
	}()
}

// Move requests a move to scenarioID. The result arrives through Tasks:
// on success the changeset is applied, the current scenario switches, and
// any follow-up action runs; on failure the checkpoint and scenario are
// untouched and the presenter is told, so a retry with the same
// parameters is safe.
func (s *Session) Move(scenarioID string) {
	from := s.world.CheckpointID
	go func() {
		resp, err := s.transport.MovePlayer(s.ctx, scenarioID, from)
		s.post(func() {
			if err := actionErr(resp, err); err != nil {
				s.presenter.ActionFailed("move", err)
				return
			}
			s.applyChangeSet(resp.Changeset)
			s.world.CurrentScenarioID = scenarioID
			s.presenter.WorldUpdated()
			s.handleFollowUp(resp.FollowUpAction)
		})
	}()
}

// Trigger requests activation of a contextual option's condition.
func (s *Session) Trigger(conditionID string) {
	from := s.world.CheckpointID
	go func() {
		resp, err := s.transport.TriggerCondition(s.ctx, conditionID, from)
		s.post(func() {
			if err := actionErr(resp, err); err != nil {
				s.presenter.ActionFailed("trigger", err)
				return
			}
			s.applyChangeSet(resp.Changeset)
			s.presenter.WorldUpdated()
			s.handleFollowUp(resp.FollowUpAction)
		})
	}()
}

// applyChangeSet runs the reducer and dispatches its side effects.
func (s *Session) applyChangeSet(cs *changeset.ChangeSet) {
	effects, err := s.applier.Apply(s.world, cs)
	if err != nil {
		s.logger.Warn("changeset not applied", "error", err)
		return
	}
	for _, effect := range effects {
		s.fetchImage(effect)
	}
	s.saveSnapshot()
}

func (s *Session) saveSnapshot() {
	if s.store == nil {
		return
	}
	if err := s.store.Save(s.ctx, s.ID, s.world); err != nil {
		s.logger.Warn("snapshot save failed", "error", err)
	}
}

// fetchImage resolves a side effect's image asynchronously. The generation
// counter defends against stale completions: if a newer fetch for the
// same target starts before this one lands, this result is dropped.
func (s *Session) fetchImage(effect changeset.SideEffect) {
	key := imageKey{target: effect.Target, id: effect.TargetID}
	s.imageGen[key]++
	gen := s.imageGen[key]
	s.pendingImages++

	go func() {
		data, err := s.transport.Image(s.ctx, effect.ImagePath)
		s.post(func() {
			s.pendingImages--
			defer s.notifyImagesIdle()

			if err != nil {
				s.logger.Warn("image fetch failed", "path", effect.ImagePath, "error", err)
				return
			}
			if s.imageGen[key] != gen {
				s.logger.Debug("dropping stale image result", "path", effect.ImagePath)
				return
			}
			switch effect.Target {
			case changeset.TargetScenario:
				if sc := s.world.Scenario(effect.TargetID); sc != nil {
					sc.Background = data
					s.presenter.ScenarioImageReady(sc.ID)
				}
			case changeset.TargetCharacter:
				if c := s.world.Character(effect.TargetID); c != nil {
					c.Portrait = data
					s.presenter.CharacterPortraitReady(c.ID)
				}
			}
		})
	}()
}

// OnAllImagesLoaded registers a one-shot callback fired when no image
// fetches are in flight. Fires immediately if none are pending.
func (s *Session) OnAllImagesLoaded(fn func()) {
	if s.pendingImages == 0 {
		fn()
		return
	}
	s.onImagesIdle = fn
}

func (s *Session) notifyImagesIdle() {
	if s.pendingImages == 0 && s.onImagesIdle != nil {
		fn := s.onImagesIdle
		s.onImagesIdle = nil
		fn()
	}
}

// noopPresenter lets the session run headless.
type noopPresenter struct{}

func (noopPresenter) WorldUpdated() {}
func (noopPresenter) ScenarioImageReady(string) {}
func (noopPresenter) CharacterPortraitReady(string) {}
func (noopPresenter) ActionFailed(string, error) {}
func (noopPresenter) EventStarted(string, []string) {}
func (noopPresenter) NarrativeUpdated() {}
func (noopPresenter) ChoicesOffered(string, []stream.ChoiceOption) {}
func (noopPresenter) EventExitable() {}
func (noopPresenter) EventEnded(string) {}

func actionErr(resp *api.ActionResponse, err error) error {
	if err != nil {
		return err
	}
	if resp.Error != "" {
		return &api.ServerError{Message: resp.Error}
	}
	return nil
}
