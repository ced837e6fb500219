package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/story-client/internal/api"
	"github.com/jwebster45206/story-client/pkg/changeset"
	"github.com/jwebster45206/story-client/pkg/stream"
	"github.com/jwebster45206/story-client/pkg/world"
)

func strPtr(s string) *string { return &s }

// mockTransport lets each test plug in just the calls it exercises.
type mockTransport struct {
	fullFn    func(ctx context.Context) (*changeset.ChangeSet, error)
	changesFn func(ctx context.Context, from string) (*changeset.ChangeSet, error)
	moveFn    func(ctx context.Context, scenarioID, from string) (*api.ActionResponse, error)
	triggerFn func(ctx context.Context, conditionID, from string) (*api.ActionResponse, error)
	choiceFn  func(ctx context.Context, eventID, label string) error
	streamFn  func(ctx context.Context, eventID string, onBuffer func(string)) error
	imageFn   func(ctx context.Context, path string) ([]byte, error)

	mu          sync.Mutex
	streamCalls int
}

func (m *mockTransport) FullState(ctx context.Context) (*changeset.ChangeSet, error) {
	return m.fullFn(ctx)
}

func (m *mockTransport) Changes(ctx context.Context, from string) (*changeset.ChangeSet, error) {
	return m.changesFn(ctx, from)
}

func (m *mockTransport) MovePlayer(ctx context.Context, scenarioID, from string) (*api.ActionResponse, error) {
	return m.moveFn(ctx, scenarioID, from)
}

func (m *mockTransport) TriggerCondition(ctx context.Context, conditionID, from string) (*api.ActionResponse, error) {
	return m.triggerFn(ctx, conditionID, from)
}

func (m *mockTransport) SubmitChoice(ctx context.Context, eventID, label string) error {
	return m.choiceFn(ctx, eventID, label)
}

func (m *mockTransport) StreamEvent(ctx context.Context, eventID string, onBuffer func(string)) error {
	m.mu.Lock()
	m.streamCalls++
	m.mu.Unlock()
	return m.streamFn(ctx, eventID, onBuffer)
}

func (m *mockTransport) Image(ctx context.Context, path string) ([]byte, error) {
	if m.imageFn != nil {
		return m.imageFn(ctx, path)
	}
	return []byte(path), nil
}

func (m *mockTransport) streamCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streamCalls
}

// recPresenter records notifications. All calls arrive on the test
// goroutine via task draining, so no locking is needed.
type recPresenter struct {
	worldUpdates   int
	scenarioImages []string
	portraits      []string
	failures       []string
	startedEvents  []string
	narratives     int
	choiceTitles   []string
	exitable       int
	endedEvents    []string
}

func (p *recPresenter) WorldUpdated() { p.worldUpdates++ }

func (p *recPresenter) ScenarioImageReady(id string) {
	p.scenarioImages = append(p.scenarioImages, id)
}

func (p *recPresenter) CharacterPortraitReady(id string) {
	p.portraits = append(p.portraits, id)
}

func (p *recPresenter) ActionFailed(action string, _ error) {
	p.failures = append(p.failures, action)
}
func (p *recPresenter) EventStarted(id string, _ []string) {
	p.startedEvents = append(p.startedEvents, id)
}
func (p *recPresenter) NarrativeUpdated() { p.narratives++ }

func (p *recPresenter) ChoicesOffered(title string, _ []stream.ChoiceOption) {
	p.choiceTitles = append(p.choiceTitles, title)
}

func (p *recPresenter) EventExitable() { p.exitable++ }

func (p *recPresenter) EventEnded(id string) { p.endedEvents = append(p.endedEvents, id) }

// inmemStore is a Store for tests that do not need Redis.
type inmemStore struct {
	mu    sync.Mutex
	saved map[uuid.UUID]*world.State
}

func newInmemStore() *inmemStore {
	return &inmemStore{saved: make(map[uuid.UUID]*world.State)}
}

func (s *inmemStore) Ping(context.Context) error { return nil }

func (s *inmemStore) Save(_ context.Context, id uuid.UUID, st *world.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[id] = st
	return nil
}

func (s *inmemStore) Load(_ context.Context, id uuid.UUID) (*world.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved[id], nil
}

func (s *inmemStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, id)
	return nil
}

func (s *inmemStore) Close() error { return nil }

// drainUntil runs posted tasks on the test goroutine until cond holds.
func drainUntil(t *testing.T, s *Session, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case fn := <-s.Tasks():
			fn()
		case <-deadline:
			t.Fatal("timed out waiting for session condition")
		}
	}
}

func bootstrapChangeSet() *changeset.ChangeSet {
	return &changeset.ChangeSet{
		CheckpointID: "cp-1",
		Changes: &changeset.Changes{
			Map: &changeset.MapChanges{
				Scenarios: []changeset.ScenarioOp{
					{Op: "add", ID: "s1", Name: strPtr("Lighthouse"), ImagePath: strPtr("img/s1.png")},
					{Op: "add", ID: "s2", Name: strPtr("Cliffs")},
				},
				Connections: []changeset.ConnectionOp{
					{Op: "add", ID: "c1", ScenarioAID: strPtr("s1"), ScenarioBID: strPtr("s2"), DirectionFromA: strPtr("north")},
				},
			},
			Characters: &changeset.CharacterChanges{
				PlayerCharacterID: "char-pc",
				Registry: []changeset.CharacterOp{
					{Op: "add", ID: "char-pc", PresentInScenario: strPtr("s1")},
				},
			},
		},
	}
}

func record(payload string) string {
	return "data: " + payload + "\n\n"
}

func TestBootstrap_FullState(t *testing.T) {
	transport := &mockTransport{
		fullFn: func(context.Context) (*changeset.ChangeSet, error) {
			return bootstrapChangeSet(), nil
		},
	}
	presenter := &recPresenter{}
	s := New(transport, nil, presenter, nil)
	defer s.Stop()

	require.NoError(t, s.Bootstrap(context.Background()))
	assert.Equal(t, "cp-1", s.Checkpoint())
	assert.Equal(t, "char-pc", s.World().PlayerCharacterID)
	require.NotNil(t, s.World().Scenario("s1"))
	assert.Equal(t, 1, presenter.worldUpdates)

	// The background image side effect lands through the task queue.
	drainUntil(t, s, func() bool { return len(presenter.scenarioImages) == 1 })
	assert.Equal(t, []byte("img/s1.png"), s.World().Scenario("s1").Background)
}

func TestBootstrap_ResumesFromSnapshot(t *testing.T) {
	var requestedFrom string
	transport := &mockTransport{
		changesFn: func(_ context.Context, from string) (*changeset.ChangeSet, error) {
			requestedFrom = from
			return &changeset.ChangeSet{
				CheckpointID: "cp-6",
				Changes: &changeset.Changes{
					Map: &changeset.MapChanges{
						Scenarios: []changeset.ScenarioOp{{Op: "add", ID: "s9"}},
					},
				},
			}, nil
		},
	}
	store := newInmemStore()
	s := New(transport, store, &recPresenter{}, nil)
	defer s.Stop()

	saved := world.NewState()
	saved.CheckpointID = "cp-5"
	saved.UpsertScenario(world.NewScenario("s1"))
	require.NoError(t, store.Save(context.Background(), s.ID, saved))

	require.NoError(t, s.Bootstrap(context.Background()))
	assert.Equal(t, "cp-5", requestedFrom, "incremental fetch resumes from the snapshot checkpoint")
	assert.Equal(t, "cp-6", s.Checkpoint())
	assert.NotNil(t, s.World().Scenario("s1"), "snapshot contents kept")
	assert.NotNil(t, s.World().Scenario("s9"), "delta applied on top")
}

func TestBootstrap_ResumeAcrossRestart(t *testing.T) {
	var fullCalls int
	transport := &mockTransport{
		fullFn: func(context.Context) (*changeset.ChangeSet, error) {
			fullCalls++
			return bootstrapChangeSet(), nil
		},
		changesFn: func(_ context.Context, from string) (*changeset.ChangeSet, error) {
			return &changeset.ChangeSet{CheckpointID: from}, nil
		},
	}
	store := newInmemStore()
	pinned := uuid.New()

	first := New(transport, store, &recPresenter{}, nil)
	first.ID = pinned
	require.NoError(t, first.Bootstrap(context.Background()))
	first.Stop()

	// A new process reuses the pinned ID, so the snapshot from the
	// previous run is found and the full fetch is skipped.
	second := New(transport, store, &recPresenter{}, nil)
	second.ID = pinned
	defer second.Stop()
	require.NoError(t, second.Bootstrap(context.Background()))

	assert.Equal(t, 1, fullCalls, "second bootstrap must resume, not refetch")
	assert.Equal(t, "cp-1", second.Checkpoint())
	assert.NotNil(t, second.World().Scenario("s1"))
}

func TestMove_TransportFailureLeavesCheckpoint(t *testing.T) {
	transport := &mockTransport{
		fullFn: func(context.Context) (*changeset.ChangeSet, error) {
			return bootstrapChangeSet(), nil
		},
		moveFn: func(context.Context, string, string) (*api.ActionResponse, error) {
			return nil, errors.New("connection refused")
		},
	}
	presenter := &recPresenter{}
	s := New(transport, nil, presenter, nil)
	defer s.Stop()
	require.NoError(t, s.Bootstrap(context.Background()))

	s.Move("s2")
	drainUntil(t, s, func() bool { return len(presenter.failures) == 1 })

	assert.Equal(t, "move", presenter.failures[0])
	assert.Equal(t, "cp-1", s.Checkpoint(), "failed action must not advance the checkpoint")
	assert.Empty(t, s.World().CurrentScenarioID)
}

func TestMove_ServerErrorReported(t *testing.T) {
	transport := &mockTransport{
		fullFn: func(context.Context) (*changeset.ChangeSet, error) {
			return bootstrapChangeSet(), nil
		},
		moveFn: func(context.Context, string, string) (*api.ActionResponse, error) {
			return &api.ActionResponse{Error: "path is blocked"}, nil
		},
	}
	presenter := &recPresenter{}
	s := New(transport, nil, presenter, nil)
	defer s.Stop()
	require.NoError(t, s.Bootstrap(context.Background()))

	s.Move("s2")
	drainUntil(t, s, func() bool { return len(presenter.failures) == 1 })
	assert.Equal(t, "cp-1", s.Checkpoint())
}

func TestMove_FollowUpStartsNarrativeStream(t *testing.T) {
	buffer := record(`{"message_id":"m1","type":"dialogue","speaker_id":"char-1","content":"You came."}`)
	transport := &mockTransport{
		fullFn: func(context.Context) (*changeset.ChangeSet, error) {
			return bootstrapChangeSet(), nil
		},
		moveFn: func(_ context.Context, scenarioID, from string) (*api.ActionResponse, error) {
			return &api.ActionResponse{
				Changeset: &changeset.ChangeSet{CheckpointID: "cp-2"},
				FollowUpAction: &api.FollowUpAction{
					Type:    api.FollowUpStartNarrativeStream,
					Payload: &api.StartNarrativeStreamPayload{EventID: "ev-1", InvolvedCharacterIDs: []string{"char-1"}},
				},
			}, nil
		},
		streamFn: func(_ context.Context, _ string, onBuffer func(string)) error {
			onBuffer(buffer)
			return nil
		},
	}
	presenter := &recPresenter{}
	s := New(transport, nil, presenter, nil)
	defer s.Stop()
	require.NoError(t, s.Bootstrap(context.Background()))

	s.Move("s2")
	drainUntil(t, s, func() bool { return presenter.exitable == 1 })

	assert.Equal(t, "cp-2", s.Checkpoint())
	assert.Equal(t, "s2", s.World().CurrentScenarioID)
	assert.Equal(t, []string{"ev-1"}, presenter.startedEvents)
	require.Len(t, s.Timeline().Entries(), 1)
	assert.Equal(t, "You came.", s.Timeline().Entries()[0].Content)
	assert.True(t, s.Timeline().Exitable())
}

func TestChoiceFlow_RestartsStreamFromScratch(t *testing.T) {
	transport := &mockTransport{}
	firstStream := record(`{"message_id":"m1","type":"dialogue","content":"Decide."}`) +
		record(`{"message_id":"m2","type":"player_choice","title":"What now?","options":[{"label":"Stay"},{"label":"Run"}]}`)
	secondStream := record(`{"message_id":"m3","type":"narrator","content":"You stayed."}`)

	transport.fullFn = func(context.Context) (*changeset.ChangeSet, error) {
		return bootstrapChangeSet(), nil
	}
	transport.triggerFn = func(context.Context, string, string) (*api.ActionResponse, error) {
		return &api.ActionResponse{
			Changeset: &changeset.ChangeSet{CheckpointID: "cp-2"},
			FollowUpAction: &api.FollowUpAction{
				Type:    api.FollowUpStartNarrativeStream,
				Payload: &api.StartNarrativeStreamPayload{EventID: "ev-1"},
			},
		}, nil
	}
	transport.streamFn = func(_ context.Context, _ string, onBuffer func(string)) error {
		if transport.streamCallCount() == 1 {
			onBuffer(firstStream)
		} else {
			onBuffer(secondStream)
		}
		return nil
	}
	transport.choiceFn = func(_ context.Context, eventID, label string) error {
		assert.Equal(t, "ev-1", eventID)
		assert.Equal(t, "Stay", label)
		return nil
	}

	presenter := &recPresenter{}
	s := New(transport, nil, presenter, nil)
	defer s.Stop()
	require.NoError(t, s.Bootstrap(context.Background()))

	s.Trigger("cond-1")
	drainUntil(t, s, func() bool { return len(s.Timeline().Entries()) == 2 && s.Timeline().Ended() })

	// Walk to the choice.
	s.MarkShown()
	require.True(t, s.Advance())
	require.Len(t, presenter.choiceTitles, 1)
	assert.Equal(t, "What now?", presenter.choiceTitles[0])
	assert.False(t, s.Advance(), "a pending choice refuses advance")

	s.SubmitChoice("Stay")
	drainUntil(t, s, func() bool {
		return transport.streamCallCount() == 2 && len(s.Timeline().Entries()) == 1 && s.Timeline().Ended()
	})

	assert.Equal(t, "m3", s.Timeline().Entries()[0].MessageID, "restart replays from scratch")
	assert.True(t, s.Timeline().Exitable())
}

func TestSubmitChoice_DesyncForcesReset(t *testing.T) {
	release := make(chan struct{})
	transport := &mockTransport{
		fullFn: func(context.Context) (*changeset.ChangeSet, error) {
			return bootstrapChangeSet(), nil
		},
		moveFn: func(context.Context, string, string) (*api.ActionResponse, error) {
			return &api.ActionResponse{
				Changeset: &changeset.ChangeSet{CheckpointID: "cp-2"},
				FollowUpAction: &api.FollowUpAction{
					Type:    api.FollowUpStartNarrativeStream,
					Payload: &api.StartNarrativeStreamPayload{EventID: "ev-1"},
				},
			}, nil
		},
		streamFn: func(_ context.Context, _ string, onBuffer func(string)) error {
			first := record(`{"message_id":"m1","type":"dialogue","content":"Hello"}`)
			onBuffer(first)
			<-release
			// Cumulative delivery: the reader re-sends everything it has.
			onBuffer(first + record(`{"message_id":"m2","type":"dialogue","content":"Still here"}`))
			return nil
		},
		choiceFn: func(context.Context, string, string) error {
			t.Error("desync submission must not reach the transport")
			return nil
		},
	}
	presenter := &recPresenter{}
	s := New(transport, nil, presenter, nil)
	defer s.Stop()
	require.NoError(t, s.Bootstrap(context.Background()))

	s.Move("s2")
	drainUntil(t, s, func() bool { return len(s.Timeline().Entries()) == 1 })

	s.SubmitChoice("Stay")
	assert.Empty(t, s.Timeline().Entries(), "forced back to a safe empty state")
	assert.Empty(t, s.ActiveEventID(), "abandoned event is no longer active")
	assert.Equal(t, []string{"ev-1"}, presenter.endedEvents)

	// Let the still-open stream deliver its late buffer and run whatever
	// it posts. None of it may land on the reset timeline.
	close(release)
	deadline := time.After(300 * time.Millisecond)
settle:
	for {
		select {
		case fn := <-s.Tasks():
			fn()
		case <-deadline:
			break settle
		}
	}
	assert.Empty(t, s.Timeline().Entries(), "late stream delivery must not repopulate the timeline")
}

func TestFetchImage_StaleResultDropped(t *testing.T) {
	release := map[string]chan struct{}{
		"img/old.png": make(chan struct{}),
		"img/new.png": make(chan struct{}),
	}
	transport := &mockTransport{
		imageFn: func(_ context.Context, path string) ([]byte, error) {
			<-release[path]
			return []byte(path), nil
		},
	}
	s := New(transport, nil, &recPresenter{}, nil)
	defer s.Stop()

	s.World().UpsertCharacter(&world.Character{ID: "char-1"})
	s.fetchImage(changeset.SideEffect{Target: changeset.TargetCharacter, TargetID: "char-1", ImagePath: "img/old.png"})
	s.fetchImage(changeset.SideEffect{Target: changeset.TargetCharacter, TargetID: "char-1", ImagePath: "img/new.png"})

	close(release["img/new.png"])
	drainUntil(t, s, func() bool { return s.World().Character("char-1").Portrait != nil })
	assert.Equal(t, []byte("img/new.png"), s.World().Character("char-1").Portrait)

	close(release["img/old.png"])
	drainUntil(t, s, func() bool { return s.pendingImages == 0 })
	assert.Equal(t, []byte("img/new.png"), s.World().Character("char-1").Portrait,
		"the older fetch must not clobber the newer result")
}

func TestOnAllImagesLoaded(t *testing.T) {
	transport := &mockTransport{}
	s := New(transport, nil, &recPresenter{}, nil)
	defer s.Stop()

	fired := false
	s.OnAllImagesLoaded(func() { fired = true })
	assert.True(t, fired, "fires immediately with nothing pending")

	fired = false
	s.World().UpsertScenario(world.NewScenario("s1"))
	s.fetchImage(changeset.SideEffect{Target: changeset.TargetScenario, TargetID: "s1", ImagePath: "img/s1.png"})
	s.OnAllImagesLoaded(func() { fired = true })
	assert.False(t, fired)

	drainUntil(t, s, func() bool { return fired })
}

func TestExitEvent_TearsDownSegment(t *testing.T) {
	transport := &mockTransport{
		fullFn: func(context.Context) (*changeset.ChangeSet, error) {
			return bootstrapChangeSet(), nil
		},
		moveFn: func(context.Context, string, string) (*api.ActionResponse, error) {
			return &api.ActionResponse{
				Changeset: &changeset.ChangeSet{CheckpointID: "cp-2"},
				FollowUpAction: &api.FollowUpAction{
					Type:    api.FollowUpStartNarrativeStream,
					Payload: &api.StartNarrativeStreamPayload{EventID: "ev-1"},
				},
			}, nil
		},
		streamFn: func(_ context.Context, _ string, onBuffer func(string)) error {
			onBuffer(record(`{"message_id":"m1","type":"dialogue","content":"Farewell."}`))
			return nil
		},
	}
	presenter := &recPresenter{}
	s := New(transport, nil, presenter, nil)
	defer s.Stop()
	require.NoError(t, s.Bootstrap(context.Background()))

	s.Move("s2")
	drainUntil(t, s, func() bool { return presenter.exitable == 1 })

	// Exit is refused until the segment is exitable; here it already is.
	s.ExitEvent()
	assert.Equal(t, []string{"ev-1"}, presenter.endedEvents)
	assert.Empty(t, s.ActiveEventID())
	assert.Empty(t, s.Timeline().Entries())
}

func TestRefresh_AppliesDelta(t *testing.T) {
	transport := &mockTransport{
		fullFn: func(context.Context) (*changeset.ChangeSet, error) {
			return bootstrapChangeSet(), nil
		},
		changesFn: func(_ context.Context, from string) (*changeset.ChangeSet, error) {
			assert.Equal(t, "cp-1", from)
			return &changeset.ChangeSet{
				CheckpointID: "cp-2",
				Changes: &changeset.Changes{
					Map: &changeset.MapChanges{
						Scenarios: []changeset.ScenarioOp{{Op: "add", ID: "s3"}},
					},
				},
			}, nil
		},
	}
	s := New(transport, nil, &recPresenter{}, nil)
	defer s.Stop()
	require.NoError(t, s.Bootstrap(context.Background()))

	s.Refresh()
	drainUntil(t, s, func() bool { return s.Checkpoint() == "cp-2" })
	assert.NotNil(t, s.World().Scenario("s3"))
}
