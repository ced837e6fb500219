package snapshot

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/story-client/pkg/world"
)

func newTestStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	store := NewRedisStore(mr.Addr(), nil)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestSaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := uuid.New()

	st := world.NewState()
	st.CheckpointID = "cp-9"
	st.PlayerCharacterID = "char-pc"
	sc := world.NewScenario("s1")
	sc.Name = "Lighthouse"
	st.UpsertScenario(sc)
	st.UpsertCharacter(&world.Character{ID: "char-pc"})
	st.SetResidentScenario("char-pc", "s1")
	st.UpsertContextualOption("char-pc", &world.ContextualOption{ConditionID: "cond-1", MenuLabel: "Look around"})

	require.NoError(t, store.Save(ctx, id, st))

	loaded, err := store.Load(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, "cp-9", loaded.CheckpointID)
	assert.Equal(t, "char-pc", loaded.PlayerCharacterID)
	require.NotNil(t, loaded.Scenario("s1"))
	assert.Equal(t, "Lighthouse", loaded.Scenario("s1").Name)
	assert.Contains(t, loaded.Scenario("s1").CharacterIDs, "char-pc")
	require.Len(t, loaded.ContextualOptions("char-pc"), 1)
}

func TestLoad_Missing(t *testing.T) {
	store := newTestStore(t)

	loaded, err := store.Load(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, loaded, "missing snapshot is not an error")
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, store.Save(ctx, id, world.NewState()))
	require.NoError(t, store.Delete(ctx, id))

	loaded, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestPing(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}
