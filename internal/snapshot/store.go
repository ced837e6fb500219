package snapshot

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwebster45206/story-client/pkg/world"
)

// Store persists world snapshots so a session can resume without paying
// for a full-state fetch. Load returns (nil, nil) when no snapshot exists.
type Store interface {
	Ping(ctx context.Context) error
	Save(ctx context.Context, id uuid.UUID, st *world.State) error
	Load(ctx context.Context, id uuid.UUID) (*world.State, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Close() error
}
