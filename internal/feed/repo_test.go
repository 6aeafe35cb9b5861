package feed

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shopwire/shopwire-backend/pkg/db/models"
	"github.com/shopwire/shopwire-backend/pkg/enums"
)

func setupFeedTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	feedEvents := `
CREATE TABLE IF NOT EXISTS feed_events (
  sequence INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  entity_id TEXT NOT NULL,
  payload TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(feedEvents).Error)
	require.NoError(t, db.Exec(`DELETE FROM feed_events;`).Error)
	require.NoError(t, db.Exec(`DELETE FROM sqlite_sequence WHERE name = 'feed_events';`).Error)
	return db
}

func appendEvent(t *testing.T, repo Repository, userID uuid.UUID, eventType enums.FeedEventType, created time.Time) *models.FeedEvent {
	t.Helper()

	event := &models.FeedEvent{
		UserID:    userID,
		EventType: eventType,
		EntityID:  uuid.New(),
		Payload:   json.RawMessage(`{"source":"test"}`),
		CreatedAt: created,
	}
	require.NoError(t, repo.Append(context.Background(), event))
	return event
}

func TestRepositoryAppendAssignsIncreasingSequences(t *testing.T) {
	db := setupFeedTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	first := appendEvent(t, repo, userID, enums.EventNotificationCreated, time.Now())
	second := appendEvent(t, repo, userID, enums.EventCartChanged, time.Now())
	third := appendEvent(t, repo, userID, enums.EventOrderCreated, time.Now())

	assert.Greater(t, first.Sequence, int64(0))
	assert.Greater(t, second.Sequence, first.Sequence)
	assert.Greater(t, third.Sequence, second.Sequence)
}

func TestRepositoryListSinceFiltersByUserAndFloor(t *testing.T) {
	db := setupFeedTestDB(t)
	repo := NewRepository(db)
	alice := uuid.New()
	bob := uuid.New()

	appendEvent(t, repo, alice, enums.EventNotificationCreated, time.Now())
	second := appendEvent(t, repo, alice, enums.EventCartChanged, time.Now())
	appendEvent(t, repo, bob, enums.EventOrderCreated, time.Now())
	third := appendEvent(t, repo, alice, enums.EventOrderUpdated, time.Now())

	events, err := repo.ListSince(context.Background(), alice, second.Sequence-1, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, second.Sequence, events[0].Sequence)
	assert.Equal(t, third.Sequence, events[1].Sequence)
	for _, event := range events {
		assert.Equal(t, alice, event.UserID)
	}
}

func TestRepositoryListSinceHonorsLimit(t *testing.T) {
	db := setupFeedTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	for i := 0; i < 5; i++ {
		appendEvent(t, repo, userID, enums.EventNotificationCreated, time.Now())
	}

	events, err := repo.ListSince(context.Background(), userID, 0, 3)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Less(t, events[0].Sequence, events[1].Sequence)
	assert.Less(t, events[1].Sequence, events[2].Sequence)
}

func TestRepositoryMaxSequence(t *testing.T) {
	db := setupFeedTestDB(t)
	repo := NewRepository(db)

	max, err := repo.MaxSequence(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), max)

	appendEvent(t, repo, uuid.New(), enums.EventNotificationCreated, time.Now())
	last := appendEvent(t, repo, uuid.New(), enums.EventOrderCreated, time.Now())

	max, err = repo.MaxSequence(context.Background())
	require.NoError(t, err)
	assert.Equal(t, last.Sequence, max)
}

func TestRepositoryDeleteOlderThanPreservesSequences(t *testing.T) {
	db := setupFeedTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	old := appendEvent(t, repo, userID, enums.EventNotificationCreated, time.Now().Add(-8*24*time.Hour))
	recent := appendEvent(t, repo, userID, enums.EventCartChanged, time.Now())

	deleted, err := repo.DeleteOlderThan(context.Background(), nil, time.Now().Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	events, err := repo.ListSince(context.Background(), userID, 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, recent.Sequence, events[0].Sequence)

	// Sequences of purged rows are never handed out again.
	next := appendEvent(t, repo, userID, enums.EventOrderCreated, time.Now())
	assert.Greater(t, next.Sequence, recent.Sequence)
	assert.NotEqual(t, old.Sequence, next.Sequence)
}
