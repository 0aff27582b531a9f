package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrutov/leobot/internal/conversation"
	"github.com/mkrutov/leobot/internal/domain"
	"github.com/mkrutov/leobot/internal/logging"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	log := logging.New(nil, "silent")
	db, err := Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_InMemory(t *testing.T) {
	db := testDB(t)
	assert.NotNil(t, db)
	assert.NotNil(t, db.SQL())
}

func TestMigrations_Idempotent(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.migrate())

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestConversationStore_ImplementsInterface(t *testing.T) {
	var _ conversation.Store = NewSQLiteConversationStore(testDB(t))
}

func TestConversationStore_BeginOnce(t *testing.T) {
	s := NewSQLiteConversationStore(testDB(t))

	seed := []domain.Turn{
		{Role: domain.RoleSystem, Content: "persona"},
		{Role: domain.RoleAssistant, Content: "Привет, как дела?"},
	}
	require.True(t, s.Begin(123456789, seed))
	assert.False(t, s.Begin(123456789, seed), "second Begin must be a no-op")

	c, ok := s.Get(123456789)
	require.True(t, ok)
	assert.Equal(t, domain.StageAwaitingFirstReply, c.Stage)
	assert.Equal(t, 1, s.Count())
	assert.Len(t, s.History(123456789), 2, "losing Begin must not duplicate seed")
}

func TestConversationStore_AppendAndHistory(t *testing.T) {
	s := NewSQLiteConversationStore(testDB(t))
	s.Begin(1, []domain.Turn{{Role: domain.RoleSystem, Content: "sys"}})

	s.Append(1, domain.Turn{Role: domain.RoleUser, Content: "привет"})
	s.Append(1, domain.Turn{Role: domain.RoleAssistant, Content: "и тебе"})

	h := s.History(1)
	require.Len(t, h, 3)
	assert.Equal(t, domain.RoleSystem, h[0].Role)
	assert.Equal(t, "привет", h[1].Content)
	assert.Equal(t, "и тебе", h[2].Content)
}

func TestConversationStore_Advance(t *testing.T) {
	s := NewSQLiteConversationStore(testDB(t))
	s.Begin(1, nil)

	s.Advance(1, domain.StageActive)

	c, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, domain.StageActive, c.Stage)
}

func TestConversationStore_ExistsAndIdentities(t *testing.T) {
	s := NewSQLiteConversationStore(testDB(t))
	assert.False(t, s.Exists(1))

	s.Begin(1, nil)
	s.Begin(2, nil)

	assert.True(t, s.Exists(1))
	assert.ElementsMatch(t, []int64{1, 2}, s.Identities())
	assert.Equal(t, 2, s.Count())
}
