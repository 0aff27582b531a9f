package store

import (
	"time"

	"github.com/mkrutov/leobot/internal/domain"
)

// SQLiteConversationStore implements conversation.Store backed by SQLite,
// so conversations survive process restarts.
type SQLiteConversationStore struct {
	db *DB
}

// NewSQLiteConversationStore creates a conversation store using the given database.
func NewSQLiteConversationStore(db *DB) *SQLiteConversationStore {
	return &SQLiteConversationStore{db: db}
}

// Begin atomically creates state for identity seeded with the given turns.
// Returns false when a conversation already exists.
func (s *SQLiteConversationStore) Begin(identity int64, seed []domain.Turn) bool {
	tx, err := s.db.sql.Begin()
	if err != nil {
		s.db.log.Error().Err(err).Int64("identity", identity).Msg("begin conversation tx")
		return false
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO conversations (identity, stage, started_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(identity) DO NOTHING`,
		identity, string(domain.StageAwaitingFirstReply), time.Now().Format(time.DateTime),
	)
	if err != nil {
		s.db.log.Error().Err(err).Int64("identity", identity).Msg("failed to create conversation")
		return false
	}
	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		return false
	}

	for _, t := range seed {
		ts := t.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		if _, err := tx.Exec(
			`INSERT INTO turns (identity, role, content, timestamp) VALUES (?, ?, ?, ?)`,
			identity, t.Role, t.Content, ts.Format(time.DateTime),
		); err != nil {
			s.db.log.Error().Err(err).Int64("identity", identity).Msg("failed to seed history")
			return false
		}
	}

	if err := tx.Commit(); err != nil {
		s.db.log.Error().Err(err).Int64("identity", identity).Msg("commit conversation")
		return false
	}
	return true
}

// Exists reports whether a conversation exists for identity.
func (s *SQLiteConversationStore) Exists(identity int64) bool {
	var one int
	err := s.db.sql.QueryRow(
		`SELECT 1 FROM conversations WHERE identity = ?`, identity,
	).Scan(&one)
	return err == nil
}

// Get returns the conversation state for identity.
func (s *SQLiteConversationStore) Get(identity int64) (domain.Conversation, bool) {
	var c domain.Conversation
	var stage, startedAt string
	err := s.db.sql.QueryRow(
		`SELECT identity, stage, started_at FROM conversations WHERE identity = ?`, identity,
	).Scan(&c.Identity, &stage, &startedAt)
	if err != nil {
		return domain.Conversation{}, false
	}
	c.Stage = domain.Stage(stage)
	c.StartedAt, _ = time.Parse(time.DateTime, startedAt)
	return c, true
}

// Advance moves the conversation to the given stage.
func (s *SQLiteConversationStore) Advance(identity int64, stage domain.Stage) {
	if _, err := s.db.sql.Exec(
		`UPDATE conversations SET stage = ? WHERE identity = ?`, string(stage), identity,
	); err != nil {
		s.db.log.Error().Err(err).Int64("identity", identity).Msg("failed to advance stage")
	}
}

// Append adds a turn to the identity's dialogue history.
func (s *SQLiteConversationStore) Append(identity int64, turn domain.Turn) {
	ts := turn.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	if _, err := s.db.sql.Exec(
		`INSERT INTO turns (identity, role, content, timestamp) VALUES (?, ?, ?, ?)`,
		identity, turn.Role, turn.Content, ts.Format(time.DateTime),
	); err != nil {
		s.db.log.Error().Err(err).Int64("identity", identity).Msg("failed to append turn")
	}
}

// History returns the ordered dialogue history for identity.
func (s *SQLiteConversationStore) History(identity int64) []domain.Turn {
	rows, err := s.db.sql.Query(
		`SELECT role, content, timestamp FROM turns WHERE identity = ? ORDER BY id`, identity,
	)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var turns []domain.Turn
	for rows.Next() {
		var t domain.Turn
		var ts string
		if err := rows.Scan(&t.Role, &t.Content, &ts); err != nil {
			continue
		}
		t.Timestamp, _ = time.Parse(time.DateTime, ts)
		turns = append(turns, t)
	}
	return turns
}

// Identities returns all identities with a conversation.
func (s *SQLiteConversationStore) Identities() []int64 {
	rows, err := s.db.sql.Query(`SELECT identity FROM conversations ORDER BY started_at`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of conversations.
func (s *SQLiteConversationStore) Count() int {
	var n int
	if err := s.db.sql.QueryRow(`SELECT COUNT(*) FROM conversations`).Scan(&n); err != nil {
		return 0
	}
	return n
}
