package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fair-bot/internal/dialog"
)

// StateStore хранит состояния диалога в таблице dialog_states.
// Временные данные лежат в колонке payload как JSON-объект.
type StateStore struct {
	q Querier
}

var _ dialog.StateStore = (*StateStore)(nil)

// NewStateStore создаёт хранилище состояний.
func NewStateStore(q Querier) *StateStore {
	return &StateStore{q: q}
}

func (s *StateStore) Load(ctx context.Context, key dialog.Key) (dialog.Session, bool, error) {
	var (
		state   string
		payload string
		updated int64
	)
	err := s.q.QueryRow(ctx, `
		SELECT state, payload, updated_at
		FROM dialog_states
		WHERE subject_id = $1 AND chat_id = $2
	`, key.SubjectID, key.ChatID).Scan(&state, &payload, &updated)
	if errors.Is(err, ErrNoRows) {
		return dialog.Session{}, false, nil
	}
	if err != nil {
		return dialog.Session{}, false, err
	}

	sess := dialog.Session{
		State:     dialog.State(state),
		Payload:   dialog.Payload{},
		UpdatedAt: time.Unix(updated, 0),
	}
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &sess.Payload); err != nil {
			return dialog.Session{}, false, fmt.Errorf("повреждённые данные диалога %d/%d: %w", key.SubjectID, key.ChatID, err)
		}
	}
	return sess, true, nil
}

func (s *StateStore) Save(ctx context.Context, key dialog.Key, sess dialog.Session) error {
	payload := sess.Payload
	if payload == nil {
		payload = dialog.Payload{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	updated := sess.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	_, err = s.q.Exec(ctx, `
		INSERT INTO dialog_states (subject_id, chat_id, state, payload, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (subject_id, chat_id) DO UPDATE
		SET state = excluded.state,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, key.SubjectID, key.ChatID, string(sess.State), string(raw), updated.Unix())
	return err
}

func (s *StateStore) Delete(ctx context.Context, key dialog.Key) error {
	_, err := s.q.Exec(ctx,
		"DELETE FROM dialog_states WHERE subject_id = $1 AND chat_id = $2", key.SubjectID, key.ChatID)
	return err
}

func (s *StateStore) DeleteSubject(ctx context.Context, subjectID int64) error {
	_, err := s.q.Exec(ctx, "DELETE FROM dialog_states WHERE subject_id = $1", subjectID)
	return err
}

func (s *StateStore) PurgeStale(ctx context.Context, before time.Time) (int64, error) {
	return s.q.Exec(ctx, "DELETE FROM dialog_states WHERE updated_at < $1", before.Unix())
}
