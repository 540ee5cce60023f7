package dialog

import (
	"context"
	"sync"
	"time"
)

// StateStore — хранилище состояний диалога по ключу (subject, chat).
// Запись состояния не обязана быть атомарной с операциями ledger.
type StateStore interface {
	// Load возвращает сессию; false — сессии нет.
	Load(ctx context.Context, key Key) (Session, bool, error)
	Save(ctx context.Context, key Key, s Session) error
	Delete(ctx context.Context, key Key) error
	// DeleteSubject стирает состояния subject во всех чатах.
	DeleteSubject(ctx context.Context, subjectID int64) error
	// PurgeStale удаляет сессии, не менявшиеся с момента before.
	PurgeStale(ctx context.Context, before time.Time) (int64, error)
}

// MemoryStore хранит состояния в памяти процесса.
// Подходит для одного экземпляра бота и для тестов.
type MemoryStore struct {
	sessions map[Key]Session
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore создаёт хранилище. ttl <= 0 — сессии не истекают.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[Key]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) Load(_ context.Context, key Key) (Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[key]
	if !ok {
		return Session{}, false, nil
	}
	// Истекшие не возвращаем, удалит PurgeStale
	if s.ttl > 0 && s.now().Sub(sess.UpdatedAt) > s.ttl {
		return Session{}, false, nil
	}
	sess.Payload = sess.Payload.Clone()
	return sess, true, nil
}

func (s *MemoryStore) Save(_ context.Context, key Key, sess Session) error {
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = s.now()
	}
	sess.Payload = sess.Payload.Clone()

	s.mu.Lock()
	s.sessions[key] = sess
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key Key) error {
	s.mu.Lock()
	delete(s.sessions, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) DeleteSubject(_ context.Context, subjectID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.sessions {
		if key.SubjectID == subjectID {
			delete(s.sessions, key)
		}
	}
	return nil
}

func (s *MemoryStore) PurgeStale(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for key, sess := range s.sessions {
		if sess.UpdatedAt.Before(before) {
			delete(s.sessions, key)
			purged++
		}
	}
	return purged, nil
}
