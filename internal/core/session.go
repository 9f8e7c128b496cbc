package core

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sweeper/internal/export"
	"github.com/JonMunkholm/sweeper/internal/ingest"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrFileNotFound    = errors.New("file not found in session")
	ErrNoArtifact      = errors.New("no export available")
)

// DefaultSessionTTL is how long an idle session is kept.
const DefaultSessionTTL = 30 * time.Minute

// UserInfo is the optional name and email entered on the upload page. It is
// displayed back to the user and never used in processing.
type UserInfo struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// StoredFile is an uploaded file plus the most recent pipeline run on it.
// Header holds the column names as uploaded, before any projection.
type StoredFile struct {
	ID      string
	File    ingest.File
	Header  []string
	Options Options
	Result  *Result
}

// Session groups the files of one upload.
type Session struct {
	ID       string
	User     UserInfo
	Files    []StoredFile
	Created  time.Time
	LastSeen time.Time
}

// File looks up a file by id.
func (s Session) File(id string) (StoredFile, bool) {
	for _, f := range s.Files {
		if f.ID == id {
			return f, true
		}
	}
	return StoredFile{}, false
}

// SessionStore keeps sessions in memory until they have been idle for ttl.
// Nothing is persisted; a restart drops every session.
type SessionStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create stores a new session. Files get fresh ids; their Result is kept.
func (st *SessionStore) Create(user UserInfo, files []StoredFile) Session {
	now := st.now()
	sess := &Session{
		ID:       uuid.NewString(),
		User:     user,
		Files:    make([]StoredFile, len(files)),
		Created:  now,
		LastSeen: now,
	}
	for i, f := range files {
		f.ID = uuid.NewString()
		sess.Files[i] = f
	}

	st.mu.Lock()
	st.sessions[sess.ID] = sess
	st.mu.Unlock()

	return sess.snapshot()
}

// Get returns a copy of the session and marks it as used.
func (st *SessionStore) Get(id string) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, err := st.live(id)
	if err != nil {
		return Session{}, err
	}
	sess.LastSeen = st.now()
	return sess.snapshot(), nil
}

// File returns one file of a session.
func (st *SessionStore) File(sessionID, fileID string) (StoredFile, error) {
	sess, err := st.Get(sessionID)
	if err != nil {
		return StoredFile{}, err
	}
	f, ok := sess.File(fileID)
	if !ok {
		return StoredFile{}, ErrFileNotFound
	}
	return f, nil
}

// SetResult records the latest run for a file, replacing the previous one.
func (st *SessionStore) SetResult(sessionID, fileID string, opts Options, res *Result) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, err := st.live(sessionID)
	if err != nil {
		return err
	}
	for i := range sess.Files {
		if sess.Files[i].ID == fileID {
			sess.Files[i].Options = opts
			sess.Files[i].Result = res
			sess.LastSeen = st.now()
			return nil
		}
	}
	return ErrFileNotFound
}

// Artifact returns the export from the latest run of a file.
func (st *SessionStore) Artifact(sessionID, fileID string) (*export.Artifact, error) {
	f, err := st.File(sessionID, fileID)
	if err != nil {
		return nil, err
	}
	if f.Result == nil || f.Result.Artifact == nil {
		return nil, ErrNoArtifact
	}
	return f.Result.Artifact, nil
}

// Delete drops a session and its files before it expires.
func (st *SessionStore) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, err := st.live(id); err != nil {
		return err
	}
	delete(st.sessions, id)
	return nil
}

func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep drops every expired session and returns how many were removed.
func (st *SessionStore) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	removed := 0
	for id, sess := range st.sessions {
		if st.expired(sess, now) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// live must be called with mu held.
func (st *SessionStore) live(id string) (*Session, error) {
	sess, ok := st.sessions[id]
	if !ok || st.expired(sess, st.now()) {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (st *SessionStore) expired(sess *Session, now time.Time) bool {
	return now.Sub(sess.LastSeen) > st.ttl
}

func (s *Session) snapshot() Session {
	cp := *s
	cp.Files = append([]StoredFile(nil), s.Files...)
	return cp
}
