// Package session tracks one open exchange per player. Sessions are in-memory
// and live only while the exchange surface is open; the store is mutated from
// the host loop exclusively, so it carries no locking.
package session

// Session fixes the trade terms at creation. Required never changes even if
// the rate table is reloaded mid-session.
type Session struct {
	PlayerID string
	Mob      string
	Required int
}

type Store struct {
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

func (s *Store) Get(playerID string) (*Session, bool) {
	ses, ok := s.sessions[playerID]
	return ses, ok
}

// Put overwrites any existing entry without returning leftover items. Callers
// must cancel an open session first or its deposited items are lost.
func (s *Store) Put(playerID string, ses *Session) {
	s.sessions[playerID] = ses
}

func (s *Store) Remove(playerID string) {
	delete(s.sessions, playerID)
}

func (s *Store) Len() int { return len(s.sessions) }
