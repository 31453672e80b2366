// Package session tracks whether the user is logged in. Consumers subscribe
// to transitions instead of polling a flag.
package session

import "sync"

type State int

const (
	LoggedOut State = iota
	LoggedIn
)

func (s State) String() string {
	if s == LoggedIn {
		return "logged in"
	}
	return "logged out"
}

// Snapshot is the session at one point in time. Username is the owner of
// the local notes and stays set after a forced logout so offline data keeps
// its owner.
type Snapshot struct {
	State    State
	Username string
}

// Session is safe for concurrent use.
type Session struct {
	mu      sync.Mutex
	current Snapshot
	subs    map[int]chan Snapshot
	nextID  int
}

func New() *Session {
	return &Session{subs: make(map[int]chan Snapshot)}
}

func (s *Session) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Username returns the owner of the local data.
func (s *Session) Username() string {
	return s.Current().Username
}

func (s *Session) IsLoggedIn() bool {
	return s.Current().State == LoggedIn
}

// Login moves to LoggedIn for username.
func (s *Session) Login(username string) {
	s.transition(Snapshot{State: LoggedIn, Username: username})
}

// Logout moves to LoggedOut, keeping the username.
func (s *Session) Logout() {
	s.mu.Lock()
	username := s.current.Username
	s.mu.Unlock()
	s.transition(Snapshot{State: LoggedOut, Username: username})
}

// Subscribe returns a channel that receives every state change. A slow
// subscriber only sees the latest snapshot. cancel closes the channel.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Snapshot, 1)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Session) transition(next Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == next {
		return
	}
	s.current = next
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- next
	}
}
