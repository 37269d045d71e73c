// Package player keeps one stream resolver per open player, scoped to the
// episode it was opened for.
//
// Every session carries a generation that is bumped whenever the episode
// changes. Error reports and retry timers tagged with an older generation
// are dropped, so a late failure from the previous episode can never move
// the new one to another mirror.
package player

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/tonton/internal/logger"
	"github.com/MrSnakeDoc/tonton/internal/stream"
)

var (
	ErrSessionNotFound = errors.New("player session not found")
	ErrStaleGeneration = errors.New("stale player generation")
	ErrEpisodeRequired = errors.New("episode is required")
	ErrManagerClosed   = errors.New("player manager closed")
)

// View is what clients see of a session.
type View struct {
	ID         string          `json:"id"`
	Episode    string          `json:"episode"`
	Generation uint64          `json:"generation"`
	Decision   stream.Decision `json:"decision"`
	Snapshot   stream.Snapshot `json:"snapshot"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

type session struct {
	mu sync.Mutex

	id         string
	episode    string
	generation uint64
	resolver   *stream.Resolver

	timer    *time.Timer
	timerSeq uint64

	lastSeen time.Time
	closed   bool
}

type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session
	closed   bool

	policy *stream.Policy
	cfg    stream.Config
	log    logger.Logger
	now    func() time.Time
}

func NewManager(policy *stream.Policy, cfg stream.Config, log logger.Logger) *Manager {
	if policy == nil {
		policy = stream.DefaultPolicy()
	}
	return &Manager{
		sessions: make(map[string]*session),
		policy:   policy,
		cfg:      cfg,
		log:      log.With(logger.String("component", "player")),
		now:      time.Now,
	}
}

// Policy returns the host policy shared by all sessions.
func (m *Manager) Policy() *stream.Policy { return m.policy }

// Open starts a session for episode and picks the first mirror.
func (m *Manager) Open(episode string, candidates []stream.Candidate) (View, error) {
	episode = strings.TrimSpace(episode)
	if episode == "" {
		return View{}, ErrEpisodeRequired
	}

	s := &session{
		id:         uuid.NewString(),
		episode:    episode,
		generation: 1,
		resolver:   stream.NewResolver(m.policy, m.cfg),
		lastSeen:   m.now(),
	}
	d := s.resolver.Init(candidates)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return View{}, ErrManagerClosed
	}
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.log.Debug("player session opened",
		logger.String("session", s.id),
		logger.String("episode", episode),
		logger.Int("candidates", len(candidates)),
		logger.String("state", string(d.State)),
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(), nil
}

// Switch moves a session to another episode. Pending retries of the previous
// episode are cancelled.
func (m *Manager) Switch(id, episode string, candidates []stream.Candidate) (View, error) {
	episode = strings.TrimSpace(episode)
	if episode == "" {
		return View{}, ErrEpisodeRequired
	}

	s, err := m.lookup(id)
	if err != nil {
		return View{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return View{}, ErrSessionNotFound
	}

	s.stopTimer()
	s.generation++
	s.episode = episode
	s.lastSeen = m.now()
	d := s.resolver.Init(candidates)

	m.log.Debug("player session switched",
		logger.String("session", s.id),
		logger.String("episode", episode),
		logger.Uint64("generation", s.generation),
		logger.String("state", string(d.State)),
	)
	return s.view(), nil
}

// ReportError feeds a playback failure into the session's resolver.
func (m *Manager) ReportError(id string, generation uint64) (View, error) {
	s, err := m.lookup(id)
	if err != nil {
		return View{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return View{}, ErrSessionNotFound
	}
	if generation != s.generation {
		return s.view(), ErrStaleGeneration
	}

	s.lastSeen = m.now()
	s.stopTimer()
	d := s.resolver.OnPlaybackError()

	switch d.State {
	case stream.StateRetrying:
		m.armRetry(s, d.RetryIn)
	case stream.StateFailed:
		m.log.Info("no working source",
			logger.String("session", s.id),
			logger.String("episode", s.episode),
			logger.String("failure", string(d.Failure)),
		)
	default:
		if d.Notice.Kind != stream.NoticeNone {
			m.log.Info("stream source switched",
				logger.String("session", s.id),
				logger.String("episode", s.episode),
				logger.String("message", d.Notice.Message),
			)
		}
	}

	return s.view(), nil
}

// Select is a manual mirror pick by the viewer.
func (m *Manager) Select(id string, generation uint64, c stream.Candidate) (View, error) {
	s, err := m.lookup(id)
	if err != nil {
		return View{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return View{}, ErrSessionNotFound
	}
	if generation != s.generation {
		return s.view(), ErrStaleGeneration
	}

	s.lastSeen = m.now()
	s.stopTimer()
	if _, err := s.resolver.SelectCandidate(c); err != nil {
		return s.view(), err
	}
	return s.view(), nil
}

// Get returns the session and counts as activity, so a player that only
// polls during a long episode is not swept as idle.
func (m *Manager) Get(id string) (View, error) {
	s, err := m.lookup(id)
	if err != nil {
		return View{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return View{}, ErrSessionNotFound
	}
	s.lastSeen = m.now()
	return s.view(), nil
}

// List returns every open session sorted by id.
func (m *Manager) List() []View {
	m.mu.RLock()
	all := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	out := make([]View, 0, len(all))
	for _, s := range all {
		s.mu.Lock()
		if !s.closed {
			out = append(out, s.view())
		}
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	s.close()
	s.mu.Unlock()
	return nil
}

// CloseAll stops every timer and refuses new sessions.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*session)
	m.closed = true
	m.mu.Unlock()

	for _, s := range all {
		s.mu.Lock()
		s.close()
		s.mu.Unlock()
	}
	if len(all) > 0 {
		m.log.Info("player sessions closed", logger.Int("count", len(all)))
	}
}

// SweepIdle closes sessions not touched within ttl and returns how many.
func (m *Manager) SweepIdle(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-ttl)

	m.mu.Lock()
	var idle []*session
	for id, s := range m.sessions {
		s.mu.Lock()
		if s.lastSeen.Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
		s.mu.Unlock()
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.mu.Lock()
		s.close()
		s.mu.Unlock()
	}
	return len(idle)
}

func (m *Manager) lookup(id string) (*session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// armRetry must be called with s.mu held.
func (m *Manager) armRetry(s *session, delay time.Duration) {
	s.timerSeq++
	gen, seq := s.generation, s.timerSeq

	s.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || s.generation != gen || s.timerSeq != seq {
			return
		}
		s.timer = nil
		s.resolver.RetryElapsed()
	})
}

func (s *session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerSeq++
}

func (s *session) close() {
	s.stopTimer()
	s.closed = true
}

func (s *session) view() View {
	return View{
		ID:         s.id,
		Episode:    s.episode,
		Generation: s.generation,
		Decision:   s.resolver.Current(),
		Snapshot:   s.resolver.Snapshot(),
		UpdatedAt:  s.lastSeen,
	}
}
