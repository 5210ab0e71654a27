package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
)

type Config struct {
	ContextWindow   int     `envconfig:"CONTEXT_WINDOW" split_words:"true" default:"10"`
	SuggestionDedup int     `envconfig:"SUGGESTION_DEDUP" split_words:"true" default:"5"`
	Decay           float64 `envconfig:"DECAY" split_words:"true" default:"0.9"`
}

var ErrStaleTurn = errors.New("turn is older than the last appended turn")

// Store owns all per-user conversation state. Mutation for a given user
// is serialized behind that user's lock; reads may run concurrently.
type Store struct {
	persist contractx.ProfileStore
	archive contractx.TurnArchive
	cfg     Config

	mu    sync.RWMutex
	users map[string]*userState

	// Aggregate entity mention counts across all users, for trending
	// follow-up scoring.
	mentionsMu sync.Mutex
	mentions   map[string]int
}

// userState is everything the store tracks for one user. Guarded by its
// own mutex so writers for different users never contend.
type userState struct {
	mu      sync.Mutex
	profile *contractx.UserProfile
	turns   []contractx.ConversationTurn // ring, newest last
	shown   []string                     // recent suggestion texts, newest last
}

func NewStore(persist contractx.ProfileStore, archive contractx.TurnArchive, cfg Config) *Store {
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = 10
	}
	if cfg.SuggestionDedup <= 0 {
		cfg.SuggestionDedup = 5
	}
	if cfg.Decay <= 0 || cfg.Decay >= 1 {
		cfg.Decay = 0.9
	}
	return &Store{
		persist:  persist,
		archive:  archive,
		cfg:      cfg,
		users:    make(map[string]*userState, 64),
		mentions: make(map[string]int, 128),
	}
}

func (s *Store) user(userID string) *userState {
	s.mu.RLock()
	st, ok := s.users[userID]
	s.mu.RUnlock()
	if ok {
		return st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok = s.users[userID]; ok {
		return st
	}
	st = &userState{}
	s.users[userID] = st
	return st
}

// Profile returns a copy of the user's profile, loading it from the
// persistence layer on first access. A missing persisted profile starts
// fresh; a persistence failure degrades to a fresh profile rather than
// failing the query.
func (s *Store) Profile(ctx context.Context, userID string) *contractx.UserProfile {
	st := s.user(userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.profile == nil {
		st.profile = s.loadLocked(ctx, userID)
	}
	return st.profile.Clone()
}

func (s *Store) loadLocked(ctx context.Context, userID string) *contractx.UserProfile {
	if s.persist == nil {
		return contractx.NewUserProfile(userID)
	}
	profile, err := s.persist.Load(ctx, userID)
	switch {
	case err == nil && profile != nil:
		return profile
	case errors.Is(err, contractx.ErrProfileNotFound):
	case err != nil:
		log.Warn().Err(err).Str("user_id", userID).Msg("profile load failed, starting fresh")
	}
	return contractx.NewUserProfile(userID)
}

// RecentTurns returns up to limit most recent turns, oldest first.
func (s *Store) RecentTurns(userID string, limit int) []contractx.ConversationTurn {
	st := s.user(userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	turns := st.turns
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return append([]contractx.ConversationTurn(nil), turns...)
}

// RecentSuggestions returns the dedupe window of suggestion texts last
// shown to the user.
func (s *Store) RecentSuggestions(userID string) []string {
	st := s.user(userID)
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]string(nil), st.shown...)
}

// RecordSuggestions appends the texts shown with the latest response,
// keeping only the dedupe window.
func (s *Store) RecordSuggestions(userID string, suggestions []contractx.Suggestion) {
	if len(suggestions) == 0 {
		return
	}
	st := s.user(userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	for _, sg := range suggestions {
		st.shown = append(st.shown, sg.Text)
	}
	if excess := len(st.shown) - s.cfg.SuggestionDedup; excess > 0 {
		st.shown = append([]string(nil), st.shown[excess:]...)
	}
}

// Append records a completed turn: ring-buffer insert, profile update,
// persistence, and optional long-term archival. The profile update is
// computed on a copy and only installed once complete, so a cancelled
// query never leaves a half-applied profile behind.
func (s *Store) Append(ctx context.Context, turn contractx.ConversationTurn) error {
	userID := turn.Query.UserID
	st := s.user(userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	// Turn timestamps are strictly increasing per user.
	if n := len(st.turns); n > 0 && !turn.Timestamp.After(st.turns[n-1].Timestamp) {
		return fmt.Errorf("%w: user_id=%s", ErrStaleTurn, userID)
	}

	if st.profile == nil {
		st.profile = s.loadLocked(ctx, userID)
	}
	updated := st.profile.Clone()
	applyTurn(updated, turn, s.cfg.Decay)
	st.profile = updated

	st.turns = append(st.turns, turn)
	if excess := len(st.turns) - s.cfg.ContextWindow; excess > 0 {
		st.turns = append([]contractx.ConversationTurn(nil), st.turns[excess:]...)
	}

	s.mentionsMu.Lock()
	for _, kind := range contractx.EntityKinds {
		for _, value := range turn.Intent.Entities[kind] {
			s.mentions[value]++
		}
	}
	s.mentionsMu.Unlock()

	if s.persist != nil {
		if err := s.persist.Save(ctx, updated); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("profile save failed")
		}
	}
	if s.archive != nil {
		if err := s.archive.Archive(ctx, turn); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("turn archive failed")
		}
	}
	return nil
}

// Mentions returns how often the entity value has come up across all
// users.
func (s *Store) Mentions(value string) int {
	s.mentionsMu.Lock()
	defer s.mentionsMu.Unlock()
	return s.mentions[value]
}
