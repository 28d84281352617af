/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package trivia

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Store is an opaque key-value holder for the persisted lists. Get returns a
// nil slice and no error when the key has never been set.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[key]
	if !ok {
		return nil, nil
	}

	out := make([]byte, len(value))
	copy(out, value)

	return out, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	out := make([]byte, len(value))
	copy(out, value)

	m.mu.Lock()
	m.data[key] = out
	m.mu.Unlock()

	return nil
}

// teamRecord is the stored shape of a team; scores never persist.
type teamRecord struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// readList decodes the list under key. Missing and malformed values both
// report found == false.
func readList[T any](ctx context.Context, s Store, key string, logger zerolog.Logger) ([]T, bool, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", key, err)
	}
	if data == nil {
		return nil, false, nil
	}

	var list []T
	if err := json.Unmarshal(data, &list); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("ignoring malformed stored list")
		return nil, false, nil
	}

	return list, true, nil
}

func readTeams(ctx context.Context, s Store, logger zerolog.Logger) ([]Team, bool, error) {
	records, found, err := readList[teamRecord](ctx, s, TeamsKey, logger)
	if err != nil || !found {
		return nil, found, err
	}

	teams := make([]Team, 0, len(records))
	for _, r := range records {
		teams = append(teams, Team{ID: r.ID, Name: r.Name})
	}

	return teams, true, nil
}

// LoadOrDefault reads both lists for a new game. If either list is missing,
// malformed or empty, the built-in teams and questions are used instead.
func LoadOrDefault(ctx context.Context, s Store, logger zerolog.Logger) ([]Team, []Question, error) {
	teams, _, err := readTeams(ctx, s, logger)
	if err != nil {
		return nil, nil, err
	}

	questions, _, err := readList[Question](ctx, s, QuestionsKey, logger)
	if err != nil {
		return nil, nil, err
	}

	if len(teams) == 0 || len(questions) == 0 {
		logger.Debug().
			Int("teams", len(teams)).
			Int("questions", len(questions)).
			Msg("using built-in defaults")

		return DefaultTeams(), DefaultQuestions(), nil
	}

	return teams, questions, nil
}

// LoadSetup reads both lists for editing. Each key falls back to its default
// on its own, and a stored empty list is kept as-is.
func LoadSetup(ctx context.Context, s Store, logger zerolog.Logger) ([]Team, []Question, error) {
	teams, found, err := readTeams(ctx, s, logger)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		teams = DefaultTeams()
	}

	questions, found, err := readList[Question](ctx, s, QuestionsKey, logger)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		questions = DefaultQuestions()
	}

	if teams == nil {
		teams = []Team{}
	}
	if questions == nil {
		questions = []Question{}
	}

	return teams, questions, nil
}

// SaveConfig replaces both stored lists. The two writes are independent.
func SaveConfig(ctx context.Context, s Store, teams []Team, questions []Question) error {
	records := make([]teamRecord, 0, len(teams))
	for _, t := range teams {
		records = append(records, teamRecord{ID: t.ID, Name: t.Name})
	}

	if questions == nil {
		questions = []Question{}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	if err := s.Set(ctx, TeamsKey, data); err != nil {
		return fmt.Errorf("writing %s: %w", TeamsKey, err)
	}

	data, err = json.Marshal(questions)
	if err != nil {
		return err
	}
	if err := s.Set(ctx, QuestionsKey, data); err != nil {
		return fmt.Errorf("writing %s: %w", QuestionsKey, err)
	}

	return nil
}
