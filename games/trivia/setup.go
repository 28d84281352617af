/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package trivia

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

type QuestionField string

const (
	FieldText   QuestionField = "text"
	FieldAnswer QuestionField = "answer"
)

// Editor holds working copies of the team and question lists until Save.
// It is not safe for concurrent use.
type Editor struct {
	clock     clockwork.Clock
	teams     []Team
	questions []Question
	lastID    int64
}

func NewEditor(teams []Team, questions []Question, clock clockwork.Clock) *Editor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	e := &Editor{
		clock:     clock,
		teams:     cloneTeams(teams),
		questions: cloneQuestions(questions),
	}

	for _, t := range e.teams {
		e.lastID = max(e.lastID, t.ID)
	}
	for _, q := range e.questions {
		e.lastID = max(e.lastID, q.ID)
	}

	return e
}

func LoadEditor(ctx context.Context, s Store, clock clockwork.Clock, logger zerolog.Logger) (*Editor, error) {
	teams, questions, err := LoadSetup(ctx, s, logger)
	if err != nil {
		return nil, err
	}

	return NewEditor(teams, questions, clock), nil
}

func (e *Editor) Teams() []Team         { return cloneTeams(e.teams) }
func (e *Editor) Questions() []Question { return cloneQuestions(e.questions) }

// nextID is millisecond-derived but always above every id handed out so far.
func (e *Editor) nextID() int64 {
	id := e.clock.Now().UnixMilli()
	if id <= e.lastID {
		id = e.lastID + 1
	}
	e.lastID = id

	return id
}

func (e *Editor) AddTeam() (Team, error) {
	if len(e.teams) >= MaxTeams {
		return Team{}, ErrTeamLimit
	}

	t := Team{
		ID:   e.nextID(),
		Name: fmt.Sprintf("Team %d", len(e.teams)+1),
	}
	e.teams = append(e.teams, t)

	return t, nil
}

func (e *Editor) RemoveTeam(id int64) error {
	if len(e.teams) <= 1 {
		return ErrLastTeam
	}

	for i, t := range e.teams {
		if t.ID == id {
			e.teams = append(e.teams[:i], e.teams[i+1:]...)
			return nil
		}
	}

	return ErrNotFound
}

func (e *Editor) RenameTeam(id int64, name string) error {
	for i := range e.teams {
		if e.teams[i].ID == id {
			e.teams[i].Name = name
			return nil
		}
	}

	return ErrNotFound
}

func (e *Editor) AddQuestion() Question {
	q := Question{ID: e.nextID()}
	e.questions = append(e.questions, q)

	return q
}

func (e *Editor) RemoveQuestion(id int64) error {
	for i, q := range e.questions {
		if q.ID == id {
			e.questions = append(e.questions[:i], e.questions[i+1:]...)
			return nil
		}
	}

	return ErrNotFound
}

func (e *Editor) EditQuestion(id int64, field QuestionField, value string) error {
	if field != FieldText && field != FieldAnswer {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	for i := range e.questions {
		if e.questions[i].ID != id {
			continue
		}

		switch field {
		case FieldText:
			e.questions[i].Text = value
		case FieldAnswer:
			e.questions[i].Answer = value
		}

		return nil
	}

	return ErrNotFound
}

// Save replaces both stored lists with the working copies.
func (e *Editor) Save(ctx context.Context, s Store) error {
	return SaveConfig(ctx, s, e.teams, e.questions)
}
