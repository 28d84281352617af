/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package trivia holds the team/question model, the configuration store, the
// setup editor and the per-question countdown game loop.
package trivia

import (
	"errors"
	"time"
)

const (
	// Store keys for the two persisted lists.
	TeamsKey     = "challenge_teams"
	QuestionsKey = "challenge_questions"

	MaxTeams     = 4
	RoundSeconds = 30
	AdvanceDelay = 1500 * time.Millisecond
)

var (
	ErrInvalidState = errors.New("action not allowed right now")
	ErrNoQuestions  = errors.New("no questions loaded")
	ErrTimeUp       = errors.New("no time remaining on this question")
	ErrTeamLimit    = errors.New("maximum of 4 teams")
	ErrLastTeam     = errors.New("at least one team is required")
	ErrNotFound     = errors.New("no item with that id")
	ErrUnknownField = errors.New("unknown question field")
)

type Team struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type Question struct {
	ID     int64  `json:"id"`
	Text   string `json:"text"`
	Answer string `json:"answer"`
}

// Origin is where the confetti burst starts, as a fraction of the viewport.
type Origin struct {
	Y float64 `json:"y"`
}

// Celebration describes the confetti burst shown after a correct answer.
type Celebration struct {
	ParticleCount int      `json:"particle_count"`
	Spread        int      `json:"spread"`
	Origin        Origin   `json:"origin"`
	Colors        []string `json:"colors"`
}

// GoldBurst is fired on every correct judgement.
var GoldBurst = Celebration{
	ParticleCount: 100,
	Spread:        70,
	Origin:        Origin{Y: 0.6},
	Colors:        []string{"#fbbf24", "#f59e0b"},
}

// Celebrator receives fire-and-forget celebration effects.
type Celebrator interface {
	Celebrate(Celebration)
}

type CelebratorFunc func(Celebration)

func (f CelebratorFunc) Celebrate(c Celebration) { f(c) }

func DefaultTeams() []Team {
	return []Team{
		{ID: 1, Name: "Team One"},
		{ID: 2, Name: "Team Two"},
	}
}

func DefaultQuestions() []Question {
	return []Question{
		{ID: 1, Text: "What is the capital of Saudi Arabia?", Answer: "Riyadh"},
		{ID: 2, Text: "Who was the top scorer of the 2022 World Cup?", Answer: "Kylian Mbappé"},
		{ID: 3, Text: "How many colors are in a rainbow?", Answer: "7 colors"},
	}
}

func cloneTeams(teams []Team) []Team {
	out := make([]Team, len(teams))
	copy(out, teams)
	return out
}

func cloneQuestions(questions []Question) []Question {
	out := make([]Question, len(questions))
	copy(out, questions)
	return out
}
