/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package trivia

import (
	"context"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusPaused
	StatusJudging
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusJudging:
		return "judging"
	case StatusFinished:
		return "finished"
	}

	return "unknown"
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Options struct {
	Clock      clockwork.Clock
	Logger     zerolog.Logger
	Celebrator Celebrator

	// AutoStart restarts the countdown as soon as the next question is shown.
	AutoStart bool
}

// Result is the outcome of a finished game. Tie is only set when every team
// has the winning score.
type Result struct {
	Winner Team   `json:"winner"`
	Tie    bool   `json:"tie"`
	Teams  []Team `json:"teams"`
}

// Snapshot is what clients render.
type Snapshot struct {
	Status         Status  `json:"status"`
	Empty          bool    `json:"empty"`
	Teams          []Team  `json:"teams"`
	CurrentTeam    int     `json:"current_team"`
	QuestionNumber int     `json:"question_number"`
	QuestionCount  int     `json:"question_count"`
	Question       string  `json:"question,omitempty"`
	Answer         string  `json:"answer,omitempty"`
	AnswerShown    bool    `json:"answer_shown"`
	Remaining      int     `json:"remaining"`
	Result         *Result `json:"result,omitempty"`
}

// Game runs one round over a fixed list of questions. It is not safe for
// concurrent use: a single goroutine must call every method, including Tick
// and Advance when Ticks and Advances fire.
type Game struct {
	clock     clockwork.Clock
	logger    zerolog.Logger
	celebrate Celebrator
	autoStart bool

	teams     []Team
	questions []Question

	questionIndex int
	teamIndex     int
	remaining     int
	status        Status
	showAnswer    bool
	closed        bool

	countdown *Countdown
	advance   clockwork.Timer
}

func NewGame(teams []Team, questions []Question, opts Options) *Game {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	if len(teams) == 0 {
		teams = DefaultTeams()
	}

	g := &Game{
		clock:     opts.Clock,
		logger:    opts.Logger,
		celebrate: opts.Celebrator,
		autoStart: opts.AutoStart,
		teams:     cloneTeams(teams),
		questions: cloneQuestions(questions),
		remaining: RoundSeconds,
	}

	for i := range g.teams {
		g.teams[i].Score = 0
	}

	return g
}

// LoadGame reads the lists once, applying the load-or-default policy.
func LoadGame(ctx context.Context, s Store, opts Options) (*Game, error) {
	teams, questions, err := LoadOrDefault(ctx, s, opts.Logger)
	if err != nil {
		return nil, err
	}

	return NewGame(teams, questions, opts), nil
}

func (g *Game) Status() Status        { return g.status }
func (g *Game) Remaining() int        { return g.remaining }
func (g *Game) QuestionIndex() int    { return g.questionIndex }
func (g *Game) TeamIndex() int        { return g.teamIndex }
func (g *Game) AnswerShown() bool     { return g.showAnswer }
func (g *Game) Teams() []Team         { return cloneTeams(g.teams) }
func (g *Game) Questions() []Question { return cloneQuestions(g.questions) }

// Empty reports a game with nothing to ask. Such a game never progresses.
func (g *Game) Empty() bool {
	return len(g.questions) == 0
}

// Ticks fires once per second while the countdown runs, and is nil otherwise.
func (g *Game) Ticks() <-chan time.Time {
	return g.countdown.C()
}

// Advances fires once the post-judgement delay elapses, and is nil otherwise.
func (g *Game) Advances() <-chan time.Time {
	if g.advance == nil {
		return nil
	}

	return g.advance.Chan()
}

func (g *Game) Start() error {
	switch {
	case g.closed:
		return ErrInvalidState
	case g.Empty():
		return ErrNoQuestions
	case g.status != StatusIdle && g.status != StatusPaused:
		return ErrInvalidState
	case g.remaining <= 0:
		return ErrTimeUp
	}

	g.startCountdown()

	return nil
}

func (g *Game) startCountdown() {
	g.countdown.Stop()
	g.countdown = startCountdown(g.clock)
	g.status = StatusRunning
}

func (g *Game) Pause() error {
	if g.status != StatusRunning {
		return ErrInvalidState
	}

	g.stopCountdown()
	g.status = StatusPaused

	return nil
}

func (g *Game) stopCountdown() {
	g.countdown.Stop()
	g.countdown = nil
}

// Tick applies one elapsed second. Ticks arriving outside StatusRunning are
// dropped.
func (g *Game) Tick() {
	if g.status != StatusRunning {
		return
	}

	if g.remaining > 0 {
		g.remaining--
	}

	if g.remaining == 0 {
		g.stopCountdown()
		g.status = StatusPaused

		g.logger.Debug().
			Int("question", g.questionIndex+1).
			Str("team", g.teams[g.teamIndex].Name).
			Msg("time is up")
	}
}

func (g *Game) RevealAnswer() { g.showAnswer = true }
func (g *Game) HideAnswer()   { g.showAnswer = false }
func (g *Game) ToggleAnswer() { g.showAnswer = !g.showAnswer }

// Judge records the operator's verdict for the current team and arms the
// delay before the next question.
func (g *Game) Judge(correct bool) error {
	switch {
	case g.closed:
		return ErrInvalidState
	case g.Empty():
		return ErrNoQuestions
	case g.status == StatusFinished, g.status == StatusJudging:
		return ErrInvalidState
	}

	g.stopCountdown()

	team := &g.teams[g.teamIndex]
	if correct {
		team.Score++

		if g.celebrate != nil {
			g.celebrate.Celebrate(GoldBurst)
		}
	}

	g.logger.Debug().
		Int("question", g.questionIndex+1).
		Str("team", team.Name).
		Bool("correct", correct).
		Int("score", team.Score).
		Msg("judged")

	g.status = StatusJudging
	g.advance = g.clock.NewTimer(AdvanceDelay)

	return nil
}

// Advance moves to the next question and team, or finishes the game.
func (g *Game) Advance() {
	if g.status != StatusJudging {
		return
	}

	g.stopAdvance()

	if g.questionIndex >= len(g.questions)-1 {
		g.status = StatusFinished

		return
	}

	g.questionIndex++
	g.teamIndex = (g.teamIndex + 1) % len(g.teams)
	g.remaining = RoundSeconds
	g.showAnswer = false
	g.status = StatusIdle

	if g.autoStart {
		g.startCountdown()
	}
}

func (g *Game) stopAdvance() {
	if g.advance == nil {
		return
	}

	stopAndDrainTimer(g.advance)
	g.advance = nil
}

func (g *Game) Result() (Result, error) {
	if g.status != StatusFinished {
		return Result{}, ErrInvalidState
	}

	return DecideWinner(g.teams), nil
}

// DecideWinner ranks teams by score, keeping team order among equal scores.
func DecideWinner(teams []Team) Result {
	ranked := cloneTeams(teams)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	res := Result{Teams: cloneTeams(teams)}
	if len(ranked) == 0 {
		return res
	}

	res.Winner = ranked[0]
	res.Tie = true

	for _, t := range teams {
		if t.Score != res.Winner.Score {
			res.Tie = false
			break
		}
	}

	return res
}

func (g *Game) Restart() error {
	if g.closed || g.status != StatusFinished {
		return ErrInvalidState
	}

	g.stopCountdown()
	g.stopAdvance()

	g.questionIndex = 0
	g.teamIndex = 0
	g.remaining = RoundSeconds
	g.showAnswer = false
	g.status = StatusIdle

	for i := range g.teams {
		g.teams[i].Score = 0
	}

	return nil
}

// Close releases the countdown and any pending advance. A closed game
// accepts no further actions.
func (g *Game) Close() {
	g.stopCountdown()
	g.stopAdvance()
	g.closed = true

	if g.status == StatusRunning || g.status == StatusJudging {
		g.status = StatusPaused
	}
}

func (g *Game) Snapshot() Snapshot {
	snap := Snapshot{
		Status:        g.status,
		Empty:         g.Empty(),
		Teams:         cloneTeams(g.teams),
		CurrentTeam:   g.teamIndex,
		QuestionCount: len(g.questions),
		AnswerShown:   g.showAnswer,
		Remaining:     g.remaining,
	}

	if !snap.Empty {
		q := g.questions[g.questionIndex]
		snap.QuestionNumber = g.questionIndex + 1
		snap.Question = q.Text

		if g.showAnswer {
			snap.Answer = q.Answer
		}
	}

	if g.status == StatusFinished {
		res := DecideWinner(g.teams)
		snap.Result = &res
	}

	return snap
}
