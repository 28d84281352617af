/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package trivia

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGame(t *testing.T, teams, questions int) (*Game, *clockwork.FakeClock) {
	t.Helper()

	ts := make([]Team, 0, teams)
	for i := 0; i < teams; i++ {
		ts = append(ts, Team{ID: int64(i + 1), Name: fmt.Sprintf("Team %d", i+1)})
	}

	qs := make([]Question, 0, questions)
	for i := 0; i < questions; i++ {
		qs = append(qs, Question{ID: int64(i + 1), Text: fmt.Sprintf("Q%d", i+1), Answer: fmt.Sprintf("A%d", i+1)})
	}

	clock := clockwork.NewFakeClock()

	return NewGame(ts, qs, Options{Clock: clock, Logger: zerolog.Nop()}), clock
}

func tick(t *testing.T, clock *clockwork.FakeClock, g *Game) {
	t.Helper()

	clock.Advance(time.Second)

	select {
	case <-g.Ticks():
		g.Tick()
	case <-time.After(time.Second):
		t.Fatal("countdown did not tick")
	}
}

func advance(t *testing.T, clock *clockwork.FakeClock, g *Game) {
	t.Helper()

	clock.Advance(AdvanceDelay)

	select {
	case <-g.Advances():
		g.Advance()
	case <-time.After(time.Second):
		t.Fatal("advance timer did not fire")
	}
}

func TestNewGameZeroesScores(t *testing.T) {
	g := NewGame([]Team{{ID: 1, Name: "A", Score: 7}}, DefaultQuestions(), Options{Clock: clockwork.NewFakeClock()})

	assert.Equal(t, 0, g.Teams()[0].Score)
	assert.Equal(t, StatusIdle, g.Status())
	assert.Equal(t, RoundSeconds, g.Remaining())
}

func TestStartPauseResume(t *testing.T) {
	g, clock := newTestGame(t, 2, 3)

	require.NoError(t, g.Start())
	assert.Equal(t, StatusRunning, g.Status())
	assert.ErrorIs(t, g.Start(), ErrInvalidState)

	tick(t, clock, g)
	tick(t, clock, g)
	assert.Equal(t, RoundSeconds-2, g.Remaining())

	require.NoError(t, g.Pause())
	assert.Equal(t, StatusPaused, g.Status())
	assert.Nil(t, g.Ticks())
	assert.ErrorIs(t, g.Pause(), ErrInvalidState)

	clock.Advance(5 * time.Second)
	assert.Equal(t, RoundSeconds-2, g.Remaining())

	require.NoError(t, g.Start())
	tick(t, clock, g)
	assert.Equal(t, RoundSeconds-3, g.Remaining())
}

func TestPauseFromIdleRejected(t *testing.T) {
	g, _ := newTestGame(t, 2, 1)

	assert.ErrorIs(t, g.Pause(), ErrInvalidState)
	assert.Equal(t, StatusIdle, g.Status())
}

func TestExpiryPausesWithoutJudging(t *testing.T) {
	g, clock := newTestGame(t, 2, 2)

	require.NoError(t, g.Start())
	for i := 0; i < RoundSeconds; i++ {
		tick(t, clock, g)
	}

	assert.Equal(t, 0, g.Remaining())
	assert.Equal(t, StatusPaused, g.Status())
	assert.Nil(t, g.Ticks())
	assert.Equal(t, 0, g.QuestionIndex())
	assert.ErrorIs(t, g.Start(), ErrTimeUp)

	// Stale ticks after expiry change nothing.
	g.Tick()
	assert.Equal(t, 0, g.Remaining())

	require.NoError(t, g.Judge(false))
	advance(t, clock, g)
	assert.Equal(t, 1, g.QuestionIndex())
	assert.Equal(t, RoundSeconds, g.Remaining())
}

func TestTickIgnoredUnlessRunning(t *testing.T) {
	g, _ := newTestGame(t, 2, 1)

	g.Tick()
	assert.Equal(t, RoundSeconds, g.Remaining())
}

func TestAnswerToggleIndependentOfTimer(t *testing.T) {
	g, clock := newTestGame(t, 2, 2)

	g.RevealAnswer()
	assert.True(t, g.AnswerShown())
	assert.Equal(t, "A1", g.Snapshot().Answer)
	assert.Equal(t, StatusIdle, g.Status())

	require.NoError(t, g.Start())
	g.HideAnswer()
	assert.False(t, g.AnswerShown())
	assert.Empty(t, g.Snapshot().Answer)

	g.ToggleAnswer()
	assert.True(t, g.AnswerShown())

	tick(t, clock, g)
	assert.Equal(t, StatusRunning, g.Status())
	assert.Equal(t, RoundSeconds-1, g.Remaining())
}

func TestJudgeStopsCountdownAndScores(t *testing.T) {
	var celebrations []Celebration

	g, clock := newTestGame(t, 2, 3)
	g.celebrate = CelebratorFunc(func(c Celebration) {
		celebrations = append(celebrations, c)
	})

	require.NoError(t, g.Start())
	tick(t, clock, g)

	require.NoError(t, g.Judge(true))
	assert.Equal(t, StatusJudging, g.Status())
	assert.Nil(t, g.Ticks())
	assert.Equal(t, 1, g.Teams()[0].Score)
	assert.Equal(t, 0, g.Teams()[1].Score)
	require.Len(t, celebrations, 1)
	assert.Equal(t, GoldBurst, celebrations[0])

	assert.ErrorIs(t, g.Judge(true), ErrInvalidState)
	assert.ErrorIs(t, g.Start(), ErrInvalidState)
	assert.Equal(t, 1, g.Teams()[0].Score)

	clock.Advance(AdvanceDelay - time.Millisecond)
	select {
	case <-g.Advances():
		t.Fatal("advanced before the delay elapsed")
	default:
	}

	clock.Advance(time.Millisecond)
	<-g.Advances()
	g.Advance()

	assert.Equal(t, StatusIdle, g.Status())
	assert.Equal(t, 1, g.QuestionIndex())
	assert.Equal(t, 1, g.TeamIndex())
	assert.Equal(t, RoundSeconds, g.Remaining())
	assert.False(t, g.AnswerShown())
	assert.Nil(t, g.Advances())

	require.NoError(t, g.Judge(false))
	assert.Len(t, celebrations, 1)
	assert.Equal(t, 0, g.Teams()[1].Score)
}

func TestTurnOrderIsRoundRobin(t *testing.T) {
	for teams := 1; teams <= MaxTeams; teams++ {
		t.Run(fmt.Sprintf("%d teams", teams), func(t *testing.T) {
			const questions = 9

			g, clock := newTestGame(t, teams, questions)
			correct := 0

			for q := 0; q < questions; q++ {
				assert.Equal(t, q, g.QuestionIndex())
				assert.Equal(t, q%teams, g.TeamIndex())

				before := g.Teams()
				verdict := q%3 != 1
				require.NoError(t, g.Judge(verdict))

				after := g.Teams()
				changed := 0
				for i := range after {
					diff := after[i].Score - before[i].Score
					if diff != 0 {
						changed++
						assert.Equal(t, 1, diff)
						assert.Equal(t, g.TeamIndex(), i)
					}
				}

				if verdict {
					correct++
					assert.Equal(t, 1, changed)
				} else {
					assert.Equal(t, 0, changed)
				}

				advance(t, clock, g)
			}

			total := 0
			for _, team := range g.Teams() {
				total += team.Score
			}

			assert.Equal(t, correct, total)
			assert.Equal(t, StatusFinished, g.Status())
		})
	}
}

func TestSingleQuestionGameFinishes(t *testing.T) {
	g, clock := newTestGame(t, 2, 1)

	require.NoError(t, g.Start())
	require.NoError(t, g.Judge(true))
	advance(t, clock, g)

	assert.Equal(t, StatusFinished, g.Status())
	assert.ErrorIs(t, g.Judge(true), ErrInvalidState)

	res, err := g.Result()
	require.NoError(t, err)
	assert.False(t, res.Tie)
	assert.Equal(t, int64(1), res.Winner.ID)
	assert.Equal(t, 1, res.Teams[0].Score)
	assert.Equal(t, 0, res.Teams[1].Score)

	snap := g.Snapshot()
	require.NotNil(t, snap.Result)
	assert.Equal(t, "Team 1", snap.Result.Winner.Name)
}

func TestResultRequiresFinished(t *testing.T) {
	g, _ := newTestGame(t, 2, 1)

	_, err := g.Result()
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestDecideWinner(t *testing.T) {
	tests := []struct {
		description string
		scores      []int
		tie         bool
		winnerID    int64
	}{
		{"two teams level", []int{5, 5}, true, 1},
		{"clear winner", []int{5, 3}, false, 1},
		{"two leaders out of three", []int{5, 5, 3}, false, 1},
		{"everyone level", []int{5, 5, 5}, true, 1},
		{"split leaders", []int{5, 3, 5}, false, 1},
		{"leader last", []int{3, 2, 5}, false, 3},
		{"all zero", []int{0, 0, 0, 0}, true, 1},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			teams := make([]Team, 0, len(tc.scores))
			for i, s := range tc.scores {
				teams = append(teams, Team{ID: int64(i + 1), Score: s})
			}

			res := DecideWinner(teams)
			assert.Equal(t, tc.tie, res.Tie)
			assert.Equal(t, tc.winnerID, res.Winner.ID)
			assert.Equal(t, teams, res.Teams)
		})
	}
}

func TestRestart(t *testing.T) {
	g, clock := newTestGame(t, 3, 2)

	assert.ErrorIs(t, g.Restart(), ErrInvalidState)

	for i := 0; i < 2; i++ {
		require.NoError(t, g.Judge(true))
		advance(t, clock, g)
	}
	g.RevealAnswer()
	require.Equal(t, StatusFinished, g.Status())

	require.NoError(t, g.Restart())
	assert.Equal(t, StatusIdle, g.Status())
	assert.Equal(t, 0, g.QuestionIndex())
	assert.Equal(t, 0, g.TeamIndex())
	assert.Equal(t, RoundSeconds, g.Remaining())
	assert.False(t, g.AnswerShown())
	assert.Nil(t, g.Ticks())
	for _, team := range g.Teams() {
		assert.Equal(t, 0, team.Score)
	}
	assert.Len(t, g.Questions(), 2)
}

func TestAutoStart(t *testing.T) {
	clock := clockwork.NewFakeClock()
	g := NewGame(DefaultTeams(), DefaultQuestions(), Options{Clock: clock, AutoStart: true})

	require.NoError(t, g.Judge(false))
	advance(t, clock, g)

	assert.Equal(t, StatusRunning, g.Status())
	tick(t, clock, g)
	assert.Equal(t, RoundSeconds-1, g.Remaining())
}

func TestEmptyGameNeverProgresses(t *testing.T) {
	g, _ := newTestGame(t, 2, 0)

	assert.True(t, g.Empty())
	assert.ErrorIs(t, g.Start(), ErrNoQuestions)
	assert.ErrorIs(t, g.Judge(true), ErrNoQuestions)
	assert.Nil(t, g.Ticks())
	assert.Nil(t, g.Advances())

	snap := g.Snapshot()
	assert.True(t, snap.Empty)
	assert.Equal(t, 0, snap.QuestionNumber)
	assert.Equal(t, StatusIdle, snap.Status)
}

func TestCloseReleasesTimers(t *testing.T) {
	g, clock := newTestGame(t, 2, 2)

	require.NoError(t, g.Start())
	g.Close()

	assert.Nil(t, g.Ticks())
	assert.Equal(t, StatusPaused, g.Status())
	assert.ErrorIs(t, g.Start(), ErrInvalidState)

	g2, _ := newTestGame(t, 2, 2)
	require.NoError(t, g2.Judge(true))
	g2.Close()
	assert.Nil(t, g2.Advances())

	clock.Advance(time.Minute)
	assert.Equal(t, RoundSeconds, g.Remaining())
}

func TestLoadGameFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, TeamsKey, []byte(`[{"id":7,"name":"Solo","score":12}]`)))
	require.NoError(t, store.Set(ctx, QuestionsKey, []byte(`[]`)))

	g, err := LoadGame(ctx, store, Options{Clock: clockwork.NewFakeClock()})
	require.NoError(t, err)
	assert.Equal(t, DefaultTeams(), g.Teams())
	assert.Equal(t, DefaultQuestions(), g.Questions())

	require.NoError(t, store.Set(ctx, QuestionsKey, []byte(`[{"id":3,"text":"Q","answer":"A"}]`)))

	g, err = LoadGame(ctx, store, Options{Clock: clockwork.NewFakeClock()})
	require.NoError(t, err)
	assert.Equal(t, []Team{{ID: 7, Name: "Solo"}}, g.Teams())
	assert.Equal(t, []Question{{ID: 3, Text: "Q", Answer: "A"}}, g.Questions())
}

func TestStatusText(t *testing.T) {
	text, err := StatusJudging.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "judging", string(text))
	assert.Equal(t, "unknown", Status(42).String())
}
