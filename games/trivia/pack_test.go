/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package trivia

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePack = `teams:
  - Red
  - Blue
questions:
  - text: Largest planet?
    answer: Jupiter
  - text: Boiling point of water at sea level?
    answer: 100 °C
`

func TestReadPack(t *testing.T) {
	p, err := ReadPack(strings.NewReader(samplePack))
	require.NoError(t, err)

	teams, questions := p.Lists()
	assert.Equal(t, []Team{{ID: 1, Name: "Red"}, {ID: 2, Name: "Blue"}}, teams)
	assert.Equal(t, Question{ID: 2, Text: "Boiling point of water at sea level?", Answer: "100 °C"}, questions[1])

	_, err = ReadPack(strings.NewReader("rounds: 3\n"))
	assert.Error(t, err)

	p, err = ReadPack(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, p.Questions)
}

func TestImportExportPack(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	p, err := ReadPack(strings.NewReader(samplePack))
	require.NoError(t, err)
	require.NoError(t, ImportPack(ctx, s, p, zerolog.Nop()))

	g, err := LoadGame(ctx, s, Options{})
	require.NoError(t, err)
	assert.Len(t, g.Questions(), 2)
	assert.Equal(t, "Blue", g.Teams()[1].Name)

	exported, err := ExportPack(ctx, s, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, p, exported)

	var buf bytes.Buffer
	require.NoError(t, WritePack(&buf, exported))

	again, err := ReadPack(&buf)
	require.NoError(t, err)
	assert.Equal(t, p, again)
}

func TestImportPackKeepsTeams(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, SaveConfig(ctx, s, []Team{{ID: 9, Name: "Owls"}}, nil))
	require.NoError(t, ImportPack(ctx, s, Pack{Questions: []PackQuestion{{Text: "Q", Answer: "A"}}}, zerolog.Nop()))

	teams, questions, err := LoadSetup(ctx, s, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []Team{{ID: 9, Name: "Owls"}}, teams)
	assert.Equal(t, []Question{{ID: 1, Text: "Q", Answer: "A"}}, questions)
}

func TestImportPackTeamLimit(t *testing.T) {
	p := Pack{Teams: []string{"a", "b", "c", "d", "e"}}

	assert.ErrorIs(t, ImportPack(context.Background(), NewMemoryStore(), p, zerolog.Nop()), ErrTeamLimit)
}
