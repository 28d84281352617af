/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package trivia

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Pack is a portable YAML question pack:
//
//	teams: [Red, Blue]
//	questions:
//	  - text: How many colors are in a rainbow?
//	    answer: 7 colors
type Pack struct {
	Teams     []string       `yaml:"teams,omitempty"`
	Questions []PackQuestion `yaml:"questions"`
}

type PackQuestion struct {
	Text   string `yaml:"text"`
	Answer string `yaml:"answer"`
}

func ReadPack(r io.Reader) (Pack, error) {
	var p Pack

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&p); err != nil && err != io.EOF {
		return Pack{}, fmt.Errorf("decoding pack: %w", err)
	}

	return p, nil
}

func WritePack(w io.Writer, p Pack) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(p); err != nil {
		return err
	}

	return enc.Close()
}

func NewPack(teams []Team, questions []Question) Pack {
	p := Pack{
		Teams:     make([]string, 0, len(teams)),
		Questions: make([]PackQuestion, 0, len(questions)),
	}

	for _, t := range teams {
		p.Teams = append(p.Teams, t.Name)
	}
	for _, q := range questions {
		p.Questions = append(p.Questions, PackQuestion{Text: q.Text, Answer: q.Answer})
	}

	return p
}

// Lists numbers teams and questions from 1 in pack order.
func (p Pack) Lists() ([]Team, []Question) {
	teams := make([]Team, 0, len(p.Teams))
	for i, name := range p.Teams {
		teams = append(teams, Team{ID: int64(i + 1), Name: name})
	}

	questions := make([]Question, 0, len(p.Questions))
	for i, q := range p.Questions {
		questions = append(questions, Question{ID: int64(i + 1), Text: q.Text, Answer: q.Answer})
	}

	return teams, questions
}

// ImportPack writes a pack to the store. A pack without teams keeps the
// stored teams.
func ImportPack(ctx context.Context, s Store, p Pack, logger zerolog.Logger) error {
	if len(p.Teams) > MaxTeams {
		return ErrTeamLimit
	}

	teams, questions := p.Lists()

	if len(teams) == 0 {
		current, _, err := LoadSetup(ctx, s, logger)
		if err != nil {
			return err
		}
		teams = current
	}

	return SaveConfig(ctx, s, teams, questions)
}

func ExportPack(ctx context.Context, s Store, logger zerolog.Logger) (Pack, error) {
	teams, questions, err := LoadSetup(ctx, s, logger)
	if err != nil {
		return Pack{}, err
	}

	return NewPack(teams, questions), nil
}
