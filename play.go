package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/robalobadob/vocab-jumble/internal/config"
	"github.com/robalobadob/vocab-jumble/internal/game"
	"github.com/robalobadob/vocab-jumble/internal/jumble"
	"github.com/robalobadob/vocab-jumble/internal/vocab"
)

// errQuit ends a terminal game early.
var errQuit = errors.New("quit")

// prompter asks the player for the next word.
type prompter interface {
	Ask(ctx context.Context, message string) (string, error)
}

type surveyPrompter struct{}

func (surveyPrompter) Ask(ctx context.Context, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	prompt := &survey.Input{
		Message: message,
		Help:    "Type a word from the list, or leave it empty to give up.",
	}
	if err := survey.AskOne(prompt, &out); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return "", errQuit
		}
		return "", err
	}
	return out, nil
}

func play(ctx context.Context, cfg *config.Config, p prompter, out io.Writer) error {
	v := loadVocab(cfg)
	st, err := game.Start(v, cfg.SuccessAtCount, jumble.Generator{Compact: cfg.CompactJumble})
	if err != nil {
		return err
	}
	_, err = playLoop(ctx, v, st, p, out)
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}

// playLoop prompts until the target is reached, the player gives up with an
// empty answer, or the prompt fails. It returns the final state.
func playLoop(ctx context.Context, v *vocab.Vocab, st game.State, p prompter, out io.Writer) (game.State, error) {
	fmt.Fprintf(out, "Vocabulary: %s\n", strings.Join(game.ListVocabulary(v), ", "))
	fmt.Fprintf(out, "Find %d words in: %s\n", st.Target, st.Jumble)

	for !st.Complete() {
		answer, err := p.Ask(ctx, fmt.Sprintf("[%d/%d] word:", len(st.Matches), st.Target))
		if err != nil {
			return st, err
		}
		if strings.TrimSpace(answer) == "" {
			fmt.Fprintln(out, "Giving up.")
			return st, errQuit
		}

		var res game.Result
		st, res = game.Check(v, st, answer)
		switch {
		case res.IsNewMatch:
			fmt.Fprintf(out, "  found %q\n", res.Match)
		case slices.Contains(st.Matches, res.Match):
			fmt.Fprintf(out, "  %q already found\n", res.Match)
		default:
			fmt.Fprintf(out, "  %q does not count\n", res.Match)
		}
	}
	fmt.Fprintf(out, "Success! You found: %s\n", strings.Join(st.Matches, ", "))
	return st, nil
}
