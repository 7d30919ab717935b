package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/solace/internal/assessment"
	"github.com/kalambet/solace/internal/config"
	"github.com/kalambet/solace/internal/questionnaire"
	"github.com/kalambet/solace/internal/userstore"
)

var assessCmd = &cobra.Command{
	Use:   "assess <username>",
	Short: "Run the personality questionnaire and save the answers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProfiles(cmd.Context(), func(ctx context.Context, _ config.Config, profiles *userstore.Facade, logger *slog.Logger) error {
			svc := assessment.New(profiles, nil, logger)
			if _, err := svc.Login(ctx, args[0]); err != nil {
				return err
			}

			sub, err := runQuestionnaire(cmd.InOrStdin(), cmd.OutOrStdout(), questionnaire.DefaultQuestions())
			if err != nil {
				return err
			}
			if _, err := svc.Complete(ctx, args[0], sub); err != nil {
				return err
			}
			printSuccess("Saved %d answers for %s", len(sub.Answers), args[0])
			return nil
		})
	},
}

// runQuestionnaire walks a session over line-oriented input. Invalid
// input is reported and the question asked again.
func runQuestionnaire(in io.Reader, out io.Writer, questions []questionnaire.Question) (questionnaire.Submission, error) {
	sess, err := questionnaire.NewSession(questions)
	if err != nil {
		return questionnaire.Submission{}, err
	}
	defer sess.Close()

	sc := bufio.NewScanner(in)
	readLine := func() (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", io.ErrUnexpectedEOF
		}
		return strings.TrimSpace(sc.Text()), nil
	}

	for sess.Stage() == questionnaire.StageQuestion {
		q, _ := sess.Question()
		fmt.Fprintf(out, "\n%s %s\n", colorize(colorBold, fmt.Sprintf("[%d/%d]", sess.Index()+1, sess.Len())), q.Prompt)
		for i, o := range q.Options {
			fmt.Fprintf(out, "  %d) %s %s\n", i+1, o.Emoji, o.Text)
		}
		if q.MultiSelect {
			fmt.Fprintf(out, "Pick up to %d (e.g. 1 3): ", q.MaxSelections)
		} else {
			fmt.Fprint(out, "> ")
		}

		line, err := readLine()
		if err != nil {
			return questionnaire.Submission{}, fmt.Errorf("reading answer: %w", err)
		}
		picks, err := parsePicks(line)
		if err == nil {
			err = answer(sess, q, picks)
		}
		if err != nil {
			fmt.Fprintf(out, "%s\n", colorize(colorYellow, err.Error()))
		}
	}

	fmt.Fprint(out, "\nDescribe yourself in a few words (empty to skip): ")
	line, err := readLine()
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return questionnaire.Submission{}, fmt.Errorf("reading description: %w", err)
	}
	if err := sess.SetDescription(line); err != nil {
		return questionnaire.Submission{}, err
	}
	return sess.Submit()
}

// parsePicks turns "1 3" or "1,3" into zero-based, de-duplicated option
// indexes.
func parsePicks(line string) ([]int, error) {
	fields := strings.Fields(strings.ReplaceAll(line, ",", " "))
	if len(fields) == 0 {
		return nil, errors.New("enter an option number")
	}
	var picks []int
	seen := make(map[int]bool, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%q is not an option number", f)
		}
		if !seen[n-1] {
			seen[n-1] = true
			picks = append(picks, n-1)
		}
	}
	return picks, nil
}

func answer(sess *questionnaire.Session, q questionnaire.Question, picks []int) error {
	if !q.MultiSelect {
		if len(picks) != 1 {
			return errors.New("pick exactly one option")
		}
		return sess.Select(picks[0])
	}

	// Start from an empty selection so a rejected line leaves nothing behind.
	for _, p := range sess.Selected() {
		if err := sess.Select(p); err != nil {
			return err
		}
	}
	for _, p := range picks {
		if err := sess.Select(p); err != nil {
			return err
		}
	}
	return sess.Continue()
}
