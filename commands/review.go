package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"grant_proposal_advisor/advisor"
	"grant_proposal_advisor/export"
)

type reviewOptions struct {
	projectContext string
	answersPath    string
	htmlPath       string
	title          string
	score          bool
	whole          bool
}

func NewReviewCmd() *cobra.Command {
	var opts reviewOptions
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review a file of answers once and print the advice",
		Long: `Review a YAML file of answers, keyed by question ID, and print the advice
for each one. Optionally score every answer and write an annotated HTML report.`,
		Example: `  advisor review --context "Shelter for families in Oslo" --answers answers.yaml
  advisor review --context "..." --answers answers.yaml --score --html review.html`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.projectContext, "context", "", "project outline the advice is framed against")
	cmd.Flags().StringVar(&opts.answersPath, "answers", "", "YAML file mapping question IDs to answer text")
	cmd.Flags().StringVar(&opts.htmlPath, "html", "", "write an annotated HTML report to this path")
	cmd.Flags().StringVar(&opts.title, "title", "Grant proposal review", "report title")
	cmd.Flags().BoolVar(&opts.score, "score", false, "also score each answer from 0 to 1")
	cmd.Flags().BoolVar(&opts.whole, "whole", false, "review all answers in a single model call")
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}

func runReview(ctx context.Context, out io.Writer, opts reviewOptions) error {
	if opts.projectContext == "" {
		return errors.New("--context is required")
	}
	answers, err := loadAnswers(opts.answersPath)
	if err != nil {
		return err
	}

	st, err := loadStack()
	if err != nil {
		return err
	}
	defer st.log.Sync()
	engine, err := st.newEngine()
	if err != nil {
		return err
	}
	engine.SetProjectContext(opts.projectContext)

	if ctx == nil {
		ctx = context.Background()
	}
	ids := make([]string, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	advice := make(map[string][]advisor.AdviceItem, len(ids))
	if opts.whole {
		if advice, err = engine.ProcessWholeText(ctx, answers); err != nil {
			return err
		}
	} else {
		for _, id := range ids {
			if advice[id], err = engine.AddParagraph(ctx, id, answers[id]); err != nil {
				return fmt.Errorf("review %s: %w", id, err)
			}
		}
	}

	for _, id := range ids {
		q, _ := st.questions.Lookup(id)
		fmt.Fprintf(out, "== %s: %s\n", id, q.Question)
		if len(advice[id]) == 0 {
			fmt.Fprintln(out, "  no advice")
		}
		for i, item := range advice[id] {
			fmt.Fprintf(out, "  [%d] %q\n      %s\n", i+1, item.Extract, item.Advice)
		}
		if opts.score {
			score, err := engine.ScoreParagraph(ctx, id, "")
			if err != nil {
				return fmt.Errorf("score %s: %w", id, err)
			}
			fmt.Fprintf(out, "  score: %.2f\n", score)
		}
		fmt.Fprintln(out)
	}

	if opts.htmlPath == "" {
		return nil
	}
	doc, err := export.Collect(opts.title, engine, st.questions)
	if err != nil {
		return err
	}
	f, err := os.Create(opts.htmlPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := export.NewHTMLAnnotator().Annotate(f, doc); err != nil {
		return err
	}
	fmt.Fprintf(out, "report written to %s\n", opts.htmlPath)
	return nil
}

func loadAnswers(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var answers map[string]string
	if err := yaml.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("parse answers: %w", err)
	}
	if len(answers) == 0 {
		return nil, fmt.Errorf("no answers in %s", path)
	}
	return answers, nil
}
