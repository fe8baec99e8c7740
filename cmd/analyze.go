package cmd

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/jobcraft/jobcraft/internal/analyzer"
	"github.com/jobcraft/jobcraft/internal/api"
	"github.com/jobcraft/jobcraft/internal/apierror"
	"github.com/jobcraft/jobcraft/internal/document"
	"github.com/jobcraft/jobcraft/internal/notify"
	"github.com/jobcraft/jobcraft/internal/progress"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	PromptRetry  = "Try again"
	PromptEdit   = "Edit the job description"
	PromptExit   = "Exit"
	progressBars = 30

	anonymousNotice = "You are not signed in. This analysis will not be saved to your history."
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score a PDF resume against a job description",
	Long: "Score a PDF resume against a job description.\n" +
		"Missing inputs are asked for interactively.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return analyze(cmd)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("file", "f", "", "path to the resume (PDF)")
	analyzeCmd.Flags().String("job-description", "", "job description text")
	analyzeCmd.Flags().String("jd-file", "", "read the job description from a file, - for stdin")
}

func analyze(cmd *cobra.Command) error {
	d, err := newDeps(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if isAnonymous(d.sessions) {
		d.bus.Publish(notify.Warning, anonymousNotice, 0)
	}

	opts := []analyzer.Option{
		analyzer.WithProgress(d.config.Progress),
		analyzer.WithMetrics(d.metrics),
	}
	printProgress := progressPrinter(os.Stderr)
	if !d.json {
		opts = append(opts, analyzer.WithProgressListener(printProgress))
	}

	machine := analyzer.New(d.client, d.bus, d.logger, opts...)
	defer machine.Close()

	path, _ := cmd.Flags().GetString("file")
	if err := selectResume(machine, path, d.logger); err != nil {
		return err
	}

	jd, err := jobDescription(cmd)
	if err != nil {
		return err
	}

	for {
		if err := machine.SetJobDescription(jd); err != nil {
			return err
		}

		resp, err := machine.Submit(ctx)
		if snap := machine.Progress(); !d.json && snap.Target > 0 {
			if err == nil {
				printProgress(snap)
			}
			fmt.Fprintln(os.Stderr)
		}
		if err == nil {
			return d.render(resp, func(w io.Writer) { printAnalysis(w, resp) })
		}

		if errors.Is(err, analyzer.ErrInvalidTransition) {
			return err
		}
		if ctx.Err() != nil || !interactive(cmd) {
			return errReported
		}

		action, perr := chooseAfterFailure()
		if perr != nil {
			return errReported
		}
		switch action {
		case PromptRetry:
		case PromptEdit:
			if jd, err = promptJobDescription(); err != nil {
				return err
			}
		default:
			return errReported
		}
	}
}

// selectResume loads path, asking for it while it is missing or rejected.
func selectResume(m *analyzer.Machine, path string, logger *zap.Logger) error {
	ask := path == ""
	for {
		if ask {
			var err error
			if path, err = promptResumePath(); err != nil {
				return err
			}
		}

		file, err := document.Load(path, logger)
		if err != nil {
			if !ask {
				return err
			}
			resp := apierror.Normalize(err)
			logger.Debug("could not load resume", zap.String("path", path), zap.Error(err))
			fmt.Fprintf(os.Stderr, "%s %s\n", badge(notify.SeverityFor(resp.Type)), resp.Message)
			continue
		}

		err = m.SelectFile(file)
		if err == nil {
			return nil
		}
		if !ask {
			return errReported
		}
	}
}

func jobDescription(cmd *cobra.Command) (string, error) {
	text, _ := cmd.Flags().GetString("job-description")
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	file, _ := cmd.Flags().GetString("jd-file")
	switch file {
	case "":
		return promptJobDescription()
	case "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading job description from stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading job description: %w", err)
		}
		return string(data), nil
	}
}

func interactive(cmd *cobra.Command) bool {
	path, _ := cmd.Flags().GetString("file")
	text, _ := cmd.Flags().GetString("job-description")
	file, _ := cmd.Flags().GetString("jd-file")
	return path == "" || (text == "" && file == "")
}

func promptResumePath() (string, error) {
	p := promptui.Prompt{
		Label: "Path to your resume (PDF)",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return analyzer.ErrNoFile
			}
			return nil
		},
	}
	path, err := p.Run()
	return strings.TrimSpace(path), err
}

func promptJobDescription() (string, error) {
	p := promptui.Prompt{
		Label: "Job description",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return analyzer.ErrEmptyJobDescription
			}
			return nil
		},
	}
	return p.Run()
}

func chooseAfterFailure() (string, error) {
	s := promptui.Select{
		Label: "The analysis did not succeed",
		Items: []string{PromptRetry, PromptEdit, PromptExit},
	}
	_, action, err := s.Run()
	return action, err
}

// progressPrinter redraws a single progress line.
func progressPrinter(w io.Writer) func(progress.Snapshot) {
	return func(s progress.Snapshot) {
		pct := int(math.Round(s.Display))
		filled := pct * progressBars / 100
		fmt.Fprintf(w, "\r[%s%s] %3d%% %-24s",
			strings.Repeat("#", filled),
			strings.Repeat(" ", progressBars-filled),
			pct,
			s.Stage,
		)
	}
}

func printAnalysis(w io.Writer, resp *api.AnalysisResponse) {
	r := resp.Result

	fmt.Fprintf(w, "Match score: %d%%\n", r.MatchScore)
	if r.JobTitle != "" {
		fmt.Fprintf(w, "Job title:   %s\n", r.JobTitle)
	}
	fmt.Fprintf(w, "Keywords:    %s\n", percent(r.KeywordsMatchPercentage))
	fmt.Fprintf(w, "Experience:  %s\n", percent(r.ExperienceLevelPercentage))
	fmt.Fprintf(w, "Skills:      %s\n", percent(r.SkillsRelevancePercentage))

	if r.Feedback != "" {
		fmt.Fprintf(w, "\n%s\n", r.Feedback)
	}
	printList(w, "Matching skills", r.SkillsMatch)
	printList(w, "Areas to improve", r.ImprovementAreas)

	if fc := r.FormattingChecks; fc != nil {
		fmt.Fprintln(w, "\nFormatting")
		printCheck(w, "font", fc.Font)
		printCheck(w, "layout", fc.Layout)
		printCheck(w, "page setup", fc.PageSetup)
	}

	if ii := r.IndustryInsights; ii != nil {
		fmt.Fprintf(w, "\nIndustry: %s\n", ii.Industry)
		if ii.MarketOverview != "" {
			fmt.Fprintln(w, ii.MarketOverview)
		}
		printList(w, "Recommendations", ii.Recommendations)
	}

	if resp.AnalysisID != "" {
		fmt.Fprintf(w, "\nAnalysis id: %s\n", resp.AnalysisID)
	}
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}

func printCheck(w io.Writer, name string, c *api.Check) {
	if c == nil {
		return
	}
	mark := "fail"
	if c.Passed {
		mark = "pass"
	}
	fmt.Fprintf(w, "  %-10s %s\n", name, mark)
	for _, d := range c.Details {
		fmt.Fprintf(w, "    %s\n", d)
	}
}

func percent(p *int) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d%%", *p)
}
