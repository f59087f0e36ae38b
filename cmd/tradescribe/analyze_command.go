package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"tradescribe/internal/analysis"
	"tradescribe/internal/extract"
	"tradescribe/internal/progress"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var refresh bool
	var jsonOutput bool
	var threshold float64

	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Analyze a strategy video and produce its specification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("threshold") {
				if threshold < 0 || threshold > 1 {
					return fmt.Errorf("threshold must be between 0 and 1, got %g", threshold)
				}
				cfg.Extraction.AcceptanceThreshold = threshold
			}

			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			store, err := ctx.openCache(logger)
			if err != nil {
				return fmt.Errorf("open transcript cache: %w", err)
			}
			defer store.Close()

			hub := progress.NewHub(64)
			runner, err := ctx.buildRunner(logger, store, hub)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			quit := make(chan struct{})
			done := make(chan struct{})
			if !jsonOutput {
				go streamProgress(cmd, hub.Subscribe(64), quit, done)
			} else {
				close(done)
			}

			result, err := runner.Analyze(runCtx, args[0], refresh)
			close(quit)
			<-done
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, result)
			}
			renderResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass the transcript cache and re-fetch")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the full result as JSON")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Override the concept acceptance threshold for this run")
	return cmd
}

// streamProgress prints pipeline events to stderr as they arrive. Rendering
// ends on a terminal stage, or when quit closes after the run returns.
func streamProgress(cmd *cobra.Command, events <-chan progress.Event, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	out := cmd.ErrOrStderr()
	for {
		select {
		case event := <-events:
			fmt.Fprintf(out, "  %-13s %s\n", event.Stage, event.Message)
			if event.Stage == progress.StageComplete || event.Stage == progress.StageFailed {
				return
			}
		case <-quit:
			// Drain anything already buffered before handing the terminal
			// back to the summary renderer.
			for {
				select {
				case event := <-events:
					fmt.Fprintf(out, "  %-13s %s\n", event.Stage, event.Message)
				default:
					return
				}
			}
		}
	}
}

var kindOrder = []extract.Kind{
	extract.KindIndicator,
	extract.KindEntryRule,
	extract.KindExitRule,
	extract.KindRiskParam,
	extract.KindTimeframe,
}

func renderResult(cmd *cobra.Command, result analysis.Result) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	title := result.Video.Title
	if title == "" {
		title = result.Source.ID
	}
	for _, line := range renderSectionHeader("Strategy Specification", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Video", statusInfo, title, colorize))
	if result.Video.Author != "" {
		fmt.Fprintln(out, renderStatusLine("Channel", statusInfo, result.Video.Author, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Transcript", statusInfo,
		fmt.Sprintf("%s (%s, %d segments)",
			result.Specification.Transcript.Method,
			result.Specification.Transcript.Language,
			result.Specification.Transcript.SegmentCount),
		colorize))
	fmt.Fprintln(out, renderStatusLine("Artifact", statusOK, result.ArtifactPath, colorize))
	fmt.Fprintln(out)

	if result.Specification.ConceptCount() == 0 {
		fmt.Fprintln(out, renderStatusLine("Concepts", statusWarn, "nothing recognized above the acceptance threshold", colorize))
	} else {
		var rows [][]string
		for _, kind := range kindOrder {
			for _, c := range result.Specification.Concepts[kind] {
				rows = append(rows, conceptRow(c))
			}
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Kind", "Name", "Parameters", "Confidence"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
		))
	}

	if len(result.Specification.Unresolved) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderStatusLine("Needs review", statusWarn,
			fmt.Sprintf("%d low-confidence items", len(result.Specification.Unresolved)), colorize))
		var rows [][]string
		for _, c := range result.Specification.Unresolved {
			rows = append(rows, conceptRow(c))
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Kind", "Name", "Parameters", "Confidence"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
		))
	}
}

func conceptRow(c extract.Concept) []string {
	name := c.Name
	if c.Subject != "" {
		name = fmt.Sprintf("%s (%s)", c.Name, c.Subject)
	}
	return []string{
		string(c.Kind),
		name,
		formatParameters(c.Parameters),
		fmt.Sprintf("%.2f", c.Confidence),
	}
}

func formatParameters(params map[string]float64) string {
	if len(params) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", key, formatNumber(params[key])))
	}
	return strings.Join(parts, ", ")
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
