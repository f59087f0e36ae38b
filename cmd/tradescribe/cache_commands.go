package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tradescribe/internal/media"
	"tradescribe/internal/transcriptcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the transcript cache",
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheShowCommand(ctx))
	cacheCmd.AddCommand(newCacheRemoveCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func (c *commandContext) withCache(fn func(*transcriptcache.Store) error) error {
	logger, err := c.newLogger()
	if err != nil {
		return err
	}
	store, err := c.openCache(logger)
	if err != nil {
		return fmt.Errorf("open transcript cache: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached transcripts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCache(func(store *transcriptcache.Store) error {
				summaries, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, summaries)
				}
				out := cmd.OutOrStdout()
				if len(summaries) == 0 {
					fmt.Fprintln(out, "Transcript cache is empty")
					return nil
				}
				rows := make([][]string, 0, len(summaries))
				for _, s := range summaries {
					rows = append(rows, []string{
						s.VideoID,
						string(s.Method),
						s.Language,
						fmt.Sprintf("%d", s.SegmentCount),
						s.StoredAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Video", "Method", "Language", "Segments", "Stored"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the list as JSON")
	return cmd
}

func newCacheShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var fullText bool

	cmd := &cobra.Command{
		Use:   "show <video-id-or-url>",
		Short: "Show a cached transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := media.ParseSource(args[0])
			if err != nil {
				return err
			}
			return ctx.withCache(func(store *transcriptcache.Store) error {
				transcript, ok, err := store.Get(cmd.Context(), src.ID)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no cached transcript for %s", src.ID)
				}
				if jsonOutput {
					return writeJSON(cmd, transcript)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderStatusLine("Video", statusInfo, transcript.Source.ID, colorize))
				fmt.Fprintln(out, renderStatusLine("Method", statusInfo, string(transcript.Method), colorize))
				fmt.Fprintln(out, renderStatusLine("Language", statusInfo, transcript.Language, colorize))
				fmt.Fprintln(out, renderStatusLine("Segments", statusInfo, fmt.Sprintf("%d", len(transcript.Segments)), colorize))
				fmt.Fprintln(out, renderStatusLine("Fetched", statusInfo, transcript.FetchedAt.Local().Format("2006-01-02 15:04:05"), colorize))
				if fullText {
					fmt.Fprintln(out)
					fmt.Fprintln(out, transcript.FullText())
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the transcript as JSON")
	cmd.Flags().BoolVar(&fullText, "text", false, "Print the transcript text")
	return cmd
}

func newCacheRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <video-id-or-url>",
		Short: "Remove one cached transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := media.ParseSource(args[0])
			if err != nil {
				return err
			}
			return ctx.withCache(func(store *transcriptcache.Store) error {
				if err := store.Remove(cmd.Context(), src.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed cached transcript for %s\n", src.ID)
				return nil
			})
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("cache clear removes every cached transcript; re-run with --yes to confirm")
			}
			return ctx.withCache(func(store *transcriptcache.Store) error {
				count, err := store.Count(cmd.Context())
				if err != nil {
					return err
				}
				if err := store.Clear(cmd.Context()); err != nil {
					return err
				}
				noun := "transcripts"
				if count == 1 {
					noun = "transcript"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached %s\n", count, strings.TrimSpace(noun))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm clearing the cache")
	return cmd
}
