package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iksnae/jonas-chat/internal"
	"github.com/iksnae/jonas-chat/internal/export"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const maxExportFetchers = 4

var (
	format      string
	outputDir   string
	exportAll   bool
	toStdout    bool
	exportClear bool
)

var exportCmd = &cobra.Command{
	Use:   "export [session]",
	Short: "Export sessions to file",
	Long: `Export chat sessions to various formats (jsonl, md, yaml, json, html).

Without arguments the active session is exported. Use --all to export every
session, or name one by number, id or title as shown by 'jonas-chat sessions'.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}
		if exportAll && len(args) > 0 {
			return fmt.Errorf("--all cannot be combined with a session argument")
		}
		if toStdout && exportAll {
			return fmt.Errorf("--stdout exports a single session")
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		if exportClear {
			if err := a.cache.ClearCache(); err != nil {
				internal.LogWarn("Failed to clear cache: %v", err)
			} else {
				internal.LogInfo("Cache cleared")
			}
		}

		ctx := cmd.Context()
		var sessions []internal.Session
		if exportAll {
			var listErr error
			sessions, _, listErr = a.sessionList(ctx)
			if listErr != nil {
				if len(sessions) == 0 {
					return fmt.Errorf("failed to list sessions: %w", listErr)
				}
				internal.PrintWarning(fmt.Sprintf("Backend unreachable, exporting cached sessions: %v", listErr))
			}
		} else {
			ref := ""
			if len(args) > 0 {
				ref = args[0]
			}
			session, err := a.resolveSession(ctx, ref)
			if err != nil {
				return err
			}
			sessions = []internal.Session{session}
		}
		if len(sessions) == 0 {
			internal.PrintInfo("No sessions to export")
			return nil
		}

		transcripts := make([]*internal.Transcript, len(sessions))
		load := func(ctx context.Context) error {
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(maxExportFetchers)
			for i, s := range sessions {
				i, s := i, s
				g.Go(func() error {
					t, err := a.fetchTranscript(gctx, s)
					if err != nil {
						internal.LogWarn("Skipping %s: %v", s.Key(), err)
						return nil
					}
					transcripts[i] = t
					return nil
				})
			}
			return g.Wait()
		}

		if toStdout {
			if err := load(ctx); err != nil {
				return err
			}
			if transcripts[0] == nil {
				return fmt.Errorf("failed to load session %s", sessions[0].Key())
			}
			if err := exporter.Export(transcripts[0], cmd.OutOrStdout()); err != nil {
				return &internal.ExportError{Format: format, Path: "stdout", Err: err}
			}
			return nil
		}

		var written int
		steps := []internal.ProgressStep{
			{
				Message: fmt.Sprintf("Loading %d session(s)", len(sessions)),
				Fn:      load,
			},
			{
				Message: fmt.Sprintf("Writing files to %s", outputDir),
				Fn: func(ctx context.Context) error {
					if err := os.MkdirAll(outputDir, 0755); err != nil {
						return fmt.Errorf("failed to create output directory: %w", err)
					}
					for _, t := range transcripts {
						if t == nil {
							continue
						}
						path := filepath.Join(outputDir, exportFilename(t.Session, exporter.Extension()))
						if err := writeExport(exporter, t, path); err != nil {
							internal.LogError("%v", err)
							continue
						}
						written++
					}
					return nil
				},
			},
		}
		if err := internal.ShowProgressWithSteps(ctx, steps); err != nil {
			return err
		}

		if written == 0 {
			return fmt.Errorf("no sessions were exported")
		}
		internal.PrintSuccess(fmt.Sprintf("Export complete: %d session(s) exported to %s", written, outputDir))
		return nil
	},
}

func writeExport(exporter export.Exporter, t *internal.Transcript, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	if err := exporter.Export(t, file); err != nil {
		_ = file.Close()
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	return nil
}

var filenameReplacer = strings.NewReplacer("/", "_", "\\", "_", " ", "_", ":", "_")

// exportFilename derives a file name from the session id
func exportFilename(s internal.Session, ext string) string {
	id := strings.TrimSuffix(identity(s), ".json")
	return fmt.Sprintf("session_%s.%s", filenameReplacer.Replace(id), ext)
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "md", "Export format (jsonl, md, yaml, json, html)")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "Export every session")
	exportCmd.Flags().BoolVar(&toStdout, "stdout", false, "Write a single session to stdout instead of a file")
	exportCmd.Flags().BoolVar(&exportClear, "clear-cache", false, "Clear the cache before running")
}
