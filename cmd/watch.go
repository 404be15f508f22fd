package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/conneroisu/tabi/internal/config"
	"github.com/conneroisu/tabi/internal/logging"
	"github.com/conneroisu/tabi/internal/nav"
	"github.com/conneroisu/tabi/internal/watcher"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild article outlines as content changes",
	Long: `Watch the content directory and navigation file. Each changed article
is re-rendered and its outline printed; navigation edits are revalidated.

Examples:
  tabi watch
  tabi watch --debounce 500ms`,
	RunE: runWatch,
}

var watchDebounce time.Duration

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDelay, "Quiet period before a batch of changes is processed")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	fw, err := newContentWatcher(cfg, log, watchDebounce)
	if err != nil {
		return err
	}
	defer fw.Stop()

	out := cmd.OutOrStdout()
	fw.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		return reportChanges(out, cfg, log, events)
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fw.Start(ctx); err != nil {
		return err
	}
	log.Info(ctx, "watching", "content", cfg.Server.ContentDir, "nav", cfg.Nav.File)
	<-ctx.Done()
	return nil
}

// newContentWatcher watches the content tree and the navigation file for
// article and navigation changes.
func newContentWatcher(cfg *config.Config, log logging.Logger, delay time.Duration) (*watcher.FileWatcher, error) {
	fw, err := watcher.NewFileWatcher(delay, log)
	if err != nil {
		return nil, err
	}
	fw.AddFilter(watcher.AnyOf(watcher.ContentFilter, watcher.NavFilter))
	fw.AddFilter(watcher.NoHiddenFilter)

	if err := fw.AddRecursive(cfg.Server.ContentDir); err != nil {
		_ = fw.Stop()
		return nil, err
	}
	if _, err := os.Stat(cfg.Nav.File); err == nil {
		if err := fw.AddPath(cfg.Nav.File); err != nil {
			_ = fw.Stop()
			return nil, err
		}
	}
	return fw, nil
}

// reportChanges prints the rebuilt outline of each changed article and
// the validation result of a changed navigation file.
func reportChanges(w io.Writer, cfg *config.Config, log logging.Logger, events []watcher.ChangeEvent) error {
	op := logging.StartOperation(log, "rebuild_outlines")
	defer op.End(context.Background())

	for _, e := range events {
		if e.Type == watcher.EventTypeDeleted || e.Type == watcher.EventTypeRenamed {
			fmt.Fprintf(w, "%s %s\n", e.Type, e.Path)
			continue
		}

		if watcher.NavFilter(e.Path) {
			entries, err := nav.Load(e.Path)
			if err != nil {
				fmt.Fprintf(w, "nav %s: %v\n", e.Path, err)
				continue
			}
			fmt.Fprintf(w, "nav %s: %d entries\n", e.Path, len(entries))
			continue
		}

		records, _, err := buildOutline(cfg, log, e.Path)
		if err != nil {
			fmt.Fprintf(w, "%s: %v\n", e.Path, err)
			continue
		}
		fmt.Fprintf(w, "%s:\n", e.Path)
		if err := printOutline(w, records); err != nil {
			return err
		}
	}
	return nil
}
