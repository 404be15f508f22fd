package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/conneroisu/tabi/internal/browser"
	"github.com/conneroisu/tabi/internal/config"
	"github.com/conneroisu/tabi/internal/dom"
	"github.com/conneroisu/tabi/internal/headings"
	"github.com/conneroisu/tabi/internal/logging"
	"github.com/conneroisu/tabi/internal/site"
	"github.com/spf13/cobra"
)

var outlineCmd = &cobra.Command{
	Use:   "outline <file>",
	Short: "Print the heading outline of an article",
	Long: `Render an HTML or Markdown article, assign ids to headings that lack
them, and print the resulting outline.

Examples:
  tabi outline content/guide.md
  tabi outline page.html --format json
  tabi outline page.html --html          # print the article with ids assigned`,
	Args: cobra.ExactArgs(1),
	RunE: runOutline,
}

var (
	outlineFormat    string
	outlineContainer string
	outlineHTML      bool
)

func init() {
	rootCmd.AddCommand(outlineCmd)

	outlineCmd.Flags().StringVarP(&outlineFormat, "format", "f", "text", "Output format (text, json)")
	outlineCmd.Flags().StringVar(&outlineContainer, "container", "", "Article container id (default from config)")
	outlineCmd.Flags().BoolVar(&outlineHTML, "html", false, "Print the article HTML with heading ids assigned")
}

func runOutline(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	if outlineContainer != "" {
		cfg.Article.ContainerID = outlineContainer
	}

	records, doc, err := buildOutline(cfg, log, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outlineHTML {
		el, ok := doc.ElementByID(cfg.Article.ContainerID)
		if !ok {
			return fmt.Errorf("article container %q not found", cfg.Article.ContainerID)
		}
		html, err := doc.OuterHTML(el)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, html)
		return err
	}

	switch outlineFormat {
	case "json":
		if records == nil {
			records = []headings.Record{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case "text":
		return printOutline(out, records)
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json)", outlineFormat)
	}
}

// buildOutline renders file and mounts a heading observer on it, which
// assigns the ids the live page would get.
func buildOutline(cfg *config.Config, log logging.Logger, file string) ([]headings.Record, *dom.HTMLDocument, error) {
	store := site.NewStore(filepath.Dir(file), cfg.Article.ContainerID)
	doc, err := store.LoadFile(file)
	if err != nil {
		return nil, nil, err
	}
	obs := headings.NewObserver(doc, browser.NewMemory("/", cfg.Nav.BreakpointPx), cfg.ObserverOptions(), log)
	defer obs.Close()
	return obs.Build(cfg.Article.ContainerID), doc, nil
}

func printOutline(w io.Writer, records []headings.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "(no headings)")
		return err
	}
	for _, r := range records {
		indent := strings.Repeat("  ", max(r.Level-1, 0))
		if _, err := fmt.Fprintf(w, "%s- %s  #%s\n", indent, r.Text, r.ID); err != nil {
			return err
		}
	}
	return nil
}
