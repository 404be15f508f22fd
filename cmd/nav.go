package cmd

import (
	"fmt"
	"io"

	"github.com/conneroisu/tabi/internal/nav"
	"github.com/spf13/cobra"
)

var navCmd = &cobra.Command{
	Use:   "nav [file]",
	Short: "Validate and print the navigation tree",
	Long: `Load a navigation file (default from config), validate it, and print
the tree. With --path, the entry the drawer would mark active is starred.

Examples:
  tabi nav
  tabi nav docs/nav.yml --path /guides/start/`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNav,
}

var navPath string

func init() {
	rootCmd.AddCommand(navCmd)

	navCmd.Flags().StringVarP(&navPath, "path", "p", "", "Page path to mark as active")
}

func runNav(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	file := cfg.Nav.File
	if len(args) == 1 {
		file = args[0]
	}

	entries, err := nav.Load(file)
	if err != nil {
		return err
	}
	return printNav(cmd.OutOrStdout(), entries, navPath)
}

func printNav(w io.Writer, entries []nav.Entry, current string) error {
	line := func(indent string, it nav.Item) error {
		mark := " "
		if current != "" && nav.Matches(current, it.Href) {
			mark = "*"
		}
		_, err := fmt.Fprintf(w, "%s%s %s  %s\n", indent, mark, it.Label, it.Href)
		return err
	}

	for _, e := range entries {
		switch {
		case e.Group != nil:
			if _, err := fmt.Fprintf(w, "  %s\n", e.Group.Title); err != nil {
				return err
			}
			for _, it := range e.Group.Items {
				if err := line("    ", it); err != nil {
					return err
				}
			}
		case e.Item != nil:
			if err := line("", *e.Item); err != nil {
				return err
			}
		}
	}
	return nil
}
