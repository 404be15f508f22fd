package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/conneroisu/tabi/internal/version"
	"github.com/spf13/cobra"
)

var (
	versionFormat   string
	versionDetailed bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display the tabi version, commit and build platform.

Examples:
  tabi version
  tabi version --detailed
  tabi version --format json`,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVarP(&versionFormat, "format", "f", "text", "Output format (text, json)")
	versionCmd.Flags().BoolVar(&versionDetailed, "detailed", false, "Show detailed version information")
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	info := version.Get()
	out := cmd.OutOrStdout()

	switch versionFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case "text":
		if versionDetailed {
			_, err := fmt.Fprintln(out, info.Detailed())
			return err
		}
		_, err := fmt.Fprintf(out, "tabi %s\n", info.Short())
		return err
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json)", versionFormat)
	}
}
