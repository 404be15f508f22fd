package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/conneroisu/tabi/internal/site"
	"github.com/conneroisu/tabi/internal/watcher"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Serve the content directory with live pages",
	Long: `Serve articles from the content directory wrapped in the navigation
drawer and table of contents. Pages connect back over a websocket so the
drawer and active heading follow the reader, and reload when their source
or the navigation file changes.

Examples:
  tabi serve
  tabi serve --port 3000 --content docs
  tabi serve --no-watch`,
	RunE: runServe,
}

var serveNoWatch bool

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().String("content", "content", "Content directory")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not reload pages on file changes")

	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.content_dir", serveCmd.Flags().Lookup("content"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	srv, err := site.New(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !serveNoWatch {
		fw, err := newContentWatcher(cfg, log, watcher.DefaultDelay)
		if err != nil {
			return err
		}
		defer fw.Stop()
		fw.AddHandler(srv.HandleChanges)
		if err := fw.Start(ctx); err != nil {
			return err
		}
	}

	return srv.Run(ctx)
}
