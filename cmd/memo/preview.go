package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sakif/memopad/internal/preview"
)

var (
	previewOut   string
	previewWatch bool
)

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Render a markdown file to an HTML page",
	Long: `Preview writes an HTML page next to the markdown file, or to --out.
With --watch it re-renders every time the file is saved until interrupted.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		src := args[0]
		out := previewOut
		if out == "" {
			out = strings.TrimSuffix(src, ".md") + ".html"
		}

		if err := preview.RenderFile(src, out); err != nil {
			fatal("Error rendering preview", err)
		}
		fmt.Printf("Preview written: %s\n", out)

		if !previewWatch {
			return
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		slog.Info("watching for changes", slog.String("file", src))
		err := preview.Watch(ctx, src, preview.DefaultDebounce, func() error {
			if err := preview.RenderFile(src, out); err != nil {
				return err
			}
			slog.Info("preview updated", slog.String("out", out))
			return nil
		}, slog.Default())
		if err != nil {
			fatal("Error watching file", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().StringVarP(&previewOut, "out", "o", "", "Output HTML file (default: <file>.html)")
	previewCmd.Flags().BoolVarP(&previewWatch, "watch", "w", false, "Re-render on every save")
}
