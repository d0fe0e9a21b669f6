package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/memopad/internal/editor"
)

var editFile string

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Replace a memo's content",
	Long:  `Edit replaces the content of a memo with --file ("-" for stdin). The title follows the new first line.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if editFile == "" {
			fatal("Error", fmt.Errorf("--file is required"))
		}
		content, err := readSource(editFile, os.Stdin)
		if err != nil {
			fatal("Error reading input", err)
		}

		ctx := context.Background()
		cfg := loadConfig()
		store, release := openStore(ctx, cfg)
		defer release()

		ctrl := editor.NewController(editor.NewSession(cfg.MondayLocale()), store, slog.Default())
		if err := ctrl.Load(ctx); err != nil {
			fatal("Error loading memos", err)
		}
		if _, ok := ctrl.Session().Memo(args[0]); !ok {
			fatal("Error", fmt.Errorf("memo %s not found", args[0]))
		}
		if _, err := ctrl.Select(ctx, args[0], false); err != nil {
			fatal("Error opening memo", err)
		}
		if err := ctrl.EditContent(content, len(content)); err != nil {
			fatal("Error editing memo", err)
		}
		if err := ctrl.Save(ctx); err != nil {
			fatal("Error saving memo", err)
		}

		d, _ := ctrl.Session().Draft()
		fmt.Printf("Memo saved: %s (%s)\n", d.MemoID, d.Title)
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringVarP(&editFile, "file", "f", "", "Read the new content from a file")
}
