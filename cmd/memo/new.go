package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/memopad/internal/editor"
)

var newFile string

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a memo",
	Long:  `New creates a memo, empty or with the content of --file ("-" for stdin), and prints its id.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		var content string
		if newFile != "" {
			var err error
			if content, err = readSource(newFile, os.Stdin); err != nil {
				fatal("Error reading input", err)
			}
		}

		ctx := context.Background()
		cfg := loadConfig()
		store, release := openStore(ctx, cfg)
		defer release()

		ctrl := editor.NewController(editor.NewSession(cfg.MondayLocale()), store, slog.Default())
		if _, err := ctrl.Create(ctx); err != nil {
			fatal("Error creating memo", err)
		}
		if content != "" {
			if err := ctrl.EditContent(content, len(content)); err != nil {
				fatal("Error editing memo", err)
			}
			if err := ctrl.Save(ctx); err != nil {
				fatal("Error saving memo", err)
			}
		}

		d, _ := ctrl.Session().Draft()
		fmt.Printf("Memo created: %s (%s)\n", d.MemoID, d.Title)
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().StringVarP(&newFile, "file", "f", "", "Read the content from a file")
}
