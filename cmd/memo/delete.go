package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/memopad/internal/editor"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete memos",
	Long:  `Delete removes each memo on its own. Memos that fail to delete are reported and the rest still go.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()
		store, release := openStore(ctx, cfg)
		defer release()

		ctrl := editor.NewController(editor.NewSession(cfg.MondayLocale()), store, slog.Default())
		report := ctrl.Delete(ctx, args...)
		for _, id := range report.Deleted {
			fmt.Printf("Memo deleted: %s\n", id)
		}
		if err := report.Err(); err != nil {
			release()
			fatal("Error deleting memos", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
