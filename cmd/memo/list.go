package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goodsign/monday"
	"github.com/spf13/cobra"

	"github.com/sakif/memopad/internal/editor"
)

var (
	listJSON   bool
	listSearch string
	listLocale string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List memos grouped by day, newest first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()
		store, release := openStore(ctx, cfg)
		defer release()

		memos, err := store.Search(ctx, listSearch)
		if err != nil {
			fatal("Error listing memos", err)
		}
		memos = editor.SortByCreated(memos)

		if listJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(memos); err != nil {
				fatal("Error encoding memos", err)
			}
			return
		}

		locale := cfg.MondayLocale()
		if listLocale != "" {
			locale = monday.Locale(listLocale)
		}
		writeGroups(os.Stdout, editor.GroupByDay(memos, time.Now(), locale))
	},
}

// writeGroups prints one heading per day and one line per memo.
func writeGroups(w io.Writer, groups []editor.Group) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "No memos.")
		return
	}
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, g.Label)
		for _, it := range g.Items {
			fmt.Fprintf(w, "  %s  %s  %s\n", it.Time, it.ID, it.Title)
			if it.Excerpt != "" {
				fmt.Fprintf(w, "         %s\n", it.Excerpt)
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "Only memos whose title or content contains this text")
	listCmd.Flags().StringVar(&listLocale, "locale", "", "Day label locale (overrides the config file)")
}
