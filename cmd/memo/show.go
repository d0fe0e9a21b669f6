package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var showHTML bool

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a memo's markdown, or its HTML with --html",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store, release := openStore(ctx, loadConfig())
		defer release()

		if showHTML {
			html, err := store.RenderHTML(ctx, args[0])
			if err != nil {
				fatal("Error rendering memo", err)
			}
			fmt.Print(html)
			return
		}

		m, err := store.Get(ctx, args[0])
		if err != nil {
			fatal("Error reading memo", err)
		}
		fmt.Println(m.Content)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showHTML, "html", false, "Print the rendered HTML")
}
