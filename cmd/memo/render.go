package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/memopad/internal/markdown"
	"github.com/sakif/memopad/internal/preview"
)

var renderPage bool

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render markdown to HTML",
	Long:  `Render reads markdown from a file, or from stdin when the file is "-" or omitted, and writes HTML to stdout.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "-"
		if len(args) == 1 {
			path = args[0]
		}
		src, err := readSource(path, os.Stdin)
		if err != nil {
			fatal("Error reading input", err)
		}

		if renderPage {
			if err := preview.Page(os.Stdout, src); err != nil {
				fatal("Error rendering", err)
			}
			return
		}
		if err := markdown.Parse(src).WriteHTML(os.Stdout); err != nil {
			fatal("Error writing output", err)
		}
	},
}

// readSource reads path, or stdin when path is "-" or empty.
func readSource(path string, stdin io.Reader) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().BoolVar(&renderPage, "page", false, "Wrap the output in a complete HTML document")
}
