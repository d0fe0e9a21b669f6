package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sakif/memopad/internal/executor"
	"github.com/sakif/memopad/internal/executor/docker"
	"github.com/sakif/memopad/internal/localstore"
)

var runCmd = &cobra.Command{
	Use:   "run <id> <block>",
	Short: "Run a fenced code block of a memo",
	Long: `Run executes the n-th fenced code block (counting from 0) of a memo.
Against a server the block runs in the server's sandbox. With --local it runs
in a Docker container on this machine.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			fatal("Error", fmt.Errorf("block must be a non-negative integer, got %q", args[1]))
		}

		ctx := context.Background()
		cfg := loadConfig()

		var res *executor.ExecutionResult
		if localMode {
			res = runLocal(ctx, openLocal(ctx, cfg), args[0], n)
		} else {
			if cfg.Token == "" {
				fatal("Not signed in", fmt.Errorf("run 'memo login <email>' first, or pass --local"))
			}
			if res, err = newClient(cfg).Run(ctx, args[0], n); err != nil {
				fatal("Error running code block", err)
			}
		}

		fmt.Fprint(os.Stdout, res.Stdout)
		fmt.Fprint(os.Stderr, res.Stderr)
		slog.Debug("code block finished", slog.Int("exitCode", res.ExitCode), slog.Duration("duration", res.Duration))
		if res.ExitCode != 0 {
			os.Exit(res.ExitCode)
		}
	},
}

// runLocal runs a block of a local memo in a one-container Docker sandbox
// for the block's language.
func runLocal(ctx context.Context, st *localstore.Store, id string, n int) *executor.ExecutionResult {
	defer st.Close()

	block, err := st.CodeBlock(ctx, id, n)
	if err != nil {
		fatal("Error reading code block", err)
	}
	if block.Code == "" {
		fatal("Error", fmt.Errorf("code block %d is empty", n))
	}

	dcfg, unknown := docker.DefaultConfig().WithLanguages(block.Lang)
	if len(unknown) > 0 {
		fatal("Error", fmt.Errorf("%w: %q", executor.ErrUnsupportedLanguage, block.Lang))
	}
	dcfg.PoolSize = 1

	d, err := docker.New(dcfg, slog.Default())
	if err != nil {
		fatal("Error starting Docker sandbox", err)
	}
	defer d.Close()

	res, err := d.Execute(ctx, executor.ExecutionRequest{Language: block.Lang, Code: block.Code})
	if err != nil {
		fatal("Error running code block", err)
	}
	return res
}

func init() {
	rootCmd.AddCommand(runCmd)
}
