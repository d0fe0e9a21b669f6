package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/sakif/memopad/internal/executor"
)

// Executor implements executor.Executor with one warm container pool per
// configured runtime.
type Executor struct {
	cli    *client.Client
	config Config
	logger *slog.Logger
	pools  map[string]*Pool
}

var _ executor.Executor = (*Executor)(nil)

// New connects to the Docker daemon, pulls every runtime image and starts
// the pools.
func New(cfg Config, logger *slog.Logger) (*Executor, error) {
	if len(cfg.Runtimes) == 0 {
		return nil, fmt.Errorf("docker: no runtimes configured")
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	for lang, rt := range cfg.Runtimes {
		logger.Info("ensuring docker image is available",
			slog.String("language", lang),
			slog.String("image", rt.Image),
		)
		if err := pull(ctx, cli, rt.Image); err != nil {
			cli.Close()
			return nil, err
		}
	}

	eng := &dockerEngine{cli: cli, config: cfg}
	pools := make(map[string]*Pool, len(cfg.Runtimes))
	for lang, rt := range cfg.Runtimes {
		p := newPool(eng, rt.Image, cfg.PoolSize, logger)
		p.Start()
		pools[lang] = p
	}

	return &Executor{
		cli:    cli,
		config: cfg,
		logger: logger,
		pools:  pools,
	}, nil
}

// pull blocks until image is present locally.
func pull(ctx context.Context, cli *client.Client, ref string) error {
	reader, err := cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	defer reader.Close()
	_, err = io.Copy(io.Discard, reader)
	return err
}

// Languages lists the enabled runtimes.
func (e *Executor) Languages() []string {
	langs := make([]string, 0, len(e.pools))
	for lang := range e.pools {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Close shuts down the pools and the docker client.
func (e *Executor) Close() error {
	for _, p := range e.pools {
		p.Stop()
	}
	return e.cli.Close()
}

// Execute runs req in a sandbox container of its language. Languages
// without a runtime fail with executor.ErrUnsupportedLanguage.
func (e *Executor) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	lang := executor.NormalizeLanguage(req.Language)
	pool, ok := e.pools[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %q", executor.ErrUnsupportedLanguage, req.Language)
	}
	rt := e.config.Runtimes[lang]

	start := time.Now()

	containerID, err := pool.GetContainer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container from pool: %w", err)
	}

	// Containers are single use.
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.cli.ContainerRemove(cleanupCtx, containerID, container.RemoveOptions{Force: true}); err != nil {
			e.logger.Error("failed to remove container", slog.String("id", containerID), slog.String("error", err.Error()))
		}
	}()

	executeCtx, executeCancel := context.WithTimeout(ctx, e.config.Timeout)
	defer executeCancel()

	execResp, err := e.cli.ContainerExecCreate(executeCtx, containerID, container.ExecOptions{
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          rt.Command(req.Code),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create exec: %w", err)
	}

	attachResp, err := e.cli.ContainerExecAttach(executeCtx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to attach to exec: %w", err)
	}
	defer attachResp.Close()

	var stdout, stderr bytes.Buffer
	done := make(chan struct{})
	go func() {
		_, _ = stdcopy.StdCopy(&stdout, &stderr, attachResp.Reader)
		close(done)
	}()

	var exitCode int
	select {
	case <-done:
		inspectResp, err := e.cli.ContainerExecInspect(ctx, execResp.ID)
		if err == nil {
			exitCode = inspectResp.ExitCode
		}
	case <-executeCtx.Done():
		// Closing the attachment ends the copy goroutine before the
		// buffers are read.
		attachResp.Close()
		<-done
		exitCode = executor.TimeoutExitCode
		stderr.WriteString("\nExecution timed out.\n")
	}

	e.logger.Debug("code block executed",
		slog.String("language", lang),
		slog.Int("exitCode", exitCode),
		slog.Duration("duration", time.Since(start)),
	)

	return &executor.ExecutionResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
		Duration: time.Since(start),
	}, nil
}
