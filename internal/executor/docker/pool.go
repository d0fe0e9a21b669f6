package docker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// engine is the container lifecycle a Pool needs.
type engine interface {
	start(ctx context.Context, image string) (string, error)
	remove(ctx context.Context, id string) error
}

// dockerEngine starts sandbox containers on a Docker daemon.
type dockerEngine struct {
	cli    *client.Client
	config Config
}

// start creates and starts an idle container running `sleep infinity`.
// Code is later run inside it with docker exec.
func (e *dockerEngine) start(ctx context.Context, image string) (string, error) {
	hostConfig := &container.HostConfig{
		NetworkMode: "none",
		Resources: container.Resources{
			Memory:   e.config.MemoryLimit,
			NanoCPUs: int64(e.config.CPULimit * 1e9),
		},
		ReadonlyRootfs: true,
		Tmpfs:          map[string]string{"/tmp": "rw,size=16m"},
	}

	resp, err := e.cli.ContainerCreate(ctx, &container.Config{
		Image: image,
		Cmd:   []string{"sleep", "infinity"},
		User:  "nobody",
	}, hostConfig, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("ContainerCreate failed: %w", err)
	}

	if err := e.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = e.remove(ctx, resp.ID)
		return "", fmt.Errorf("ContainerStart failed: %w", err)
	}
	return resp.ID, nil
}

func (e *dockerEngine) remove(ctx context.Context, id string) error {
	return e.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
}

// Pool keeps up to size pre-warmed containers of one image ready. Each
// container serves a single run and is then removed.
type Pool struct {
	engine     engine
	image      string
	logger     *slog.Logger
	containers chan string
	done       chan struct{}
	wg         sync.WaitGroup
	startOnce  sync.Once
	stopOnce   sync.Once

	// backoff is the pause after a failed container start; idle is the
	// poll interval while the pool is full.
	backoff time.Duration
	idle    time.Duration
}

// newPool creates a pool for image. Nothing starts until Start.
func newPool(eng engine, image string, size int, logger *slog.Logger) *Pool {
	return &Pool{
		engine:     eng,
		image:      image,
		logger:     logger.With(slog.String("image", image)),
		containers: make(chan string, size),
		done:       make(chan struct{}),
		backoff:    time.Second,
		idle:       100 * time.Millisecond,
	}
}

// Start begins filling the pool in the background.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		p.logger.Info("starting container pool", slog.Int("poolSize", cap(p.containers)))
		p.wg.Add(1)
		go p.manager()
	})
}

// Stop shuts down the manager and removes all idle containers.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.wg.Wait()

		for {
			select {
			case id := <-p.containers:
				p.removeContainer(id)
			default:
				return
			}
		}
	})
}

// GetContainer returns a ready container id, blocking until one is
// available or ctx is done. The caller owns the container.
func (p *Pool) GetContainer(ctx context.Context) (string, error) {
	select {
	case id := <-p.containers:
		return id, nil
	case <-p.done:
		return "", fmt.Errorf("pool for %s is stopped", p.image)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// manager keeps the pool at capacity until Stop.
func (p *Pool) manager() {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return
		default:
		}

		if len(p.containers) >= cap(p.containers) {
			p.sleep(p.idle)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		id, err := p.engine.start(ctx, p.image)
		cancel()
		if err != nil {
			p.logger.Error("failed to create pre-warmed container", slog.String("error", err.Error()))
			p.sleep(p.backoff)
			continue
		}

		select {
		case p.containers <- id:
		case <-p.done:
			p.removeContainer(id)
			return
		}
	}
}

// sleep waits d or until Stop, whichever comes first.
func (p *Pool) sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-p.done:
	}
}

func (p *Pool) removeContainer(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.engine.remove(ctx, id); err != nil {
		p.logger.Warn("failed to remove container", slog.String("id", id), slog.String("error", err.Error()))
	}
}
