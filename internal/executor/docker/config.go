package docker

import (
	"time"

	"github.com/sakif/memopad/internal/executor"
)

// Runtime is how one language runs: an image and the command prefix the
// code is appended to as the final argument.
type Runtime struct {
	Image string
	Cmd   []string
}

// Command returns the argv that runs code.
func (r Runtime) Command(code string) []string {
	cmd := make([]string, 0, len(r.Cmd)+1)
	cmd = append(cmd, r.Cmd...)
	return append(cmd, code)
}

// Known runtimes, keyed by the name executor.NormalizeLanguage produces.
var Runtimes = map[string]Runtime{
	"python":     {Image: "python:3.12-alpine", Cmd: []string{"python", "-c"}},
	"javascript": {Image: "node:22-alpine", Cmd: []string{"node", "-e"}},
	"sh":         {Image: "alpine:3.20", Cmd: []string{"sh", "-c"}},
}

// Config holds the configuration for Docker execution. Limits apply to
// every runtime.
type Config struct {
	// Runtimes are the enabled languages. Each gets its own warm pool.
	Runtimes map[string]Runtime
	// MemoryLimit is the maximum memory of a container, in bytes.
	MemoryLimit int64
	// CPULimit is the number of CPUs a container can use.
	CPULimit float64
	// Timeout bounds a single run.
	Timeout time.Duration
	// PoolSize is the number of pre-warmed containers per runtime.
	PoolSize int
}

// DefaultConfig enables python only.
func DefaultConfig() Config {
	return Config{
		Runtimes:    map[string]Runtime{"python": Runtimes["python"]},
		MemoryLimit: 128 * 1024 * 1024,
		CPULimit:    0.5,
		Timeout:     5 * time.Second,
		PoolSize:    2,
	}
}

// WithLanguages returns cfg with exactly the named known runtimes enabled.
// Unknown names are returned separately so the caller can warn about them.
func (cfg Config) WithLanguages(names ...string) (Config, []string) {
	var unknown []string
	enabled := make(map[string]Runtime, len(names))
	for _, name := range names {
		name = executor.NormalizeLanguage(name)
		rt, ok := Runtimes[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		enabled[name] = rt
	}
	cfg.Runtimes = enabled
	return cfg, unknown
}
