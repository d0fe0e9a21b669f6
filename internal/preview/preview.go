// Package preview renders markdown files to standalone HTML pages and
// re-renders them as the source changes on disk.
package preview

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sakif/memopad/internal/markdown"
	"github.com/sakif/memopad/internal/model"
)

// DefaultDebounce coalesces the burst of events one editor save produces.
const DefaultDebounce = 50 * time.Millisecond

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<article>
{{.Body}}
</article>
</body>
</html>
`))

// Page writes src as a complete HTML document titled after its first line.
func Page(w io.Writer, src string) error {
	return page.Execute(w, struct {
		Title string
		Body  template.HTML
	}{
		Title: model.DeriveTitle(src),
		Body:  template.HTML(markdown.RenderHTML(src)),
	})
}

// RenderFile renders the markdown file at src into the HTML file at dst.
// The output is replaced atomically so a browser never loads half a page.
func RenderFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("preview: reading %s: %w", src, err)
	}

	var buf bytes.Buffer
	if err := Page(&buf, string(data)); err != nil {
		return fmt.Errorf("preview: rendering %s: %w", src, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".preview-*.html")
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("preview: writing %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	return os.Rename(tmp.Name(), dst)
}

// Watch calls onChange after each settled change to the file at path until
// ctx is done. The parent directory is watched rather than the file, since
// many editors save by writing a new file and renaming it into place.
// onChange errors are logged and watching continues.
func Watch(ctx context.Context, path string, debounce time.Duration, onChange func() error, logger *slog.Logger) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("preview: watching %s: %w", filepath.Dir(abs), err)
	}

	// A stopped timer with its channel drained.
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("source changed", slog.String("path", event.Name), slog.String("op", event.Op.String()))
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", slog.String("error", err.Error()))

		case <-timer.C:
			if err := onChange(); err != nil {
				logger.Warn("re-render failed", slog.String("error", err.Error()))
			}
		}
	}
}
