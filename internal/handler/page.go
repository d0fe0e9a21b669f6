package handler

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goodsign/monday"

	"github.com/sakif/memopad/internal/apperror"
	"github.com/sakif/memopad/internal/auth"
	"github.com/sakif/memopad/internal/editor"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageData is what every page template receives. Body is the renderer's
// output, which escapes all user text itself.
type pageData struct {
	Title    string
	Lang     string
	SignedIn bool
	Groups   []editor.Group
	Body     template.HTML
	Updated  string
}

// PageHandler serves the read-only HTML pages: the grouped memo list and a
// full-page preview of one memo.
//
// Each page is parsed together with base.html once at startup. base.html
// leaves a {{template "content" .}} hole that the page fills.
type PageHandler struct {
	pages  map[string]*template.Template
	memos  MemoService
	locale monday.Locale
	now    func() time.Time
	logger *slog.Logger
}

// NewPageHandler parses the embedded templates. locale picks the day labels
// of the memo list.
func NewPageHandler(memos MemoService, locale monday.Locale, logger *slog.Logger) (*PageHandler, error) {
	pages := make(map[string]*template.Template)
	for _, name := range []string{"index.html", "memo.html"} {
		tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &PageHandler{
		pages:  pages,
		memos:  memos,
		locale: locale,
		now:    time.Now,
		logger: logger,
	}, nil
}

func (h *PageHandler) lang() string {
	lang, _, _ := strings.Cut(string(h.locale), "_")
	return lang
}

func (h *PageHandler) render(w http.ResponseWriter, status int, page string, data pageData) {
	data.Lang = h.lang()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.pages[page].ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
	}
}

// HandleIndex lists the signed-in user's memos grouped by day, or offers
// sign-in to anonymous visitors.
//
// HTTP: GET /
func (h *PageHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.render(w, http.StatusOK, "index.html", pageData{Title: "Sign in"})
		return
	}

	memos, err := h.memos.List(r.Context(), userID, 0, 0, r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("failed to list memos", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.render(w, http.StatusOK, "index.html", pageData{
		Title:    "Memos",
		SignedIn: true,
		Groups:   editor.GroupByDay(editor.SortByCreated(memos), h.now(), h.locale),
	})
}

// HandleMemo serves a full HTML preview of one memo. Anonymous visitors
// are sent to the sign-in page.
//
// HTTP: GET /memos/{id}
func (h *PageHandler) HandleMemo(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	memo, body, err := h.memos.RenderHTML(r.Context(), userID, chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	case err != nil:
		h.logger.Error("failed to render memo", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.render(w, http.StatusOK, "memo.html", pageData{
		Title:    memo.Title,
		SignedIn: true,
		Body:     template.HTML(body),
		Updated:  memo.UpdatedAt.In(h.now().Location()).Format("2006-01-02 15:04"),
	})
}
