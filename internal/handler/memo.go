// Package handler contains the HTTP handlers of the memo server.
//
// Handlers parse requests, call a service and write JSON or HTML back. They
// hold no business rules: ownership, validation and title derivation all
// live in internal/service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/memopad/internal/apperror"
	"github.com/sakif/memopad/internal/auth"
	"github.com/sakif/memopad/internal/markdown"
	"github.com/sakif/memopad/internal/model"
)

// MemoService is the part of service.MemoService the handlers use.
type MemoService interface {
	List(ctx context.Context, userID string, limit, offset int, query string) ([]model.Memo, error)
	Get(ctx context.Context, userID, id string) (*model.Memo, error)
	Create(ctx context.Context, userID, content string) (*model.Memo, error)
	Update(ctx context.Context, userID, id, content string) (*model.Memo, error)
	Delete(ctx context.Context, userID, id string) error
	RenderHTML(ctx context.Context, userID, id string) (*model.Memo, string, error)
	CodeBlock(ctx context.Context, userID, id string, n int) (markdown.CodeBlock, error)
}

// MemoHandler serves the /api/memos resource. Every route sits behind
// auth.RequireAuth.
type MemoHandler struct {
	memos  MemoService
	logger *slog.Logger
}

func NewMemoHandler(memos MemoService, logger *slog.Logger) *MemoHandler {
	return &MemoHandler{
		memos:  memos,
		logger: logger,
	}
}

// contentRequest is the body of POST and PATCH. Content is a pointer so a
// PATCH without it is rejected rather than blanking the memo.
type contentRequest struct {
	Content *string `json:"content"`
}

// currentUser returns the authenticated user id set by the auth middleware.
func currentUser(r *http.Request) (string, error) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return "", apperror.Unauthorized("authentication required")
	}
	return userID, nil
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperror.ValidationFailed(name, name+" must be a non-negative integer")
	}
	return n, nil
}

// HandleList returns the user's memos, newest first.
//
// HTTP: GET /api/memos?limit=&offset=&q=
func (h *MemoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, err)
		return
	}

	memos, err := h.memos.List(r.Context(), userID, limit, offset, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	if memos == nil {
		memos = []model.Memo{}
	}
	writeJSON(w, http.StatusOK, memos)
}

// HandleGetByID returns one memo.
//
// HTTP: GET /api/memos/{id}
func (h *MemoHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	memo, err := h.memos.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, memo)
}

// HandleCreate creates a memo. A missing body or content creates an empty
// memo, which is how the editor starts a new one.
//
// HTTP: POST /api/memos
func (h *MemoHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req contentRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	content := ""
	if req.Content != nil {
		content = *req.Content
	}

	memo, err := h.memos.Create(r.Context(), userID, content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, memo)
}

// HandleUpdate replaces a memo's content.
//
// HTTP: PATCH /api/memos/{id}
func (h *MemoHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req contentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Content == nil {
		writeError(w, apperror.ValidationFailed("content", "content is required"))
		return
	}

	memo, err := h.memos.Update(r.Context(), userID, chi.URLParam(r, "id"), *req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, memo)
}

// HandleDelete removes a memo.
//
// HTTP: DELETE /api/memos/{id} -> 204 No Content
func (h *MemoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.memos.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// htmlResponse carries a rendered fragment.
type htmlResponse struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
	HTML  string `json:"html"`
}

// HandleHTML returns a memo rendered to an HTML fragment.
//
// HTTP: GET /api/memos/{id}/html
func (h *MemoHandler) HandleHTML(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	memo, html, err := h.memos.RenderHTML(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, htmlResponse{ID: memo.ID, Title: memo.Title, HTML: html})
}
