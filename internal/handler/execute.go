package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/memopad/internal/apperror"
	"github.com/sakif/memopad/internal/executor"
)

// ExecuteHandler runs the fenced code blocks of stored memos.
type ExecuteHandler struct {
	memos  MemoService
	exec   executor.Executor
	logger *slog.Logger
}

// NewExecuteHandler creates an ExecuteHandler. exec may be nil when no
// sandbox is available; runs then fail as temporarily unavailable.
func NewExecuteHandler(memos MemoService, exec executor.Executor, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{
		memos:  memos,
		exec:   exec,
		logger: logger,
	}
}

// HandleRun executes the n-th (zero-based) fenced block of a memo.
//
// HTTP: POST /api/memos/{id}/blocks/{n}/run -> executor.ExecutionResult
func (h *ExecuteHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 0 {
		writeError(w, apperror.ValidationFailed("n", "block index must be a non-negative integer"))
		return
	}

	block, err := h.memos.CodeBlock(r.Context(), userID, chi.URLParam(r, "id"), n)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.exec == nil {
		writeError(w, apperror.Transient("code execution is unavailable", nil))
		return
	}
	if block.Code == "" {
		writeError(w, apperror.ValidationFailed("code", "code block is empty"))
		return
	}

	h.logger.Info("executing code block",
		slog.String("memoID", chi.URLParam(r, "id")),
		slog.Int("block", n),
		slog.String("language", block.Lang),
	)

	result, err := h.exec.Execute(r.Context(), executor.ExecutionRequest{
		Language: block.Lang,
		Code:     block.Code,
	})
	if errors.Is(err, executor.ErrUnsupportedLanguage) {
		writeError(w, apperror.ValidationFailed("language", "no runtime for language "+strconv.Quote(block.Lang)))
		return
	}
	if err != nil {
		h.logger.Error("code execution failed", slog.String("error", err.Error()))
		writeError(w, apperror.Transient("code execution failed", err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}
