// Package service holds the business rules between the HTTP handlers and
// the repositories.
//
//	Handler (HTTP)     → parses requests, writes responses
//	Service (business) → validates, enforces ownership, orchestrates
//	Repository (data)  → reads and writes SQLite
//
// Services take primitives and return domain errors from apperror, never
// HTTP types, so the same rules serve the API, the CLI's local mode and
// tests. Dependencies are interfaces from internal/repository, so tests pass
// in-memory fakes.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/memopad/internal/apperror"
	"github.com/sakif/memopad/internal/markdown"
	"github.com/sakif/memopad/internal/model"
	"github.com/sakif/memopad/internal/repository"
)

const (
	// MaxContentLength caps a memo body at 1 MiB.
	MaxContentLength = 1 << 20
	MaxListLimit     = 1000
)

// MemoService handles memo business logic. Every method acts on behalf of
// userID and never sees another user's memos.
type MemoService struct {
	repo   repository.MemoRepository
	logger *slog.Logger
}

func NewMemoService(repo repository.MemoRepository, logger *slog.Logger) *MemoService {
	return &MemoService{
		repo:   repo,
		logger: logger,
	}
}

func validateContent(content string) error {
	if len(content) > MaxContentLength {
		return apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d bytes or less", MaxContentLength))
	}
	return nil
}

func requireID(field, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", apperror.ValidationFailed(field, field+" is required")
	}
	return id, nil
}

// Create saves a new memo owned by userID. Empty content is allowed: a new
// memo starts blank and takes the default title.
func (s *MemoService) Create(ctx context.Context, userID, content string) (*model.Memo, error) {
	if _, err := requireID("userId", userID); err != nil {
		return nil, err
	}
	if err := validateContent(content); err != nil {
		return nil, err
	}

	memo := &model.Memo{UserID: userID, Content: content}
	if err := s.repo.Create(ctx, memo); err != nil {
		s.logger.Error("failed to create memo",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating memo: %w", err)
	}

	s.logger.Info("memo created",
		slog.String("id", memo.ID),
		slog.String("userID", userID),
	)
	return memo, nil
}

// Get returns one of userID's memos.
func (s *MemoService) Get(ctx context.Context, userID, id string) (*model.Memo, error) {
	id, err := requireID("id", id)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, userID, id)
}

// List returns userID's memos newest first. limit zero returns all of them.
func (s *MemoService) List(ctx context.Context, userID string, limit, offset int, query string) ([]model.Memo, error) {
	if limit < 0 {
		limit = 0
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	memos, err := s.repo.List(ctx, userID, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
		Query:  query,
	})
	if err != nil {
		s.logger.Error("failed to list memos", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing memos: %w", err)
	}
	return memos, nil
}

// Update replaces the content of one of userID's memos. The title is
// re-derived by the repository.
func (s *MemoService) Update(ctx context.Context, userID, id, content string) (*model.Memo, error) {
	id, err := requireID("id", id)
	if err != nil {
		return nil, err
	}
	if err := validateContent(content); err != nil {
		return nil, err
	}

	memo := &model.Memo{ID: id, UserID: userID, Content: content}
	if err := s.repo.Update(ctx, memo); err != nil {
		return nil, err
	}

	s.logger.Info("memo updated",
		slog.String("id", memo.ID),
		slog.String("title", memo.Title),
	)
	return memo, nil
}

// Delete removes one of userID's memos.
func (s *MemoService) Delete(ctx context.Context, userID, id string) error {
	id, err := requireID("id", id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}

	s.logger.Info("memo deleted", slog.String("id", id))
	return nil
}

// RenderHTML returns the HTML rendering of one of userID's memos.
func (s *MemoService) RenderHTML(ctx context.Context, userID, id string) (*model.Memo, string, error) {
	memo, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, "", err
	}
	return memo, markdown.RenderHTML(memo.Content), nil
}

// CodeBlock returns the n-th fenced code block (zero-based) of one of
// userID's memos.
func (s *MemoService) CodeBlock(ctx context.Context, userID, id string, n int) (markdown.CodeBlock, error) {
	memo, err := s.Get(ctx, userID, id)
	if err != nil {
		return markdown.CodeBlock{}, err
	}
	blocks := markdown.Parse(memo.Content).CodeBlocks()
	if n < 0 || n >= len(blocks) {
		return markdown.CodeBlock{}, apperror.NotFound("code block", fmt.Sprintf("%s/%d", id, n))
	}
	return blocks[n], nil
}
