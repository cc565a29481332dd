package usecase

import (
	"context"
	"fmt"
	"time"

	"PulseScan/internal/domain/models"
	domrepo "PulseScan/internal/domain/repository"
)

// HistoryUseCase provides business logic for retrieving stored scan scores.
type HistoryUseCase struct {
	store domrepo.ResultStore
}

func NewHistoryUseCase(store domrepo.ResultStore) *HistoryUseCase {
	return &HistoryUseCase{store: store}
}

type GetHistoryParams struct {
	Symbol string
	From   time.Time
	To     time.Time
	Limit  int
}

type GetHistoryResult struct {
	Symbol string
	From   time.Time
	To     time.Time
	Count  int
	Scores []models.CompositeScore
}

func (uc *HistoryUseCase) GetHistory(ctx context.Context, p GetHistoryParams) (*GetHistoryResult, error) {
	if uc.store == nil {
		return nil, fmt.Errorf("history store not configured")
	}
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if p.To.IsZero() {
		p.To = time.Now()
	}
	if p.From.IsZero() {
		p.From = p.To.Add(-24 * time.Hour)
	}
	if p.From.After(p.To) {
		return nil, fmt.Errorf("from must be <= to")
	}
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Limit > 1000 {
		p.Limit = 1000
	}

	scores, err := uc.store.QuerySymbol(ctx, p.Symbol, p.From, p.To, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	return &GetHistoryResult{
		Symbol: p.Symbol,
		From:   p.From,
		To:     p.To,
		Count:  len(scores),
		Scores: scores,
	}, nil
}
