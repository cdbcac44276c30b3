package service

import (
	"context"
	"errors"

	"github.com/cwrk-planet/duet/internal/domain"
)

var ErrHistoryDisabled = errors.New("session history is disabled")

type SessionStore interface {
	List(ctx context.Context, limit int, cursor string) ([]domain.Session, string, error)
	Get(ctx context.Context, id string) (*domain.Session, error)
}

type HistoryService struct {
	store SessionStore
}

// NewHistoryService accepts a nil store; every call then reports ErrHistoryDisabled.
func NewHistoryService(store SessionStore) *HistoryService {
	return &HistoryService{store: store}
}

// List возвращает сессии, новые первыми, с курсорной пагинацией.
func (s *HistoryService) List(ctx context.Context, limit int, cursor string) ([]domain.Session, string, error) {
	if s.store == nil {
		return nil, "", ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}
	return s.store.List(ctx, limit, cursor)
}

func (s *HistoryService) Get(ctx context.Context, id string) (*domain.Session, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}
	return s.store.Get(ctx, id)
}
