package users

import (
	"context"

	"github.com/ViniciusChelli/Seletto-sub001/internal/shared"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, offset, limit int) ([]User, int, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// Service handles user administration logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns one page of accounts with paging metadata.
func (s *Service) ListUsers(ctx context.Context, page, pageSize int) ([]User, shared.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	list, total, err := s.repo.ListUsers(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(page, pageSize, total), nil
}

// SetActive enables or disables an account.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}
