package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ViniciusChelli/Seletto-sub001/internal/shared"
)

type fakeRepo struct {
	users      []User
	lastOffset int
	lastLimit  int
}

func (f *fakeRepo) ListUsers(ctx context.Context, offset, limit int) ([]User, int, error) {
	f.lastOffset = offset
	f.lastLimit = limit
	end := offset + limit
	if offset > len(f.users) {
		return nil, len(f.users), nil
	}
	if end > len(f.users) {
		end = len(f.users)
	}
	return f.users[offset:end], len(f.users), nil
}

func (f *fakeRepo) SetActive(ctx context.Context, id int64, active bool) error {
	for i := range f.users {
		if f.users[i].ID == id {
			f.users[i].IsActive = active
			return nil
		}
	}
	return shared.ErrNotFound
}

func seedRepo(n int) *fakeRepo {
	repo := &fakeRepo{}
	for i := 1; i <= n; i++ {
		repo.users = append(repo.users, User{ID: int64(i), IsActive: true})
	}
	return repo
}

func TestListUsersDefaultsPageSize(t *testing.T) {
	repo := seedRepo(3)
	svc := NewService(repo)

	list, pagination, err := svc.ListUsers(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.Equal(t, 0, repo.lastOffset)
	assert.Equal(t, defaultPageSize, repo.lastLimit)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 3, pagination.Total)
	assert.Equal(t, 1, pagination.TotalPages)
}

func TestListUsersClampsPageSize(t *testing.T) {
	repo := seedRepo(1)
	svc := NewService(repo)

	_, _, err := svc.ListUsers(context.Background(), 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, maxPageSize, repo.lastLimit)
}

func TestListUsersComputesOffsetAndPages(t *testing.T) {
	repo := seedRepo(25)
	svc := NewService(repo)

	list, pagination, err := svc.ListUsers(context.Background(), 3, 10)
	require.NoError(t, err)
	assert.Equal(t, 20, repo.lastOffset)
	assert.Len(t, list, 5)
	assert.Equal(t, 3, pagination.Page)
	assert.Equal(t, 25, pagination.Total)
	assert.Equal(t, 3, pagination.TotalPages)
}
