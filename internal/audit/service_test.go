package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	entries []Entry
	window  struct {
		offset int
		limit  int
	}
}

func (s *stubRepo) TimelineWindow(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Entry, error) {
	s.window.offset = offset
	s.window.limit = limit
	if offset >= len(s.entries) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.entries) {
		end = len(s.entries)
	}
	return s.entries[offset:end], nil
}

func (s *stubRepo) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit > len(s.entries) {
		limit = len(s.entries)
	}
	return s.entries[:limit], nil
}

func makeEntries(n int) []Entry {
	entries := make([]Entry, n)
	base := time.Now()
	for i := range entries {
		entries[i] = Entry{ID: int64(n - i), ActorID: 1, Action: "policy.toggle", Entity: "security_policy", EntityID: "9", At: base.Add(-time.Duration(i) * time.Minute)}
	}
	return entries
}

func TestTimelinePagesNewestFirst(t *testing.T) {
	repo := &stubRepo{entries: makeEntries(25)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 20})
	require.NoError(t, err)

	assert.Len(t, result.Rows, 20)
	assert.True(t, result.Paging.HasNext)
	assert.Equal(t, 2, result.Paging.NextPage)
	assert.Equal(t, 21, repo.window.limit, "fetches one extra row to detect a next page")

	second, err := svc.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 20})
	require.NoError(t, err)
	assert.Len(t, second.Rows, 5)
	assert.False(t, second.Paging.HasNext)
	assert.Equal(t, 1, second.Paging.PrevPage)
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &stubRepo{entries: makeEntries(80)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 50)
}

func TestRecentClampsLimit(t *testing.T) {
	repo := &stubRepo{entries: makeEntries(10)}
	svc := NewService(repo)

	rows, err := svc.Recent(context.Background(), -1)
	require.NoError(t, err)
	assert.Len(t, rows, 10)
}
