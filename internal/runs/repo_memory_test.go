package runs

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepoConcurrentCreateAssignsDistinctVersions(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	const n = 50

	versions := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			run, err := repo.CreateNextVersion(ctx, Run{ID: uuid.NewString(), QuoteID: "q-1", Status: StatusRequested})
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			versions[i] = run.Version
		}(i)
	}
	wg.Wait()

	sort.Ints(versions)
	for i, v := range versions {
		require.Equal(t, i+1, v)
	}
}

func TestMemoryRepoVersionsArePerQuote(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	a, err := repo.CreateNextVersion(ctx, Run{ID: "a", QuoteID: "q-1"})
	require.NoError(t, err)
	b, err := repo.CreateNextVersion(ctx, Run{ID: "b", QuoteID: "q-2"})
	require.NoError(t, err)
	c, err := repo.CreateNextVersion(ctx, Run{ID: "c", QuoteID: "q-1"})
	require.NoError(t, err)

	assert.Equal(t, 1, a.Version)
	assert.Equal(t, 1, b.Version)
	assert.Equal(t, 2, c.Version)
}

func TestMemoryRepoActivateKeepsSingleActive(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	for _, id := range []string{"r1", "r2", "r3"} {
		_, err := repo.CreateNextVersion(ctx, Run{ID: id, QuoteID: "q-1", Status: StatusReady})
		require.NoError(t, err)
	}

	require.NoError(t, repo.Activate(ctx, "q-1", "r1"))
	require.NoError(t, repo.Activate(ctx, "q-1", "r3"))

	runs, err := repo.ListByQuote(ctx, "q-1", 0)
	require.NoError(t, err)
	active := 0
	for _, r := range runs {
		if r.IsActive {
			active++
			assert.Equal(t, "r3", r.ID)
		}
	}
	assert.Equal(t, 1, active)
	assert.ErrorIs(t, repo.Activate(ctx, "q-2", "r1"), ErrNotFound)
}

func TestMemoryRepoDiscardedRunIgnoresStatusUpdates(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	_, err := repo.CreateNextVersion(ctx, Run{ID: "r1", QuoteID: "q-1", Status: StatusReady})
	require.NoError(t, err)

	_, err = repo.Discard(ctx, "r1", "wrong languages")
	require.NoError(t, err)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, "r1", StatusCompleted), ErrRunDiscarded)
	assert.ErrorIs(t, repo.Activate(ctx, "q-1", "r1"), ErrRunDiscarded)

	run, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, StatusDiscarded, run.Status)
	require.NotNil(t, run.DiscardReason)
	assert.Equal(t, "wrong languages", *run.DiscardReason)
}

func TestMemoryRepoListByQuoteNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := repo.CreateNextVersion(ctx, Run{ID: uuid.NewString(), QuoteID: "q-1"})
		require.NoError(t, err)
	}
	runs, err := repo.ListByQuote(ctx, "q-1", 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []int{5, 4, 3}, []int{runs[0].Version, runs[1].Version, runs[2].Version})
}
