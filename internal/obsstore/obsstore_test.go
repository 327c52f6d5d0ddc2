package obsstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuffler/reportmaster/internal/idutil"
	"github.com/shuffler/reportmaster/internal/kv/memkv"
	"github.com/shuffler/reportmaster/internal/obsstore"
)

func obs(metricID uint32, day idutil.DayIndex, arrivalID uint32, url string) obsstore.Observation {
	return obsstore.Observation{
		Metadata: obsstore.Metadata{CustomerID: 1, ProjectID: 1, MetricID: metricID, DayIndex: day, ArrivalID: arrivalID},
		Parts:    map[string][]byte{"url": []byte(url)},
	}
}

func TestAddAndQueryObservations_ScansDayRange(t *testing.T) {
	ctx := context.Background()
	store := obsstore.New(memkv.New())

	require.NoError(t, store.AddObservation(ctx, obs(5, 100, 1, "a")))
	require.NoError(t, store.AddObservation(ctx, obs(5, 101, 2, "b")))
	require.NoError(t, store.AddObservation(ctx, obs(5, 102, 3, "c")))
	// Outside the query's day range; must not be returned.
	require.NoError(t, store.AddObservation(ctx, obs(5, 200, 4, "out of range")))
	// Different metric entirely; must not be returned.
	require.NoError(t, store.AddObservation(ctx, obs(6, 101, 5, "other metric")))

	result, err := store.QueryObservations(ctx, 1, 1, 5, 100, 102, nil, 10, "")
	require.NoError(t, err)
	assert.Empty(t, result.PaginationToken)
	require.Len(t, result.Rows, 3)
	assert.Equal(t, []byte("a"), result.Rows[0].Parts["url"])
	assert.Equal(t, []byte("c"), result.Rows[2].Parts["url"])
}

func TestQueryObservations_Paginates(t *testing.T) {
	ctx := context.Background()
	store := obsstore.New(memkv.New())
	for i := uint32(0); i < 5; i++ {
		require.NoError(t, store.AddObservation(ctx, obs(1, idutil.DayIndex(100+i), i, "x")))
	}

	var all []obsstore.Row
	token := ""
	for {
		result, err := store.QueryObservations(ctx, 1, 1, 1, 100, 104, nil, 2, token)
		require.NoError(t, err)
		all = append(all, result.Rows...)
		if result.PaginationToken == "" {
			break
		}
		token = result.PaginationToken
	}
	assert.Len(t, all, 5)
}

func TestQueryObservations_PartProjection(t *testing.T) {
	ctx := context.Background()
	store := obsstore.New(memkv.New())
	require.NoError(t, store.AddObservation(ctx, obsstore.Observation{
		Metadata: obsstore.Metadata{CustomerID: 1, ProjectID: 1, MetricID: 1, DayIndex: 100, ArrivalID: 1},
		Parts:    map[string][]byte{"url": []byte("a"), "referrer": []byte("b")},
	}))

	result, err := store.QueryObservations(ctx, 1, 1, 1, 100, 100, []string{"url"}, 10, "")
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, map[string][]byte{"url": []byte("a")}, result.Rows[0].Parts)
}

func TestQueryObservations_RejectsNonPositiveMaxResults(t *testing.T) {
	ctx := context.Background()
	store := obsstore.New(memkv.New())
	_, err := store.QueryObservations(ctx, 1, 1, 1, 0, 1, nil, 0, "")
	assert.Error(t, err)
}

func TestDeleteAllForMetric_PurgesOnlyThatMetric(t *testing.T) {
	ctx := context.Background()
	store := obsstore.New(memkv.New())
	require.NoError(t, store.AddObservation(ctx, obs(1, 100, 1, "a")))
	require.NoError(t, store.AddObservation(ctx, obs(2, 100, 1, "b")))

	require.NoError(t, store.DeleteAllForMetric(ctx, 1, 1, 1))

	result, err := store.QueryObservations(ctx, 1, 1, 1, idutil.DayIndexPastInfinity, idutil.DayIndexFutureInfinity, nil, 10, "")
	require.NoError(t, err)
	assert.Empty(t, result.Rows)

	result, err = store.QueryObservations(ctx, 1, 1, 2, idutil.DayIndexPastInfinity, idutil.DayIndexFutureInfinity, nil, 10, "")
	require.NoError(t, err)
	assert.Len(t, result.Rows, 1)
}
