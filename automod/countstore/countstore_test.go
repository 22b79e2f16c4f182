package countstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allPeriods = []string{PeriodHour, PeriodDay, PeriodTotal}

func testCountStoreBasics(t *testing.T, cs CountStore) {
	assert := assert.New(t)
	ctx := context.Background()

	c, err := cs.GetCount(ctx, CounterMessages, "user1", PeriodTotal)
	assert.NoError(err)
	assert.Zero(c)
	assert.NoError(cs.Increment(ctx, CounterMessages, "user1"))
	assert.NoError(cs.Increment(ctx, CounterMessages, "user1"))

	for _, period := range allPeriods {
		c, err = cs.GetCount(ctx, CounterMessages, "user1", period)
		assert.NoError(err)
		assert.Equal(2, c, period)
	}

	c, err = cs.GetCount(ctx, CounterMessages, "user2", PeriodTotal)
	assert.NoError(err)
	assert.Zero(c)
	c, err = cs.GetCount(ctx, CounterReportsMade, "user1", PeriodTotal)
	assert.NoError(err)
	assert.Zero(c)

	// repeated members are only counted once
	for _, author := range []string{"one", "one", "two", "one", "three"} {
		assert.NoError(cs.IncrementDistinct(ctx, CounterClusterAuthors, "cluster1", author))
	}
	for _, period := range allPeriods {
		c, err = cs.GetCountDistinct(ctx, CounterClusterAuthors, "cluster1", period)
		assert.NoError(err)
		assert.Equal(3, c, period)
	}
	c, err = cs.GetCountDistinct(ctx, CounterClusterAuthors, "cluster2", PeriodDay)
	assert.NoError(err)
	assert.Zero(c)
}

func testCountStoreRollover(t *testing.T, cs CountStore, now *time.Time) {
	assert := assert.New(t)
	ctx := context.Background()

	*now = time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	assert.NoError(cs.Increment(ctx, CounterAutomatedActions, "perm_ban"))
	assert.NoError(cs.Increment(ctx, CounterAutomatedActions, "perm_ban"))

	*now = now.Add(time.Hour)
	assert.NoError(cs.Increment(ctx, CounterAutomatedActions, "perm_ban"))
	expect := map[string]int{PeriodHour: 1, PeriodDay: 3, PeriodTotal: 3}
	for period, want := range expect {
		c, err := cs.GetCount(ctx, CounterAutomatedActions, "perm_ban", period)
		assert.NoError(err)
		assert.Equal(want, c, period)
	}

	*now = time.Date(2024, 3, 2, 0, 5, 0, 0, time.UTC)
	expect = map[string]int{PeriodHour: 0, PeriodDay: 0, PeriodTotal: 3}
	for period, want := range expect {
		c, err := cs.GetCount(ctx, CounterAutomatedActions, "perm_ban", period)
		assert.NoError(err)
		assert.Equal(want, c, period)
	}
}

func TestMemCountStoreBasics(t *testing.T) {
	testCountStoreBasics(t, NewMemCountStore())
}

func TestMemCountStoreRollover(t *testing.T) {
	var now time.Time
	cs := NewMemCountStore()
	cs.Now = func() time.Time { return now }
	testCountStoreRollover(t, cs, &now)
}

func TestRedisCountStoreBasics(t *testing.T) {
	mr := miniredis.RunT(t)
	cs, err := NewRedisCountStore("redis://" + mr.Addr())
	require.NoError(t, err)
	testCountStoreBasics(t, cs)

	assert.True(t, mr.Exists(redisCountPrefix+"messages/user1"))
	assert.Zero(t, mr.TTL(redisCountPrefix+"messages/user1"))
}

func TestRedisCountStoreRollover(t *testing.T) {
	assert := assert.New(t)
	mr := miniredis.RunT(t)
	var now time.Time
	cs := NewRedisCountStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	cs.Now = func() time.Time { return now }
	testCountStoreRollover(t, cs, &now)

	assert.Equal(2*time.Hour, mr.TTL(redisCountPrefix+"automated-actions/perm_ban/2024-03-01T11"))
	assert.Equal(48*time.Hour, mr.TTL(redisCountPrefix+"automated-actions/perm_ban/2024-03-01"))
}

func TestNewRedisCountStoreUnreachable(t *testing.T) {
	_, err := NewRedisCountStore("not a url")
	assert.Error(t, err)
}

func TestMemCountStoreConcurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	cs := NewMemCountStore()

	// writers and readers interleaved; run with -race
	var wg conc.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Go(func() {
			for j := 0; j < 25; j++ {
				assert.NoError(cs.Increment(ctx, CounterMessages, "alice"))
				assert.NoError(cs.IncrementDistinct(ctx, CounterClusterAuthors, "c1", "alice"))
			}
		})
		wg.Go(func() {
			for j := 0; j < 25; j++ {
				_, err := cs.GetCount(ctx, CounterMessages, "alice", PeriodTotal)
				assert.NoError(err)
			}
		})
	}
	wg.Wait()

	c, err := cs.GetCount(ctx, CounterMessages, "alice", PeriodTotal)
	assert.NoError(err)
	assert.Equal(100, c)
	c, err = cs.GetCountDistinct(ctx, CounterClusterAuthors, "c1", PeriodTotal)
	assert.NoError(err)
	assert.Equal(1, c)
}
