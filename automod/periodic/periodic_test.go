package periodic

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testRunner() *Runner {
	r := NewRunner(nil)
	r.InitialRetryInterval = time.Millisecond
	r.MaxRetryInterval = 5 * time.Millisecond
	return r
}

func TestRunOncePanicIsolated(t *testing.T) {
	assert := assert.New(t)
	r := testRunner()

	err := r.RunOnce(context.Background(), Task{
		Name:     "panics",
		Interval: time.Second,
		Run: func(ctx context.Context) error {
			panic("boom")
		},
	})
	assert.Error(err)
	assert.Contains(err.Error(), "boom")
}

func TestRunOnceRetries(t *testing.T) {
	assert := assert.New(t)
	r := testRunner()

	var calls atomic.Int32
	err := r.RunOnce(context.Background(), Task{
		Name:       "flaky",
		Interval:   time.Second,
		MaxRetries: 3,
		Run: func(ctx context.Context) error {
			if calls.Add(1) < 3 {
				return errors.New("transient")
			}
			return nil
		},
	})
	assert.NoError(err)
	assert.Equal(int32(3), calls.Load())
}

func TestRunOnceRetryLimit(t *testing.T) {
	assert := assert.New(t)
	r := testRunner()

	for _, retries := range []uint64{0, 2} {
		var calls atomic.Int32
		err := r.RunOnce(context.Background(), Task{
			Name:       "broken",
			Interval:   time.Second,
			MaxRetries: retries,
			Run: func(ctx context.Context) error {
				calls.Add(1)
				return errors.New("permanent")
			},
		})
		assert.Error(err)
		assert.Equal(int32(retries+1), calls.Load())
	}
}

func TestRunnerSurvivesFailingTicks(t *testing.T) {
	assert := assert.New(t)
	r := testRunner()
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	r.Start(ctx, Task{
		Name:     "always-fails",
		Interval: 5 * time.Millisecond,
		Run: func(ctx context.Context) error {
			if calls.Add(1)%2 == 0 {
				panic("even tick")
			}
			return errors.New("odd tick")
		},
	})

	assert.Eventually(func() bool { return calls.Load() >= 4 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	r.Wait()
}
