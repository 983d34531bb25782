package worker_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morflash/morflash/internal/worker"
)

type countingJob struct {
	ran  *atomic.Int32
	done *sync.WaitGroup
	err  error
}

func (j *countingJob) Run(ctx context.Context) error {
	defer j.done.Done()
	j.ran.Add(1)
	return j.err
}

func (j *countingJob) Name() string { return "counting-job" }

func TestPool_RunsSubmittedJobs(t *testing.T) {
	p := worker.NewPool(2, 8)
	p.Start(context.Background())
	defer p.Stop()

	var ran atomic.Int32
	var done sync.WaitGroup
	done.Add(5)
	for i := 0; i < 5; i++ {
		p.Submit(&countingJob{ran: &ran, done: &done})
	}

	waitTimeout(t, &done, 5*time.Second)
	assert.Equal(t, int32(5), ran.Load())
}

func TestPool_JobFailureDoesNotStopWorkers(t *testing.T) {
	p := worker.NewPool(1, 8)
	p.Start(context.Background())
	defer p.Stop()

	var ran atomic.Int32
	var done sync.WaitGroup
	done.Add(2)
	p.Submit(&countingJob{ran: &ran, done: &done, err: assert.AnError})
	p.Submit(&countingJob{ran: &ran, done: &done})

	waitTimeout(t, &done, 5*time.Second)
	assert.Equal(t, int32(2), ran.Load(), "a failed job must not take the worker down")
}

func TestPool_DefaultsOnBadSizes(t *testing.T) {
	p := worker.NewPool(0, 0)
	p.Start(context.Background())
	defer p.Stop()

	var ran atomic.Int32
	var done sync.WaitGroup
	done.Add(1)
	p.Submit(&countingJob{ran: &ran, done: &done})

	waitTimeout(t, &done, 5*time.Second)
	assert.Equal(t, int32(1), ran.Load())
	assert.Equal(t, 0, p.QueueSize())
}

func waitTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	ch := make(chan struct{})
	go func() {
		wg.Wait()
		close(ch)
	}()
	select {
	case <-ch:
	case <-time.After(d):
		require.FailNow(t, "timed out waiting for jobs to finish")
	}
}
