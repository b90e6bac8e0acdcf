package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/foldermirror/pkg/logging"
	"github.com/sdejongh/foldermirror/pkg/models"
)

// scriptedRunner replays a fixed sequence of results, then succeeds
type scriptedRunner struct {
	mu      gosync.Mutex
	calls   int
	results []error
	panicAt int // 1-based call that panics, 0 = never
	onRun   func(call int)
}

func (r *scriptedRunner) Run(ctx context.Context) (*models.CycleReport, error) {
	r.mu.Lock()
	r.calls++
	call := r.calls
	r.mu.Unlock()

	if r.onRun != nil {
		r.onRun(call)
	}
	if call == r.panicAt {
		panic("disk on fire")
	}

	report := models.NewCycleReport("cycle", "src", "dst", false)
	var err error
	if call <= len(r.results) {
		err = r.results[call-1]
	}
	if err != nil {
		report.Finish(models.StatusFailed)
	} else {
		report.Finish(models.StatusSuccess)
	}
	return report, err
}

func (r *scriptedRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestSchedulerMaxCycles(t *testing.T) {
	runner := &scriptedRunner{}
	logger := &recordingLogger{}
	s := NewScheduler(runner, time.Millisecond, logger, nil)
	s.MaxCycles = 3

	var reports int
	s.OnReport = func(report *models.CycleReport, err error) {
		reports++
		assert.NoError(t, err)
		assert.NotNil(t, report)
	}

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 3, runner.count())
	assert.Equal(t, 3, reports)
	assert.Len(t, logger.messages(logging.InfoLevel), 3)
	assert.Contains(t, logger.messages(logging.InfoLevel), "Synchronization complete. Waiting for next interval...")
}

func TestSchedulerContinuesAfterFailures(t *testing.T) {
	missing := &MissingSourceError{Path: "/gone", Err: errors.New("no such file or directory")}
	runner := &scriptedRunner{results: []error{missing, errors.New("listing failed"), nil}}
	logger := &recordingLogger{}
	s := NewScheduler(runner, time.Millisecond, logger, nil)
	s.MaxCycles = 3

	var errs []error
	s.OnReport = func(_ *models.CycleReport, err error) { errs = append(errs, err) }

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 3, runner.count())
	require.Len(t, errs, 3)
	assert.ErrorIs(t, errs[0], missing)
	assert.EqualError(t, errs[1], "listing failed")
	assert.NoError(t, errs[2])

	assert.Equal(t, []string{"Synchronization skipped. Retrying at next interval..."}, logger.messages(logging.WarnLevel))
	assert.Equal(t, []string{"Synchronization failed. Retrying at next interval..."}, logger.messages(logging.ErrorLevel))
}

func TestSchedulerRecoversPanic(t *testing.T) {
	runner := &scriptedRunner{panicAt: 1}
	logger := &recordingLogger{}
	s := NewScheduler(runner, time.Millisecond, logger, nil)
	s.MaxCycles = 2

	var errs []error
	s.OnReport = func(report *models.CycleReport, err error) {
		if err != nil {
			assert.Nil(t, report)
		}
		errs = append(errs, err)
	}

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 2, runner.count(), "the loop survives a panicking cycle")
	require.Len(t, errs, 2)
	assert.EqualError(t, errs[0], "unexpected error during synchronization: disk on fire")
	assert.NoError(t, errs[1])
	assert.Contains(t, logger.messages(logging.ErrorLevel), "Recovered from panic")
}

func TestSchedulerCancellation(t *testing.T) {
	t.Run("DuringWait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		runner := &scriptedRunner{onRun: func(int) { cancel() }}
		logger := &recordingLogger{}
		s := NewScheduler(runner, time.Hour, logger, nil)

		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("scheduler did not stop after cancellation")
		}
		assert.Equal(t, 1, runner.count())
		assert.Contains(t, logger.messages(logging.InfoLevel), "Synchronization stopped by user")
	})

	t.Run("WhileSleeping", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		runner := &scriptedRunner{}
		s := NewScheduler(runner, time.Hour, nil, nil)
		s.OnReport = func(*models.CycleReport, error) {
			time.AfterFunc(10*time.Millisecond, cancel)
		}

		start := time.Now()
		require.NoError(t, s.Run(ctx))
		assert.Less(t, time.Since(start), time.Minute)
		assert.Equal(t, 1, runner.count())
	})

	t.Run("BeforeStart", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		runner := &scriptedRunner{}

		require.NoError(t, NewScheduler(runner, time.Second, nil, nil).Run(ctx))
		assert.Equal(t, 0, runner.count())
	})
}

func TestSchedulerInvalidInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		err := NewScheduler(&scriptedRunner{}, interval, nil, nil).Run(context.Background())
		assert.Error(t, err)
	}
}

func TestSchedulerRealEngine(t *testing.T) {
	p := newTestPair(t, tree{"a.txt": "a"}, nil)
	s := NewScheduler(p.engine(), time.Millisecond, p.logger, nil)
	s.MaxCycles = 2

	var actionsPerCycle []int
	s.OnReport = func(report *models.CycleReport, err error) {
		require.NoError(t, err)
		actionsPerCycle = append(actionsPerCycle, report.Stats.Actions())
	}

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, []int{2, 0}, actionsPerCycle)
	assert.Equal(t, tree{"a.txt": "a"}, snapshot(t, p.replicaDir))
}

func TestRunPairs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg gosync.WaitGroup
	wg.Add(2)
	newRunner := func() *scriptedRunner {
		var once gosync.Once
		return &scriptedRunner{onRun: func(int) { once.Do(wg.Done) }}
	}
	r1, r2 := newRunner(), newRunner()

	done := make(chan error, 1)
	go func() {
		done <- RunPairs(ctx,
			NewScheduler(r1, time.Hour, nil, nil),
			NewScheduler(r2, time.Hour, nil, nil),
		)
	}()

	wg.Wait()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("RunPairs did not return after cancellation")
	}
	assert.Equal(t, 1, r1.count())
	assert.Equal(t, 1, r2.count())
}

func TestRunPairsInvalid(t *testing.T) {
	err := RunPairs(context.Background(),
		NewScheduler(&scriptedRunner{}, 0, nil, nil),
	)
	assert.Error(t, err)
}
