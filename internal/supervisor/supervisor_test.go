package supervisor

import (
	"context"
	"errors"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/loykin/videospace/internal/history"
	"github.com/loykin/videospace/internal/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	pid        int
	terminated atomic.Bool
	termErr    error
	l          *fakeLauncher
}

func (h *fakeHandle) PID() int { return h.pid }
func (h *fakeHandle) Alive() bool {
	return !h.terminated.Load()
}
func (h *fakeHandle) Terminate() error {
	h.l.terminates.Add(1)
	if h.termErr != nil {
		return h.termErr
	}
	if h.terminated.CompareAndSwap(false, true) {
		h.l.live.Add(-1)
	}
	return nil
}

type fakeLauncher struct {
	spawns     atomic.Int32
	terminates atomic.Int32
	live       atomic.Int32
	maxLive    atomic.Int32
	spawnErr   error
	termErr    error
	delay      time.Duration
}

func (l *fakeLauncher) Launch(process.Spec) (Handle, error) {
	if l.spawnErr != nil {
		return nil, l.spawnErr
	}
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	n := l.spawns.Add(1)
	live := l.live.Add(1)
	for {
		m := l.maxLive.Load()
		if live <= m || l.maxLive.CompareAndSwap(m, live) {
			break
		}
	}
	return &fakeHandle{pid: 1000 + int(n), termErr: l.termErr, l: l}, nil
}

func testSpec() process.Spec {
	return process.Spec{Name: "video-server", Command: "node", Args: []string{"server.js"}, WorkDir: ".."}
}

func TestStartStatusStop(t *testing.T) {
	l := &fakeLauncher{}
	s := New(testSpec(), l, nil)
	ctx := context.Background()

	require.False(t, s.Status())

	msg, err := s.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, MsgStarted, msg)
	assert.True(t, s.Status())

	msg, err = s.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, MsgStopped, msg)
	assert.False(t, s.Status())
	assert.EqualValues(t, 1, l.spawns.Load())
	assert.EqualValues(t, 1, l.terminates.Load())
}

func TestStartTwiceSpawnsOnce(t *testing.T) {
	l := &fakeLauncher{}
	s := New(testSpec(), l, nil)

	_, err := s.Start(context.Background())
	require.NoError(t, err)
	msg, err := s.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MsgAlreadyRunning, msg)
	assert.EqualValues(t, 1, l.spawns.Load())
}

func TestStopWhenStoppedMakesNoOSCall(t *testing.T) {
	l := &fakeLauncher{}
	s := New(testSpec(), l, nil)

	msg, err := s.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MsgNotRunning, msg)
	assert.Zero(t, l.terminates.Load())
}

func TestSpawnFailureLeavesStopped(t *testing.T) {
	osErr := errors.New("exec: \"node\": executable file not found in $PATH")
	s := New(testSpec(), &fakeLauncher{spawnErr: osErr}, nil)

	msg, err := s.Start(context.Background())
	require.Error(t, err)
	assert.Empty(t, msg)
	var se *SpawnError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "node server.js", se.Command)
	assert.ErrorIs(t, err, osErr)
	assert.False(t, s.Status())
	assert.False(t, s.Info().Running)
}

func TestTerminationFailureForgetsHandle(t *testing.T) {
	osErr := errors.New("operation not permitted")
	l := &fakeLauncher{termErr: osErr}
	s := New(testSpec(), l, nil)

	_, err := s.Start(context.Background())
	require.NoError(t, err)

	_, err = s.Stop(context.Background())
	var te *TerminationError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 1001, te.PID)
	assert.ErrorIs(t, err, osErr)
	assert.False(t, s.Status())

	msg, err := s.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MsgNotRunning, msg)
	assert.EqualValues(t, 1, l.terminates.Load(), "second stop must not retry the kill")
}

func TestConcurrentStartsSpawnExactlyOne(t *testing.T) {
	l := &fakeLauncher{delay: 5 * time.Millisecond}
	s := New(testSpec(), l, nil)

	var wg sync.WaitGroup
	msgs := make(chan string, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg, err := s.Start(context.Background())
			assert.NoError(t, err)
			msgs <- msg
		}()
	}
	wg.Wait()
	close(msgs)

	var got []string
	for m := range msgs {
		got = append(got, m)
	}
	assert.ElementsMatch(t, []string{MsgStarted, MsgAlreadyRunning}, got)
	assert.EqualValues(t, 1, l.spawns.Load())
}

func TestConcurrentStartStopStress(t *testing.T) {
	l := &fakeLauncher{}
	s := New(testSpec(), l, nil)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				switch (w + i) % 3 {
				case 0:
					_, _ = s.Start(context.Background())
				case 1:
					_, _ = s.Stop(context.Background())
				default:
					in := s.Info()
					if in.Running != (in.PID != 0) {
						t.Errorf("running=%v but pid=%d", in.Running, in.PID)
					}
				}
			}
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, l.maxLive.Load(), int32(1), "never more than one live process")
	in := s.Info()
	assert.Equal(t, in.Running, in.PID != 0)
	assert.Equal(t, s.Status(), l.live.Load() == 1)
}

func TestInfoSnapshot(t *testing.T) {
	s := New(testSpec(), &fakeLauncher{}, nil)
	in := s.Info()
	assert.Equal(t, "video-server", in.Name)
	assert.Equal(t, "node server.js", in.Command)
	assert.False(t, in.Running)
	assert.Zero(t, in.PID)

	_, err := s.Start(context.Background())
	require.NoError(t, err)
	in = s.Info()
	assert.True(t, in.Running)
	assert.True(t, in.Alive)
	assert.Equal(t, 1001, in.PID)
	assert.False(t, in.StartedAt.IsZero())
}

type chanSink struct{ ch chan history.Event }

func (c chanSink) Send(_ context.Context, e history.Event) error {
	c.ch <- e
	return nil
}

type failingSink struct{}

func (failingSink) Send(context.Context, history.Event) error { return errors.New("sink down") }

func waitEvent(t *testing.T, ch <-chan history.Event) history.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no history event received")
	}
	return history.Event{}
}

func TestHistoryRecordsTransitionsOnly(t *testing.T) {
	sink := chanSink{ch: make(chan history.Event, 8)}
	s := New(testSpec(), &fakeLauncher{}, nil)
	s.SetHistory(sink, failingSink{})
	ctx := context.Background()

	_, err := s.Start(ctx)
	require.NoError(t, err)
	e := waitEvent(t, sink.ch)
	assert.Equal(t, history.EventStart, e.Type)
	assert.Equal(t, 1001, e.PID)
	assert.Equal(t, "video-server", e.Name)
	assert.Equal(t, "node server.js", e.Command)

	// no-op transitions are not recorded
	_, _ = s.Start(ctx)

	_, err = s.Stop(ctx)
	require.NoError(t, err)
	e = waitEvent(t, sink.ch)
	assert.Equal(t, history.EventStop, e.Type)

	_, _ = s.Stop(ctx)
	select {
	case e := <-sink.ch:
		t.Fatalf("unexpected event %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

type slowSink struct {
	delay time.Duration
	mu    sync.Mutex
	got   []history.EventType
}

func (s *slowSink) Send(_ context.Context, e history.Event) error {
	time.Sleep(s.delay)
	s.mu.Lock()
	s.got = append(s.got, e.Type)
	s.mu.Unlock()
	return nil
}

func TestFlushWaitsForPendingSends(t *testing.T) {
	sink := &slowSink{delay: 100 * time.Millisecond}
	s := New(testSpec(), &fakeLauncher{}, nil)
	s.SetHistory(sink)
	ctx := context.Background()

	_, err := s.Start(ctx)
	require.NoError(t, err)
	_, err = s.Stop(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Flush(ctx))
	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.ElementsMatch(t, []history.EventType{history.EventStart, history.EventStop}, sink.got)
}

func TestFlushHonoursContext(t *testing.T) {
	sink := &slowSink{delay: time.Second}
	s := New(testSpec(), &fakeLauncher{}, nil)
	s.SetHistory(sink)
	_, err := s.Start(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Flush(ctx), context.DeadlineExceeded)
	require.NoError(t, s.Flush(context.Background()))
}

func TestFlushWithoutHistory(t *testing.T) {
	s := New(testSpec(), &fakeLauncher{}, nil)
	assert.NoError(t, s.Flush(context.Background()))
}

func TestHistoryNotRecordedOnSpawnFailure(t *testing.T) {
	sink := chanSink{ch: make(chan history.Event, 1)}
	s := New(testSpec(), &fakeLauncher{spawnErr: errors.New("nope")}, nil)
	s.SetHistory(sink)
	_, err := s.Start(context.Background())
	require.Error(t, err)
	select {
	case e := <-sink.ch:
		t.Fatalf("unexpected event %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRealProcessLifecycle(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sleep on Unix-like systems")
	}
	s := New(process.Spec{Name: "sleeper", Command: "sleep", Args: []string{"5"}}, nil, nil)
	ctx := context.Background()

	_, err := s.Start(ctx)
	require.NoError(t, err)
	require.True(t, s.Status())
	require.True(t, s.Info().Alive)

	msg, err := s.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, MsgStopped, msg)
	assert.False(t, s.Status())
}

func TestStatusDriftIsPreserved(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires true on Unix-like systems")
	}
	s := New(process.Spec{Name: "quick", Command: "true"}, nil, nil)
	_, err := s.Start(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return !s.Info().Alive }, 3*time.Second, 20*time.Millisecond)
	assert.True(t, s.Status(), "status reflects last known state only")

	// the reaped pid is never signalled
	_, err = s.Stop(context.Background())
	var te *TerminationError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, os.ErrProcessDone)
	assert.False(t, s.Status())
}

func TestRealSpawnFailure(t *testing.T) {
	s := New(process.Spec{Name: "missing", Command: "definitely-not-a-real-binary-xyz", Args: []string{"x"}}, nil, nil)
	_, err := s.Start(context.Background())
	var se *SpawnError
	require.ErrorAs(t, err, &se)
	assert.False(t, s.Status())
}
