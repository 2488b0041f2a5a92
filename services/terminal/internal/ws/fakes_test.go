package ws

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errFakeClosed = errors.New("fake: connection closed")

type fakeConn struct {
	mu      sync.Mutex
	inbound chan []byte
	closed  chan struct{}
	once    sync.Once
	written [][]byte

	// honourDeadline makes ReadMessage fail once the read deadline passes, like a real
	// socket whose peer went silent.
	honourDeadline bool
	deadline       time.Time
	deadlines      int
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 16), closed: make(chan struct{})}
}

var errFakeTimeout = errors.New("fake: i/o timeout")

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	if !f.honourDeadline {
		select {
		case msg := <-f.inbound:
			return 1, msg, nil
		case <-f.closed:
			return 0, nil, errFakeClosed
		}
	}
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case msg := <-f.inbound:
			return 1, msg, nil
		case <-f.closed:
			return 0, nil, errFakeClosed
		case now := <-tick.C:
			f.mu.Lock()
			expired := !f.deadline.IsZero() && now.After(f.deadline)
			f.mu.Unlock()
			if expired {
				return 0, nil, errFakeTimeout
			}
		}
	}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-f.closed:
		return errFakeClosed
	default:
	}
	if messageType != 1 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, append([]byte(nil), data...))
	return nil
}

func (f *fakeConn) SetReadLimit(int64) {}

func (f *fakeConn) SetReadDeadline(t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadline = t
	f.deadlines++
	return nil
}

func (f *fakeConn) deadlineCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deadlines
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) SetPongHandler(func(appData string) error) {}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

// drop simulates the remote side closing the channel.
func (f *fakeConn) drop() { _ = f.Close() }

func (f *fakeConn) push(raw string) { f.inbound <- []byte(raw) }

func (f *fakeConn) frames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.written))
	for i, w := range f.written {
		out[i] = string(w)
	}
	return out
}

type dialResult struct {
	conn *fakeConn
	err  error
}

// fakeDialer hands out scripted results; once the script is exhausted every dial fails.
type fakeDialer struct {
	mu      sync.Mutex
	script  []dialResult
	dials   int
	lastURL string
}

func (d *fakeDialer) Dial(_ context.Context, url string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	d.lastURL = url
	if len(d.script) == 0 {
		return nil, errors.New("fake: dial refused")
	}
	next := d.script[0]
	d.script = d.script[1:]
	if next.err != nil {
		return nil, next.err
	}
	return next.conn, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

type fakeTimer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

func (t *fakeTimer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// fakeScheduler records scheduled reconnects; tests fire them explicitly.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Stopper {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{delay: d, fn: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *fakeScheduler) delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.timers))
	for i, t := range s.timers {
		out[i] = t.delay
	}
	return out
}

// fire runs the i-th scheduled callback on the calling goroutine.
func (s *fakeScheduler) fire(i int) {
	s.mu.Lock()
	t := s.timers[i]
	s.mu.Unlock()
	if !t.isStopped() {
		t.fn()
	}
}

func waitFor(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
