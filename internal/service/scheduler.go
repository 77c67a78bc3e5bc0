package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler keeps the session warm: it refreshes the pair shortly before it
// expires, independent of request traffic.
//
// A new non-empty token (a login, or a refresh done by the interceptor)
// restarts the loop from an immediate check. An empty token idles it.
type Scheduler struct {
	refresher SessionRefresher
	session   SessionWatcher
	log       *zap.SugaredLogger

	mu          sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
	unsubscribe func()
}

func NewScheduler(refresher SessionRefresher, session SessionWatcher, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{refresher: refresher, session: session, log: log}
}

// Start launches the loop. Calling Start on a running scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	wake := make(chan string, 1)
	s.unsubscribe = s.session.Subscribe(func(token string) {
		offerLatest(wake, token)
	})
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, wake, s.done)
}

// Stop cancels the pending timer and waits for the loop to exit. No refresh
// is started after Stop returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done, unsubscribe := s.cancel, s.done, s.unsubscribe
	s.cancel, s.done, s.unsubscribe = nil, nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	unsubscribe()
	cancel()
	<-done
}

func (s *Scheduler) loop(ctx context.Context, wake <-chan string, done chan<- struct{}) {
	defer close(done)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	disarm := func() {
		if timer != nil {
			timer.Stop()
		}
		timerC = nil
	}
	run := func() {
		disarm()
		out := s.refresher.RefreshIfNeeded(ctx)
		if ctx.Err() != nil {
			return
		}
		if out.SessionEnded() {
			s.log.Debugw("Session scheduler idle")
			return
		}
		timer = time.NewTimer(out.NextDelay)
		timerC = timer.C
		s.log.Debugw("Next token check scheduled", "in", out.NextDelay)
	}

	run()
	for {
		select {
		case <-ctx.Done():
			disarm()
			return
		case <-timerC:
			run()
		case token := <-wake:
			if token == "" {
				disarm()
				continue
			}
			run()
		}
	}
}

// offerLatest replaces whatever is buffered in ch with v without blocking.
func offerLatest(ch chan string, v string) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
