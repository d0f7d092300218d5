package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"kknotes-backend-go/internal/store"
)

// ReadMonitor soft-monitors store reads. A slow or failed read never gets
// cancelled or retried; it only triggers one cycle of the store's change
// feed at a time. Reads and writes from other requests keep working during
// the cycle, and subscribers get a fresh snapshot when it ends.
type ReadMonitor struct {
	Store          store.Store
	WarnAfter      time.Duration
	ReconnectDelay time.Duration
	OfflineWindow  time.Duration

	cycling atomic.Bool
	cycles  atomic.Int64
	wg      sync.WaitGroup
}

func NewReadMonitor(s store.Store, warnAfter, reconnectDelay, offlineWindow time.Duration) *ReadMonitor {
	return &ReadMonitor{
		Store:          s,
		WarnAfter:      warnAfter,
		ReconnectDelay: reconnectDelay,
		OfflineWindow:  offlineWindow,
	}
}

// Watch runs fn and reports its error unchanged.
func (m *ReadMonitor) Watch(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	if m == nil {
		return fn(ctx)
	}
	done := make(chan struct{})
	go func() {
		timer := time.NewTimer(m.WarnAfter)
		defer timer.Stop()
		select {
		case <-timer.C:
			log.Warn().Str("read", label).Dur("after", m.WarnAfter).Msg("store read is slow")
			m.Reconnect()
		case <-done:
		}
	}()
	err := fn(ctx)
	close(done)
	if err != nil && isRemoteFailure(err) {
		log.Error().Err(err).Str("read", label).Msg("store read failed")
		m.Reconnect()
	}
	return err
}

// Reconnect starts a cycle unless one is already running. It reports
// whether a new cycle was started.
func (m *ReadMonitor) Reconnect() bool {
	if m == nil || !m.cycling.CompareAndSwap(false, true) {
		return false
	}
	m.cycles.Add(1)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.cycling.Store(false)
		time.Sleep(m.ReconnectDelay)
		m.Store.PauseSync()
		log.Info().Msg("store change feed detached")
		time.Sleep(m.OfflineWindow)
		m.Store.ResumeSync()
		log.Info().Msg("store change feed reattached")
	}()
	return true
}

// Cycles reports how many reconnect cycles have been started.
func (m *ReadMonitor) Cycles() int64 {
	return m.cycles.Load()
}

func (m *ReadMonitor) Wait() {
	if m != nil {
		m.wg.Wait()
	}
}

func isRemoteFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var serr ServiceError
	if errors.As(err, &serr) {
		return serr.Kind == KindRemoteUnavailable
	}
	return !errors.Is(err, store.ErrInvalidPath)
}
