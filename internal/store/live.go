package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ChangeFeed reports changed paths from a remote backend. Listen calls ready
// once the feed is attached, then changed for every change, and returns when
// ctx ends or the connection drops.
type ChangeFeed interface {
	Listen(ctx context.Context, ready func(), changed func(path string)) error
}

type readFunc func(ctx context.Context, path string, q Query) (Snapshot, error)

// liveQueries keeps subscriptions current from a ChangeFeed by re-reading
// every subscription a change touches. Each (re)attach of the feed re-reads
// all of them, since changes made while detached were never heard.
type liveQueries struct {
	feed       ChangeFeed
	read       readFunc
	retryAfter time.Duration

	mu      sync.Mutex
	subs    map[int]*subscription
	nextSub int
	paused  bool
	stop    context.CancelFunc
}

func newLiveQueries(feed ChangeFeed, read readFunc) *liveQueries {
	return &liveQueries{
		feed:       feed,
		read:       read,
		retryAfter: time.Second,
		subs:       map[int]*subscription{},
	}
}

// add registers a subscription whose first snapshot is initial and starts
// the feed if it is not running.
func (l *liveQueries) add(ctx context.Context, initial Snapshot, q Query, fn func(Snapshot)) func() {
	sub := &subscription{
		path:  initial.Path,
		query: q,
		ch:    make(chan Snapshot, 64),
		done:  make(chan struct{}),
	}
	sub.ch <- initial

	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = sub
	if l.stop == nil && !l.paused {
		l.startLocked()
	}
	l.mu.Unlock()

	go func() {
		for {
			select {
			case snap := <-sub.ch:
				fn(snap)
			case <-sub.done:
				return
			case <-ctx.Done():
				sub.stop()
				l.remove(id)
				return
			}
		}
	}()
	return func() {
		sub.stop()
		l.remove(id)
	}
}

func (l *liveQueries) remove(id int) {
	l.mu.Lock()
	delete(l.subs, id)
	l.mu.Unlock()
}

func (l *liveQueries) pause() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paused = true
	if l.stop != nil {
		l.stop()
		l.stop = nil
	}
}

func (l *liveQueries) resume() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paused = false
	if l.stop == nil && len(l.subs) > 0 {
		l.startLocked()
	}
}

func (l *liveQueries) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	l.stop = cancel
	go l.listen(ctx)
}

func (l *liveQueries) listen(ctx context.Context) {
	for {
		err := l.feed.Listen(ctx,
			func() { l.refresh(ctx, nil) },
			func(path string) { l.refresh(ctx, &path) },
		)
		if ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Msg("change feed dropped, reconnecting")
		select {
		case <-time.After(l.retryAfter):
		case <-ctx.Done():
			return
		}
	}
}

// refresh re-reads the subscriptions related to changed, or all of them
// when changed is nil.
func (l *liveQueries) refresh(ctx context.Context, changed *string) {
	l.mu.Lock()
	targets := make([]*subscription, 0, len(l.subs))
	for _, sub := range l.subs {
		if changed == nil || related(sub.path, *changed) {
			targets = append(targets, sub)
		}
	}
	l.mu.Unlock()
	for _, sub := range targets {
		snap, err := l.read(ctx, sub.path, sub.query)
		if err != nil {
			log.Warn().Err(err).Str("path", sub.path).Msg("subscription read failed")
			continue
		}
		select {
		case sub.ch <- snap:
		case <-sub.done:
		case <-ctx.Done():
			return
		}
	}
}
