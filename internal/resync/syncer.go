package resync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"zonesync/internal/config"
	"zonesync/internal/db"
	"zonesync/internal/reload"
	"zonesync/internal/zone"
)

// ErrSubscriptionLost marks a push channel liveness failure. The syncer
// falls back to polling for the rest of the process lifetime; it never
// promotes itself back to push mode.
var ErrSubscriptionLost = errors.New("change subscription lost")

// Store is the snapshot surface of the record store.
type Store interface {
	ListDomains(ctx context.Context) ([]db.Domain, error)
	ListRecords(ctx context.Context, domainID uint) ([]db.Record, error)
	CountChangedSince(ctx context.Context, since time.Time) (int64, error)
}

// EventSource is a push notification stream. Events must close on
// connection loss so the consumer can tell "dead" from "quiet".
type EventSource interface {
	Events() <-chan db.ChangeEvent
	Ping() error
}

type Mode string

const (
	ModePush Mode = "push"
	ModePoll Mode = "poll"
)

// Status is a snapshot of the syncer for the ops API.
type Status struct {
	Mode         Mode      `json:"mode"`
	LastSync     time.Time `json:"last_sync"`
	Syncs        uint64    `json:"syncs"`
	LastDomains  int       `json:"last_domains"`
	LastFailures int       `json:"last_failures"`
}

// Syncer drives the whole pipeline: change detection in push or poll mode,
// full resync of every domain, publish and reload. Exactly one resync runs
// at a time; triggers arriving mid-resync coalesce into at most one more.
type Syncer struct {
	store     Store
	renderer  *zone.Renderer
	publisher *zone.Publisher
	trigger   reload.Trigger
	events    EventSource // nil starts the detector directly in poll mode

	pollInterval     time.Duration
	livenessInterval time.Duration
	log              *logrus.Logger

	resyncCh chan struct{}

	mu     sync.Mutex
	status Status
}

func New(store Store, renderer *zone.Renderer, publisher *zone.Publisher, trigger reload.Trigger, events EventSource, pollInterval time.Duration, log *logrus.Logger) *Syncer {
	return &Syncer{
		store:            store,
		renderer:         renderer,
		publisher:        publisher,
		trigger:          trigger,
		events:           events,
		pollInterval:     pollInterval,
		livenessInterval: config.LivenessInterval,
		log:              log,
		resyncCh:         make(chan struct{}, 1),
	}
}

// Request asks for a resync. It never blocks: while one resync is in
// flight, any number of requests collapse into a single pending one.
func (s *Syncer) Request() {
	select {
	case s.resyncCh <- struct{}{}:
	default:
	}
}

// Status returns a snapshot of the syncer state.
func (s *Syncer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Run blocks until ctx is cancelled. It always performs one resync at
// startup, then consumes change events in push mode if a subscription is
// available, degrading permanently to polling when it is lost.
func (s *Syncer) Run(ctx context.Context) {
	s.Request()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.worker(ctx)
	}()

	if s.events != nil {
		s.setMode(ModePush)
		if err := s.runPush(ctx); err != nil && ctx.Err() == nil {
			s.log.WithError(err).Warn("push mode failed, falling back to polling")
			s.setMode(ModePoll)
			s.runPoll(ctx)
		}
	} else {
		s.setMode(ModePoll)
		s.runPoll(ctx)
	}
	wg.Wait()
}

// worker serializes resyncs: one at a time, queued triggers run once after.
func (s *Syncer) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.resyncCh:
			s.resyncAll(ctx)
		}
	}
}

// runPush blocks on the subscription stream and a periodic liveness probe.
// It returns nil on cancellation and ErrSubscriptionLost when the channel
// dies or the probe fails.
func (s *Syncer) runPush(ctx context.Context) error {
	s.log.Info("listening for change notifications")
	ticker := time.NewTicker(s.livenessInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-s.events.Events():
			if !ok {
				return fmt.Errorf("notification stream closed: %w", ErrSubscriptionLost)
			}
			s.log.WithFields(logrus.Fields{
				"table":  ev.Table,
				"action": ev.Action,
			}).Info("change notification received")
			s.Request()
		case <-ticker.C:
			if err := s.events.Ping(); err != nil {
				return fmt.Errorf("liveness probe failed: %v: %w", err, ErrSubscriptionLost)
			}
		}
	}
}

// runPoll compares change counts against a watermark on a fixed interval.
// It is a liveness test, not a diff: any positive count triggers a full
// resync of all domains.
func (s *Syncer) runPoll(ctx context.Context) {
	s.log.WithField("interval", s.pollInterval).Info("polling for changes")
	watermark := time.Now().Add(-time.Minute)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			changed, err := s.store.CountChangedSince(ctx, watermark)
			if err != nil {
				if ctx.Err() == nil {
					s.log.WithError(err).Error("change check failed")
				}
				// keep the old watermark so these changes are retried
				continue
			}
			if changed > 0 {
				s.log.WithField("changes", changed).Info("changes detected via polling")
				s.Request()
			}
			watermark = time.Now()
		}
	}
}

// resyncAll rebuilds every domain from a fresh snapshot. Per-domain
// failures are logged and skipped; the reload trigger fires once per cycle
// regardless.
func (s *Syncer) resyncAll(ctx context.Context) {
	start := time.Now()
	domains, err := s.store.ListDomains(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.WithError(err).Error("resync aborted: cannot list domains")
		}
		return
	}

	failures := 0
	for _, d := range domains {
		if ctx.Err() != nil {
			return
		}
		if err := s.syncDomain(ctx, d); err != nil {
			s.log.WithError(err).WithField("domain", d.Name).Error("domain sync failed, previous file kept")
			failures++
		}
	}

	if err := s.trigger.Reload(ctx); err != nil && ctx.Err() == nil {
		s.log.WithError(err).Warn("reload signal failed, relying on auto-reload")
	}

	s.mu.Lock()
	s.status.LastSync = time.Now()
	s.status.Syncs++
	s.status.LastDomains = len(domains)
	s.status.LastFailures = failures
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"domains":  len(domains),
		"failures": failures,
		"elapsed":  time.Since(start).Round(time.Millisecond),
	}).Info("resync completed")
}

func (s *Syncer) syncDomain(ctx context.Context, d db.Domain) error {
	records, err := s.store.ListRecords(ctx, d.ID)
	if err != nil {
		return err
	}

	rendered, warnings := s.renderer.Render(d.Name, records)
	for _, w := range warnings {
		s.log.WithField("domain", d.Name).Warn(w)
	}
	if err := zone.Check(rendered.Domain, rendered.Text); err != nil {
		return fmt.Errorf("rendered zone rejected: %w", err)
	}
	if err := s.publisher.Publish(rendered.Domain, rendered.Text); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"domain":  d.Name,
		"records": len(records),
		"bytes":   rendered.Size,
	}).Debug("zone file published")
	return nil
}

func (s *Syncer) setMode(m Mode) {
	s.mu.Lock()
	s.status.Mode = m
	s.mu.Unlock()
}
