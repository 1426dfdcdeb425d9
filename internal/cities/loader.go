package cities

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Loader memoizes stores per source ID. Each source is loaded at most once per
// process; failures are remembered too, so a broken dataset is not re-read.
type Loader struct {
	logger *logrus.Logger

	mu      sync.Mutex
	entries map[string]*loadEntry
}

type loadEntry struct {
	once  sync.Once
	done  bool
	store *Store
	err   error
}

func NewLoader(logger *logrus.Logger) *Loader {
	return &Loader{
		logger:  logger,
		entries: make(map[string]*loadEntry),
	}
}

// Load returns the store for src, loading it on first use. Concurrent callers
// for the same source block until the single load finishes and share its result.
func (l *Loader) Load(ctx context.Context, src Source) (*Store, error) {
	entry := l.entry(src.ID())

	entry.once.Do(func() {
		start := time.Now()
		// the first caller's cancellation must not poison the cached result
		records, err := src.Load(context.WithoutCancel(ctx))

		l.mu.Lock()
		defer l.mu.Unlock()
		entry.done = true

		if err != nil {
			entry.err = err
			l.logger.WithError(err).WithField("source", src.ID()).Error("Failed to load city dataset")
			return
		}

		entry.store = NewStore(records)
		l.logger.WithFields(logrus.Fields{
			"source":    src.ID(),
			"records":   len(records),
			"countries": len(entry.store.countries),
			"duration":  time.Since(start).String(),
		}).Info("City dataset loaded")
	})

	return entry.store, entry.err
}

// Status reports whether src has been loaded and with what outcome, without triggering a load.
func (l *Loader) Status(src Source) (loaded bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[src.ID()]
	if !ok || !entry.done {
		return false, nil
	}
	return entry.err == nil, entry.err
}

func (l *Loader) entry(id string) *loadEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[id]
	if !ok {
		entry = &loadEntry{}
		l.entries[id] = entry
	}
	return entry
}

// Handle binds a Loader to one Source.
type Handle struct {
	loader *Loader
	source Source
}

func NewHandle(loader *Loader, source Source) *Handle {
	return &Handle{loader: loader, source: source}
}

func (h *Handle) Store(ctx context.Context) (*Store, error) {
	return h.loader.Load(ctx, h.source)
}

func (h *Handle) Status() (bool, error) {
	return h.loader.Status(h.source)
}

func (h *Handle) SourceID() string {
	return h.source.ID()
}
