package detector

import (
	"errors"
	"sync"
)

const DefaultPoolSize = 16

var errPoolClosed = errors.New("detector pool closed")

type poolEntry struct {
	detector Detector
	refs     int
	evicted  bool
}

// Pool keeps one detector per distinct Config and hands it out to concurrent callers. When
// more than size configurations are alive the least recently created one is evicted; it is
// closed as soon as its last user releases it.
type Pool struct {
	mu      sync.Mutex
	factory Factory
	size    int
	entries map[Config]*poolEntry
	order   []Config
	closed  bool
}

func NewPool(factory Factory, size int) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	return &Pool{
		factory: factory,
		size:    size,
		entries: make(map[Config]*poolEntry),
	}
}

// Acquire returns the detector for cfg, building it on first use. Builds run outside the pool
// lock so a slow model load does not stall callers of cached configurations. The caller must
// call release once it is done with the detector.
func (p *Pool) Acquire(cfg Config) (Detector, func(), error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, nil, errPoolClosed
	}
	entry, ok := p.entries[cfg]
	if ok {
		entry.refs++
		p.mu.Unlock()
		return entry.detector, p.releaser(entry), nil
	}
	p.mu.Unlock()

	d, err := p.factory(cfg)
	if err != nil {
		return nil, nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		d.Close()
		return nil, nil, errPoolClosed
	}
	// Another caller may have built the same configuration meanwhile.
	if entry, ok = p.entries[cfg]; ok {
		d.Close()
	} else {
		entry = &poolEntry{detector: d}
		p.entries[cfg] = entry
		p.order = append(p.order, cfg)
		p.evictLocked()
	}

	entry.refs++
	return entry.detector, p.releaser(entry), nil
}

func (p *Pool) releaser(entry *poolEntry) func() {
	var once sync.Once
	return func() {
		once.Do(func() { p.release(entry) })
	}
}

func (p *Pool) release(entry *poolEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry.refs--
	if entry.evicted && entry.refs == 0 {
		entry.detector.Close()
	}
}

func (p *Pool) evictLocked() {
	for len(p.order) > p.size {
		oldest := p.order[0]
		p.order = p.order[1:]

		entry := p.entries[oldest]
		delete(p.entries, oldest)
		entry.evicted = true
		if entry.refs == 0 {
			entry.detector.Close()
		}
	}
}

// Len returns the number of live configurations.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Close releases every idle detector. Detectors still in use are closed by their last release.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for cfg, entry := range p.entries {
		entry.evicted = true
		if entry.refs == 0 {
			if err := entry.detector.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		delete(p.entries, cfg)
	}
	p.order = nil
	p.closed = true

	return errors.Join(errs...)
}
