package detector

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"FaceCrop/internal/entity"
)

type countingDetector struct {
	cfg    Config
	mu     sync.Mutex
	closed int
}

func (d *countingDetector) Detect(ctx context.Context, img image.Image) ([]entity.Candidate, error) {
	return nil, nil
}

func (d *countingDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

func (d *countingDetector) closeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

type recordingFactory struct {
	mu    sync.Mutex
	built []*countingDetector
}

func (f *recordingFactory) build(cfg Config) (Detector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := &countingDetector{cfg: cfg}
	f.built = append(f.built, d)
	return d, nil
}

func TestPool_ReusesDetectorPerConfig(t *testing.T) {
	factory := &recordingFactory{}
	pool := NewPool(factory.build, 4)

	cfg := Config{ScaleFactor: 1.1, MinNeighbors: 2, MinSize: 40, Confidence: 0.5}

	d1, release1, err := pool.Acquire(cfg)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release1()

	d2, release2, err := pool.Acquire(cfg)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release2()

	if d1 != d2 {
		t.Error("same config should return the same detector")
	}
	if len(factory.built) != 1 {
		t.Errorf("factory calls: got %d, want 1", len(factory.built))
	}

	_, release3, err := pool.Acquire(Config{ScaleFactor: 1.2, MinNeighbors: 2, MinSize: 40, Confidence: 0.5})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release3()

	if len(factory.built) != 2 {
		t.Errorf("factory calls after new config: got %d, want 2", len(factory.built))
	}
}

func TestPool_EvictsOldestAndClosesWhenIdle(t *testing.T) {
	factory := &recordingFactory{}
	pool := NewPool(factory.build, 1)

	_, releaseFirst, err := pool.Acquire(Config{MinSize: 1})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	_, releaseSecond, err := pool.Acquire(Config{MinSize: 2})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer releaseSecond()

	first := factory.built[0]
	if first.closeCount() != 0 {
		t.Error("evicted detector must stay open while in use")
	}

	releaseFirst()
	releaseFirst()
	if got := first.closeCount(); got != 1 {
		t.Errorf("evicted detector close count: got %d, want 1", got)
	}

	if pool.Len() != 1 {
		t.Errorf("pool size: got %d, want 1", pool.Len())
	}
}

func TestPool_FactoryError(t *testing.T) {
	wantErr := errors.New("boom")
	pool := NewPool(func(cfg Config) (Detector, error) { return nil, wantErr }, 2)

	if _, _, err := pool.Acquire(Config{}); !errors.Is(err, wantErr) {
		t.Errorf("Acquire: got %v, want %v", err, wantErr)
	}
	if pool.Len() != 0 {
		t.Errorf("failed builds must not be cached, got %d entries", pool.Len())
	}
}

func TestPool_Close(t *testing.T) {
	factory := &recordingFactory{}
	pool := NewPool(factory.build, 4)

	_, release, err := pool.Acquire(Config{MinSize: 1})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release()

	if err := pool.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if factory.built[0].closeCount() != 1 {
		t.Error("Close should close idle detectors")
	}
	if _, _, err := pool.Acquire(Config{MinSize: 1}); err == nil {
		t.Error("Acquire after Close should fail")
	}
}

func TestPool_Concurrent(t *testing.T) {
	factory := &recordingFactory{}
	pool := NewPool(factory.build, 2)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, release, err := pool.Acquire(Config{MinSize: i % 3})
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			defer release()
			if _, err := d.Detect(context.Background(), image.NewNRGBA(image.Rect(0, 0, 1, 1))); err != nil {
				t.Errorf("Detect: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if pool.Len() > 2 {
		t.Errorf("pool should stay bounded, got %d", pool.Len())
	}
}

func TestPool_SlowBuildDoesNotBlockCachedConfig(t *testing.T) {
	cached := Config{MinSize: 1}
	slow := Config{MinSize: 2}

	building := make(chan struct{})
	unblock := make(chan struct{})
	pool := NewPool(func(cfg Config) (Detector, error) {
		if cfg == slow {
			close(building)
			<-unblock
		}
		return &countingDetector{cfg: cfg}, nil
	}, 4)

	_, release, err := pool.Acquire(cached)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release()

	slowDone := make(chan error, 1)
	go func() {
		_, release, err := pool.Acquire(slow)
		if err == nil {
			release()
		}
		slowDone <- err
	}()
	<-building

	acquired := make(chan error, 1)
	go func() {
		_, release, err := pool.Acquire(cached)
		if err == nil {
			release()
		}
		acquired <- err
	}()

	select {
	case err := <-acquired:
		if err != nil {
			t.Errorf("Acquire cached: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("cached config blocked behind a slow build")
	}

	close(unblock)
	if err := <-slowDone; err != nil {
		t.Errorf("Acquire slow: %v", err)
	}
}

func TestPool_ConcurrentBuildKeepsOneDetector(t *testing.T) {
	cfg := Config{MinSize: 3}

	var mu sync.Mutex
	var built []*countingDetector
	started := make(chan struct{}, 2)
	unblock := make(chan struct{})
	pool := NewPool(func(cfg Config) (Detector, error) {
		d := &countingDetector{cfg: cfg}
		mu.Lock()
		built = append(built, d)
		mu.Unlock()
		started <- struct{}{}
		<-unblock
		return d, nil
	}, 4)

	results := make(chan Detector, 2)
	for i := 0; i < 2; i++ {
		go func() {
			d, release, err := pool.Acquire(cfg)
			if err != nil {
				t.Errorf("Acquire: %v", err)
				results <- nil
				return
			}
			release()
			results <- d
		}()
	}
	<-started
	<-started
	close(unblock)

	first, second := <-results, <-results
	if first == nil || first != second {
		t.Fatal("both callers should share the cached detector")
	}
	if pool.Len() != 1 {
		t.Errorf("pool size: got %d, want 1", pool.Len())
	}

	closed := 0
	for _, d := range built {
		closed += d.closeCount()
	}
	if closed != 1 {
		t.Errorf("duplicate detectors closed: got %d, want 1", closed)
	}
}

func TestPool_CloseDuringBuild(t *testing.T) {
	building := make(chan struct{})
	unblock := make(chan struct{})
	d := &countingDetector{}
	pool := NewPool(func(cfg Config) (Detector, error) {
		close(building)
		<-unblock
		return d, nil
	}, 4)

	done := make(chan error, 1)
	go func() {
		_, _, err := pool.Acquire(Config{})
		done <- err
	}()
	<-building

	if err := pool.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	close(unblock)

	if err := <-done; err == nil {
		t.Error("Acquire finishing after Close should fail")
	}
	if d.closeCount() != 1 {
		t.Errorf("detector built after Close must be closed, got %d", d.closeCount())
	}
}

func TestNewFactory_UnknownBackend(t *testing.T) {
	if _, err := NewFactory(Options{Backend: "dlib"}); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("NewFactory: got %v, want ErrUnknownBackend", err)
	}
}

func TestNewFactory_MissingResources(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "pigo cascade", opts: Options{Backend: BackendPigo, PigoCascadePath: "/nonexistent/facefinder"}},
		{name: "haar cascade", opts: Options{Backend: BackendHaar, HaarCascadePath: "/nonexistent/haar.xml"}},
		{name: "yunet model", opts: Options{Backend: BackendYuNet, YuNetModelPath: "/nonexistent/yunet.onnx"}},
		{name: "remote client", opts: Options{Backend: BackendRemote}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewFactory(tc.opts); err == nil {
				t.Error("expected error for missing backend resource")
			}
		})
	}
}

func TestRanksByConfidence(t *testing.T) {
	tests := map[string]bool{
		BackendPigo:   true,
		"":            true,
		BackendYuNet:  true,
		BackendRemote: true,
		BackendHaar:   false,
	}

	for backend, want := range tests {
		if got := RanksByConfidence(backend); got != want {
			t.Errorf("RanksByConfidence(%q): got %v, want %v", backend, got, want)
		}
	}
}
