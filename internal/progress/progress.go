package progress

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrRunning = errors.New("progress simulation is already running")

var DefaultStages = []string{
	"Parsing resume…",
	"Extracting skills…",
	"Matching skills…",
	"Scoring experience…",
	"Generating feedback…",
}

type Options struct {
	Step              int           `mapstructure:"step"`
	StepInterval      time.Duration `mapstructure:"step-interval"`
	Ceiling           int           `mapstructure:"ceiling"`
	AnimationDuration time.Duration `mapstructure:"animation"`
	FrameInterval     time.Duration `mapstructure:"frame-interval"`
	Stages            []string      `mapstructure:"stages"`
}

func DefaultOptions() Options {
	return Options{
		Step:              15,
		StepInterval:      1500 * time.Millisecond,
		Ceiling:           90,
		AnimationDuration: 800 * time.Millisecond,
		FrameInterval:     16 * time.Millisecond,
		Stages:            DefaultStages,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Step <= 0 {
		o.Step = d.Step
	}
	if o.StepInterval <= 0 {
		o.StepInterval = d.StepInterval
	}
	if o.Ceiling <= 0 || o.Ceiling > 100 {
		o.Ceiling = d.Ceiling
	}
	if o.AnimationDuration <= 0 {
		o.AnimationDuration = d.AnimationDuration
	}
	if o.FrameInterval <= 0 {
		o.FrameInterval = d.FrameInterval
	}
	if len(o.Stages) == 0 {
		o.Stages = d.Stages
	}
	return o
}

// Snapshot is the observable state of a simulation.
type Snapshot struct {
	Target  int
	Display float64
	Stage   string
	Running bool
}

// Simulator produces a perceived progress value while a request with no real
// progress reporting is in flight. Target climbs in fixed steps up to a
// ceiling and Display eases toward it. All callbacks run on the simulator's
// own goroutine.
type Simulator struct {
	opts   Options
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	target    int
	display   float64
	animFrom  float64
	animStart time.Time
	completed bool
	running   bool
	onUpdate  func(Snapshot)
	cancel    context.CancelFunc
	wake      chan struct{}

	wg sync.WaitGroup
}

func New(opts Options, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		opts:   opts.withDefaults(),
		logger: logger,
		now:    time.Now,
		wake:   make(chan struct{}, 1),
	}
}

// OnUpdate registers fn to be called after every change of the snapshot.
// fn must not call Cancel.
func (s *Simulator) OnUpdate(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpdate = fn
}

// Start resets the simulation to zero and runs it until Cancel is called or
// ctx is done.
func (s *Simulator) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.target = 0
	s.display = 0
	s.animFrom = 0
	s.completed = false

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Debug("progress simulation started", zap.Int("ceiling", s.opts.Ceiling))
	return nil
}

// SetTarget raises the target. Lower values are ignored.
func (s *Simulator) SetTarget(v int) {
	s.mu.Lock()
	changed := s.raiseLocked(min(v, 100))
	s.mu.Unlock()

	if changed {
		s.signal()
	}
}

// Complete snaps the target to 100 and stops the stepping.
func (s *Simulator) Complete() {
	s.mu.Lock()
	s.completed = true
	changed := s.raiseLocked(100)
	if !s.running {
		s.display = 100
	}
	s.mu.Unlock()

	if changed {
		s.signal()
	}
	s.logger.Debug("progress simulation completed")
}

// Cancel stops the simulation and waits for its goroutine. After Cancel
// returns no callback fires. Calling it more than once is safe.
func (s *Simulator) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	s.mu.Lock()
	if s.completed {
		s.display = float64(s.target)
	}
	s.mu.Unlock()
}

func (s *Simulator) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Simulator) snapshotLocked() Snapshot {
	return Snapshot{
		Target:  s.target,
		Display: s.display,
		Stage:   Stage(s.opts.Stages, s.target),
		Running: s.running,
	}
}

func (s *Simulator) raiseLocked(v int) bool {
	if v <= s.target {
		return false
	}
	s.target = v
	s.animFrom = s.display
	s.animStart = s.now()
	return true
}

func (s *Simulator) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Simulator) loop(ctx context.Context) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	step := time.NewTicker(s.opts.StepInterval)
	defer step.Stop()
	steps := step.C

	// frames is nil while nothing is animating, which disables its case.
	var frame *time.Ticker
	var frames <-chan time.Time
	arm := func() {
		if frame == nil {
			frame = time.NewTicker(s.opts.FrameInterval)
			frames = frame.C
		}
	}
	disarm := func() {
		if frame != nil {
			frame.Stop()
			frame, frames = nil, nil
		}
	}
	defer disarm()

	for {
		select {
		case <-ctx.Done():
			return
		case <-steps:
			if s.advance() {
				arm()
			}
		case <-s.wake:
			arm()
		case <-frames:
			if !s.animate() {
				disarm()
			}
		}

		if steps != nil && s.isCompleted() {
			step.Stop()
			steps = nil
		}
	}
}

func (s *Simulator) isCompleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// advance moves the target one step toward the ceiling.
func (s *Simulator) advance() bool {
	s.mu.Lock()
	if s.completed || s.target >= s.opts.Ceiling {
		s.mu.Unlock()
		return false
	}
	s.raiseLocked(min(s.target+s.opts.Step, s.opts.Ceiling))
	snap, fn := s.snapshotLocked(), s.onUpdate
	s.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
	return true
}

// animate renders one frame and reports whether more frames are needed.
func (s *Simulator) animate() bool {
	s.mu.Lock()
	to := float64(s.target)
	elapsed := s.now().Sub(s.animStart)
	next := math.Min(Ease(s.animFrom, to, elapsed, s.opts.AnimationDuration), 100)
	if next > s.display {
		s.display = next
	}
	done := elapsed >= s.opts.AnimationDuration || s.display >= to
	if done {
		s.display = to
	}
	snap, fn := s.snapshotLocked(), s.onUpdate
	s.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
	return !done
}

// Ease interpolates from → to with a cubic ease-out curve 1-(1-t)^3.
func Ease(from, to float64, elapsed, duration time.Duration) float64 {
	if duration <= 0 || elapsed >= duration {
		return to
	}
	if elapsed <= 0 {
		return from
	}
	t := float64(elapsed) / float64(duration)
	return from + (to-from)*(1-math.Pow(1-t, 3))
}

// Stage returns the label for target, splitting 0..100 evenly across stages.
func Stage(stages []string, target int) string {
	if len(stages) == 0 {
		return ""
	}
	width := 100.0 / float64(len(stages))
	idx := int(math.Floor(float64(target) / width))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(stages) {
		idx = len(stages) - 1
	}
	return stages[idx]
}
