package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jobcraft/jobcraft/internal/api"
	"github.com/jobcraft/jobcraft/internal/async"
	"github.com/jobcraft/jobcraft/internal/document"
	"github.com/jobcraft/jobcraft/internal/metrics"
	"github.com/jobcraft/jobcraft/internal/notify"
	"github.com/jobcraft/jobcraft/internal/progress"

	"go.uber.org/zap"
)

type State int

const (
	UploadResume State = iota
	EnterJobDescription
	Analyzing
	Results
)

func (s State) String() string {
	switch s {
	case UploadResume:
		return "UPLOAD_RESUME"
	case EnterJobDescription:
		return "ENTER_JOB_DESCRIPTION"
	case Analyzing:
		return "ANALYZING"
	case Results:
		return "RESULTS"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Validation failures. Their text is shown to the user as is.
var (
	ErrNoFile              = errors.New("Please upload a resume")
	ErrNotPDF              = errors.New("Please upload a PDF file")
	ErrEmptyJobDescription = errors.New("Please enter a job description")
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrClosed            = errors.New("analyzer is closed")
)

const (
	successMessage  = "Analysis complete"
	fallbackMessage = "An error occurred while analyzing the resume"
)

// Analyzer is the remote operation the machine drives.
type Analyzer interface {
	AnalyzeResume(ctx context.Context, file *document.File, jobDescription string) (*api.AnalysisResponse, error)
}

type Transition struct {
	From   State
	To     State
	Reason string
	At     time.Time
}

type Option func(*Machine)

func WithProgress(opts progress.Options) Option {
	return func(m *Machine) { m.progressOpts = opts }
}

// WithProgressListener receives every progress snapshot of an analysis.
func WithProgressListener(fn func(progress.Snapshot)) Option {
	return func(m *Machine) { m.onProgress = fn }
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Machine) { m.metrics = mt }
}

// Machine drives one analysis workflow:
// UPLOAD_RESUME → ENTER_JOB_DESCRIPTION → ANALYZING → RESULTS.
type Machine struct {
	client       Analyzer
	bus          notify.Publisher
	logger       *zap.Logger
	metrics      *metrics.Metrics
	progressOpts progress.Options
	onProgress   func(progress.Snapshot)
	now          func() time.Time

	mu             sync.Mutex
	state          State
	file           *document.File
	jobDescription string
	result         *api.AnalysisResponse
	inlineErr      string
	loading        bool
	sim            *progress.Simulator
	history        []Transition
	closed         bool
}

func New(client Analyzer, bus notify.Publisher, logger *zap.Logger, opts ...Option) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Machine{
		client:       client,
		bus:          bus,
		logger:       logger,
		progressOpts: progress.DefaultOptions(),
		now:          time.Now,
		state:        UploadResume,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SelectFile accepts the resume. Anything but a PDF is rejected and leaves
// the machine in UPLOAD_RESUME.
func (m *Machine) SelectFile(f *document.File) error {
	m.mu.Lock()
	if err := m.expectLocked(UploadResume, "select file"); err != nil {
		m.mu.Unlock()
		return err
	}

	var verr error
	switch {
	case f == nil:
		verr = ErrNoFile
	case !f.IsPDF():
		verr = ErrNotPDF
	}
	if verr != nil {
		m.file = nil
		m.inlineErr = verr.Error()
		m.mu.Unlock()
		m.reject(verr)
		return verr
	}

	m.file = f
	m.inlineErr = ""
	m.transitionLocked(EnterJobDescription, "file selected")
	m.mu.Unlock()

	m.logger.Debug("resume selected", zap.String("file", f.Name), zap.Int("pages", f.Pages))
	return nil
}

func (m *Machine) SetJobDescription(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.expectLocked(EnterJobDescription, "set job description"); err != nil {
		return err
	}
	m.jobDescription = text
	return nil
}

// Back returns to UPLOAD_RESUME keeping the job description.
func (m *Machine) Back() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.expectLocked(EnterJobDescription, "back"); err != nil {
		return err
	}
	m.file = nil
	m.inlineErr = ""
	m.transitionLocked(UploadResume, "back")
	return nil
}

// Submit runs the analysis. Progress is simulated concurrently and torn
// down on every exit path. On failure the machine returns to
// ENTER_JOB_DESCRIPTION with the file and the text intact.
func (m *Machine) Submit(ctx context.Context) (*api.AnalysisResponse, error) {
	m.mu.Lock()
	if err := m.expectLocked(EnterJobDescription, "submit"); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if m.file == nil {
		m.inlineErr = ErrNoFile.Error()
		m.mu.Unlock()
		m.reject(ErrNoFile)
		return nil, ErrNoFile
	}
	jd := strings.TrimSpace(m.jobDescription)
	if jd == "" {
		m.inlineErr = ErrEmptyJobDescription.Error()
		m.mu.Unlock()
		m.reject(ErrEmptyJobDescription)
		return nil, ErrEmptyJobDescription
	}

	stale := m.sim
	sim := progress.New(m.progressOpts, m.logger)
	if m.onProgress != nil {
		sim.OnUpdate(m.onProgress)
	}
	m.sim = sim
	m.inlineErr = ""
	m.result = nil
	file := m.file
	m.transitionLocked(Analyzing, "submitted")
	m.mu.Unlock()

	if stale != nil {
		stale.Cancel()
	}
	defer sim.Cancel()

	if err := sim.Start(ctx); err != nil {
		m.logger.Warn("could not start progress simulation", zap.Error(err))
	}

	res := async.Run(ctx, func(ctx context.Context) (*api.AnalysisResponse, error) {
		return m.client.AnalyzeResume(ctx, file, jd)
	}, async.Options[*api.AnalysisResponse]{
		SetLoading:     m.setLoading,
		Notifier:       m.bus,
		Logger:         m.logger,
		SuccessMessage: successMessage,
		ErrorMessage:   fallbackMessage,
	})

	m.mu.Lock()
	defer m.mu.Unlock()

	if res.Ok() {
		sim.Complete()
		m.result = res.Value
		m.transitionLocked(Results, "analysis finished")
		m.metrics.ObserveAnalysis("success")
		return res.Value, nil
	}

	m.inlineErr = res.Err.Message
	m.transitionLocked(EnterJobDescription, "analysis failed: "+string(res.Err.Type))
	m.metrics.ObserveAnalysis("failure")
	return nil, res.Err
}

// Reset starts over from RESULTS.
func (m *Machine) Reset() error {
	m.mu.Lock()
	if err := m.expectLocked(Results, "reset"); err != nil {
		m.mu.Unlock()
		return err
	}
	sim := m.sim
	m.sim = nil
	m.file = nil
	m.jobDescription = ""
	m.result = nil
	m.inlineErr = ""
	m.transitionLocked(UploadResume, "reset")
	m.mu.Unlock()

	if sim != nil {
		sim.Cancel()
	}
	return nil
}

// Close tears down a running simulation. The machine rejects further
// transitions afterwards.
func (m *Machine) Close() {
	m.mu.Lock()
	sim := m.sim
	m.closed = true
	m.mu.Unlock()

	if sim != nil {
		sim.Cancel()
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) File() *document.File {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.file
}

func (m *Machine) JobDescription() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobDescription
}

func (m *Machine) Result() *api.AnalysisResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result
}

// InlineError is the message shown next to the form, empty when there is none.
func (m *Machine) InlineError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inlineErr
}

func (m *Machine) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Progress returns the snapshot of the current or last simulation.
func (m *Machine) Progress() progress.Snapshot {
	m.mu.Lock()
	sim := m.sim
	m.mu.Unlock()

	if sim == nil {
		return progress.Snapshot{}
	}
	return sim.Snapshot()
}

func (m *Machine) History() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Transition(nil), m.history...)
}

func (m *Machine) setLoading(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = v
}

func (m *Machine) expectLocked(want State, op string) error {
	if m.closed {
		return ErrClosed
	}
	if m.state != want {
		return fmt.Errorf("%w: %s in %s", ErrInvalidTransition, op, m.state)
	}
	return nil
}

func (m *Machine) transitionLocked(to State, reason string) {
	t := Transition{From: m.state, To: to, Reason: reason, At: m.now()}
	m.history = append(m.history, t)
	m.state = to
	m.logger.Debug("analyzer transition",
		zap.Stringer("from", t.From),
		zap.Stringer("to", t.To),
		zap.String("reason", reason),
	)
}

func (m *Machine) reject(err error) {
	m.logger.Debug("input rejected", zap.Error(err))
	if m.bus != nil {
		m.bus.Publish(notify.Info, err.Error(), notify.DefaultTTL)
	}
}
