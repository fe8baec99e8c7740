package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jobcraft/jobcraft/internal/api"
	"github.com/jobcraft/jobcraft/internal/apierror"
	"github.com/jobcraft/jobcraft/internal/logger"
	"github.com/jobcraft/jobcraft/internal/metrics"
	"github.com/jobcraft/jobcraft/internal/notify"
	"github.com/jobcraft/jobcraft/internal/session"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// errReported marks failures the notification bus already showed.
var errReported = errors.New("already reported")

// deps is everything a command needs to talk to the analysis service.
type deps struct {
	config   *Config
	logger   *zap.Logger
	sessions session.Provider
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	client   *api.Client
	bus      *notify.Bus
	out      io.Writer
	json     bool
}

func newDeps(out io.Writer) (*deps, error) {
	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	config, err := getConfig()
	if err != nil {
		return nil, fmt.Errorf("getting a config: %w", err)
	}
	if config == nil {
		config = &Config{}
	}

	sessions, err := session.Open(config.Session, log)
	if err != nil {
		return nil, fmt.Errorf("opening a session: %w", err)
	}

	log = logger.WithClientFields(log, config.API.URL, sessionKind(sessions))

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	d := &deps{
		config:   config,
		logger:   log,
		sessions: sessions,
		registry: registry,
		metrics:  m,
		client:   api.New(config.API, sessions, log, api.WithMetrics(m)),
		bus:      notify.New(log, config.Notifications.TTL),
		out:      out,
		json:     viper.GetBool("json"),
	}
	d.bus.Subscribe(d.printNotification)

	log.Debug("starting jobcraft", zap.String("version", version))
	return d, nil
}

func (d *deps) Close() {
	d.bus.Close()
	if err := d.sessions.Close(); err != nil {
		d.logger.Debug("closing session", zap.Error(err))
	}
	_ = d.logger.Sync()
}

// printNotification mirrors the bus on stderr. With --json the notification
// is logged instead so stdout stays parseable.
func (d *deps) printNotification(n notify.Notification) {
	if d.json {
		d.logger.Info("notification",
			zap.String("severity", string(n.Severity)),
			zap.String("message", n.Message),
		)
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", badge(n.Severity), n.Message)
}

// render writes v as indented JSON or through the text printer.
func (d *deps) render(v any, text func(w io.Writer)) error {
	if !d.json {
		text(d.out)
		return nil
	}
	enc := json.NewEncoder(d.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func badge(s notify.Severity) string {
	switch s {
	case notify.Success:
		return "[ok]"
	case notify.Error:
		return "[error]"
	case notify.Warning:
		return "[warn]"
	default:
		return "[info]"
	}
}

func sessionKind(p session.Provider) string {
	if s, ok := p.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", p)
}

func isAnonymous(p session.Provider) bool {
	_, ok := p.(session.Anonymous)
	return ok
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// report prints the classified message of a command failure. The raw error
// only goes to the debug log.
func report(w io.Writer, log *zap.Logger, err error) {
	if errors.Is(err, errReported) {
		return
	}

	resp := apierror.Normalize(err)
	log.Debug("command failed",
		zap.String("type", string(resp.Type)),
		zap.String("code", resp.Code),
		zap.Error(err),
	)

	fmt.Fprintf(w, "Error: %s\n", resp.Message)
	if resp.Retry {
		fmt.Fprintln(w, "This may be temporary, please try again.")
	}
}
