package cmd

import (
	"context"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/twcadmin/internal/config"
	"github.com/felixgeelhaar/twcadmin/internal/credstore"
	"github.com/felixgeelhaar/twcadmin/internal/errors"
	"github.com/felixgeelhaar/twcadmin/internal/gateway"
	"github.com/felixgeelhaar/twcadmin/internal/guard"
	"github.com/felixgeelhaar/twcadmin/internal/log"
	"github.com/felixgeelhaar/twcadmin/internal/metrics"
	"github.com/felixgeelhaar/twcadmin/internal/session"
	"github.com/felixgeelhaar/twcadmin/internal/telemetry"
	"github.com/felixgeelhaar/twcadmin/internal/ux"
	"github.com/felixgeelhaar/twcadmin/internal/version"
	"github.com/felixgeelhaar/twcadmin/internal/wpapi"
)

// App is everything a command needs, built once per invocation by the root
// pre-run and carried on the command context.
type App struct {
	Config   *config.Config
	Logger   *log.Logger
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	Store    credstore.Store
	Gateway  *gateway.Gateway
	API      *wpapi.Client
	Session  *session.Manager
	Guard    *guard.Guard

	Out io.Writer
	Err io.Writer
	In  io.Reader

	ctx           context.Context
	command       string
	started       time.Time
	span          trace.Span
	logOutput     log.Output
	metricsServer *metrics.Server
}

type appKey struct{}

func withApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey{}, app)
}

func appFrom(cmd *cobra.Command) *App {
	if cmd == nil || cmd.Context() == nil {
		return nil
	}
	app, _ := cmd.Context().Value(appKey{}).(*App)
	return app
}

// mustApp returns the App set up for cmd. Commands only run after setup.
func mustApp(cmd *cobra.Command) *App {
	app := appFrom(cmd)
	if app == nil {
		panic("cmd: command run without setup")
	}
	return app
}

func newApp(cmd *cobra.Command) (*App, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logOutput := log.NewOutput(cmd.ErrOrStderr())
	if cfg.Logging.File != "" {
		if logOutput, err = log.OutputFile(cfg.Logging.File); err != nil {
			return nil, errors.Wrap(errors.ErrCodeFileWriteFailed, "open log file", err)
		}
	}
	logger := log.New(log.Config{
		Level:          log.ParseLevel(cfg.Logging.Level),
		Format:         log.ParseFormat(cfg.Logging.Format),
		Output:         logOutput,
		ServiceName:    "twcadmin",
		ServiceVersion: version.Version,
	})
	log.SetDefaultLogger(logger)

	app := &App{
		Config:    cfg,
		Logger:    logger,
		Out:       cmd.OutOrStdout(),
		Err:       cmd.ErrOrStderr(),
		In:        cmd.InOrStdin(),
		command:   guard.Location(cmd),
		started:   time.Now(),
		logOutput: logOutput,
	}

	app.Registry, app.Metrics = metrics.NewRegistry()
	if cfg.Metrics.Addr != "" {
		srv, err := metrics.Serve(cfg.Metrics.Addr, app.Registry)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigInvalid, "start metrics listener on "+cfg.Metrics.Addr, err)
		}
		app.metricsServer = srv
		logger.Info("serving metrics", "addr", srv.Addr())
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	tcfg := telemetry.DefaultConfig()
	tcfg.ServiceVersion = version.Version
	tcfg.Enabled = cfg.Telemetry.Enabled
	tcfg.Endpoint = cfg.Telemetry.Endpoint
	if _, err := telemetry.InitProvider(ctx, tcfg); err != nil {
		logger.Warn("tracing disabled", "error", err)
	}
	ctx, app.span = telemetry.StartCommandSpan(ctx, app.command)

	app.Store = credstore.NewFileStore(cfg.Auth.CredentialsFile)
	app.Gateway, err = gateway.New(gateway.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
		TokenTTL:  cfg.Auth.TokenTTL,
		UserAgent: "twcadmin/" + version.Version,
	}, app.Store, gateway.WithLogger(logger), gateway.WithMetrics(app.Metrics))
	if err != nil {
		app.span.End()
		return nil, err
	}

	app.API = wpapi.New(app.Gateway)
	app.Session = session.NewManager(app.API, app.Store,
		session.WithLogger(logger),
		session.WithTokenTTL(cfg.Auth.TokenTTL),
	)
	app.Gateway.OnAuthExpired(app.Session.HandleAuthExpired)
	app.Guard = guard.New(app.Session,
		guard.WithLogger(logger),
		guard.WithMetrics(app.Metrics),
		guard.WithRevalidation(cfg.Auth.Revalidate),
	)

	app.ctx = ctx
	return app, nil
}

// close waits for background checks, records the command outcome and stops
// the listeners started by newApp.
func (a *App) close(err error) {
	a.Guard.Wait()

	a.Metrics.ObserveCommand(a.command, err, time.Since(a.started))
	if code := errors.CodeOf(err); code != "" {
		a.Metrics.ObserveError(string(code))
	}
	if err != nil {
		telemetry.RecordError(a.span, err)
	} else {
		telemetry.RecordSuccess(a.span)
	}
	a.span.End()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(a.ctx), 5*time.Second)
	defer cancel()
	if err := telemetry.Shutdown(ctx); err != nil {
		a.Logger.Debug("tracer shutdown", "error", err)
	}
	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			a.Logger.Warn("metrics listener shutdown", "error", err)
		}
	}
	_ = a.logOutput.Close()
}

// print writes data in the configured format. In text mode table is rendered
// instead when it is not nil.
func (a *App) print(data any, table ux.Tabular) error {
	f, err := ux.NewFormatter(a.Config.Output.Format, &ux.FormatterOptions{
		Writer:  a.Out,
		NoColor: a.Config.Output.NoColor,
	})
	if err != nil {
		return err
	}
	if a.textOutput() && table != nil {
		return f.Format(table)
	}
	return f.Format(data)
}

func (a *App) textOutput() bool {
	return a.Config.Output.Format == "" || a.Config.Output.Format == "text"
}

// done reports a finished mutation: a sentence in text mode, data otherwise.
func (a *App) done(data any, message string) error {
	if a.textOutput() {
		return a.print(message, nil)
	}
	return a.print(data, nil)
}
