// Package app assembles the long-lived components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sandeepkv93/studyd/internal/chat"
	"github.com/sandeepkv93/studyd/internal/config"
	"github.com/sandeepkv93/studyd/internal/gateway"
	"github.com/sandeepkv93/studyd/internal/httpapi"
	"github.com/sandeepkv93/studyd/internal/logging"
	"github.com/sandeepkv93/studyd/internal/metrics"
	"github.com/sandeepkv93/studyd/internal/notify"
	"github.com/sandeepkv93/studyd/internal/scheduler"
	"github.com/sandeepkv93/studyd/internal/storage"
	"github.com/sandeepkv93/studyd/internal/taskstore"
	"github.com/sirupsen/logrus"
)

const appName = "studyd"

// Runtime holds one wired instance of the service. The scheduler is built
// but not started.
type Runtime struct {
	Config    config.Config
	Log       *logrus.Entry
	Metrics   *metrics.Metrics
	Store     taskstore.Store
	Scheduler *scheduler.Engine
	Gateway   *gateway.Client
	Chat      *chat.Session

	cancel  context.CancelFunc
	closers []func() error
}

// Build selects the store mode from cfg and wires everything around it. Logs
// go to out.
func Build(ctx context.Context, cfg config.Config, out io.Writer) (*Runtime, error) {
	log := logging.New(cfg.LogLevel, cfg.LogFormat, out)
	m := metrics.New()

	ctx, cancel := context.WithCancel(ctx)
	rt := &Runtime{
		Config:  cfg,
		Log:     log,
		Metrics: m,
		cancel:  cancel,
	}

	opts := taskstore.Options{Logger: log, Metrics: m}
	if cfg.RemoteEnabled() {
		coll, err := storage.OpenPostgres(ctx, cfg.ConnString(), log)
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("open remote store: %w", err)
		}
		rt.closers = append(rt.closers, coll.Close)
		opts.Mode = taskstore.ModeRemote
		opts.Collection = coll
	} else {
		kv, err := storage.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("open local store: %w", err)
		}
		rt.closers = append(rt.closers, kv.Close)
		opts.Mode = taskstore.ModeLocal
		opts.KV = kv
	}

	store, err := taskstore.New(ctx, opts)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Store = store
	log.WithField("mode", store.Mode()).Info("task store ready")

	// With desktop notifications off, alerts still reach in-process
	// consumers through the engine channel.
	var (
		notifier   notify.Notifier         = notify.NoopNotifier{}
		permission notify.PermissionSource = notify.StaticPermission(notify.PermissionGranted)
	)
	if cfg.Notifications.Desktop {
		notifier = notify.NewExecNotifier(appName)
		permission = notify.NewDesktopPermission(true)
	}
	engine, err := scheduler.NewEngine(store, scheduler.Options{
		Interval:   cfg.Scheduler.Interval,
		Buffer:     cfg.Scheduler.Buffer,
		Permission: permission,
		Notifier:   notifier,
		Icon:       cfg.Notifications.Icon,
		Logger:     log,
		Metrics:    m,
	})
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Scheduler = engine

	rt.Gateway = gateway.NewClient(gateway.Options{
		TextURL:    cfg.Gateway.TextURL,
		ImageURL:   cfg.Gateway.ImageURL,
		PublicKey:  cfg.Gateway.PublicKey,
		HTTPClient: gateway.NewHTTPClient(cfg.Gateway.Timeout),
		Logger:     log,
		Metrics:    m,
	})
	rt.Chat = chat.NewSession(rt.Gateway)
	return rt, nil
}

func (r *Runtime) HTTPHandler() (http.Handler, error) {
	srv, err := httpapi.NewServer(httpapi.Options{
		Store:          r.Store,
		Chat:           r.Chat,
		Logger:         r.Log,
		Metrics:        r.Metrics,
		AllowedOrigins: r.Config.HTTP.AllowedOrigins,
	})
	if err != nil {
		return nil, err
	}
	return srv.Handler(), nil
}

// Close stops the scheduler and the sync adapter, then releases storage.
// It is safe to call more than once.
func (r *Runtime) Close() error {
	if r.Scheduler != nil {
		r.Scheduler.Stop()
	}
	if r.cancel != nil {
		r.cancel()
	}
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
