// Package daemon builds every component from the config and runs them under a supervisor.
package daemon

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/thejerf/suture/v4"
	"gorm.io/gorm"

	"github.com/inkpress/inkpress/internal/analytics"
	"github.com/inkpress/inkpress/internal/auth"
	"github.com/inkpress/inkpress/internal/config"
	"github.com/inkpress/inkpress/internal/media"
	"github.com/inkpress/inkpress/internal/publisher"
	"github.com/inkpress/inkpress/internal/revalidate"
	"github.com/inkpress/inkpress/internal/web"
	"github.com/inkpress/inkpress/internal/web/handler"
)

const (
	supervisorName  = "inkpress"
	shutdownTimeout = 30 * time.Second
)

// Daemon holds the wired components.
type Daemon struct {
	cfg       *config.Config
	deps      *handler.Deps
	web       *web.Service
	publisher *publisher.Publisher
	notifier  *revalidate.Notifier
}

// New opens and migrates the database, seeds the admin account and wires every component.
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}

	if err = Migrate(db); err != nil {
		return nil, err
	}

	return Wire(ctx, cfg, db)
}

// Wire builds the components on an already migrated database.
func Wire(ctx context.Context, cfg *config.Config, db *gorm.DB) (*Daemon, error) {
	d := &Daemon{cfg: cfg}

	jwtManager, err := auth.NewJWTManager(cfg.Auth)
	if err != nil {
		return nil, err
	}

	users := auth.NewLocalProvider(db)

	if _, err = seed(cfg.Auth, users); err != nil {
		return nil, errors.Wrap(err, "failed to seed admin account")
	}

	var notifier handler.Revalidator = revalidate.Nop{}

	if cfg.Revalidate.Enabled {
		d.notifier = revalidate.New(cfg.Revalidate)
		notifier = d.notifier
	}

	storage, err := media.NewStorage(ctx, cfg.Upload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create upload storage")
	}

	d.publisher = publisher.New(publisher.NewGormStore(db), notifier, cfg.Publisher.Interval)

	d.deps = &handler.Deps{
		Config:    cfg,
		DB:        db,
		JWT:       jwtManager,
		Users:     users,
		Notifier:  notifier,
		Pipeline:  media.NewPipeline(storage, cfg.Upload),
		Publisher: d.publisher,
		Limiter:   analytics.NewLimiterStorage(cfg),
		Validator: handler.NewValidator(),
	}

	if cfg.Analytics.Enabled {
		if d.deps.Collector, err = analytics.NewCollector(db, cfg.Analytics); err != nil {
			return nil, errors.Wrap(err, "failed to create analytics collector")
		}
	}

	if d.web, err = web.New(d.deps); err != nil {
		return nil, errors.Wrap(err, "failed to create web service")
	}

	return d, nil
}

// Deps returns the wired handler dependencies.
func (d *Daemon) Deps() *handler.Deps {
	return d.deps
}

// Publisher returns the scheduled publication sweep.
func (d *Daemon) Publisher() *publisher.Publisher {
	return d.publisher
}

// Run supervises the web service and, when enabled, the publisher until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	sup := suture.New(supervisorName, suture.Spec{
		EventHook: eventHook,
		Timeout:   shutdownTimeout + time.Duration(d.cfg.Webserver.ShutDownTime)*time.Second,
	})

	sup.Add(d.web)

	if d.cfg.Publisher.Enabled {
		sup.Add(d.publisher)
	} else {
		log.Info().Msg("publisher is disabled, scheduled posts are only released by manual sweeps")
	}

	err := sup.Serve(ctx)

	// pending revalidations of the last sweep
	if d.notifier != nil {
		d.notifier.Wait()
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// eventHook logs supervisor events with zerolog.
func eventHook(e suture.Event) {
	log.Warn().Fields(e.Map()).Msg(e.String())
}
