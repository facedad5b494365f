// Package app wires configuration, the store and both engines together and
// owns the load, relocate, update and persist cycle shared by every surface.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/i474232898/wetter/internal/config"
	"github.com/i474232898/wetter/internal/logger"
	"github.com/i474232898/wetter/internal/query"
	"github.com/i474232898/wetter/internal/store"
	"github.com/i474232898/wetter/internal/update"
	"github.com/i474232898/wetter/internal/weather"
	"github.com/i474232898/wetter/internal/weather/providers"
)

// Options overrides the collaborators Open would otherwise build from the
// configuration.
type Options struct {
	Repository store.Repository
	Forecast   weather.Adapter
	Archive    weather.Adapter
	Clock      func() time.Time
}

// App is a loaded store plus everything needed to query and update it.
type App struct {
	cfg *config.AppConfig
	log *logger.Logger

	repo   store.Repository
	closer io.Closer

	store    *store.Store
	query    *query.Engine
	updater  *update.Engine
	forecast weather.Adapter
	archive  weather.Adapter
	clock    func() time.Time

	// serializes update + persist
	mu sync.Mutex
}

// Open loads the store and, when the configured location moved away from
// the stored one, backfills history for the new location.
func Open(ctx context.Context, cfg *config.AppConfig, log *logger.Logger, opts Options) (*App, error) {
	a := &App{
		cfg:      cfg,
		log:      log.Named("app"),
		repo:     opts.Repository,
		forecast: opts.Forecast,
		archive:  opts.Archive,
		clock:    opts.Clock,
	}
	if a.clock == nil {
		a.clock = time.Now
	}

	if a.repo == nil {
		repo, closer, err := openRepository(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.repo, a.closer = repo, closer
	}

	if a.forecast == nil || a.archive == nil {
		client := &http.Client{Timeout: cfg.HTTPTimeout}
		if a.forecast == nil {
			a.forecast = providers.NewOpenMeteoForecast(client)
		}
		if a.archive == nil {
			a.archive = providers.NewOpenMeteoArchive(client)
		}
	}
	for _, ad := range []weather.Adapter{a.forecast, a.archive} {
		if err := weather.CheckAdapter(ad); err != nil {
			a.Close()
			return nil, err
		}
	}

	st, err := store.Open(ctx, a.repo)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.store = st
	a.query = query.New(log)
	a.updater = update.New(log, a.clock)

	if cfg.LocationChanged(st.Location()) {
		a.log.Infof("location moved from %s to %s; backfilling history", st.Location().Key(), cfg.Location.Key())
		if err := a.relocate(ctx); err != nil {
			a.log.Warnf("relocation backfill failed: %v", err)
		}
	}

	return a, nil
}

func openRepository(ctx context.Context, cfg *config.AppConfig) (store.Repository, io.Closer, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		db, err := store.OpenSQLite(ctx, cfg.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	case "", "json":
		return store.NewJSONFile(cfg.StorePath), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func (a *App) Config() *config.AppConfig { return a.cfg }

func (a *App) Store() *store.Store { return a.store }

func (a *App) Query() *query.Engine { return a.query }

// Now is the current time in the local timezone.
func (a *App) Now() time.Time {
	return a.clock().In(time.Local)
}

// Update fetches recent data and persists the store. With historical set,
// the archive is consulted first for Jan 1 of last year until 30 days ago.
func (a *App) Update(ctx context.Context, historical bool) ([]update.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var results []update.Result
	if historical {
		res, err := a.backfill(ctx, a.store.Location())
		results = append(results, res)
		if err != nil {
			return results, err
		}
		if err := a.persist(ctx); err != nil {
			return results, err
		}
	}

	res, err := a.updater.Update(ctx, a.store, a.forecast)
	results = append(results, res)
	if err != nil {
		return results, err
	}
	return results, a.persist(ctx)
}

func (a *App) relocate(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	res, err := a.backfill(ctx, a.cfg.Location)
	if err != nil {
		return err
	}
	if err := a.persist(ctx); err != nil {
		return err
	}
	if _, err := a.updater.Update(ctx, a.store, a.forecast, update.From(res.Ticket.End)); err != nil {
		return err
	}
	return a.persist(ctx)
}

func (a *App) backfill(ctx context.Context, loc weather.Location) (update.Result, error) {
	now := a.clock().UTC()
	start := time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := now.AddDate(0, 0, -30)
	return a.updater.Update(ctx, a.store, a.archive, update.From(start), update.Until(end), update.At(loc))
}

func (a *App) persist(ctx context.Context) error {
	if err := store.Persist(ctx, a.repo, a.store); err != nil {
		return fmt.Errorf("persist store: %w", err)
	}
	a.log.Debugf("store persisted: %d rows", a.store.Size())
	return nil
}

// Close releases the repository.
func (a *App) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}
