package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"Shade/internal/auth"
	"Shade/internal/calc/batch"
	"Shade/internal/calc/importer"
	"Shade/internal/calc/quote"
	"Shade/internal/calc/recommend"
	"Shade/internal/calc/report"
	"Shade/internal/components"
	"Shade/internal/config"
	"Shade/internal/logging"
	"Shade/internal/measurement"
	"Shade/internal/repo"
	"Shade/internal/respond"
	"Shade/internal/units"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var wg sync.WaitGroup

func CORS(mux *mux.Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})
}

type deps struct {
	cfg   *config.Config
	log   *zap.Logger
	store repo.Repository
	conv  *units.Converter
	units *measurement.Handler
}

func HandleList(mux *mux.Router, d deps) {
	authEnv := &auth.Authenv{
		JWTkey:            []byte(d.cfg.Auth.TokenKey),
		AdminLogin:        d.cfg.Auth.AdminLogin,
		AdminPasswordHash: d.cfg.Auth.AdminPasswordHash,
		Log:               d.log,
	}
	limiter := auth.NewIPRateLimiter(rate.Limit(d.cfg.Auth.RateLimit), d.cfg.Auth.RateBurst)

	api := mux.PathPrefix("/api").Subrouter()
	api.Use(limiter.LimitMiddleware)

	api.HandleFunc("/login", authEnv.AuthHandler).Methods("POST")

	quoteS := quote.NewService(d.store, d.conv)
	(&quote.Handler{Service: quoteS, Log: d.log}).Register(api)
	(&batch.Handler{Service: quoteS, Log: d.log}).Register(api)
	(&importer.Handler{Service: quoteS, Log: d.log}).Register(api)
	(&report.Handler{Service: quoteS, Log: d.log}).Register(api)
	recommendS := &recommend.Service{Catalog: d.store, Calc: quoteS.Calculator()}
	(&recommend.Handler{Service: recommendS, Log: d.log}).Register(api)

	(&components.Handler{Repo: d.store, Log: d.log}).Register(api, authEnv.AuthMiddleware)
	d.units.Register(api, authEnv.AuthMiddleware)

	mux.Handle("/metrics", promhttp.Handler()).Methods("GET")
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]int{"conversions": d.conv.Table().Len()})
	}).Methods("GET")
}

// openStore returns Postgres when DATABASE_URL is set, else an in-memory catalog.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repo.Repository, func(), error) {
	if cfg.Database.URL == "" {
		log.Warn("DATABASE_URL is not set, catalog is kept in memory")
		return repo.NewMemory(), func() {}, nil
	}
	db, err := repo.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	store := repo.NewPostgres(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, func() { db.Close() }, nil
}

// seedTable loads the conversion file, or the built-in table when there is no
// file, into the store. Stored edges win over the file.
func seedTable(ctx context.Context, cfg *config.Config, store repo.Conversions, log *zap.Logger) (bool, error) {
	table := units.DefaultTable()
	fromFile := false
	if path := cfg.Units.ConversionsFile; path != "" {
		t, err := units.LoadTOML(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Warn("conversion file missing, using the built-in table", zap.String("path", path))
		case err != nil:
			return false, err
		default:
			table, fromFile = t, true
		}
	}
	added, err := repo.Seed(ctx, store, table)
	if err != nil {
		return false, err
	}
	log.Info("conversion table seeded", zap.Int("added", added), zap.Bool("from_file", fromFile))
	return fromFile, nil
}

// fileReload seeds edges from an edited conversion file into the store and
// rebuilds the live table from the store, so stored edges never drop out.
func fileReload(ctx context.Context, store repo.Conversions, unitsH *measurement.Handler, log *zap.Logger) func(*units.Table) {
	return func(t *units.Table) {
		if _, err := repo.Seed(ctx, store, t); err != nil {
			log.Error("store reloaded conversions", zap.Error(err))
			return
		}
		if _, err := unitsH.Reload(ctx, "file"); err != nil {
			log.Error("rebuild conversion table", zap.Error(err))
		}
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	conv := units.NewConverter(nil)
	unitsH := &measurement.Handler{Repo: store, Conv: conv, Log: log}

	fromFile, err := seedTable(ctx, cfg, store, log)
	if err != nil {
		return err
	}
	if _, err := unitsH.Reload(ctx, "startup"); err != nil {
		return err
	}

	if cfg.Units.Watch && fromFile {
		err := units.Watch(ctx, cfg.Units.ConversionsFile, conv, log, fileReload(ctx, store, unitsH, log))
		if err != nil {
			return fmt.Errorf("watch conversions: %w", err)
		}
	}

	router := mux.NewRouter()
	HandleList(router, deps{cfg: cfg, log: log, store: store, conv: conv, units: unitsH})
	handler := logging.Middleware(log)(CORS(router))

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		var err error
		if cfg.Server.TLSCert != "" {
			err = server.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
		}
	}()
	log.Info("starting server", zap.String("addr", cfg.Server.Addr), zap.Bool("tls", cfg.Server.TLSCert != ""))

	<-ctx.Done()
	log.Info("shutdown signal received, closing active connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	wg.Wait()
	log.Info("server stopped")
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/shade.toml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}
