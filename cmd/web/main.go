package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"aromasabor/internal/config"
	"aromasabor/internal/database"
	"aromasabor/internal/handlers"
	"aromasabor/internal/logging"
	"aromasabor/internal/metrics"
	"aromasabor/internal/models"
	"aromasabor/internal/schema"
	"aromasabor/internal/services"
	"aromasabor/web"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	registry := models.NewRegistry()
	store, err := openStore(ctx, cfg.Database, registry, log)
	if err != nil {
		return err
	}
	defer store.Close()

	var (
		m       *metrics.Metrics
		promReg *prometheus.Registry
	)
	if cfg.Metrics.Enabled {
		promReg = prometheus.NewRegistry()
		promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(promReg)
	}

	security, err := services.NewSecurityLogger(cfg.Auth.SecurityLog)
	if err != nil {
		return fmt.Errorf("security log: %w", err)
	}
	defer security.Close()

	gateway := services.NewGateway(store, registry, log, m)
	auth, err := services.NewAuthService(gateway, cfg.Auth.BcryptCost, log, m)
	if err != nil {
		return err
	}
	if cfg.Auth.AdminUsername != "" {
		created, err := auth.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		if created {
			log.WithField("username", cfg.Auth.AdminUsername).Info("admin account created")
		}
	}

	templates, err := handlers.LoadTemplates(web.Templates, web.TemplateDir, handlers.Pages...)
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}

	gin.SetMode(cfg.Server.GinMode)
	r := gin.New()
	r.Use(logging.Middleware(log, m), gin.Recovery())
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}
	r.HTMLRender = &handlers.HTMLRenderer{Templates: templates}
	if promReg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))
	}

	h := handlers.NewHandler(gateway, auth,
		handlers.NewSessionManager(cfg.Auth.SecretKey, cfg.Auth.SessionTTL, cfg.Auth.CookieSecure),
		security,
		log,
		handlers.Options{AllowRegistration: cfg.Auth.AllowRegistration},
	)
	h.Routes(r)

	servers, err := buildServers(cfg, r)
	if err != nil {
		return err
	}
	return serve(ctx, log, cfg.Server.ShutdownTimeout, servers)
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, registry *schema.Registry, log *logrus.Logger) (database.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := database.OpenPostgres(cfg.URL, database.PoolConfig{
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.AutoMigrate {
			if err := db.Migrate(ctx, models.All()...); err != nil {
				db.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		log.Info("using postgres store")
		return db, nil
	default:
		db, err := database.NewJSONDatabase(cfg.DataFile, registry)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.DataFile, err)
		}
		log.WithField("file", cfg.DataFile).Info("using json store")
		return db, nil
	}
}

// buildServers returns the listeners for the configured TLS mode. With TLS
// on, the plain port only redirects to HTTPS.
func buildServers(cfg *config.Config, h http.Handler) ([]*server, error) {
	plain := &http.Server{Addr: ":" + cfg.Server.Port, Handler: h}
	if cfg.TLS.Mode == config.TLSOff {
		return []*server{{Server: plain}}, nil
	}

	tlsConfig, err := loadTLS(cfg.TLS)
	if err != nil {
		return nil, err
	}
	secure := &http.Server{Addr: ":" + cfg.Server.HTTPSPort, Handler: h, TLSConfig: tlsConfig}
	plain.Handler = redirectToHTTPS(cfg.Server.HTTPSPort)
	return []*server{{Server: secure, tls: true}, {Server: plain}}, nil
}

type server struct {
	*http.Server
	tls bool
}

// serve runs every server until ctx is done or one of them fails, then shuts
// them all down.
func serve(ctx context.Context, log *logrus.Logger, timeout time.Duration, servers []*server) error {
	errc := make(chan error, len(servers))
	for _, s := range servers {
		go func(s *server) {
			entry := log.WithFields(logrus.Fields{"addr": s.Addr, "tls": s.tls})
			entry.Info("listening")
			var err error
			if s.tls {
				err = s.ListenAndServeTLS("", "")
			} else {
				err = s.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- fmt.Errorf("%s: %w", s.Addr, err)
			}
		}(s)
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for _, s := range servers {
		if err := s.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).WithField("addr", s.Addr).Warn("shutdown")
		}
	}
	return runErr
}
