package main

import (
	"context"
	stderrors "errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"rankfair/internal"
	"rankfair/internal/api"
	"rankfair/internal/config"
	"rankfair/internal/container"
	"rankfair/internal/errors"
	"rankfair/internal/migration"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"
)

// initDatabase connects to PostgreSQL and applies the report schema
func initDatabase(ctx context.Context, appConfig *config.Config, migrator migration.Migrator) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.DatabaseError("failed to ping database", err)
	}

	if err := migrator.Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "database migration failed")
	}
	log.Printf("[Main] database schema at version %s", migrator.Version())

	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load application configuration
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create dependency injection container
	appContainer, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}

	if appConfig.Database.URL != "" {
		db, err := initDatabase(ctx, appConfig, migration.NewRunner())
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		if err := appContainer.InitWithDatabase(db); err != nil {
			log.Fatalf("Failed to initialize container: %v", err)
		}
	} else {
		internal.DefaultLogger.Warn("[Main] DATABASE_URL not set, audit reports will not be persisted")
	}
	defer appContainer.Shutdown(context.Background())

	servers := []*http.Server{
		{Addr: ":" + appConfig.Server.Port, Handler: appContainer.Server.Handler()},
		{Addr: ":" + appConfig.Server.OpsPort, Handler: api.NewOpsRouter(appContainer.Metrics, appContainer.Readiness())},
	}

	g, gCtx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			log.Printf("[Main] listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		log.Printf("[Main] shutting down (timeout %v)", appConfig.Server.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
		defer cancel()
		var firstErr error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	})

	if err := g.Wait(); err != nil {
		log.Printf("[Main] server error: %v", err)
		appContainer.Shutdown(context.Background())
		os.Exit(1)
	}
	log.Println("[Main] stopped")
}
