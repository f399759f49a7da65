package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stovelink/internal/coordinator"
	"stovelink/internal/firenet"
	"stovelink/internal/handlers"
	"stovelink/internal/logger"
	"stovelink/internal/repository"
	"stovelink/internal/repository/db"
	"stovelink/internal/server"
	"stovelink/internal/service"

	"github.com/spf13/viper"
)

// @title           Stovelink API
// @version         1.0
// @description     Cloud coordinator for Rika Firenet pellet stoves.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

func main() {
	// load config.yml first so the log level comes from it
	if err := loadConfig(); err != nil {
		panic("error reading config: " + err.Error())
	}

	log := logger.Get(viper.GetString("log_level"))

	sqldb, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqldb.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	repos := repository.NewRepository(sqldb)

	client, err := firenet.NewClient(firenet.Config{
		BaseURL:  viper.GetString("firenet.base_url"),
		Email:    viper.GetString("firenet.email"),
		Password: viper.GetString("firenet.password"),
	}, log)
	if err != nil {
		log.Fatalw("failed to build firenet client", "err", err)
	}

	coord := coordinator.New(client, repos.Stock, repos.Events, coordinator.Options{
		ScanInterval:       time.Duration(viper.GetInt("firenet.scan_interval_s")) * time.Second,
		PelletCapacityKg:   viper.GetFloat64("pellets.capacity_kg"),
		DefaultTemperature: viper.GetFloat64("firenet.default_temperature"),
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup authenticates against the cloud and discovers stoves. There is
	// no point serving requests without a session, so a failure is fatal.
	if err := coord.Setup(ctx); err != nil {
		log.Fatalw("coordinator setup failed", "err", err)
	}
	go coord.Run(ctx)

	services := service.NewService(repos, viper.GetString("auth.signing_key"))
	apiHandler := handlers.NewHandler(services, coord, log)

	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "stovelink.db")
		dbPath = "stovelink.db"
	}
	return db.InitDB(dbPath)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop the reconciliation loop
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
