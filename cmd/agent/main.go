package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agent-fleettrack/internal/auth"
	"agent-fleettrack/internal/config"
	"agent-fleettrack/internal/location"
	"agent-fleettrack/internal/server"
	"agent-fleettrack/internal/stream"
	"agent-fleettrack/internal/tokenstore"
	"agent-fleettrack/internal/track"
	"agent-fleettrack/internal/transport"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig func() config.Config
	notify     func(chan<- os.Signal, ...os.Signal)
	run        func(context.Context, config.Config, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig: config.Load,
		notify:     signal.Notify,
		run:        Run,
	}
}

func realMain(deps mainDeps) {
	cfg := deps.loadConfig()

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(context.Background(), cfg, signals, nil); err != nil {
		log.Printf("agent exited with error: %v", err)
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

func connectRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

func buildTokenStore(cfg config.Config, rdb *redis.Client) tokenstore.Store {
	if cfg.TokenStore == "redis" && rdb != nil {
		return tokenstore.NewRedisStore(rdb)
	}
	return tokenstore.NewFileStore(cfg.TokenFile, cfg.TokenSecret)
}

func buildProvider(cfg config.Config) track.Provider {
	if cfg.GPSSerialPort == "fixture" {
		return location.NewFixture(nil)
	}
	return location.NewSerialNMEA(cfg.GPSSerialPort, cfg.GPSBaudRate)
}

func buildTransport(cfg config.Config) track.Transport {
	if cfg.Transport == "websocket" {
		return transport.NewWebsocket(cfg.WSEndpoint)
	}
	return transport.NewMQTT(cfg.MQTTBroker, cfg.MQTTTopic, cfg.MQTTClientID)
}

// Run wires the agent together, starts the local API, and waits for
// termination signals.
func Run(ctx context.Context, cfg config.Config, signals <-chan os.Signal, listen ListenFunc) error {
	rdb := connectRedis(cfg)
	store := buildTokenStore(cfg, rdb)
	hub := stream.NewHub(rdb, cfg.VehicleID)
	tracker := track.New(buildProvider(cfg), buildTransport(cfg), store, hub, cfg.VehicleID, cfg.SampleInterval)
	authClient := auth.NewClient(cfg.AuthBaseURL, store)

	srv := server.NewServer(cfg, tracker, authClient, hub)

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()

	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	tracker.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := shutdownFn(srv.App, shutdownCtx); err != nil {
		return err
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	return nil
}
