package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/duet/config"
	"github.com/cwrk-planet/duet/internal/logger"
	"github.com/cwrk-planet/duet/internal/postgres"
	"github.com/cwrk-planet/duet/internal/redis"
	"github.com/cwrk-planet/duet/internal/room"
	"github.com/cwrk-planet/duet/internal/service"
	grpcx "github.com/cwrk-planet/duet/internal/transport/grpc"
	httpx "github.com/cwrk-planet/duet/internal/transport/http"
	"github.com/cwrk-planet/duet/internal/transport/ws"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		Level:     logger.ParseLevel(cfg.Logging.Level),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	lg := logger.L()
	lg.Info("starting duet", "env", cfg.Logging.Env, "version", cfg.Logging.Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- session history sinks (optional) ---
	var (
		sinks []service.Sink
		store service.SessionStore
	)
	if cfg.Postgres.Enabled() {
		pool, err := postgres.NewPool(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
			ApplicationName: cfg.Postgres.ApplicationName,
		})
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pool.Close()

		if cfg.Postgres.Migrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				log.Fatalf("postgres migrate: %v", err)
			}
		}
		repo := postgres.NewSessionRepository(pool)
		sinks = append(sinks, repo)
		store = repo
		lg.Info("session history enabled", "backend", "postgres")
	}
	if cfg.Redis.Enabled() {
		pub, err := redis.NewPublisher(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		})
		if err != nil {
			// redis только для оповещений, без него комната работает
			lg.Warn("redis unavailable, session events not published", "err", err)
		} else {
			defer pub.Close()
			sinks = append(sinks, pub)
			lg.Info("session events enabled", "backend", "redis", "channel", cfg.Redis.Channel)
		}
	}

	dispatcher := service.NewDispatcher(64, lg.With("component", "dispatcher"), sinks...)
	dispatchDone := make(chan struct{})
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	go func() {
		dispatcher.Run(dispatchCtx)
		close(dispatchDone)
	}()

	// --- room & WS ---
	hub := ws.NewHub()
	rm := room.New(room.Config{
		SessionSeconds: cfg.Room.SessionSeconds,
		TickInterval:   cfg.Room.TickInterval,
	}, hub,
		room.WithObserver(dispatcher),
		room.WithLogger(lg.With("component", "room")),
	)
	roomDone := make(chan struct{})
	go func() {
		rm.Run(ctx)
		close(roomDone)
	}()

	wsServer := ws.NewServer(hub, rm, ws.Options{
		PingEvery:      cfg.Room.PingEvery,
		ReadLimit:      cfg.Room.ReadLimit,
		SendQueue:      cfg.Room.SendQueue,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}, lg.With("component", "ws"))

	// --- HTTP ---
	handler := httpx.NewHandler(rm, service.NewHistoryService(store))
	router := httpx.NewRouter(httpx.Deps{
		Handler:        handler,
		WS:             wsServer.HandleWS,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// --- gRPC health ---
	grpcSrv := grpcx.NewServer(lg.With("component", "grpc"))
	grpcSrv.Track(roomDone)

	// --- run both servers ---
	errCh := make(chan error, 2)

	go func() {
		lg.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if cfg.GRPC.Addr != "" {
		go func() {
			lis, err := net.Listen("tcp", cfg.GRPC.Addr)
			if err != nil {
				errCh <- err
				return
			}
			if err := grpcSrv.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	// --- graceful shutdown ---
	select {
	case <-ctx.Done():
		lg.Info("shutdown signal")
	case err := <-errCh:
		lg.Error("server error", "err", err)
		stop()
	}
	grpcSrv.SetServing(false)

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctxShutdown); err != nil {
		lg.Warn("http shutdown", "err", err)
	}
	grpcSrv.Stop(ctxShutdown)

	<-roomDone
	stopDispatch()
	<-dispatchDone
	lg.Info("stopped", "events_dropped", dispatcher.Dropped(), "log_sampled_out", logger.SampledOut())
}
