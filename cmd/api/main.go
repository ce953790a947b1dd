package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/ruffie/backend/internal/config"
	"github.com/zhouzirui/ruffie/backend/internal/handler"
	"github.com/zhouzirui/ruffie/backend/internal/model/persona"
	"github.com/zhouzirui/ruffie/backend/internal/service/ai"
	"github.com/zhouzirui/ruffie/backend/internal/service/coach"
	"github.com/zhouzirui/ruffie/backend/internal/service/events"
	"github.com/zhouzirui/ruffie/backend/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	personas := persona.Seed()
	if cfg.Personas.File != "" {
		personas, err = persona.LoadFile(cfg.Personas.File, personas)
		if err != nil {
			log.Fatalf("failed to load persona overrides: %v", err)
		}
		log.Printf("persona overrides loaded from %s", cfg.Personas.File)
	}
	personaStore := persona.NewMemoryStore(personas)

	gateway, err := ai.NewGateway(ctx, cfg.AI)
	if err != nil {
		log.Printf("warning: %v", err)
		log.Println("continuing without a model - submissions will receive a diagnostic reply")
		gateway = ai.Unavailable()
	} else {
		log.Printf("model gateway initialized: provider=%s", cfg.AI.Provider)
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.Events.Enabled() {
		natsPublisher, err := events.Dial(cfg.Events.NATSURL, cfg.Events.NATSToken, cfg.Events.SubjectPrefix)
		if err != nil {
			log.Printf("warning: failed to connect to NATS: %v", err)
			log.Println("continuing without event publishing")
		} else {
			defer natsPublisher.Close()
			publisher = natsPublisher
			log.Printf("publishing events under %s.*", cfg.Events.SubjectPrefix)
		}
	} else {
		log.Println("NATS_URL 未配置，跳过事件发布")
	}

	coachSvc := coach.NewService(ai.NewComposer(personaStore), gateway, publisher)
	registry := session.NewRegistry()

	router := handler.NewRouter(cfg.Server.SessionCookie, personaStore, registry, coachSvc)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("RUFfie backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
