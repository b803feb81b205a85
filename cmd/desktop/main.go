// Package main provides the local HTTP server for desktop platforms.
// Desktop clients communicate via REST/WebSocket on localhost:8090.
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/farhanfatur/Attendance-App/cmd/desktop/handlers"
	"github.com/farhanfatur/Attendance-App/internal/app"
	"github.com/farhanfatur/Attendance-App/internal/config"
	"github.com/farhanfatur/Attendance-App/internal/logging"
	fieldsync "github.com/farhanfatur/Attendance-App/internal/sync"
	"github.com/farhanfatur/Attendance-App/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		logging.Error("Desktop server stopped", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fieldsync-desktop", flag.ContinueOnError)
	envFile := fs.String("env", "", "Load settings from this env file instead of ./.env")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logging.Error("Failed to close engine", err)
		}
	}()

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return err
	}
	return serve(ctx, ln, a.Engine, a, a.Metrics)
}

// newRouter wires the health check, the queue API and the event socket.
func newRouter(engine fieldsync.EngineInterface, conflicts handlers.ConflictLister, metrics *telemetry.Recorder, hub *WSHub) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"fieldsync-desktop"}`))
	})
	queueHandler := handlers.NewQueueHandler(engine, conflicts)
	queueHandler.SetMetrics(metrics)
	r.Route("/api", queueHandler.Routes)
	r.Get("/ws", HandleWebSocket(hub))
	return r
}

// serve runs the HTTP server, the WebSocket hub and background sync until
// ctx is done, then shuts the server down.
func serve(ctx context.Context, ln net.Listener, engine fieldsync.EngineInterface, conflicts handlers.ConflictLister, metrics *telemetry.Recorder) error {
	hub := NewWSHub()
	unsubscribe := engine.Subscribe(hub.Forward)
	defer unsubscribe()

	srv := &http.Server{
		Handler:           newRouter(engine, conflicts, metrics, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		engine.StartBackgroundSync(gctx)
		<-gctx.Done()
		engine.StopBackgroundSync()
		return nil
	})

	g.Go(func() error {
		logging.Info("Desktop server listening", map[string]interface{}{"addr": ln.Addr().String()})
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.Debug("HTTP request", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}
