package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/krishnapaul242/gati-sub004"
	"github.com/krishnapaul242/gati-sub004/internal/integration"
	"github.com/krishnapaul242/gati-sub004/internal/realtime"
	"github.com/krishnapaul242/gati-sub004/internal/registry"
	"github.com/krishnapaul242/gati-sub004/internal/transform"
	"github.com/krishnapaul242/gati-sub004/pkg/logger"
	"github.com/krishnapaul242/gati-sub004/pkg/metrics"
)

const usersPath = "/users"

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Timescape demo HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), a)
		},
	}
}

// usersV1, usersV2 are the two toy revisions of the demo /users handler: v2
// is the "current" code, v1 is kept alive only through the transformer pair
// registered below.
var (
	usersV1 = timescape.NewRID(1_700_000_000, "users", 1)
	usersV2 = timescape.NewRID(1_700_500_000, "users", 2)
)

type userV1 struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type userV2 struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// registerDemoHandlers wires the two /users revisions and the transformer
// pair that lets old clients keep talking to the v2 handler underneath.
func registerDemoHandlers(a *app) error {
	if err := a.registry.Register(usersPath, usersV1, registry.Metadata{}); err != nil {
		return err
	}
	if err := a.registry.Register(usersPath, usersV2, registry.Metadata{}); err != nil {
		return err
	}

	pair := transform.NewPair(usersV1, usersV2, "demo")
	pair.ForwardRequest = func(ctx context.Context, data []byte) ([]byte, error) {
		if len(data) == 0 {
			return data, nil
		}
		var v1 userV1
		if err := json.Unmarshal(data, &v1); err != nil {
			return nil, fmt.Errorf("decode v1 request: %w", err)
		}
		return json.Marshal(userV2{ID: v1.ID, Name: v1.Name, Email: ""})
	}
	pair.BackwardResponse = func(ctx context.Context, data []byte) ([]byte, error) {
		var v2 userV2
		if err := json.Unmarshal(data, &v2); err != nil {
			return nil, fmt.Errorf("decode v2 response: %w", err)
		}
		return json.Marshal(userV1{ID: v2.ID, Name: v2.Name})
	}
	return a.engine.Register(pair)
}

// demoHandler serves the current (v2) handler logic: the facade has already
// transformed the request body into v2 shape and will transform the
// response back down if the caller resolved an older revision.
func demoHandler(ctx context.Context, body []byte) ([]byte, error) {
	return json.Marshal(userV2{ID: 42, Name: "ada", Email: "ada@example.com"})
}

func runServe(ctx context.Context, a *app) error {
	if err := registerDemoHandlers(a); err != nil {
		return fmt.Errorf("register demo handlers: %w", err)
	}

	facade := integration.New(a.registry, a.resolver, a.engine,
		integration.WithLogger(a.log),
		integration.WithMetrics(a.metrics),
	)

	router := mux.NewRouter()
	router.Use(logger.Middleware(a.log))
	router.HandleFunc(usersPath, usersHTTPHandler(a, facade)).Methods(http.MethodGet)
	router.HandleFunc("/ws", wsHandler(a)).Methods(http.MethodGet)
	if sink, ok := a.metrics.(*metrics.PrometheusSink); ok {
		router.Handle(a.cfg.Metrics.Path, promhttp.HandlerFor(sink.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.bus.Start(runCtx)
	if err := a.lifecycle.Start(runCtx); err != nil {
		a.log.Warn("lifecycle manager did not start", "error", err)
	}
	go runSnapshotTicker(runCtx, a)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		a.log.Info("http server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server failed", "error", err)
		}
	}()

	<-quit
	a.log.Info("shutting down")
	cancel()
	a.lifecycle.Stop()
	a.bus.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	a.log.Info("server exited")
	return nil
}

func runSnapshotTicker(ctx context.Context, a *app) {
	interval := a.cfg.Snapshot.TickInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := a.snapshot.Tick(ctx)
			if err != nil {
				a.log.Warn("snapshot tick failed", "error", err)
				continue
			}
			if info == nil {
				continue
			}
			a.bus.Publish(realtime.NewEvent(realtime.EventTypeSnapshotTaken, map[string]interface{}{
				"id":   info.ID,
				"type": string(info.Type),
			}, realtime.EventSourceSnapshot))
		}
	}
}

func usersHTTPHandler(a *app, facade *integration.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := integration.Request{
			Path:    usersPath,
			Query:   r.URL.Query(),
			Headers: r.Header,
		}
		resp, err := facade.Serve(r.Context(), req, demoHandler)
		if err != nil {
			status := integration.StatusFor(err)
			http.Error(w, err.Error(), status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Resolved-Version", string(resp.Resolution.Resolved))
		w.Write(resp.Body)
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsHandler upgrades to a websocket connection and fans out realtime.Bus
// events to it via a ChannelSubscriber, grounded on the teacher's
// WebSocketHub (cmd/server/handlers/silence_ws.go).
func wsHandler(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			a.log.Error("websocket upgrade failed", "error", err)
			return
		}

		sub := realtime.NewChannelSubscriber(logger.GenerateRequestID(), r.Context(), 64)
		a.bus.Subscribe(sub)

		go func() {
			defer conn.Close()
			defer a.bus.Unsubscribe(sub)
			for {
				select {
				case <-sub.Context().Done():
					return
				case event, ok := <-sub.Events():
					if !ok {
						return
					}
					conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
					if err := conn.WriteJSON(event); err != nil {
						return
					}
				}
			}
		}()

		// Drain inbound frames so the connection's close is detected; the
		// demo stream is one-directional (server to client).
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}
