package motorsim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gurisko/fide/internal/logging"
)

// Event names on the telemetry stream.
const (
	EventConnected = "connected"
	EventRegister  = "register"
)

const defaultHeartbeat = 30 * time.Second

// Server streams hub messages to browsers as Server-Sent Events.
type Server struct {
	hub       *Hub
	logger    *zap.Logger
	heartbeat time.Duration
}

func NewServer(hub *Hub, logger *zap.Logger) *Server {
	return &Server{
		hub:       hub,
		logger:    logging.Ensure(logger),
		heartbeat: defaultHeartbeat,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /telemetry", s.handleTelemetry)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

// Serve accepts viewers on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("telemetry server listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"viewers": s.hub.SubscriberCount(),
	})
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Subscribe before the greeting so nothing published in between is lost
	ctx := r.Context()
	messages := s.hub.Subscribe(ctx)

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	welcome, _ := json.Marshal(map[string]string{
		"type":    EventConnected,
		"message": "Connected to motor simulation",
	})
	writeEvent(w, EventConnected, string(welcome))
	flusher.Flush()

	s.logger.Info("viewer connected", zap.String("remote", r.RemoteAddr))
	defer s.logger.Info("viewer disconnected", zap.String("remote", r.RemoteAddr))

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case msg, ok := <-messages:
			if !ok {
				// lagged or hub closed
				return
			}
			writeEvent(w, EventRegister, msg)
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event, data string) {
	_, _ = fmt.Fprintf(w, "event: %s\n", event)
	for _, line := range strings.Split(data, "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = fmt.Fprint(w, "\n")
}
