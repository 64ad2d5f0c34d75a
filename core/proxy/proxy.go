// Package proxy implements the relay used in proxied transport mode.
//
// The relay accepts a transport.Envelope on POST /api/proxy, forwards its
// data to the target with the given headers, and copies the upstream
// status and body back unmodified. Streaming responses are flushed to the
// client as they arrive. Targets are restricted to an allow-list of hosts,
// by default the hosts of the provider registry.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/leofalp/aichat/core/transport"
	"github.com/leofalp/aichat/internal/utils"
	"github.com/leofalp/aichat/providers/ai"
)

const (
	// maxEnvelopeBytes bounds the request body; conversations with long
	// lesson context stay well below it.
	maxEnvelopeBytes = 10 << 20

	relayBufferSize = 32 << 10

	// limiterIdle is how long an unused per-client limiter is kept.
	limiterIdle = 10 * time.Minute
)

// forwardedHeaders are the upstream response headers copied to the client.
var forwardedHeaders = []string{"Content-Type", "Cache-Control", "Retry-After", "X-Request-Id"}

// Server relays envelopes to provider endpoints.
type Server struct {
	httpClient *http.Client
	allowAll   bool
	allowed    map[string]bool

	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*clientLimiter
	now      func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithHTTPClient replaces http.DefaultClient for upstream calls.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Server) {
		s.httpClient = client
	}
}

// WithAllowedHosts adds hosts (host or host:port) to the allow-list. The
// single entry "*" allows every target.
func WithAllowedHosts(hosts ...string) Option {
	return func(s *Server) {
		for _, host := range hosts {
			host = strings.ToLower(strings.TrimSpace(host))
			switch host {
			case "":
			case "*":
				s.allowAll = true
			default:
				s.allowed[host] = true
			}
		}
	}
}

// WithRateLimit limits each client IP to perMinute requests with the given
// burst. A non-positive perMinute disables limiting.
func WithRateLimit(perMinute, burst int) Option {
	return func(s *Server) {
		if perMinute <= 0 {
			s.limit = rate.Inf
			return
		}
		s.limit = rate.Every(time.Minute / time.Duration(perMinute))
		s.burst = max(burst, 1)
	}
}

// New returns a relay allowing the hosts of registry.
func New(registry ai.Registry, opts ...Option) *Server {
	s := &Server{
		httpClient: http.DefaultClient,
		allowed:    make(map[string]bool),
		limit:      rate.Inf,
		burst:      1,
		limiters:   make(map[string]*clientLimiter),
		now:        time.Now,
	}
	for _, host := range registry.Hosts() {
		s.allowed[strings.ToLower(host)] = true
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the relay's HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/api/proxy", s.relay)
	})
	return r
}

// Serve runs the relay on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("proxy listening", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down proxy: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) relay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := chimiddleware.GetReqID(ctx)

	var envelope transport.Envelope
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEnvelopeBytes))
	if err := decoder.Decode(&envelope); err != nil {
		writeError(w, http.StatusBadRequest, "invalid proxy envelope: "+err.Error())
		return
	}

	target, err := s.checkTarget(envelope.Target)
	if err != nil {
		slog.WarnContext(ctx, "proxy target rejected",
			"request_id", requestID,
			"target", envelope.Target,
			"error", err.Error(),
		)
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	upstream, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(envelope.Data))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for key, value := range envelope.Headers {
		upstream.Header.Set(key, value)
	}
	if upstream.Header.Get("Content-Type") == "" {
		upstream.Header.Set("Content-Type", ai.ContentTypeJSON)
	}

	start := s.now()
	response, err := s.httpClient.Do(upstream)
	if err != nil {
		slog.ErrorContext(ctx, "proxy upstream failed",
			"request_id", requestID,
			"host", target.Host,
			"error", err.Error(),
		)
		writeError(w, http.StatusBadGateway, "upstream request failed")
		return
	}
	defer utils.CloseWithLog(response.Body)

	for _, key := range forwardedHeaders {
		if value := response.Header.Get(key); value != "" {
			w.Header().Set(key, value)
		}
	}
	w.WriteHeader(response.StatusCode)

	written, err := copyBody(w, response.Body, envelope.Stream)
	attrs := []any{
		"request_id", requestID,
		"host", target.Host,
		"status", response.StatusCode,
		"stream", envelope.Stream,
		"bytes", written,
		"duration", s.now().Sub(start).String(),
	}
	if err != nil {
		slog.WarnContext(ctx, "proxy relay interrupted", append(attrs, "error", err.Error())...)
		return
	}
	slog.InfoContext(ctx, "proxy relayed", attrs...)
}

// checkTarget parses target and enforces the scheme and host allow-list.
func (s *Server) checkTarget(target string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(target))
	if err != nil {
		return nil, fmt.Errorf("invalid target: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("target scheme %q not allowed", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("target has no host")
	}
	if !s.allowAll && !s.allowed[strings.ToLower(parsed.Host)] && !s.allowed[strings.ToLower(parsed.Hostname())] {
		return nil, fmt.Errorf("target host %q not allowed", parsed.Host)
	}
	return parsed, nil
}

// copyBody relays the upstream body. Streams are flushed after every read.
func copyBody(w http.ResponseWriter, body io.Reader, stream bool) (int64, error) {
	flusher, canFlush := w.(http.Flusher)
	if !stream || !canFlush {
		return io.Copy(w, body)
	}

	var written int64
	buf := make([]byte, relayBufferSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			m, writeErr := w.Write(buf[:n])
			written += int64(m)
			if writeErr != nil {
				return written, writeErr
			}
			flusher.Flush()
		}
		if readErr != nil {
			if utils.IsEOF(readErr) {
				return written, nil
			}
			return written, readErr
		}
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body, _ := json.Marshal(map[string]any{"error": map[string]string{"message": message}})
	w.Write(body)
}

/*
	##### RATE LIMITING #####
*/

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limit == rate.Inf {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		if !s.limiterFor(ip).Allow() {
			slog.WarnContext(r.Context(), "proxy rate limit exceeded",
				"request_id", chimiddleware.GetReqID(r.Context()),
				"ip", ip,
			)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limiterFor returns the limiter of ip, creating it on first use and
// dropping limiters idle for longer than limiterIdle.
func (s *Server) limiterFor(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.limiters[ip]
	if !ok {
		for key, other := range s.limiters {
			if now.Sub(other.lastSeen) > limiterIdle {
				delete(s.limiters, key)
			}
		}
		entry = &clientLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// clientIP strips the port from RemoteAddr; RealIP may already have.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
