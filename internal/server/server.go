// Package server answers layout queries over HTTP and streams search
// progress to websocket watchers.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"spiretool/internal/query"
	"spiretool/internal/search"
	"spiretool/internal/spire"
	"spiretool/internal/store"
)

const maxQueryBytes = 4 << 10

type Options struct {
	// SearchOnMiss runs a bounded search when the store has no answer.
	SearchOnMiss    bool
	MissGenerations int
	Search          search.Options
}

type Server struct {
	store store.Store
	opts  Options
	log   *slog.Logger
	hub   *Hub

	upgrader websocket.Upgrader
	// searchMu serialises miss searches so concurrent identical queries search once.
	searchMu sync.Mutex
}

func New(st store.Store, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store: st,
		opts:  opts,
		log:   logger,
		hub:   NewHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/query", s.handleQuery)
	mux.HandleFunc("/watch", s.handleWatch)
	return mux
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("server listening", "addr", addr, "search_on_miss", s.opts.SearchOnMiss)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func writeLine(rw http.ResponseWriter, status int, line string) {
	rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
	rw.WriteHeader(status)
	_, _ = io.WriteString(rw, line)
}

var errNoLayout = errors.New("no layout known for this query")

func (s *Server) handleQuery(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxQueryBytes))
	if err != nil {
		writeLine(rw, http.StatusBadRequest, query.FormatError(err))
		return
	}
	q, err := query.Parse(strings.TrimSpace(string(body)))
	if err != nil {
		writeLine(rw, http.StatusBadRequest, query.FormatError(err))
		return
	}

	start := time.Now()
	resp, source, err := s.answer(r.Context(), q)
	switch {
	case errors.Is(err, errNoLayout):
		writeLine(rw, http.StatusNotFound, query.FormatError(err))
		return
	case err != nil:
		s.log.Error("query failed", "query", q.String(), "error", err)
		writeLine(rw, http.StatusInternalServerError, query.FormatError(err))
		return
	}
	s.log.Info("query answered", "query", q.String(), "source", source,
		"threat", resp.Threat, "elapsed", time.Since(start))
	writeLine(rw, http.StatusOK, resp.String())
}

func (s *Server) lookup(ctx context.Context, q query.Query) (query.Response, bool, error) {
	rec, ok, err := s.store.Best(ctx, q.Key(), q.Budget)
	if err != nil || !ok {
		return query.Response{}, ok, err
	}
	resp, err := rec.Response()
	return resp, err == nil, err
}

func (s *Server) answer(ctx context.Context, q query.Query) (query.Response, string, error) {
	if resp, ok, err := s.lookup(ctx, q); err != nil || ok {
		return resp, "store", err
	}
	if !s.opts.SearchOnMiss {
		return query.Response{}, "", errNoLayout
	}

	s.searchMu.Lock()
	defer s.searchMu.Unlock()
	if resp, ok, err := s.lookup(ctx, q); err != nil || ok {
		return resp, "store", err
	}

	l, err := s.searchFor(ctx, q)
	if err != nil {
		return query.Response{}, "", err
	}
	if err := s.store.Save(ctx, store.NewRecord(q, l)); err != nil {
		return query.Response{}, "", fmt.Errorf("save: %w", err)
	}
	return query.ResponseFor(l), "search", nil
}

func (s *Server) searchFor(ctx context.Context, q query.Query) (*spire.Layout, error) {
	seed, err := spire.New(q.Upgrades, spire.EmptyTraps(q.Floors), 0)
	if err != nil {
		return nil, err
	}
	seed.SetCore(q.Core)

	opts := s.opts.Search
	opts.Budget = q.Budget
	if s.opts.MissGenerations > 0 {
		opts.Generations = s.opts.MissGenerations
	}
	res, err := search.Run(ctx, seed, opts, s.hub.Publish)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	s.log.Info("search finished", "run", res.RunID, "query", q.String(),
		"generations", len(res.Generations), "traps", res.Best.Traps())
	return res.Best, nil
}

func (s *Server) handleWatch(rw http.ResponseWriter, r *http.Request) {
	id, out := s.hub.Subscribe(64)
	defer s.hub.Unsubscribe(id)

	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	s.log.Debug("watcher joined", "id", id, "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	writeErr := make(chan error, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				writeErr <- ctx.Err()
				return
			case b, ok := <-out:
				if !ok {
					writeErr <- nil
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					writeErr <- err
					return
				}
			}
		}
	}()

	// Watchers only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	cancel()
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

	select {
	case <-writeErr:
	case <-time.After(500 * time.Millisecond):
	}
	s.log.Debug("watcher left", "id", id)
}
