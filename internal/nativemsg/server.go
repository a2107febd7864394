package nativemsg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/raphaelaulasgranger/correcteurOrtho/internal/coordinator"
)

// DefaultConcurrency bounds the requests handled at once.
const DefaultConcurrency = 8

// Handler serves one decoded request.
type Handler interface {
	Handle(ctx context.Context, req coordinator.Request) coordinator.Response
}

// Server reads requests from one stream and writes responses to another.
// Responses are written in completion order; callers match them by ID.
type Server struct {
	handler     Handler
	logger      *slog.Logger
	concurrency int

	writeMu sync.Mutex
}

// NewServer returns a Server dispatching to h.
func NewServer(h Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{handler: h, logger: logger, concurrency: DefaultConcurrency}
}

// Serve handles frames from r until it ends, then waits for in-flight
// requests. A clean end of input returns nil. Reading is not interrupted by
// ctx; cancelling it aborts in-flight requests.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	var readErr error
	for {
		payload, err := ReadFrame(r)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = fmt.Errorf("failed to read frame: %w", err)
			}
			break
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return s.serveOne(gctx, payload, w)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return readErr
}

func (s *Server) serveOne(ctx context.Context, payload []byte, w io.Writer) error {
	var req coordinator.Request
	var resp coordinator.Response
	if err := json.Unmarshal(payload, &req); err != nil {
		s.logger.Warn("invalid message", "err", err, "bytes", len(payload))
		resp = coordinator.Response{Error: "invalid message"}
	} else {
		resp = s.handler.Handle(ctx, req)
		resp.ID = req.ID
	}

	out, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := WriteFrame(w, out); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}
