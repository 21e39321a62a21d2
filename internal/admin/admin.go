// Package admin implements Pingo's introspection HTTP surface: peer,
// transfer, and crypto session listings as JSON, served on their own
// net/http.ServeMux alongside the Prometheus metrics endpoint.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pingonet/pingo-core/internal/crypto"
	"github.com/pingonet/pingo-core/internal/discovery"
	"github.com/pingonet/pingo-core/internal/transfer"
)

const shutdownTimeout = 5 * time.Second

// Server is a thin adapter wrapping the domain managers it introspects.
type Server struct {
	discovery *discovery.Manager
	transfers *transfer.Manager
	crypto    *crypto.Manager
	logger    *slog.Logger
	srv       *http.Server
	ln        net.Listener
}

// New constructs an admin Server. Mirrors server.New's "adapter wraps
// domain manager(s)" shape, generalized to the three managers Pingo's
// introspection surface reports on.
func New(disc *discovery.Manager, transfers *transfer.Manager, cryptoMgr *crypto.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		discovery: disc,
		transfers: transfers,
		crypto:    cryptoMgr,
		logger:    logger.With(slog.String("component", "admin")),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/peers", s.handlePeers)
	mux.HandleFunc("/v1/transfers", s.handleTransfers)
	mux.HandleFunc("/v1/sessions", s.handleSessions)

	s.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start binds addr and begins serving in a background goroutine.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("admin: listen on %s: %w", addr, err)
	}
	s.ln = ln

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin server stopped", slog.String("error", err.Error()))
		}
	}()
	s.logger.Info("admin server listening", slog.String("addr", ln.Addr().String()))
	return nil
}

// Stop gracefully shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("admin: shutdown: %w", err)
	}
	return nil
}

type peerDTO struct {
	DeviceID string `json:"device_id"`
	Username string `json:"username"`
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	Online   bool   `json:"online"`
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	peers := s.discovery.Peers()
	out := make([]peerDTO, 0, len(peers))
	for _, p := range peers {
		out = append(out, peerDTO{DeviceID: p.DeviceID, Username: p.Username, IP: p.IP, Port: p.Port, Online: p.IsOnline})
	}
	writeJSON(w, out)
}

type transferDTO struct {
	ID            string `json:"id"`
	FileName      string `json:"file_name"`
	FileSize      int64  `json:"file_size"`
	Role          string `json:"role"`
	Complete      bool   `json:"complete"`
	MissingChunks int    `json:"missing_chunks"`
	TotalChunks   int    `json:"total_chunks"`
}

func (s *Server) handleTransfers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snaps := s.transfers.Snapshots()
	out := make([]transferDTO, 0, len(snaps))
	for _, t := range snaps {
		out = append(out, transferDTO{
			ID: t.ID, FileName: t.FileName, FileSize: t.FileSize, Role: string(t.Role),
			Complete: t.Complete, MissingChunks: t.MissingChunks, TotalChunks: t.TotalChunks,
		})
	}
	writeJSON(w, out)
}

type sessionDTO struct {
	PeerID string `json:"peer_id"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ids := s.crypto.PeerIDs()
	out := make([]sessionDTO, 0, len(ids))
	for _, id := range ids {
		out = append(out, sessionDTO{PeerID: id})
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
