package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	// DefaultPort is the preferred MediaServer HTTP port (spec.md §4.6).
	DefaultPort = 18080

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second

	banner = "Pingo MediaServer\n"
)

// Server is the local HTTP file service fronting a Store.
type Server struct {
	store  *Store
	logger *slog.Logger
	srv    *http.Server
	ln     net.Listener
}

// New constructs a Server bound to no socket yet; call Start to bind and serve.
func New(store *Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{store: store, logger: logger.With(slog.String("component", "media"))}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	s.srv = &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
	return s
}

// Start binds DefaultPort, falling back to an OS-assigned port, and begins
// serving in a background goroutine. Returns the bound port.
func (s *Server) Start() (int, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", DefaultPort))
	if err != nil {
		ln, err = net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return 0, fmt.Errorf("media: listen: %w", err)
		}
	}
	s.ln = ln

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve failed", slog.String("error", err.Error()))
		}
	}()

	return ln.Addr().(*net.TCPAddr).Port, nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("media: shutdown: %w", err)
	}
	return nil
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	const filePrefix = "/file/"
	if r.Method == http.MethodGet && len(r.URL.Path) > len(filePrefix) && r.URL.Path[:len(filePrefix)] == filePrefix {
		s.handleFile(w, r, r.URL.Path[len(filePrefix):])
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	fmt.Fprint(w, banner)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request, id string) {
	entry, ok := s.store.Lookup(id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", entry.Mime)
	http.ServeFile(w, r, entry.LocalPath)
}
