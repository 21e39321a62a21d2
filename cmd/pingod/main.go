// Pingod is the Pingo daemon: LAN presence, signaling, encryption, file
// transfer, and message persistence for the Pingo desktop chat shell.
package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/pingonet/pingo-core/internal/admin"
	"github.com/pingonet/pingo-core/internal/config"
	"github.com/pingonet/pingo-core/internal/crypto"
	"github.com/pingonet/pingo-core/internal/discovery"
	"github.com/pingonet/pingo-core/internal/media"
	pingometrics "github.com/pingonet/pingo-core/internal/metrics"
	"github.com/pingonet/pingo-core/internal/orchestrator"
	"github.com/pingonet/pingo-core/internal/signaling"
	"github.com/pingonet/pingo-core/internal/store"
	"github.com/pingonet/pingo-core/internal/transfer"
	appversion "github.com/pingonet/pingo-core/internal/version"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (YAML)")
	username := flag.String("username", "", "local display name advertised over Discovery")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()))
		return 1
	}

	logger := newLogger(cfg.Log)
	logger.Info("pingod starting",
		slog.String("version", appversion.Version),
		slog.String("admin_addr", cfg.Admin.Addr),
		slog.String("metrics_addr", cfg.Metrics.Addr),
	)

	if err := runServers(cfg, *username, logger); err != nil {
		logger.Error("pingod exited with error", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("pingod stopped")
	return 0
}

// runServers wires C1-C10 together and blocks until a shutdown signal
// arrives, mirroring the teacher's run/runServers split minus the
// systemd watchdog, GoBGP integration, and flight recorder, none of
// which have a Pingo analogue (see DESIGN.md).
func runServers(cfg *config.Config, username string, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	collector := pingometrics.NewCollector(reg)

	storePath, err := cfg.StorePath()
	if err != nil {
		return fmt.Errorf("resolve store path: %w", err)
	}
	st, err := store.Open(storePath, store.WithMetrics(collector))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	identity, kp, err := loadOrCreateIdentity(st, username)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	// The local user's own row is the endpoint every incoming direct
	// message names as receiver; the messages table references users(id).
	if err := st.UpdateUsername(identity.DeviceID, identity.Username); err != nil {
		return fmt.Errorf("register local user: %w", err)
	}

	mediaDir, err := cfg.MediaStorageDir()
	if err != nil {
		return fmt.Errorf("resolve media storage dir: %w", err)
	}
	mediaStore, err := media.NewStore(mediaDir)
	if err != nil {
		return fmt.Errorf("open media store: %w", err)
	}
	mediaSrv := media.New(mediaStore, logger)
	mediaPort, err := mediaSrv.Start()
	if err != nil {
		return fmt.Errorf("start media server: %w", err)
	}

	cryptoMgr := crypto.NewManager(kp)
	transferMgr := transfer.NewManager(transfer.WithMetrics(collector))

	sig, err := signaling.New(identity.DeviceID, logger, signaling.WithMetrics(collector))
	if err != nil {
		return fmt.Errorf("start signaling: %w", err)
	}
	identity.Port = sig.Port()

	disc, err := discovery.New(identity, cfg.Discovery.Port, logger, discovery.WithMetrics(collector))
	if err != nil {
		return fmt.Errorf("start discovery: %w", err)
	}

	orch := orchestrator.New(st, disc, sig, mediaStore, mediaPort, logger)

	adminSrv := admin.New(disc, transferMgr, cryptoMgr, logger)
	if err := adminSrv.Start(cfg.Admin.Addr); err != nil {
		return fmt.Errorf("start admin server: %w", err)
	}

	metricsSrv := newMetricsServer(cfg.Metrics.Addr, cfg.Metrics.Path, reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error { return disc.Run(gCtx) })
	g.Go(func() error { return sig.Run(gCtx) })
	g.Go(func() error { return orch.Run(gCtx) })
	g.Go(func() error { return reportGauges(gCtx, disc, cryptoMgr, collector) })

	g.Go(func() error {
		logger.Info("metrics server listening", slog.String("addr", cfg.Metrics.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		return gracefulShutdown(mediaSrv, adminSrv, metricsSrv, logger)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run servers: %w", err)
	}
	return nil
}

// reportGauges periodically mirrors Discovery's online peer count and
// Crypto's established session count into their respective gauges. Both
// are point-in-time snapshots polled on an interval rather than updated at
// every mutation site, since neither subsystem otherwise needs a metrics
// dependency threaded through its mutation methods.
func reportGauges(ctx context.Context, disc *discovery.Manager, cryptoMgr *crypto.Manager, collector *pingometrics.Collector) error {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			collector.SetPeersOnline(disc.OnlineCount())
			collector.SetCryptoSessions(cryptoMgr.SessionCount())
		}
	}
}

// gracefulShutdown shuts down every HTTP server with a bounded timeout.
func gracefulShutdown(mediaSrv *media.Server, adminSrv *admin.Server, metricsSrv *http.Server, logger *slog.Logger) error {
	logger.Info("initiating graceful shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error
	if shutErr := mediaSrv.Stop(ctx); shutErr != nil {
		err = errors.Join(err, fmt.Errorf("stop media server: %w", shutErr))
	}
	if shutErr := adminSrv.Stop(ctx); shutErr != nil {
		err = errors.Join(err, fmt.Errorf("stop admin server: %w", shutErr))
	}
	if shutErr := metricsSrv.Shutdown(ctx); shutErr != nil {
		err = errors.Join(err, fmt.Errorf("stop metrics server: %w", shutErr))
	}
	return err
}

func newMetricsServer(addr, path string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// loadOrCreateIdentity loads the persisted device id and keypair from the
// Store's settings table, generating and persisting both on first run
// (spec.md §6: "settings keys persisted by the runtime include device_id
// and public_key").
func loadOrCreateIdentity(st *store.Store, username string) (discovery.Identity, crypto.KeyPair, error) {
	deviceID, err := st.GetSetting("device_id")
	if errors.Is(err, store.ErrNoRows) {
		deviceID, err = crypto.NewDeviceID()
		if err != nil {
			return discovery.Identity{}, crypto.KeyPair{}, fmt.Errorf("generate device id: %w", err)
		}
		if err := st.SetSetting("device_id", deviceID); err != nil {
			return discovery.Identity{}, crypto.KeyPair{}, fmt.Errorf("persist device id: %w", err)
		}
	} else if err != nil {
		return discovery.Identity{}, crypto.KeyPair{}, fmt.Errorf("load device id: %w", err)
	}

	kp, err := loadOrCreateKeyPair(st)
	if err != nil {
		return discovery.Identity{}, crypto.KeyPair{}, err
	}

	if username == "" {
		username = deviceID
	}

	return discovery.Identity{
		DeviceID:  deviceID,
		Username:  username,
		PublicKey: kp.PubBase64(),
	}, kp, nil
}

// loadOrCreateKeyPair loads the previously-persisted keypair, storing both
// halves under their own settings keys so no re-derivation is needed on
// subsequent starts.
func loadOrCreateKeyPair(st *store.Store) (crypto.KeyPair, error) {
	privB64, err := st.GetSetting("private_key_b64")
	if errors.Is(err, store.ErrNoRows) {
		kp, genErr := crypto.GenerateKeyPair()
		if genErr != nil {
			return crypto.KeyPair{}, fmt.Errorf("generate keypair: %w", genErr)
		}
		if setErr := st.SetSetting("private_key_b64", base64.StdEncoding.EncodeToString(kp.Priv[:])); setErr != nil {
			return crypto.KeyPair{}, fmt.Errorf("persist private key: %w", setErr)
		}
		if setErr := st.SetSetting("public_key", kp.PubBase64()); setErr != nil {
			return crypto.KeyPair{}, fmt.Errorf("persist public key: %w", setErr)
		}
		return kp, nil
	}
	if err != nil {
		return crypto.KeyPair{}, fmt.Errorf("load private key: %w", err)
	}

	pubB64, err := st.GetSetting("public_key")
	if err != nil {
		return crypto.KeyPair{}, fmt.Errorf("load public key: %w", err)
	}

	priv, err := decodeKey32(privB64)
	if err != nil {
		return crypto.KeyPair{}, fmt.Errorf("decode stored private key: %w", err)
	}
	pub, err := decodeKey32(pubB64)
	if err != nil {
		return crypto.KeyPair{}, fmt.Errorf("decode stored public key: %w", err)
	}

	return crypto.KeyPair{Priv: priv, Pub: pub}, nil
}

func decodeKey32(b64 string) ([32]byte, error) {
	var out [32]byte
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil || len(raw) != 32 {
		return out, fmt.Errorf("expected 32 bytes base64-encoded")
	}
	copy(out[:], raw)
	return out, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	level := config.ParseLogLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
