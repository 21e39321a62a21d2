package admin_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/pingonet/pingo-core/internal/admin"
	"github.com/pingonet/pingo-core/internal/crypto"
	"github.com/pingonet/pingo-core/internal/discovery"
	"github.com/pingonet/pingo-core/internal/transfer"
)

// freePort reserves an ephemeral port and releases it immediately so
// admin.Start (which takes an address, not a listener) can bind it.
func freePort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func TestHandlePeersListsDiscoveredPeers(t *testing.T) {
	t.Parallel()

	port := freePort(t)
	disc, err := discovery.New(discovery.Identity{DeviceID: "self"}, 0, nil)
	if err != nil {
		t.Fatalf("discovery.New() error = %v", err)
	}

	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}

	s := admin.New(disc, transfer.NewManager(), crypto.NewManager(kp), nil)
	if err := s.Start(fmt.Sprintf("127.0.0.1:%d", port)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	})

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/v1/peers", port))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var peers []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&peers); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(peers) != 0 {
		t.Errorf("peers = %v, want empty list for a fresh discovery manager", peers)
	}
}

func TestHandleTransfersAndSessionsReturnEmptyLists(t *testing.T) {
	t.Parallel()

	port := freePort(t)
	disc, err := discovery.New(discovery.Identity{DeviceID: "self"}, 0, nil)
	if err != nil {
		t.Fatalf("discovery.New() error = %v", err)
	}
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}

	s := admin.New(disc, transfer.NewManager(), crypto.NewManager(kp), nil)
	if err := s.Start(fmt.Sprintf("127.0.0.1:%d", port)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	})

	for _, path := range []string{"/v1/transfers", "/v1/sessions"} {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d%s", port, path))
		if err != nil {
			t.Fatalf("Get(%s) error = %v", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, resp.StatusCode)
		}
		var out []map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
		resp.Body.Close()
		if len(out) != 0 {
			t.Errorf("%s = %v, want empty list", path, out)
		}
	}
}

func TestHandlePeersRejectsNonGET(t *testing.T) {
	t.Parallel()

	port := freePort(t)
	disc, err := discovery.New(discovery.Identity{DeviceID: "self"}, 0, nil)
	if err != nil {
		t.Fatalf("discovery.New() error = %v", err)
	}
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}

	s := admin.New(disc, transfer.NewManager(), crypto.NewManager(kp), nil)
	if err := s.Start(fmt.Sprintf("127.0.0.1:%d", port)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	})

	resp, err := http.Post(fmt.Sprintf("http://127.0.0.1:%d/v1/peers", port), "application/json", nil)
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}
