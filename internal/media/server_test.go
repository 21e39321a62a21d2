package media_test

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/pingonet/pingo-core/internal/media"
)

func newTestServer(t *testing.T) (*media.Server, *media.Store, int) {
	t.Helper()

	store := newTestStore(t)
	srv := media.New(store, nil)
	port, err := srv.Start()
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Stop(ctx)
	})
	return srv, store, port
}

func TestGetFileServesRegisteredBlobWithCORS(t *testing.T) {
	t.Parallel()

	_, store, port := newTestServer(t)
	payload := base64.StdEncoding.EncodeToString([]byte("payload-bytes"))
	if _, err := store.StoreDataURL("f1", "data:text/plain;base64,"+payload, "note.txt"); err != nil {
		t.Fatalf("StoreDataURL() error = %v", err)
	}

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/file/f1", port))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header on file response")
	}
}

func TestGetFileUnknownIDReturns404(t *testing.T) {
	t.Parallel()

	_, _, port := newTestServer(t)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/file/does-not-exist", port))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestOptionsPreflightReturns200WithCORSHeaders(t *testing.T) {
	t.Parallel()

	_, _, port := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, fmt.Sprintf("http://127.0.0.1:%d/file/anything", port), nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Methods") != "GET, OPTIONS" {
		t.Error("missing Access-Control-Allow-Methods preflight header")
	}
}

func TestOtherPathsReturnStaticBanner(t *testing.T) {
	t.Parallel()

	_, _, port := newTestServer(t)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/whatever", port))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
