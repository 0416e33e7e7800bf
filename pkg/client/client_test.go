package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/docvault/docvault/pkg/client"
)

// ── Stub server ─────────────────────────────────────────────────────────

func stubVaultServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/integrity/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"connected":       true,
			"simulation_mode": true,
			"queued":          0,
			"processed":       4,
			"dropped":         0,
			"merkle_root":     "ab12",
			"documents":       2,
		})
	})

	mux.HandleFunc("/api/v1/integrity/merkle-root", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"merkle_root": "ab12",
			"documents":   2,
			"empty":       false,
		})
	})

	mux.HandleFunc("/api/v1/integrity/verify-ledger/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/integrity/verify-ledger/ghost" {
			http.Error(w, `{"error":"document not found"}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"document_id": "doc-1",
			"verified":    true,
			"stage":       "direct",
			"stored_hash": "cd34",
			"ledger_hash": "cd34",
			"simulated":   true,
		})
	})

	mux.HandleFunc("/api/v1/ledger/roots", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"count": 2,
			"roots": []map[string]any{
				{"root": "ef56", "position": 2, "timestamp": "2026-05-02T10:30:00Z"},
				{"root": "ab12", "position": 1, "timestamp": "2026-05-01T09:00:00Z"},
			},
		})
	})

	mux.HandleFunc("/api/v1/ledger/history/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"document_id": "doc-1",
			"count":       1,
			"history": []map[string]any{
				{"position": 1, "action": "upload", "timestamp": "2026-05-01T09:00:00Z", "payload_hash": "cd34"},
			},
		})
	})

	return httptest.NewServer(mux)
}

func TestStatus(t *testing.T) {
	srv := stubVaultServer(t)
	defer srv.Close()

	c := client.New(srv.URL)
	st, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.SimulationMode || !st.Connected {
		t.Errorf("unexpected status: %+v", st)
	}
	if st.Documents != 2 {
		t.Errorf("documents = %d, want 2", st.Documents)
	}
}

func TestCurrentRoot(t *testing.T) {
	srv := stubVaultServer(t)
	defer srv.Close()

	c := client.New(srv.URL)
	root, err := c.CurrentRoot(context.Background())
	if err != nil {
		t.Fatalf("CurrentRoot: %v", err)
	}
	if root.MerkleRoot != "ab12" || root.Empty {
		t.Errorf("unexpected root: %+v", root)
	}
}

func TestVerifyDocument(t *testing.T) {
	srv := stubVaultServer(t)
	defer srv.Close()

	c := client.New(srv.URL)
	rep, err := c.VerifyDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("VerifyDocument: %v", err)
	}
	if !rep.Verified || rep.Stage != "direct" {
		t.Errorf("unexpected report: %+v", rep)
	}
}

func TestVerifyDocument_notFound(t *testing.T) {
	srv := stubVaultServer(t)
	defer srv.Close()

	c := client.New(srv.URL)
	_, err := c.VerifyDocument(context.Background(), "ghost")
	if !errors.Is(err, client.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestHistoricalRoots(t *testing.T) {
	srv := stubVaultServer(t)
	defer srv.Close()

	c := client.New(srv.URL)
	roots, err := c.HistoricalRoots(context.Background())
	if err != nil {
		t.Fatalf("HistoricalRoots: %v", err)
	}
	if len(roots) != 2 || roots[0].Root != "ef56" {
		t.Errorf("unexpected roots: %+v", roots)
	}
}

func TestDocumentHistory(t *testing.T) {
	srv := stubVaultServer(t)
	defer srv.Close()

	c := client.New(srv.URL)
	hist, err := c.DocumentHistory(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("DocumentHistory: %v", err)
	}
	if len(hist) != 1 || hist[0].Action != "upload" {
		t.Errorf("unexpected history: %+v", hist)
	}
}
