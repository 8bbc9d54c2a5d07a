package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.mozilla.org/hawk"

	"github.com/evently/walletpass/formats"
)

func monitorServer(t *testing.T, status int, results ...formats.MonitoringResponse) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /__monitor__", func(w http.ResponseWriter, r *http.Request) {
		auth, err := hawk.ParseRequestHeader(r.Header.Get("Authorization"))
		if err != nil || auth.Credentials.ID != "monitor" {
			http.Error(w, "invalid authorization", http.StatusUnauthorized)
			return
		}
		w.WriteHeader(status)
		enc := json.NewEncoder(w)
		for _, res := range results {
			enc.Encode(res)
		}
	})
	return httptest.NewTLSServer(mux)
}

func testConf(url string) *configuration {
	return &configuration{
		URL:           url + "/",
		MonitoringKey: "fakenotused",
		MinFiles:      3,
	}
}

func TestGoldenPath(t *testing.T) {
	server := monitorServer(t, http.StatusCreated,
		formats.MonitoringResponse{SignerID: "gala", SerialNumber: "a1", Files: 7},
		formats.MonitoringResponse{SignerID: "gala-p12", SerialNumber: "b2", Files: 7},
	)
	defer server.Close()

	if err := Handler(context.Background(), testConf(server.URL), server.Client()); err != nil {
		t.Errorf("handler error: %v", err)
	}
}

func TestMonitoringFailures(t *testing.T) {
	testcases := []struct {
		name     string
		status   int
		results  []formats.MonitoringResponse
		expected string
	}{
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			expected: "request failed with 500",
		},
		{
			name:     "no results",
			status:   http.StatusCreated,
			expected: "no monitoring results",
		},
		{
			name:   "signer failed",
			status: http.StatusCreated,
			results: []formats.MonitoringResponse{
				{SignerID: "gala", SerialNumber: "a1", Files: 7},
				{SignerID: "gala-p12", Error: "signing identity expired"},
			},
			expected: "Errors found during monitoring:\n1. signer \"gala-p12\": signing identity expired",
		},
		{
			name:   "incomplete pass",
			status: http.StatusCreated,
			results: []formats.MonitoringResponse{
				{SignerID: "gala", SerialNumber: "a1", Files: 1},
				{SignerID: "gala-p12", Files: 7},
			},
			expected: "1. signer \"gala\": manifest lists 1 files, expected at least 3\n2. signer \"gala-p12\": missing serial number",
		},
	}
	for _, testcase := range testcases {
		testcase := testcase
		t.Run(testcase.name, func(t *testing.T) {
			t.Parallel()

			server := monitorServer(t, testcase.status, testcase.results...)
			defer server.Close()

			err := Handler(context.Background(), testConf(server.URL), server.Client())
			if err == nil || !strings.Contains(err.Error(), testcase.expected) {
				t.Fatalf("expected error containing %q, got %v", testcase.expected, err)
			}
		})
	}
}

func TestLoadConf(t *testing.T) {
	t.Parallel()

	conf, err := loadConf([]string{
		"WALLETPASS_URL=https://walletpass.example.net",
		"WALLETPASS_MONITORING_KEY=19zd4w3xirb5syjgdx8atq6g91m03bdsmzjifs2oddivswlu9qs",
	})
	if err != nil {
		t.Fatal(err)
	}
	if conf.URL != "https://walletpass.example.net/" {
		t.Errorf("expected a trailing slash on the url, got %q", conf.URL)
	}
	if conf.MinFiles != 3 || conf.Timeout.Seconds() != 60 {
		t.Errorf("unexpected defaults %+v", conf)
	}

	if _, err := loadConf([]string{"WALLETPASS_URL=https://walletpass.example.net"}); err == nil {
		t.Error("expected a missing monitoring key to fail")
	}
}
