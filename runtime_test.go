package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
)

func TestLoadRuntimeSettings(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		environ  []string
		expected runtimeSettings
		err      string
	}{
		{nil, runtimeSettings{BlockProfileRate: -1, MutexProfileFraction: -1}, ""},
		{[]string{"BLOCK_PROFILE_RATE=1"}, runtimeSettings{BlockProfileRate: 1, MutexProfileFraction: -1}, ""},
		{[]string{"BLOCK_PROFILE_RATE=0", "MUTEX_PROFILE_FRACTION=5"}, runtimeSettings{BlockProfileRate: 0, MutexProfileFraction: 5}, ""},
		{[]string{"MUTEX_PROFILE_FRACTION=often"}, runtimeSettings{}, "failed to parse runtime settings"},
	}
	for i, testcase := range testcases {
		settings, err := loadRuntimeSettings(testcase.environ)
		if testcase.err != "" {
			if err == nil || !strings.HasPrefix(err.Error(), testcase.err) {
				t.Fatalf("testcase %d expected error %q, got %v", i, testcase.err, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("testcase %d failed: %v", i, err)
		}
		if settings != testcase.expected {
			t.Fatalf("testcase %d expected %+v, got %+v", i, testcase.expected, settings)
		}
	}
}

func TestSetRuntimeConfigRejectsInvalid(t *testing.T) {
	t.Parallel()

	if err := setRuntimeConfig([]string{"BLOCK_PROFILE_RATE=never"}); err == nil {
		t.Fatal("expected an invalid rate to fail")
	}
	// defaults leave the runtime alone
	if err := setRuntimeConfig(nil); err != nil {
		t.Fatal(err)
	}
}

func TestProfilerHandlers(t *testing.T) {
	t.Parallel()

	router := mux.NewRouter()
	addProfilerHandlers(router)
	for _, path := range []string{"/debug/pprof/", "/debug/pprof/cmdline", "/debug/pprof/goroutine?debug=1"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("expected 200 on %s, got %d", path, w.Code)
		}
	}
}
