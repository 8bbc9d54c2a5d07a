package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DataDog/datadog-go/statsd"
	"go.uber.org/mock/gomock"

	"github.com/evently/walletpass/internal/mockstatsd"
)

func TestStatsResponseWriterWritesResponseMetricOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockStats := mockstatsd.NewMockClientInterface(ctrl)
	mockStats.EXPECT().Incr("myhandler.response.status.4xx", []string(nil), 1.0).Times(1)
	mockStats.EXPECT().Incr("myhandler.response.success", []string(nil), 1.0).Times(1)
	mockStats.EXPECT().Incr("myhandler.response.status.400", []string(nil), 1.0).Times(1)

	recorder := httptest.NewRecorder()
	statsWriter := newStatsdWriter(recorder, "myhandler", mockStats)
	statsWriter.WriteHeader(http.StatusBadRequest)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status code %d, got %d", http.StatusBadRequest, recorder.Code)
	}

	statsWriter.WriteHeader(http.StatusCreated)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("tried to write to the headers again: Expected status code %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}

func TestStatsResponseWriterWritesToHeaderOnWrite(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockStats := mockstatsd.NewMockClientInterface(ctrl)
	mockStats.EXPECT().Incr("myhandler.response.status.2xx", []string(nil), 1.0).Times(1)
	mockStats.EXPECT().Incr("myhandler.response.success", []string(nil), 1.0).Times(1)
	mockStats.EXPECT().Incr("myhandler.response.status.200", []string(nil), 1.0).Times(1)

	recorder := httptest.NewRecorder()
	statsWriter := newStatsdWriter(recorder, "myhandler", mockStats)
	statsWriter.Write([]byte("hello"))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status code %d, got %d", http.StatusOK, recorder.Code)
	}
}

func TestWrappingStatsResponseWriteWritesAllMetrics(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockStats := mockstatsd.NewMockClientInterface(ctrl)
	mockStats.EXPECT().Incr("inner.response.status.5xx", []string(nil), 1.0).Times(1)
	mockStats.EXPECT().Incr("inner.response.status.500", []string(nil), 1.0).Times(1)
	mockStats.EXPECT().Incr("wrapper.response.status.5xx", []string(nil), 1.0).Times(1)
	mockStats.EXPECT().Incr("wrapper.response.status.500", []string(nil), 1.0).Times(1)

	recorder := httptest.NewRecorder()
	inner := newStatsdWriter(recorder, "inner", mockStats)
	wrapper := newStatsdWriter(inner, "wrapper", mockStats)

	wrapper.WriteHeader(http.StatusInternalServerError)
	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected status code %d, got %d", http.StatusInternalServerError, recorder.Code)
	}
}

func TestAPIStatsMiddlewareCountsAttempts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockStats := mockstatsd.NewMockClientInterface(ctrl)
	for _, prefix := range []string{"http.api.sign/pass", "agg.http.api"} {
		mockStats.EXPECT().Incr(prefix+".request.attempts", []string(nil), 1.0).Times(1)
		mockStats.EXPECT().Incr(prefix+".response.status.2xx", []string(nil), 1.0).Times(1)
		mockStats.EXPECT().Incr(prefix+".response.success", []string(nil), 1.0).Times(1)
		mockStats.EXPECT().Incr(prefix+".response.status.201", []string(nil), 1.0).Times(1)
	}

	handler := apiStatsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}, "http.api.sign/pass", mockStats)

	recorder := httptest.NewRecorder()
	handler(recorder, httptest.NewRequest("POST", "/sign/pass", nil))
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected status code %d, got %d", http.StatusCreated, recorder.Code)
	}
}

func TestAddStatsWithoutAddressKeepsNoOpClient(t *testing.T) {
	ag, err := newWalletpass(1)
	if err != nil {
		t.Fatal(err)
	}
	var conf configuration
	if err := ag.addStats(conf); err != nil {
		t.Fatal(err)
	}
	if _, ok := ag.stats.(*statsd.NoOpClient); !ok {
		t.Fatalf("expected a no-op stats client, got %T", ag.stats)
	}

	conf.Statsd.Addr = "127.0.0.1:8125"
	conf.Statsd.Namespace = "walletpass."
	if err := ag.addStats(conf); err != nil {
		t.Fatal(err)
	}
	if _, ok := ag.stats.(*statsd.Client); !ok {
		t.Fatalf("expected a statsd client, got %T", ag.stats)
	}
}
