package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

const monitorAuthID = "monitor"

func (a *walletpass) handleMonitor(w http.ResponseWriter, r *http.Request) {
	rid := getRequestID(r)
	starttime := time.Now()
	userid, err := a.authorize(r, []byte(""))
	if err != nil {
		httpError(w, r, http.StatusUnauthorized, "authorization verification failed: %v", err)
		return
	}
	if userid != monitorAuthID {
		httpError(w, r, http.StatusUnauthorized, "user is not permitted to call this endpoint")
		return
	}

	// Wait until the results have been populated with an initial check
	select {
	case <-a.monitor.initialized:
	case <-r.Context().Done():
		httpError(w, r, http.StatusServiceUnavailable, "monitoring results are not available yet")
		return
	}

	a.monitor.RLock()
	defer a.monitor.RUnlock()

	var failures []string
	for _, res := range a.monitor.results {
		if res.Error != "" {
			failures = append(failures, fmt.Sprintf("%s: %s", res.SignerID, res.Error))
		}
	}
	if len(failures) > 0 {
		failure := "Errors encountered during signing:"
		for i, fail := range failures {
			failure += fmt.Sprintf("\n%d. %s", i+1, fail)
		}
		httpError(w, r, http.StatusInternalServerError, "%s", failure)
		return
	}

	if a.debug {
		log.Debugf("monitoring results: %+v", a.monitor.results)
	}
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	enc := json.NewEncoder(w)
	for _, res := range a.monitor.results {
		if err := enc.Encode(&res); err != nil {
			log.WithFields(log.Fields{"rid": rid}).Errorf("encoding failed with error: %v", err)
			return
		}
	}

	log.WithFields(log.Fields{
		"rid":     rid,
		"user_id": userid,
		"t":       int32(time.Since(starttime) / time.Millisecond), //  request processing time in ms
	}).Info("monitoring operation succeeded")
}
