package main

import (
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/evently/walletpass/formats"
)

// passLog is a pass response without its archive
type passLog struct {
	Ref          string `json:"ref"`
	SignerID     string `json:"signer_id"`
	SerialNumber string `json:"serial_number"`
	Size         int    `json:"size"`
}

// signingLog is passed from the request handler to the logging
// middleware through the request context
type signingLog struct {
	sync.Mutex
	userid string
	passes []passLog
}

// recordSigningLog stores the user and the passes signed for a
// request in its signing log, the archives themselves are left out
func recordSigningLog(r *http.Request, userid string, passresps []formats.PassResponse) {
	sl := getSigningLog(r)
	if sl == nil {
		return
	}
	sl.Lock()
	defer sl.Unlock()
	sl.userid = userid
	for _, resp := range passresps {
		sl.passes = append(sl.passes, passLog{
			Ref:          resp.Ref,
			SignerID:     resp.SignerID,
			SerialNumber: resp.SerialNumber,
			Size:         len(resp.Pass),
		})
	}
}

// logRequest is a middleware that writes details about each HTTP request processed
// by the various handlers. It is executed last to capture signing logs as well.
func logRequest() Middleware {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sl := new(signingLog)
			h.ServeHTTP(w, addToContext(r, contextKeySigningLog, sl))

			sl.Lock()
			defer sl.Unlock()
			log.WithFields(log.Fields{
				"remoteAddress":      r.RemoteAddr,
				"remoteAddressChain": "[" + r.Header.Get("X-Forwarded-For") + "]",
				"method":             r.Method,
				"proto":              r.Proto,
				"url":                r.URL.String(),
				"ua":                 r.UserAgent(),
				"rid":                getRequestID(r),
				"t":                  int32(time.Since(getRequestStartTime(r)) / time.Millisecond),
				"user":               sl.userid,
				"signing_log":        sl.passes,
			}).Info("request")
		})
	}
}
