// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/evently/walletpass/formats"
	"github.com/evently/walletpass/pass"
	"github.com/evently/walletpass/signer/pkpass"
)

const (
	// maxRequestBodySize bounds the body of signing requests
	maxRequestBodySize = 1 << 20

	// maxPassRequests bounds the number of passes signed in one request
	maxPassRequests = 16

	// heartbeatTimeout bounds the database check of the heartbeat
	heartbeatTimeout = 5 * time.Second
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// handleSignPass receives a list of tickets in a hawk authenticated
// POST request and returns a signed pass for each of them
func (a *walletpass) handleSignPass(w http.ResponseWriter, r *http.Request) {
	rid := getRequestID(r)
	starttime := getRequestStartTime(r)
	if r.Body == nil {
		httpError(w, r, http.StatusBadRequest, "missing request body")
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err != nil {
		httpError(w, r, http.StatusBadRequest, "failed to read request body: %s", err)
		return
	}
	userid, err := a.authorize(r, body)
	if err != nil {
		httpError(w, r, http.StatusUnauthorized, "authorization verification failed: %v", err)
		return
	}

	var passreqs []formats.PassRequest
	err = json.Unmarshal(body, &passreqs)
	if err != nil {
		httpError(w, r, http.StatusBadRequest, "failed to parse request body: %v", err)
		return
	}
	if len(passreqs) == 0 {
		httpError(w, r, http.StatusBadRequest, "no pass request found in body")
		return
	}
	if len(passreqs) > maxPassRequests {
		httpError(w, r, http.StatusBadRequest, "too many pass requests, at most %d are accepted", maxPassRequests)
		return
	}

	// resolve every signer and ticket before signing anything
	signerIDs := make([]int, len(passreqs))
	tickets := make([]pass.Ticket, len(passreqs))
	for i, passreq := range passreqs {
		signerIDs[i], err = a.getSignerID(userid, passreq.KeyID)
		if err != nil || signerIDs[i] < 0 {
			httpError(w, r, http.StatusUnauthorized, "%v", err)
			return
		}
		tickets[i], err = pass.DecodeTicket(passreq.Ticket)
		if err != nil {
			httpError(w, r, http.StatusBadRequest, "invalid ticket in request %d: %v", i, err)
			return
		}
	}

	passresps := make([]formats.PassResponse, len(passreqs))
	for i := range passreqs {
		s := a.signers[signerIDs[i]]
		signed, err := s.SignPass(r.Context(), tickets[i])
		if err != nil {
			httpError(w, r, signingErrorStatus(err), "signing of ticket %d failed with error: %v", i, err)
			return
		}
		passresps[i] = formats.PassResponse{
			Ref:          uuid.NewString(),
			SignerID:     s.Config().ID,
			SerialNumber: signed.SerialNumber,
			ContentType:  pkpass.ContentType,
			Pass:         base64.StdEncoding.EncodeToString(signed.Archive),
		}
	}
	recordSigningLog(r, userid, passresps)

	respdata, err := json.Marshal(passresps)
	if err != nil {
		httpError(w, r, http.StatusInternalServerError, "signing failed with error: %v", err)
		return
	}
	if a.debug {
		log.Debugf("signed %d passes for user %q", len(passresps), userid)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(respdata)
	log.WithFields(log.Fields{
		"rid":     rid,
		"user_id": userid,
		"t":       int32(time.Since(starttime) / time.Millisecond), // request processing time in ms
	}).Info("signing request completed successfully")
}

// handleHeartbeat returns 200 when the service and its database are
// reachable, 503 otherwise
func (a *walletpass) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	status := map[string]bool{}
	code := http.StatusOK
	if a.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), heartbeatTimeout)
		defer cancel()
		err := a.db.CheckConnectionContext(ctx)
		if err != nil {
			log.WithFields(log.Fields{"rid": getRequestID(r)}).Errorf("heartbeat failed: %v", err)
			code = http.StatusServiceUnavailable
		}
		status["database"] = err == nil
	}
	respdata, err := json.Marshal(status)
	if err != nil {
		httpError(w, r, http.StatusInternalServerError, "failed to marshal heartbeat status: %v", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(respdata)
}

// handleLBHeartbeat returns 200 to load balancers as long as the
// process serves requests
func handleLBHeartbeat(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ohai"))
}

// handleVersion returns the version.json file from the working directory
func handleVersion(w http.ResponseWriter, r *http.Request) {
	dir, err := os.Getwd()
	if err != nil {
		httpError(w, r, http.StatusInternalServerError, "Could not get CWD")
		return
	}
	filename := dir + "/version.json"
	f, err := os.Open(filename)
	if err != nil {
		httpError(w, r, http.StatusNotFound, "version.json file not found")
		return
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		httpError(w, r, http.StatusInternalServerError, "stat failed on version.json")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	http.ServeContent(w, r, "version.json", stat.ModTime(), f)
}

// signerTag is the key of a user and key id in the signer index
func signerTag(userid, keyid string) string {
	return fmt.Sprintf("%s+%s", userid, keyid)
}
