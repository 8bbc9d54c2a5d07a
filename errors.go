// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/evently/walletpass/signer/pkpass"
)

// ErrAuthNotFound is for when authBackend.getAuthByID doesn't find an auth
var ErrAuthNotFound = errors.New("authorization not found")

// signingErrorStatus returns the status code of a failed signature.
// Tickets that cannot be turned into a valid pass are the client's
// fault, every other stage failing is ours.
func signingErrorStatus(err error) int {
	var serr *pkpass.StageError
	if errors.As(err, &serr) && serr.Stage == pkpass.StageContentBuilt && serr.After == pkpass.StageCredentialsReady {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// httpError logs an error with the request id and returns it to the
// client as plain text
func httpError(w http.ResponseWriter, r *http.Request, errorCode int, errorMessage string, args ...interface{}) {
	rid := getRequestID(r)
	msg := fmt.Sprintf(errorMessage, args...)
	entry := log.WithFields(log.Fields{
		"code": errorCode,
		"rid":  rid,
	})
	if errorCode >= http.StatusInternalServerError {
		entry.Error(msg)
	} else {
		entry.Warn(msg)
	}
	// when nginx is in front of go, nginx requires that the entire
	// request body is read before writing a response.
	// https://github.com/golang/go/issues/15789
	if r.Body != nil {
		io.Copy(io.Discard, r.Body)
		r.Body.Close()
	}
	http.Error(w, msg+"\r\nrequest-id: "+rid, errorCode)
}
