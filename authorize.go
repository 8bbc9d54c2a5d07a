// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mozilla.org/hawk"

	"github.com/evently/walletpass/formats"
)

// defaultHawkTimestampValidity applies to authorizations that do not
// set their own
const defaultHawkTimestampValidity = time.Minute

func abs(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// sendTiming reports the time elapsed since the request started
func (a *walletpass) sendTiming(r *http.Request, name string) {
	err := a.stats.Timing(name, time.Since(getRequestStartTime(r)), nil, 1.0)
	if err != nil {
		log.Warnf("Error sending %s: %s", name, err)
	}
}

// authorize validates the hawk authorization header on a request
// and returns the userid, or an error when the request is not
// authorized
func (a *walletpass) authorize(r *http.Request, body []byte) (userid string, err error) {
	var (
		auth *hawk.Auth
	)
	if r.Header.Get("Authorization") == "" {
		return "", fmt.Errorf("missing Authorization header")
	}
	auth, err = hawk.ParseRequestHeader(r.Header.Get("Authorization"))
	a.sendTiming(r, "hawk.header_parsed")
	if err != nil {
		return "", err
	}
	userid = auth.Credentials.ID
	auth, err = hawk.NewAuthFromRequest(r, a.lookupCred(auth.Credentials.ID), a.lookupNonce)
	a.sendTiming(r, "hawk.auth_created")
	if err != nil {
		return "", err
	}
	hawk.MaxTimestampSkew, err = a.getHawkTimestampValidity(userid)
	if err != nil {
		return "", err
	}
	err = auth.Valid()
	a.sendTiming(r, "hawk.validated")
	skew := abs(auth.ActualTimestamp.Sub(auth.Timestamp))
	if sendStatsErr := a.stats.Timing("hawk.timestamp_skew", skew, nil, 1.0); sendStatsErr != nil {
		log.Warnf("Error sending hawk.timestamp_skew: %s", sendStatsErr)
	}
	if err != nil {
		return "", err
	}
	payloadhash := auth.PayloadHash(r.Header.Get("Content-Type"))
	payloadhash.Write(body)
	a.sendTiming(r, "hawk.payload_hashed")
	if !auth.ValidHash(payloadhash) {
		return "", fmt.Errorf("payload validation failed")
	}
	return userid, nil
}

// getHawkTimestampValidity returns the accepted clock skew of a user
func (a *walletpass) getHawkTimestampValidity(userid string) (time.Duration, error) {
	auth, err := a.auths.getAuthByID(userid)
	if err != nil {
		return 0, err
	}
	if auth.HawkTimestampValidity <= 0 {
		return defaultHawkTimestampValidity, nil
	}
	return auth.HawkTimestampValidity, nil
}

// lookupCred searches the authorizations for a user whose id matches the provided
// id string. If found, a Credential function is return to complete the hawk authorization.
// If not found, a function that returns an error is returned.
func (a *walletpass) lookupCred(id string) hawk.CredentialsLookupFunc {
	auth, err := a.auths.getAuthByID(id)
	if err == nil {
		// matching user found, return its token
		return func(creds *hawk.Credentials) error {
			creds.Key = auth.Key
			creds.Hash = sha256.New
			return nil
		}
	}
	// credentials not found, return a function that returns a CredentialError
	return func(creds *hawk.Credentials) error {
		return &hawk.CredentialError{
			Type: hawk.UnknownID,
			Credentials: &hawk.Credentials{
				ID:   id,
				Key:  "-",
				Hash: sha256.New,
			},
		}
	}
}

// lookupNonce searches the LRU cache for a previous nonce that matches the value provided in
// val. If found, this is a replay attack, and `false` is returned.
func (a *walletpass) lookupNonce(val string, ts time.Time, creds *hawk.Credentials) bool {
	if a.nonces.Contains(val) {
		return false
	}
	a.nonces.Add(val, time.Now())
	return true
}

// addAuthorizations adds the hawk credentials of the configuration
// to the auth backend after checking their format
func (a *walletpass) addAuthorizations(auths []formats.Authorization) error {
	for i := range auths {
		if err := auths[i].Validate(); err != nil {
			return err
		}
		if err := a.auths.addAuth(&auths[i]); err != nil {
			return err
		}
	}
	return nil
}

// makeSignerIndex creates a map of authorization IDs and signer IDs to
// quickly locate a signer based on the user requesting the signature.
// The first signer of an authorization is its default signer.
func (a *walletpass) makeSignerIndex() error {
	auths := a.auths.getAuths()
	a.signerIndex = make(map[string]int)
	// for each authorization, loop over its signers and find the
	// position of the signer in the signers slice
	for _, auth := range auths {
		if auth.ID == monitorAuthID {
			continue
		}
		if len(auth.Signers) < 1 {
			return fmt.Errorf("auth id %q must have at least one signer configured", auth.ID)
		}
		for _, sid := range auth.Signers {
			// make sure the sid is valid
			sidExists := false

			for pos, s := range a.signers {
				if sid == s.Config().ID {
					sidExists = true
					log.Infof("Mapping auth id %q and signer id %q to signer %d", auth.ID, s.Config().ID, pos)
					a.signerIndex[signerTag(auth.ID, s.Config().ID)] = pos
				}
			}

			if !sidExists {
				return fmt.Errorf("in auth id %q, signer id %q was not found in the list of known signers", auth.ID, sid)
			}
		}
		// add a default signer with an empty key id
		for pos, s := range a.signers {
			if auth.Signers[0] == s.Config().ID {
				log.Infof("Mapping auth id %q to default signer %d", auth.ID, pos)
				a.signerIndex[signerTag(auth.ID, "")] = pos
				break
			}
		}
	}
	return nil
}

// getSignerID returns the signer identifier for the user. If a keyid is specified,
// the corresponding signer is returned. If no signer is found, an error is returned
// and the signer identifier is set to -1.
func (a *walletpass) getSignerID(userid, keyid string) (int, error) {
	tag := signerTag(userid, keyid)
	if _, ok := a.signerIndex[tag]; !ok {
		if keyid == "" {
			return -1, fmt.Errorf("%q does not have a default signing key", userid)
		}
		return -1, fmt.Errorf("%s is not authorized to sign with key ID %s", userid, keyid)
	}
	return a.signerIndex[tag], nil
}

// authorizationsSummary lists the signers and the users allowed to use them
func (a *walletpass) authorizationsSummary() string {
	var (
		sb    strings.Builder
		auths = a.auths.getAuths()
		users = make([]string, 0, len(auths))
	)
	for user := range auths {
		users = append(users, user)
	}
	sort.Strings(users)

	sb.WriteString("\n---- Signers ----\n")
	for _, s := range a.signers {
		conf := s.Config()
		fmt.Fprintf(&sb, "- %s [%s %s %s]:\n", conf.ID, conf.Type, conf.Mode, conf.PassTypeIdentifier)
		for _, user := range users {
			for _, authsigner := range auths[user].Signers {
				if authsigner == conf.ID {
					fmt.Fprintf(&sb, "\t* %s\n", user)
				}
			}
		}
	}
	sb.WriteString("\n---- Authorizations ----\n")
	for _, user := range users {
		fmt.Fprintf(&sb, "- %s:\n", user)
		for _, authsigner := range auths[user].Signers {
			fmt.Fprintf(&sb, "\t* %s\n", authsigner)
		}
	}
	return sb.String()
}
