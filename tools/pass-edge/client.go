package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.mozilla.org/hawk"

	"github.com/evently/walletpass/formats"
)

// callWalletpass requests a pass for a ticket from walletpass and
// returns the single response, its archive still base64 encoded
func (e *edge) callWalletpass(ctx context.Context, auth authorization, ticket []byte) (*formats.PassResponse, error) {
	requests := []formats.PassRequest{{
		KeyID:  auth.KeyID,
		Ticket: json.RawMessage(ticket),
	}}
	reqBody, err := json.Marshal(requests)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	// make the hawk auth header
	hawkAuth := hawk.NewRequestAuth(req,
		&hawk.Credentials{
			ID:   auth.User,
			Key:  auth.Key,
			Hash: sha256.New},
		0)
	hawkAuth.Ext = fmt.Sprintf("%d", time.Now().Nanosecond())
	payloadhash := hawkAuth.PayloadHash("application/json")
	payloadhash.Write(reqBody)
	hawkAuth.SetHash(payloadhash)
	req.Header.Set("Authorization", hawkAuth.RequestHeader())

	resp, err := e.cli.Do(req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errWalletpassEmptyResponse
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, errors.Wrapf(errWalletpassBadStatusCode, "status %d", resp.StatusCode)
	}
	var responses []formats.PassResponse
	if err = json.Unmarshal(respBody, &responses); err != nil {
		return nil, errors.Wrap(err, "failed to decode walletpass response")
	}
	if len(responses) != 1 {
		return nil, errWalletpassBadResponseCount
	}
	if _, err = base64.StdEncoding.DecodeString(responses[0].Pass); err != nil || responses[0].Pass == "" {
		return nil, errWalletpassEmptyResponse
	}
	return &responses[0], nil
}
