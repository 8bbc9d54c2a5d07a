// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"bytes"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"hash"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.mozilla.org/hawk"

	"github.com/evently/walletpass/formats"
	"github.com/evently/walletpass/signer/pkpass"
	verifier "github.com/evently/walletpass/verifier/pkpass"
)

const testTicket = `{
	"id": "T-1001",
	"ticketCode": "QR-1001",
	"customerFirstName": "Ada",
	"customerLastName": "Lovelace",
	"quantity": 2,
	"totalAmount": 59.90,
	"currency": "eur",
	"event": {"name": "Evently Gala", "date": "2030-06-21T19:30:00Z", "location": "Grand Hall"}
}`

// newSignPassRequest returns a hawk signed request to /sign/pass
func newSignPassRequest(t *testing.T, user, key string, body []byte) *http.Request {
	t.Helper()
	req, err := http.NewRequest("POST", "http://foo.bar/sign/pass", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", getAuthHeader(req, user, key, sha256.New, uuid.NewString(), "application/json", body))
	return req
}

// testRoots returns the certificate pool of the development signing CA
func testRoots(t *testing.T, conf configuration) *x509.CertPool {
	t.Helper()
	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM([]byte(conf.Signers[0].Credentials.WWDRPEM)) {
		t.Fatal("failed to load the development CA")
	}
	return roots
}

func TestSignPass(t *testing.T) {
	ag, conf := newTestWalletpass(t)
	alice := conf.Authorizations[0]
	roots := testRoots(t, conf)

	var TESTCASES = []struct {
		keyid    string
		signerID string
	}{
		// default signer of alice
		{"", "gala"},
		{"gala", "gala"},
		{"gala-p12", "gala-p12"},
	}
	for i, testcase := range TESTCASES {
		body, err := json.Marshal([]formats.PassRequest{{KeyID: testcase.keyid, Ticket: json.RawMessage(testTicket)}})
		if err != nil {
			t.Fatal(err)
		}
		req := newSignPassRequest(t, alice.ID, alice.Key, body)
		w := httptest.NewRecorder()
		ag.handleSignPass(w, req)
		if w.Code != http.StatusCreated || w.Body.String() == "" {
			t.Fatalf("test case %d failed with %d: %s", i, w.Code, w.Body.String())
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Fatalf("test case %d: expected a json response, got %q", i, ct)
		}

		var passresps []formats.PassResponse
		if err := json.Unmarshal(w.Body.Bytes(), &passresps); err != nil {
			t.Fatalf("test case %d: failed to parse response: %v", i, err)
		}
		if len(passresps) != 1 {
			t.Fatalf("test case %d: expected 1 pass, got %d", i, len(passresps))
		}
		resp := passresps[0]
		if resp.SignerID != testcase.signerID {
			t.Errorf("test case %d: expected signer %q, got %q", i, testcase.signerID, resp.SignerID)
		}
		if resp.SerialNumber != "T-1001" {
			t.Errorf("test case %d: expected serial number T-1001, got %q", i, resp.SerialNumber)
		}
		if resp.ContentType != pkpass.ContentType {
			t.Errorf("test case %d: expected content type %q, got %q", i, pkpass.ContentType, resp.ContentType)
		}
		if uuid.Validate(resp.Ref) != nil {
			t.Errorf("test case %d: ref %q is not a uuid", i, resp.Ref)
		}
		archive, err := base64.StdEncoding.DecodeString(resp.Pass)
		if err != nil {
			t.Fatalf("test case %d: failed to decode pass: %v", i, err)
		}
		res, err := verifier.VerifyArchive(archive, roots)
		if err != nil {
			t.Fatalf("test case %d: signed pass does not verify: %v", i, err)
		}
		if !strings.Contains(res.Signer.Subject.CommonName, "pass.com.evently.gala") {
			t.Errorf("test case %d: unexpected signer %q", i, res.Signer.Subject.CommonName)
		}
	}
}

func TestSignPassMultipleTickets(t *testing.T) {
	ag, conf := newTestWalletpass(t)
	alice := conf.Authorizations[0]

	body := []byte(`[
		{"ticket": {"id": 1, "event_name": "Matinee"}},
		{"keyid": "gala-p12", "ticket": {"ticket_id": "T-2", "event_name": "Evening"}}
	]`)
	req := newSignPassRequest(t, alice.ID, alice.Key, body)
	w := httptest.NewRecorder()
	ag.handleSignPass(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("failed with %d: %s", w.Code, w.Body.String())
	}
	var passresps []formats.PassResponse
	if err := json.Unmarshal(w.Body.Bytes(), &passresps); err != nil {
		t.Fatal(err)
	}
	if len(passresps) != 2 {
		t.Fatalf("expected 2 passes, got %d", len(passresps))
	}
	if passresps[0].SerialNumber != "1" || passresps[0].SignerID != "gala" {
		t.Errorf("unexpected first pass %+v", passresps[0])
	}
	if passresps[1].SerialNumber != "T-2" || passresps[1].SignerID != "gala-p12" {
		t.Errorf("unexpected second pass %+v", passresps[1])
	}
	if passresps[0].Ref == passresps[1].Ref {
		t.Error("expected every pass to get its own ref")
	}
}

func TestBadRequest(t *testing.T) {
	ag, conf := newTestWalletpass(t)
	alice := conf.Authorizations[0]

	tooMany := make([]formats.PassRequest, maxPassRequests+1)
	for i := range tooMany {
		tooMany[i].Ticket = json.RawMessage(`{"id": "T"}`)
	}
	tooManyBody, err := json.Marshal(tooMany)
	if err != nil {
		t.Fatal(err)
	}

	var TESTCASES = []struct {
		name string
		body []byte
	}{
		{"not json", []byte(`{{{{{{`)},
		{"object instead of list", []byte(`{"ticket": {"id": "T"}}`)},
		{"empty list", []byte(`[]`)},
		{"ticket is a list", []byte(`[{"ticket": [1, 2]}]`)},
		{"ticket is missing", []byte(`[{"keyid": "gala"}]`)},
		{"ticket is null", []byte(`[{"ticket": null}]`)},
		{"too many tickets", tooManyBody},
	}
	for _, testcase := range TESTCASES {
		req := newSignPassRequest(t, alice.ID, alice.Key, testcase.body)
		w := httptest.NewRecorder()
		ag.handleSignPass(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected to fail with %d but got %d: %s", testcase.name, http.StatusBadRequest, w.Code, w.Body.String())
		}
	}
}

func TestRequestTooLarge(t *testing.T) {
	ag, conf := newTestWalletpass(t)
	alice := conf.Authorizations[0]

	blob := strings.Repeat("foobar", 200000)
	body := []byte(`[{"ticket": {"id": "` + blob + `"}}]`)
	req := newSignPassRequest(t, alice.ID, alice.Key, body)
	w := httptest.NewRecorder()
	ag.handleSignPass(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected to fail with %d but got %d: %s", http.StatusBadRequest, w.Code, w.Body.String())
	}
}

func TestAuthFail(t *testing.T) {
	ag, conf := newTestWalletpass(t)
	alice := conf.Authorizations[0]
	body := []byte(`[{"ticket": ` + testTicket + `}]`)

	var TESTCASES = []struct {
		name string
		user string
		key  string
	}{
		{"wrong key", alice.ID, "9vh6bhlc10y63ow2k4zke7k0c3l9hpr8mo96p92jmbfqngs9e7d"},
		{"unknown user", "mallory", alice.Key},
		{"monitor user has no signer", monitorAuthID, conf.Monitoring.Key},
	}
	for _, testcase := range TESTCASES {
		req := newSignPassRequest(t, testcase.user, testcase.key, body)
		w := httptest.NewRecorder()
		ag.handleSignPass(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected to fail with %d but got %d: %s", testcase.name, http.StatusUnauthorized, w.Code, w.Body.String())
		}
	}

	// no authorization header at all
	req, err := http.NewRequest("POST", "http://foo.bar/sign/pass", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	w := httptest.NewRecorder()
	ag.handleSignPass(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected a request without authorization to fail with %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestSignerUnauthorized(t *testing.T) {
	ag, conf := newTestWalletpass(t)
	// bob may only use gala-p12
	bob := conf.Authorizations[1]

	body := []byte(`[{"keyid": "gala", "ticket": ` + testTicket + `}]`)
	req := newSignPassRequest(t, bob.ID, bob.Key, body)
	w := httptest.NewRecorder()
	ag.handleSignPass(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected to fail with %d but got %d: %s", http.StatusUnauthorized, w.Code, w.Body.String())
	}

	// his default signer is allowed
	body = []byte(`[{"ticket": ` + testTicket + `}]`)
	req = newSignPassRequest(t, bob.ID, bob.Key, body)
	w = httptest.NewRecorder()
	ag.handleSignPass(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected to succeed with %d but got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
}

func TestRouter(t *testing.T) {
	ag, _ := newTestWalletpass(t)
	router := ag.newRouter()

	var TESTCASES = []struct {
		method   string
		endpoint string
		code     int
	}{
		{"GET", "/__lbheartbeat__", http.StatusOK},
		{"GET", "/__heartbeat__", http.StatusOK},
		{"POST", "/__heartbeat__", http.StatusMethodNotAllowed},
		{"GET", "/sign/pass", http.StatusMethodNotAllowed},
		{"PUT", "/sign/pass", http.StatusMethodNotAllowed},
		{"POST", "/sign/pass", http.StatusUnauthorized},
		{"POST", "/__monitor__", http.StatusMethodNotAllowed},
		{"GET", "/sign/data", http.StatusNotFound},
	}
	for _, testcase := range TESTCASES {
		req := httptest.NewRequest(testcase.method, "http://foo.bar"+testcase.endpoint, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != testcase.code {
			t.Errorf("%s %s: expected %d, got %d", testcase.method, testcase.endpoint, testcase.code, w.Code)
		}
	}
}

func TestHeartbeat(t *testing.T) {
	t.Parallel()

	ag, err := newWalletpass(1)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest("GET", "http://foo.bar/__heartbeat__", nil)
	w := httptest.NewRecorder()
	ag.handleHeartbeat(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "{}" {
		t.Fatalf("expected heartbeat to return 200 {}, got %d %q", w.Code, w.Body.String())
	}
}

func TestLBHeartbeat(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "http://foo.bar/__lbheartbeat__", nil)
	w := httptest.NewRecorder()
	handleLBHeartbeat(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "ohai" {
		t.Fatalf("expected lbheartbeat to return 200 ohai, got %d %q", w.Code, w.Body.String())
	}
}

func TestVersion(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "http://foo.bar/__version__", nil)
	w := httptest.NewRecorder()
	handleVersion(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("failed with %d: %s", w.Code, w.Body.String())
	}
	var v map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("version.json is not valid json: %v", err)
	}
	for _, field := range []string{"source", "version", "commit"} {
		if _, ok := v[field]; !ok {
			t.Errorf("missing %q in version.json", field)
		}
	}
}

func TestSigningLogIsRecorded(t *testing.T) {
	ag, conf := newTestWalletpass(t)
	alice := conf.Authorizations[0]

	var sl *signingLog
	handler := handleMiddlewares(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sl = getSigningLog(r)
			ag.handleSignPass(w, r)
		}),
		setRequestID(),
		setRequestStartTime(),
		logRequest(),
	)

	body := []byte(`[{"ticket": ` + testTicket + `}]`)
	req := newSignPassRequest(t, alice.ID, alice.Key, body)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("failed with %d: %s", w.Code, w.Body.String())
	}
	if uuid.Validate(w.Header().Get("X-Request-Id")) != nil {
		t.Errorf("expected a request id header, got %q", w.Header().Get("X-Request-Id"))
	}
	if sl == nil {
		t.Fatal("expected the logging middleware to set a signing log")
	}
	if sl.userid != alice.ID {
		t.Errorf("expected the signing log user to be %q, got %q", alice.ID, sl.userid)
	}
	if len(sl.passes) != 1 || sl.passes[0].SerialNumber != "T-1001" || sl.passes[0].Size == 0 {
		t.Errorf("unexpected signing log %+v", sl.passes)
	}
}

func TestDebug(t *testing.T) {
	t.Parallel()

	ag, err := newWalletpass(1)
	if err != nil {
		t.Fatal(err)
	}
	ag.enableDebug()
	if !ag.debug {
		t.Fatalf("expected debug mode to be enabled, but is disabled")
	}
}

func getAuthHeader(req *http.Request, user, token string, hash func() hash.Hash, ext, contenttype string, payload []byte) string {
	auth := hawk.NewRequestAuth(req,
		&hawk.Credentials{
			ID:   user,
			Key:  token,
			Hash: hash},
		0)
	auth.Ext = ext
	payloadhash := auth.PayloadHash(contenttype)
	payloadhash.Write(payload)
	auth.SetHash(payloadhash)
	return auth.RequestHeader()
}
