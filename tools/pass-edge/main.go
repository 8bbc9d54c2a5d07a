// Command pass-edge is an AWS Lambda behind API Gateway that trades a
// static token and a ticket for a signed pass, calling walletpass
// with the hawk credentials attached to the token.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Netflix/go-env"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/getsops/sops/v3"
	"github.com/getsops/sops/v3/decrypt"
	"github.com/mozilla-services/yaml"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.mozilla.org/mozlogrus"
)

var (
	errInvalidToken               = errors.New("invalid authorization token")
	errInvalidMethod              = errors.New("only POST requests are supported")
	errMissingBody                = errors.New("missing request body")
	errWalletpassBadStatusCode    = errors.New("failed to retrieve pass from walletpass")
	errWalletpassBadResponseCount = errors.New("received an invalid number of responses from walletpass")
	errWalletpassEmptyResponse    = errors.New("walletpass returned an invalid empty response")
)

// minTokenLength rejects obviously truncated tokens before lookup
const minTokenLength = 60

// environment is read from the lambda environment variables
type environment struct {
	URL        string        `env:"WALLETPASS_URL,required=true"`
	ConfigPath string        `env:"PASS_EDGE_CONFIG,default=pass-edge.yaml"`
	Timeout    time.Duration `env:"PASS_EDGE_TIMEOUT,default=30s"`
}

type configuration struct {
	Authorizations []authorization
}

// authorization maps a token to walletpass hawk credentials and the
// signer to request
type authorization struct {
	Token string
	User  string
	Key   string
	KeyID string
}

// edge holds the loaded configuration of the lambda
type edge struct {
	url   string
	auths []authorization
	cli   *http.Client
}

func init() {
	// initialize the logger
	mozlogrus.Enable("pass-edge")
}

func main() {
	e, err := newEdgeFromEnviron()
	if err != nil {
		log.Fatal(err)
	}
	if os.Getenv("LAMBDA_TASK_ROOT") != "" {
		lambda.Start(e.Handler)
		return
	}
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <ticket json>\n", os.Args[0])
		os.Exit(1)
	}
	resp, err := e.Handler(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Headers:    map[string]string{"Authorization": os.Getenv("PASS_EDGE_TOKEN")},
		Body:       os.Args[1],
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	log.Printf("%d %s", resp.StatusCode, resp.Headers["Content-Type"])
}

// newEdgeFromEnviron reads the environment and loads the token file it
// points to, relative to the lambda task root when set
func newEdgeFromEnviron() (*edge, error) {
	es, err := env.EnvironToEnvSet(os.Environ())
	if err != nil {
		return nil, errors.Wrap(err, "failed to read environment")
	}
	return newEdge(es)
}

func newEdge(es env.EnvSet) (*edge, error) {
	var (
		envConf environment
		conf    configuration
	)
	if err := env.Unmarshal(es, &envConf); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal environment variables")
	}
	path := envConf.ConfigPath
	if root := es["LAMBDA_TASK_ROOT"]; root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	log.Info("loading configuration from " + path)
	if err := conf.loadFromFile(path); err != nil {
		return nil, err
	}
	for _, auth := range conf.Authorizations {
		if len(auth.Token) < minTokenLength {
			return nil, fmt.Errorf("token of user %q is shorter than %d characters", auth.User, minTokenLength)
		}
	}
	return &edge{
		url:   envConf.URL,
		auths: conf.Authorizations,
		cli:   &http.Client{Timeout: envConf.Timeout},
	}, nil
}

// Handler serves an API Gateway proxy request. The body is a ticket,
// either JSON or base64 encoded JSON.
func (e *edge) Handler(ctx context.Context, r events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	rid := r.RequestContext.RequestID
	log.WithFields(log.Fields{
		"remoteAddressChain": "[" + r.Headers["X-Forwarded-For"] + "]",
		"method":             r.HTTPMethod,
		"url":                r.Path,
		"content-type":       r.Headers["content-type"],
		"rid":                rid,
	}).Info("request")

	// some sanity checking on the request
	if r.HTTPMethod != http.MethodPost {
		log.WithFields(log.Fields{"rid": rid}).Error("invalid method")
		return errorResponse(http.StatusMethodNotAllowed, errInvalidMethod), nil
	}
	if len(r.Headers["Authorization"]) < minTokenLength {
		log.WithFields(log.Fields{"rid": rid}).Error("missing authorization header")
		return errorResponse(http.StatusUnauthorized, errInvalidToken), nil
	}
	if len(r.Body) < 1 {
		log.WithFields(log.Fields{"rid": rid}).Error("missing request body")
		return errorResponse(http.StatusBadRequest, errMissingBody), nil
	}
	ticket, err := decodeBody(r)
	if err != nil {
		log.WithFields(log.Fields{"rid": rid}).Error(err)
		return errorResponse(http.StatusBadRequest, err), nil
	}

	log.WithFields(log.Fields{"rid": rid}).Info("checking authorization token")
	auth, err := e.authorize(r.Headers["Authorization"])
	if err != nil {
		log.WithFields(log.Fields{"rid": rid}).Error(err)
		return errorResponse(http.StatusUnauthorized, err), nil
	}
	log.WithFields(log.Fields{
		"rid":  rid,
		"user": auth.User,
	}).Info("authorization succeeded")

	log.WithFields(log.Fields{"rid": rid}).Info("calling walletpass")
	signed, err := e.callWalletpass(ctx, auth, ticket)
	if err != nil {
		log.WithFields(log.Fields{"rid": rid}).Error(err)
		return errorResponse(http.StatusBadGateway, err), nil
	}

	log.WithFields(log.Fields{
		"rid":           rid,
		"serial_number": signed.SerialNumber,
		"signer_id":     signed.SignerID,
	}).Info("returning signed pass")
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Content-Type":        signed.ContentType,
			"Content-Disposition": fmt.Sprintf("attachment; filename=%q", signed.SerialNumber+".pkpass"),
		},
		Body:            signed.Pass,
		IsBase64Encoded: true,
	}, nil
}

func errorResponse(code int, err error) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: code,
		Headers:    map[string]string{"Content-Type": "text/plain"},
		Body:       err.Error(),
	}
}

// decodeBody returns the ticket JSON of a request body. Bodies that
// are not a JSON object are decoded from base64.
func decodeBody(r events.APIGatewayProxyRequest) ([]byte, error) {
	body := []byte(r.Body)
	if r.IsBase64Encoded || !bytes.HasPrefix(bytes.TrimSpace(body), []byte("{")) {
		decoded, err := base64.StdEncoding.DecodeString(r.Body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to decode base64 request body")
		}
		body = decoded
	}
	body = bytes.TrimSpace(body)
	if !bytes.HasPrefix(body, []byte("{")) {
		return nil, errors.New("request body is not a JSON ticket")
	}
	return body, nil
}

// loadFromFile reads a configuration from a local file
func (c *configuration) loadFromFile(path string) error {
	var confData []byte
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Try to decrypt the conf using sops or load it as plaintext.
	// If the configuration is not encrypted with sops, the error
	// sops.MetadataNotFound will be returned, in which case we
	// ignore it and continue loading the conf.
	confData, err = decrypt.Data(data, "yaml")
	if err != nil {
		if err == sops.MetadataNotFound {
			// not an encrypted file
			confData = data
		} else {
			return errors.Wrap(err, "failed to load sops encrypted configuration")
		}
	}
	return yaml.Unmarshal(confData, &c)
}

func (e *edge) authorize(authHeader string) (authorization, error) {
	for _, auth := range e.auths {
		if authHeader == auth.Token {
			return auth, nil
		}
	}
	return authorization{}, errInvalidToken
}
