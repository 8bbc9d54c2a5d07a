// Command pass-monitor calls the monitoring endpoint of walletpass and
// fails when any signer could not issue a verifiable pass. It runs as
// a scheduled lambda or from the command line.
package main

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.mozilla.org/hawk"
	"go.mozilla.org/mozlogrus"

	"github.com/evently/walletpass/formats"
)

type configuration struct {
	URL           string        `env:"WALLETPASS_URL,required=true"`
	MonitoringKey string        `env:"WALLETPASS_MONITORING_KEY,required=true"`
	Timeout       time.Duration `env:"PASS_MONITOR_TIMEOUT,default=60s"`

	// MinFiles is the least number of files a monitoring pass lists
	// in its manifest
	MinFiles int `env:"PASS_MONITOR_MIN_FILES,default=3"`
}

func init() {
	mozlogrus.Enable("pass-monitor")
}

func main() {
	conf, err := loadConf(os.Environ())
	if err != nil {
		log.Fatal(err)
	}
	cli := &http.Client{Timeout: conf.Timeout}
	if os.Getenv("LAMBDA_TASK_ROOT") != "" {
		// we are inside a lambda environment so run as lambda
		lambda.Start(func(ctx context.Context) error {
			return Handler(ctx, conf, cli)
		})
		return
	}
	if err := Handler(context.Background(), conf, cli); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConf(environ []string) (*configuration, error) {
	es, err := env.EnvironToEnvSet(environ)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read environment")
	}
	var conf configuration
	if err := env.Unmarshal(es, &conf); err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	if !strings.HasSuffix(conf.URL, "/") {
		conf.URL += "/"
	}
	return &conf, nil
}

// Handler retrieves the monitoring results and checks each of them
func Handler(ctx context.Context, conf *configuration, cli *http.Client) error {
	log.Infof("Retrieving monitoring data from %s", conf.URL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, conf.URL+"__monitor__", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", makeAuthHeader(req, "monitor", conf.MonitoringKey))
	resp, err := cli.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("request failed with %s: %s", resp.Status, body)
	}

	results, err := parseResults(body)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return errors.New("walletpass returned no monitoring results")
	}
	var failures []error
	for i, res := range results {
		if err := checkResult(res, conf.MinFiles); err != nil {
			log.Errorf("Response %d from signer %q does not pass: %v", i, res.SignerID, err)
			failures = append(failures, fmt.Errorf("signer %q: %w", res.SignerID, err))
			continue
		}
		log.Infof("Response %d from signer %q passes verification", i, res.SignerID)
	}
	if len(failures) > 0 {
		failure := "Errors found during monitoring:"
		for i, fail := range failures {
			failure += fmt.Sprintf("\n%d. %s", i+1, fail.Error())
		}
		return errors.New(failure)
	}
	log.Info("All monitoring passes verified, monitoring OK")
	return nil
}

// parseResults decodes the JSON lines returned by the monitor
func parseResults(body []byte) ([]formats.MonitoringResponse, error) {
	var results []formats.MonitoringResponse
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var res formats.MonitoringResponse
		if err := json.Unmarshal(line, &res); err != nil {
			return nil, errors.Wrap(err, "failed to decode monitoring result")
		}
		results = append(results, res)
	}
	return results, scanner.Err()
}

func checkResult(res formats.MonitoringResponse, minFiles int) error {
	switch {
	case res.Error != "":
		return errors.New(res.Error)
	case res.SerialNumber == "":
		return errors.New("missing serial number")
	case res.Files < minFiles:
		return fmt.Errorf("manifest lists %d files, expected at least %d", res.Files, minFiles)
	}
	return nil
}

func makeAuthHeader(req *http.Request, user, token string) string {
	auth := hawk.NewRequestAuth(req,
		&hawk.Credentials{
			ID:   user,
			Key:  token,
			Hash: sha256.New},
		0)
	auth.Ext = fmt.Sprintf("%d", time.Now().Nanosecond())
	payloadhash := auth.PayloadHash("application/json")
	payloadhash.Write([]byte(""))
	auth.SetHash(payloadhash)
	return auth.RequestHeader()
}
