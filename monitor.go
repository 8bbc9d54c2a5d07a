package main

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/evently/walletpass/formats"
	"github.com/evently/walletpass/pass"
	"github.com/evently/walletpass/signer/pkpass"
	verifier "github.com/evently/walletpass/verifier/pkpass"
)

// monitorInterval is the time between two monitoring runs
const monitorInterval = 5 * time.Minute

// monitor keeps the outcome of the last monitoring run: a fixed ticket
// signed by every signer and verified
type monitor struct {
	sync.RWMutex

	// initialized is closed once the first run completed
	initialized chan bool
	once        sync.Once

	results []formats.MonitoringResponse
}

func newMonitor() *monitor {
	return &monitor{initialized: make(chan bool)}
}

// monitoringTicket returns the ticket signed by the monitor. It
// carries its own event and barcode so no lookup is needed.
func monitoringTicket() pass.Ticket {
	return pass.Ticket{
		"id":         "walletpass-monitor",
		"ticketCode": "WALLETPASS-MONITOR",
		"quantity":   1,
		"event": map[string]interface{}{
			"name":     "Walletpass monitoring",
			"date":     "2030-01-01T20:00:00Z",
			"location": "Nowhere",
		},
	}
}

// runMonitor signs and verifies the monitoring ticket with every
// signer and stores the results
func (a *walletpass) runMonitor(ctx context.Context) {
	// monitoring passes stay out of the upload locations
	ctx = pkpass.WithoutPublishing(ctx)
	results := make([]formats.MonitoringResponse, len(a.signers))
	for i, s := range a.signers {
		results[i].SignerID = s.Config().ID
		signed, err := s.SignPass(ctx, monitoringTicket())
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		results[i].SerialNumber = signed.SerialNumber
		res, err := verifier.VerifyArchive(signed.Archive, nil)
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		results[i].Files = len(res.Files)
	}
	for _, res := range results {
		if res.Error != "" {
			log.WithFields(log.Fields{"signer": res.SignerID}).Errorf("monitoring failed: %s", res.Error)
			a.stats.Incr("monitor.failed", []string{"walletpass-signer-id:" + res.SignerID}, 1)
		}
	}

	a.monitor.Lock()
	a.monitor.results = results
	a.monitor.Unlock()
	a.monitor.once.Do(func() { close(a.monitor.initialized) })
}

// startMonitoring runs the monitor now and then every interval until
// the context is done
func (a *walletpass) startMonitoring(ctx context.Context, interval time.Duration) {
	go func() {
		for {
			a.runMonitor(ctx)
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
			}
		}
	}()
}
