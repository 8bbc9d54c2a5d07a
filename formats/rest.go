// Package formats holds the request and response types of the
// walletpass HTTP API
package formats // import "github.com/evently/walletpass/formats"

import (
	"encoding/json"
)

// PassRequest is sent by a client to request a signed pass for a ticket
type PassRequest struct {
	// KeyID selects the signer, the default signer of the user when empty
	KeyID string `json:"keyid,omitempty"`

	// Ticket is the ticket object as received from the ticketing backend
	Ticket json.RawMessage `json:"ticket"`
}

// PassResponse is returned by walletpass to a client with a signed
// pass archive
type PassResponse struct {
	Ref          string `json:"ref"`
	SignerID     string `json:"signer_id"`
	SerialNumber string `json:"serial_number"`
	ContentType  string `json:"content_type"`

	// Pass is the base64 encoded .pkpass archive
	Pass string `json:"pass"`
}

// MonitoringResponse reports the outcome of signing the monitoring
// ticket with one signer
type MonitoringResponse struct {
	SignerID     string `json:"signer_id"`
	SerialNumber string `json:"serial_number,omitempty"`
	Files        int    `json:"files,omitempty"`
	Error        string `json:"error,omitempty"`
}
