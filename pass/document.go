// Package pass maps ticket and event data to wallet pass documents and
// gathers the image assets shipped alongside them.
package pass // import "github.com/evently/walletpass/pass"

import (
	"encoding/json"
	"fmt"
	"regexp"
)

const (
	// FormatVersion of the pass.json document
	FormatVersion = 1

	// DocumentName is the archive member name of the pass document
	DocumentName = "pass.json"

	// BarcodeFormatQR is the symbology used for ticket barcodes
	BarcodeFormatQR = "PKBarcodeFormatQR"

	// BarcodeEncoding is the text encoding of the barcode message
	BarcodeEncoding = "iso-8859-1"
)

// text alignments of pass fields
const (
	AlignLeft    = "PKTextAlignmentLeft"
	AlignCenter  = "PKTextAlignmentCenter"
	AlignRight   = "PKTextAlignmentRight"
	AlignNatural = "PKTextAlignmentNatural"
)

var rgbColorRe = regexp.MustCompile(`^rgb\(\s*\d{1,3}\s*,\s*\d{1,3}\s*,\s*\d{1,3}\s*\)$`)

// Field is a single key/label/value entry of a field group
type Field struct {
	Key           string      `json:"key"`
	Label         string      `json:"label,omitempty"`
	Value         interface{} `json:"value"`
	TextAlignment string      `json:"textAlignment,omitempty"`
}

// FieldGroups holds the five field groups of a pass style
type FieldGroups struct {
	HeaderFields    []Field `json:"headerFields"`
	PrimaryFields   []Field `json:"primaryFields"`
	SecondaryFields []Field `json:"secondaryFields"`
	AuxiliaryFields []Field `json:"auxiliaryFields"`
	BackFields      []Field `json:"backFields"`
}

// Barcode is the payload rendered on the front of the pass
type Barcode struct {
	Message         string `json:"message"`
	Format          string `json:"format"`
	MessageEncoding string `json:"messageEncoding"`
	AltText         string `json:"altText,omitempty"`
}

// Identity fields shared by every pass issued with one signing identity
type Identity struct {
	PassTypeIdentifier string `json:"passtypeidentifier"`
	TeamIdentifier     string `json:"teamidentifier"`
	OrganizationName   string `json:"organizationname"`
	Description        string `json:"description,omitempty"`
}

// Theme holds the pass colors as "rgb(r, g, b)" strings
type Theme struct {
	ForegroundColor string `json:"foregroundcolor,omitempty"`
	BackgroundColor string `json:"backgroundcolor,omitempty"`
	LabelColor      string `json:"labelcolor,omitempty"`
}

// DefaultTheme is used when a signer configures no colors
var DefaultTheme = Theme{
	ForegroundColor: "rgb(255, 255, 255)",
	BackgroundColor: "rgb(17, 17, 17)",
	LabelColor:      "rgb(187, 187, 187)",
}

// Validate checks every configured color is an rgb() triplet
func (t Theme) Validate() error {
	for name, c := range map[string]string{
		"foreground": t.ForegroundColor,
		"background": t.BackgroundColor,
		"label":      t.LabelColor,
	} {
		if c != "" && !rgbColorRe.MatchString(c) {
			return fmt.Errorf("pass: invalid %s color %q, expected rgb(r, g, b)", name, c)
		}
	}
	return nil
}

// Document is the pass.json content of an event ticket pass
type Document struct {
	FormatVersion      int    `json:"formatVersion"`
	PassTypeIdentifier string `json:"passTypeIdentifier"`
	SerialNumber       string `json:"serialNumber"`
	TeamIdentifier     string `json:"teamIdentifier"`
	OrganizationName   string `json:"organizationName"`
	Description        string `json:"description"`
	LogoText           string `json:"logoText,omitempty"`

	ForegroundColor string `json:"foregroundColor,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	LabelColor      string `json:"labelColor,omitempty"`

	RelevantDate string `json:"relevantDate,omitempty"`

	// Barcode is read by older wallet versions, Barcodes by newer ones
	Barcode  *Barcode  `json:"barcode,omitempty"`
	Barcodes []Barcode `json:"barcodes,omitempty"`

	EventTicket *FieldGroups `json:"eventTicket,omitempty"`
}

// Validate returns an error when a required top-level key is missing
func (d *Document) Validate() error {
	if d.FormatVersion != FormatVersion {
		return fmt.Errorf("pass: unsupported format version %d", d.FormatVersion)
	}
	for name, v := range map[string]string{
		"passTypeIdentifier": d.PassTypeIdentifier,
		"serialNumber":       d.SerialNumber,
		"teamIdentifier":     d.TeamIdentifier,
		"organizationName":   d.OrganizationName,
		"description":        d.Description,
	} {
		if v == "" {
			return fmt.Errorf("pass: missing required key %q", name)
		}
	}
	if d.Barcode == nil || d.Barcode.Message == "" {
		return fmt.Errorf("pass: barcode message must not be empty")
	}
	if d.EventTicket == nil {
		return fmt.Errorf("pass: missing eventTicket field groups")
	}
	return nil
}

// Marshal validates the document and returns its JSON encoding
func (d *Document) Marshal() ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("pass: failed to marshal document: %w", err)
	}
	return data, nil
}

// AssetFile is a named file shipped in the pass archive
type AssetFile struct {
	Name string
	Data []byte
}
