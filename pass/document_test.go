package pass

import (
	"encoding/json"
	"strings"
	"testing"
)

func validDocument() *Document {
	bc := Barcode{Message: "T1", Format: BarcodeFormatQR, MessageEncoding: BarcodeEncoding}
	return &Document{
		FormatVersion:      FormatVersion,
		PassTypeIdentifier: "pass.com.example.test",
		SerialNumber:       "T1",
		TeamIdentifier:     "ABCDE12345",
		OrganizationName:   "Evently",
		Description:        "Ticket for Gala",
		Barcode:            &bc,
		Barcodes:           []Barcode{bc},
		EventTicket:        &FieldGroups{},
	}
}

func TestDocumentValidate(t *testing.T) {
	t.Parallel()

	if err := validDocument().Validate(); err != nil {
		t.Fatalf("expected a valid document: %v", err)
	}
	testcases := []struct {
		desc   string
		mutate func(*Document)
	}{
		{"format version", func(d *Document) { d.FormatVersion = 2 }},
		{"pass type", func(d *Document) { d.PassTypeIdentifier = "" }},
		{"serial", func(d *Document) { d.SerialNumber = "" }},
		{"team", func(d *Document) { d.TeamIdentifier = "" }},
		{"organization", func(d *Document) { d.OrganizationName = "" }},
		{"description", func(d *Document) { d.Description = "" }},
		{"barcode", func(d *Document) { d.Barcode = nil }},
		{"barcode message", func(d *Document) { d.Barcode.Message = "" }},
		{"field groups", func(d *Document) { d.EventTicket = nil }},
	}
	for _, testcase := range testcases {
		d := validDocument()
		testcase.mutate(d)
		if err := d.Validate(); err == nil {
			t.Fatalf("%s: expected a validation error", testcase.desc)
		}
		if _, err := d.Marshal(); err == nil {
			t.Fatalf("%s: expected marshal to validate", testcase.desc)
		}
	}
}

func TestDocumentMarshal(t *testing.T) {
	t.Parallel()

	data, err := validDocument().Marshal()
	if err != nil {
		t.Fatalf("failed to marshal document: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"formatVersion", "passTypeIdentifier", "serialNumber", "teamIdentifier", "organizationName", "description", "barcode", "barcodes", "eventTicket"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("expected key %q in %s", key, data)
		}
	}
	if strings.Contains(string(data), "relevantDate") {
		t.Fatal("expected an unset relevant date to be omitted")
	}
}

func TestThemeValidate(t *testing.T) {
	t.Parallel()

	valid := []Theme{
		{},
		DefaultTheme,
		{ForegroundColor: "rgb(0,0,0)"},
		{LabelColor: "rgb( 10 , 20 , 30 )"},
	}
	for _, theme := range valid {
		if err := theme.Validate(); err != nil {
			t.Fatalf("expected %+v to be valid: %v", theme, err)
		}
	}
	invalid := []Theme{
		{ForegroundColor: "#ffffff"},
		{BackgroundColor: "rgb(1, 2)"},
		{LabelColor: "rgba(1, 2, 3, 4)"},
	}
	for _, theme := range invalid {
		if err := theme.Validate(); err == nil {
			t.Fatalf("expected %+v to be rejected", theme)
		}
	}
}
