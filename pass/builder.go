package pass

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	// placeholders for tickets whose event cannot be resolved
	placeholderEventName = "Event"
	placeholderLocation  = "Venue TBA"
	placeholderDate      = "TBA"

	// quantities above this are shown as the maximum
	maxQuantity = 100000

	eventDateLayout    = "Jan 2, 2006 3:04 PM"
	purchaseDateLayout = "Jan 2, 2006"
)

// Builder maps tickets to pass documents and their assets
type Builder struct {
	Identity Identity
	Theme    Theme

	// Finder resolves ticket codes and events. Nil disables lookups.
	Finder RecordFinder

	// Images fetches event images. Nil disables strip images.
	Images ImageFetcher

	// ResizeImages enables cropping and scaling of strip images
	ResizeImages bool

	// Assets are the default icons and logos added to every pass
	Assets []AssetFile
}

// Build returns the pass document of a ticket and the assets to ship
// with it. Lookups and image fetches are best effort: their failures
// are logged and the pass is built from the ticket data alone.
func (b *Builder) Build(ctx context.Context, t Ticket) (*Document, []AssetFile, error) {
	if t == nil {
		return nil, nil, fmt.Errorf("pass: cannot build a pass from a nil ticket")
	}
	serial := stringField(t, ticketIDFields...)
	if serial == "" {
		serial = uuid.NewString()
		log.WithContext(ctx).Warnf("pass: ticket has no id, using generated serial number %s", serial)
	}
	barcode := b.resolveBarcode(ctx, t)
	if barcode == "" {
		barcode = serial
	}
	ev := b.resolveEvent(ctx, t)
	if ev.Name == "" {
		ev.Name = placeholderEventName
	}
	if ev.Location == "" {
		ev.Location = placeholderLocation
	}

	theme := b.Theme
	if theme == (Theme{}) {
		theme = DefaultTheme
	}
	bc := Barcode{
		Message:         barcode,
		Format:          BarcodeFormatQR,
		MessageEncoding: BarcodeEncoding,
		AltText:         serial,
	}
	doc := &Document{
		FormatVersion:      FormatVersion,
		PassTypeIdentifier: b.Identity.PassTypeIdentifier,
		SerialNumber:       serial,
		TeamIdentifier:     b.Identity.TeamIdentifier,
		OrganizationName:   b.Identity.OrganizationName,
		Description:        b.Identity.Description,
		LogoText:           b.Identity.OrganizationName,
		ForegroundColor:    theme.ForegroundColor,
		BackgroundColor:    theme.BackgroundColor,
		LabelColor:         theme.LabelColor,
		Barcode:            &bc,
		Barcodes:           []Barcode{bc},
		EventTicket:        ticketFields(t, serial, ev),
	}
	if doc.Description == "" {
		doc.Description = "Ticket for " + ev.Name
	}
	if !ev.Date.IsZero() {
		doc.RelevantDate = ev.Date.UTC().Format(time.RFC3339)
	}
	if err := doc.Validate(); err != nil {
		return nil, nil, err
	}

	assets := make([]AssetFile, len(b.Assets), len(b.Assets)+len(stripNames))
	copy(assets, b.Assets)
	assets = append(assets, b.strip(ctx, ev)...)
	return doc, assets, nil
}

// strip fetches and converts the event image, or returns nothing
func (b *Builder) strip(ctx context.Context, ev event) []AssetFile {
	if ev.ImageURL == "" || b.Images == nil {
		return nil
	}
	src, err := b.Images.Fetch(ctx, ev.ImageURL)
	if err != nil {
		degraded(ctx, "event_image", log.Fields{"url": ev.ImageURL}, err)
		return nil
	}
	files, err := stripImages(src, b.ResizeImages)
	if err != nil {
		degraded(ctx, "event_image", log.Fields{"url": ev.ImageURL}, err)
		return nil
	}
	return files
}

// ticketFields lays out the event ticket field groups
func ticketFields(t Ticket, serial string, ev event) *FieldGroups {
	quantity := 1
	if v, ok := lookup(t, "quantity", "qty", "ticket_quantity", "ticketQuantity"); ok {
		if n, ok := number(v); ok && n > 0 {
			quantity = int(math.Round(math.Min(n, maxQuantity)))
		}
	}
	date := ev.RawDate
	if !ev.Date.IsZero() {
		date = ev.Date.UTC().Format(eventDateLayout)
	}
	if date == "" {
		date = placeholderDate
	}

	f := &FieldGroups{
		HeaderFields: []Field{
			{Key: "quantity", Label: "QTY", Value: quantity, TextAlignment: AlignRight},
		},
		PrimaryFields: []Field{
			{Key: "event", Label: "EVENT", Value: ev.Name},
		},
		SecondaryFields: []Field{
			{Key: "date", Label: "DATE", Value: date, TextAlignment: AlignLeft},
			{Key: "venue", Label: "VENUE", Value: ev.Location, TextAlignment: AlignRight},
		},
		BackFields: []Field{
			{Key: "ticketId", Label: "TICKET ID", Value: serial},
		},
	}
	if name := holderName(t); name != "" {
		f.AuxiliaryFields = append(f.AuxiliaryFields, Field{Key: "name", Label: "NAME", Value: name, TextAlignment: AlignLeft})
	}
	if total := formatAmount(t); total != "" {
		f.AuxiliaryFields = append(f.AuxiliaryFields, Field{Key: "total", Label: "TOTAL", Value: total, TextAlignment: AlignRight})
	}
	if f.AuxiliaryFields == nil {
		f.AuxiliaryFields = []Field{}
	}
	if v, ok := lookup(t, purchaseDateFields...); ok {
		purchased := stringify(v)
		if d, ok := parseDate(v); ok {
			purchased = d.UTC().Format(purchaseDateLayout)
		}
		f.BackFields = append(f.BackFields, Field{Key: "purchaseDate", Label: "PURCHASED", Value: purchased})
	}
	if ev.Location != placeholderLocation {
		f.BackFields = append(f.BackFields, Field{Key: "location", Label: "LOCATION", Value: ev.Location})
	}
	return f
}

// holderName joins the customer first and last names
func holderName(t Ticket) string {
	first := stringField(t, "customerFirstName", "customer_first_name", "firstName", "first_name")
	last := stringField(t, "customerLastName", "customer_last_name", "lastName", "last_name")
	if name := strings.TrimSpace(first + " " + last); name != "" {
		return name
	}
	return stringField(t, "customerName", "customer_name", "holderName", "holder_name")
}

// formatAmount renders the ticket total with its currency
func formatAmount(t Ticket) string {
	v, ok := lookup(t, "totalAmount", "total_amount", "amount", "total")
	if !ok {
		return ""
	}
	n, ok := number(v)
	if !ok {
		return stringify(v)
	}
	currency := strings.ToUpper(stringField(t, "currency"))
	switch currency {
	case "", "USD":
		return fmt.Sprintf("$%.2f", n)
	default:
		return fmt.Sprintf("%.2f %s", n, currency)
	}
}
