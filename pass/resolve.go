package pass

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrRecordNotFound is returned by a RecordFinder when no row matches
	ErrRecordNotFound = errors.New("pass: record not found")

	// ErrLookupDegraded marks a failed best-effort lookup. It is only
	// logged: the pass is built from the data present on the ticket.
	ErrLookupDegraded = errors.New("pass: lookup degraded")
)

// RecordFinder looks up rows of the ticketing store by a single field
type RecordFinder interface {
	FindByField(ctx context.Context, table, field string, value interface{}) (Record, error)
	FindAllByField(ctx context.Context, table, field string, value interface{}) ([]Record, error)
}

var (
	// barcodeFields hold the barcode message directly on a ticket or
	// in one of its nestedTicketFields objects
	barcodeFields      = []string{"ticket_code", "ticketCode", "barcode", "barcodeMessage", "qr_code", "qrCode", "code"}
	nestedTicketFields = []string{"ticket", "ticketData", "ticket_data", "metadata"}
	ticketIDFields     = []string{"id", "ticket_id", "ticketId"}

	eventIDFields       = []string{"event_id", "eventId"}
	eventNameFields     = []string{"event_name", "eventName"}
	eventTargetFields   = []string{"event_date", "eventDate"}
	purchaseDateFields  = []string{"purchaseDate", "purchase_date", "purchased_at", "created_at", "createdAt"}
	eventRecordName     = []string{"name", "title", "event_name", "eventName"}
	eventRecordDate     = []string{"date", "event_date", "eventDate", "start_date", "startDate", "starts_at"}
	eventRecordLocation = []string{"location", "venue", "venue_name", "venueName", "address"}
	eventRecordImage    = []string{"image_url", "imageUrl", "image"}
)

const (
	ticketsTable = "tickets"
	eventsTable  = "events"
)

// event is the subset of an event record rendered on a pass
type event struct {
	Name     string
	Date     time.Time
	RawDate  string
	Location string
	ImageURL string
}

func eventFromRecord(m map[string]interface{}) event {
	e := event{
		Name:     stringField(m, eventRecordName...),
		RawDate:  stringField(m, eventRecordDate...),
		Location: stringField(m, eventRecordLocation...),
		ImageURL: stringField(m, eventRecordImage...),
	}
	if v, ok := lookup(m, eventRecordDate...); ok {
		e.Date, _ = parseDate(v)
	}
	return e
}

// degraded logs a failed lookup without interrupting the build
func degraded(ctx context.Context, what string, fields log.Fields, err error) {
	if fields == nil {
		fields = log.Fields{}
	}
	fields["lookup"] = what
	if err != nil {
		fields["cause"] = err.Error()
	}
	log.WithContext(ctx).WithFields(fields).Warn(ErrLookupDegraded.Error())
}

// resolveBarcode returns the barcode message of a ticket. The first
// non-empty source wins: direct fields, then fields of nested ticket
// objects, then the ticket_code of the matching tickets record, then
// the ticket id itself.
func (b *Builder) resolveBarcode(ctx context.Context, t Ticket) string {
	if code := stringField(t, barcodeFields...); code != "" {
		return code
	}
	for _, nested := range nestedTicketFields {
		if obj := objectField(t, nested); obj != nil {
			if code := stringField(obj, barcodeFields...); code != "" {
				return code
			}
		}
	}
	if b.Finder != nil {
		for _, idField := range ticketIDFields {
			id, ok := lookup(t, idField)
			if !ok {
				continue
			}
			rec, err := b.Finder.FindByField(ctx, ticketsTable, "id", id)
			if err != nil {
				degraded(ctx, "ticket_code", log.Fields{"ticket": stringify(id)}, err)
				continue
			}
			if code := stringField(rec, "ticket_code", "ticketCode"); code != "" {
				return code
			}
		}
	}
	return stringField(t, ticketIDFields...)
}

// resolveEvent returns the event a ticket was issued for. An inline
// event object wins, then a lookup by event id, then a lookup by event
// name picking the record closest to the target date. When every source
// fails the flat event fields of the ticket are used.
func (b *Builder) resolveEvent(ctx context.Context, t Ticket) event {
	if obj := objectField(t, "event"); obj != nil {
		return eventFromRecord(obj)
	}
	if b.Finder != nil {
		if id, ok := lookup(t, eventIDFields...); ok {
			rec, err := b.Finder.FindByField(ctx, eventsTable, "id", id)
			if err == nil && rec != nil {
				return eventFromRecord(rec)
			}
			degraded(ctx, "event_by_id", log.Fields{"event_id": stringify(id)}, err)
		}
		if name := stringField(t, eventNameFields...); name != "" {
			recs, err := b.Finder.FindAllByField(ctx, eventsTable, "name", name)
			if err == nil && len(recs) > 0 {
				target, hasTarget := targetDate(t)
				return eventFromRecord(closestEvent(recs, target, hasTarget))
			}
			if err == nil {
				err = ErrRecordNotFound
			}
			degraded(ctx, "event_by_name", log.Fields{"event_name": name}, err)
		}
	}
	return eventFromTicket(t)
}

// eventFromTicket reads the flat event fields of a ticket
func eventFromTicket(t Ticket) event {
	e := event{
		Name:     stringField(t, "event_name", "eventName", "event_title", "eventTitle"),
		RawDate:  stringField(t, eventTargetFields...),
		Location: stringField(t, "venue", "venue_name", "venueName", "location", "event_location", "eventLocation"),
		ImageURL: stringField(t, "event_image_url", "eventImageUrl", "image_url", "imageUrl"),
	}
	if v, ok := lookup(t, eventTargetFields...); ok {
		e.Date, _ = parseDate(v)
	}
	return e
}

// targetDate is the date used to disambiguate events sharing a name:
// the event date carried by the ticket, else its purchase date
func targetDate(t Ticket) (time.Time, bool) {
	for _, fields := range [][]string{eventTargetFields, purchaseDateFields} {
		if v, ok := lookup(t, fields...); ok {
			if d, ok := parseDate(v); ok {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

// closestEvent returns the record whose date is nearest to target. Ties
// and records without a parseable date keep the first record returned.
func closestEvent(recs []Record, target time.Time, hasTarget bool) Record {
	if !hasTarget {
		return recs[0]
	}
	best := -1
	var bestDistance time.Duration
	for i, rec := range recs {
		v, ok := lookup(rec, eventRecordDate...)
		if !ok {
			continue
		}
		d, ok := parseDate(v)
		if !ok {
			continue
		}
		distance := d.Sub(target)
		if distance < 0 {
			distance = -distance
		}
		if best == -1 || distance < bestDistance {
			best, bestDistance = i, distance
		}
	}
	if best == -1 {
		return recs[0]
	}
	return recs[best]
}
