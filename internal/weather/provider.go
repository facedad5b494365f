package weather

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimezone is the timezone label used when a ticket names none.
const DefaultTimezone = "UTC"

// Ticket describes a time/location window to request from a provider.
// Start <= End always holds for a ticket built by NewTicket.
type Ticket struct {
	Start    time.Time
	End      time.Time
	Lat      float64
	Lon      float64
	Timezone string

	loc *time.Location
}

// NewTicket validates the request parameters and normalizes a reversed window.
func NewTicket(start, end time.Time, at Location, timezone string) (Ticket, error) {
	if err := RequireAware("start", start); err != nil {
		return Ticket{}, err
	}
	if err := RequireAware("end", end); err != nil {
		return Ticket{}, err
	}
	if err := at.Validate(); err != nil {
		return Ticket{}, err
	}
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Ticket{}, &InputError{Field: "timezone", Reason: err.Error()}
	}
	if start.After(end) {
		start, end = end, start
	}
	return Ticket{
		Start:    start,
		End:      end,
		Lat:      at.Lat,
		Lon:      at.Lon,
		Timezone: timezone,
		loc:      loc,
	}, nil
}

// Location returns the ticket coordinates.
func (t Ticket) Location() Location {
	return Location{Lat: t.Lat, Lon: t.Lon}
}

// StartDate is the first requested calendar day in the ticket timezone.
func (t Ticket) StartDate() string {
	return t.Start.In(t.zone()).Format(time.DateOnly)
}

// EndDate is the last requested calendar day in the ticket timezone.
func (t Ticket) EndDate() string {
	return t.End.In(t.zone()).Format(time.DateOnly)
}

func (t Ticket) zone() *time.Location {
	if t.loc != nil {
		return t.loc
	}
	return time.UTC
}

func (t Ticket) String() string {
	return fmt.Sprintf("%s..%s @ %.2f,%.2f (%s)", t.StartDate(), t.EndDate(), t.Lat, t.Lon, t.Timezone)
}

// Response is the raw outcome of a provider request.
type Response struct {
	Status int
	Body   []byte
}

// OK reports whether the provider answered with 200.
func (r Response) OK() bool {
	return r.Status == 200
}

// Adapter abstracts a weather data source (e.g. Open-Meteo forecast or archive).
type Adapter interface {
	Name() string
	URL(t Ticket) (string, error)
	Parse(body []byte) ([]Measurement, error)
	Get(ctx context.Context, t Ticket) (Response, error)
}

// UnimplementedAdapter can be embedded by adapters under construction; every
// operation fails with an UnimplementedCapabilityError.
type UnimplementedAdapter struct{}

func (UnimplementedAdapter) Name() string { return "unimplemented" }

func (UnimplementedAdapter) URL(Ticket) (string, error) {
	return "", &UnimplementedCapabilityError{Adapter: "unimplemented", Op: "url"}
}

func (UnimplementedAdapter) Parse([]byte) ([]Measurement, error) {
	return nil, &UnimplementedCapabilityError{Adapter: "unimplemented", Op: "parse"}
}

func (UnimplementedAdapter) Get(context.Context, Ticket) (Response, error) {
	return Response{}, &UnimplementedCapabilityError{Adapter: "unimplemented", Op: "get"}
}

// CheckAdapter rejects a nil adapter or one whose url/parse operations are
// stubs. It performs no I/O.
func CheckAdapter(a Adapter) error {
	if a == nil {
		return &UnimplementedCapabilityError{Adapter: "<nil>", Op: "adapter"}
	}
	probe := Ticket{Start: time.Unix(0, 0).UTC(), End: time.Unix(0, 0).UTC(), Timezone: DefaultTimezone}
	if _, err := a.URL(probe); errors.Is(err, ErrUnimplemented) {
		return err
	}
	if _, err := a.Parse([]byte("{}")); errors.Is(err, ErrUnimplemented) {
		return err
	}
	return nil
}
