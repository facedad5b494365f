package update

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/wetter/internal/logger"
	"github.com/i474232898/wetter/internal/store"
	"github.com/i474232898/wetter/internal/weather"
)

type fakeAdapter struct {
	resp     weather.Response
	err      error
	rows     []weather.Measurement
	parseErr error

	calls  int
	ticket weather.Ticket
}

func (f *fakeAdapter) Name() string { return "fake" }

func (f *fakeAdapter) URL(t weather.Ticket) (string, error) {
	return "fake://" + t.String(), nil
}

func (f *fakeAdapter) Parse([]byte) ([]weather.Measurement, error) {
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	return f.rows, nil
}

func (f *fakeAdapter) Get(_ context.Context, t weather.Ticket) (weather.Response, error) {
	f.calls++
	f.ticket = t
	return f.resp, f.err
}

var base = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

func hourly(from, to int) []weather.Measurement {
	var rows []weather.Measurement
	for h := from; h <= to; h++ {
		rows = append(rows, weather.Measurement{
			Time:        base.Add(time.Duration(h) * time.Hour),
			Temperature: float64(h),
			Wind:        float64(2 * h),
		})
	}
	return rows
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Load(store.Default())
	require.NoError(t, err)
	return st
}

func newEngine(now time.Time) *Engine {
	return New(logger.Discard(), func() time.Time { return now })
}

func TestUpdateDropsForecastRows(t *testing.T) {
	st := newStore(t)
	fa := &fakeAdapter{resp: weather.Response{Status: 200}, rows: hourly(0, 10)}
	e := newEngine(base.Add(5 * time.Hour))

	res, err := e.Update(context.Background(), st, fa)
	require.NoError(t, err)

	assert.Equal(t, StateMerged, res.State)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 11, res.Fetched)
	assert.Equal(t, 5, res.Dropped)
	assert.Equal(t, 4, res.Added)
	assert.Equal(t, 2, res.Replaced)

	// Default window runs from the newest stored row to now.
	assert.True(t, fa.ticket.Start.Equal(base.Add(time.Hour)))
	assert.True(t, fa.ticket.End.Equal(base.Add(5*time.Hour)))

	assert.Equal(t, 6, st.Size())
	assert.True(t, st.MaxTimestamp().Equal(base.Add(5*time.Hour)))
	assert.Equal(t, 0.0, st.Rows()[0].Temperature, "fetched rows replace stored ones")
}

func TestUpdateFailureLeavesStoreUnchanged(t *testing.T) {
	tests := []struct {
		name       string
		adapter    *fakeAdapter
		wantStatus int
	}{
		{
			name:       "server error",
			adapter:    &fakeAdapter{resp: weather.Response{Status: 500, Body: []byte("boom")}},
			wantStatus: 500,
		},
		{
			name:       "transport failure",
			adapter:    &fakeAdapter{err: context.DeadlineExceeded},
			wantStatus: 0,
		},
		{
			name:       "malformed body",
			adapter:    &fakeAdapter{resp: weather.Response{Status: 200, Body: []byte("<html>")}, parseErr: errors.New("not json")},
			wantStatus: 200,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := newStore(t)
			before := st.Serialize()

			res, err := newEngine(base.Add(48*time.Hour)).Update(context.Background(), st, tc.adapter)
			require.Error(t, err)
			assert.True(t, errors.Is(err, weather.ErrAPI))

			var apiErr *weather.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.wantStatus, apiErr.Status)
			assert.Equal(t, "fake", apiErr.Provider)

			assert.Equal(t, StateRejected, res.State)
			assert.Equal(t, before, st.Serialize())
		})
	}
}

func TestUpdateIsIdempotent(t *testing.T) {
	st := newStore(t)
	fa := &fakeAdapter{resp: weather.Response{Status: 200}, rows: hourly(0, 3)}
	e := newEngine(base.Add(3 * time.Hour))
	window := []Option{From(base), Until(base.Add(3 * time.Hour))}

	_, err := e.Update(context.Background(), st, fa, window...)
	require.NoError(t, err)
	first := st.Serialize()

	res, err := e.Update(context.Background(), st, fa, window...)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Added)
	assert.Equal(t, 4, res.Replaced)
	assert.Equal(t, first, st.Serialize())
}

func TestUpdateExplicitWindowAndLocation(t *testing.T) {
	st := newStore(t)
	fa := &fakeAdapter{resp: weather.Response{Status: 200}, rows: hourly(24, 30)}
	berlin := weather.Location{Lat: 52.52, Lon: 13.4}

	res, err := newEngine(base.Add(100*time.Hour)).Update(context.Background(), st, fa,
		From(base.Add(48*time.Hour)),
		Until(base.Add(24*time.Hour)),
		At(berlin),
		InZone("UTC"),
	)
	require.NoError(t, err)

	assert.True(t, res.Ticket.Start.Equal(base.Add(24*time.Hour)), "reversed window is normalized")
	assert.True(t, res.Ticket.End.Equal(base.Add(48*time.Hour)))
	assert.Equal(t, berlin, st.Location())
	assert.Equal(t, 2+7, st.Size())
}

func TestUpdateRejectsBadInput(t *testing.T) {
	st := newStore(t)
	fa := &fakeAdapter{resp: weather.Response{Status: 200}}
	e := newEngine(base)

	_, err := e.Update(context.Background(), st, fa, From(time.Time{}))
	assert.True(t, errors.Is(err, weather.ErrInput))

	_, err = e.Update(context.Background(), st, fa, At(weather.Location{Lat: 91}))
	assert.True(t, errors.Is(err, weather.ErrInput))

	_, err = e.Update(context.Background(), st, nil)
	assert.True(t, errors.Is(err, weather.ErrUnimplemented))

	_, err = e.Update(context.Background(), st, weather.UnimplementedAdapter{})
	assert.True(t, errors.Is(err, weather.ErrUnimplemented))

	assert.Zero(t, fa.calls, "invalid input must not reach the provider")
}

// getlessAdapter provides url and parse but inherits the stub Get.
type getlessAdapter struct {
	weather.UnimplementedAdapter
}

func (getlessAdapter) Name() string { return "getless" }

func (getlessAdapter) URL(t weather.Ticket) (string, error) { return "getless://" + t.String(), nil }

func (getlessAdapter) Parse([]byte) ([]weather.Measurement, error) { return nil, nil }

func TestUpdateUnimplementedGetIsNotProviderFailure(t *testing.T) {
	st := newStore(t)
	before := st.Serialize()

	res, err := newEngine(base.Add(48*time.Hour)).Update(context.Background(), st, getlessAdapter{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, weather.ErrUnimplemented))
	assert.False(t, errors.Is(err, weather.ErrAPI))

	var capErr *weather.UnimplementedCapabilityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, "get", capErr.Op)
	assert.Equal(t, StateRejected, res.State)
	assert.Equal(t, before, st.Serialize())
}
