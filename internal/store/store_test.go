package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/wetter/internal/weather"
)

func hourly(start time.Time, temps ...float64) []weather.Measurement {
	out := make([]weather.Measurement, len(temps))
	for i, v := range temps {
		out[i] = weather.Measurement{Time: start.Add(time.Duration(i) * time.Hour), Temperature: v, Wind: v / 2}
	}
	return out
}

func TestLoadSerializeRoundTrip(t *testing.T) {
	raw := Raw{
		Version: 1,
		Lat:     49,
		Lon:     8.41,
		Data: RawTable{
			Index:   []string{"temperature", "wind"},
			Columns: []string{"2022-01-01T00:00:00.000000+0000", "2022-01-01T01:00:00.000000+0000", "2022-12-31T23:00:00.000000+0000"},
			Data: [][]*float64{
				{float(1.5), float(-2), float(14.7)},
				{float(3), float(4.25), float(12.9)},
			},
		},
	}

	st, err := Load(raw)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Size())
	assert.Equal(t, raw, st.Serialize())

	// Default dataset round-trips too.
	def, err := Load(Default())
	require.NoError(t, err)
	assert.Equal(t, Default(), def.Serialize())
}

func TestLoadNormalizesOffsetsAndOrder(t *testing.T) {
	raw := Default()
	raw.Data.Columns = []string{"2023-01-01T03:00:00.000000+0200", "2023-01-01T00:00:00.000000+0000"}

	st, err := Load(raw)
	require.NoError(t, err)

	rows := st.Rows()
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Time.Equal(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, rows[1].Time.Equal(time.Date(2023, 1, 1, 1, 0, 0, 0, time.UTC)))
	assert.Equal(t, 12.7, rows[0].Temperature)
	assert.Equal(t, "2023-01-01T01:00:00.000000+0000", st.Serialize().Data.Columns[1])
}

func TestLoadSchemaErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Raw)
	}{
		{"missing wind", func(r *Raw) {
			r.Data.Index = []string{"temperature", "humidity"}
		}},
		{"extra column", func(r *Raw) {
			r.Data.Index = append(r.Data.Index, "humidity")
			r.Data.Data = append(r.Data.Data, []*float64{float(1), float(2)})
		}},
		{"no rows", func(r *Raw) {
			r.Data.Columns = nil
			r.Data.Data = [][]*float64{{}, {}}
		}},
		{"naive timestamp", func(r *Raw) {
			r.Data.Columns[0] = "2023-01-01T00:00:00.000000"
		}},
		{"duplicate timestamp", func(r *Raw) {
			r.Data.Columns[1] = r.Data.Columns[0]
		}},
		{"missing value", func(r *Raw) {
			r.Data.Data[1][0] = nil
		}},
		{"series too short", func(r *Raw) {
			r.Data.Data[0] = r.Data.Data[0][:1]
		}},
		{"latitude out of range", func(r *Raw) {
			r.Lat = 91
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := Default()
			tc.mutate(&raw)

			_, err := Load(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, weather.ErrSchema), "want schema error, got %v", err)

			var se *weather.SchemaError
			assert.True(t, errors.As(err, &se))
		})
	}
}

func TestSelectIsInclusive(t *testing.T) {
	base := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	f := Frame(hourly(base, 1, 2, 3, 4, 5))

	got := f.Select(base.Add(time.Hour), base.Add(3*time.Hour))
	require.Len(t, got, 3)
	assert.Equal(t, 2.0, got[0].Temperature)
	assert.Equal(t, 4.0, got[2].Temperature)

	assert.Empty(t, f.Select(base.Add(3*time.Hour), base.Add(time.Hour)))
	assert.Len(t, f.Before(base.Add(2*time.Hour)), 2)
}

func TestMergeBatchWins(t *testing.T) {
	base := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	existing := hourly(base, 1, 2, 3)
	batch := []weather.Measurement{
		{Time: base.Add(2 * time.Hour).In(time.FixedZone("CEST", 7200)), Temperature: 30, Wind: 9},
		{Time: base.Add(3 * time.Hour), Temperature: 40, Wind: 8},
	}

	merged, stats := Merge(existing, batch)
	require.Len(t, merged, 4)
	assert.Equal(t, MergeStats{Added: 1, Replaced: 1}, stats)
	assert.Equal(t, 30.0, merged[2].Temperature)
	assert.Equal(t, time.UTC, merged[2].Time.Location())
	assert.Equal(t, 40.0, merged[3].Temperature)

	for i := 1; i < len(merged); i++ {
		assert.True(t, merged[i-1].Time.Before(merged[i].Time), "rows must be strictly ascending")
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	base := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	batch := hourly(base.Add(2*time.Hour), 7, 8, 9)

	once, _ := Merge(hourly(base, 1, 2), batch)
	twice, stats := Merge(once, batch)

	assert.Equal(t, once, twice)
	assert.Equal(t, 0, stats.Added)
}

func TestReplace(t *testing.T) {
	st, err := Load(Default())
	require.NoError(t, err)

	base := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	loc := weather.Location{Lat: 52.5, Lon: 13.4}
	require.NoError(t, st.Replace(hourly(base, 3, 2, 1), loc))
	assert.Equal(t, 3, st.Len())
	assert.Equal(t, loc, st.Location())
	assert.True(t, st.MaxTimestamp().Equal(base.Add(2*time.Hour)))
	assert.True(t, st.MinTimestamp().Equal(base))

	err = st.Replace(nil, loc)
	assert.True(t, errors.Is(err, weather.ErrInput))
	assert.Equal(t, 3, st.Len(), "failed replace must not touch the table")

	dup := append(hourly(base, 1), hourly(base, 2)...)
	assert.Error(t, st.Replace(dup, loc))
}

func TestConcurrentReplaceAndRead(t *testing.T) {
	st, err := Load(Default())
	require.NoError(t, err)

	base := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	loc := st.Location()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = st.Replace(hourly(base, float64(i), 1), loc)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = st.HasColumn("temperature")
			_ = st.Columns()
			_ = st.Len()
			_ = st.Frame()
		}
	}()
	wg.Wait()

	assert.True(t, st.HasColumn("wind"))
	assert.Equal(t, []string{"temperature", "wind"}, st.Columns())
}

func TestJSONFileSeedsAndPersists(t *testing.T) {
	ctx := context.Background()
	repo := NewJSONFile(filepath.Join(t.TempDir(), "nested", "wetter.json"))

	st, err := Open(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Size())
	assert.Equal(t, weather.Location{Lat: 49, Lon: 8.41}, st.Location())

	rows, _ := Merge(st.Rows(), hourly(time.Date(2023, 1, 1, 2, 0, 0, 0, time.UTC), 5, 6))
	require.NoError(t, st.Replace(rows, st.Location()))
	require.NoError(t, Persist(ctx, repo, st))

	again, err := Open(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, st.Serialize(), again.Serialize())
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "wetter.db"))
	require.NoError(t, err)
	defer repo.Close()

	seeded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Default(), seeded)

	st, err := Load(seeded)
	require.NoError(t, err)
	rows, _ := Merge(st.Rows(), hourly(time.Date(2023, 1, 1, 1, 0, 0, 0, time.UTC), 9, 10))
	require.NoError(t, st.Replace(rows, weather.Location{Lat: 50, Lon: 9}))
	require.NoError(t, Persist(ctx, repo, st))

	loaded, err := Open(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, st.Serialize(), loaded.Serialize())
	assert.Equal(t, 3, loaded.Size())
}
