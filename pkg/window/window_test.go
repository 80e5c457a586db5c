package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseGranularity(t *testing.T) {
	tests := []struct {
		input   string
		want    Granularity
		wantErr bool
	}{
		{input: "monthly", want: Monthly},
		{input: "yearly", want: Yearly},
		{input: " Monthly ", want: Monthly},
		{input: "YEARLY", want: Yearly},
		{input: "weekly", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseGranularity(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidGranularity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlanMonthly(t *testing.T) {
	windows, err := Plan(date(2024, time.January, 1), date(2024, time.April, 1), Monthly)
	require.NoError(t, err)
	require.Len(t, windows, 3)

	assert.Equal(t, Window{Start: date(2024, time.January, 1), End: date(2024, time.February, 1)}, windows[0])
	assert.Equal(t, Window{Start: date(2024, time.February, 1), End: date(2024, time.March, 1)}, windows[1])
	assert.Equal(t, Window{Start: date(2024, time.March, 1), End: date(2024, time.April, 1)}, windows[2])
}

func TestPlanYearly(t *testing.T) {
	windows, err := Plan(date(2020, time.June, 15), date(2023, time.February, 1), Yearly)
	require.NoError(t, err)
	require.Len(t, windows, 4)

	// First and last windows are partial; interior boundaries are Jan 1.
	assert.Equal(t, date(2020, time.June, 15), windows[0].Start)
	assert.Equal(t, date(2021, time.January, 1), windows[0].End)
	assert.Equal(t, date(2023, time.January, 1), windows[3].Start)
	assert.Equal(t, date(2023, time.February, 1), windows[3].End)
}

func TestPlanDecemberRollover(t *testing.T) {
	windows, err := Plan(date(2023, time.December, 10), date(2024, time.January, 20), Monthly)
	require.NoError(t, err)
	require.Len(t, windows, 2)

	assert.Equal(t, date(2024, time.January, 1), windows[0].End)
	assert.Equal(t, date(2024, time.January, 20), windows[1].End)
}

func TestPlanCoversRangeExactly(t *testing.T) {
	tests := []struct {
		name        string
		start, end  time.Time
		granularity Granularity
	}{
		{name: "monthly partial edges", start: date(2022, time.March, 7), end: date(2023, time.July, 19), granularity: Monthly},
		{name: "yearly aligned", start: date(2018, time.January, 1), end: date(2022, time.January, 1), granularity: Yearly},
		{name: "single sub-window range", start: date(2024, time.May, 3), end: date(2024, time.May, 20), granularity: Monthly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			windows, err := Plan(tt.start, tt.end, tt.granularity)
			require.NoError(t, err)
			require.NotEmpty(t, windows)

			assert.Equal(t, tt.start, windows[0].Start)
			assert.Equal(t, tt.end, windows[len(windows)-1].End)
			for i := 1; i < len(windows); i++ {
				// Contiguous and non-overlapping: each window starts where
				// the previous one ended.
				assert.Equal(t, windows[i-1].End, windows[i].Start)
				assert.True(t, windows[i].Start.Before(windows[i].End))
			}
		})
	}
}

func TestPlanInvalidRange(t *testing.T) {
	_, err := Plan(date(2024, time.April, 1), date(2024, time.January, 1), Monthly)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = Plan(date(2024, time.January, 1), date(2024, time.January, 1), Monthly)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestWindowContains(t *testing.T) {
	w := Window{Start: date(2024, time.January, 1), End: date(2024, time.February, 1)}

	// Lower boundary is inclusive, upper boundary exclusive.
	assert.True(t, w.Contains(date(2024, time.January, 1)))
	assert.True(t, w.Contains(date(2024, time.January, 31)))
	assert.False(t, w.Contains(date(2024, time.February, 1)))
	assert.False(t, w.Contains(date(2023, time.December, 31)))
}

func TestWindowString(t *testing.T) {
	w := Window{Start: date(2024, time.January, 1), End: date(2024, time.February, 1)}
	assert.Equal(t, "2024-01-01..2024-02-01", w.String())
}
