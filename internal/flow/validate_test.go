package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{input: "100", want: 100},
		{input: "19.99", want: 19.99},
		{input: "19,99", want: 19.99},
		{input: " 5 ", want: 5},
		{input: "0", wantErr: true},
		{input: "-1", wantErr: true},
		{input: "дорого", wantErr: true},
		{input: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parsePrice(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestParseDiscount(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{input: "1", want: 1},
		{input: "100", want: 100},
		{input: "50", want: 50},
		{input: "0", wantErr: true},
		{input: "101", wantErr: true},
		{input: "10.5", wantErr: true},
		{input: "десять", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseDiscount(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestParseStartDate(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	start, err := parseStartDate("2024-06-01", now)
	require.NoError(t, err, "today counts as a valid start")
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), start)

	_, err = parseStartDate("2024-06-15", now)
	assert.NoError(t, err)

	_, err = parseStartDate("2024-05-31", now)
	assert.ErrorIs(t, err, errDatePast)

	_, err = parseStartDate("01.06.2024", now)
	assert.ErrorIs(t, err, errBadDate)
}

func TestParseEndDate(t *testing.T) {
	end, err := parseEndDate("2024-06-30", "2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), end)

	_, err = parseEndDate("2024-06-01", "2024-06-01")
	assert.NoError(t, err, "single-day range is allowed")

	_, err = parseEndDate("2024-05-31", "2024-06-01")
	assert.ErrorIs(t, err, errDateOrder)

	_, err = parseEndDate("31.05.2024", "2024-06-01")
	assert.ErrorIs(t, err, errBadDate)
}

func TestNormalizeCode(t *testing.T) {
	got, err := normalizeCode(" summer24 ")
	require.NoError(t, err)
	assert.Equal(t, "SUMMER24", got)

	for _, bad := range []string{"", "про мо", "a_b", "ЛЕТО"} {
		_, err := normalizeCode(bad)
		assert.ErrorIs(t, err, errBadCode, "input %q", bad)
	}
}

func TestParseMinutes(t *testing.T) {
	got, err := parseMinutes("15")
	require.NoError(t, err)
	assert.Equal(t, 15, got)

	for _, bad := range []string{"0", "-1", "1.5", "скоро"} {
		_, err := parseMinutes(bad)
		assert.ErrorIs(t, err, errBadMinutes, "input %q", bad)
	}
}
