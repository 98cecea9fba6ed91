package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecimal(t *testing.T) {
	tests := []struct {
		raw  any
		name string
		want float64
	}{
		{name: "plain integer string", raw: "1234", want: 1234},
		{name: "comma decimal", raw: "10,5", want: 10.5},
		{name: "thousands and decimal", raw: "1.234,56", want: 1234.56},
		{name: "multiple thousands groups", raw: "1.234.567", want: 1234567},
		{name: "lone dot thousands", raw: "12.345", want: 12345},
		{name: "lone dot decimal", raw: "12.34", want: 12.34},
		{name: "surrounding whitespace", raw: "  99,9 ", want: 99.9},
		{name: "empty string", raw: "", want: 0},
		{name: "garbage", raw: "n/a", want: 0},
		{name: "nil", raw: nil, want: 0},
		{name: "native float", raw: 42.5, want: 42.5},
		{name: "native int", raw: 7, want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Decimal(tt.raw), 0.0001)
		})
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   time.Time
		wantOK bool
	}{
		{
			name:   "brazilian format",
			raw:    "25/03/2024",
			want:   time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "iso format",
			raw:    "2024-03-25",
			want:   time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{name: "empty", raw: "", wantOK: false},
		{name: "garbage", raw: "yesterday", wantOK: false},
		{name: "month out of range", raw: "25/13/2024", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Date(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, tt.want.Equal(got))
			} else {
				assert.True(t, got.IsZero())
			}
		})
	}
}

func TestDateTime(t *testing.T) {
	got, ok := DateTime("25/03/2024", "14:30")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 25, 14, 30, 0, 0, time.UTC), got)

	// Bad time keeps the date at midnight rather than failing.
	got, ok = DateTime("25/03/2024", "not a time")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC), got)

	_, ok = DateTime("", "14:30")
	assert.False(t, ok)
}
