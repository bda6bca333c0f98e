package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTTL(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "3600", want: time.Hour},
		{in: "86400", want: 24 * time.Hour},
		{in: "1h30m", want: 90 * time.Minute},
		{in: "0", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "900h", wantErr: true},
		{in: "soon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTTL(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{5 * time.Minute, "5m"},
		{2 * time.Hour, "2h"},
		{150 * time.Minute, "2h30m"},
		{48 * time.Hour, "2d"},
		{74 * time.Hour, "3d2h"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in), tt.in.String())
	}
}

func TestParseEnabled(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", true},
		{"false", false},
		{"0", false},
		{"true", true},
		{"maybe", true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseEnabled(tt.value))
		})
	}
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, "brands", GenerateKey("brands"))
	assert.Equal(t, "st-krakow-glowny", GenerateKey("st", "krakow-glowny"))
	assert.Equal(t, "dep-18705-2024-03-25", GenerateKey("dep", 18705, "2024-03-25"))
	assert.Equal(t, "tc-2-5311-", GenerateKey("tc", 2, 5311, ""))
}
