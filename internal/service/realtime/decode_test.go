package realtime

import (
	"strings"
	"testing"
	"time"

	"CryptoNotify/internal/domain/models"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoder_Decode(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	dec := NewDecoder(mock)

	tests := []struct {
		name    string
		frame   string
		wantOK  bool
		wantErr bool
	}{
		{"notification", `{"type":"notification","notification":{"type":"signal","title":"BUY BTC","side":"buy","price":"50000.5","tradingPair":"BTC/USDT"}}`, true, false},
		{"other type ignored", `{"type":"ping"}`, false, false},
		{"not json", `{`, false, true},
		{"missing body", `{"type":"notification"}`, false, true},
		{"unknown kind", `{"type":"notification","notification":{"type":"nope","title":"x"}}`, false, true},
		{"missing title", `{"type":"notification","notification":{"type":"info"}}`, false, true},
		{"bad side", `{"type":"notification","notification":{"type":"signal","title":"x","side":"hold"}}`, false, true},
		{"negative duration", `{"type":"notification","notification":{"type":"info","title":"x","duration":-1}}`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok, err := dec.Decode([]byte(tt.frame))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.NotEmpty(t, rec.ID)
				assert.Equal(t, mock.Now(), rec.CreatedAt)
				assert.False(t, rec.Read)
			}
		})
	}
}

func TestDecoder_CarriesOptionalFields(t *testing.T) {
	dec := NewDecoder(clock.NewMock())

	rec, ok, err := dec.Decode([]byte(`{"type":"notification","notification":{
		"type":"price_alert","title":"ETH","message":"up","channel":"prices",
		"tradingPair":"ETH/USDT","price":"3000","priceChange":"-2.5",
		"autoHide":false,"duration":8000}}`))
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, models.KindPriceAlert, rec.Kind)
	assert.Equal(t, "prices", rec.Channel)
	require.NotNil(t, rec.Price)
	assert.Equal(t, "3000", rec.Price.String())
	require.NotNil(t, rec.PriceChange)
	assert.Equal(t, "-2.5", rec.PriceChange.String())
	require.NotNil(t, rec.AutoHide)
	assert.False(t, *rec.AutoHide)
	assert.False(t, rec.Hides())
	assert.Equal(t, 8*time.Second, rec.Duration())
}

func TestDecoder_IDsAreUnique(t *testing.T) {
	dec := NewDecoder(clock.NewMock())
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		rec, err := dec.FromPayload(models.Payload{Kind: models.KindInfo, Title: "x"})
		require.NoError(t, err)
		_, dup := seen[rec.ID]
		require.False(t, dup)
		seen[rec.ID] = struct{}{}
	}
}

func TestDecoder_DefaultDuration(t *testing.T) {
	dec := NewDecoder(clock.NewMock()).WithDefaultDuration(3 * time.Second)

	rec, err := dec.FromPayload(models.Payload{Kind: models.KindInfo, Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, rec.Duration())

	rec, err = dec.FromPayload(models.Payload{Kind: models.KindInfo, Title: "x", DurationMs: 1500})
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, rec.Duration())
}

func TestDecoder_RejectsOverlongDuration(t *testing.T) {
	dec := NewDecoder(clock.NewMock()).WithDefaultDuration(7 * time.Second)

	_, ok, err := dec.Decode([]byte(`{"type":"notification","notification":{"type":"info","title":"x","duration":9223372036855}}`))
	require.Error(t, err)
	assert.False(t, ok)

	rec, err := dec.FromPayload(models.Payload{Kind: models.KindInfo, Title: "x", DurationMs: 86400000})
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, rec.Duration())
}

func TestDecoder_PayloadBounds(t *testing.T) {
	dec := NewDecoder(clock.NewMock())
	long := func(n int) string { return strings.Repeat("a", n) }

	tests := []struct {
		name    string
		payload models.Payload
		wantErr bool
	}{
		{"title at limit", models.Payload{Kind: models.KindInfo, Title: long(256)}, false},
		{"title over limit", models.Payload{Kind: models.KindInfo, Title: long(257)}, true},
		{"message over limit", models.Payload{Kind: models.KindInfo, Title: "x", Message: long(4097)}, true},
		{"channel over limit", models.Payload{Kind: models.KindInfo, Title: "x", Channel: long(129)}, true},
		{"negative duration", models.Payload{Kind: models.KindInfo, Title: "x", DurationMs: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dec.FromPayload(tt.payload)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
