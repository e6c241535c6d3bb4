package usecase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"CryptoNotify/internal/domain/models"
	drepo "CryptoNotify/internal/domain/repository"
	"CryptoNotify/internal/service/realtime"
	"CryptoNotify/pkg/logger"
	"CryptoNotify/pkg/metrics"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	started atomic.Bool
	closed  atomic.Bool
}

func (c *fakeChannel) Start(context.Context) error {
	c.started.Store(true)
	return nil
}

func (c *fakeChannel) Close() { c.closed.Store(true) }

type channelRecorder struct {
	mu       sync.Mutex
	channels []*fakeChannel
}

func (r *channelRecorder) factory() (drepo.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := &fakeChannel{}
	r.channels = append(r.channels, ch)
	return ch, nil
}

func (r *channelRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}

func (r *channelRecorder) get(i int) *fakeChannel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channels[i]
}

func setEnabled(t *testing.T, s *Store, enabled bool) {
	t.Helper()
	dispatch(t, s, models.UpdateSettings{Patch: models.SettingsPatch{Enabled: &enabled}})
}

func TestListener_DisabledNeverOpensChannel(t *testing.T) {
	settings := models.DefaultSettings()
	settings.Enabled = false
	s, _ := newStartedStore(t, settings)

	chans := &channelRecorder{}
	l := NewListener(chans.factory, s, s, logger.Nop())
	s.Subscribe(l)
	l.Start(context.Background())
	defer l.Close()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, chans.count())
	assert.False(t, l.Listening())
}

func TestListener_TogglesChannelWithSettings(t *testing.T) {
	s, _ := newStartedStore(t, models.DefaultSettings())

	chans := &channelRecorder{}
	l := NewListener(chans.factory, s, s, logger.Nop())
	s.Subscribe(l)
	l.Start(context.Background())
	defer l.Close()

	require.Eventually(t, func() bool { return chans.count() == 1 && l.Listening() }, time.Second, 5*time.Millisecond)
	assert.True(t, chans.get(0).started.Load())

	dispatch(t, s, models.SetConnection{Connected: true})
	setEnabled(t, s, false)
	require.Eventually(t, func() bool { return chans.get(0).closed.Load() }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return !s.Snapshot().Connected }, time.Second, 5*time.Millisecond)

	setEnabled(t, s, true)
	require.Eventually(t, func() bool { return chans.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.False(t, chans.get(1).closed.Load())
}

func TestListener_CloseStopsChannel(t *testing.T) {
	s, _ := newStartedStore(t, models.DefaultSettings())

	chans := &channelRecorder{}
	l := NewListener(chans.factory, s, s, logger.Nop())
	l.Start(context.Background())
	require.Eventually(t, func() bool { return chans.count() == 1 }, time.Second, 5*time.Millisecond)

	l.Close()
	l.Close()
	assert.True(t, chans.get(0).closed.Load())
	assert.False(t, l.Listening())
}

func TestListener_WithRealtimeClient(t *testing.T) {
	var accepted atomic.Int64
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted.Add(1)
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"notification","notification":{"type":"alert","title":"BTC Alert","message":"Price crossed 50000","urgent":true}}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	settings := models.DefaultSettings()
	settings.Enabled = false
	s, _ := newStartedStore(t, settings)

	factory := func() (drepo.Channel, error) {
		return realtime.NewClient(realtime.Config{
			Endpoint: "ws" + strings.TrimPrefix(srv.URL, "http"),
			Clock:    clock.NewMock(),
		}, s, nil, metrics.Nop{}, logger.Nop())
	}
	l := NewListener(factory, s, s, logger.Nop())
	s.Subscribe(l)
	l.Start(context.Background())
	defer l.Close()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, accepted.Load())

	setEnabled(t, s, true)
	require.Eventually(t, func() bool {
		st := s.Snapshot()
		return st.Connected && len(st.Records) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "BTC Alert", s.Snapshot().Records[0].Title)
	assert.Equal(t, 1, s.Snapshot().UnreadCount)

	setEnabled(t, s, false)
	require.Eventually(t, func() bool { return !s.Snapshot().Connected && !l.Listening() }, 2*time.Second, 10*time.Millisecond)
}
