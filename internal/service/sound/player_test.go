package sound

import (
	"context"
	"errors"
	"testing"
	"time"

	"CryptoNotify/internal/domain/models"
	"CryptoNotify/internal/service/ratelimit"
	"CryptoNotify/pkg/logger"
	"CryptoNotify/pkg/metrics"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

type fakeDevice struct {
	played []Cue
	err    error
}

func (d *fakeDevice) Play(c Cue) error {
	d.played = append(d.played, c)
	return d.err
}

func TestCueFor(t *testing.T) {
	assert.Equal(t, CueSignal, CueFor(models.KindSignal))
	assert.Equal(t, CueAlert, CueFor(models.KindAlert))
	assert.Equal(t, CueAlert, CueFor(models.KindPriceAlert))
	assert.Equal(t, CueSuccess, CueFor(models.KindTargetReached))
	assert.Equal(t, CueError, CueFor(models.KindStopLoss))
	assert.Equal(t, CueInfo, CueFor(models.KindInfo))
	assert.Equal(t, CueInfo, CueFor(models.Kind("unknown")))
}

func TestPlayer_ThrottlesPerCue(t *testing.T) {
	mock := clock.NewMock()
	dev := &fakeDevice{}
	p := NewPlayer(dev, ratelimit.NewWithClock(mock), 2, 1, metrics.Nop{}, logger.Nop())

	for i := 0; i < 5; i++ {
		p.Play(context.Background(), models.KindAlert)
	}
	p.Play(context.Background(), models.KindSignal)
	assert.Len(t, dev.played, 3)

	mock.Add(time.Second)
	p.Play(context.Background(), models.KindAlert)
	assert.Len(t, dev.played, 4)
}

func TestPlayer_DeviceErrorSwallowed(t *testing.T) {
	dev := &fakeDevice{err: errors.New("no audio device")}
	p := NewPlayer(dev, nil, 5, 1, metrics.Nop{}, logger.Nop())

	assert.NotPanics(t, func() { p.Play(context.Background(), models.KindError) })
	assert.Len(t, dev.played, 1)
}
