// Package sound plays short audio cues for new notifications.
package sound

import (
	"context"

	"CryptoNotify/internal/domain/models"
	drepo "CryptoNotify/internal/domain/repository"
	"CryptoNotify/internal/service/ratelimit"
	"CryptoNotify/pkg/logger"

	"github.com/gen2brain/beeep"
)

// Cue is one entry of the fixed sound set.
type Cue struct {
	Name       string
	Frequency  float64 // Hz
	DurationMs int
}

var (
	CueSignal  = Cue{Name: "signal", Frequency: 880, DurationMs: 150}
	CueAlert   = Cue{Name: "alert", Frequency: 1046, DurationMs: 300}
	CueSuccess = Cue{Name: "success", Frequency: 660, DurationMs: 120}
	CueError   = Cue{Name: "error", Frequency: 220, DurationMs: 400}
	CueInfo    = Cue{Name: "info", Frequency: 523, DurationMs: 100}
)

// CueFor maps a notification kind onto the cue set.
func CueFor(k models.Kind) Cue {
	switch k {
	case models.KindSignal:
		return CueSignal
	case models.KindAlert, models.KindPriceAlert, models.KindWarning:
		return CueAlert
	case models.KindSuccess, models.KindTargetReached:
		return CueSuccess
	case models.KindError, models.KindStopLoss:
		return CueError
	default:
		return CueInfo
	}
}

// Device produces sound.
type Device interface {
	Play(c Cue) error
}

// BeeepDevice plays cues as system beeps.
type BeeepDevice struct{}

func (BeeepDevice) Play(c Cue) error {
	return beeep.Beep(c.Frequency, c.DurationMs)
}

// Player plays the cue for a kind, rate limited per cue.
type Player struct {
	device  Device
	limiter *ratelimit.Limiter
	metrics drepo.Metrics
	logger  *logger.Logger
	burst   float64
	refill  float64
}

// NewPlayer creates a player. burst cues of the same kind may play back to
// back; afterwards refill cues per second are allowed.
func NewPlayer(device Device, limiter *ratelimit.Limiter, burst, refill float64, metrics drepo.Metrics, l *logger.Logger) *Player {
	if limiter == nil {
		limiter = ratelimit.New()
	}
	return &Player{
		device:  device,
		limiter: limiter,
		metrics: metrics,
		logger:  l.Component("sound"),
		burst:   burst,
		refill:  refill,
	}
}

// Play plays the cue for k. Failures are logged at debug level only.
func (p *Player) Play(_ context.Context, k models.Kind) {
	cue := CueFor(k)
	if !p.limiter.Allow("cue:"+cue.Name, p.burst, p.refill) {
		p.metrics.RecordBridge("sound", "throttled")
		return
	}
	if err := p.device.Play(cue); err != nil {
		p.metrics.RecordBridge("sound", "failed")
		p.logger.Debug("sound playback failed", logger.String("cue", cue.Name), logger.Error(err))
		return
	}
	p.metrics.RecordBridge("sound", "played")
}
