package training

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Progress logs a training line at most once per interval.
type Progress struct {
	limiter *rate.Limiter
	logger  *slog.Logger
	now     func() time.Time

	lastAt        time.Time
	lastIteration int64
}

// NewProgress reports at most once per interval. A non-positive interval
// disables reporting.
func NewProgress(interval time.Duration, logger *slog.Logger) *Progress {
	p := &Progress{logger: logger, now: time.Now}
	if interval > 0 {
		p.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return p
}

// Report logs the state after a training step if the rate allows it.
// Throughput is measured since the previous logged line.
func (p *Progress) Report(iteration int64, epoch int, loss float64) bool {
	if p.limiter == nil || !p.limiter.Allow() {
		return false
	}
	now := p.now()
	var speed float64
	if !p.lastAt.IsZero() {
		if dt := now.Sub(p.lastAt).Seconds(); dt > 0 {
			speed = float64(iteration-p.lastIteration) / dt
		}
	}
	p.lastAt, p.lastIteration = now, iteration

	p.logger.Info("training",
		"iteration", iteration,
		"epoch", epoch,
		"loss", loss,
		"it/s", speed,
	)
	return true
}
