// Package sensor acquires raw light readings for the ambient filter.
package sensor

import (
	"log/slog"
	"time"
)

// Reading is one poll of the light sensor's two channels, in raw counts.
// Ambient is the instantaneous channel; Cumulative is the sensor's
// integrating channel, kept for diagnostics.
type Reading struct {
	Ambient    int
	Cumulative int
}

// Reader is the acquisition surface. A failed Read stands for one skipped
// poll cycle, not a dead sensor.
type Reader interface {
	Read() (Reading, error)
	Close() error
}

// Sampler polls a Reader on its own goroutine and hands readings to the
// daemon loop over a channel. The channel holds one reading; when the loop
// is busy the latest reading wins.
type Sampler struct {
	r      Reader
	period time.Duration
	log    *slog.Logger
	out    chan Reading
	stop   chan struct{}
	done   chan struct{}
}

// NewSampler creates a sampler polling r every period.
func NewSampler(r Reader, period time.Duration, log *slog.Logger) *Sampler {
	if log == nil {
		log = slog.Default()
	}
	return &Sampler{
		r:      r,
		period: period,
		log:    log,
		out:    make(chan Reading, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Readings returns the channel the sampler delivers on.
func (s *Sampler) Readings() <-chan Reading { return s.out }

// Start launches the poll loop. The first read happens immediately so the
// filter primes at boot.
func (s *Sampler) Start() {
	go s.run()
}

// Stop ends the poll loop and waits for it to exit. The Reader is not
// closed; the owner does that.
func (s *Sampler) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Sampler) run() {
	defer close(s.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-timer.C:
		}

		started := time.Now()
		r, err := s.r.Read()
		if err != nil {
			s.log.Debug("sensor read skipped", "error", err)
		} else {
			s.offer(r)
		}

		// Re-arm with the residual so processing time does not stretch the
		// poll period.
		delay := s.period - time.Since(started)
		if delay < 0 {
			delay = 0
		}
		timer.Reset(delay)
	}
}

func (s *Sampler) offer(r Reading) {
	for {
		select {
		case s.out <- r:
			return
		default:
		}
		select {
		case <-s.out:
		default:
		}
	}
}
