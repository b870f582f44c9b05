// Package timeline maps wall-clock time to lamp colors around a wake time.
//
// A Schedule is an ordered keyframe ramp; an Engine anchors it to a wake
// offset (minutes after midnight), gates emissions on change, and keeps the
// recompute cadence phase-locked to wall-clock seconds.
package timeline

import (
	"fmt"
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"wakelight/internal/color"
	"wakelight/internal/mathx"
)

const (
	minutesPerDay = 24 * 60
	day           = 24 * time.Hour
)

// Keyframe is one stop on the sunrise ramp. Duration is how long the blend
// toward the next keyframe takes. Wake marks the keyframe whose color is
// reached exactly at the wake time.
type Keyframe struct {
	Duration time.Duration
	Color    color.RGBW
	Wake     bool
}

// segment blends one keyframe toward the next over the keyframe's duration.
type segment struct {
	start time.Duration
	dur   time.Duration
	ch    [4]*gween.Tween
}

// Schedule is a validated keyframe sequence with precomputed channel tweens.
type Schedule struct {
	frames []Keyframe
	segs   []segment
	rise   time.Duration
	fall   time.Duration
	total  time.Duration
}

// NewSchedule validates the keyframes and precomputes the per-segment
// channel tweens. The ramp wraps: the last keyframe blends back to the first
// one's color. At most one keyframe may carry the wake marker; when none
// does, the last keyframe is the anchor.
func NewSchedule(frames []Keyframe) (*Schedule, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("schedule needs at least one keyframe")
	}

	wakeIdx := -1
	for i, f := range frames {
		if f.Duration <= 0 {
			return nil, fmt.Errorf("keyframe %d: duration %v is not positive", i, f.Duration)
		}
		if f.Wake {
			if wakeIdx >= 0 {
				return nil, fmt.Errorf("keyframes %d and %d both carry the wake marker", wakeIdx, i)
			}
			wakeIdx = i
		}
	}
	if wakeIdx < 0 {
		wakeIdx = len(frames) - 1
	}

	s := &Schedule{frames: append([]Keyframe(nil), frames...)}
	var at time.Duration
	for i, f := range s.frames {
		next := s.frames[(i+1)%len(s.frames)]
		seg := segment{start: at, dur: f.Duration}
		durSec := float32(f.Duration.Seconds())
		from := [4]uint8{f.Color.R, f.Color.G, f.Color.B, f.Color.W}
		to := [4]uint8{next.Color.R, next.Color.G, next.Color.B, next.Color.W}
		for c := 0; c < 4; c++ {
			seg.ch[c] = gween.New(float32(from[c]), float32(to[c]), durSec, ease.Linear)
		}
		s.segs = append(s.segs, seg)
		at += f.Duration

		if i < wakeIdx {
			s.rise += f.Duration
		} else {
			s.fall += f.Duration
		}
	}
	s.total = at
	return s, nil
}

// Rise is the ramp time before the wake anchor.
func (s *Schedule) Rise() time.Duration { return s.rise }

// Fall is the ramp time from the wake anchor to the end.
func (s *Schedule) Fall() time.Duration { return s.fall }

// Total is the full ramp length.
func (s *Schedule) Total() time.Duration { return s.total }

// ColorAt returns the ramp color at the given offset from the window start.
// Offsets outside [0, Total) return the first keyframe's color, which is
// also what the wrap segment converges to, so the lamp is continuous at the
// window edges.
func (s *Schedule) ColorAt(elapsed time.Duration) color.RGBW {
	if elapsed < 0 || elapsed >= s.total {
		return s.frames[0].Color
	}

	seg := s.segs[len(s.segs)-1]
	for _, cand := range s.segs {
		if elapsed < cand.start+cand.dur {
			seg = cand
			break
		}
	}

	in := float32((elapsed - seg.start).Seconds())
	var out color.RGBW
	r, _ := seg.ch[0].Set(in)
	g, _ := seg.ch[1].Set(in)
	b, _ := seg.ch[2].Set(in)
	w, _ := seg.ch[3].Set(in)
	out.R = roundChannel(r)
	out.G = roundChannel(g)
	out.B = roundChannel(b)
	out.W = roundChannel(w)
	return out
}

func roundChannel(v float32) uint8 {
	return uint8(mathx.Clamp(int(v+0.5), 0, 255))
}

// Phase describes where a moment falls relative to the sunrise window.
type Phase string

const (
	PhaseIdle    Phase = "IDLE"
	PhaseRising  Phase = "RISING"
	PhaseFalling Phase = "FALLING"
)

// Update is the result of one recompute.
type Update struct {
	Color   color.RGBW
	Phase   Phase
	Changed bool
}

// Engine anchors a schedule to a wake offset and gates color emissions on
// change. Not safe for concurrent use; the daemon loop is the only caller.
type Engine struct {
	sched      *Schedule
	wakeOffset int
	enabled    bool
	last       color.RGBW
	emitted    bool
}

// NewEngine creates an engine with the given wake offset (minutes after
// midnight, wrapped) and enable state.
func NewEngine(sched *Schedule, wakeOffsetMinutes int, enabled bool) *Engine {
	e := &Engine{sched: sched, enabled: enabled}
	e.SetWakeOffset(wakeOffsetMinutes)
	return e
}

// SetWakeOffset sets the wake time as minutes after midnight, wrapping into
// [0, 1440).
func (e *Engine) SetWakeOffset(minutes int) {
	e.wakeOffset = wrapMinutes(minutes)
}

// WakeOffset returns the wake time as minutes after midnight.
func (e *Engine) WakeOffset() int { return e.wakeOffset }

// SetEnabled turns the alarm on or off. Disabled forces the all-zero color
// on the next Update.
func (e *Engine) SetEnabled(on bool) { e.enabled = on }

// Enabled reports the alarm enable state.
func (e *Engine) Enabled() bool { return e.enabled }

// Schedule returns the engine's ramp.
func (e *Engine) Schedule() *Schedule { return e.sched }

// Window returns the sunrise window as wrapped minute-of-day start and end.
func (e *Engine) Window() (startMin, endMin int) {
	start := e.wakeOffset - int(e.sched.rise/time.Minute)
	end := e.wakeOffset + int(e.sched.fall/time.Minute)
	return wrapMinutes(start), wrapMinutes(end)
}

// elapsed returns how far now is into the window, normalized to [0, 24h).
// The window start may precede midnight; the wrap keeps a ramp that spans
// midnight contiguous.
func (e *Engine) elapsed(now time.Time) time.Duration {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := time.Duration(e.wakeOffset)*time.Minute - e.sched.rise

	el := now.Sub(midnight) - start
	for el < 0 {
		el += day
	}
	for el >= day {
		el -= day
	}
	return el
}

// Update recomputes the color for now. Changed reports whether the color
// differs from the last emission, so a repeated Update with the same now is
// idempotent.
func (e *Engine) Update(now time.Time) Update {
	var c color.RGBW
	phase := PhaseIdle

	if e.enabled {
		el := e.elapsed(now)
		c = e.sched.ColorAt(el)
		switch {
		case el >= e.sched.total:
			phase = PhaseIdle
		case el < e.sched.rise:
			phase = PhaseRising
		default:
			phase = PhaseFalling
		}
	}

	changed := !e.emitted || c != e.last
	if changed {
		e.last = c
		e.emitted = true
	}
	return Update{Color: c, Phase: phase, Changed: changed}
}

// NextTick returns the delay from now to the next wall-clock second
// boundary, in (0, 1s]. The daemon re-arms its recompute timer with it so
// updates stay aligned to seconds.
func NextTick(now time.Time) time.Duration {
	return time.Second - time.Duration(now.Nanosecond())
}

// ClockString formats a minute-of-day offset as HH:MM.
func ClockString(minutes int) string {
	m := wrapMinutes(minutes)
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func wrapMinutes(m int) int {
	m %= minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return m
}
