package main

import (
	"log/slog"
	"os"
	"syscall"
	"time"

	"wakelight/internal/ambient"
	"wakelight/internal/color"
	"wakelight/internal/config"
	"wakelight/internal/debounce"
	"wakelight/internal/dial"
	"wakelight/internal/display"
	"wakelight/internal/gpio"
	"wakelight/internal/light"
	"wakelight/internal/mqtt"
	"wakelight/internal/sensor"
	"wakelight/internal/status"
	"wakelight/internal/store"
	"wakelight/internal/timeline"
	"wakelight/internal/web"
)

// Settings coalescing for dial bursts: one flash write and one WAKE_TIME_SET
// once the dial has been quiet for saveQuiet, and never later than
// saveDeadline after the first detent of a burst.
const (
	saveQuiet    = 2 * time.Second
	saveDeadline = 10 * time.Second
)

// daemon holds the run loop's state. All fields are owned by the runLoop
// goroutine; the debounced emit, save, and announce functions run on timer
// goroutines and only touch thread-safe sinks.
type daemon struct {
	cfg config.Config
	log *slog.Logger

	engine           *timeline.Engine
	decoder          *dial.Decoder
	spin             *dial.Spin
	ambientFilter    *ambient.Filter
	cumulativeFilter *ambient.Filter

	lamp    light.Sink
	dimmer  display.Dimmer
	pub     mqtt.Publisher
	conn    mqtt.ConnectionStatus
	tracker *status.Tracker
	store   *store.Store
	web     *web.Server // nil when the HTTP server is disabled

	emit     *debounce.Debouncer[color.RGBW]
	save     *debounce.Debouncer[store.State]
	announce *debounce.Debouncer[mqtt.Event]

	now func() time.Time

	levelA, levelB bool
	current        color.RGBW
	phase          timeline.Phase
	counts         status.Counts
	primed         bool
}

// runLoop is the daemon's single event loop. rearmSec re-arms the secTick
// timer; the loop hands it the delay to the next wall-clock second so
// recomputes stay phase-locked regardless of processing time.
func (d *daemon) runLoop(events <-chan gpio.Event, readings <-chan sensor.Reading, secTick <-chan time.Time, rearmSec func(time.Duration), paintTick, heartbeat <-chan time.Time, sig <-chan os.Signal) error {
	// First recompute before any tick so the lamp shows the right color
	// immediately and the STARTUP snapshot below is complete. Phase
	// announcements stay quiet here: a restart mid-sunrise reports no
	// transition it did not observe.
	d.refreshAlarm(d.now())

	if err := d.publishSystem("STARTUP", "", true); err != nil {
		d.log.Warn("startup publish failed", "error", err)
	} else {
		d.log.Info("published startup status")
	}

	for {
		select {
		case s := <-sig:
			return d.shutdown(s)

		case ev := <-events:
			d.handleLine(ev)

		case <-secTick:
			t := d.now()
			d.refreshAlarm(t)
			rearmSec(timeline.NextTick(t))

		case r := <-readings:
			d.ambientFilter.Observe(r.Ambient)
			d.cumulativeFilter.Observe(r.Cumulative)
			d.primed = true

		case <-paintTick:
			d.paint()

		case <-heartbeat:
			d.heartbeat()
		}
	}
}

// refreshAlarm recomputes the lamp color for now, announces phase
// transitions, and hands changed colors to the debounced lamp writer.
func (d *daemon) refreshAlarm(now time.Time) {
	up := d.engine.Update(now)

	prev := d.phase
	d.phase = up.Phase
	d.current = up.Color
	d.tracker.SetAlarm(d.engine.Enabled(), up.Phase, d.engine.WakeOffset(), up.Color)

	if prev != "" && prev != up.Phase {
		d.announcePhase(prev, up.Phase, now)
	}
	if up.Changed {
		d.emit.Call(up.Color)
	}
}

func (d *daemon) announcePhase(prev, curr timeline.Phase, at time.Time) {
	switch {
	case curr == timeline.PhaseRising:
		d.counts.Sunrises++
		d.tracker.SetCounts(d.counts)
		d.publishAlarm(mqtt.EventSunriseStart, at)
	case curr == timeline.PhaseFalling && prev == timeline.PhaseRising:
		d.publishAlarm(mqtt.EventWakeReached, at)
	case curr == timeline.PhaseIdle:
		d.publishAlarm(mqtt.EventSunriseEnd, at)
	}
	d.log.Info("phase change", "from", string(prev), "to", string(curr))
}

// handleLine routes one GPIO edge. Quadrature edges update the tracked line
// levels and feed the decoder; most edges complete no detent and end here.
func (d *daemon) handleLine(ev gpio.Event) {
	switch ev.Role {
	case gpio.RoleDialA, gpio.RoleDialB:
		if ev.Role == gpio.RoleDialA {
			d.levelA = ev.Level
		} else {
			d.levelB = ev.Level
		}
		rot, ok := d.decoder.Apply(ev.Time, d.levelA, d.levelB)
		if !ok {
			return
		}
		d.rotate(rot)

	case gpio.RoleButton:
		bev, ok := d.decoder.Button(ev.Time, ev.Level)
		if !ok || bev.Type != dial.EventPress {
			return
		}
		d.togglePressed(bev.Time)
	}
}

// rotate steps the wake time one detent: a minute normally, the coarse step
// once the dial is being spun. The recompute is immediate; the flash write
// and the WAKE_TIME_SET event wait for the burst to settle.
func (d *daemon) rotate(ev dial.Event) {
	burst := d.spin.Add(ev.Time, ev.Delta)
	step := d.cfg.Dial.StepFor(burst)

	d.engine.SetWakeOffset(d.engine.WakeOffset() + ev.Delta*step)
	d.counts.Rotates++
	d.tracker.SetCounts(d.counts)
	d.refreshAlarm(ev.Time)

	d.save.Call(store.State{WakeOffsetMinutes: d.engine.WakeOffset(), Enabled: d.engine.Enabled()})
	d.announce.Call(mqtt.Event{
		Timestamp:  ev.Time,
		Type:       mqtt.EventWakeTimeSet,
		WakeOffset: d.engine.WakeOffset(),
		Enabled:    d.engine.Enabled(),
		Color:      d.current,
	})
	d.web.BroadcastState()

	d.log.Debug("wake time set", "wake_time", timeline.ClockString(d.engine.WakeOffset()), "step", step)
}

func (d *daemon) togglePressed(at time.Time) {
	enabled := !d.engine.Enabled()
	d.engine.SetEnabled(enabled)
	d.counts.Presses++
	d.tracker.SetCounts(d.counts)

	typ := mqtt.EventAlarmDisabled
	if enabled {
		typ = mqtt.EventAlarmEnabled
	}
	d.publishAlarm(typ, at)

	// Recompute after the toggle event so enabling mid-window reports
	// ALARM_ENABLED before the SUNRISE_START it causes.
	d.refreshAlarm(at)
	d.save.Call(store.State{WakeOffsetMinutes: d.engine.WakeOffset(), Enabled: enabled})
	d.web.BroadcastState()

	d.log.Info("alarm toggled", "enabled", enabled)
}

// paint advances the eased display brightness one step and pushes the live
// feed. The dimmer is left alone until the first sensor reading arrives so
// the panel does not dip to black during boot.
func (d *daemon) paint() {
	if d.primed {
		level := d.ambientFilter.Step()
		d.cumulativeFilter.Step()
		if err := d.dimmer.SetLevel(level); err != nil {
			d.log.Warn("display write failed", "error", err)
		}
	}

	d.tracker.SetLevels(
		status.Channel{Raw: d.ambientFilter.RawTarget(), Target: d.ambientFilter.Target(), Eased: d.ambientFilter.Level()},
		status.Channel{Raw: d.cumulativeFilter.RawTarget(), Target: d.cumulativeFilter.Target(), Eased: d.cumulativeFilter.Level()},
		d.primed,
	)
	d.web.BroadcastLamp(d.current, d.phase, d.ambientFilter.Level())
}

func (d *daemon) heartbeat() {
	// Refresh network info for the heartbeat payload.
	if net := readNetworkInfo(); net != nil {
		d.tracker.SetNetwork(net)
	}
	if err := d.publishSystem("HEARTBEAT", "", false); err != nil {
		d.log.Warn("heartbeat publish failed", "error", err)
	} else {
		d.log.Debug("published heartbeat")
	}
}

// shutdown flushes pending saves and announcements, then publishes the
// retained SHUTDOWN status. Hardware teardown runs on run's defer stack.
func (d *daemon) shutdown(s os.Signal) error {
	name := "UNKNOWN"
	if s == syscall.SIGINT {
		name = "SIGINT"
	} else if s == syscall.SIGTERM {
		name = "SIGTERM"
	}
	d.log.Info("received signal, shutting down", "signal", name)

	d.announce.Flush()
	d.save.Flush()
	d.emit.Stop()
	d.save.Stop()
	d.announce.Stop()

	if err := d.publishSystem("SHUTDOWN", name, true); err != nil {
		d.log.Warn("shutdown publish failed", "error", err)
	} else {
		d.log.Info("published shutdown status")
	}
	return nil
}

// publishSystem sends a lifecycle event carrying a full status snapshot.
func (d *daemon) publishSystem(event, reason string, retained bool) error {
	if d.conn != nil {
		d.tracker.SetMQTTConnected(d.conn.IsConnected())
	}
	snap := d.tracker.Snapshot()
	return d.pub.PublishSystem(mqtt.SystemEvent{
		Timestamp:  d.now(),
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
}

func (d *daemon) publishAlarm(typ mqtt.EventType, at time.Time) {
	ev := mqtt.Event{
		Timestamp:  at,
		Type:       typ,
		WakeOffset: d.engine.WakeOffset(),
		Enabled:    d.engine.Enabled(),
		Color:      d.current,
	}
	if err := d.pub.Publish(ev); err != nil {
		d.log.Warn("publish failed", "event", string(typ), "error", err)
	}
}

// applyLamp runs on the emit debouncer's timer goroutine.
func (d *daemon) applyLamp(c color.RGBW) {
	if err := d.lamp.Apply(color.Gamma(c)); err != nil {
		d.log.Warn("lamp write failed", "error", err)
	}
}

// persist runs on the save debouncer's timer goroutine.
func (d *daemon) persist(st store.State) {
	if err := d.store.Save(st); err != nil {
		d.log.Warn("state save failed", "error", err)
	}
}

// publishPending runs on the announce debouncer's timer goroutine.
func (d *daemon) publishPending(ev mqtt.Event) {
	if err := d.pub.Publish(ev); err != nil {
		d.log.Warn("publish failed", "event", string(ev.Type), "error", err)
	}
}
