// Command wakelight drives a sunrise wake-up lamp: a rotary dial sets the
// wake time, a keyframe ramp simulates dawn around it, and an ambient light
// sensor dims the clock display. Events go to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wakelight/internal/ambient"
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

func main() {
	configPath := flag.String("config", "", "YAML config path (built-in defaults when empty)")
	printState := flag.Bool("print-state", false, "Print dial line levels and one sensor reading, then exit")
	broker := flag.String("broker", "", "Override mqtt.broker")
	httpAddr := flag.String("http", "", "Override http.addr (empty disables the status server)")
	storePath := flag.String("store", "", "Override store.path")
	logLevel := flag.String("log-level", "", "Override logging.level (error, warn, info, debug)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Only flags the user actually set override the file.
	var o config.Overrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "broker":
			o.Broker = broker
		case "http":
			o.HTTPAddr = httpAddr
		case "store":
			o.StorePath = storePath
		case "log-level":
			o.LogLevel = logLevel
		}
	})
	o.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	level, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := setupLogger(level)

	if err := run(cfg, *printState, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, printState bool, logger *slog.Logger) error {
	// Initialize GPIO
	watcher, err := gpio.NewRealWatcher(cfg.Dial.Device, cfg.Dial.Lines())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer watcher.Close()

	levels, err := watcher.Levels()
	if err != nil {
		return fmt.Errorf("read gpio: %w", err)
	}

	// Initialize the light sensor
	reader, err := sensor.NewIIO(cfg.Sensor.Device)
	if err != nil {
		return fmt.Errorf("init sensor: %w", err)
	}
	defer reader.Close()

	// Print state mode
	if printState {
		r, err := reader.Read()
		if err != nil {
			return fmt.Errorf("read sensor: %w", err)
		}
		fmt.Printf("dial-a: %s, dial-b: %s, button: %s\n",
			stateString(levels[gpio.RoleDialA]),
			stateString(levels[gpio.RoleDialB]),
			stateString(levels[gpio.RoleButton]))
		fmt.Printf("ambient: %d, cumulative: %d\n", r.Ambient, r.Cumulative)
		return nil
	}

	schedule, err := timeline.NewSchedule(cfg.Alarm.Frames())
	if err != nil {
		return fmt.Errorf("build schedule: %w", err)
	}

	// Persisted settings win over the config defaults once the state file
	// exists.
	st := store.New(cfg.Store.Path, logger)
	state := st.Load(store.State{
		WakeOffsetMinutes: cfg.Alarm.WakeOffsetMin,
		Enabled:           cfg.Alarm.Enabled,
	})
	engine := timeline.NewEngine(schedule, state.WakeOffsetMinutes, state.Enabled)

	// Initialize the lamp output
	lamp, err := light.NewPWM(cfg.Lamp.PWMChip, uint32(cfg.Lamp.PeriodNs), cfg.Lamp.ChannelMap())
	if err != nil {
		return fmt.Errorf("init lamp: %w", err)
	}
	defer lamp.Close()

	// The display backlight is optional; a headless unit runs without it.
	var dimmer display.Dimmer = display.Noop{}
	if cfg.Display.BacklightDir != "" {
		bl, err := display.NewBacklight(cfg.Display.BacklightDir)
		if err != nil {
			logger.Warn("backlight unavailable, display dimming disabled", "error", err)
		} else {
			dimmer = bl
		}
	}
	defer dimmer.Close()

	// Initialize MQTT
	publisher := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, logger)
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      cfg.Sensor.PollPeriod().Milliseconds(),
		PaintMs:     cfg.Lamp.PaintPeriod().Milliseconds(),
		DebounceMs:  cfg.Lamp.EmitDeadline().Milliseconds(),
		HeartbeatMs: cfg.MQTT.HeartbeatPeriod().Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPPort:    cfg.HTTP.Addr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Start HTTP status server
	var srv *web.Server
	if cfg.HTTP.Addr != "" {
		srv = web.New(cfg.HTTP.Addr, tracker, logger)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("http status server listening", "addr", cfg.HTTP.Addr)
	}

	sampler := sensor.NewSampler(reader, cfg.Sensor.PollPeriod(), logger)
	sampler.Start()
	defer sampler.Stop()

	cal := cfg.Sensor.Calibration.Calibration()
	d := &daemon{
		cfg:              cfg,
		log:              logger,
		engine:           engine,
		decoder:          dial.NewDecoder(levels[gpio.RoleDialA], levels[gpio.RoleDialB], levels[gpio.RoleButton]),
		spin:             dial.NewSpin(cfg.Dial.SpinWindow()),
		ambientFilter:    ambient.NewFilter(cal, cfg.Sensor.EaseCoeff),
		cumulativeFilter: ambient.NewFilter(cal, cfg.Sensor.EaseCoeff),
		lamp:             lamp,
		dimmer:           dimmer,
		pub:              publisher,
		conn:             publisher,
		tracker:          tracker,
		store:            st,
		web:              srv,
		now:              time.Now,
		levelA:           levels[gpio.RoleDialA],
		levelB:           levels[gpio.RoleDialB],
	}
	d.emit = debounce.New(cfg.Lamp.EmitQuiet(), cfg.Lamp.EmitDeadline(), d.applyLamp)
	d.save = debounce.New(saveQuiet, saveDeadline, d.persist)
	d.announce = debounce.New(saveQuiet, saveDeadline, d.publishPending)

	secTimer := time.NewTimer(timeline.NextTick(time.Now()))
	defer secTimer.Stop()
	paint := time.NewTicker(cfg.Lamp.PaintPeriod())
	defer paint.Stop()

	var heartbeatC <-chan time.Time
	if period := cfg.MQTT.HeartbeatPeriod(); period > 0 {
		hb := time.NewTicker(period)
		defer hb.Stop()
		heartbeatC = hb.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("started",
		"wake_time", timeline.ClockString(engine.WakeOffset()),
		"enabled", engine.Enabled(),
		"broker", cfg.MQTT.Broker,
		"poll", cfg.Sensor.PollPeriod(),
		"paint", cfg.Lamp.PaintPeriod())

	return d.runLoop(watcher.Events(), sampler.Readings(), secTimer.C,
		func(next time.Duration) { secTimer.Reset(next) },
		paint.C, heartbeatC, sigCh)
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func stateString(level bool) string {
	if level {
		return "HIGH"
	}
	return "LOW"
}
