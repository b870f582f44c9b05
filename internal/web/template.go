package web

import (
	"fmt"
	"html/template"
	"io"
	"math"
	"time"

	"wakelight/internal/status"
	"wakelight/internal/timeline"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"phaseOrUnknown": func(p string) string {
		if p == "" {
			return "UNKNOWN"
		}
		return p
	},
	"phaseClass": func(p string) string {
		switch p {
		case "RISING":
			return "rising"
		case "FALLING":
			return "falling"
		case "IDLE":
			return "idle"
		}
		return "unknown"
	},
	"percent": func(v float64) string {
		return fmt.Sprintf("%d%%", int(math.Round(v*100)))
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Wake Light</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.rising { color: #c80; font-weight: bold; }
.falling { color: #37b; font-weight: bold; }
.idle { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.swatch { display: inline-block; width: 14px; height: 14px; border: 1px solid #999; border-radius: 3px; vertical-align: middle; margin-right: 6px; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Wake Light<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Alarm</h2>
<table>
<tr><th>Wake Time</th><td id="wake-time">{{.WakeTime}}</td></tr>
<tr><th>Alarm</th><td id="alarm-state" class="{{if .Enabled}}on{{else}}off{{end}}">{{if .Enabled}}ENABLED{{else}}DISABLED{{end}}</td></tr>
<tr><th>Phase</th><td id="phase" class="{{phaseClass (printf "%s" .Phase)}}">{{phaseOrUnknown (printf "%s" .Phase)}}</td></tr>
<tr><th>Lamp</th><td><span id="lamp-swatch" class="swatch" style="background: {{.Color.HexRGB}}"></span><span id="lamp-hex">{{.Color.HexRGB}}</span> W <span id="lamp-white">{{.Color.W}}</span></td></tr>
</table>

<h2>Brightness</h2>
<table>
<tr><th>Display</th><td id="display-level">{{percent .Ambient.Eased}}</td></tr>
<tr><th>Ambient</th><td>raw <span id="ambient-raw">{{.Ambient.Raw}}</span>, target <span id="ambient-target">{{printf "%.3f" .Ambient.Target}}</span>, eased <span id="ambient-eased">{{printf "%.3f" .Ambient.Eased}}</span></td></tr>
<tr><th>Cumulative</th><td id="cumulative-raw">{{.Cumulative.Raw}}</td></tr>
<tr><th>Ready</th><td>{{if .Primed}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}} / {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Activity</h2>
<table>
<tr><th>Rotates</th><td>{{.Counts.Rotates}}</td></tr>
<tr><th>Presses</th><td>{{.Counts.Presses}}</td></tr>
<tr><th>Sunrises</th><td>{{.Counts.Sunrises}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Paint</th><td>{{.Config.PaintMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var dot = document.getElementById("live-dot");

  function byId(id) { return document.getElementById(id); }

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function setPhase(phase) {
    var el = byId("phase");
    el.textContent = phase || "UNKNOWN";
    el.className = phase === "RISING" ? "rising" : phase === "FALLING" ? "falling" : phase === "IDLE" ? "idle" : "unknown";
  }

  function setLamp(hex, white, display) {
    byId("lamp-swatch").style.background = hex;
    byId("lamp-hex").textContent = hex;
    byId("lamp-white").textContent = white;
    byId("display-level").textContent = Math.round(display * 100) + "%";
  }

  function connect() {
    var ws = new WebSocket(proto + location.host + "/ws");

    ws.onopen = function() { setDot("ok", "live"); };
    ws.onerror = function() { setDot("err", "error"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };

    ws.onmessage = function(ev) {
      try {
        var msg = JSON.parse(ev.data);
        if (msg.type === "lamp") {
          setLamp(msg.data.color, msg.data.white, msg.data.display);
          setPhase(msg.data.phase);
        } else if (msg.type === "state") {
          var st = msg.data.status;
          byId("wake-time").textContent = st.wake_time;
          var en = byId("alarm-state");
          en.textContent = st.enabled ? "ENABLED" : "DISABLED";
          en.className = st.enabled ? "on" : "off";
          setPhase(st.phase);
          setLamp(st.color.hex, st.color.w, st.ambient.eased);
          byId("ambient-raw").textContent = st.ambient.raw;
          byId("ambient-target").textContent = st.ambient.target.toFixed(3);
          byId("ambient-eased").textContent = st.ambient.eased.toFixed(3);
          byId("cumulative-raw").textContent = st.cumulative.raw;
        }
      } catch (e) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has an Uptime() method but the template needs plain fields;
	// the wake time renders from minutes past midnight.
	data := struct {
		status.Snapshot
		Uptime   time.Duration
		WakeTime string
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		WakeTime: timeline.ClockString(snap.WakeOffset),
	}
	indexTmpl.Execute(w, data)
}
