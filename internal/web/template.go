package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/dryeye-sensor/internal/status"
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
	"rate": func(r float64) string {
		return fmt.Sprintf("%.1f", r)
	},
	"orDash": func(s string) string {
		if s == "" {
			return "-"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Dry Eye Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.high-risk { color: #c00; font-weight: bold; }
.stress { color: #c60; font-weight: bold; }
.normal { color: green; font-weight: bold; }
.uncertain { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Dry Eye Sensor<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Session</h2>
<table>
<tr><th>State</th><td id="s-state">{{.Session.State}}</td></tr>
<tr><th>Elapsed</th><td id="s-elapsed">{{.Session.ElapsedSeconds}}s / {{.Session.DurationSeconds}}s</td></tr>
<tr><th>Complete blinks</th><td id="s-complete">{{.Session.CompleteBlinks}}</td></tr>
<tr><th>Incomplete blinks</th><td id="s-incomplete">{{.Session.IncompleteBlinks}}</td></tr>
<tr><th>Blink rate</th><td id="s-rate">{{rate .Session.BlinkRate}}/min</td></tr>
<tr><th>Live level</th><td id="s-level" class="{{.Session.RiskLevel}}">{{orDash .Session.RiskLevel}}</td></tr>
</table>
<form method="post" action="/api/session/start" style="display:inline"><button>Start</button></form>
<form method="post" action="/api/session/stop" style="display:inline"><button>Stop</button></form>

{{with .Assessment}}
<h2>Last Result</h2>
<table>
<tr><th>Result</th><td class="{{.Level}}">{{.Label}}: {{.Description}}</td></tr>
<tr><th>Health score</th><td>{{.HealthScore}}/100</td></tr>
<tr><th>Blink rate</th><td>{{rate .BlinkRate}}/min</td></tr>
<tr><th>Blinks</th><td>{{.CompleteBlinks}} complete, {{.IncompleteBlinks}} incomplete ({{.IncompletePercent}}%)</td></tr>
<tr><th>Finished</th><td>{{.FinishedAt.UTC.Format "2006-01-02T15:04:05Z"}} ({{.Reason}})</td></tr>
</table>
<ul>
{{range .Recommendations}}<li>{{.}}</li>
{{end}}</ul>
{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Landmarks</th><td>{{.Config.LandmarkTopic}}</td></tr>
<tr><th>Redis stream</th><td>{{orDash .Config.RedisStream}}</td></tr>
</table>

<h2>Totals</h2>
<table>
<tr><th>Sessions</th><td>{{.Counts.Sessions}}</td></tr>
<tr><th>Complete blinks</th><td>{{.Counts.CompleteBlinks}}</td></tr>
<tr><th>Incomplete blinks</th><td>{{.Counts.IncompleteBlinks}}</td></tr>
<tr><th>Frames</th><td>{{.Counts.FramesProcessed}} processed, {{.Counts.FramesSkipped}} skipped, {{.Counts.FramesNoFace}} no face</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Blink threshold</th><td>{{.Config.BlinkThreshold}} ({{.Config.MinConsecFrames}} frames)</td></tr>
<tr><th>Session length</th><td>{{.Config.SessionSeconds}}s</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }
  function text(id, v) { document.getElementById(id).textContent = v; }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var s = JSON.parse(ev.data).status.session;
        text("s-state", s.state);
        text("s-elapsed", s.elapsed_seconds + "s / " + s.duration_seconds + "s");
        text("s-complete", s.complete_blinks);
        text("s-incomplete", s.incomplete_blinks);
        text("s-rate", s.blink_rate.toFixed(1) + "/min");
        var lvl = document.getElementById("s-level");
        lvl.textContent = s.risk_level || "-";
        lvl.className = s.risk_level || "";
      } catch (e) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime  time.Duration
		Session status.SessionJSON
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Session:  status.NewSessionJSON(snap.Preview),
	}
	return indexTmpl.Execute(w, data)
}
