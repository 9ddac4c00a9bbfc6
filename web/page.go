package web

import (
	"html"
	"html/template"
)

// Deep links are emitted as a whole attribute: html/template would otherwise
// normalize the URL and percent-encode the '|' separator.
var pageFuncs = template.FuncMap{
	"deeplink": func(s string) template.HTMLAttr {
		return template.HTMLAttr(`href="` + html.EscapeString(s) + `"`)
	},
}

var pageTemplate = template.Must(template.New("index").Funcs(pageFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Servers</title>
<style>
body { font-family: sans-serif; background: #0b0b0b; color: #eee; }
.grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(280px, 1fr)); gap: 1.5rem; max-width: 80rem; margin: 2rem auto; }
.card { border: 1px solid #333; border-radius: .5rem; padding: 1.25rem; }
.muted { color: #6b7280; }
.negative { color: #ef4444; }
.positive { color: #22c55e; }
.tag { display: inline-block; background: rgba(59,130,246,.2); color: #60a5fa; padding: .25rem .75rem; border-radius: .375rem; font-size: .875rem; }
.detail { color: #9ca3af; font-size: .875rem; margin: .25rem 0; }
.error { background: #fee2e2; border: 1px solid #f87171; color: #b91c1c; padding: .75rem 1rem; border-radius: .25rem; max-width: 40rem; margin: 2rem auto; }
</style>
</head>
<body>
{{if .Error}}
<div class="error"><strong>Error:</strong> {{.Error}}</div>
<form method="post" action="/error/clear" style="text-align:center"><button type="submit">Try Again</button></form>
{{else}}
<div class="grid">
{{range .Servers}}
<div class="card">
  <h2>{{.Server.Name}}</h2>
  <p class="{{.Display.Tone}}">{{.Display.Label}}</p>
  <span class="tag">{{.Server.Category}}</span>
  <p class="muted">{{.Server.Description}}</p>
  <p class="muted">Bedrock Only</p>
  {{with .Details}}
  <p class="detail">Server Status:</p>
  <p class="detail">{{.MOTD}}</p>
  <p class="detail">Players: {{.PlayersOnline}}/{{.PlayersMax}}</p>
  <p class="detail">Version: {{.Version}}</p>
  <p class="detail">Gamemode: {{.Gamemode}}</p>
  {{end}}
  <form method="post" action="/servers/{{.Server.Address}}/check">
    <button type="submit"{{if .Pending}} disabled{{end}}>{{if .Pending}}Checking...{{else}}Check Status{{end}}</button>
  </form>
  <a {{deeplink .JoinURL}} target="_blank" rel="noopener noreferrer">Join Server</a>
</div>
{{end}}
</div>
{{end}}
<script>
(function () {
  var rendered = {{.Version}};
  var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
  ws.onmessage = function (ev) {
    var msg = JSON.parse(ev.data);
    if (msg.payload && msg.payload.version !== rendered) {
      location.reload();
    }
  };
})();
</script>
</body>
</html>
`))
