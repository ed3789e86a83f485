package view

import (
	"bytes"
	"html/template"

	"piltlab/internal/domain/trial"
)

var fragmentTmpl = template.Must(template.New("trial").Parse(`<div id="pilt-container" data-state="{{.State}}">
{{- if ne .State "terminal"}}
  {{template "option" .Left}}
  <div id="pilt-center" class="center">{{.Center}}</div>
  {{template "option" .Right}}
{{- end}}
</div>
{{define "option"}}<div class="optionBox{{if .Selected}} selected{{end}}{{if .Suppressed}} suppressed{{end}}">
    <img class="stimulus" src="{{.Stimulus}}">
    {{- if .Pavlovian}}<img class="pavlovian" src="{{.Pavlovian}}">{{end}}
    {{- if .Coin}}<img class="coin" src="{{.Coin}}">{{end}}
  </div>{{end}}`))

// HTML renders a frame as the DOM fragment served to the browser client.
func HTML(frame trial.Frame) (string, error) {
	var buf bytes.Buffer
	if err := fragmentTmpl.Execute(&buf, frame); err != nil {
		return "", err
	}
	return buf.String(), nil
}
