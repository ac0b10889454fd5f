package diagram

import "github.com/conneroisu/tatum/internal/templates"

const skeletonSource = `<svg xmlns="http://www.w3.org/2000/svg" class="tatum-diagram" width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}" role="img">
<defs><marker id="{{.MarkerID}}" viewBox="0 0 10 10" refX="10" refY="5" markerWidth="8" markerHeight="8" orient="auto-start-reverse"><path d="M 0 0 L 10 5 L 0 10 z" fill="currentColor"/></marker></defs>
{{- range .Lines}}
<line x1="{{.X1}}" y1="{{.Y1}}" x2="{{.X2}}" y2="{{.Y2}}" stroke="currentColor" stroke-width="1.5" marker-end="url(#{{$.MarkerID}})"/>
{{- end}}
{{- range .Nodes}}
<g><rect x="{{.X}}" y="{{.Y}}" width="{{.W}}" height="{{.H}}" rx="6" fill="none" stroke="currentColor" stroke-width="1.5"/><text x="{{.TextX}}" y="{{.TextY}}" text-anchor="middle" dominant-baseline="central" font-family="sans-serif" font-size="13" fill="currentColor">{{.Label}}</text></g>
{{- end}}
</svg>`

var skeleton = templates.MustSkeleton("diagram", skeletonSource)
