package templates

import (
	"bytes"
	"html/template"

	terrors "github.com/conneroisu/tatum/internal/errors"
)

// LiveReloadTemplate is the name of the sub-template every page skeleton
// can call to embed the live-reload client.
const LiveReloadTemplate = "livereload"

// liveReloadClient reconnects while the preview server restarts and
// reloads the page after a reconnect or a reload message.
const liveReloadClient = `<script>
(function () {
  var path = {{.WatchPath}};
  var reconnecting = false;
  function connect() {
    var scheme = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(scheme + location.host + "/watch?path=" + encodeURIComponent(path));
    ws.onopen = function () {
      if (reconnecting) { location.reload(); }
    };
    ws.onmessage = function (event) {
      var msg = {};
      try { msg = JSON.parse(event.data); } catch (e) {}
      if (msg.type === "reload" || msg.type === "lost") {
        ws.onclose = null;
        ws.close();
        location.reload();
      }
    };
    ws.onclose = function () {
      reconnecting = true;
      setTimeout(connect, 1000);
    };
  }
  connect();
})();
</script>`

// Page holds the per-document values the assembler fills in.
type Page struct {
	Title      string
	Body       string
	LiveReload bool
	// WatchPath is the document path the live-reload client subscribes to.
	WatchPath string
}

// pageData is what the skeleton sees.
type pageData struct {
	Title      string
	Body       template.HTML
	Stylesheet template.CSS
	Macros     template.JS
	LiveReload bool
	WatchPath  string
}

func newPageSkeleton(src string) (*Skeleton, error) {
	base := template.New(LiveReloadTemplate)
	if _, err := base.Parse(liveReloadClient); err != nil {
		return nil, err
	}

	return NewSkeleton("page", src, base)
}

// Assemble fills tpl's page skeleton. Identical inputs produce identical
// output. A skeleton that fails to execute is reported as
// TemplateRenderError.
func Assemble(tpl *Template, page Page) (string, error) {
	data := pageData{
		Title:      page.Title,
		Body:       template.HTML(page.Body),
		Stylesheet: template.CSS(tpl.Stylesheet),
		Macros:     template.JS(tpl.Macros),
		LiveReload: page.LiveReload,
		WatchPath:  page.WatchPath,
	}

	var buf bytes.Buffer
	if err := tpl.page.Render(&buf, data); err != nil {
		return "", terrors.NewTemplateRenderError(terrors.CodeSkeletonExecute, tpl.skeletonPath, err)
	}

	return buf.String(), nil
}

// LiveReloadScript renders the live-reload client on its own, for pages
// that are not produced from a template skeleton.
func LiveReloadScript(watchPath string) (template.HTML, error) {
	t, err := template.New(LiveReloadTemplate).Parse(liveReloadClient)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, pageData{WatchPath: watchPath}); err != nil {
		return "", err
	}

	return template.HTML(buf.String()), nil
}
