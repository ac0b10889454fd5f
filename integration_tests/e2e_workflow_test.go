//go:build integration
// +build integration

package integration_tests

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/conneroisu/tatum/internal/macros"
	"github.com/conneroisu/tatum/internal/renderer"
	"github.com/conneroisu/tatum/internal/scaffolding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fetch(t *testing.T, target string) (int, string) {
	t.Helper()

	resp, err := http.Get(target)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestE2E_EditReloadCycle(t *testing.T) {
	p := NewProject(t, scaffolding.BluetotTemplate)
	p.Write(t, "notes/lecture.md", "# Lecture One\n\nLet $x \\in \\R$.\n\n```diagram\nsource -> page\n```\n")

	require.NoError(t, WaitForServerReadiness(context.Background(), p.DocumentURL("notes/lecture.md"), nil))

	status, body := fetch(t, p.DocumentURL("notes/lecture.md"))
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<title>Lecture One</title>")
	assert.Contains(t, body, `$x \in \R$`)
	assert.Contains(t, body, "<svg")
	assert.Contains(t, body, "/watch?path=")

	conn := p.Watch(t, "notes/lecture.md")

	// Several quick saves collapse into one reload.
	for i := 0; i < 3; i++ {
		p.Write(t, "notes/lecture.md", "# Lecture Two\n")
		time.Sleep(10 * time.Millisecond)
	}

	msg, err := NextMessage(t, conn, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "reload", msg.Type)

	_, err = NextMessage(t, conn, 300*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, body = fetch(t, p.DocumentURL("notes/lecture.md"))
	assert.Contains(t, body, "<title>Lecture Two</title>")
}

func TestE2E_DeletedDocumentEndsSession(t *testing.T) {
	p := NewProject(t, scaffolding.DefaultTemplate)
	path := p.Write(t, "doc.md", "# Short lived\n")

	conn := p.Watch(t, "doc.md")
	require.NoError(t, os.Remove(path))

	msg, err := NextMessage(t, conn, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "lost", msg.Type)

	_, err = NextMessage(t, conn, 2*time.Second)
	assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))

	status, _ := fetch(t, p.DocumentURL("doc.md"))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestE2E_TemplateCachedForProcessLifetime(t *testing.T) {
	p := NewProject(t, scaffolding.DefaultTemplate)
	p.Write(t, "doc.md", "# Styled\n")

	_, before := fetch(t, p.DocumentURL("doc.md"))
	require.Contains(t, before, "<title>Styled</title>")

	style := filepath.Join(p.Dir, scaffolding.Dir, scaffolding.DefaultTemplate, "style.css")
	require.NoError(t, os.WriteFile(style, []byte("h1 { color: rebeccapurple }"), 0o644))

	// Document edits are picked up, template edits are not.
	p.Write(t, "doc.md", "# Restyled\n")
	_, after := fetch(t, p.DocumentURL("doc.md"))
	assert.Contains(t, after, "<title>Restyled</title>")
	assert.NotContains(t, after, "rebeccapurple")
}

func TestE2E_RenderAndMacros(t *testing.T) {
	dir := t.TempDir()
	_, err := scaffolding.Init(dir)
	require.NoError(t, err)

	tplDir := filepath.Join(dir, scaffolding.Dir, scaffolding.BluetotTemplate)
	doc := filepath.Join(dir, "doc.md")
	require.NoError(t, os.WriteFile(doc, []byte("# Sets\n\n$\\Z \\subset \\Q$\n"), 0o644))

	html, err := renderer.New(nil, nil, nil).RenderDoc(context.Background(), doc, false, tplDir)
	require.NoError(t, err)
	assert.Contains(t, html, `"\\Z": "\\mathbb{Z}"`)
	assert.NotContains(t, html, "/watch?path=")

	defs, err := macros.Compile(tplDir)
	require.NoError(t, err)
	assert.Len(t, defs, 7)
	assert.FileExists(t, filepath.Join(tplDir, macros.OutputFile))
}
