package server

import (
	"html/template"
	"net/url"
	"strconv"

	"github.com/a-h/templ"
	terrors "github.com/conneroisu/tatum/internal/errors"
)

//go:generate templ generate

type errorView struct {
	Status int
	Doc    string
	Err    error
	// Reload is the live-reload client, empty when it could not be built.
	Reload template.HTML
}

func (v errorView) kind() string {
	return string(terrors.KindOf(v.Err))
}

func (v errorView) title() string {
	return v.kind() + ": " + v.Doc
}

func (v errorView) heading() string {
	return strconv.Itoa(v.Status) + " " + v.kind()
}

func (v errorView) message() string {
	return v.Err.Error()
}

func (v errorView) hint() string {
	return terrors.Hint(v.Err)
}

func (v errorView) reload() templ.Component {
	return templ.Raw(string(v.Reload))
}

func documentHref(doc string) templ.SafeURL {
	return templ.SafeURL("/?path=" + url.QueryEscape(doc))
}
