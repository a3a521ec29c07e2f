package templates

import (
	"bytes"
	"embed"
	"fmt"
	htmpl "html/template"
	"io"
	"io/fs"
	"reflect"
	"strings"
	"sync"
	texttpl "text/template"
	"time"
)

//go:embed *.tmpl
var FS embed.FS

// defaultFn supports pipe usage: {{ .Value | default "Fallback" }}
func defaultFn(fallback any, value any) any {
	switch x := value.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return fallback
		}
		return x
	case nil:
		return fallback
	default:
		rv := reflect.ValueOf(value)
		if !rv.IsValid() || rv.IsZero() {
			return fallback
		}
		return value
	}
}

func baseFuncs() map[string]any {
	return map[string]any{
		"now":        func() time.Time { return time.Now().UTC() },
		"formatTime": func(t time.Time, layout string) string { return t.Format(layout) },
		"upper":      strings.ToUpper,
		"default":    defaultFn,
	}
}

var (
	htmlFuncMap = htmpl.FuncMap(baseFuncs())
	textFuncMap = texttpl.FuncMap(baseFuncs())
)

// Template names, one per adoption event.
const (
	AdoptionRequested = "adoption_requested"
	AdoptionApproved  = "adoption_approved"
	AdoptionRejected  = "adoption_rejected"
	AdoptionCancelled = "adoption_cancelled"
	AdoptionCompleted = "adoption_completed"
)

type executor interface {
	ExecuteTemplate(w io.Writer, name string, data any) error
}

// parsed caches templates by file name; the embedded FS never changes.
var parsed sync.Map

func load(filename string, isHTML bool) (executor, string, error) {
	entry := "layout"
	if !isHTML {
		entry = filename
	}
	if t, ok := parsed.Load(filename); ok {
		return t.(executor), entry, nil
	}
	var (
		t   executor
		err error
	)
	if isHTML {
		t, err = htmpl.New(filename).Funcs(htmlFuncMap).ParseFS(FS, filename, "layout.html.tmpl")
	} else {
		t, err = texttpl.New(filename).Funcs(textFuncMap).ParseFS(FS, filename)
	}
	if err != nil {
		return nil, "", fmt.Errorf("parse %q: %w", filename, err)
	}
	actual, _ := parsed.LoadOrStore(filename, t)
	return actual.(executor), entry, nil
}

// renderFile renders one embedded template. HTML bodies are wrapped in layout.html.tmpl.
func renderFile(filename string, isHTML bool, data any) (string, error) {
	t, entry, err := load(filename, isHTML)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, entry, data); err != nil {
		return "", fmt.Errorf("exec %q: %w", filename, err)
	}
	return buf.String(), nil
}

// Known reports whether all three templates exist for name.
func Known(name string) bool {
	for _, suffix := range []string{".subject.tmpl", ".text.tmpl", ".html.tmpl"} {
		if _, err := fs.Stat(FS, name+suffix); err != nil {
			return false
		}
	}
	return true
}

// Render renders <name>.subject.tmpl, <name>.text.tmpl and <name>.html.tmpl.
func Render(name string, data any) (subject string, text string, html string, err error) {
	subject, err = renderFile(name+".subject.tmpl", false, data)
	if err != nil {
		return "", "", "", err
	}
	text, err = renderFile(name+".text.tmpl", false, data)
	if err != nil {
		return "", "", "", err
	}
	html, err = renderFile(name+".html.tmpl", true, data)
	if err != nil {
		return "", "", "", err
	}
	return strings.TrimSpace(subject), text, html, nil
}
