package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin/render"

	"github.com/cppla/newsboard/utils"
)

//go:embed templates
var files embed.FS

// DateFormat is the layout used by the datetimeformat template func.
const DateFormat = "2006-01-02 15:04"

// FuncMap is shared by every page.
var FuncMap = template.FuncMap{
	"datetimeformat": DatetimeFormat,
	"richtext":       RichText,
}

// RichText renders stored post bodies and news text as sanitized markup.
func RichText(s string) template.HTML {
	return template.HTML(utils.SanitizeContent(s))
}

// DatetimeFormat renders unix seconds, time.Time or an ISO string as DateFormat in UTC.
// Values it cannot interpret are printed unchanged.
func DatetimeFormat(v interface{}) string {
	switch t := v.(type) {
	case int64:
		return time.Unix(t, 0).UTC().Format(DateFormat)
	case int:
		return time.Unix(int64(t), 0).UTC().Format(DateFormat)
	case time.Time:
		return t.UTC().Format(DateFormat)
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return time.Unix(n, 0).UTC().Format(DateFormat)
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC().Format(DateFormat)
			}
		}
		return t
	default:
		return fmt.Sprint(v)
	}
}

// Renderer is a gin HTMLRender holding one template set per page, each parsed with the layout.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every page under templates/ together with layout.html.
func NewRenderer() (*Renderer, error) {
	layout, err := fs.ReadFile(files, "templates/layout.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: map[string]*template.Template{}}
	err = fs.WalkDir(files, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || path == "templates/layout.html" || !strings.HasSuffix(path, ".html") {
			return err
		}
		name := strings.TrimSuffix(strings.TrimPrefix(path, "templates/"), ".html")
		page, err := fs.ReadFile(files, path)
		if err != nil {
			return err
		}
		t, err := template.New(name).Funcs(FuncMap).Parse(string(layout))
		if err != nil {
			return fmt.Errorf("parse layout for %s: %w", name, err)
		}
		if _, err := t.Parse(string(page)); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// MustRenderer panics on template errors; templates are embedded so this only fails on a broken build.
func MustRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

// Instance implements render.HTMLRender.
func (r *Renderer) Instance(name string, data interface{}) render.Render {
	return render.HTML{Template: r.pages[name], Name: "base", Data: data}
}

// Has reports whether a page exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}
