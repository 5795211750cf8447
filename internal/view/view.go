package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"finance-hub/internal/content"
	"finance-hub/internal/data"
	"finance-hub/internal/session"
)

// View represents a collection of parsed HTML templates.
type View struct {
	templates map[string]*template.Template
}

var kindLabels = map[data.Kind]string{
	data.KindOffer:   "Предложения",
	data.KindArticle: "Статьи",
	data.KindForum:   "Форум",
	data.KindNews:    "Новости",
}

// Funcs returns the helpers available to every template.
func Funcs(text *content.Renderer) template.FuncMap {
	return template.FuncMap{
		"blocks":      content.Parse,
		"readingTime": content.ReadingTime,
		"truncate": func(s string, n int) string {
			return content.Truncate(s, n)
		},
		"markdown": func(src string) template.HTML {
			out, err := text.Markdown(src)
			if err != nil {
				return template.HTML(template.HTMLEscapeString(src))
			}
			return out
		},
		"date":     func(t any) string { return formatTime(t, "02.01.2006") },
		"datetime": func(t any) string { return formatTime(t, "02.01.2006 15:04") },
		"money":    func(v float64) string { return fmt.Sprintf("%.2f", v) },
		"rating":   func(v float64) string { return fmt.Sprintf("%.1f", v) },
		"num":      func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
		"kinds":    func() []data.Kind { return data.Kinds },
		"kindLabel": func(k data.Kind) string {
			if l, ok := kindLabels[k]; ok {
				return l
			}
			return string(k)
		},
		"fieldError": func(errs map[string]string, name string) string {
			return errs[name]
		},
	}
}

func formatTime(v any, layout string) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format(layout)
	case *time.Time:
		if t == nil || t.IsZero() {
			return ""
		}
		return t.Format(layout)
	}
	return ""
}

// New creates a new View by parsing all templates from the given filesystem.
func New(templateFS fs.FS, text *content.Renderer) (*View, error) {
	v := &View{
		templates: make(map[string]*template.Template),
	}

	// First, get all the layout files
	layouts, err := fs.Glob(templateFS, "templates/layouts/*.html")
	if err != nil {
		return nil, err
	}

	// Then, get all the page files
	pages, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}

	funcs := Funcs(text)
	// For each page, parse it with the layout files
	for _, page := range pages {
		files := append(append([]string{}, layouts...), page)
		// The name of the template is the base name of the page file
		name := filepath.Base(page)
		ts, err := template.New(name).Funcs(funcs).ParseFS(templateFS, files...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		v.templates[name] = ts
	}

	return v, nil
}

// Render executes a specific template by name. The signed-in user and the
// site settings are added to data.
func (v *View) Render(w io.Writer, r *http.Request, name string, data map[string]interface{}) error {
	ts, ok := v.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	if data == nil {
		data = make(map[string]interface{})
	}
	data["User"] = session.GetUserInfo(r.Context())
	data["Site"] = SettingsFrom(r.Context())
	data["Path"] = r.URL.Path
	data["Year"] = time.Now().Year()

	// Execute the template into a buffer first to catch any errors
	// before writing to the response writer.
	buf := new(bytes.Buffer)
	if err := ts.Execute(buf, data); err != nil {
		return err
	}

	_, err := buf.WriteTo(w)
	return err
}
