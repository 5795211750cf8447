package content

import (
	"bytes"
	"fmt"
	"html"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Renderer converts markdown to sanitised HTML and strips markup from
// user-submitted text.
type Renderer struct {
	md     goldmark.Markdown
	ugc    *bluemonday.Policy
	strict *bluemonday.Policy
}

// NewRenderer creates a Renderer with GitHub-flavoured markdown.
func NewRenderer() *Renderer {
	ugc := bluemonday.UGCPolicy()
	ugc.RequireNoFollowOnLinks(true)
	ugc.AddTargetBlankToFullyQualifiedLinks(true)

	return &Renderer{
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		ugc:    ugc,
		strict: bluemonday.StrictPolicy(),
	}
}

// Markdown renders src and removes anything the UGC policy does not allow.
func (r *Renderer) Markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return template.HTML(r.ugc.SanitizeBytes(buf.Bytes())), nil
}

// Sanitize applies the UGC policy to an HTML fragment.
func (r *Renderer) Sanitize(fragment string) string {
	return r.ugc.Sanitize(fragment)
}

// StripTags removes all markup, leaving plain unescaped text. Templates
// escape it again on output.
func (r *Renderer) StripTags(s string) string {
	return html.UnescapeString(r.strict.Sanitize(s))
}
