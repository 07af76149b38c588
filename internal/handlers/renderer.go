package handlers

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin/render"
)

// Pages rendered by the handlers. Each is combined with base.html.
var Pages = []string{
	"login.html",
	"register.html",
	"dashboard.html",
	"list.html",
	"form.html",
	"error.html",
}

// TemplateFuncs are available to every page.
var TemplateFuncs = template.FuncMap{
	"lower": strings.ToLower,
}

// LoadTemplates parses one template set per page from fsys.
func LoadTemplates(fsys fs.FS, dir string, pages ...string) (map[string]*template.Template, error) {
	out := make(map[string]*template.Template, len(pages))
	for _, name := range pages {
		tmpl, err := template.New(name).Funcs(TemplateFuncs).ParseFS(fsys, dir+"/"+name, dir+"/base.html")
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
		out[name] = tmpl
	}
	return out, nil
}

// HTMLRenderer keeps a separate template set for each page.
type HTMLRenderer struct {
	Templates map[string]*template.Template
}

// Instance implements render.HTMLRender.
func (r *HTMLRenderer) Instance(name string, data interface{}) render.Render {
	tmpl, ok := r.Templates[name]
	if !ok {
		return missingTemplate(name)
	}
	return render.HTML{
		Template: tmpl,
		Data:     data,
	}
}

type missingTemplate string

func (m missingTemplate) Render(http.ResponseWriter) error {
	return fmt.Errorf("template %q not loaded", string(m))
}

func (m missingTemplate) WriteContentType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
}
