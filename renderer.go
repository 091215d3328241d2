package mosaic

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"math"
	"path"

	"github.com/maxhully/mosaic/avatargen"
	"github.com/oxtoacart/bpool"
)

const baseTemplateName = "base.html"

//go:embed templates/*.html
var templateFS embed.FS

// Renderer executes page templates inside the base.html layout. Pages render into a
// pooled buffer first, so a template error turns into a clean 500 rather than half a
// page.
type Renderer struct {
	pages   map[string]*template.Template
	bufpool *bpool.BufferPool
}

// NewRenderer parses every page under templates/. Templates can call avatarWidth and
// avatarHeight to size <img> tags to match the generated PNGs.
func NewRenderer(avatar avatargen.Config) (*Renderer, error) {
	funcs := template.FuncMap{
		"avatarWidth":  func() int { return int(math.Round(avatar.Width)) },
		"avatarHeight": func() int { return int(math.Round(avatar.Height)) },
	}
	base, err := template.New(baseTemplateName).Funcs(funcs).ParseFS(templateFS, "templates/"+baseTemplateName)
	if err != nil {
		return nil, err
	}
	paths, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{
		pages:   make(map[string]*template.Template, len(paths)),
		bufpool: bpool.NewBufferPool(48),
	}
	for _, p := range paths {
		name := path.Base(p)
		if name == baseTemplateName {
			continue
		}
		page, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if page, err = page.ParseFS(templateFS, p); err != nil {
			return nil, fmt.Errorf("couldn't parse %s: %w", name, err)
		}
		r.pages[name] = page
	}
	return r, nil
}

func (r *Renderer) ExecuteTemplate(w io.Writer, name string, data any) error {
	page, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("no template named %q", name)
	}
	buf := r.bufpool.Get()
	defer r.bufpool.Put(buf)
	if err := page.ExecuteTemplate(buf, baseTemplateName, data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}
