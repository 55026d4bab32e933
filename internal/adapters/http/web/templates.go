package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/okian/voxmood/internal/domain/render"
	"github.com/okian/voxmood/internal/domain/session"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

// pageData is everything page.gohtml reads.
type pageData struct {
	CSRFField     template.HTML
	Phase         string
	Analyzing     bool
	HasResult     bool
	FileName      string
	FileSize      string
	Rejection     string
	MaxSize       string
	PollPeriod    int
	Notifications []notificationView
	View          render.View
}

type notificationView struct {
	Kind    string
	Message string
}

func toNotificationViews(ns []session.Notification) []notificationView {
	out := make([]notificationView, 0, len(ns))
	for _, n := range ns {
		out = append(out, notificationView{Kind: n.Kind.String(), Message: n.Message})
	}
	return out
}

type pageTemplate struct {
	tmpl *template.Template
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"width": func(v float64) string { return fmt.Sprintf("%.1f", v) },
		"seq": func(n int) []int {
			out := make([]int, n)
			for i := range out {
				out[i] = i
			}
			return out
		},
		"isResult":   func(m render.Mode) bool { return m == render.ModeResult },
		"isSkeleton": func(m render.Mode) bool { return m == render.ModeSkeleton },
	}
}

func parsePage() (*pageTemplate, error) {
	tmpl, err := template.New("page.gohtml").Funcs(funcMap()).ParseFS(templateFS, "templates/page.gohtml")
	if err != nil {
		return nil, WrapKind("parsePage", ErrRender, err)
	}
	return &pageTemplate{tmpl: tmpl}, nil
}

// executeHTTP renders into a buffer first so a template error never leaves
// a half written page.
func (p *pageTemplate) executeHTTP(w http.ResponseWriter, data *pageData) error {
	buf := &bytes.Buffer{}
	if err := p.tmpl.Execute(buf, data); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return WrapKind("executeHTTP", ErrRender, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, err := buf.WriteTo(w)
	return Wrap("executeHTTP", err)
}
