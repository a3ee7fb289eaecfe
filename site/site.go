// Package site renders the static pages published alongside a snapshot and
// the admin page served by the gateway.
package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/fwojciec/docindex"
)

// Page names as published in the output directory.
const (
	IndexPage   = "index.html"
	ViewerPage  = "viewer.html"
	SitemapFile = "sitemap.xml"
)

const htmlContentType = "text/html; charset=utf-8"

//go:embed templates/*.tmpl static/*
var assets embed.FS

// Ensure Renderer implements docindex.SiteRenderer at compile time.
var _ docindex.SiteRenderer = (*Renderer)(nil)

// Renderer renders the index and viewer pages from embedded templates.
type Renderer struct {
	templates *template.Template
	viewer    []byte
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(assets, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	viewer, err := assets.ReadFile("static/" + ViewerPage)
	if err != nil {
		return nil, fmt.Errorf("read viewer: %w", err)
	}
	return &Renderer{templates: tmpl, viewer: viewer}, nil
}

type indexData struct {
	Organization string
	Mode         string
	GeneratedAt  string
	Digest       string
	Snapshot     string
	Repositories int
	Files        int
}

// Render returns index.html, viewer.html and, when meta carries a public
// URL, sitemap.xml.
func (r *Renderer) Render(meta docindex.SnapshotMeta, snap docindex.Snapshot) ([]docindex.File, error) {
	var buf bytes.Buffer
	err := r.templates.ExecuteTemplate(&buf, "index.html.tmpl", indexData{
		Organization: meta.Organization,
		Mode:         Mode(meta.FastMode),
		GeneratedAt:  meta.GeneratedAt.UTC().Format(docindex.TimestampFormat),
		Digest:       meta.Digest,
		Snapshot:     docindex.SnapshotFileName,
		Repositories: len(snap),
		Files:        snap.FileCount(),
	})
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", IndexPage, err)
	}

	files := []docindex.File{
		{Name: IndexPage, ContentType: htmlContentType, Data: buf.Bytes()},
		{Name: ViewerPage, ContentType: htmlContentType, Data: r.viewer},
	}

	if meta.PublicURL != "" {
		data, err := Sitemap(meta, snap)
		if err != nil {
			return nil, err
		}
		files = append(files, docindex.File{Name: SitemapFile, ContentType: "application/xml", Data: data})
	}
	return files, nil
}

// AdminPage is the data shown on the admin page.
type AdminPage struct {
	Organization  string
	RequireSecret bool
	State         string
	LastRun       *docindex.RunResult
}

// RenderAdmin writes the admin page.
func (r *Renderer) RenderAdmin(w io.Writer, page AdminPage) error {
	if page.State == "" {
		page.State = "idle"
	}
	return r.templates.ExecuteTemplate(w, "admin.html.tmpl", page)
}

// Mode returns the label of the indexing mode.
func Mode(fast bool) string {
	if fast {
		return "fast"
	}
	return "full"
}
