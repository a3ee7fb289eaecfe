package site

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/docindex"
)

const sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// Sitemap builds a sitemap listing the index page and a viewer URL for
// every Markdown file of the snapshot.
func Sitemap(meta docindex.SnapshotMeta, snap docindex.Snapshot) ([]byte, error) {
	base, err := url.Parse(meta.PublicURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, docindex.Errorf(docindex.EINVALID, "invalid public URL %q", meta.PublicURL)
	}
	root := strings.TrimSuffix(base.String(), "/") + "/"
	lastmod := meta.GeneratedAt.UTC().Format("2006-01-02")

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	urlset := doc.CreateElement("urlset")
	urlset.CreateAttr("xmlns", sitemapNamespace)

	addURL := func(loc string) {
		u := urlset.CreateElement("url")
		u.CreateElement("loc").SetText(loc)
		u.CreateElement("lastmod").SetText(lastmod)
	}

	addURL(root + IndexPage)
	for _, name := range snap.Names() {
		entry := snap[name]
		for _, p := range entry.Paths {
			if !docindex.IsMarkdown(p) {
				continue
			}
			addURL(root + ViewerPage + "?file=" + url.QueryEscape(RawPath(meta.Organization, name, entry.Branch, p)))
		}
	}

	doc.Indent(2)
	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("write sitemap: %w", err)
	}
	return data, nil
}

// RawPath returns the gateway path that proxies a file's raw content.
func RawPath(org, repo, branch, path string) string {
	segs := strings.Split(path, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return "/raw/" + url.PathEscape(org) + "/" + url.PathEscape(repo) + "/" + url.PathEscape(branch) + "/" + strings.Join(segs, "/")
}
