package site

import (
	"bytes"
	"encoding/xml"
	"strings"
	"time"
)

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

type sitemapSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// renderSitemap builds sitemap.xml for all pages, anchored at the
// configured site URL.
func renderSitemap(siteURL string, pages []*Page) []byte {
	base := strings.TrimSuffix(siteURL, "/")
	now := time.Now().Format("2006-01-02")

	set := sitemapSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, p := range pages {
		set.URLs = append(set.URLs, sitemapURL{Loc: base + p.URL, LastMod: now})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	_ = enc.Encode(set)
	buf.WriteByte('\n')
	return buf.Bytes()
}
