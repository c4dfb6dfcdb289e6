package sitehandler

import (
	"html/template"
	"time"

	"github.com/rushcms/rush-web/internal/cms"
)

type pageMeta struct {
	Title       string
	Description string
	Canonical   string
	Image       string
	Type        string // og:type, "website" unless a page overrides
}

type navLink struct {
	Title  string
	URL    string
	Target string
}

type basePage struct {
	SiteName string
	Meta     pageMeta
	Nav      []navLink
	Year     int
}

type entryView struct {
	Title            string
	URL              string
	Excerpt          string
	Image            string
	PublishedAt      string
	PublishedDisplay string
	Tags             []cms.Tag
}

type homePage struct {
	basePage
	Collections []cms.Collection
	Recent      []entryView
}

type collectionPage struct {
	basePage
	Collection cms.Collection
	BasePath   string
	Entries    []entryView
	Query      string
	Category   string
	PrevURL    string
	NextURL    string
}

type entryPage struct {
	basePage
	Collection       cms.Collection
	Entry            cms.Entry
	Author           *cms.Author
	FeaturedImage    *cms.Image
	Content          template.HTML
	Tags             []cms.Tag
	PublishedAt      string
	PublishedDisplay string
	ReadingTime      int
	ShareURL         string
}

type tagPage struct {
	basePage
	TagName string
	Entries []entryView
}

type linksPage struct {
	basePage
	Page            cms.LinkPage
	Theme           string
	ButtonStyle     string
	ShowAvatar      bool
	ShowDescription bool
}

type contactPage struct {
	basePage
	FormAvailable bool
	Form          cms.Form
	SiteSlug      string
}

type notFoundPage struct {
	basePage
}

// formatDate renders an upstream RFC3339 timestamp for display. Anything
// unparseable comes back as its date prefix so a bad timestamp never
// hides an entry.
func formatDate(s string) string {
	if s == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format("January 2, 2006")
	}
	if len(s) >= 10 {
		return s[:10]
	}
	return s
}

func entryViews(entries []cms.Entry, basePath string) []entryView {
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		v := entryView{
			Title:            e.Title,
			URL:              basePath + "/" + e.Slug,
			Excerpt:          e.Excerpt,
			PublishedAt:      e.PublishedAt,
			PublishedDisplay: formatDate(e.PublishedAt),
			Tags:             e.Tags,
		}
		if e.FeaturedImage != nil {
			v.Image = e.FeaturedImage.URL
		}
		out = append(out, v)
	}
	return out
}
