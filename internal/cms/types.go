package cms

import "encoding/json"

// Site is one tenant of the upstream CMS ("team" in its API vocabulary).
type Site struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Domain string `json:"domain"`
	Status string `json:"status"`
}

type Collection struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	Description  string          `json:"description,omitempty"`
	Options      json.RawMessage `json:"options,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	ItemsPerPage int             `json:"items_per_page"`
	EntriesCount int             `json:"entries_count,omitempty"`
}

type Author struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

type Image struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url"`
	Alt  string `json:"alt,omitempty"`
}

type Tag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// EntryMeta carries per-entry SEO overrides.
type EntryMeta struct {
	SEOTitle       string `json:"seo_title,omitempty"`
	SEODescription string `json:"seo_description,omitempty"`
	OGImage        string `json:"og_image,omitempty"`
}

// Entry is a single published content item. Data holds the collection
// specific payload (content blocks, excerpt, category, ...), decoded
// lazily by the caller.
type Entry struct {
	ID            int             `json:"id"`
	Title         string          `json:"title"`
	Slug          string          `json:"slug"`
	Excerpt       string          `json:"excerpt,omitempty"`
	Status        string          `json:"status,omitempty"`
	Author        *Author         `json:"author,omitempty"`
	FeaturedImage *Image          `json:"featured_image,omitempty"`
	Tags          []Tag           `json:"tags,omitempty"`
	Meta          *EntryMeta      `json:"meta,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
	PublishedAt   string          `json:"published_at,omitempty"`
	CreatedAt     string          `json:"created_at,omitempty"`
	UpdatedAt     string          `json:"updated_at,omitempty"`
}

// EntryData is the common shape of Entry.Data for block-based collections.
type EntryData struct {
	Content       []Block  `json:"content,omitempty"`
	ExcerptField  string   `json:"excerpt,omitempty"`
	Category      string   `json:"category,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	FeaturedImage string   `json:"featured_image,omitempty"`
	ReadingTime   int      `json:"reading_time,omitempty"`
}

// Block is one content block. Data stays raw; each renderer decodes the
// shape it understands.
type Block struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type NavigationItem struct {
	ID       int              `json:"id,omitempty"`
	ParentID *int             `json:"parent_id,omitempty"`
	Title    string           `json:"title"`
	URL      string           `json:"url"`
	Target   string           `json:"target,omitempty"`
	Order    int              `json:"order,omitempty"`
	Children []NavigationItem `json:"children,omitempty"`
}

type Navigation struct {
	ID       int              `json:"id"`
	Name     string           `json:"name"`
	Slug     string           `json:"slug"`
	Location string           `json:"location"`
	Items    []NavigationItem `json:"items,omitempty"`
}

type FormFieldOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type FormFieldConfig struct {
	Name        string            `json:"name"`
	Label       string            `json:"label"`
	Placeholder string            `json:"placeholder,omitempty"`
	Options     []FormFieldOption `json:"options,omitempty"`
	Multiple    bool              `json:"multiple,omitempty"`
}

type FormFieldValidation struct {
	IsRequired bool   `json:"is_required,omitempty"`
	MinLength  int    `json:"min_length,omitempty"`
	MaxLength  int    `json:"max_length,omitempty"`
	Pattern    string `json:"pattern,omitempty"`
}

type FormField struct {
	Type       string              `json:"type"`
	Config     FormFieldConfig     `json:"config"`
	Validation FormFieldValidation `json:"validation"`
}

type Form struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	Key         string      `json:"key"`
	Description string      `json:"description,omitempty"`
	Fields      []FormField `json:"fields"`
	IsActive    bool        `json:"is_active"`
	CreatedAt   string      `json:"created_at,omitempty"`
	UpdatedAt   string      `json:"updated_at,omitempty"`
}

// FormSubmission is the payload forwarded to the CMS form endpoint.
type FormSubmission struct {
	Data     map[string]any `json:"data"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type FormSubmissionResult struct {
	SubmissionID int `json:"submission_id"`
}

type LinkPageLink struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Icon        string `json:"icon,omitempty"`
	DisplayMode string `json:"display_mode,omitempty"` // icon_text | icon_only | text_only
}

type LinkPageSocialLink struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
	Icon     string `json:"icon,omitempty"`
}

type LinkPageSettings struct {
	Theme           string `json:"theme,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
	TextColor       string `json:"text_color,omitempty"`
	ButtonStyle     string `json:"button_style,omitempty"`
	ShowAvatar      *bool  `json:"show_avatar,omitempty"`
	ShowDescription *bool  `json:"show_description,omitempty"`
}

type LinkPage struct {
	ID          int                  `json:"id"`
	Key         string               `json:"key"`
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Avatar      string               `json:"avatar,omitempty"`
	Links       []LinkPageLink       `json:"links"`
	SocialLinks []LinkPageSocialLink `json:"social_links"`
	Settings    LinkPageSettings     `json:"settings"`
}

// EntryParams narrows an entry listing. Zero values are omitted from the
// query string.
type EntryParams struct {
	Status   string
	PerPage  int
	Page     int
	Category string
	Tag      string
	Search   string
	Sort     string // created_at | updated_at | title | published_at
	Order    string // asc | desc
}
