// Package types holds the data-model structs shared by every engine
// package: plugins, postings, install/search events, relationships,
// trending, cache entries, and categories (spec §3).
package types

import "time"

// Category enumerates the recognized plugin categories.
type Category string

const (
	CategoryAgents    Category = "agents"
	CategorySkills    Category = "skills"
	CategoryCommands  Category = "commands"
	CategoryWorkflows Category = "workflows"
	CategoryHooks     Category = "hooks"
	CategoryTemplates Category = "templates"
	CategoryTools     Category = "tools"
)

// ValidCategories lists every recognized category value.
var ValidCategories = []Category{
	CategoryAgents, CategorySkills, CategoryCommands, CategoryWorkflows,
	CategoryHooks, CategoryTemplates, CategoryTools,
}

// IsValid reports whether c is one of the enumerated categories.
func (c Category) IsValid() bool {
	for _, v := range ValidCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Plugin is the primary entity: a plugin manifest as ingested by the
// indexer (spec §3 "Plugin record").
type Plugin struct {
	PluginID       string
	Name           string
	Version        string
	Description    string
	AuthorName     string
	AuthorEmail    string
	License        string
	Homepage       string
	RepositoryURL  string
	Category       Category
	Tags           []string
	Keywords       string
	README         string
	Downloads      int64
	Rating         float64
	RatingCount    int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PublishedAt    *time.Time
	LastModifiedAt *time.Time
	IsFeatured     bool
	IsDeprecated   bool
	Metadata       string
}

// Eligible reports whether p can appear in recommendation and
// default-visible search results (spec §3 invariant).
func (p Plugin) Eligible() bool {
	return !p.IsDeprecated
}

// TermPosting is one (term, plugin, field) row with its tf/idf/tfidf
// weights (spec §3 "Term-posting"). Term is a stem, not a raw token —
// the TF-IDF computation collapses morphological variants (spec §4.1's
// stemmer purpose); the separate full-text backend lookup in the Store
// operates on raw tokens instead, for literal/prefix matching (see
// DESIGN.md).
type TermPosting struct {
	Term        string
	PluginID    string
	Field       Field
	TF          float64
	IDF         float64
	TFIDF       float64
}

// Field enumerates the plugin fields the indexer tokenizes separately.
type Field string

const (
	FieldName        Field = "name"
	FieldDescription Field = "description"
	FieldKeywords    Field = "keywords"
	FieldREADME      Field = "readme"
	FieldTags        Field = "tags"
)

// AllFields lists every field the indexer maintains postings for.
var AllFields = []Field{FieldName, FieldDescription, FieldKeywords, FieldREADME, FieldTags}

// DocumentFrequency is the per-term aggregate backing idf (spec §3).
type DocumentFrequency struct {
	Term            string
	DocumentCount   int64
	TotalDocuments  int64
	IDFScore        float64
}
