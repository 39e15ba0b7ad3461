package types

import "time"

// InstallEvent is an append-only install/uninstall record (spec §3).
type InstallEvent struct {
	ID                 int64
	PluginID           string
	UserID             string
	Version            string
	InstalledAt        time.Time
	UninstalledAt      *time.Time
	InstallationSource string
}

// Membership is the denormalized user-plugin active install state that
// collaborative queries read instead of scanning install history (spec §3
// "User-plugin membership").
type Membership struct {
	UserID      string
	PluginID    string
	InstalledAt time.Time
	IsActive    bool
}

// CoInstallRelationship is a canonically-ordered undirected pair with its
// co-install count and Jaccard confidence (spec §3).
type CoInstallRelationship struct {
	PluginA        string
	PluginB        string
	CoInstallCount int64
	Confidence     float64
}

// TrendingRecord holds per-plugin install-velocity windows (spec §3).
type TrendingRecord struct {
	PluginID       string
	Installs24h    int64
	Installs7d     int64
	Installs30d    int64
	VelocityScore  float64
	ComputedAt     time.Time
}

// SearchEvent records one search and, if the caller later reports a click,
// the click outcome (spec §3).
type SearchEvent struct {
	ID                int64
	Query             string
	FiltersSnapshot   string
	ResultsCount      int
	ClickedPluginID   *string
	ClickPosition     *int
	SessionID         string
	UserID            string
	SearchedAt        time.Time
}

// GapStatus is the curation state of a search-gap record.
type GapStatus string

const (
	GapOpen      GapStatus = "open"
	GapAddressed GapStatus = "addressed"
	GapIgnored   GapStatus = "ignored"
)

// SearchGap tracks a zero-result query for curation (spec §3).
type SearchGap struct {
	Query           string
	ResultsCount    int
	FirstSeen       time.Time
	LastSeen        time.Time
	OccurrenceCount int64
	Status          GapStatus
}

// CategoryMeta is the display/ordering metadata for a category (spec §3).
type CategoryMeta struct {
	Name        string
	DisplayName string
	Description string
	PluginCount int64
	SortOrder   int
	IsActive    bool
}
