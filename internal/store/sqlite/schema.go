package sqlite

// schema defines the full embedded-SQLite schema for the plugin discovery
// engine (spec §3). Raw-string, split on ';' and executed inside one
// transaction at open time — the same approach as the teacher's
// internal/storage/ephemeral schema (_teacherref/storage/ephemeral).
//
// plugins_fts is an external-content FTS5 table kept in sync by triggers,
// so the Store satisfies spec §4.2's "full-text projection is kept in
// sync (insert on new, replace on update, delete on remove)" without the
// indexer having to remember to do it. It indexes raw normalized tokens
// (not stems) because the fuzzy-search prefix fallback (spec §4.4) needs
// literal prefix matching against the actual word, not its stem (see
// DESIGN.md).
const schema = `
CREATE TABLE IF NOT EXISTS plugins (
    plugin_id            TEXT PRIMARY KEY,
    name                  TEXT NOT NULL,
    version               TEXT NOT NULL DEFAULT '',
    description           TEXT NOT NULL DEFAULT '',
    author_name           TEXT NOT NULL DEFAULT '',
    author_email          TEXT NOT NULL DEFAULT '',
    license               TEXT NOT NULL DEFAULT '',
    homepage              TEXT NOT NULL DEFAULT '',
    repository_url        TEXT NOT NULL DEFAULT '',
    category              TEXT NOT NULL DEFAULT '',
    tags                  TEXT NOT NULL DEFAULT '',
    keywords              TEXT NOT NULL DEFAULT '',
    readme                TEXT NOT NULL DEFAULT '',
    downloads             INTEGER NOT NULL DEFAULT 0,
    rating                REAL NOT NULL DEFAULT 0,
    rating_count          INTEGER NOT NULL DEFAULT 0,
    created_at            TEXT NOT NULL,
    updated_at            TEXT NOT NULL,
    published_at          TEXT,
    last_modified_at      TEXT,
    is_featured           INTEGER NOT NULL DEFAULT 0,
    is_deprecated         INTEGER NOT NULL DEFAULT 0,
    metadata              TEXT NOT NULL DEFAULT '{}',
    name_tokens           TEXT NOT NULL DEFAULT '',
    description_tokens    TEXT NOT NULL DEFAULT '',
    keywords_tokens       TEXT NOT NULL DEFAULT '',
    readme_tokens         TEXT NOT NULL DEFAULT '',
    tags_tokens           TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_plugins_category ON plugins(category);
CREATE INDEX IF NOT EXISTS idx_plugins_downloads ON plugins(downloads);
CREATE INDEX IF NOT EXISTS idx_plugins_rating ON plugins(rating);
CREATE INDEX IF NOT EXISTS idx_plugins_deprecated ON plugins(is_deprecated);
CREATE INDEX IF NOT EXISTS idx_plugins_published ON plugins(published_at);

CREATE VIRTUAL TABLE IF NOT EXISTS plugins_fts USING fts5(
    name_tokens, description_tokens, keywords_tokens, readme_tokens, tags_tokens,
    content='plugins', content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS plugins_ai AFTER INSERT ON plugins BEGIN
    INSERT INTO plugins_fts(rowid, name_tokens, description_tokens, keywords_tokens, readme_tokens, tags_tokens)
    VALUES (new.rowid, new.name_tokens, new.description_tokens, new.keywords_tokens, new.readme_tokens, new.tags_tokens);
END;

CREATE TRIGGER IF NOT EXISTS plugins_ad AFTER DELETE ON plugins BEGIN
    INSERT INTO plugins_fts(plugins_fts, rowid, name_tokens, description_tokens, keywords_tokens, readme_tokens, tags_tokens)
    VALUES ('delete', old.rowid, old.name_tokens, old.description_tokens, old.keywords_tokens, old.readme_tokens, old.tags_tokens);
END;

CREATE TRIGGER IF NOT EXISTS plugins_au AFTER UPDATE ON plugins BEGIN
    INSERT INTO plugins_fts(plugins_fts, rowid, name_tokens, description_tokens, keywords_tokens, readme_tokens, tags_tokens)
    VALUES ('delete', old.rowid, old.name_tokens, old.description_tokens, old.keywords_tokens, old.readme_tokens, old.tags_tokens);
    INSERT INTO plugins_fts(rowid, name_tokens, description_tokens, keywords_tokens, readme_tokens, tags_tokens)
    VALUES (new.rowid, new.name_tokens, new.description_tokens, new.keywords_tokens, new.readme_tokens, new.tags_tokens);
END;

CREATE TABLE IF NOT EXISTS term_postings (
    term        TEXT NOT NULL,
    plugin_id   TEXT NOT NULL,
    field       TEXT NOT NULL,
    tf          REAL NOT NULL,
    idf         REAL NOT NULL,
    tfidf       REAL NOT NULL,
    PRIMARY KEY (term, plugin_id, field),
    FOREIGN KEY (plugin_id) REFERENCES plugins(plugin_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_postings_plugin ON term_postings(plugin_id);
CREATE INDEX IF NOT EXISTS idx_postings_term ON term_postings(term);

CREATE TABLE IF NOT EXISTS document_frequency (
    term             TEXT PRIMARY KEY,
    document_count   INTEGER NOT NULL,
    total_documents  INTEGER NOT NULL,
    idf_score        REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS install_events (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    plugin_id            TEXT NOT NULL,
    user_id              TEXT NOT NULL DEFAULT '',
    version              TEXT NOT NULL DEFAULT '',
    installed_at         TEXT NOT NULL,
    uninstalled_at       TEXT,
    installation_source  TEXT NOT NULL DEFAULT '',
    FOREIGN KEY (plugin_id) REFERENCES plugins(plugin_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_install_events_plugin ON install_events(plugin_id);
CREATE INDEX IF NOT EXISTS idx_install_events_user ON install_events(user_id);
CREATE INDEX IF NOT EXISTS idx_install_events_installed_at ON install_events(installed_at);

CREATE TABLE IF NOT EXISTS user_plugin_membership (
    user_id       TEXT NOT NULL,
    plugin_id     TEXT NOT NULL,
    installed_at  TEXT NOT NULL,
    is_active     INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (user_id, plugin_id)
);

CREATE INDEX IF NOT EXISTS idx_membership_plugin_active ON user_plugin_membership(plugin_id, is_active);
CREATE INDEX IF NOT EXISTS idx_membership_user_active ON user_plugin_membership(user_id, is_active);

CREATE TABLE IF NOT EXISTS co_install_relationships (
    plugin_a          TEXT NOT NULL,
    plugin_b          TEXT NOT NULL,
    co_install_count  INTEGER NOT NULL,
    confidence        REAL NOT NULL,
    PRIMARY KEY (plugin_a, plugin_b)
);

CREATE INDEX IF NOT EXISTS idx_coinstall_a ON co_install_relationships(plugin_a);
CREATE INDEX IF NOT EXISTS idx_coinstall_b ON co_install_relationships(plugin_b);

CREATE TABLE IF NOT EXISTS trending (
    plugin_id        TEXT PRIMARY KEY,
    installs_24h     INTEGER NOT NULL DEFAULT 0,
    installs_7d      INTEGER NOT NULL DEFAULT 0,
    installs_30d     INTEGER NOT NULL DEFAULT 0,
    velocity_score   REAL NOT NULL DEFAULT 0,
    computed_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trending_velocity ON trending(velocity_score);

CREATE TABLE IF NOT EXISTS search_events (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    query              TEXT NOT NULL,
    filters_snapshot   TEXT NOT NULL DEFAULT '{}',
    results_count      INTEGER NOT NULL,
    clicked_plugin_id  TEXT,
    click_position     INTEGER,
    session_id         TEXT NOT NULL DEFAULT '',
    user_id            TEXT NOT NULL DEFAULT '',
    searched_at        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_search_events_query ON search_events(query);
CREATE INDEX IF NOT EXISTS idx_search_events_searched_at ON search_events(searched_at);
CREATE INDEX IF NOT EXISTS idx_search_events_session ON search_events(session_id, query, clicked_plugin_id);

CREATE TABLE IF NOT EXISTS search_gaps (
    query             TEXT PRIMARY KEY,
    results_count     INTEGER NOT NULL,
    first_seen        TEXT NOT NULL,
    last_seen         TEXT NOT NULL,
    occurrence_count  INTEGER NOT NULL DEFAULT 1,
    status            TEXT NOT NULL DEFAULT 'open'
);

CREATE TABLE IF NOT EXISTS recommendation_cache (
    cache_key       TEXT PRIMARY KEY,
    kind            TEXT NOT NULL,
    context         TEXT NOT NULL,
    context_plugin_ids TEXT NOT NULL DEFAULT ',',
    results_blob    BLOB NOT NULL,
    generated_at    TEXT NOT NULL,
    expires_at      TEXT NOT NULL,
    hit_count       INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_rec_cache_expires ON recommendation_cache(expires_at);

-- context_plugin_ids stores a ',' delimited, ',' bounded list of every
-- plugin id referenced by the cached context (sorted, deduped), so
-- invalidating by plugin id is an exact LIKE '%,<id>,%' membership test
-- rather than a substring scan of the free-form context blob (spec §9's
-- note on cache invalidation; see SPEC_FULL.md §C).
CREATE INDEX IF NOT EXISTS idx_rec_cache_plugin_ids ON recommendation_cache(context_plugin_ids);

CREATE TABLE IF NOT EXISTS categories (
    name          TEXT PRIMARY KEY,
    display_name  TEXT NOT NULL,
    description   TEXT NOT NULL DEFAULT '',
    plugin_count  INTEGER NOT NULL DEFAULT 0,
    sort_order    INTEGER NOT NULL DEFAULT 0,
    is_active     INTEGER NOT NULL DEFAULT 1
);

-- index_metadata is a small key/value table for maintenance bookkeeping
-- that doesn't warrant its own table, e.g. the stop-word fingerprint
-- recorded at the last TF-IDF refresh (spec §4.1/§9; see
-- Indexer.StopWordFingerprintStale).
CREATE TABLE IF NOT EXISTS index_metadata (
    key    TEXT PRIMARY KEY,
    value  TEXT NOT NULL
);
`
