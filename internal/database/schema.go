package database

// GetSchema returns the full SQL schema for the application database.
func GetSchema() string {
	return `
-- Users table (deactivated, never hard-deleted for audit trail integrity)
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT NOT NULL COLLATE NOCASE UNIQUE,
    name TEXT NOT NULL,
    role TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    is_temporary_password INTEGER NOT NULL DEFAULT 0,
    is_active INTEGER NOT NULL DEFAULT 1,
    is_bootstrap INTEGER NOT NULL DEFAULT 0,
    last_login_at INTEGER,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    created_by INTEGER,
    FOREIGN KEY (created_by) REFERENCES users(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email);
CREATE INDEX IF NOT EXISTS idx_users_active ON users(is_active);
CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);

-- Sessions table (opaque tokens, hashed)
CREATE TABLE IF NOT EXISTS sessions (
    token_hash TEXT PRIMARY KEY,
    token_prefix TEXT NOT NULL,
    user_id INTEGER NOT NULL,
    ip_address TEXT NOT NULL,
    user_agent TEXT,
    created_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);

-- Papers table (archived via status, removed via is_active, never hard-deleted)
CREATE TABLE IF NOT EXISTS papers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    abstract TEXT NOT NULL DEFAULT '',
    authors_json TEXT NOT NULL DEFAULT '[]',  -- JSON array of author names
    tags_json TEXT NOT NULL DEFAULT '[]',     -- JSON array of tags
    confidentiality TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'draft',
    file_name TEXT NOT NULL,                  -- sanitized original filename
    blob_key TEXT NOT NULL,                   -- key in blob storage
    file_size INTEGER NOT NULL,               -- bytes
    checksum TEXT NOT NULL DEFAULT '',        -- blake3 of the uploaded bytes
    version INTEGER NOT NULL DEFAULT 1,       -- bumped on metadata updates
    uploaded_by INTEGER NOT NULL,
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (uploaded_by) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_papers_uploaded_by ON papers(uploaded_by);
CREATE INDEX IF NOT EXISTS idx_papers_active ON papers(is_active);
CREATE INDEX IF NOT EXISTS idx_papers_confidentiality ON papers(confidentiality);
CREATE INDEX IF NOT EXISTS idx_papers_status ON papers(status);
CREATE INDEX IF NOT EXISTS idx_papers_created ON papers(created_at DESC);

-- Per-paper access grants. The partial unique index allows a revoked grant to
-- be re-created while keeping at most one active grant per (paper, user) pair.
CREATE TABLE IF NOT EXISTS paper_grants (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    paper_id INTEGER NOT NULL,
    user_id INTEGER NOT NULL,
    granted_by INTEGER NOT NULL,
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL,
    revoked_at INTEGER,
    revoked_by INTEGER,
    FOREIGN KEY (paper_id) REFERENCES papers(id),
    FOREIGN KEY (user_id) REFERENCES users(id),
    FOREIGN KEY (granted_by) REFERENCES users(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_paper_grants_active
    ON paper_grants(paper_id, user_id) WHERE is_active = 1;
CREATE INDEX IF NOT EXISTS idx_paper_grants_user ON paper_grants(user_id);
CREATE INDEX IF NOT EXISTS idx_paper_grants_paper ON paper_grants(paper_id);

-- Audit log table (append-only for immutability)
CREATE TABLE IF NOT EXISTS audit_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp INTEGER NOT NULL,
    user_id INTEGER,
    user_email TEXT NOT NULL DEFAULT '',
    action TEXT NOT NULL,
    status TEXT NOT NULL,
    resource_type TEXT NOT NULL DEFAULT '',
    resource_id TEXT NOT NULL DEFAULT '',
    ip_address TEXT NOT NULL,
    user_agent TEXT,
    details_json TEXT,
    created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);

CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_log(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_log(action);
CREATE INDEX IF NOT EXISTS idx_audit_status ON audit_log(status);
CREATE INDEX IF NOT EXISTS idx_audit_user ON audit_log(user_id);
CREATE INDEX IF NOT EXISTS idx_audit_user_timestamp ON audit_log(user_id, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_log(resource_type, resource_id);
`
}

// GetFTSSchema returns the full-text search DDL. It requires an SQLite build
// with the FTS5 module (build with -tags sqlite_fts5); ApplySchema skips it
// when the module is missing and paper search falls back to substring
// matching.
func GetFTSSchema() string {
	return `
-- Full-text index over paper metadata, kept in sync by triggers
CREATE VIRTUAL TABLE IF NOT EXISTS papers_fts USING fts5(
    title, abstract, authors, tags,
    content='papers', content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS papers_fts_insert AFTER INSERT ON papers BEGIN
    INSERT INTO papers_fts(rowid, title, abstract, authors, tags)
    VALUES (new.id, new.title, new.abstract, new.authors_json, new.tags_json);
END;

CREATE TRIGGER IF NOT EXISTS papers_fts_delete AFTER DELETE ON papers BEGIN
    INSERT INTO papers_fts(papers_fts, rowid, title, abstract, authors, tags)
    VALUES ('delete', old.id, old.title, old.abstract, old.authors_json, old.tags_json);
END;

CREATE TRIGGER IF NOT EXISTS papers_fts_update AFTER UPDATE ON papers BEGIN
    INSERT INTO papers_fts(papers_fts, rowid, title, abstract, authors, tags)
    VALUES ('delete', old.id, old.title, old.abstract, old.authors_json, old.tags_json);
    INSERT INTO papers_fts(rowid, title, abstract, authors, tags)
    VALUES (new.id, new.title, new.abstract, new.authors_json, new.tags_json);
END;
`
}
