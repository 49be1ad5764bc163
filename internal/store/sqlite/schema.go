package sqlite

// schema is the full DDL for a freshly-created persistent.sqlite: one
// big idempotent CREATE TABLE IF NOT EXISTS script run before the ordered
// migration steps advance a fresh database from version 0 to the current
// version.
const schema = `
-- KeyEntry: one row per logical key.
CREATE TABLE IF NOT EXISTS keyentry (
    id INTEGER PRIMARY KEY,
    key_type INTEGER NOT NULL,
    scope_kind INTEGER NOT NULL,
    namespace INTEGER NOT NULL,
    alias TEXT,
    state INTEGER NOT NULL,
    km_uuid BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_keyentry_state ON keyentry(state);
CREATE UNIQUE INDEX IF NOT EXISTS idx_keyentry_live_alias
    ON keyentry(key_type, scope_kind, namespace, alias)
    WHERE state = 1;

-- BlobEntry: physical blob bytes, keyed by owning key.
-- owning key_id may be the unassigned sentinel (-1) for staged legacy
-- imports (set_deleted_blob).
CREATE TABLE IF NOT EXISTS blobentry (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    subcomponent INTEGER NOT NULL,
    key_id INTEGER NOT NULL,
    blob BLOB NOT NULL,
    state INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_blobentry_subcomponent_state ON blobentry(subcomponent, state);
CREATE INDEX IF NOT EXISTS idx_blobentry_key ON blobentry(key_id);

-- BlobMetaData: one row per (blob id, tag).
CREATE TABLE IF NOT EXISTS blobmetadata (
    blob_id INTEGER NOT NULL,
    tag INTEGER NOT NULL,
    int_value INTEGER,
    blob_value BLOB,
    PRIMARY KEY (blob_id, tag)
);

-- KeyParameter: multiple rows per key; tag UsageCountLimit is mutable.
CREATE TABLE IF NOT EXISTS keyparameter (
    key_id INTEGER NOT NULL,
    tag INTEGER NOT NULL,
    int_value INTEGER,
    blob_value BLOB,
    security_level INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (key_id, tag, security_level)
);

CREATE INDEX IF NOT EXISTS idx_keyparameter_key ON keyparameter(key_id);

-- KeyMetaData: one row per (key id, tag).
CREATE TABLE IF NOT EXISTS keymetadata (
    key_id INTEGER NOT NULL,
    tag INTEGER NOT NULL,
    int_value INTEGER,
    blob_value BLOB,
    PRIMARY KEY (key_id, tag)
);

-- Grant: capability record.
CREATE TABLE IF NOT EXISTS grant_ (
    id INTEGER PRIMARY KEY,
    grantee INTEGER NOT NULL,
    key_id INTEGER NOT NULL,
    access_vector INTEGER NOT NULL,
    UNIQUE(grantee, key_id)
);

CREATE INDEX IF NOT EXISTS idx_grant_key ON grant_(key_id);

-- Schema version tracked inside the durable file.
CREATE TABLE IF NOT EXISTS schema_version (
    id INTEGER PRIMARY KEY CHECK (id = 0),
    version INTEGER NOT NULL
);
INSERT OR IGNORE INTO schema_version (id, version) VALUES (0, 0);
`
