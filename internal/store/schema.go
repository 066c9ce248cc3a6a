// SPDX-License-Identifier: MIT

package store

const schema = `
CREATE TABLE IF NOT EXISTS groups (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT 1,
	category_tags TEXT NOT NULL DEFAULT '[]',
	schedule TEXT NOT NULL DEFAULT 'daily',
	min_articles INTEGER NOT NULL DEFAULT 0,
	presenter_ids TEXT NOT NULL DEFAULT '[]',
	writer_id TEXT NOT NULL DEFAULT '',
	target_minutes INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS collections (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TEXT NOT NULL,
	linked_episode_id TEXT NOT NULL DEFAULT '',
	parent_collection_id TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_collections_status ON collections(status);

CREATE TABLE IF NOT EXISTS collection_groups (
	collection_id TEXT NOT NULL REFERENCES collections(id),
	group_id TEXT NOT NULL REFERENCES groups(id),
	PRIMARY KEY (collection_id, group_id)
);
CREATE INDEX IF NOT EXISTS idx_collection_groups_group ON collection_groups(group_id);

CREATE TABLE IF NOT EXISTS articles (
	id TEXT PRIMARY KEY,
	feed_id TEXT NOT NULL DEFAULT '',
	link TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	published_at TEXT NOT NULL DEFAULT '',
	ingested_at TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	review_state TEXT NOT NULL DEFAULT 'unreviewed',
	tags TEXT NOT NULL DEFAULT '[]',
	summary TEXT NOT NULL DEFAULT '',
	confidence REAL NOT NULL DEFAULT 0,
	model_id TEXT NOT NULL DEFAULT '',
	degraded BOOLEAN NOT NULL DEFAULT 0,
	reject_reason TEXT NOT NULL DEFAULT '',
	collection_id TEXT REFERENCES collections(id)
);
CREATE INDEX IF NOT EXISTS idx_articles_fingerprint ON articles(fingerprint);
CREATE INDEX IF NOT EXISTS idx_articles_collection ON articles(collection_id);

CREATE TABLE IF NOT EXISTS article_collections (
	article_id TEXT NOT NULL REFERENCES articles(id),
	collection_id TEXT NOT NULL REFERENCES collections(id),
	PRIMARY KEY (article_id, collection_id)
);
CREATE INDEX IF NOT EXISTS idx_article_collections_collection ON article_collections(collection_id);

CREATE TABLE IF NOT EXISTS episodes (
	id TEXT PRIMARY KEY,
	group_id TEXT NOT NULL REFERENCES groups(id),
	snapshot_collection_id TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'draft',
	script TEXT NOT NULL DEFAULT '',
	edited_script TEXT NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT '{}',
	failure_reason TEXT NOT NULL DEFAULT '',
	degraded_edit BOOLEAN NOT NULL DEFAULT 0,
	publish_urls TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	published_at TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_episodes_group_status ON episodes(group_id, status);

CREATE TABLE IF NOT EXISTS audio_files (
	id TEXT PRIMARY KEY,
	episode_id TEXT NOT NULL UNIQUE REFERENCES episodes(id),
	storage_path TEXT NOT NULL,
	duration_seconds REAL NOT NULL DEFAULT 0,
	byte_size INTEGER NOT NULL DEFAULT 0,
	format TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
`
