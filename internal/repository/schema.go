package repository

import "aggregat4/linkmarks/pkg/migrations"

var bookmarkMigrations = []migrations.Migration{
	{SequenceId: 1,
		Sql: `
		CREATE TABLE IF NOT EXISTS categories (
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		parent_id INTEGER,
		level INTEGER NOT NULL DEFAULT 0,
		sort_order INTEGER NOT NULL DEFAULT 0,
		description TEXT NOT NULL DEFAULT '',
		color TEXT NOT NULL DEFAULT '',
		FOREIGN KEY(parent_id) REFERENCES categories(id)
		);

		CREATE TABLE IF NOT EXISTS bookmarks (
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		url_hash TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		category_id INTEGER,
		favorite INTEGER NOT NULL DEFAULT 0,
		archived INTEGER NOT NULL DEFAULT 0,
		visit_count INTEGER NOT NULL DEFAULT 0,
		last_visited_at INTEGER,
		created INTEGER NOT NULL,
		updated INTEGER NOT NULL,
		meta_title TEXT NOT NULL DEFAULT '',
		meta_description TEXT NOT NULL DEFAULT '',
		meta_site_name TEXT NOT NULL DEFAULT '',
		meta_type TEXT NOT NULL DEFAULT '',
		meta_author TEXT NOT NULL DEFAULT '',
		meta_keywords TEXT NOT NULL DEFAULT '',
		meta_locale TEXT NOT NULL DEFAULT '',
		meta_twitter_card TEXT NOT NULL DEFAULT '',
		meta_twitter_site TEXT NOT NULL DEFAULT '',
		meta_image TEXT NOT NULL DEFAULT '',
		favicon TEXT NOT NULL DEFAULT '',
		http_status INTEGER,
		content_type TEXT NOT NULL DEFAULT '',
		meta_fetch_error TEXT NOT NULL DEFAULT '',
		meta_fetch_count INTEGER NOT NULL DEFAULT 0,
		meta_fetched_at INTEGER,
		FOREIGN KEY(category_id) REFERENCES categories(id) ON DELETE SET NULL
		);

		CREATE TABLE IF NOT EXISTS tags (
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		usage_count INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS bookmark_tags (
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		bookmark_id INTEGER NOT NULL,
		tag_id INTEGER NOT NULL,
		UNIQUE(bookmark_id, tag_id),
		FOREIGN KEY(bookmark_id) REFERENCES bookmarks(id) ON DELETE CASCADE,
		FOREIGN KEY(tag_id) REFERENCES tags(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS bookmarks_url_hash_idx ON bookmarks(url_hash);
		CREATE INDEX IF NOT EXISTS bookmarks_category_idx ON bookmarks(category_id);
		CREATE INDEX IF NOT EXISTS bookmarks_created_idx ON bookmarks(created);
		CREATE INDEX IF NOT EXISTS categories_parent_idx ON categories(parent_id);
		`,
	},
	// readable page content captured next to the metadata
	{SequenceId: 2,
		Sql: `
		ALTER TABLE bookmarks ADD COLUMN content TEXT NOT NULL DEFAULT '';
		`,
	},
	{SequenceId: 3,
		Sql: `
		-- Enable WAL mode on the database to allow for concurrent reads and writes
		PRAGMA journal_mode=WAL;
		`,
	},
}

// ftsMigration builds the full text index over bookmarks and keeps it in
// sync with triggers. The fts5 module is only compiled into go-sqlite3 when
// building with the sqlite_fts5 tag, so this migration is applied only when
// the driver supports it and search falls back to LIKE matching otherwise.
var ftsMigration = migrations.Migration{
	SequenceId: 4,
	Sql: `
	CREATE VIRTUAL TABLE IF NOT EXISTS bookmarks_fts USING fts5(url, title, description, content='bookmarks', content_rowid='id');
	CREATE TRIGGER IF NOT EXISTS bookmarks_ai AFTER INSERT ON bookmarks BEGIN
		INSERT INTO bookmarks_fts(rowid, url, title, description) VALUES (new.id, new.url, new.title, new.description);
	END;
	CREATE TRIGGER IF NOT EXISTS bookmarks_ad AFTER DELETE ON bookmarks BEGIN
		INSERT INTO bookmarks_fts(bookmarks_fts, rowid, url, title, description) VALUES('delete', old.id, old.url, old.title, old.description);
	END;
	CREATE TRIGGER IF NOT EXISTS bookmarks_au AFTER UPDATE ON bookmarks BEGIN
		INSERT INTO bookmarks_fts(bookmarks_fts, rowid, url, title, description) VALUES('delete', old.id, old.url, old.title, old.description);
		INSERT INTO bookmarks_fts(rowid, url, title, description) VALUES (new.id, new.url, new.title, new.description);
	END;
	INSERT INTO bookmarks_fts(bookmarks_fts) VALUES('rebuild');
	`,
}
