package pubcorpus

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	_ "modernc.org/sqlite"

	"github.com/eringen/pubcorpus/content"
)

// Store is a SQLite index of the corpus. It is derived from the post files
// and rebuilt by Sync; nothing is ever written back to the corpus.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the preview server read while a reload writes; the busy
	// timeout makes writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    slug TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    date TEXT NOT NULL,
    categories TEXT NOT NULL,
    tags TEXT NOT NULL,
    links TEXT NOT NULL,
    image TEXT NOT NULL,
    body TEXT NOT NULL,
    dir TEXT NOT NULL,
    file TEXT NOT NULL,
    checksum TEXT NOT NULL,
    indexed_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS posts_date ON posts(date DESC);
`)
	return err
}

// Filter narrows ListPosts. Empty fields match everything.
type Filter struct {
	Tag      string
	Category string
}

// SyncResult counts what a Sync changed.
type SyncResult struct {
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed"`
}

func (r SyncResult) String() string {
	return fmt.Sprintf("%d added, %d updated, %d unchanged, %d removed", r.Added, r.Updated, r.Unchanged, r.Removed)
}

const postColumns = `slug, title, description, date, categories, tags, links, image, body, dir, file, checksum`

// indexedRev identifies the indexed revision of a post. A post moved to
// another directory with identical bytes is a new revision.
type indexedRev struct {
	checksum, dir, file string
}

// Sync makes the index mirror posts in a single transaction. Rows whose
// checksum and location are unchanged are left alone; rows for slugs no
// longer present are deleted. When several posts share a slug the first one wins.
func (s *Store) Sync(ctx context.Context, posts []content.Post) (SyncResult, error) {
	var res SyncResult
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("sync: begin: %w", err)
	}
	defer tx.Rollback()

	existing := map[string]indexedRev{}
	rows, err := tx.QueryContext(ctx, `SELECT slug, checksum, dir, file FROM posts`)
	if err != nil {
		return res, fmt.Errorf("sync: read index: %w", err)
	}
	for rows.Next() {
		var slug string
		var rev indexedRev
		if err := rows.Scan(&slug, &rev.checksum, &rev.dir, &rev.file); err != nil {
			rows.Close()
			return res, err
		}
		existing[slug] = rev
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return res, err
	}

	upsert, err := tx.PrepareContext(ctx, `INSERT INTO posts (`+postColumns+`, indexed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(slug) DO UPDATE SET
    title = excluded.title, description = excluded.description, date = excluded.date,
    categories = excluded.categories, tags = excluded.tags, links = excluded.links,
    image = excluded.image, body = excluded.body, dir = excluded.dir, file = excluded.file,
    checksum = excluded.checksum, indexed_at = excluded.indexed_at`)
	if err != nil {
		return res, fmt.Errorf("sync: prepare: %w", err)
	}
	defer upsert.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	seen := make(map[string]struct{}, len(posts))
	for _, p := range posts {
		if _, dup := seen[p.Slug]; dup {
			continue
		}
		seen[p.Slug] = struct{}{}

		rev, ok := existing[p.Slug]
		if ok && rev == (indexedRev{checksum: p.Checksum, dir: p.Dir, file: p.File}) {
			res.Unchanged++
			continue
		}
		links, err := sonic.Marshal(p.Links)
		if err != nil {
			return res, fmt.Errorf("sync: encode links for %s: %w", p.Slug, err)
		}
		if _, err := upsert.ExecContext(ctx,
			p.Slug, p.Title, p.Description, formatDate(p.Date),
			joinTerms(p.Categories), joinTerms(p.Tags), string(links),
			p.Image, p.Body, p.Dir, p.File, p.Checksum, now,
		); err != nil {
			return res, fmt.Errorf("sync: upsert %s: %w", p.Slug, err)
		}
		if ok {
			res.Updated++
		} else {
			res.Added++
		}
	}

	for slug := range existing {
		if _, ok := seen[slug]; ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE slug = ?`, slug); err != nil {
			return res, fmt.Errorf("sync: delete %s: %w", slug, err)
		}
		res.Removed++
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("sync: commit: %w", err)
	}
	return res, nil
}

// ListPosts returns indexed posts ordered by date descending, then slug.
func (s *Store) ListPosts(f Filter) ([]content.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts`
	var (
		where []string
		args  []any
	)
	if tag := normalizeTerm(f.Tag); tag != "" {
		where = append(where, `instr(lower(tags), ',' || ? || ',') > 0`)
		args = append(args, tag)
	}
	if cat := normalizeTerm(f.Category); cat != "" {
		where = append(where, `instr(lower(categories), ',' || ? || ',') > 0`)
		args = append(args, cat)
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY date DESC, slug ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []content.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// GetPost returns a single post by slug, or ErrNotFound.
func (s *Store) GetPost(slug string) (content.Post, error) {
	row := s.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE slug = ?`, slug)
	return scanPost(row)
}

// Count returns the number of indexed posts.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM posts`).Scan(&n)
	return n, err
}

// ListTags returns a sorted, deduplicated slice of all tags, lowercased.
func (s *Store) ListTags() ([]string, error) {
	return s.listTerms("tags")
}

// ListCategories returns a sorted, deduplicated slice of all categories,
// lowercased.
func (s *Store) ListCategories() ([]string, error) {
	return s.listTerms("categories")
}

func (s *Store) listTerms(column string) ([]string, error) {
	rows, err := s.db.Query(`SELECT ` + column + ` FROM posts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var encoded string
		if err := rows.Scan(&encoded); err != nil {
			return nil, err
		}
		for _, t := range ParseTerms(encoded) {
			set[strings.ToLower(t)] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	result := make([]string, 0, len(set))
	for t := range set {
		result = append(result, t)
	}
	sort.Strings(result)
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (content.Post, error) {
	var (
		p                      content.Post
		date, cats, tags, link string
	)
	if err := row.Scan(&p.Slug, &p.Title, &p.Description, &date, &cats, &tags, &link,
		&p.Image, &p.Body, &p.Dir, &p.File, &p.Checksum); err != nil {
		return content.Post{}, err
	}
	if date != "" {
		t, err := time.Parse(time.RFC3339, date)
		if err != nil {
			return content.Post{}, fmt.Errorf("post %s: bad indexed date %q: %w", p.Slug, date, err)
		}
		p.Date = t
		p.DateText = date
	}
	p.Categories = ParseTerms(cats)
	p.Tags = ParseTerms(tags)
	if link != "" && link != "null" {
		if err := sonic.UnmarshalString(link, &p.Links); err != nil {
			return content.Post{}, fmt.Errorf("post %s: bad indexed links: %w", p.Slug, err)
		}
	}
	return p, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// joinTerms encodes terms as ",a,b," so a single term can be matched with
// instr() without false prefix hits.
func joinTerms(terms []string) string {
	if len(terms) == 0 {
		return ""
	}
	return "," + strings.Join(terms, ",") + ","
}

// ParseTerms splits a comma-delimited term string (e.g. ",go,web,") into a slice.
func ParseTerms(encoded string) []string {
	encoded = strings.Trim(encoded, ",")
	if encoded == "" {
		return nil
	}
	parts := strings.Split(encoded, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func normalizeTerm(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
