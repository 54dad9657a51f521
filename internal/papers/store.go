package papers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"papervault/internal/constants"
)

// Store provides database operations for paper metadata.
type Store struct {
	db *sql.DB

	ftsOnce sync.Once
	ftsOK   bool
}

// NewStore creates a new paper store backed by the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const paperColumns = `id, title, abstract, authors_json, tags_json, confidentiality,
	status, file_name, blob_key, file_size, checksum, version, uploaded_by, is_active,
	created_at, updated_at`

// CreatePaper inserts a new paper record.
func (s *Store) CreatePaper(p *Paper) (*Paper, error) {
	authorsJSON, err := marshalList(p.Authors)
	if err != nil {
		return nil, fmt.Errorf("failed to encode authors: %w", err)
	}
	tagsJSON, err := marshalList(p.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}

	now := time.Now().Unix()
	result, err := s.db.Exec(`
		INSERT INTO papers (title, abstract, authors_json, tags_json, confidentiality,
		                    status, file_name, blob_key, file_size, checksum,
		                    version, uploaded_by, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, 1, ?, ?)
	`, p.Title, p.Abstract, authorsJSON, tagsJSON, p.Confidentiality,
		p.Status, p.FileName, p.BlobKey, p.FileSize, p.Checksum, p.UploadedBy, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create paper: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get paper id: %w", err)
	}

	created := *p
	created.ID = id
	created.Version = 1
	created.IsActive = true
	created.CreatedAt = now
	created.UpdatedAt = now
	return &created, nil
}

// GetPaperByID retrieves an active paper by ID. Returns nil when the paper
// does not exist or has been removed.
func (s *Store) GetPaperByID(id int64) (*Paper, error) {
	row := s.db.QueryRow(`SELECT `+paperColumns+` FROM papers WHERE id = ? AND is_active = 1`, id)
	paper, err := scanPaper(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get paper: %w", err)
	}
	return paper, nil
}

// ListPapers returns one page of active papers visible to the viewer.
// Admins see everything; other roles only see papers they hold an active
// grant for. An empty page never errors.
func (s *Store) ListPapers(opts ListOptions) (*ListResult, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize <= 0 {
		opts.PageSize = constants.DefaultPageSize
	}
	if opts.PageSize > constants.MaxPageSize {
		opts.PageSize = constants.MaxPageSize
	}
	// A blank search would produce an empty MATCH expression, which FTS5
	// rejects as a syntax error.
	opts.Search = strings.TrimSpace(opts.Search)

	where := " WHERE p.is_active = 1"
	args := []interface{}{}

	if !opts.ViewerIsAdmin {
		where += ` AND p.id IN (
			SELECT paper_id FROM paper_grants WHERE user_id = ? AND is_active = 1)`
		args = append(args, opts.ViewerID)
	}
	if opts.Status != "" {
		where += " AND p.status = ?"
		args = append(args, opts.Status)
	}
	if opts.Confidentiality != "" {
		where += " AND p.confidentiality = ?"
		args = append(args, opts.Confidentiality)
	}
	if opts.Tag != "" {
		where += " AND EXISTS (SELECT 1 FROM json_each(p.tags_json) WHERE value = ?)"
		args = append(args, opts.Tag)
	}

	from := " FROM papers p"
	orderBy := orderClause(opts.SortBy, opts.SortOrder)

	if opts.Search != "" {
		if s.hasFTS() {
			from += " JOIN papers_fts f ON f.rowid = p.id"
			where += " AND papers_fts MATCH ?"
			args = append(args, ftsQuery(opts.Search))
			if opts.SortBy == "" {
				// Title matches rank highest, then abstract, authors, tags
				orderBy = " ORDER BY bm25(papers_fts, 10.0, 5.0, 3.0, 1.0)"
			}
		} else {
			// Substring fallback for SQLite builds without the FTS5 module;
			// no relevance ranking, the default order applies.
			pattern := "%" + escapeLike(opts.Search) + "%"
			where += ` AND (p.title LIKE ? ESCAPE '\'
				OR p.abstract LIKE ? ESCAPE '\'
				OR p.authors_json LIKE ? ESCAPE '\'
				OR p.tags_json LIKE ? ESCAPE '\')`
			args = append(args, pattern, pattern, pattern, pattern)
		}
	}

	var total int64
	countArgs := make([]interface{}, len(args))
	copy(countArgs, args)
	if err := s.db.QueryRow("SELECT COUNT(*)"+from+where, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count papers: %w", err)
	}

	query := "SELECT " + prefixColumns("p") + from + where + orderBy + " LIMIT ? OFFSET ?"
	args = append(args, opts.PageSize, (opts.Page-1)*opts.PageSize)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list papers: %w", err)
	}
	defer rows.Close()

	papers := []Paper{}
	for rows.Next() {
		paper, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan paper: %w", err)
		}
		papers = append(papers, *paper)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	totalPages := (total + int64(opts.PageSize) - 1) / int64(opts.PageSize)
	return &ListResult{
		Papers:     papers,
		Total:      total,
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		TotalPages: totalPages,
	}, nil
}

// UpdatePaper applies a partial metadata update and returns the fields that
// changed. Returns nil fields slice when the paper does not exist.
func (s *Store) UpdatePaper(id int64, upd Update) ([]string, error) {
	existing, err := s.GetPaperByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	sets := []string{}
	args := []interface{}{}
	changed := []string{}

	if upd.Title != nil && *upd.Title != existing.Title {
		sets = append(sets, "title = ?")
		args = append(args, *upd.Title)
		changed = append(changed, "title")
	}
	if upd.Abstract != nil && *upd.Abstract != existing.Abstract {
		sets = append(sets, "abstract = ?")
		args = append(args, *upd.Abstract)
		changed = append(changed, "abstract")
	}
	if upd.Authors != nil {
		authorsJSON, err := marshalList(*upd.Authors)
		if err != nil {
			return nil, fmt.Errorf("failed to encode authors: %w", err)
		}
		existingJSON, err := marshalList(existing.Authors)
		if err != nil {
			return nil, fmt.Errorf("failed to encode authors: %w", err)
		}
		if authorsJSON != existingJSON {
			sets = append(sets, "authors_json = ?")
			args = append(args, authorsJSON)
			changed = append(changed, "authors")
		}
	}
	if upd.Tags != nil {
		tagsJSON, err := marshalList(*upd.Tags)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tags: %w", err)
		}
		existingJSON, err := marshalList(existing.Tags)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tags: %w", err)
		}
		if tagsJSON != existingJSON {
			sets = append(sets, "tags_json = ?")
			args = append(args, tagsJSON)
			changed = append(changed, "tags")
		}
	}
	if upd.Confidentiality != nil && *upd.Confidentiality != existing.Confidentiality {
		sets = append(sets, "confidentiality = ?")
		args = append(args, *upd.Confidentiality)
		changed = append(changed, "confidentiality")
	}
	if upd.Status != nil && *upd.Status != existing.Status {
		sets = append(sets, "status = ?")
		args = append(args, *upd.Status)
		changed = append(changed, "status")
	}

	if len(sets) == 0 {
		return []string{}, nil
	}

	sets = append(sets, "version = version + 1", "updated_at = ?")
	args = append(args, time.Now().Unix(), id)

	_, err = s.db.Exec("UPDATE papers SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update paper: %w", err)
	}
	return changed, nil
}

// RemovePaper soft-deletes a paper by setting is_active=0. The row and the
// stored blob both persist; removal only hides the paper from reads. Returns
// false when the paper was already gone.
func (s *Store) RemovePaper(id int64) (bool, error) {
	existing, err := s.GetPaperByID(id)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	now := time.Now().Unix()
	_, err = s.db.Exec(`UPDATE papers SET is_active = 0, updated_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return false, fmt.Errorf("failed to remove paper: %w", err)
	}
	return true, nil
}

// CountPapers returns the number of active papers.
func (s *Store) CountPapers() (int64, error) {
	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM papers WHERE is_active = 1").Scan(&count)
	return count, err
}

// Stats summarizes the active paper corpus for the admin dashboard.
type Stats struct {
	Total             int64            `json:"total"`
	TotalBytes        int64            `json:"total_bytes"`
	ByConfidentiality map[string]int64 `json:"by_confidentiality"`
	ByStatus          map[string]int64 `json:"by_status"`
	RecentUploads     []Paper          `json:"recent_uploads"`
}

// GetStats computes corpus totals, per-level breakdowns, and the most
// recently uploaded papers.
func (s *Store) GetStats(recentLimit int) (*Stats, error) {
	stats := &Stats{
		ByConfidentiality: make(map[string]int64),
		ByStatus:          make(map[string]int64),
	}

	var totalBytes sql.NullInt64
	err := s.db.QueryRow(`
		SELECT COUNT(*), SUM(file_size) FROM papers WHERE is_active = 1
	`).Scan(&stats.Total, &totalBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to compute paper totals: %w", err)
	}
	stats.TotalBytes = totalBytes.Int64

	rows, err := s.db.Query(`
		SELECT confidentiality, COUNT(*) FROM papers WHERE is_active = 1
		GROUP BY confidentiality
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute confidentiality breakdown: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var level string
		var count int64
		if err := rows.Scan(&level, &count); err != nil {
			return nil, err
		}
		stats.ByConfidentiality[level] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	statusRows, err := s.db.Query(`
		SELECT status, COUNT(*) FROM papers WHERE is_active = 1 GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute status breakdown: %w", err)
	}
	defer statusRows.Close()
	for statusRows.Next() {
		var status string
		var count int64
		if err := statusRows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.ByStatus[status] = count
	}
	if err := statusRows.Err(); err != nil {
		return nil, err
	}

	if recentLimit > 0 {
		recentRows, err := s.db.Query(`SELECT `+paperColumns+` FROM papers
			WHERE is_active = 1 ORDER BY created_at DESC, id DESC LIMIT ?`, recentLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to list recent uploads: %w", err)
		}
		defer recentRows.Close()
		for recentRows.Next() {
			paper, err := scanPaper(recentRows)
			if err != nil {
				return nil, err
			}
			stats.RecentUploads = append(stats.RecentUploads, *paper)
		}
		if err := recentRows.Err(); err != nil {
			return nil, err
		}
	}

	return stats, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPaper(row scanner) (*Paper, error) {
	var p Paper
	var authorsJSON, tagsJSON string

	err := row.Scan(&p.ID, &p.Title, &p.Abstract, &authorsJSON, &tagsJSON,
		&p.Confidentiality, &p.Status, &p.FileName, &p.BlobKey, &p.FileSize,
		&p.Checksum, &p.Version, &p.UploadedBy, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(authorsJSON), &p.Authors); err != nil {
		p.Authors = []string{}
	}
	if err := json.Unmarshal([]byte(tagsJSON), &p.Tags); err != nil {
		p.Tags = []string{}
	}
	return &p, nil
}

func marshalList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func prefixColumns(alias string) string {
	cols := strings.Split(paperColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

// orderClause builds a safe ORDER BY from whitelisted sort fields. Unknown
// fields fall back to newest-first.
func orderClause(sortBy, sortOrder string) string {
	column := "p.created_at"
	switch sortBy {
	case "title":
		column = "p.title"
	case "file_size":
		column = "p.file_size"
	case "", "created_at":
	default:
	}
	direction := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		direction = "ASC"
	}
	return " ORDER BY " + column + " " + direction + ", p.id DESC"
}

// hasFTS reports whether the full-text index exists in this database. Schema
// setup skips it when SQLite was compiled without FTS5 (no sqlite_fts5 build
// tag); the result is cached for the lifetime of the store.
func (s *Store) hasFTS() bool {
	s.ftsOnce.Do(func() {
		var count int64
		err := s.db.QueryRow(
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'papers_fts'`,
		).Scan(&count)
		s.ftsOK = err == nil && count > 0
	})
	return s.ftsOK
}

// escapeLike escapes the LIKE wildcards in user input.
func escapeLike(input string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(input)
}

// ftsQuery quotes each whitespace-separated term so user input cannot break
// the FTS5 query syntax.
func ftsQuery(input string) string {
	terms := strings.Fields(input)
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ReplaceAll(term, `"`, `""`)
		quoted = append(quoted, `"`+term+`"`)
	}
	return strings.Join(quoted, " ")
}
