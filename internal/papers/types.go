// Package papers provides storage and retrieval of research paper metadata.
// The PDF bytes themselves live in blob storage; this package tracks the
// metadata rows and the blob key that links the two.
package papers

// Paper represents a research paper's metadata record.
type Paper struct {
	ID              int64    `json:"id"`
	Title           string   `json:"title"`
	Abstract        string   `json:"abstract,omitempty"`
	Authors         []string `json:"authors"`
	Tags            []string `json:"tags"`
	Confidentiality string   `json:"confidentiality"`
	Status          string   `json:"status"`
	FileName        string   `json:"file_name"`
	BlobKey         string   `json:"-"`
	FileSize        int64    `json:"file_size"`
	Checksum        string   `json:"checksum"`
	Version         int64    `json:"version"`
	UploadedBy      int64    `json:"uploaded_by"`
	IsActive        bool     `json:"is_active"`
	CreatedAt       int64    `json:"created_at"`
	UpdatedAt       int64    `json:"updated_at"`
}

// ListOptions controls filtering and pagination of paper listings.
type ListOptions struct {
	ViewerID        int64 // grants-based visibility applies when ViewerIsAdmin is false
	ViewerIsAdmin   bool
	Search          string // full-text query over title/abstract/authors/tags
	Status          string
	Confidentiality string
	Tag             string // exact match against one tag
	SortBy          string // created_at (default), title, or file_size
	SortOrder       string // asc or desc (default)
	Page            int    // 1-based
	PageSize        int
}

// ListResult bundles one page of papers with the total match count.
type ListResult struct {
	Papers     []Paper `json:"papers"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalPages int64   `json:"total_pages"`
}

// Update describes a metadata change. Nil fields are left untouched.
type Update struct {
	Title           *string
	Abstract        *string
	Authors         *[]string
	Tags            *[]string
	Confidentiality *string
	Status          *string
}
