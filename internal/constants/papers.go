package constants

// Confidentiality Levels, ordered from least to most restricted.
const (
	ConfidentialityLow      = "low"
	ConfidentialityMedium   = "medium"
	ConfidentialityHigh     = "high"
	ConfidentialityCritical = "critical"
)

// AllConfidentialityLevels returns every defined level.
var AllConfidentialityLevels = []string{
	ConfidentialityLow,
	ConfidentialityMedium,
	ConfidentialityHigh,
	ConfidentialityCritical,
}

// Paper Statuses
const (
	PaperStatusDraft     = "draft"
	PaperStatusPublished = "published"
	PaperStatusArchived  = "archived"
)

// AllPaperStatuses returns every defined paper status.
var AllPaperStatuses = []string{
	PaperStatusDraft,
	PaperStatusPublished,
	PaperStatusArchived,
}

// Upload Limits
const (
	MaxUploadSizeBytes = 50 * 1024 * 1024 // 50MB
	PDFMagicBytes      = "%PDF-"
)

// Form Field Names (multipart form uploads)
const (
	FormFieldFile = "file"
)

// Paper Field Limits
const (
	MaxTitleLength    = 300
	MaxAbstractLength = 5000
	MaxAuthors        = 50
	MaxTags           = 20
)
