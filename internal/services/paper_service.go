package services

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"papervault/internal/auth"
	"papervault/internal/constants"
	"papervault/internal/logger"
	"papervault/internal/papers"
	"papervault/internal/sanitize"
)

// PaperService handles paper upload, retrieval, and management operations.
// Every read and mutation is checked against the access policy; the PDF
// bytes live in blob storage and the metadata row carries the blob key.
type PaperService struct {
	app    AppState
	logger *logger.Logger
	store  *papers.Store
	policy *auth.Policy
}

// NewPaperService creates a new paper service instance.
func NewPaperService(app AppState, log *logger.Logger) *PaperService {
	db := app.GetDB()
	if db == nil {
		return nil
	}
	return &PaperService{
		app:    app,
		logger: log,
		store:  papers.NewStore(db),
		policy: auth.NewPolicy(auth.NewStore(db), log),
	}
}

// UploadRequest contains the metadata fields for a paper upload.
type UploadRequest struct {
	Title           string   `json:"title"`
	Abstract        string   `json:"abstract"`
	Authors         []string `json:"authors"`
	Tags            []string `json:"tags"`
	Confidentiality string   `json:"confidentiality"`
	Status          string   `json:"status"`
	FileName        string   `json:"file_name"`
	FileSize        int64    `json:"file_size"`
}

// Upload validates the metadata and file, streams the PDF to blob storage
// while computing its checksum, and inserts the metadata row. If the insert
// fails the stored blob is deleted so no orphan remains.
func (s *PaperService) Upload(ctx context.Context, actor *auth.Identity, req UploadRequest, file io.Reader) (*papers.Paper, error) {
	if !actor.User.IsAdmin() {
		return nil, ErrAuthForbidden
	}

	if err := validatePaperMeta(req.Title, req.Abstract, req.Authors, req.Tags); err != nil {
		return nil, err
	}
	if len(req.Authors) == 0 {
		return nil, ErrMissingParamWithName("authors")
	}
	if req.Confidentiality == "" {
		req.Confidentiality = constants.ConfidentialityMedium
	}
	if !isValidConfidentiality(req.Confidentiality) {
		return nil, ErrValidation(fmt.Sprintf("invalid confidentiality level: %s", req.Confidentiality))
	}
	if req.Status == "" {
		req.Status = constants.PaperStatusDraft
	}
	if !isValidStatus(req.Status) {
		return nil, ErrValidation(fmt.Sprintf("invalid status: %s", req.Status))
	}

	maxSize := s.app.GetConfig().Upload.MaxSizeBytes
	if req.FileSize <= 0 {
		return nil, ErrMissingFile
	}
	if req.FileSize > maxSize {
		return nil, ErrFileTooLarge
	}

	cleanName := sanitize.Filename(req.FileName)
	if cleanName == "" {
		return nil, NewServiceError(constants.ErrCodeInvalidFilename, "filename could not be sanitized")
	}
	if sanitize.Extension(filepath.Ext(cleanName)) != "pdf" {
		return nil, ErrInvalidFileType
	}

	// The first bytes of every PDF are the magic header. Reject anything
	// else before touching storage.
	head := make([]byte, len(constants.PDFMagicBytes))
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, WrapInternalError(err)
	}
	if n < len(constants.PDFMagicBytes) || string(head) != constants.PDFMagicBytes {
		s.logger.Info("Papers: rejected non-PDF upload file=%q by=%s", cleanName, actor.User.Email)
		return nil, ErrInvalidFileType
	}

	blobKey := uuid.NewString() + "_" + cleanName

	// Stream to storage while hashing; the head bytes were already consumed.
	hasher := blake3.New()
	body := io.TeeReader(io.MultiReader(bytes.NewReader(head), file), hasher)

	blobs := s.app.GetBlobStore()
	if err := blobs.Put(ctx, blobKey, body, req.FileSize, constants.ContentTypePDF); err != nil {
		return nil, WrapStorageError(err)
	}
	checksum := hex.EncodeToString(hasher.Sum(nil))

	paper, err := s.store.CreatePaper(&papers.Paper{
		Title:           strings.TrimSpace(req.Title),
		Abstract:        strings.TrimSpace(req.Abstract),
		Authors:         req.Authors,
		Tags:            req.Tags,
		Confidentiality: req.Confidentiality,
		Status:          req.Status,
		FileName:        cleanName,
		BlobKey:         blobKey,
		FileSize:        req.FileSize,
		Checksum:        checksum,
		UploadedBy:      actor.User.ID,
	})
	if err != nil {
		// Compensating delete so the blob store holds no orphaned object.
		if delErr := blobs.Delete(ctx, blobKey); delErr != nil {
			s.logger.Error("Papers: failed to delete orphaned blob key=%s: %v", blobKey, delErr)
		}
		return nil, WrapInternalError(err)
	}

	s.logger.Info("Papers: paper id=%d uploaded by=%s file=%q size=%d checksum=%s",
		paper.ID, actor.User.Email, cleanName, req.FileSize, checksum)

	return paper, nil
}

// Get returns a single paper after checking the actor's access.
func (s *PaperService) Get(actor *auth.Identity, paperID int64) (*papers.Paper, error) {
	paper, err := s.store.GetPaperByID(paperID)
	if err != nil {
		return nil, WrapInternalError(err)
	}
	if paper == nil {
		return nil, ErrPaperNotFoundWithID(paperID)
	}

	allowed, err := s.policy.CanAccess(actor.User, paperID)
	if err != nil {
		return nil, WrapInternalError(err)
	}
	if !allowed {
		return nil, ErrAuthForbidden
	}
	return paper, nil
}

// FileReader wraps the blob stream with the metadata needed to serve it.
type FileReader struct {
	io.ReadCloser
	Paper *papers.Paper
}

// OpenFile returns a policy-checked reader over the paper's PDF bytes.
func (s *PaperService) OpenFile(ctx context.Context, actor *auth.Identity, paperID int64) (*FileReader, error) {
	paper, err := s.Get(actor, paperID)
	if err != nil {
		return nil, err
	}

	rc, err := s.app.GetBlobStore().Open(ctx, paper.BlobKey)
	if err != nil {
		s.logger.Error("Papers: blob missing for paper id=%d key=%s: %v", paper.ID, paper.BlobKey, err)
		return nil, ErrPaperFileMissing
	}
	return &FileReader{ReadCloser: rc, Paper: paper}, nil
}

// ListRequest controls filtering and pagination of paper listings.
type ListRequest struct {
	Search          string
	Status          string
	Confidentiality string
	Tag             string
	SortBy          string
	SortOrder       string
	Page            int
	PageSize        int
}

// List returns the page of papers visible to the actor. Non-admins only see
// papers they hold an active grant for; the filter is applied in the query
// so counts and pages stay consistent.
func (s *PaperService) List(actor *auth.Identity, req ListRequest) (*papers.ListResult, error) {
	if req.Status != "" && !isValidStatus(req.Status) {
		return nil, ErrValidation(fmt.Sprintf("invalid status: %s", req.Status))
	}
	if req.Confidentiality != "" && !isValidConfidentiality(req.Confidentiality) {
		return nil, ErrValidation(fmt.Sprintf("invalid confidentiality level: %s", req.Confidentiality))
	}

	result, err := s.store.ListPapers(papers.ListOptions{
		ViewerID:        actor.User.ID,
		ViewerIsAdmin:   actor.User.IsAdmin(),
		Search:          req.Search,
		Status:          req.Status,
		Confidentiality: req.Confidentiality,
		Tag:             req.Tag,
		SortBy:          req.SortBy,
		SortOrder:       req.SortOrder,
		Page:            req.Page,
		PageSize:        req.PageSize,
	})
	if err != nil {
		return nil, WrapInternalError(err)
	}
	return result, nil
}

// UpdateMeta applies a partial metadata update. Only the uploader or an
// admin may modify a paper. Returns the updated paper and the list of
// changed fields for audit details.
func (s *PaperService) UpdateMeta(actor *auth.Identity, paperID int64, upd papers.Update) (*papers.Paper, []string, error) {
	paper, err := s.store.GetPaperByID(paperID)
	if err != nil {
		return nil, nil, WrapInternalError(err)
	}
	if paper == nil {
		return nil, nil, ErrPaperNotFoundWithID(paperID)
	}
	if !actor.User.IsAdmin() && paper.UploadedBy != actor.User.ID {
		return nil, nil, ErrAuthForbidden
	}

	if upd.Title != nil || upd.Abstract != nil || upd.Authors != nil || upd.Tags != nil {
		title := paper.Title
		abstract := paper.Abstract
		authors := paper.Authors
		tags := paper.Tags
		if upd.Title != nil {
			title = *upd.Title
		}
		if upd.Abstract != nil {
			abstract = *upd.Abstract
		}
		if upd.Authors != nil {
			authors = *upd.Authors
		}
		if upd.Tags != nil {
			tags = *upd.Tags
		}
		if err := validatePaperMeta(title, abstract, authors, tags); err != nil {
			return nil, nil, err
		}
		if len(authors) == 0 {
			return nil, nil, ErrMissingParamWithName("authors")
		}
	}
	if upd.Confidentiality != nil && !isValidConfidentiality(*upd.Confidentiality) {
		return nil, nil, ErrValidation(fmt.Sprintf("invalid confidentiality level: %s", *upd.Confidentiality))
	}
	if upd.Status != nil && !isValidStatus(*upd.Status) {
		return nil, nil, ErrValidation(fmt.Sprintf("invalid status: %s", *upd.Status))
	}

	changed, err := s.store.UpdatePaper(paperID, upd)
	if err != nil {
		return nil, nil, WrapInternalError(err)
	}
	if changed == nil {
		return nil, nil, ErrPaperNotFoundWithID(paperID)
	}

	updated, err := s.store.GetPaperByID(paperID)
	if err != nil {
		return nil, nil, WrapInternalError(err)
	}

	if len(changed) > 0 {
		s.logger.Info("Papers: paper id=%d updated by=%s fields=%v", paperID, actor.User.Email, changed)
	}
	return updated, changed, nil
}

// Delete soft-deletes a paper. Only the uploader or an admin may delete.
// The metadata row and the stored PDF both persist; the paper simply stops
// being visible to reads.
func (s *PaperService) Delete(actor *auth.Identity, paperID int64) error {
	paper, err := s.store.GetPaperByID(paperID)
	if err != nil {
		return WrapInternalError(err)
	}
	if paper == nil {
		return ErrPaperNotFoundWithID(paperID)
	}
	if !actor.User.IsAdmin() && paper.UploadedBy != actor.User.ID {
		return ErrAuthForbidden
	}

	removed, err := s.store.RemovePaper(paperID)
	if err != nil {
		return WrapInternalError(err)
	}
	if !removed {
		return ErrPaperNotFoundWithID(paperID)
	}

	s.logger.Info("Papers: paper id=%d deleted by=%s", paperID, actor.User.Email)
	return nil
}

// GetStats returns corpus statistics. Admin only.
func (s *PaperService) GetStats(actor *auth.Identity) (*papers.Stats, error) {
	if !actor.User.IsAdmin() {
		return nil, ErrAuthForbidden
	}
	stats, err := s.store.GetStats(constants.StatsRecentUploads)
	if err != nil {
		return nil, WrapInternalError(err)
	}
	return stats, nil
}

// validatePaperMeta enforces the field limits shared by upload and update.
func validatePaperMeta(title, abstract string, authors, tags []string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrMissingParamWithName("title")
	}
	if len(title) > constants.MaxTitleLength {
		return ErrValidation(fmt.Sprintf("title must be at most %d characters", constants.MaxTitleLength))
	}
	if len(abstract) > constants.MaxAbstractLength {
		return ErrValidation(fmt.Sprintf("abstract must be at most %d characters", constants.MaxAbstractLength))
	}
	if len(authors) > constants.MaxAuthors {
		return ErrValidation(fmt.Sprintf("at most %d authors allowed", constants.MaxAuthors))
	}
	for _, a := range authors {
		if strings.TrimSpace(a) == "" {
			return ErrValidation("author names must not be empty")
		}
	}
	if len(tags) > constants.MaxTags {
		return ErrValidation(fmt.Sprintf("at most %d tags allowed", constants.MaxTags))
	}
	return nil
}

func isValidConfidentiality(level string) bool {
	for _, l := range constants.AllConfidentialityLevels {
		if l == level {
			return true
		}
	}
	return false
}

func isValidStatus(status string) bool {
	for _, st := range constants.AllPaperStatuses {
		if st == status {
			return true
		}
	}
	return false
}
