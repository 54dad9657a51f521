package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"papervault/internal/audit"
	"papervault/internal/auth"
	"papervault/internal/constants"
	"papervault/internal/papers"
	"papervault/internal/sanitize"
	"papervault/internal/services"
)

// /api/papers — POST upload, GET list
func (s *Server) handlePapers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlePaperUpload(w, r)
	case http.MethodGet:
		s.handlePaperList(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// /api/papers/{id}[/file]
func (s *Server) handlePaperRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/papers/")

	if rest == "stats" {
		s.handlePaperStats(w, r)
		return
	}

	parts := strings.SplitN(rest, "/", 2)
	paperID, ok := parseID(parts[0])
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid paper id", constants.ErrCodeInvalidRequest)
		return
	}

	if len(parts) == 2 {
		if parts[1] == "file" {
			s.handlePaperFile(w, r, paperID)
			return
		}
		WriteError(w, http.StatusNotFound, "Not found", constants.ErrCodeNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handlePaperGet(w, r, paperID)
	case http.MethodPut:
		s.handlePaperUpdate(w, r, paperID)
	case http.MethodDelete:
		s.handlePaperDelete(w, r, paperID)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// POST /api/papers — multipart upload (admin only)
func (s *Server) handlePaperUpload(w http.ResponseWriter, r *http.Request) {
	identity := s.requireAdmin(w, r)
	if identity == nil {
		return
	}

	maxSize := s.app.Config.Upload.MaxSizeBytes
	// Allowance for the multipart framing and metadata fields
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+1<<20)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		WriteError(w, http.StatusRequestEntityTooLarge, "Upload exceeds maximum size", constants.ErrCodeFileTooLarge)
		return
	}

	files := r.MultipartForm.File[constants.FormFieldFile]
	if len(files) != 1 {
		WriteError(w, http.StatusBadRequest, "Exactly one file is required", constants.ErrCodeMissingFile)
		return
	}
	header := files[0]
	if ct := header.Header.Get(constants.HeaderContentType); ct != "" && ct != constants.ContentTypePDF {
		WriteError(w, http.StatusBadRequest, "Only PDF files are accepted", constants.ErrCodeInvalidFileType)
		return
	}

	file, err := header.Open()
	if err != nil {
		s.handleServiceError(w, err)
		return
	}
	defer file.Close()

	req := services.UploadRequest{
		Title:           r.FormValue("title"),
		Abstract:        r.FormValue("abstract"),
		Authors:         parseListField(r.FormValue("authors")),
		Tags:            parseListField(r.FormValue("tags")),
		Confidentiality: r.FormValue("confidentiality"),
		Status:          r.FormValue("status"),
		FileName:        header.Filename,
		FileSize:        header.Size,
	}

	paper, err := s.app.Services.Paper.Upload(r.Context(), identity, req, file)
	if err != nil {
		s.audit(r, identity, constants.AuditActionPaperUpload, constants.AuditStatusFailed, "paper", "",
			audit.PaperDetails{Title: req.Title, Reason: err.Error()})
		s.handleServiceError(w, err)
		return
	}

	s.audit(r, identity, constants.AuditActionPaperUpload, constants.AuditStatusSuccess,
		"paper", strconv.FormatInt(paper.ID, 10),
		audit.PaperDetails{PaperID: paper.ID, Title: paper.Title,
			Confidentiality: paper.Confidentiality, FileSize: paper.FileSize})

	WriteSuccess(w, map[string]interface{}{
		"paper": paper,
	})
}

// GET /api/papers — list visible papers
func (s *Server) handlePaperList(w http.ResponseWriter, r *http.Request) {
	identity := s.requireAuth(w, r)
	if identity == nil {
		return
	}

	q := r.URL.Query()
	req := services.ListRequest{
		Search:          q.Get("search"),
		Status:          q.Get("status"),
		Confidentiality: q.Get("confidentiality"),
		Tag:             q.Get("tag"),
		SortBy:          q.Get("sortBy"),
		SortOrder:       q.Get("sortOrder"),
		Page:            parseIntQuery(r, "page", 1, 1<<30),
		PageSize:        parseIntQuery(r, "pageSize", constants.DefaultPageSize, constants.MaxPageSize),
	}

	result, err := s.app.Services.Paper.List(identity, req)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	s.audit(r, identity, constants.AuditActionPapersListView, constants.AuditStatusSuccess, "", "",
		audit.ListViewDetails{ResultCount: len(result.Papers), Search: req.Search, Page: result.Page})

	WriteSuccess(w, map[string]interface{}{
		"papers":      result.Papers,
		"total":       result.Total,
		"page":        result.Page,
		"page_size":   result.PageSize,
		"total_pages": result.TotalPages,
	})
}

// GET /api/papers/{id}
func (s *Server) handlePaperGet(w http.ResponseWriter, r *http.Request, paperID int64) {
	identity := s.requireAuth(w, r)
	if identity == nil {
		return
	}

	paper, err := s.app.Services.Paper.Get(identity, paperID)
	if err != nil {
		s.auditPaperDenied(r, identity, constants.AuditActionPaperView, paperID, err)
		s.handleServiceError(w, err)
		return
	}

	s.audit(r, identity, constants.AuditActionPaperView, constants.AuditStatusSuccess,
		"paper", strconv.FormatInt(paperID, 10),
		audit.PaperDetails{PaperID: paperID, Title: paper.Title})

	WriteSuccess(w, map[string]interface{}{
		"paper": paper,
	})
}

// GET /api/papers/{id}/file — stream the PDF
func (s *Server) handlePaperFile(w http.ResponseWriter, r *http.Request, paperID int64) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	identity := s.requireAuth(w, r)
	if identity == nil {
		return
	}

	reader, err := s.app.Services.Paper.OpenFile(r.Context(), identity, paperID)
	if err != nil {
		s.auditPaperDenied(r, identity, constants.AuditActionPaperView, paperID, err)
		s.handleServiceError(w, err)
		return
	}
	defer reader.Close()

	s.audit(r, identity, constants.AuditActionPaperView, constants.AuditStatusSuccess,
		"paper", strconv.FormatInt(paperID, 10),
		audit.PaperDetails{PaperID: paperID, Title: reader.Paper.Title})

	w.Header().Set(constants.HeaderContentType, constants.ContentTypePDF)
	w.Header().Set(constants.HeaderContentDisposition,
		fmt.Sprintf(constants.ContentDispositionInlineFormat,
			sanitize.ContentDispositionFilename(reader.Paper.FileName)))
	w.Header().Set(constants.HeaderContentLength, strconv.FormatInt(reader.Paper.FileSize, 10))

	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Warn("Papers: streaming paper id=%d aborted: %v", paperID, err)
	}
}

// PUT /api/papers/{id} — metadata update
func (s *Server) handlePaperUpdate(w http.ResponseWriter, r *http.Request, paperID int64) {
	identity := s.requireAuth(w, r)
	if identity == nil {
		return
	}

	var req struct {
		Title           *string   `json:"title"`
		Abstract        *string   `json:"abstract"`
		Authors         *[]string `json:"authors"`
		Tags            *[]string `json:"tags"`
		Confidentiality *string   `json:"confidentiality"`
		Status          *string   `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON", constants.ErrCodeInvalidRequest)
		return
	}

	paper, changed, err := s.app.Services.Paper.UpdateMeta(identity, paperID, papers.Update{
		Title:           req.Title,
		Abstract:        req.Abstract,
		Authors:         req.Authors,
		Tags:            req.Tags,
		Confidentiality: req.Confidentiality,
		Status:          req.Status,
	})
	if err != nil {
		s.auditPaperDenied(r, identity, constants.AuditActionPaperUpdate, paperID, err)
		s.handleServiceError(w, err)
		return
	}

	s.audit(r, identity, constants.AuditActionPaperUpdate, constants.AuditStatusSuccess,
		"paper", strconv.FormatInt(paperID, 10),
		audit.PaperDetails{PaperID: paperID, Title: paper.Title,
			Reason: strings.Join(changed, ",")})

	WriteSuccess(w, map[string]interface{}{
		"paper":   paper,
		"changed": changed,
	})
}

// DELETE /api/papers/{id} — soft delete
func (s *Server) handlePaperDelete(w http.ResponseWriter, r *http.Request, paperID int64) {
	identity := s.requireAuth(w, r)
	if identity == nil {
		return
	}

	if err := s.app.Services.Paper.Delete(identity, paperID); err != nil {
		s.auditPaperDenied(r, identity, constants.AuditActionPaperDelete, paperID, err)
		s.handleServiceError(w, err)
		return
	}

	s.audit(r, identity, constants.AuditActionPaperDelete, constants.AuditStatusSuccess,
		"paper", strconv.FormatInt(paperID, 10),
		audit.PaperDetails{PaperID: paperID})

	WriteSuccess(w, nil)
}

// GET /api/papers/stats — corpus totals (admin only)
func (s *Server) handlePaperStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	identity := s.requireAdmin(w, r)
	if identity == nil {
		return
	}

	stats, err := s.app.Services.Paper.GetStats(identity)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"stats": stats,
	})
}

// auditPaperDenied writes a blocked audit entry for policy denials. Other
// failure kinds are not logged here; not-found and validation outcomes do
// not represent an access decision.
func (s *Server) auditPaperDenied(r *http.Request, identity *auth.Identity, action string, paperID int64, err error) {
	code, ok := services.IsServiceError(err)
	if !ok || code != constants.ErrCodeAuthForbidden {
		return
	}
	s.audit(r, identity, action, constants.AuditStatusBlocked,
		"paper", strconv.FormatInt(paperID, 10),
		audit.PaperDetails{PaperID: paperID, Reason: "access_denied"})
}

// parseListField accepts either a JSON array or a comma-separated list.
func parseListField(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err == nil {
			return list
		}
	}
	parts := strings.Split(raw, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	return list
}
