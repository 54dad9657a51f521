package constants

import "time"

// HTTP Server Timeouts
const (
	HTTPIdleTimeoutSecs = 120
	HTTPIdleTimeout     = HTTPIdleTimeoutSecs * time.Second
)

// Content Types
const (
	ContentTypeJSON = "application/json"
	ContentTypePDF  = "application/pdf"
	ContentTypeText = "text/plain; charset=utf-8"
)

// Content-Disposition Headers
const (
	ContentDispositionInlineFormat     = `inline; filename="%s"`
	ContentDispositionAttachmentFormat = `attachment; filename="%s"`
)

// HTTP Header Names
const (
	HeaderContentType        = "Content-Type"
	HeaderContentDisposition = "Content-Disposition"
	HeaderContentLength      = "Content-Length"
)
