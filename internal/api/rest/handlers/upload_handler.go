package handlers

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/knowtix/billing-service/internal/middleware"
	"github.com/knowtix/billing-service/internal/service"
	"github.com/knowtix/billing-service/pkg/logger"
)

// maxUploadBody caps a buffered document upload.
const maxUploadBody = 32 << 20

const uploadFileField = "file"

// UploadHandler forwards documents of subscribed users.
type UploadHandler struct {
	svc service.UploadService
	log *logger.Logger
}

func NewUploadHandler(svc service.UploadService, log *logger.Logger) *UploadHandler {
	return &UploadHandler{svc: svc, log: log}
}

// Upload serves POST /api/upload.
func (h *UploadHandler) Upload(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)

	if err := h.svc.Authorize(c.Request.Context(), id); err != nil {
		respondError(c, err, h.log)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "Invalid upload", err, h.log)
		return
	}

	contentType := c.GetHeader("Content-Type")
	if !hasFilePart(body, contentType) {
		respondMessage(c, http.StatusBadRequest, "No file uploaded", nil, h.log)
		return
	}

	out, err := h.svc.Forward(c.Request.Context(), body, contentType)
	if err != nil {
		respondError(c, err, h.log)
		return
	}

	ct := out.ContentType
	if ct == "" {
		ct = "application/json"
	}
	c.Data(out.Status, ct, out.Body)
}

// hasFilePart reports whether the multipart body has a non-empty part
// named "file".
func hasFilePart(body []byte, contentType string) bool {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" || params["boundary"] == "" {
		return false
	}

	mr := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	for {
		part, err := mr.NextPart()
		if err != nil {
			return false
		}
		if part.FormName() == uploadFileField {
			n, _ := io.CopyN(io.Discard, part, 1)
			return n > 0
		}
	}
}
