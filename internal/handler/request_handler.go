package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lnhs-portal/docrequest-api/internal/models"
	"github.com/lnhs-portal/docrequest-api/internal/service"
	appErrors "github.com/lnhs-portal/docrequest-api/pkg/errors"
	"github.com/lnhs-portal/docrequest-api/pkg/response"
	"github.com/lnhs-portal/docrequest-api/pkg/storage"
)

// maxMultipartMemory bounds the in-memory portion of multipart parsing.
const maxMultipartMemory = 10 << 20

// RequestHandler wires document request endpoints.
type RequestHandler struct {
	service *service.RequestService
	files   *storage.LocalStorage
}

// NewRequestHandler creates a new handler.
func NewRequestHandler(svc *service.RequestService, files *storage.LocalStorage) *RequestHandler {
	return &RequestHandler{service: svc, files: files}
}

// Submit accepts a multipart form with the request fields and any
// supporting files. File parts keep their form field name as the upload
// type so "valid_id" and "requirements" land distinguishable.
func (h *RequestHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart form"))
		return
	}

	input := models.SubmitRequestInput{
		DocumentTypeID: c.PostForm("document_type_id"),
		Purpose:        c.PostForm("purpose"),
		Quantity:       queryFormInt(c, "quantity", 1),
	}
	if raw := c.PostForm("preferred_release_date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.New(appErrors.ErrValidation.Code, http.StatusBadRequest, "preferred_release_date must be YYYY-MM-DD"))
			return
		}
		input.PreferredReleaseDate = &t
	}

	uploads, err := collectUploads(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	input.Files = uploads

	req, err := h.service.Submit(c.Request.Context(), claims.UserID, c.ClientIP(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, req)
}

// List returns requests. Requesters only ever see their own; the back
// office may filter across all users.
func (h *RequestHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.RequestFilter{
		Search:   c.Query("search"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
	if isBackOffice(claims) {
		filter.UserID = c.Query("user_id")
	} else {
		filter.UserID = claims.UserID
	}
	if raw := c.Query("status"); raw != "" {
		status := models.RequestStatus(raw)
		if !status.Valid() {
			response.Error(c, appErrors.New(appErrors.ErrValidation.Code, http.StatusBadRequest, "unknown status filter"))
			return
		}
		filter.Status = &status
	}
	if raw := c.Query("date_from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.New(appErrors.ErrValidation.Code, http.StatusBadRequest, "date_from must be YYYY-MM-DD"))
			return
		}
		filter.DateFrom = &t
	}
	if raw := c.Query("date_to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.New(appErrors.ErrValidation.Code, http.StatusBadRequest, "date_to must be YYYY-MM-DD"))
			return
		}
		filter.DateTo = &t
	}

	requests, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get returns a single request with detail fields.
func (h *RequestHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"), ownerScope(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// History returns the status trail for a request.
func (h *RequestHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	history, err := h.service.History(c.Request.Context(), c.Param("id"), ownerScope(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// Files lists the attachments on a request.
func (h *RequestHandler) Files(c *gin.Context) {
	claims := claimsFromContext(c)
	files, err := h.service.Files(c.Request.Context(), c.Param("id"), ownerScope(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, files, nil)
}

// DownloadFile streams an attachment to its owner or the back office.
func (h *RequestHandler) DownloadFile(c *gin.Context) {
	claims := claimsFromContext(c)
	file, err := h.service.FileByID(c.Request.Context(), c.Param("fileId"), ownerScope(claims))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.streamFile(c, file)
}

func (h *RequestHandler) streamFile(c *gin.Context, file *models.RequestFile) {
	f, err := h.files.Open(file.StoredPath)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrNotFound.Code, http.StatusNotFound, "stored file is missing"))
		return
	}
	defer f.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	c.Header("Content-Type", file.ContentType)
	c.Status(http.StatusOK)
	io.Copy(c.Writer, f)
}

// FileLink issues a signed, short-lived download token for a file.
func (h *RequestHandler) FileLink(c *gin.Context) {
	claims := claimsFromContext(c)
	link, err := h.service.FileLink(c.Request.Context(), c.Param("fileId"), ownerScope(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download redeems a signed token and streams the file. The token is
// the authorization, so this route sits outside the JWT group.
func (h *RequestHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.New(appErrors.ErrValidation.Code, http.StatusBadRequest, "token is required"))
		return
	}

	file, err := h.service.RedeemFileLink(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.streamFile(c, file)
}

// UpdateStatus moves a request through its lifecycle.
func (h *RequestHandler) UpdateStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	var input models.UpdateStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	req, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), claims.UserID, c.ClientIP(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, req, nil)
}

// UpdatePayment records a payment status change.
func (h *RequestHandler) UpdatePayment(c *gin.Context) {
	claims := claimsFromContext(c)
	var input models.UpdatePaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}

	if err := h.service.UpdatePayment(c.Request.Context(), c.Param("id"), claims.UserID, c.ClientIP(), input); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ClaimSlip renders the printable claim slip for a ready request.
func (h *RequestHandler) ClaimSlip(c *gin.Context) {
	claims := claimsFromContext(c)
	slip, err := h.service.ClaimSlip(c.Request.Context(), c.Param("id"), ownerScope(claims))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "claim_slip_"+c.Param("id")+".pdf"))
	c.Data(http.StatusOK, "application/pdf", slip)
}

// ownerScope maps the caller's claims to the service's owner argument:
// back office callers see everything, requesters only their own rows.
func ownerScope(claims *models.JWTClaims) string {
	if claims == nil {
		return ""
	}
	if isBackOffice(claims) {
		return ""
	}
	return claims.UserID
}

// collectUploads drains every file part of the parsed multipart form,
// tagging each upload with the form field it arrived under.
func collectUploads(c *gin.Context) ([]models.FileUpload, error) {
	form := c.Request.MultipartForm
	if form == nil {
		return nil, nil
	}

	var uploads []models.FileUpload
	for field, headers := range form.File {
		for _, header := range headers {
			f, err := header.Open()
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "could not read uploaded file")
			}
			content, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "could not read uploaded file")
			}
			uploads = append(uploads, models.FileUpload{
				FileName:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Size:        header.Size,
				UploadType:  field,
				Content:     content,
			})
		}
	}
	return uploads, nil
}
