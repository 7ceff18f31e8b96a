package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	operationalapp "github.com/estudiomd/backoffice/internal/application/operational"
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// pdfField is the multipart field carrying declaration documents
const pdfField = "pdf_file"

// OperationalHandler handles the tax filing calendar of clients
type OperationalHandler struct {
	BaseHandler
	operationalService *operationalapp.OperationalService
}

// NewOperationalHandler creates a new OperationalHandler
func NewOperationalHandler(operationalService *operationalapp.OperationalService) *OperationalHandler {
	return &OperationalHandler{
		operationalService: operationalService,
	}
}

// Get returns the operational control of a year, opening it on first access
// GET /api/v1/clients/:id/operational/?year=
func (h *OperationalHandler) Get(c *gin.Context) {
	clientID, err := pathUUID(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	year, err := yearQuery(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	control, err := h.operationalService.GetOrCreate(c.Request.Context(), clientID, year)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, control)
}

// SetPresentationDate upserts the presentation date of a month
// POST /api/v1/clients/:id/operational/?year=
func (h *OperationalHandler) SetPresentationDate(c *gin.Context) {
	clientID, err := pathUUID(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	year, err := yearQuery(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	req := operationalapp.PresentationDateRequest{Year: year}
	if !h.BindJSON(c, &req) {
		return
	}

	control, err := h.operationalService.SetPresentationDate(c.Request.Context(), clientID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, control)
}

// FileTax files a PDT against a monthly declaration
// POST /api/v1/clients/:id/declarations/:did/tax/
func (h *OperationalHandler) FileTax(c *gin.Context) {
	userID, _, err := currentUser(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	clientID, declarationID, ok := h.twoIDs(c, "id", "did")
	if !ok {
		return
	}
	var req operationalapp.FileTaxRequest
	if !h.bind(c, c.ShouldBind(&req)) {
		return
	}
	pdf, closeFn, ok := h.pdfUpload(c)
	if !ok {
		return
	}
	defer closeFn()

	td, err := h.operationalService.FileTaxDeclaration(c.Request.Context(),
		operationalapp.Actor{UserID: userID}, clientID, declarationID, req, pdf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, td)
}

// UpdateTax edits a filed PDT
// PUT /api/v1/clients/:id/declarations/:did/tax/:tid/
func (h *OperationalHandler) UpdateTax(c *gin.Context) {
	clientID, declarationID, ok := h.twoIDs(c, "id", "did")
	if !ok {
		return
	}
	taxID, err := pathUUID(c, "tid")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	var req operationalapp.UpdateTaxRequest
	if !h.bind(c, c.ShouldBind(&req)) {
		return
	}
	pdf, closeFn, ok := h.pdfUpload(c)
	if !ok {
		return
	}
	defer closeFn()

	td, err := h.operationalService.UpdateTaxDeclaration(c.Request.Context(), clientID, declarationID, taxID, req, pdf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, td)
}

// DeleteTax removes a filed PDT and its document
// DELETE /api/v1/clients/:id/declarations/:did/tax/:tid/
func (h *OperationalHandler) DeleteTax(c *gin.Context) {
	clientID, declarationID, ok := h.twoIDs(c, "id", "did")
	if !ok {
		return
	}
	taxID, err := pathUUID(c, "tid")
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if err := h.operationalService.DeleteTaxDeclaration(c.Request.Context(), clientID, declarationID, taxID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ListAdditional returns the additional PDTs of a year
// GET /api/v1/clients/:id/additional-pdts/?year=
func (h *OperationalHandler) ListAdditional(c *gin.Context) {
	clientID, err := pathUUID(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	year, err := yearQuery(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items, err := h.operationalService.ListAdditionalPDTs(c.Request.Context(), clientID, year)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// CreateAdditional registers an additional PDT
// POST /api/v1/clients/:id/additional-pdts/?year=
func (h *OperationalHandler) CreateAdditional(c *gin.Context) {
	userID, _, err := currentUser(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	clientID, err := pathUUID(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	year, err := yearQuery(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	req := operationalapp.AdditionalPDTRequest{Year: year}
	if !h.bind(c, c.ShouldBind(&req)) {
		return
	}
	pdf, closeFn, ok := h.pdfUpload(c)
	if !ok {
		return
	}
	defer closeFn()

	item, err := h.operationalService.CreateAdditionalPDT(c.Request.Context(),
		operationalapp.Actor{UserID: userID}, clientID, req, pdf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

// GetAdditional returns one additional PDT
// GET /api/v1/clients/:id/additional-pdts/:pid/
func (h *OperationalHandler) GetAdditional(c *gin.Context) {
	clientID, id, ok := h.twoIDs(c, "id", "pid")
	if !ok {
		return
	}

	item, err := h.operationalService.GetAdditionalPDT(c.Request.Context(), clientID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// UpdateAdditional edits an additional PDT
// PATCH /api/v1/clients/:id/additional-pdts/:pid/
func (h *OperationalHandler) UpdateAdditional(c *gin.Context) {
	clientID, id, ok := h.twoIDs(c, "id", "pid")
	if !ok {
		return
	}
	var req operationalapp.UpdateAdditionalPDTRequest
	if !h.bind(c, c.ShouldBind(&req)) {
		return
	}
	pdf, closeFn, ok := h.pdfUpload(c)
	if !ok {
		return
	}
	defer closeFn()

	item, err := h.operationalService.UpdateAdditionalPDT(c.Request.Context(), clientID, id, req, pdf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// DeleteAdditional removes an additional PDT and its document
// DELETE /api/v1/clients/:id/additional-pdts/:pid/
func (h *OperationalHandler) DeleteAdditional(c *gin.Context) {
	clientID, id, ok := h.twoIDs(c, "id", "pid")
	if !ok {
		return
	}

	if err := h.operationalService.DeleteAdditionalPDT(c.Request.Context(), clientID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// pdfUpload opens the optional pdf_file part of a multipart request. A nil
// upload means no document was sent.
func (h *OperationalHandler) pdfUpload(c *gin.Context) (*operationalapp.Upload, func(), bool) {
	noop := func() {}
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, noop, true
	}

	header, err := c.FormFile(pdfField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop, true
	}
	if err != nil {
		h.HandleError(c, shared.NewFieldError(pdfField, "Could not read the uploaded file"))
		return nil, noop, false
	}

	file, err := header.Open()
	if err != nil {
		h.HandleError(c, err)
		return nil, noop, false
	}
	return uploadFrom(header, file), func() { _ = file.Close() }, true
}

func uploadFrom(header *multipart.FileHeader, file multipart.File) *operationalapp.Upload {
	return &operationalapp.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
}

func (h *OperationalHandler) twoIDs(c *gin.Context, first, second string) (uuid.UUID, uuid.UUID, bool) {
	a, err := pathUUID(c, first)
	if err != nil {
		h.HandleError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	b, err := pathUUID(c, second)
	if err != nil {
		h.HandleError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	return a, b, true
}
