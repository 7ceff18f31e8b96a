package handler

import (
	"net/http"

	financeapp "github.com/estudiomd/backoffice/internal/application/finance"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// FinanceHandler handles fiscal-year fees, payment slots and transactions
type FinanceHandler struct {
	BaseHandler
	financeService *financeapp.FinanceService
}

// NewFinanceHandler creates a new FinanceHandler
func NewFinanceHandler(financeService *financeapp.FinanceService) *FinanceHandler {
	return &FinanceHandler{
		financeService: financeService,
	}
}

// Get returns the fiscal year of a client, opening it on first access
// GET /api/v1/clients/:id/finance/?year=
func (h *FinanceHandler) Get(c *gin.Context) {
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

	f, err := h.financeService.GetOrCreate(c.Request.Context(), clientID, year)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, f)
}

// Configure sets the fees of a fiscal year. The year comes from the body and
// falls back to the year query parameter.
// POST /api/v1/clients/:id/finance/?year=
func (h *FinanceHandler) Configure(c *gin.Context) {
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

	req := financeapp.ConfigureFinanceRequest{Year: year}
	if !h.BindJSON(c, &req) {
		return
	}

	f, created, err := h.financeService.Configure(c.Request.Context(), clientID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if created {
		h.Created(c, f)
		return
	}
	h.Success(c, f)
}

// Summary returns the headline figures of a fiscal year
// GET /api/v1/clients/:id/finance/summary/?year=
func (h *FinanceHandler) Summary(c *gin.Context) {
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

	summary, err := h.financeService.Summary(c.Request.Context(), clientID, year)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// AvailableYears lists the fiscal years a client has records for
// GET /api/v1/clients/:id/finance/available-years/
func (h *FinanceHandler) AvailableYears(c *gin.Context) {
	clientID, err := pathUUID(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}

	years, err := h.financeService.AvailableYears(c.Request.Context(), clientID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, years)
}

// CheckAllocation is a dry run of the annual payment ceiling
// POST /api/v1/clients/:id/finance/allocation-check/
func (h *FinanceHandler) CheckAllocation(c *gin.Context) {
	clientID, err := pathUUID(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	var req financeapp.AllocationCheckRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.financeService.CheckAllocation(c.Request.Context(), clientID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GetPayment returns one monthly payment slot
// GET /api/v1/clients/:id/payments/:pid/
func (h *FinanceHandler) GetPayment(c *gin.Context) {
	clientID, paymentID, ok := h.clientAndPayment(c)
	if !ok {
		return
	}

	p, err := h.financeService.GetMonthlyPayment(c.Request.Context(), clientID, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// UpdatePayment edits the notes of a payment slot
// PATCH /api/v1/clients/:id/payments/:pid/
func (h *FinanceHandler) UpdatePayment(c *gin.Context) {
	clientID, paymentID, ok := h.clientAndPayment(c)
	if !ok {
		return
	}
	var req financeapp.UpdateMonthlyPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.financeService.UpdateMonthlyPayment(c.Request.Context(), clientID, paymentID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// RecordPayment books a payment transaction on a slot
// POST /api/v1/clients/:id/payments/:pid/transactions/
func (h *FinanceHandler) RecordPayment(c *gin.Context) {
	userID, _, err := currentUser(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	clientID, paymentID, ok := h.clientAndPayment(c)
	if !ok {
		return
	}
	var req financeapp.RecordPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.financeService.RecordPayment(c.Request.Context(), financeapp.Actor{UserID: userID}, clientID, paymentID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *FinanceHandler) clientAndPayment(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	clientID, err := pathUUID(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	paymentID, err := pathUUID(c, "pid")
	if err != nil {
		h.HandleError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	return clientID, paymentID, true
}

// CollectionHandler handles collection follow-up records of a client
type CollectionHandler struct {
	BaseHandler
	collectionService *financeapp.CollectionService
}

// NewCollectionHandler creates a new CollectionHandler
func NewCollectionHandler(collectionService *financeapp.CollectionService) *CollectionHandler {
	return &CollectionHandler{
		collectionService: collectionService,
	}
}

// List returns a page of collection records
// GET /api/v1/clients/:id/collections/
func (h *CollectionHandler) List(c *gin.Context) {
	clientID, err := pathUUID(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	var filter financeapp.CollectionListFilter
	if !h.BindQuery(c, &filter) {
		return
	}

	page, err := h.collectionService.List(c.Request.Context(), clientID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondList(c, page)
}

// Create records a collection contact
// POST /api/v1/clients/:id/collections/
func (h *CollectionHandler) Create(c *gin.Context) {
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
	var req financeapp.CollectionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	record, err := h.collectionService.Create(c.Request.Context(), financeapp.Actor{UserID: userID}, clientID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, record)
}

// Update edits a collection record
// PATCH /api/v1/clients/:id/collections/:rid/
func (h *CollectionHandler) Update(c *gin.Context) {
	clientID, recordID, ok := h.clientAndRecord(c)
	if !ok {
		return
	}
	var req financeapp.UpdateCollectionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	record, err := h.collectionService.Update(c.Request.Context(), clientID, recordID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, record)
}

// Delete removes a collection record
// DELETE /api/v1/clients/:id/collections/:rid/
func (h *CollectionHandler) Delete(c *gin.Context) {
	clientID, recordID, ok := h.clientAndRecord(c)
	if !ok {
		return
	}

	if err := h.collectionService.Delete(c.Request.Context(), clientID, recordID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *CollectionHandler) clientAndRecord(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	clientID, err := pathUUID(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	recordID, err := pathUUID(c, "rid")
	if err != nil {
		h.HandleError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	return clientID, recordID, true
}
