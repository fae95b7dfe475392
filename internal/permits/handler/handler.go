package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"zoning_portal_backend/internal/permits/certificate"
	"zoning_portal_backend/internal/permits/service"
	"zoning_portal_backend/internal/permits/transport"
	"zoning_portal_backend/internal/permits/workflow"
	"zoning_portal_backend/platform/apperr"
	"zoning_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	msgInvalidRequest = "invalid request"
	msgInvalidID      = "invalid id"

	formReceipt       = "receipt"
	formAmount        = "amount"
	formPaymentMethod = "paymentMethod"
	formPaymentDate   = "paymentDate"

	paymentDateLayout = "2006-01-02"
	maxReceiptBytes   = 10 << 20
)

// Certificates serves issued certificate files and re-issues.
type Certificates interface {
	Download(ctx context.Context, certificateID int64, actor workflow.Actor) (certificate.Download, error)
	Reissue(ctx context.Context, paymentID int64, actor string) (certificate.Result, error)
}

// ReissueQueue defers a certificate re-issue to the background worker.
type ReissueQueue interface {
	EnqueueReissue(ctx context.Context, paymentID int64, actor string) (string, error)
}

// Handler serves the permit workflow over HTTP.
type Handler struct {
	svc   *service.Service
	certs Certificates
	queue ReissueQueue
}

// New creates a Handler. Re-issues run inline until SetReissueQueue is called.
func New(svc *service.Service, certs Certificates) *Handler {
	return &Handler{svc: svc, certs: certs}
}

// SetReissueQueue routes re-issues through the background queue. Without a
// queue they run inline.
func (h *Handler) SetReissueQueue(q ReissueQueue) {
	h.queue = q
}

// RegisterRoutes mounts the applicant-facing routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/requests", h.Submit)
	rg.GET("/requests", h.ListRequests)
	rg.GET("/requests/stats", h.Stats)
	rg.GET("/requests/:id", h.GetRequest)
	rg.POST("/requests/:id/payments", h.SubmitPayment)
	rg.GET("/payments/:id/receipt", h.ReceiptURL)
	rg.GET("/certificates/:id/download", h.DownloadCertificate)
}

// RegisterAdminRoutes mounts the staff routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/reports/:id/evaluate", h.Evaluate)
	rg.POST("/reports/:id/approve", h.Approve)
	rg.POST("/reports/:id/reject", h.Reject)
	rg.POST("/requests/bulk-approve", h.BulkApprove)
	rg.POST("/requests/bulk-reject", h.BulkReject)
	rg.POST("/requests/bulk-delete", h.BulkDelete)
	rg.GET("/requests/export", h.Export)
	rg.POST("/payments/:id/verify", h.VerifyPayment)
	rg.POST("/payments/:id/reject", h.RejectPayment)
	rg.POST("/certificates/reissue", h.Reissue)
	rg.GET("/history", h.ListHistory)
	rg.GET("/reconciliation/ambiguities", h.Ambiguities)
}

func actorFrom(c *gin.Context) (workflow.Actor, bool) {
	id, ok := httpkit.MustGetIdentity(c)
	if !ok {
		return workflow.Actor{}, false
	}
	return workflow.Actor{
		ID:      id.UserID,
		Name:    id.Name,
		IsAdmin: id.HasRole(httpkit.RoleAdmin),
	}, true
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return 0, false
	}
	return id, true
}

// Submit handles POST /requests.
func (h *Handler) Submit(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req transport.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	resp, err := h.svc.Submit(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}

// ListRequests handles GET /requests with status, search and paging filters.
func (h *Handler) ListRequests(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req transport.ListRequestsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	resp, err := h.svc.ListRequests(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// Stats handles GET /requests/stats.
func (h *Handler) Stats(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.Stats(c.Request.Context(), actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// GetRequest handles GET /requests/:id.
func (h *Handler) GetRequest(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	resp, err := h.svc.GetRequest(c.Request.Context(), id, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// SubmitPayment accepts a multipart form with the receipt file.
func (h *Handler) SubmitPayment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	req, err := paymentFromForm(c)
	if httpkit.HandleError(c, err) {
		return
	}
	receipt, err := receiptFromForm(c)
	if httpkit.HandleError(c, err) {
		return
	}

	resp, err := h.svc.SubmitPayment(c.Request.Context(), id, actor, req, receipt)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}

func paymentFromForm(c *gin.Context) (transport.SubmitPaymentRequest, error) {
	amount, err := decimal.NewFromString(c.PostForm(formAmount))
	if err != nil {
		return transport.SubmitPaymentRequest{}, apperr.FieldInvalid(formAmount, "must be a number")
	}
	req := transport.SubmitPaymentRequest{
		Amount:        amount,
		PaymentMethod: c.PostForm(formPaymentMethod),
	}
	if raw := c.PostForm(formPaymentDate); raw != "" {
		date, err := time.Parse(paymentDateLayout, raw)
		if err != nil {
			return transport.SubmitPaymentRequest{}, apperr.FieldInvalid(formPaymentDate, "must be YYYY-MM-DD")
		}
		req.PaymentDate = &date
	}
	return req, nil
}

func receiptFromForm(c *gin.Context) (transport.Receipt, error) {
	file, err := c.FormFile(formReceipt)
	if err != nil {
		return transport.Receipt{}, apperr.FieldInvalid(formReceipt, "is required")
	}
	if file.Size > maxReceiptBytes {
		return transport.Receipt{}, apperr.FieldInvalid(formReceipt, "is too large")
	}
	f, err := file.Open()
	if err != nil {
		return transport.Receipt{}, apperr.FieldInvalid(formReceipt, "could not be read")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxReceiptBytes+1))
	if err != nil {
		return transport.Receipt{}, apperr.FieldInvalid(formReceipt, "could not be read")
	}
	if len(data) > maxReceiptBytes {
		return transport.Receipt{}, apperr.FieldInvalid(formReceipt, "is too large")
	}

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return transport.Receipt{FileName: file.Filename, ContentType: contentType, Data: data}, nil
}

// ReceiptURL returns a short-lived download link for a payment receipt.
func (h *Handler) ReceiptURL(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	resp, err := h.svc.ReceiptURL(c.Request.Context(), id, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// DownloadCertificate streams the certificate PDF. The first download by the
// owner marks the certificate downloaded.
func (h *Handler) DownloadCertificate(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	dl, err := h.certs.Download(c.Request.Context(), id, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(dl.FileName))
	c.Data(http.StatusOK, "application/pdf", dl.Content)
}

// Evaluate handles POST /admin/reports/:id/evaluate, the only route back to pending.
func (h *Handler) Evaluate(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	resp, err := h.svc.Evaluate(c.Request.Context(), id, actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// Approve handles POST /admin/reports/:id/approve.
func (h *Handler) Approve(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.ApproveRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}

	resp, err := h.svc.Approve(c.Request.Context(), id, actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// Reject handles POST /admin/reports/:id/reject. A reason is required.
func (h *Handler) Reject(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	resp, err := h.svc.Reject(c.Request.Context(), id, actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// BulkApprove approves the reports of several requests. Per-item failures are returned in the body.
func (h *Handler) BulkApprove(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req transport.BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	resp, err := h.svc.BulkApprove(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// BulkReject rejects several requests with one reason.
func (h *Handler) BulkReject(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req transport.BulkRejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	resp, err := h.svc.BulkReject(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// BulkDelete removes several requests.
func (h *Handler) BulkDelete(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req transport.BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	resp, err := h.svc.BulkDelete(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// VerifyPayment verifies a pending payment and issues its certificate.
func (h *Handler) VerifyPayment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	resp, err := h.svc.VerifyPayment(c.Request.Context(), id, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// RejectPayment rejects a pending payment with a reason.
func (h *Handler) RejectPayment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	resp, err := h.svc.RejectPayment(c.Request.Context(), id, actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// Reissue queues a certificate re-issue, or runs it inline when no queue is
// configured.
func (h *Handler) Reissue(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req transport.ReissueRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PaymentID <= 0 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if h.queue != nil {
		taskID, err := h.queue.EnqueueReissue(c.Request.Context(), req.PaymentID, actor.Label())
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.JSON(c, http.StatusAccepted, transport.ReissueQueuedResponse{TaskID: taskID, PaymentID: req.PaymentID})
		return
	}

	result, err := h.certs.Reissue(c.Request.Context(), req.PaymentID, actor.Label())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{
		"certificate": service.ToCertificateResponse(result.Certificate),
		"sideEffects": result.SideEffects,
	})
}

// ListHistory returns the status history of one entity.
func (h *Handler) ListHistory(c *gin.Context) {
	var req transport.ListHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	resp, err := h.svc.ListHistory(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// Ambiguities lists composite keys shared by more than one application.
func (h *Handler) Ambiguities(c *gin.Context) {
	items, err := h.svc.Ambiguities(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}
