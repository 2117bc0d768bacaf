package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	ecaapp "github.com/erp/eca/internal/application/eca"
	"github.com/erp/eca/internal/domain/shared"
	"github.com/erp/eca/internal/infrastructure/logger"
	"github.com/erp/eca/internal/interfaces/http/dto"
	"github.com/erp/eca/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HeaderEventUUID carries the event fingerprint of a processed webhook
const HeaderEventUUID = "X-ECA-Event-UUID"

// EventProcessor is what the webhook handler needs from the ECA processor
type EventProcessor interface {
	Process(ctx context.Context, raw []byte) *ecaapp.ECAWebhookResponse
	Actions() []ecaapp.ActionInfo
}

// WebhookHandler exposes the ECA processor over HTTP
type WebhookHandler struct {
	processor EventProcessor
	maxBody   int64
	logger    *zap.Logger
}

// NewWebhookHandler creates a WebhookHandler. maxBody caps the request body;
// a non-positive value leaves it to upstream middleware.
func NewWebhookHandler(processor EventProcessor, maxBody int64, log *zap.Logger) *WebhookHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebhookHandler{processor: processor, maxBody: maxBody, logger: log}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	hooks := rg.Group("/webhooks")
	hooks.POST("/eca", h.Handle)
	hooks.GET("/eca/actions", h.ListActions)
}

// Handle godoc
// @ID           handleECAWebhook
// @Summary      Process a business event
// @Description  Validates the payload, upserts the entities and relationships it implies and moves its transaction through the state machine. The body is always an ECAWebhookResponse and the status code follows its error code.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        request body dto.WebhookRequest true "Webhook payload"
// @Success      200 {object} ecaapp.ECAWebhookResponse
// @Failure      400 {object} ecaapp.ECAWebhookResponse "VALIDATION_ERROR"
// @Failure      404 {object} ecaapp.ECAWebhookResponse "TENANT_NOT_FOUND"
// @Failure      409 {object} ecaapp.ECAWebhookResponse "INVALID_STATE_TRANSITION or CONCURRENCY_CONFLICT"
// @Failure      413 {object} ecaapp.ECAWebhookResponse "Body exceeds the configured limit"
// @Failure      422 {object} ecaapp.ECAWebhookResponse "RECORD_PROCESSING_ERROR"
// @Failure      500 {object} ecaapp.ECAWebhookResponse "STORAGE_ERROR"
// @Failure      504 {object} ecaapp.ECAWebhookResponse "DEADLINE_EXCEEDED"
// @Router       /api/v1/webhooks/eca [post]
func (h *WebhookHandler) Handle(c *gin.Context) {
	body := c.Request.Body
	if h.maxBody > 0 {
		body = http.MaxBytesReader(c.Writer, body, h.maxBody)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.Set(middleware.ErrorCodeKey, shared.CodeValidation)
			c.JSON(http.StatusRequestEntityTooLarge, middleware.BodyTooLargeResponse(tooLarge.Limit))
			return
		}
		logger.WithLogger(c.Request.Context(), h.logger).Warn("webhook body could not be read", zap.Error(err))
		h.write(c, ecaapp.ErrorResponse("",
			shared.NewDomainError(shared.CodeValidation, "Request body could not be read"), time.Now().UTC()))
		return
	}

	h.write(c, h.processor.Process(c.Request.Context(), raw))
}

func (h *WebhookHandler) write(c *gin.Context, resp *ecaapp.ECAWebhookResponse) {
	code := ""
	if resp.Error != nil {
		code = resp.Error.Code
		c.Set(middleware.ErrorCodeKey, code)
	}
	if resp.Action != "" {
		c.Set(middleware.ActionKey, resp.Action)
	}
	if resp.Metadata.OrganizationID != "" {
		c.Set(middleware.OrganizationIDKey, resp.Metadata.OrganizationID)
	}
	if resp.Metadata.EventUUID != "" {
		c.Header(HeaderEventUUID, resp.Metadata.EventUUID)
	}
	if dto.IsRetryable(code) {
		c.Header("Retry-After", "1")
	}
	if resp.Error != nil {
		_ = c.Error(errors.New(resp.Error.Code + ": " + resp.Error.Message))
	}
	c.JSON(dto.GetHTTPStatus(code), resp)
}

// ListActions godoc
// @ID           listECAActions
// @Summary      List webhook actions
// @Description  Describes every accepted action with its transaction type, initial state, declared states and failure policy
// @Tags         webhooks
// @Produce      json
// @Success      200 {object} dto.ActionsResponse
// @Router       /api/v1/webhooks/eca/actions [get]
func (h *WebhookHandler) ListActions(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewActionsResponse(h.processor.Actions()))
}

// RecoveryResponse writes the webhook failure shape for a recovered panic.
// Use it as the respond callback of logger.Recovery.
func RecoveryResponse(c *gin.Context) {
	c.Set(middleware.ErrorCodeKey, shared.CodeInternal)
	err := shared.NewDomainError(shared.CodeInternal, "Internal server error").
		WithDetails(map[string]any{"request_id": getRequestID(c)})
	c.JSON(http.StatusInternalServerError, ecaapp.ErrorResponse("", err, time.Now().UTC()))
}
