package http

import (
	"encoding/json"
	"io"
	"net/http"

	"equity-research/internal/dto"

	"github.com/labstack/echo/v4"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Webhook-Signature"

func (h *HttpAPIHandler) SetupWebhooks(base *echo.Group) {
	v1 := base.Group("/v1/webhooks")
	{
		v1.POST("/research", h.ResearchWebhook)
	}
}

// ResearchWebhook ingests provider completion callbacks. The signature is
// verified over the raw body before any parsing; duplicates and unknown jobs
// are acked with 200 so the provider stops retrying.
func (h *HttpAPIHandler) ResearchWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("failed to read request body"))
	}

	signature := c.Request().Header.Get(SignatureHeader)
	if err := h.service.WebhookService.VerifySignature(body, signature); err != nil {
		return h.errorResponse(c, err)
	}

	var payload dto.ResearchWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("malformed webhook payload"))
	}
	if err := h.validator.Struct(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	ack, err := h.service.WebhookService.HandleCallback(c.Request().Context(), payload)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", ack))
}
