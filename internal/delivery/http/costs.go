package http

import (
	"net/http"

	"equity-research/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupCosts(base *echo.Group) {
	v1 := base.Group("/v1/costs")
	{
		v1.GET("/summary", h.CostSummary)
	}
}

func (h *HttpAPIHandler) CostSummary(c echo.Context) error {
	summary, err := h.service.CostService.MonthlySummary(c.Request().Context())
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", summary))
}
