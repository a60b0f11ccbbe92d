package http

import (
	"net/http"

	"equity-research/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupStocks(base *echo.Group) {
	v1 := base.Group("/v1/stocks")
	{
		v1.POST("", h.CreateStock)
		v1.GET("", h.ListStocks)
		v1.GET("/:id", h.GetStock)
		v1.PUT("/:id", h.UpdateStock)
		v1.DELETE("/:id", h.DeleteStock)
	}
}

func (h *HttpAPIHandler) CreateStock(c echo.Context) error {
	var req dto.UpsertStockRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	stock, err := h.service.StockService.Create(c.Request().Context(), req)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, dto.NewBaseResponse(http.StatusCreated, "Stock created", stock))
}

func (h *HttpAPIHandler) ListStocks(c echo.Context) error {
	stocks, err := h.service.StockService.List(c.Request().Context())
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", stocks))
}

func (h *HttpAPIHandler) GetStock(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	stock, err := h.service.StockService.Get(c.Request().Context(), id)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", stock))
}

func (h *HttpAPIHandler) UpdateStock(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	var req dto.UpsertStockRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	stock, err := h.service.StockService.Update(c.Request().Context(), id, req)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Stock updated", stock))
}

func (h *HttpAPIHandler) DeleteStock(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	if err := h.service.StockService.Delete(c.Request().Context(), id); err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Stock deleted", nil))
}
