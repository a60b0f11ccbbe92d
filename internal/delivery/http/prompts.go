package http

import (
	"net/http"

	"equity-research/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupPrompts(base *echo.Group) {
	v1 := base.Group("/v1/prompts")
	{
		v1.POST("", h.CreatePrompt)
		v1.GET("", h.ListPrompts)
		v1.GET("/:id", h.GetPrompt)
		v1.PUT("/:id", h.UpdatePrompt)
		v1.DELETE("/:id", h.DeletePrompt)
	}
}

func (h *HttpAPIHandler) CreatePrompt(c echo.Context) error {
	var req dto.UpsertPromptRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	prompt, err := h.service.PromptService.Create(c.Request().Context(), req)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, dto.NewBaseResponse(http.StatusCreated, "Prompt created", prompt))
}

func (h *HttpAPIHandler) ListPrompts(c echo.Context) error {
	prompts, err := h.service.PromptService.List(c.Request().Context())
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", prompts))
}

func (h *HttpAPIHandler) GetPrompt(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	prompt, err := h.service.PromptService.Get(c.Request().Context(), id)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", prompt))
}

func (h *HttpAPIHandler) UpdatePrompt(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	var req dto.UpsertPromptRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	prompt, err := h.service.PromptService.Update(c.Request().Context(), id, req)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Prompt updated", prompt))
}

func (h *HttpAPIHandler) DeletePrompt(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	if err := h.service.PromptService.Delete(c.Request().Context(), id); err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Prompt deleted", nil))
}
