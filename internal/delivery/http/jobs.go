package http

import (
	"net/http"

	"equity-research/internal/dto"
	"equity-research/internal/model"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupJobs(base *echo.Group) {
	v1 := base.Group("/v1/jobs")
	{
		v1.POST("", h.CreateJob)
		v1.GET("", h.ListJobs)
		v1.GET("/:id", h.GetJob)
		v1.POST("/:id/cancel", h.CancelJob)
		v1.POST("/:id/retry", h.RetryJob)
		v1.PUT("/:id/favorite", h.SetJobFavorite)
		v1.DELETE("/:id", h.DeleteJob)
	}
}

func (h *HttpAPIHandler) CreateJob(c echo.Context) error {
	var req dto.CreateJobRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	job, err := h.service.JobService.Create(c.Request().Context(), req)
	if err != nil {
		return h.errorResponse(c, err)
	}
	h.service.JobService.StartAsync(job.ID)

	return c.JSON(http.StatusCreated, dto.NewBaseResponse(http.StatusCreated, "Research job created", job))
}

func (h *HttpAPIHandler) ListJobs(c echo.Context) error {
	var req dto.ListJobsRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	param := &model.GetResearchJobParam{}
	if req.Status != "" {
		status := model.JobStatus(req.Status)
		param.Status = &status
	}
	if req.Provider != "" {
		param.Provider = &req.Provider
	}
	if req.Limit > 0 {
		param.Limit = &req.Limit
	}

	jobs, err := h.service.JobService.List(c.Request().Context(), param)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", jobs))
}

func (h *HttpAPIHandler) GetJob(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	job, err := h.service.JobService.Get(c.Request().Context(), id)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", job))
}

func (h *HttpAPIHandler) CancelJob(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	if err := h.service.JobService.Cancel(c.Request().Context(), id); err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Research job cancelled", nil))
}

func (h *HttpAPIHandler) RetryJob(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	job, err := h.service.JobService.Retry(c.Request().Context(), id)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Research job queued for retry", job))
}

func (h *HttpAPIHandler) SetJobFavorite(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	var req dto.FavoriteRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	if err := h.service.JobService.SetFavorite(c.Request().Context(), id, req.Favorite); err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Favorite updated", nil))
}

func (h *HttpAPIHandler) DeleteJob(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	if err := h.service.JobService.Delete(c.Request().Context(), id); err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Research job deleted", nil))
}
