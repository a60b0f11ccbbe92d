package http

import (
	"net/http"

	"equity-research/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupSchedules(base *echo.Group) {
	v1 := base.Group("/v1/schedules")
	{
		v1.POST("", h.CreateSchedule)
		v1.GET("", h.ListSchedules)
		v1.GET("/:id", h.GetSchedule)
		v1.PUT("/:id", h.UpdateSchedule)
		v1.POST("/:id/toggle", h.ToggleSchedule)
		v1.DELETE("/:id", h.DeleteSchedule)
	}

	scheduler := base.Group("/v1/scheduler")
	{
		scheduler.GET("/pause", h.GetSchedulerPause)
		scheduler.PUT("/pause", h.SetSchedulerPause)
	}
}

func (h *HttpAPIHandler) CreateSchedule(c echo.Context) error {
	var req dto.CreateScheduleRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	schedule, err := h.service.SchedulerService.CreateSchedule(c.Request().Context(), req)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, dto.NewBaseResponse(http.StatusCreated, "Schedule created", schedule))
}

func (h *HttpAPIHandler) ListSchedules(c echo.Context) error {
	schedules, err := h.service.SchedulerService.ListSchedules(c.Request().Context())
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", schedules))
}

func (h *HttpAPIHandler) GetSchedule(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	schedule, err := h.service.SchedulerService.GetSchedule(c.Request().Context(), id)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", schedule))
}

func (h *HttpAPIHandler) UpdateSchedule(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	var req dto.UpdateScheduleRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	schedule, err := h.service.SchedulerService.UpdateSchedule(c.Request().Context(), id, req)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Schedule updated", schedule))
}

func (h *HttpAPIHandler) ToggleSchedule(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	var req dto.ToggleScheduleRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	schedule, err := h.service.SchedulerService.ToggleSchedule(c.Request().Context(), id, req.Enabled)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Schedule toggled", schedule))
}

func (h *HttpAPIHandler) DeleteSchedule(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	if err := h.service.SchedulerService.DeleteSchedule(c.Request().Context(), id); err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Schedule deleted", nil))
}

func (h *HttpAPIHandler) GetSchedulerPause(c echo.Context) error {
	paused, err := h.service.SchedulerService.IsPaused(c.Request().Context())
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", dto.PauseRequest{Paused: paused}))
}

func (h *HttpAPIHandler) SetSchedulerPause(c echo.Context) error {
	var req dto.PauseRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	if err := h.service.SchedulerService.SetGlobalPause(c.Request().Context(), req.Paused); err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Scheduler pause updated", dto.PauseRequest{Paused: req.Paused}))
}
