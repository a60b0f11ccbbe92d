package http

import (
	"context"
	"errors"
	"net/http"

	"equity-research/internal/dto"
	"equity-research/internal/service"
	"equity-research/pkg/middleware"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type HttpAPIHandler struct {
	echo      *echo.Echo
	validator *goValidator.Validate
	service   *service.Service
}

func NewHttpAPIHandler(ctx context.Context, echo *echo.Echo, validator *goValidator.Validate, service *service.Service) *HttpAPIHandler {
	return &HttpAPIHandler{
		echo:      echo,
		validator: validator,
		service:   service,
	}
}

func (h *HttpAPIHandler) SetupRoutes() {
	base := h.echo.Group("/api")
	base.Use(middleware.NewRateLimiterMiddleware())
	h.SetupJobs(base)
	h.SetupSchedules(base)
	h.SetupWebhooks(base)
	h.SetupStocks(base)
	h.SetupPrompts(base)
	h.SetupCosts(base)
}

// errorResponse maps service errors onto HTTP statuses: validation problems
// are 400, the admission ceiling is 429, state-machine violations are 409,
// missing resources are 404, bad webhook signatures are 401.
func (h *HttpAPIHandler) errorResponse(c echo.Context, err error) error {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrTooManyActiveJobs):
		code = http.StatusTooManyRequests
	case errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, service.ErrPromptNotFound),
		errors.Is(err, service.ErrScheduleNotFound),
		errors.Is(err, service.ErrStockNotFound):
		code = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrDeleteNonTerminal):
		code = http.StatusConflict
	case errors.Is(err, service.ErrUnknownProvider),
		errors.Is(err, service.ErrInvalidScheduleSpec):
		code = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidSignature):
		code = http.StatusUnauthorized
	}
	return c.JSON(code, dto.NewBaseResponse(code, err.Error(), nil))
}

func (h *HttpAPIHandler) bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return h.validator.Struct(req)
}

func uintParam(c echo.Context, name string) (uint, error) {
	var id uint
	if err := echo.PathParamsBinder(c).Uint(name, &id).BindError(); err != nil {
		return 0, err
	}
	return id, nil
}
