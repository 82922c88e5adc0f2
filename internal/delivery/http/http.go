package http

import (
	"context"

	"krx-autotrade/internal/repository"
	"krx-autotrade/internal/service"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type HttpAPIHandler struct {
	echo      *echo.Echo
	validator *goValidator.Validate
	service   *service.Service
	repo      *repository.Repository
}

func NewHttpAPIHandler(ctx context.Context, echo *echo.Echo, validator *goValidator.Validate, service *service.Service, repo *repository.Repository) *HttpAPIHandler {
	return &HttpAPIHandler{
		echo:      echo,
		validator: validator,
		service:   service,
		repo:      repo,
	}
}

func (h *HttpAPIHandler) SetupRoutes() {
	base := h.echo.Group("/api")
	h.SetupLots(base)
	h.SetupTriggers(base)
	h.SetupWatchlist(base)
	h.SetupJobs(base)
}
