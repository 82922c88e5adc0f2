package http

import (
	"net/http"

	"krx-autotrade/internal/dto"
	"krx-autotrade/internal/model"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupWatchlist(base *echo.Group) {
	v1 := base.Group("/v1/watchlist")
	{
		v1.GET("", h.GetWatchlist)
		v1.POST("", h.UpsertWatchlistItem)
		v1.PATCH("/:stock_code/active", h.SetWatchlistActive)
	}
}

func (h *HttpAPIHandler) GetWatchlist(c echo.Context) error {
	items, err := h.repo.WatchlistRepo.GetActive(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewInternalErrorResponse("failed to get watchlist"))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", items))
}

func (h *HttpAPIHandler) UpsertWatchlistItem(c echo.Context) error {
	req := new(dto.UpsertWatchlistRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	maxUnits := req.MaxUnits
	if maxUnits <= 0 {
		maxUnits = 1
	}
	item := &model.WatchlistItem{
		StockCode:      req.StockCode,
		StockName:      req.StockName,
		ReferencePrice: req.ReferencePrice,
		StopLossPct:    req.StopLossPct,
		MaxUnits:       maxUnits,
		IsActive:       true,
	}
	if err := h.repo.WatchlistRepo.Upsert(c.Request().Context(), item); err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewInternalErrorResponse("failed to upsert watchlist item"))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", item))
}

func (h *HttpAPIHandler) SetWatchlistActive(c echo.Context) error {
	stockCode := c.Param("stock_code")

	req := new(dto.SetWatchlistActiveRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	ctx := c.Request().Context()
	if item, err := h.repo.WatchlistRepo.FindByCode(ctx, stockCode); err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewInternalErrorResponse("failed to find watchlist item"))
	} else if item == nil {
		return c.JSON(http.StatusNotFound, dto.NewBaseResponse(http.StatusNotFound, "watchlist item not found", nil))
	}

	if err := h.repo.WatchlistRepo.SetActive(ctx, stockCode, *req.Active); err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewInternalErrorResponse("failed to update watchlist item"))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", nil))
}
