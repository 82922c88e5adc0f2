package http

import (
	"net/http"
	"time"

	"krx-autotrade/internal/dto"
	"krx-autotrade/internal/model"
	"krx-autotrade/pkg/utils"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupLots(base *echo.Group) {
	v1 := base.Group("/v1/lots")
	{
		v1.GET("", h.GetLots)
		v1.GET("/summary", h.GetLotSummaries)
	}
}

func (h *HttpAPIHandler) GetLots(c echo.Context) error {
	req := new(dto.GetLotsRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid query parameters"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	param := model.GetLotsParam{
		StockCode: req.StockCode,
	}
	if req.OpenOnly {
		param.IsClosed = utils.ToPointer(false)
	}
	if req.FromDate != "" {
		from, _ := time.ParseInLocation("2006-01-02", req.FromDate, utils.GetKSTLocation())
		param.DateFrom = &from
	}
	if req.ToDate != "" {
		to, _ := time.ParseInLocation("2006-01-02", req.ToDate, utils.GetKSTLocation())
		param.DateTo = &to
	}
	if req.Limit > 0 {
		param.Limit = &req.Limit
	}

	lots, err := h.repo.LotRepo.Get(c.Request().Context(), param)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewInternalErrorResponse("failed to get lots"))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", lots))
}

func (h *HttpAPIHandler) GetLotSummaries(c echo.Context) error {
	summaries, err := h.repo.LotRepo.GetOpenSummaries(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewInternalErrorResponse("failed to get lot summaries"))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", summaries))
}
