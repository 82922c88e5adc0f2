package http

import (
	"net/http"
	"time"

	"krx-autotrade/internal/dto"
	"krx-autotrade/internal/model"
	"krx-autotrade/pkg/utils"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupTriggers(base *echo.Group) {
	v1 := base.Group("/v1/triggers")
	{
		v1.GET("", h.GetTriggers)
	}
}

func (h *HttpAPIHandler) GetTriggers(c echo.Context) error {
	req := new(dto.GetTriggersRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid query parameters"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	day := utils.DateOf(utils.TimeNowKST())
	if req.TradingDay != "" {
		parsed, _ := time.ParseInLocation("2006-01-02", req.TradingDay, utils.GetKSTLocation())
		day = parsed
	}

	var status *model.TriggerStatus
	if req.Status != "" {
		s := model.TriggerStatus(req.Status)
		status = &s
	}

	triggers, err := h.repo.TriggerRepo.GetByDay(c.Request().Context(), day, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewInternalErrorResponse("failed to get triggers"))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", triggers))
}
