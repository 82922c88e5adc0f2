package http

import (
	"net/http"

	"krx-autotrade/internal/dto"
	"krx-autotrade/internal/model"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupJobs(base *echo.Group) {
	v1 := base.Group("/v1/jobs")
	{
		v1.GET("", h.GetJobs)
		v1.POST("/run", h.RunJob)
	}
}

func (h *HttpAPIHandler) GetJobs(c echo.Context) error {
	jobs, err := h.service.SchedulerService.GetJobSchedule(c.Request().Context(), model.GetJobParam{})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewInternalErrorResponse("failed to get jobs"))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", jobs))
}

// RunJob starts a single job by name, outside its schedule. The job runs in
// the scheduler's executor with a history row like any scheduled run.
func (h *HttpAPIHandler) RunJob(c echo.Context) error {
	req := new(dto.RunJobRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	if err := h.service.SchedulerService.RunJobTaskByName(c.Request().Context(), req.JobName); err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewInternalErrorResponse(err.Error()))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Job started", nil))
}
