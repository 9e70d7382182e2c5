package http

import (
	"net/http"

	"github.com/EcrTech/FL-sub005/internal/adapter/middleware"
	"github.com/EcrTech/FL-sub005/internal/usecase/job"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type JobHandler struct {
	jobs *job.Service
	log  logrus.FieldLogger
}

func NewJobHandler(jobs *job.Service, log logrus.FieldLogger) *JobHandler {
	return &JobHandler{jobs: jobs, log: log}
}

func (h *JobHandler) Get(c echo.Context) error {
	j, err := h.jobs.Get(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("job_id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, j)
}
