package http

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/EcrTech/FL-sub005/internal/adapter/middleware"
	"github.com/EcrTech/FL-sub005/internal/domain/apperr"
	"github.com/EcrTech/FL-sub005/internal/usecase/contactimport"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const maxUploadBytes = 10 << 20

var errUploadTooLarge = apperr.Validation("csv_too_large", "uploaded file exceeds 10 MiB")

type ContactHandler struct {
	uc  *contactimport.Usecase
	log logrus.FieldLogger
}

func NewContactHandler(uc *contactimport.Usecase, log logrus.FieldLogger) *ContactHandler {
	return &ContactHandler{uc: uc, log: log}
}

// Import takes a CSV as the multipart "file" field or as a text/csv body.
// It answers 202 with the queued batch.
func (h *ContactHandler) Import(c echo.Context) error {
	in := contactimport.ImportInput{}
	if raw := c.FormValue("create_applications"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, "create_applications must be true or false")
		}
		in.CreateApplications = v
	}

	var (
		r   io.Reader
		err error
	)
	if fh, ferr := c.FormFile("file"); ferr == nil {
		f, oerr := fh.Open()
		if oerr != nil {
			return badRequest(c, "unreadable upload")
		}
		defer f.Close()
		in.FileName, r = fh.Filename, f
	} else if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), "text/csv") {
		in.FileName, r = c.QueryParam("file_name"), c.Request().Body
	} else {
		return badRequest(c, "send the CSV as multipart field \"file\" or a text/csv body")
	}
	in.Content, err = io.ReadAll(io.LimitReader(r, maxUploadBytes+1))
	if err != nil {
		return badRequest(c, "unreadable upload")
	}
	if len(in.Content) > maxUploadBytes {
		return respondError(c, h.log, errUploadTooLarge)
	}

	b, err := h.uc.Import(c.Request().Context(), middleware.PrincipalFrom(c), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusAccepted, b)
}

func (h *ContactHandler) GetBatch(c echo.Context) error {
	b, err := h.uc.GetBatch(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("batch_id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *ContactHandler) CancelBatch(c echo.Context) error {
	b, err := h.uc.Cancel(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("batch_id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *ContactHandler) RevertBatch(c echo.Context) error {
	res, err := h.uc.Revert(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("batch_id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

type bulkDeleteReq struct {
	IDs []uint64 `json:"ids" validate:"required,min=1,max=1000"`
}

func (h *ContactHandler) BulkDelete(c echo.Context) error {
	var req bulkDeleteReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	n, err := h.uc.DeleteContacts(c.Request().Context(), middleware.PrincipalFrom(c), req.IDs)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"deleted": n})
}
