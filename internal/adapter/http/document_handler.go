package http

import (
	"net/http"

	"github.com/EcrTech/FL-sub005/internal/adapter/middleware"
	domain "github.com/EcrTech/FL-sub005/internal/domain/document"
	"github.com/EcrTech/FL-sub005/internal/usecase/document"
	"github.com/EcrTech/FL-sub005/internal/usecase/esign"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type DocumentHandler struct {
	docs  *document.Usecase
	esign *esign.Usecase
	log   logrus.FieldLogger
}

func NewDocumentHandler(docs *document.Usecase, es *esign.Usecase, log logrus.FieldLogger) *DocumentHandler {
	return &DocumentHandler{docs: docs, esign: es, log: log}
}

type generateReq struct {
	DocumentType string `json:"document_type" validate:"required"`
}

// Generate queues rendering and answers 202 with the job to poll.
func (h *DocumentHandler) Generate(c echo.Context) error {
	var req generateReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	j, err := h.docs.RequestGeneration(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("number"), domain.Type(req.DocumentType))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusAccepted, j)
}

type esignReq struct {
	DocumentType string `json:"document_type" validate:"required"`
	SignerName   string `json:"signer_name"`
	SignerPhone  string `json:"signer_phone" validate:"omitempty,inphone"`
	SignerEmail  string `json:"signer_email" validate:"omitempty,email"`
}

func (h *DocumentHandler) RequestSignature(c echo.Context) error {
	var req esignReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	res, err := h.esign.Create(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("number"), esign.CreateInput{
		DocumentType: domain.Type(req.DocumentType),
		SignerName:   req.SignerName,
		SignerPhone:  req.SignerPhone,
		SignerEmail:  req.SignerEmail,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, res)
}
