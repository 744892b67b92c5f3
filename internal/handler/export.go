package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"ott-proxy/internal/config"
	"ott-proxy/internal/export"
	"ott-proxy/internal/model"
)

const (
	exportFailedMessage  = "Export failed"
	exportRedactedDetail = "Could not write export file"
)

type exportRequest[T any] struct {
	Records      []T    `json:"records"`
	Format       string `json:"format"`
	IncludeStats bool   `json:"includeStats"`
}

func (r *exportRequest[T]) options() export.Options {
	return export.Options{Format: r.Format, IncludeStats: r.IncludeStats}
}

type exportResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	File    string `json:"file"`
	Count   int    `json:"count"`
}

// ExportHandler writes posted records to spreadsheet files.
type ExportHandler struct {
	service *export.Service
	respond responder
}

// NewExportHandler creates an ExportHandler.
func NewExportHandler(svc *export.Service, cfg *config.Config, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		service: svc,
		respond: newResponder(cfg, logger.With("component", "export_handler")),
	}
}

// Appointments serves POST /export/appointments.
func (h *ExportHandler) Appointments(c echo.Context) error {
	var req exportRequest[model.Appointment]
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Success: false, Message: "invalid request body"})
	}

	path, err := h.service.ExportAppointments(req.Records, req.options())
	if err != nil {
		return h.respond.mapError(c, err, exportFailedMessage, exportRedactedDetail)
	}
	return c.JSON(http.StatusOK, exportResponse{
		Success: true,
		Message: "Appointments exported successfully",
		File:    path,
		Count:   len(req.Records),
	})
}

// Referrals serves POST /export/referrals.
func (h *ExportHandler) Referrals(c echo.Context) error {
	var req exportRequest[model.Referral]
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Success: false, Message: "invalid request body"})
	}

	path, err := h.service.ExportReferrals(req.Records, req.options())
	if err != nil {
		return h.respond.mapError(c, err, exportFailedMessage, exportRedactedDetail)
	}
	return c.JSON(http.StatusOK, exportResponse{
		Success: true,
		Message: "Referrals exported successfully",
		File:    path,
		Count:   len(req.Records),
	})
}
