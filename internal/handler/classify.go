package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"ott-proxy/internal/streamtype"
)

type classifyResponse struct {
	Success   bool            `json:"success"`
	Type      streamtype.Type `json:"type"`
	ID        string          `json:"id,omitempty"`
	Proxiable bool            `json:"proxiable"`
}

// Classify serves GET /proxy/classify?url=.
func Classify(c echo.Context) error {
	res := streamtype.Classify(c.QueryParam("url"))
	setCORS(c.Response().Header())
	return c.JSON(http.StatusOK, classifyResponse{
		Success:   true,
		Type:      res.Type,
		ID:        res.ID,
		Proxiable: res.Proxiable(),
	})
}
