package folio

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
)

type settingResponse struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// handleGetSetting returns {key, value}. An unset key is not an error: the
// SPA reads defaults this way, so value is simply null.
func (a *App) handleGetSetting(c echo.Context) error {
	key := c.Param("key")

	raw, found, err := a.Store.GetSetting(key)
	if err != nil {
		return err
	}
	if !found {
		return c.JSON(http.StatusOK, settingResponse{Key: key, Value: nil})
	}

	value := json.RawMessage(raw)
	if !json.Valid(value) {
		// Rows written before values were JSON-encoded hold bare text.
		b, _ := json.Marshal(raw)
		value = b
	}
	return c.JSON(http.StatusOK, settingResponse{Key: key, Value: value})
}

func (a *App) handlePutSetting(c echo.Context) error {
	key := c.Param("key")

	var req struct {
		Value json.RawMessage `json:"value"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	value := req.Value
	if len(value) == 0 {
		value = json.RawMessage("null")
	}

	if err := a.Store.PutSetting(key, string(value)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settingResponse{Key: key, Value: value})
}
