package pubcorpus

import (
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
)

// SonicSerializer is an echo.JSONSerializer backed by bytedance/sonic.
type SonicSerializer struct{}

// Serialize encodes i to the response.
func (SonicSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := sonic.ConfigStd.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

// Deserialize decodes the request body into i.
func (SonicSerializer) Deserialize(c echo.Context, i interface{}) error {
	err := sonic.ConfigStd.NewDecoder(c.Request().Body).Decode(i)
	if err == nil {
		return nil
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
}
