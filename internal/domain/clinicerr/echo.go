package clinicerr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ToHTTP maps a service error to the transport error the handlers return.
// Untagged errors become opaque 500s.
func ToHTTP(err error) *echo.HTTPError {
	var e *Error
	if errors.As(err, &e) {
		return echo.NewHTTPError(HTTPStatus(e.Kind), map[string]string{
			"kind":    e.Kind.String(),
			"message": e.Msg,
		})
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
