package rest

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iacscan/iacscan/internal/domain"
)

type errorResponse struct {
	Message string   `json:"message"`
	Names   []string `json:"names,omitempty"`
}

var kindStatus = map[domain.ErrorKind]int{
	domain.KindValidation:     http.StatusBadRequest,
	domain.KindConflict:       http.StatusBadRequest,
	domain.KindArchiveFormat:  http.StatusBadRequest,
	domain.KindNotFound:       http.StatusNotFound,
	domain.KindPersistence:    http.StatusServiceUnavailable,
	domain.KindToolInvocation: http.StatusBadGateway,
	domain.KindClassification: http.StatusInternalServerError,
}

// fail writes err as a JSON error body with a status derived from its kind.
func (s *Server) fail(c echo.Context, err error) error {
	var herr *echo.HTTPError
	if errors.As(err, &herr) {
		return herr
	}

	status := http.StatusInternalServerError
	resp := errorResponse{Message: err.Error()}
	var derr *domain.Error
	if errors.As(err, &derr) {
		if st, ok := kindStatus[derr.Kind]; ok {
			status = st
		}
		resp.Names = derr.Names
	}
	if status >= http.StatusInternalServerError {
		s.log.WithField("path", c.Path()).Errorf("request failed: %v", err)
	}
	return c.JSON(status, resp)
}

func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

var (
	errUsersDisabled       = domain.NewError(domain.KindValidation, "projects", "projects are disabled, enable users to use them")
	errPersistenceDisabled = domain.NewError(domain.KindPersistence, "results", "persistence is disabled")
)
