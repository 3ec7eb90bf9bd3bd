package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/iacscan/iacscan/internal/application"
	"github.com/iacscan/iacscan/internal/domain"
)

type messageResponse struct {
	Message string `json:"message"`
}

// ── Checks ──

func (s *Server) listChecks(c echo.Context) error {
	filter := domain.CheckFilter{
		Keyword:          c.QueryParam("keyword"),
		TargetEntityType: domain.TargetEntityType(c.QueryParam("target_entity_type")),
	}
	var err error
	if filter.Enabled, err = boolParam(c, "enabled"); err != nil {
		return err
	}
	if filter.Configured, err = boolParam(c, "configured"); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.svc.Checks.List(filter))
}

func (s *Server) enableCheck(c echo.Context) error {
	msg, err := s.svc.Checks.Enable(c.Request().Context(), c.Param("name"), c.QueryParam("project_id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: msg})
}

func (s *Server) disableCheck(c echo.Context) error {
	msg, err := s.svc.Checks.Disable(c.Request().Context(), c.Param("name"), c.QueryParam("project_id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: msg})
}

func (s *Server) configureCheck(c echo.Context) error {
	var upload *application.ConfigUpload
	fh, err := c.FormFile("config_file")
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			return badRequest(fmt.Sprintf("reading config_file: %v", err))
		}
		defer f.Close()
		upload = &application.ConfigUpload{Name: fh.Filename, Body: f}
	case !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart):
		return badRequest(fmt.Sprintf("reading config_file: %v", err))
	}

	msg, err := s.svc.Checks.Configure(c.Request().Context(), c.Param("name"), upload, c.FormValue("secret"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: msg})
}

// ── Scans ──

func (s *Server) scan(c echo.Context) error {
	format := domain.ReportFormat(lo.CoalesceOrEmpty(c.FormValue("scan_response_type"), string(domain.ReportJSON)))
	if format != domain.ReportJSON && format != domain.ReportHTML {
		return badRequest("scan_response_type must be json or html")
	}

	fh, err := c.FormFile("iac")
	if err != nil {
		return badRequest("missing iac archive")
	}
	archivePath, err := s.saveUpload(fh)
	if err != nil {
		return s.fail(c, err)
	}
	defer os.Remove(archivePath)

	result, err := s.svc.Scans.Scan(c.Request().Context(), application.ScanRequest{
		ArchivePath: archivePath,
		ArchiveName: filepath.Base(fh.Filename),
		Checks:      splitList(formValues(c, "checks")),
		ProjectID:   c.FormValue("project_id"),
	})
	if err != nil {
		return s.fail(c, err)
	}

	if format == domain.ReportHTML {
		data, err := s.svc.Renderer.Render(result, domain.ReportHTML)
		if err != nil {
			return s.fail(c, err)
		}
		return c.HTMLBlob(http.StatusOK, data)
	}
	return c.JSON(http.StatusOK, result)
}

// saveUpload copies an uploaded file to a temporary file and returns its path.
func (s *Server) saveUpload(fh *multipart.FileHeader) (string, error) {
	const op = "save upload"

	src, err := fh.Open()
	if err != nil {
		return "", domain.WrapError(domain.KindValidation, op, err)
	}
	defer src.Close()

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", domain.WrapError(domain.KindPersistence, op, err)
	}
	dst, err := os.CreateTemp(s.uploadDir, "upload-*-"+filepath.Base(fh.Filename))
	if err != nil {
		return "", domain.WrapError(domain.KindPersistence, op, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", domain.WrapError(domain.KindPersistence, op, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", domain.WrapError(domain.KindPersistence, op, err)
	}
	return dst.Name(), nil
}

// ── Results ──

func (s *Server) getResults(c echo.Context) error {
	if s.svc.Results == nil {
		return s.fail(c, errPersistenceDisabled)
	}
	ctx := c.Request().Context()
	projectID := c.QueryParam("project_id")

	if id := c.QueryParam("uuid"); id != "" {
		r, err := s.svc.Results.Get(ctx, id, projectID)
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(http.StatusOK, r)
	}

	results, err := s.svc.Results.List(ctx, projectID)
	if err != nil {
		return s.fail(c, err)
	}
	if results == nil {
		results = []*domain.ScanResult{}
	}
	return c.JSON(http.StatusOK, results)
}

func (s *Server) deleteResult(c echo.Context) error {
	if s.svc.Results == nil {
		return s.fail(c, errPersistenceDisabled)
	}
	id := c.Param("uuid")
	if err := s.svc.Results.Delete(c.Request().Context(), id); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Deleted scan result: " + id})
}

// ── Projects ──

func (s *Server) createProject(c echo.Context) error {
	if s.svc.Projects == nil {
		return s.fail(c, errUsersDisabled)
	}
	p, err := s.svc.Projects.CreateProject(c.Request().Context(),
		c.QueryParam("creator_id"),
		c.QueryParam("active_config"),
		splitList(c.QueryParams()["checklist"]),
	)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (s *Server) listProjects(c echo.Context) error {
	if s.svc.Projects == nil {
		return s.fail(c, errUsersDisabled)
	}
	projects, err := s.svc.Projects.ListProjects(c.Request().Context(), c.QueryParam("creator_id"))
	if err != nil {
		return s.fail(c, err)
	}
	if projects == nil {
		projects = []*domain.Project{}
	}
	return c.JSON(http.StatusOK, projects)
}

func (s *Server) getProject(c echo.Context) error {
	if s.svc.Projects == nil {
		return s.fail(c, errUsersDisabled)
	}
	p, err := s.svc.Projects.GetProject(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) deleteProject(c echo.Context) error {
	if s.svc.Projects == nil {
		return s.fail(c, errUsersDisabled)
	}
	id := c.Param("id")
	if err := s.svc.Projects.DeleteProject(c.Request().Context(), id); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Deleted project: " + id})
}

func (s *Server) createConfiguration(c echo.Context) error {
	if s.svc.Projects == nil {
		return s.fail(c, errUsersDisabled)
	}
	cfg, err := s.svc.Projects.CreateConfiguration(c.Request().Context(), c.QueryParam("creator_id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, cfg)
}

func (s *Server) bindConfiguration(c echo.Context) error {
	if s.svc.Projects == nil {
		return s.fail(c, errUsersDisabled)
	}
	msg, err := s.svc.Projects.BindConfiguration(c.Request().Context(), c.QueryParam("project_id"), c.QueryParam("config_id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: msg})
}

func (s *Server) setParameters(c echo.Context) error {
	if s.svc.Projects == nil {
		return s.fail(c, errUsersDisabled)
	}
	var params map[string]any
	if err := json.NewDecoder(c.Request().Body).Decode(&params); err != nil {
		return badRequest("parameters must be a JSON object")
	}
	msg, err := s.svc.Projects.SetParameters(c.Request().Context(), c.QueryParam("config_id"), params)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: msg})
}

// ── helpers ──

func boolParam(c echo.Context, name string) (*bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, badRequest(fmt.Sprintf("%s must be a boolean", name))
	}
	return &v, nil
}

func formValues(c echo.Context, name string) []string {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		if v := c.FormValue(name); v != "" {
			return []string{v}
		}
		return nil
	}
	return form.Value[name]
}

// splitList accepts repeated values and comma separated lists alike.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
