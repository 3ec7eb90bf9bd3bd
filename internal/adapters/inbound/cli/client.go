package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	json "github.com/json-iterator/go"

	"github.com/iacscan/iacscan/internal/domain"
)

// apiClient talks to a running `iacscan serve`. The check registry lives in
// the server process, so registry changes go through its HTTP API.
type apiClient struct {
	url    string
	client *http.Client
}

func newAPIClient(serverURL string) *apiClient {
	return &apiClient{
		url: serverURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type apiMessage struct {
	Message string   `json:"message"`
	Names   []string `json:"names,omitempty"`
}

func (c *apiClient) listChecks(ctx context.Context, query url.Values) ([]domain.CheckDefinition, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/checks?%s", c.url, query.Encode()), nil)
	if err != nil {
		return nil, err
	}
	var defs []domain.CheckDefinition
	if err := c.do(req, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// setCheckState calls the enable or disable endpoint of a check.
func (c *apiClient) setCheckState(ctx context.Context, name, action, projectID string) (string, error) {
	target := fmt.Sprintf("%s/checks/%s/%s", c.url, url.PathEscape(name), action)
	if projectID != "" {
		target += "?project_id=" + url.QueryEscape(projectID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, nil)
	if err != nil {
		return "", err
	}
	var res apiMessage
	if err := c.do(req, &res); err != nil {
		return "", err
	}
	return res.Message, nil
}

func (c *apiClient) configureCheck(ctx context.Context, name, configFile, secret string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if secret != "" {
		if err := mw.WriteField("secret", secret); err != nil {
			return "", err
		}
	}
	if configFile != "" {
		f, err := os.Open(configFile)
		if err != nil {
			return "", err
		}
		defer f.Close()
		fw, err := mw.CreateFormFile("config_file", filepath.Base(configFile))
		if err != nil {
			return "", err
		}
		if _, err := io.Copy(fw, f); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, fmt.Sprintf("%s/checks/%s/configure", c.url, url.PathEscape(name)), &buf)
	if err != nil {
		return "", err
	}
	req.Header.Add("Content-Type", mw.FormDataContentType())
	var res apiMessage
	if err := c.do(req, &res); err != nil {
		return "", err
	}
	return res.Message, nil
}

func (c *apiClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if st := resp.StatusCode; st != http.StatusOK {
		var msg apiMessage
		body, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(body, &msg) == nil && msg.Message != "" {
			return fmt.Errorf("%s (status=%d)", msg.Message, st)
		}
		return fmt.Errorf("request failed, response status=%d: %s", st, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
