package nas

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the Synology FileStation web API to mint shareable links
// for completed project directories. The appliance presents a self-signed
// certificate, so verification is skipped.
type Client struct {
	baseURL  string
	account  string
	password string
	http     *http.Client
}

type Config struct {
	BaseURL  string
	Account  string
	Password string
}

func New(cfg Config) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		account:  cfg.Account,
		password: cfg.Password,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402
			},
		},
	}
}

// Enabled reports whether the NAS share API was configured.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != "" && c.account != ""
}

type synoEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code int `json:"code"`
	} `json:"error"`
}

// CreateShare logs in, creates a sharing link for the given FileStation path
// with the given expiry, and returns the link URL.
func (c *Client) CreateShare(ctx context.Context, sharePath string, expireDays int) (string, error) {
	sid, err := c.login(ctx)
	if err != nil {
		return "", err
	}
	defer c.logout(ctx, sid)

	params := url.Values{}
	params.Set("api", "SYNO.FileStation.Sharing")
	params.Set("version", "3")
	params.Set("method", "create")
	params.Set("path", sharePath)
	if expireDays > 0 {
		params.Set("date_expired", time.Now().AddDate(0, 0, expireDays).Format("2006-01-02"))
	}
	params.Set("_sid", sid)

	var data struct {
		Links []struct {
			URL string `json:"url"`
		} `json:"links"`
	}
	if err := c.call(ctx, "/webapi/entry.cgi", params, &data); err != nil {
		return "", err
	}
	if len(data.Links) == 0 || data.Links[0].URL == "" {
		return "", fmt.Errorf("synology: share created for %q but no link returned", sharePath)
	}
	return data.Links[0].URL, nil
}

func (c *Client) login(ctx context.Context) (string, error) {
	params := url.Values{}
	params.Set("api", "SYNO.API.Auth")
	params.Set("version", "6")
	params.Set("method", "login")
	params.Set("account", c.account)
	params.Set("passwd", c.password)
	params.Set("session", "FileStation")
	params.Set("format", "sid")

	var data struct {
		SID string `json:"sid"`
	}
	if err := c.call(ctx, "/webapi/auth.cgi", params, &data); err != nil {
		return "", err
	}
	if data.SID == "" {
		return "", fmt.Errorf("synology: login succeeded but no session id returned")
	}
	return data.SID, nil
}

func (c *Client) logout(ctx context.Context, sid string) {
	params := url.Values{}
	params.Set("api", "SYNO.API.Auth")
	params.Set("version", "6")
	params.Set("method", "logout")
	params.Set("session", "FileStation")
	params.Set("_sid", sid)
	_ = c.call(ctx, "/webapi/auth.cgi", params, nil)
}

func (c *Client) call(ctx context.Context, apiPath string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiPath+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("synology: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("synology: %s returned %s", apiPath, resp.Status)
	}

	var envelope synoEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("synology: decode %s response: %w", apiPath, err)
	}
	if !envelope.Success {
		return fmt.Errorf("synology: %s failed with error code %d", apiPath, envelope.Error.Code)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("synology: decode %s data: %w", apiPath, err)
		}
	}
	return nil
}
