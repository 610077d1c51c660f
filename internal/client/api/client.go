// Package api implements the HTTP client for the cloudstore server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/cloudstore/internal/common"
)

// FileInfo describes one stored file as reported by the server.
type FileInfo struct {
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type authResponse struct {
	AuthToken string `json:"auth-token"`
	Login     string `json:"login"`
}

type errorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Client talks to one cloudstore server and carries the auth token obtained
// at login. It is not safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) IsLoggedIn() bool { return c.token != "" }

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set(common.AuthTokenHeaderName, c.token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err.Error())
	}
	return resp, nil
}

// checkStatus drains the error body and maps the status code onto the
// package error values. The caller still owns resp.Body on success.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	msg := resp.Status
	if body, err := io.ReadAll(resp.Body); err == nil {
		var er errorResponse
		if json.Unmarshal(body, &er) == nil && er.Message != "" {
			msg = er.Message
		}
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("server error: %s", msg)
	}
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *Client) Register(ctx context.Context, login, password string) error {
	resp, err := c.postJSON(ctx, "/register", map[string]string{"login": login, "password": password})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

// Login authenticates and remembers the issued token for later calls.
func (c *Client) Login(ctx context.Context, login, password string) error {
	resp, err := c.postJSON(ctx, "/login", map[string]string{"login": login, "password": password})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return fmt.Errorf("decoding login response: %w", err)
	}

	c.token = auth.AuthToken
	return nil
}

// Logout invalidates the server session and forgets the token either way.
func (c *Client) Logout(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/logout", nil)
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.token = ""
	return checkStatus(resp)
}

func (c *Client) Upload(ctx context.Context, name string, data []byte) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/file?filename="+url.QueryEscape(name), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

func (c *Client) Download(ctx context.Context, name string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/file?filename="+url.QueryEscape(name), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	return io.ReadAll(resp.Body)
}

func (c *Client) Delete(ctx context.Context, name string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/file?filename="+url.QueryEscape(name), nil)
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

func (c *Client) Rename(ctx context.Context, oldName, newName string) error {
	body, err := json.Marshal(map[string]string{"filename": newName})
	if err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPut, "/file?filename="+url.QueryEscape(oldName), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

// List returns the stored files, newest first. limit <= 0 asks for all.
func (c *Client) List(ctx context.Context, limit int) ([]FileInfo, error) {
	path := "/list"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var files []FileInfo
	if err := json.NewDecoder(resp.Body).Decode(&files); err != nil {
		return nil, fmt.Errorf("decoding list response: %w", err)
	}

	return files, nil
}
