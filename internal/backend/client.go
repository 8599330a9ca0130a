/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hkannostudio/internal/presets"
)

// Client is a minimal HTTP client for the team library API.
// It supports the read-only operations the app uses when the library
// feature is enabled.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new library client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string) *Client {
	b := strings.TrimRight(baseURL, "/")
	return &Client{
		BaseURL: b,
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClientWithTimeout creates a client with an explicit request timeout.
// insecureTLS skips certificate verification for self-hosted servers running
// on self-signed certificates.
func NewClientWithTimeout(baseURL, token string, timeout time.Duration, insecureTLS bool) *Client {
	c := NewClient(baseURL, token)
	if timeout > 0 {
		c.client.Timeout = timeout
	}
	if insecureTLS {
		c.client.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
	}
	return c
}

func (c *Client) doJSON(ctx context.Context, method, path string, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(dest)
}

// Pack is a minimal projection for listing published preset packs.
type Pack struct {
	ID          int64     `json:"id"`
	StableID    string    `json:"stable_id"`
	Name        string    `json:"name"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int64     `json:"version"`
}

// ListPacks returns the packs published on the library server (read-only).
func (c *Client) ListPacks(ctx context.Context) ([]Pack, error) {
	var list []Pack
	if err := c.doJSON(ctx, http.MethodGet, "/api/packs", &list); err != nil {
		return nil, err
	}
	return list, nil
}

// PackArchive matches the server response for a single pack download.
// Archive holds the zip bytes; json transports them base64-encoded.
type PackArchive struct {
	PackID    int64  `json:"pack_id"`
	Name      string `json:"name"`
	Version   int64  `json:"version"`
	UpdatedAt string `json:"updated_at"`
	Archive   []byte `json:"archive"`
}

// FetchPack downloads one pack archive by id.
func (c *Client) FetchPack(ctx context.Context, packID int64) (*PackArchive, error) {
	var env PackArchive
	path := fmt.Sprintf("/api/packs/%d", packID)
	if err := c.doJSON(ctx, http.MethodGet, path, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// InstallPack downloads a pack archive and installs its preset files into the
// given workspace. It returns the number of files installed; existing files
// are never overwritten.
func (c *Client) InstallPack(ctx context.Context, packID int64, workspaceRoot string) (int, error) {
	env, err := c.FetchPack(ctx, packID)
	if err != nil {
		return 0, err
	}
	return presets.InstallPackBytes(workspaceRoot, env.Archive)
}
