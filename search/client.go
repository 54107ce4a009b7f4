// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Record is one literature hit, reduced to the metadata fields the
// evaluation layer consumes.
type Record struct {
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	Keywords string `json:"keywords"`
	Journal  string `json:"journal"`
	Database string `json:"database"`
	Year     string `json:"year"`
}

// Result is the reshaped response of one search call.
type Result struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Total   int      `json:"total"`
	Items   []Record `json:"items"`
}

// Client performs single literature-search calls. Clients are stateless
// beyond their credentials and must not be shared between concurrent
// callers; ClientPool enforces that through its acquire/release queue.
type Client struct {
	endpoint    string
	platform    string
	accessToken string
	httpClient  *http.Client
	logger      *slog.Logger
}

// newClient is the internal constructor used by ClientPool.
func newClient(endpoint, platform, accessToken string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		endpoint:    endpoint,
		platform:    platform,
		accessToken: accessToken,
		httpClient:  httpClient,
		logger:      logger,
	}
}

// searchRequest is the wire body of a search call.
type searchRequest struct {
	Resource string          `json:"resource"`
	Product  string          `json:"product"`
	Extend   int             `json:"extend"`
	Start    int             `json:"start"`
	Size     int             `json:"size"`
	Sort     string          `json:"sort"`
	Sequence string          `json:"sequence"`
	Select   string          `json:"select"`
	Q        searchCondition `json:"q"`
}

type searchCondition struct {
	Logic      string       `json:"logic"`
	Items      []searchItem `json:"items"`
	ChildItems []searchItem `json:"childItems"`
}

type searchItem struct {
	Logic    string `json:"logic"`
	Operator string `json:"operator"`
	Field    string `json:"uf"`
	Value    string `json:"uv"`
}

// searchResponse mirrors the service's raw response shape.
type searchResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Total int `json:"total"`
		Size  int `json:"size"`
		Data  []struct {
			Metadata []struct {
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"metadata"`
		} `json:"data"`
	} `json:"data"`
}

// Search runs one query against the literature service and reshapes the
// raw response into a Result.
func (c *Client) Search(ctx context.Context, q Query) (*Result, error) {
	body := searchRequest{
		Resource: "CROSSDB",
		Product:  q.products(),
		Extend:   1,
		Start:    1,
		Size:     50,
		Sort:     "PT",
		Sequence: "DESC",
		Select:   "TI,AB,KY,DB,LY,YE,PT",
		Q: searchCondition{
			Logic: "AND",
			Items: []searchItem{
				{Logic: "AND", Field: "EXPERT", Value: q.Expression},
				{Logic: "AND", Operator: "LE", Field: "PT", Value: q.dateUpper()},
			},
			ChildItems: []searchItem{},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("uniplatform", c.platform)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	return rebuildResult(&parsed), nil
}

var htmlTagRe = regexp.MustCompile(`<.*?>`)

// cleanHTML strips markup tags the service embeds in highlighted fields.
func cleanHTML(raw string) string {
	if raw == "" {
		return ""
	}
	return htmlTagRe.ReplaceAllString(raw, "")
}

// rebuildResult reduces the raw response to the fields downstream consumers
// use, stripping embedded highlight markup.
func rebuildResult(parsed *searchResponse) *Result {
	result := &Result{
		Code:    parsed.Code,
		Message: parsed.Message,
		Total:   parsed.Data.Total,
		Items:   make([]Record, 0, len(parsed.Data.Data)),
	}
	for _, item := range parsed.Data.Data {
		var rec Record
		for _, meta := range item.Metadata {
			switch meta.Name {
			case "TI":
				rec.Title = cleanHTML(meta.Value)
			case "AB":
				rec.Abstract = cleanHTML(meta.Value)
			case "KY":
				rec.Keywords = cleanHTML(meta.Value)
			case "LY":
				rec.Journal = cleanHTML(meta.Value)
			case "DB":
				rec.Database = meta.Value
			case "YE":
				rec.Year = meta.Value
			}
		}
		result.Items = append(result.Items, rec)
	}
	return result
}

// Token is the OAuth response of the literature service.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// FetchToken obtains an access token via the client-credentials grant.
// WithHTTPClient and WithTimeout apply; the default timeout is 30 seconds.
func FetchToken(ctx context.Context, oauthURL, clientID, clientSecret string, opts ...PoolOption) (*Token, error) {
	settings := &poolSettings{timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(settings)
	}
	httpClient := settings.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: settings.timeout}
	}

	form := url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"grant_type":    {"client_credentials"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, oauthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}

	var token Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}
	return &token, nil
}
