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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostFormValue("grant_type"))
		assert.Equal(t, "my-id", r.PostFormValue("client_id"))
		assert.Equal(t, "my-secret", r.PostFormValue("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(Token{
			AccessToken: "granted-token",
			TokenType:   "Bearer",
			ExpiresIn:   3600,
		}))
	}))
	defer server.Close()

	token, err := FetchToken(context.Background(), server.URL, "my-id", "my-secret")
	require.NoError(t, err)
	assert.Equal(t, "granted-token", token.AccessToken)
	assert.Equal(t, 3600, token.ExpiresIn)
}

func TestFetchToken_HonorsClientOptions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Token{AccessToken: "late"})
	}))
	defer server.Close()

	t.Run("timeout option", func(t *testing.T) {
		_, err := FetchToken(context.Background(), server.URL, "id", "secret",
			WithTimeout(50*time.Millisecond))
		require.Error(t, err)
	})

	t.Run("injected client", func(t *testing.T) {
		_, err := FetchToken(context.Background(), server.URL, "id", "secret",
			WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
		require.Error(t, err)

		token, err := FetchToken(context.Background(), server.URL, "id", "secret",
			WithHTTPClient(&http.Client{Timeout: time.Second}))
		require.NoError(t, err)
		assert.Equal(t, "late", token.AccessToken)
	})
}

func TestFetchToken_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid_client", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := FetchToken(context.Background(), server.URL, "bad", "creds")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
}
