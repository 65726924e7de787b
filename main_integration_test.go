// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

//go:build integration

/*
To run these tests, specify `-tags=integration` when running `go test`.

The console is started on 127.0.0.1:8282 against an in-process fake master.
*/
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	host      = "127.0.0.1:8282"
	authority = "http://" + host

	retryCount  = 20
	dialTimeout = 250 * time.Millisecond
)

// client does not follow redirects so that 303 and 308 answers can be checked.
var client = &http.Client{
	Timeout: 10 * time.Second,
	CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

func newFakeMaster() *httptest.Server {
	envelope := func(w http.ResponseWriter, body string) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"error":false,"message":"","body":`+body+`}`)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/cluster", func(w http.ResponseWriter, _ *http.Request) {
		envelope(w, `{"agent_total":2,"agent_alive":2,"total":{"millicores":8000,"memory":"16G"},"assigned":{"millicores":500,"memory":"1G"},"service_count":1,"taskgroup_count":1}`)
	})
	mux.HandleFunc("GET /api/services", func(w http.ResponseWriter, _ *http.Request) {
		envelope(w, `{"services":[{"id":"svc-1","desc":{"name":"web","replica":1},"state":"Running"}]}`)
	})
	mux.HandleFunc("POST /api/services", func(w http.ResponseWriter, _ *http.Request) {
		envelope(w, `{"id":"svc-2"}`)
	})
	mux.HandleFunc("GET /api/services/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "svc-1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":true,"message":"no such service"}`)

			return
		}

		envelope(w, `{"id":"svc-1","desc":{"name":"web","replica":1,"deploy_step":1},"state":"Running","replicas":{"running":1}}`)
	})
	mux.HandleFunc("GET /api/services/{id}/taskgroups", func(w http.ResponseWriter, _ *http.Request) {
		envelope(w, `{"taskgroups":[{"id":"tg-1","service_id":"svc-1","state":"Running"}]}`)
	})
	mux.HandleFunc("GET /api/taskgroups", func(w http.ResponseWriter, _ *http.Request) {
		envelope(w, `{"taskgroups":[{"id":"tg-1","service_id":"svc-1","state":"Running"}]}`)
	})
	mux.HandleFunc("GET /api/taskgroups/{id}", func(w http.ResponseWriter, _ *http.Request) {
		envelope(w, `{"id":"tg-1","service_id":"svc-1","endpoint":"agent-1:8221","state":"Running","tasks":[]}`)
	})
	mux.HandleFunc("POST /api/services/{id}/kill", func(w http.ResponseWriter, _ *http.Request) {
		envelope(w, `{}`)
	})

	return httptest.NewServer(mux)
}

// TestMain starts a fake master and the console, then waits for the console to accept connections.
func TestMain(m *testing.M) {
	master := newFakeMaster()

	dir, err := os.MkdirTemp("", "galaxy-console-it")
	if err != nil {
		log.Fatalf("Failed to create data dir: %v", err)
	}

	for key, value := range map[string]string{
		"GALAXY_CONSOLE_HOST":             "127.0.0.1",
		"GALAXY_CONSOLE_PORT":             "8282",
		"GALAXY_CONSOLE_MASTER_ENDPOINTS": master.URL,
		"GALAXY_CONSOLE_STORE_PATH":       filepath.Join(dir, "console.db"),
		"GALAXY_CONSOLE_CONFIGFILE":       filepath.Join(dir, "missing.yaml"),
	} {
		_ = os.Setenv(key, value)
	}

	go func() {
		if err := run(); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	if !waitForServerReady() {
		log.Fatalf("Server did not start in time")
	}

	code := m.Run()

	master.Close()
	_ = os.RemoveAll(dir)

	os.Exit(code)
}

// waitForServerReady polls the server until it's available or the retries are exhausted.
func waitForServerReady() bool {
	for range retryCount {
		conn, err := net.DialTimeout("tcp", host, dialTimeout)
		if err == nil {
			_ = conn.Close()

			return true
		}

		time.Sleep(dialTimeout)
	}

	return false
}

func do(t *testing.T, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, authority+path, body)
	require.NoError(t, err)

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	require.NoError(t, err)

	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

// csrfToken picks up an action token from any page.
func csrfToken(t *testing.T) string {
	t.Helper()

	resp := do(t, http.MethodGet, "/healthz", nil, nil)
	token := resp.Header.Get("X-CSRF-Token")
	require.NotEmpty(t, token)

	return token
}

func TestRoutes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		method   string
		path     string
		status   int
		location string
	}{
		{http.MethodGet, "/", http.StatusOK, ""},
		{http.MethodGet, "/conf/", http.StatusOK, ""},
		{http.MethodGet, "/service/", http.StatusOK, ""},
		{http.MethodGet, "/service/svc-1/", http.StatusOK, ""},
		{http.MethodGet, "/service/missing/", http.StatusNotFound, ""},
		{http.MethodGet, "/taskgroup/", http.StatusOK, ""},
		{http.MethodGet, "/taskgroup/?service=svc-1", http.StatusOK, ""},
		{http.MethodGet, "/taskgroup/tg-1/", http.StatusOK, ""},
		{http.MethodGet, "/healthz", http.StatusOK, ""},
		{http.MethodGet, "/robots.txt", http.StatusOK, ""},
		{http.MethodGet, "/css/console.css", http.StatusOK, ""},
		{http.MethodGet, "/conf", http.StatusPermanentRedirect, "/conf/"},
		{http.MethodGet, "/nope", http.StatusNotFound, ""},
		{http.MethodGet, "/service/svc-1/kill", http.StatusMethodNotAllowed, ""},
		{http.MethodPost, "/service/svc-1/kill", http.StatusForbidden, ""},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s %s", tc.method, tc.path), func(t *testing.T) {
			t.Parallel()

			resp := do(t, tc.method, tc.path, nil, nil)

			assert.Equal(t, tc.status, resp.StatusCode)

			if tc.location != "" {
				assert.Equal(t, tc.location, resp.Header.Get("Location"))
			}
		})
	}
}

func TestConfLifecycle(t *testing.T) {
	t.Parallel()

	token := csrfToken(t)
	jsonHeaders := map[string]string{
		"Accept":       "application/json",
		"Content-Type": "application/json",
		"X-CSRF-Token": token,
	}

	body := `{"name":"it-web","description":"integration","desc":{"name":"web","type":"LongRun","replica":1,"priority":"Service",` +
		`"pod":{"requirement":{"millicores":500,"memory":"256M"},"tasks":[{"package":"http://pkg/web.tar.gz","start_command":"./web","requirement":{"millicores":500,"memory":"256M"}}]}}}`

	resp := do(t, http.MethodPost, "/conf/create", strings.NewReader(body), jsonHeaders)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var conf struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&conf))
	assert.Equal(t, "it-web", conf.Name)

	resp = do(t, http.MethodPost, "/conf/create", strings.NewReader(body), jsonHeaders)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, http.MethodGet, "/conf/"+conf.ID+"/", nil, map[string]string{"Accept": "application/json"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, "/conf/"+conf.ID+"/export", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	exported, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(exported), "startCommand: ./web")

	resp = do(t, http.MethodPost, "/conf/"+conf.ID+"/launch", nil, jsonHeaders)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var launched struct {
		ServiceID string `json:"service_id"`
	}

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&launched))
	assert.Equal(t, "svc-2", launched.ServiceID)

	resp = do(t, http.MethodPost, "/conf/"+conf.ID+"/delete", nil, map[string]string{"X-CSRF-Token": token})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/conf/", resp.Header.Get("Location"))

	resp = do(t, http.MethodGet, "/conf/"+conf.ID+"/", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
