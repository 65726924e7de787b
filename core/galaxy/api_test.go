// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package galaxy

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/galaxy/console/config"
	"codeberg.org/galaxy/console/core/endpointmanager"
	"codeberg.org/galaxy/console/core/requests"
)

// The tests below swap process-wide state (config, endpoint manager and
// response cache), so they do not run in parallel.

type fakeMaster struct {
	*httptest.Server

	gets       atomic.Int32
	submitCode atomic.Int32

	mu       sync.Mutex
	lastBody []byte
	lastPath string
}

func (fm *fakeMaster) last() (string, []byte) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	return fm.lastPath, fm.lastBody
}

func startFakeMaster(t *testing.T) *fakeMaster {
	t.Helper()

	fm := &fakeMaster{}
	fm.submitCode.Store(http.StatusOK)

	mux := http.NewServeMux()
	envelope := func(w http.ResponseWriter, status int, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"error":false,"message":"","body":`+body+`}`)
	}

	mux.HandleFunc("GET /api/cluster", func(w http.ResponseWriter, _ *http.Request) {
		fm.gets.Add(1)
		envelope(w, http.StatusOK, `{"agent_total":3,"agent_alive":2,"total":{"millicores":24000,"memory":"48G"},"assigned":{"millicores":6000,"memory":1024},"service_count":2,"taskgroup_count":5}`)
	})
	mux.HandleFunc("GET /api/services", func(w http.ResponseWriter, _ *http.Request) {
		fm.gets.Add(1)
		envelope(w, http.StatusOK, `{"services":[{"id":"s2","desc":{"name":"zeta","replica":1}},{"id":"s1","desc":{"name":"alpha","replica":2},"state":"Running"}]}`)
	})
	mux.HandleFunc("GET /api/services/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "s1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":true,"message":"no such service"}`)

			return
		}

		envelope(w, http.StatusOK, `{"id":"s1","desc":{"name":"alpha","replica":2,"deploy_step":1},"state":"Running","replicas":{"running":2}}`)
	})
	mux.HandleFunc("GET /api/services/{id}/taskgroups", func(w http.ResponseWriter, _ *http.Request) {
		envelope(w, http.StatusOK, `{"taskgroups":[{"id":"tg2","service_id":"s1"},{"id":"tg1","service_id":"s1","state":"Running"}]}`)
	})
	mux.HandleFunc("GET /api/taskgroups/{id}", func(w http.ResponseWriter, _ *http.Request) {
		envelope(w, http.StatusOK, `{"id":"tg1","service_id":"s1","endpoint":"agent-1:8221","tasks":[{"id":"t1","used":{"millicores":100,"memory":"64M"}},{"id":"t2","used":{"millicores":50,"memory":"64M"}}]}`)
	})
	record := func(w http.ResponseWriter, r *http.Request, status int, body string) {
		payload, _ := io.ReadAll(r.Body)

		fm.mu.Lock()
		fm.lastPath = r.URL.Path
		fm.lastBody = payload
		fm.mu.Unlock()

		envelope(w, status, body)
	}
	mux.HandleFunc("POST /api/services", func(w http.ResponseWriter, r *http.Request) {
		record(w, r, int(fm.submitCode.Load()), `{"id":"s9"}`)
	})
	mux.HandleFunc("POST /api/services/{id}/update", func(w http.ResponseWriter, r *http.Request) {
		record(w, r, http.StatusOK, `null`)
	})
	mux.HandleFunc("POST /api/services/{id}/kill", func(w http.ResponseWriter, r *http.Request) {
		record(w, r, http.StatusOK, `null`)
	})
	mux.HandleFunc("POST /api/taskgroups/{id}/kill", func(w http.ResponseWriter, r *http.Request) {
		record(w, r, http.StatusOK, `null`)
	})

	fm.Server = httptest.NewServer(mux)
	t.Cleanup(fm.Close)

	config.Global = config.ServerConfig{}
	config.Global.SetDefaults()
	config.Global.Cache.TTL = time.Minute
	require.NoError(t, requests.Setup())

	endpointmanager.Default = endpointmanager.New([]string{fm.URL}, 2, time.Millisecond, time.Millisecond, config.RoundRobin)

	return fm
}

func newRequest() *http.Request {
	return httptest.NewRequest(http.MethodGet, "/", nil)
}

func TestGetClusterStatus(t *testing.T) {
	startFakeMaster(t)

	status, err := GetClusterStatus(newRequest())
	require.NoError(t, err)

	assert.Equal(t, 2, status.AgentAlive)
	assert.Equal(t, Bytes(48<<30), status.Total.Memory)
	assert.InDelta(t, 25.0, status.AssignedPercent(), 0.001)
}

func TestListServicesSortedAndCached(t *testing.T) {
	fm := startFakeMaster(t)

	services, err := ListServices(newRequest())
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "alpha", services[0].Desc.Name)
	assert.Equal(t, ServiceRunning, services[0].State)

	_, err = ListServices(newRequest())
	require.NoError(t, err)
	assert.Equal(t, int32(1), fm.gets.Load(), "second read served from cache")

	r := newRequest()
	r.Header.Set("Cache-Control", "no-cache")
	_, err = ListServices(r)
	require.NoError(t, err)
	assert.Equal(t, int32(2), fm.gets.Load())
}

func TestGetServiceNotFound(t *testing.T) {
	startFakeMaster(t)

	service, err := GetService(newRequest(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, service.Desc.DeployStep)

	_, err = GetService(newRequest(), "nope")
	require.Error(t, err)
	assert.True(t, requests.IsNotFound(err))
}

func TestTaskGroups(t *testing.T) {
	startFakeMaster(t)

	groups, err := ListTaskGroups(newRequest(), "s1")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "tg1", groups[0].ID)

	group, err := GetTaskGroup(newRequest(), "tg1")
	require.NoError(t, err)
	assert.Equal(t, Resource{Millicores: 150, Memory: 128 << 20}, group.Used())
}

func TestSubmitService(t *testing.T) {
	fm := startFakeMaster(t)

	_, err := ListServices(newRequest())
	require.NoError(t, err)

	id, err := SubmitService(newRequest(), validDesc())
	require.NoError(t, err)
	assert.Equal(t, "s9", id)

	_, body := fm.last()

	var sent ServiceDesc
	require.NoError(t, json.Unmarshal(body, &sent))
	assert.Equal(t, "web-frontend", sent.Name)
	assert.Equal(t, 4, sent.DeployStep)
	assert.Equal(t, LongRun, sent.Type)

	_, err = ListServices(newRequest())
	require.NoError(t, err)
	assert.Equal(t, int32(2), fm.gets.Load(), "submit invalidates the service list")
}

func TestSubmitServiceRejectsInvalid(t *testing.T) {
	fm := startFakeMaster(t)

	desc := validDesc()
	desc.Name = "9lives"

	_, err := SubmitService(newRequest(), desc)

	var verr *ValidationError

	require.ErrorAs(t, err, &verr)
	path, _ := fm.last()
	assert.Empty(t, path, "invalid descs never reach the master")
}

func TestSubmitServiceMasterRefuses(t *testing.T) {
	fm := startFakeMaster(t)
	fm.submitCode.Store(http.StatusConflict)

	_, err := SubmitService(newRequest(), validDesc())

	var apiErr *requests.APIError

	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
}

func TestMutations(t *testing.T) {
	fm := startFakeMaster(t)

	require.NoError(t, UpdateService(newRequest(), "s1", 6, 0))

	path, body := fm.last()
	assert.Equal(t, "/api/services/s1/update", path)
	assert.JSONEq(t, `{"replica":6,"deploy_step":6}`, string(body))

	require.Error(t, UpdateService(newRequest(), "s1", 6, 7))

	require.NoError(t, KillService(newRequest(), "s1"))
	path, _ = fm.last()
	assert.Equal(t, "/api/services/s1/kill", path)

	require.NoError(t, KillTaskGroup(newRequest(), "tg1"))
	path, _ = fm.last()
	assert.Equal(t, "/api/taskgroups/tg1/kill", path)
}
