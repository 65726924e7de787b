package router

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefineRoutes(t *testing.T) {
	t.Parallel()

	table := DefineRoutes()

	const conf = "0b6c7e2a-3f7d-4b8e-9a51-2c7d9e4f1a00"

	tests := []struct {
		path   string
		name   string
		id     string
		method string
	}{
		{"", "index", "", get},
		{"healthz", "healthz", "", get},
		{"robots.txt", "robots", "", get},
		{"css/console.css", "static", "", get},
		{"conf/", "conf-list", "", get},
		{"conf/create", "conf-create", "", post},
		{"conf/import", "conf-import", "", post},
		{"conf/" + conf + "/", "conf-detail", conf, get},
		{"conf/" + conf + "/update", "conf-update", conf, post},
		{"conf/" + conf + "/delete", "conf-delete", conf, post},
		{"conf/" + conf + "/export", "conf-export", conf, get},
		{"conf/" + conf + "/launch", "conf-launch", conf, post},
		{"service/", "service-list", "", get},
		{"service/submit", "service-submit", "", post},
		{"service/web/", "service-detail", "web", get},
		{"service/web/update", "service-update", "web", post},
		{"service/web/kill", "service-kill", "web", post},
		{"taskgroup/", "taskgroup-list", "", get},
		{"taskgroup/tg-1/", "taskgroup-detail", "tg-1", get},
		{"taskgroup/tg-1/kill", "taskgroup-kill", "tg-1", post},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			match, ok := table.Resolve(tt.path)
			require.True(t, ok, tt.path)
			assert.Equal(t, tt.name, match.Name)
			assert.True(t, match.Allows(tt.method))

			if tt.id != "" {
				require.Len(t, match.PathValues, 1)
				assert.Equal(t, tt.id, match.PathValues[0].Value)
			}
		})
	}
}

func TestDefineRoutesUnknown(t *testing.T) {
	t.Parallel()

	table := DefineRoutes()

	for _, path := range []string{
		"conf",
		"conf/NOT-A-UUID/",
		"conf/" + "0b6c7e2a" + "/",
		"service/web",
		"taskgroup/tg-1/restart",
		"debug/pprof/",
	} {
		_, ok := table.Resolve(path)
		assert.False(t, ok, path)
	}

	match, ok := table.Resolve("service/submit")
	require.True(t, ok)
	assert.False(t, match.Allows(http.MethodGet))
}
