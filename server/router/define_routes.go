// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"fmt"
	"io/fs"
	"net/http"
	"net/http/pprof"
	"runtime/trace"
	"sync"
	"time"

	"codeberg.org/galaxy/console/config"
	"codeberg.org/galaxy/console/server/assets"
	"codeberg.org/galaxy/console/server/middleware"
	"codeberg.org/galaxy/console/server/routes"
)

const (
	get  = http.MethodGet
	post = http.MethodPost
)

// Patterns of the ids captured from paths.
const (
	confID = `(?P<id>[0-9a-f-]{36})`
	pathID = `(?P<id>[^/]+)`
)

// view wraps a fallible route handler for a rule.
func view(h middleware.FallibleHandler) http.Handler {
	return middleware.CatchError(h)
}

// ConfTable answers everything below /conf/.
func ConfTable() Table {
	return Table{
		Handle(`^$`, view(routes.ConfListPage), get).Named("conf-list"),
		Handle(`^create$`, view(routes.ConfCreate), post).Named("conf-create"),
		Handle(`^import$`, view(routes.ConfImport), post).Named("conf-import"),
		Handle(`^`+confID+`/$`, view(routes.ConfDetailPage), get).Named("conf-detail"),
		Handle(`^`+confID+`/update$`, view(routes.ConfUpdate), post).Named("conf-update"),
		Handle(`^`+confID+`/delete$`, view(routes.ConfDelete), post).Named("conf-delete"),
		Handle(`^`+confID+`/export$`, view(routes.ConfExport), get).Named("conf-export"),
		Handle(`^`+confID+`/launch$`, view(routes.ConfLaunch), post).Named("conf-launch"),
	}
}

// ServiceTable answers everything below /service/.
func ServiceTable() Table {
	return Table{
		Handle(`^$`, view(routes.ServiceListPage), get).Named("service-list"),
		Handle(`^submit$`, view(routes.ServiceSubmit), post).Named("service-submit"),
		Handle(`^`+pathID+`/$`, view(routes.ServiceDetailPage), get).Named("service-detail"),
		Handle(`^`+pathID+`/update$`, view(routes.ServiceUpdate), post).Named("service-update"),
		Handle(`^`+pathID+`/kill$`, view(routes.ServiceKill), post).Named("service-kill"),
	}
}

// TaskGroupTable answers everything below /taskgroup/.
func TaskGroupTable() Table {
	return Table{
		Handle(`^$`, view(routes.TaskGroupListPage), get).Named("taskgroup-list"),
		Handle(`^`+pathID+`/$`, view(routes.TaskGroupDetailPage), get).Named("taskgroup-detail"),
		Handle(`^`+pathID+`/kill$`, view(routes.TaskGroupKill), post).Named("taskgroup-kill"),
	}
}

// DefineRoutes returns the root URL table of the console.
//
// The debug table is only mounted in development.
func DefineRoutes() Table {
	static := fileServer()

	table := Table{
		Handle(`^$`, view(routes.IndexPage), get).Named("index"),
		Include(`^conf/`, ConfTable()),
		Include(`^service/`, ServiceTable()),
		Include(`^taskgroup/`, TaskGroupTable()),
		Handle(`^healthz$`, view(routes.Healthz), get).Named("healthz"),
		Handle(`^(css|img)/`, static, get).Named("static"),
		Handle(`^robots\.txt$`, static, get).Named("robots"),
	}

	if config.Global.Development.InDevelopment {
		table = append(table, Include(`^debug/`, debugTable()))
	}

	return table
}

// Serve static files from embedded assets.
func fileServer() http.Handler {
	staticContentFS, err := fs.Sub(assets.FS, "assets")
	if err != nil {
		panic(fmt.Errorf("failed to create sub-filesystem for embedded 'assets' directory: %w", err))
	}

	files := http.FileServer(http.FS(staticContentFS))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// go:embed files carry no modification time; the cache ID changes with every start.
		w.Header().Set("ETag", `"`+config.Global.Instance.FileServerCacheID+`"`)
		files.ServeHTTP(w, r)
	})
}

var (
	flightRecorder     = trace.NewFlightRecorder(trace.FlightRecorderConfig{MinAge: time.Minute})
	flightRecorderOnce sync.Once
)

func debugTable() Table {
	flightRecorderOnce.Do(func() {
		if err := flightRecorder.Start(); err != nil {
			panic(err)
		}
	})

	return Table{
		HandleFunc(`^pprof/cmdline$`, pprof.Cmdline, get),
		HandleFunc(`^pprof/profile$`, pprof.Profile, get),
		HandleFunc(`^pprof/symbol$`, pprof.Symbol, get, post),
		HandleFunc(`^pprof/trace$`, pprof.Trace, get),
		HandleFunc(`^pprof/`, pprof.Index, get).Named("pprof"),
		HandleFunc(`^flight$`, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = flightRecorder.WriteTo(w)
		}, get).Named("flight-recorder"),
	}
}
