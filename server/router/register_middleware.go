package router

import (
	"codeberg.org/galaxy/console/config"
	"codeberg.org/galaxy/console/server/middleware"
	"codeberg.org/galaxy/console/server/middleware/limiter"
	"codeberg.org/galaxy/console/server/middleware/set_request_context"
)

func (router *Router) RegisterMiddleware() {
	// the first middleware is the most outer / first executed one
	router.Use(middleware.WithServerTiming)
	router.Use(middleware.AppendSlash(router.Resolves)) // /conf -> /conf/
	router.Use(set_request_context.WithRequestContext)  // needed for everything else
	router.Use(middleware.SetResponseHeaders)           // all pages need this

	if config.Global.Limiter.Enabled {
		limiter.Init()

		router.Use(limiter.Evaluate)
	}

	router.Use(middleware.CheckCSRF)
}
