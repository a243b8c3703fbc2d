// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"net/http"
	"net/http/pprof"
	"runtime/trace"
	"time"

	"codeberg.org/dtextview/dtextview/config"
	"codeberg.org/dtextview/dtextview/server/middleware"
	"codeberg.org/dtextview/dtextview/server/routes"
)

// DefineRoutes sets up all the routes for the application.
func (router *Router) DefineRoutes(site routes.Site) {
	router.HandleFunc("GET /healthz", middleware.CatchError(routes.Healthz))

	router.HandleFunc("GET /wiki/{page}", middleware.CatchError(routes.WikiPage(site)))
	router.HandleFunc("GET /wiki", redirectWithQueryParam("/wiki/", "title"))

	router.HandleFunc("POST /api/render", middleware.CatchError(routes.RenderAPI(site)))

	if config.Global.Development.InDevelopment {
		registerDebugRoutes(router)
	}
}

var flightRecorder = trace.NewFlightRecorder(trace.FlightRecorderConfig{MinAge: time.Minute})

func registerDebugRoutes(router *Router) {
	if err := flightRecorder.Start(); err != nil {
		panic(err)
	}

	router.HandleFunc("GET /debug/pprof/", pprof.Index)
	router.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
	router.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
	router.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
	router.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
	router.HandleFunc("GET /debug/flight", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = flightRecorder.WriteTo(w)
	})
}
