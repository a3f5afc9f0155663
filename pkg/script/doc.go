// Package script is an async loader that defines host modules from fetched
// files. Lua scripts (.lua) are run by an embedded gopher-lua state; HCL
// manifests (.hcl) declare modules whose services are Go handlers from a
// Catalog.
//
// # Lua
//
//	lazy.module("charts", {"core", {name = "colors", files = {"colors.lua"}}})
//	    :value("palette", {"red", "blue"})
//	    :factory("chartService", {"palette"}, function(palette)
//	        return {count = #palette}
//	    end)
//	    :run({"chartService"}, function(svc) print(svc.count) end)
//
// Builder methods are factory, service, controller, directive and filter
// (name, optional deps, function), value and constant (name, value), config
// and run (optional deps, function). Lua functions run on a single state, one
// call at a time.
//
// # HCL
//
//	module "charts" {
//	  requires = ["core", { name = "colors", files = ["colors.hcl"] }]
//
//	  value "palette" { value = ["red", "blue"] }
//	  factory "chartService" {
//	    handler = "charts.service"
//	    deps    = ["palette"]
//	  }
//	  run { handler = "charts.start" }
//	}
//
// Handlers are registered on a Catalog before loading.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package script
