// Package ports defines the interfaces (ports) that connect the loader core
// to the host framework and to infrastructure adapters.
//
// Ports describe what the loader needs from the outside world without saying
// how it is provided. The core in pkg/lazyload depends only on these
// interfaces; pkg/host, pkg/source and pkg/script provide implementations.
//
// # Port Interfaces
//
//   - [Framework]: the host's module graph and its late-registration collaborators
//   - [ModuleDefinition]: a module known to the host, with its queued declarations
//   - [Collaborator], [Invoker]: targets of replayed declarations
//   - [AsyncLoader]: makes a list of source files available to the host
//   - [Source]: fetches raw file contents (scripts, templates)
//   - [Scope], [Element], [Compiler]: what an Outlet needs to render templates
//   - [Logger]: structured logging abstraction
package ports
