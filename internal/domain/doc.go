// Package domain contains the core entities of the module loader.
//
// This package has no dependencies on the host framework, the fetch
// mechanism or logging. It holds only the values the loader reasons about
// and the invariants attached to them.
//
// # Entities
//
//   - [ModuleConfig]: where a module's source files and template live
//   - [Ref]: a reference to a module, by bare name or inline configuration
//   - [Declaration]: one queued registration call recorded against a module
//   - [LoadList]: the ordered, deduplicated set of modules touched by one load
package domain
