// SPDX-License-Identifier: MPL-2.0

// Package routes compiles file-system style entrypoint paths into an ordered
// URL routing table.
//
// Each path segment is parsed once into one of four variants:
//
//	foo         Static
//	[id]        Dynamic           -> (?<id>[^/]+), query id=$id
//	[...all]    CatchAll          -> (\S+)
//	[[...all]]  OptionalCatchAll  -> (/\S+)?
//
// Routes are ordered by precedence class (Static < Dynamic < CatchAll) and then
// by segment depth, deepest first, so a shallow catch-all never shadows a
// deeper literal route. The ordering is the contract consumed by the host router.
package routes
