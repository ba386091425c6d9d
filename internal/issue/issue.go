// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Catalog identifiers. Zero means "no catalog entry".
const (
	ManifestNotFoundId Id = iota + 1
	ManifestParseErrorId
	ToolchainMissingId
	LocateProjectFailedId
	BuildFailedId
	BinaryMissingId
	ArtifactCollisionId
	MissingEnvId
	ConfigLoadFailedId
	ManifestRestoreFailedId
)

type (
	// Id identifies a catalog entry.
	Id int

	// MarkdownMsg is the Markdown body of a catalog entry.
	MarkdownMsg string

	// Issue is a catalog entry with remediation guidance.
	Issue struct {
		id    Id
		mdMsg MarkdownMsg
	}
)

var (
	render = glamour.Render

	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# No Cargo.toml found!

rustfn searched upward from the entrypoint directory and found no manifest.
A minimal manifest is synthesized next to the entrypoint, but your function
will not have any dependencies declared.

## Things you can try:
- Create a manifest at the project root:
~~~
$ cargo init --bin
~~~
- Declare the function as a binary target:
~~~toml
[[bin]]
name = "hello"
path = "api/hello.rs"
~~~`,
	}

	manifestParseErrorIssue = &Issue{
		id: ManifestParseErrorId,
		mdMsg: `
# Failed to parse Cargo.toml!

The manifest is not valid TOML, so no binary target could be registered.

## Things you can try:
- Let cargo point at the offending line:
~~~
$ cargo verify-project
~~~
- Check for unbalanced quotes or duplicated keys in ` + "`[[bin]]`" + ` tables`,
	}

	toolchainMissingIssue = &Issue{
		id: ToolchainMissingId,
		mdMsg: `
# cargo was not found!

The build environment PATH (including ` + "`$HOME/.cargo/bin`" + `) has no cargo executable.

## Things you can try:
~~~
$ curl --proto '=https' --tlsv1.2 -sSf https://sh.rustup.rs | sh -s -- -y
~~~`,
	}

	locateProjectFailedIssue = &Issue{
		id: LocateProjectFailedId,
		mdMsg: `
# cargo locate-project failed!

cargo reported an error other than "could not find" while locating the project.

## Things you can try:
- Run the command yourself from the entrypoint directory:
~~~
$ cargo locate-project
~~~
- Switch to filesystem discovery in rustfn.cue:
~~~cue
toolchain: locate: "walk"
~~~`,
	}

	buildFailedIssue = &Issue{
		id: BuildFailedId,
		mdMsg: `
# cargo build failed!

The compiler output above describes the failure. Builds are never retried:
the same sources produce the same error.

## Things you can try:
- Reproduce locally with debug output:
~~~
$ RUSTFN_BUILDER_DEBUG=1 rustfn build api/hello.rs
~~~`,
	}

	binaryMissingIssue = &Issue{
		id: BinaryMissingId,
		mdMsg: `
# Compiled binary not found!

cargo exited successfully but the binary is not at the expected path.

## Things you can try:
- Check ` + "`build.target-dir`" + ` in .cargo/config.toml
- Make sure the ` + "`--target`" + ` triple matches toolchain.target`,
	}

	artifactCollisionIssue = &Issue{
		id: ArtifactCollisionId,
		mdMsg: `
# Extra file collides with the bootstrap executable!

One of the files matched by include_files has the same name as the bootstrap
executable. Extra files never override the bootstrap entry.

## Things you can try:
- Narrow the include_files globs in rustfn.cue
- Rename the conflicting file`,
	}

	missingEnvIssue = &Issue{
		id: MissingEnvId,
		mdMsg: `
# Required environment variable missing!

HOME and PATH must be present in the build environment; they are never
defaulted.`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Configuration file locations:
1. --config flag
2. ./rustfn.cue
3. $XDG_CONFIG_HOME/rustfn/config.cue

## Things you can try:
~~~
$ rustfn config init
~~~`,
	}

	manifestRestoreFailedIssue = &Issue{
		id: ManifestRestoreFailedId,
		mdMsg: `
# Cargo.toml could not be restored!

An ephemeral build left the manifest backup in place.

## Things you can try:
~~~
$ mv Cargo.toml.backup Cargo.toml
~~~`,
	}

	issues = map[Id]*Issue{
		manifestNotFoundIssue.Id():      manifestNotFoundIssue,
		manifestParseErrorIssue.Id():    manifestParseErrorIssue,
		toolchainMissingIssue.Id():      toolchainMissingIssue,
		locateProjectFailedIssue.Id():   locateProjectFailedIssue,
		buildFailedIssue.Id():           buildFailedIssue,
		binaryMissingIssue.Id():         binaryMissingIssue,
		artifactCollisionIssue.Id():     artifactCollisionIssue,
		missingEnvIssue.Id():            missingEnvIssue,
		configLoadFailedIssue.Id():      configLoadFailedIssue,
		manifestRestoreFailedIssue.Id(): manifestRestoreFailedIssue,
	}
)

// Id returns the catalog identifier.
func (i *Issue) Id() Id {
	return i.id
}

// MarkdownMsg returns the raw Markdown guidance.
func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// Render renders the guidance for a terminal using the given glamour style
// ("dark", "light", "notty", ...).
func (i *Issue) Render(stylePath string) (string, error) {
	return render(strings.TrimSpace(string(i.mdMsg)), stylePath)
}

// Values returns all catalog entries ordered by Id.
func Values() []*Issue {
	ids := slices.Sorted(maps.Keys(issues))
	out := make([]*Issue, 0, len(ids))
	for _, id := range ids {
		out = append(out, issues[id])
	}
	return out
}

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}

// Lookup returns the catalog entry linked from the first ActionableError in
// the chain that carries an issue Id.
func Lookup(err error) *Issue {
	for err != nil {
		var ae *ActionableError
		if !errors.As(err, &ae) {
			return nil
		}
		if ae.Issue != 0 {
			return Get(ae.Issue)
		}
		err = ae.Cause
	}
	return nil
}
