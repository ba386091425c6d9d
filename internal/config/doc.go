// SPDX-License-Identifier: MPL-2.0

// Package config handles rustfn configuration using Viper with CUE as the file format.
//
// A project config (rustfn.cue in the working directory) takes precedence over the
// user config under the platform config directory ($XDG_CONFIG_HOME/rustfn/config.cue
// on Linux). An explicit --config path replaces both. RUSTFN_* environment variables
// override file values, e.g. RUSTFN_TOOLCHAIN_LOCATE=walk.
//
// Files are validated against the embedded config_schema.cue before being merged.
package config
