// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/rustfn/rustfn/cmd/rustfn"

func main() {
	cmd.Execute()
}
