// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/bidsflow/bidsflow/cmd/bidsflow"

func main() {
	cmd.Execute()
}
