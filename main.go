// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/SolidRhino/t2-kernel/cmd/t2kernel"

func main() {
	cmd.Execute()
}
