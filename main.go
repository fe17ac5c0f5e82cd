// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"os"

	"github.com/danielhkuo/abri/cli"
)

func main() {
	os.Exit(cli.Execute())
}
