// Command superres trains and evaluates a super-resolution network.
package main

import (
	"github.com/born-ml/superres/internal/cli"
)

var (
	version = "0.1.0"
)

func main() {
	cli.SetVersion(version)
	cli.Execute()
}
