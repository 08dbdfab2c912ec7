// Command pointd runs the point ledger daemon and its CLI.
package main

import "github.com/tutu-network/pointledger/internal/cli"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.Execute(version)
}
