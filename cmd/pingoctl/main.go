// Pingoctl is the CLI client for the pingod daemon's admin HTTP surface.
package main

import "github.com/pingonet/pingo-core/cmd/pingoctl/commands"

func main() {
	commands.Execute()
}
