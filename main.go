// See cli package.
package main

import (
	"github.com/zrepl/wsema/cli"
	"github.com/zrepl/wsema/client"
)

func init() {
	cli.AddSubcommand(client.DemoCmd)
	cli.AddSubcommand(client.ConfigcheckCmd)
	cli.AddSubcommand(client.VersionCmd)
}

func main() {
	cli.Run()
}
