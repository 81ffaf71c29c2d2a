package client

import (
	"context"
	"fmt"

	"github.com/zrepl/wsema/cli"
	"github.com/zrepl/wsema/version"
)

var VersionCmd = &cli.Subcommand{
	Use:             "version",
	Short:           "print version of wsema binary",
	NoRequireConfig: true,
	Run: func(ctx context.Context, subcommand *cli.Subcommand, args []string) error {
		fmt.Println(version.NewWsemaVersionInformation().String())
		return nil
	},
}
