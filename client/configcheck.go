package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kr/pretty"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/zrepl/yaml-config"

	"github.com/zrepl/wsema/cli"
	"github.com/zrepl/wsema/logging"
)

var configcheckArgs struct {
	format string
}

var ConfigcheckCmd = &cli.Subcommand{
	Use:   "configcheck",
	Short: "check if config can be parsed without errors",
	SetupFlags: func(f *pflag.FlagSet) {
		f.StringVar(&configcheckArgs.format, "format", "", "dump parsed config object [pretty|yaml|json]")
	},
	Run: func(ctx context.Context, subcommand *cli.Subcommand, args []string) error {
		formatMap := map[string]func(interface{}) error{
			"": func(i interface{}) error { return nil },
			"pretty": func(i interface{}) error {
				_, err := pretty.Println(i)
				return err
			},
			"json": func(i interface{}) error {
				return json.NewEncoder(os.Stdout).Encode(i)
			},
			"yaml": func(i interface{}) error {
				return yaml.NewEncoder(os.Stdout).Encode(i)
			},
		}

		formatter, ok := formatMap[configcheckArgs.format]
		if !ok {
			return fmt.Errorf("unsupported --format %q", configcheckArgs.format)
		}

		conf := subcommand.Config()
		if _, err := logging.OutletsFromConfig(*conf.Logging); err != nil {
			return errors.Wrap(err, "cannot build logging from config")
		}

		if err := formatter(conf); err != nil {
			return errors.Wrap(err, "cannot dump config")
		}
		return nil
	},
}
