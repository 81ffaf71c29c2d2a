package logging

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"

	"github.com/zrepl/wsema/config"
	"github.com/zrepl/wsema/logger"
)

func OutletsFromConfig(in config.LoggingOutletEnumList) (*logger.Outlets, error) {

	outlets := logger.NewOutlets()

	if len(in) == 0 {
		// Default config
		out := WriterOutlet{&HumanFormatter{}, os.Stdout}
		outlets.Add(out, logger.Info)
		return outlets, nil
	}

	var stdoutOutlets, stderrOutlets int
	for lei, le := range in {

		outlet, minLevel, err := parseOutlet(le)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot parse outlet #%d", lei)
		}
		switch le.Ret.(type) {
		case *config.StdoutLoggingOutlet:
			stdoutOutlets++
		case *config.StderrLoggingOutlet:
			stderrOutlets++
		}

		outlets.Add(outlet, minLevel)

	}

	if stdoutOutlets > 1 {
		return nil, errors.Errorf("can only define one 'stdout' outlet")
	}
	if stderrOutlets > 1 {
		return nil, errors.Errorf("can only define one 'stderr' outlet")
	}

	return outlets, nil

}

type Subsystem string

const (
	SubsysSemaphore Subsystem = "semaphore"
	SubsysDemo      Subsystem = "demo"
	SubsysMetrics   Subsystem = "metrics"
)

func LogSubsystem(log logger.Logger, subsys Subsystem) logger.Logger {
	return log.ReplaceField(SubsysField, subsys)
}

func parseLogFormat(format string) (f EntryFormatter, err error) {
	switch format {
	case "human":
		return &HumanFormatter{}, nil
	case "logfmt":
		return &LogfmtFormatter{}, nil
	case "json":
		return &JSONFormatter{}, nil
	default:
		return nil, errors.Errorf("invalid log format: '%s'", format)
	}
}

func parseCommon(common config.LoggingOutletCommon) (EntryFormatter, logger.Level, error) {
	minLevel, err := logger.ParseLevel(common.Level)
	if err != nil {
		return nil, 0, errors.Wrap(err, "cannot parse 'level' field")
	}
	formatter, err := parseLogFormat(common.Format)
	if err != nil {
		return nil, 0, errors.Wrap(err, "cannot parse 'format' field")
	}
	return formatter, minLevel, nil
}

var stdoutIsTerminal = func() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func parseOutlet(in config.LoggingOutletEnum) (o logger.Outlet, level logger.Level, err error) {
	switch v := in.Ret.(type) {
	case *config.StdoutLoggingOutlet:
		var f EntryFormatter
		f, level, err = parseCommon(v.LoggingOutletCommon)
		if err != nil {
			break
		}
		flags := MetadataAll
		if !v.Time {
			flags &= ^MetadataTime
		}
		if !v.Color || !stdoutIsTerminal() {
			flags &= ^MetadataColor
		}
		f.SetMetadataFlags(flags)
		o = WriterOutlet{f, os.Stdout}
	case *config.StderrLoggingOutlet:
		var f EntryFormatter
		f, level, err = parseCommon(v.LoggingOutletCommon)
		if err != nil {
			break
		}
		flags := MetadataAll & ^MetadataColor
		if !v.Time {
			flags &= ^MetadataTime
		}
		f.SetMetadataFlags(flags)
		o = WriterOutlet{f, os.Stderr}
	default:
		err = errors.Errorf("unknown outlet type %T", v)
	}
	return o, level, err
}
