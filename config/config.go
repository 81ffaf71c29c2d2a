package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/zrepl/yaml-config"
)

type Config struct {
	Demo    *Demo                  `yaml:"demo,optional,fromdefaults"`
	Logging *LoggingOutletEnumList `yaml:"logging,optional,fromdefaults"`
}

// Demo configures the demonstration harness.
type Demo struct {
	Capacity int64         `yaml:"capacity,optional,default=3"`
	Workers  int           `yaml:"workers,optional,default=11"`
	Weight   int64         `yaml:"weight,optional,default=1"`
	HoldMin  time.Duration `yaml:"hold_min,optional,positive,default=1s"`
	HoldMax  time.Duration `yaml:"hold_max,optional,positive,default=5s"`
	Seed     int64         `yaml:"seed,optional,default=0"`
}

func (d *Demo) Validate() error {
	if d.Capacity < 1 {
		return errors.Errorf("capacity must be at least 1, got %d", d.Capacity)
	}
	if d.Workers < 1 {
		return errors.Errorf("workers must be at least 1, got %d", d.Workers)
	}
	if d.Weight < 1 || d.Weight > d.Capacity {
		return errors.Errorf("weight must be in [1, capacity=%d], got %d", d.Capacity, d.Weight)
	}
	if d.HoldMin > d.HoldMax {
		return errors.Errorf("hold_min (%s) must not exceed hold_max (%s)", d.HoldMin, d.HoldMax)
	}
	return nil
}

type LoggingOutletEnumList []LoggingOutletEnum

func (l *LoggingOutletEnumList) SetDefault() {
	def := `
type: "stdout"
time: true
level: "info"
format: "human"
`
	s := &StdoutLoggingOutlet{}
	err := yaml.UnmarshalStrict([]byte(def), s)
	if err != nil {
		panic(err)
	}
	*l = []LoggingOutletEnum{{Ret: s}}
}

var _ yaml.Defaulter = &LoggingOutletEnumList{}

type LoggingOutletEnum struct {
	Ret interface{}
}

type LoggingOutletCommon struct {
	Type   string `yaml:"type"`
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type StdoutLoggingOutlet struct {
	LoggingOutletCommon `yaml:",inline"`
	Time                bool `yaml:"time,default=true"`
	Color               bool `yaml:"color,default=true"`
}

type StderrLoggingOutlet struct {
	LoggingOutletCommon `yaml:",inline"`
	Time                bool `yaml:"time,default=true"`
}

func enumUnmarshal(u func(interface{}, bool) error, types map[string]interface{}) (interface{}, error) {
	var in struct {
		Type string
	}
	if err := u(&in, true); err != nil {
		return nil, err
	}
	if in.Type == "" {
		return nil, &yaml.TypeError{Errors: []string{"must specify type"}}
	}

	v, ok := types[in.Type]
	if !ok {
		return nil, &yaml.TypeError{Errors: []string{fmt.Sprintf("invalid type name %q", in.Type)}}
	}
	if err := u(v, false); err != nil {
		return nil, err
	}
	return v, nil
}

func (t *LoggingOutletEnum) UnmarshalYAML(u func(interface{}, bool) error) (err error) {
	t.Ret, err = enumUnmarshal(u, map[string]interface{}{
		"stdout": &StdoutLoggingOutlet{},
		"stderr": &StderrLoggingOutlet{},
	})
	return
}

var ConfigFileDefaultLocations = []string{
	"/etc/wsema/wsema.yml",
	"/usr/local/etc/wsema/wsema.yml",
}

// ParseConfig parses the config file at path.
// If path is empty, the default locations are tried in order,
// and if none of them exists, the built-in defaults are returned.
func ParseConfig(path string) (i *Config, err error) {

	if path == "" {
		// Try default locations
		for _, l := range ConfigFileDefaultLocations {
			stat, statErr := os.Stat(l)
			if statErr != nil {
				continue
			}
			if !stat.Mode().IsRegular() {
				err = errors.Errorf("file at default location is not a regular file: %s", l)
				return
			}
			path = l
			break
		}
	}

	if path == "" {
		return Default()
	}

	var bytes []byte

	if bytes, err = ioutil.ReadFile(path); err != nil {
		return nil, errors.Wrap(err, "cannot read config file")
	}

	return ParseConfigBytes(bytes)
}

func ParseConfigBytes(bytes []byte) (*Config, error) {
	var c *Config
	if err := yaml.UnmarshalStrict(bytes, &c); err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("config is empty or only consists of comments")
	}
	if err := c.Demo.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid demo config")
	}
	return c, nil
}

// Default returns the configuration that is used if no config file exists.
func Default() (*Config, error) {
	return ParseConfigBytes([]byte(`{}`))
}
