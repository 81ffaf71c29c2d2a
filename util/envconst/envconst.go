// Package envconst provides process-wide tunables that are read from
// environment variables on first use.
//
// A value that was successfully parsed is cached for the lifetime of the
// process. An unset or empty variable yields the default and is not cached.
// A variable that cannot be parsed is a configuration error and panics.
package envconst

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var cache sync.Map

func lookup[T any](varname string, def T, parse func(string) (T, error)) T {
	if v, ok := cache.Load(varname); ok {
		return v.(T)
	}
	e := os.Getenv(varname)
	if e == "" {
		return def
	}
	v, err := parse(e)
	if err != nil {
		panic(errors.Wrapf(err, "cannot parse environment variable %s=%q", varname, e))
	}
	cache.Store(varname, v)
	return v
}

func Duration(varname string, def time.Duration) time.Duration {
	return lookup(varname, def, time.ParseDuration)
}

func Int(varname string, def int) int {
	return lookup(varname, def, func(s string) (int, error) {
		i, err := strconv.ParseInt(s, 10, strconv.IntSize)
		return int(i), err
	})
}

func Int64(varname string, def int64) int64 {
	return lookup(varname, def, func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	})
}

func Bool(varname string, def bool) bool {
	return lookup(varname, def, strconv.ParseBool)
}

func String(varname string, def string) string {
	return lookup(varname, def, func(s string) (string, error) { return s, nil })
}
