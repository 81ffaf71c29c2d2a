package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/go-logfmt/logfmt"
	"github.com/pkg/errors"

	"github.com/zrepl/wsema/logger"
)

const (
	FieldLevel   = "level"
	FieldMessage = "msg"
	FieldTime    = "time"
)

const (
	SubsysField = "subsystem"
	RunField    = "run"
	WorkerField = "worker"
)

// fields that formatters put in front of the message, in this order
var prefixFields = []string{SubsysField, RunField, WorkerField}

type MetadataFlags int64

const (
	MetadataTime MetadataFlags = 1 << iota
	MetadataLevel
	MetadataColor

	MetadataNone MetadataFlags = 0
	MetadataAll  MetadataFlags = ^0
)

type EntryFormatter interface {
	SetMetadataFlags(flags MetadataFlags)
	Format(e *logger.Entry) ([]byte, error)
}

type NoFormatter struct{}

func (f NoFormatter) SetMetadataFlags(flags MetadataFlags) {}

func (f NoFormatter) Format(e *logger.Entry) ([]byte, error) {
	return []byte(e.Message), nil
}

// sortedFieldNames returns the field names of e that are not in skip, sorted.
func sortedFieldNames(e *logger.Entry, skip map[string]bool) []string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		if !skip[k] {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

var levelColors = map[logger.Level][]color.Attribute{
	logger.Debug: {color.FgHiBlack},
	logger.Info:  {color.FgGreen},
	logger.Warn:  {color.FgYellow},
	logger.Error: {color.FgRed, color.Bold},
}

type HumanFormatter struct {
	metadataFlags MetadataFlags
	ignoreFields  map[string]bool
}

const HumanFormatterDateFormat = time.RFC3339

func (f *HumanFormatter) SetMetadataFlags(flags MetadataFlags) {
	f.metadataFlags = flags
}

func (f *HumanFormatter) SetIgnoreFields(ignore []string) {
	if ignore == nil {
		f.ignoreFields = nil
		return
	}
	f.ignoreFields = make(map[string]bool, len(ignore))

	for _, field := range ignore {
		f.ignoreFields[field] = true
	}
}

func (f *HumanFormatter) ignored(field string) bool {
	return f.ignoreFields != nil && f.ignoreFields[field]
}

func (f *HumanFormatter) level(l logger.Level) string {
	short := fmt.Sprintf("[%s]", l.Short())
	attrs, ok := levelColors[l]
	if !ok || f.metadataFlags&MetadataColor == 0 {
		return short
	}
	// whether to colorize is decided by MetadataColor, not by color.NoColor
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(short)
}

func (f *HumanFormatter) Format(e *logger.Entry) (out []byte, err error) {

	var line bytes.Buffer

	if f.metadataFlags&MetadataTime != 0 {
		fmt.Fprintf(&line, "%s ", e.Time.Format(HumanFormatterDateFormat))
	}
	if f.metadataFlags&MetadataLevel != 0 {
		line.WriteString(f.level(e.Level))
	}

	prefixed := make(map[string]bool, len(prefixFields))
	for _, field := range prefixFields {
		val, ok := e.Fields[field]
		if !ok {
			continue
		}
		if !f.ignored(field) {
			fmt.Fprintf(&line, "[%v]", val)
			prefixed[field] = true
		}
	}

	if line.Len() > 0 {
		fmt.Fprint(&line, ": ")
	}
	fmt.Fprint(&line, e.Message)

	for field := range f.ignoreFields {
		prefixed[field] = true
	}
	names := sortedFieldNames(e, prefixed)
	if len(names) > 0 {
		fmt.Fprint(&line, " ")
		enc := logfmt.NewEncoder(&line)
		for _, field := range names {
			if err := logfmtTryEncodeKeyval(enc, field, e.Fields[field]); err != nil {
				return nil, err
			}
		}
	}

	return line.Bytes(), nil
}

type JSONFormatter struct {
	metadataFlags MetadataFlags
}

func (f *JSONFormatter) SetMetadataFlags(flags MetadataFlags) {
	f.metadataFlags = flags
}

func (f *JSONFormatter) Format(e *logger.Entry) ([]byte, error) {
	data := make(logger.Fields, len(e.Fields)+3)
	for k, v := range e.Fields {
		switch v := v.(type) {
		case error:
			// Otherwise errors are ignored by `encoding/json`
			data[k] = v.Error()
		case fmt.Stringer:
			data[k] = v.String()
		default:
			_, err := json.Marshal(v)
			if err != nil {
				return nil, errors.Errorf("field is not JSON encodable: %s", k)
			}
			data[k] = v
		}
	}

	data[FieldMessage] = e.Message
	if f.metadataFlags&MetadataTime != 0 {
		data[FieldTime] = e.Time.Format(time.RFC3339)
	}
	if f.metadataFlags&MetadataLevel != 0 {
		data[FieldLevel] = e.Level
	}

	return json.Marshal(data)

}

type LogfmtFormatter struct {
	metadataFlags MetadataFlags
}

func (f *LogfmtFormatter) SetMetadataFlags(flags MetadataFlags) {
	f.metadataFlags = flags
}

func (f *LogfmtFormatter) Format(e *logger.Entry) ([]byte, error) {
	var buf bytes.Buffer
	enc := logfmt.NewEncoder(&buf)

	if f.metadataFlags&MetadataTime != 0 {
		if err := enc.EncodeKeyval(FieldTime, e.Time.Format(time.RFC3339)); err != nil {
			return nil, err
		}
	}
	if f.metadataFlags&MetadataLevel != 0 {
		if err := enc.EncodeKeyval(FieldLevel, e.Level); err != nil {
			return nil, err
		}
	}

	prefixed := make(map[string]bool, len(prefixFields))
	for _, pf := range prefixFields {
		v, ok := e.Fields[pf]
		if !ok {
			continue
		}
		if err := logfmtTryEncodeKeyval(enc, pf, v); err != nil {
			return nil, err // unlikely
		}
		prefixed[pf] = true
	}

	if err := enc.EncodeKeyval(FieldMessage, e.Message); err != nil {
		return nil, err
	}

	for _, k := range sortedFieldNames(e, prefixed) {
		if err := logfmtTryEncodeKeyval(enc, k, e.Fields[k]); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func logfmtTryEncodeKeyval(enc *logfmt.Encoder, field, value interface{}) error {

	err := enc.EncodeKeyval(field, value)
	switch err {
	case nil: // ok
		return nil
	case logfmt.ErrUnsupportedValueType:
		return enc.EncodeKeyval(field, fmt.Sprintf("<%T>", value))
	}
	return errors.Wrapf(err, "cannot encode field '%s'", field)

}
