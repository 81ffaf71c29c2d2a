package logging

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zrepl/wsema/config"
	"github.com/zrepl/wsema/logger"
)

var testTime = time.Date(2019, 9, 3, 12, 38, 49, 0, time.UTC)

func testEntry() *logger.Entry {
	return &logger.Entry{
		Level:   logger.Info,
		Message: "ACQUIRED",
		Time:    testTime,
		Fields: logger.Fields{
			SubsysField: SubsysDemo,
			WorkerField: 3,
			"weight":    int64(1),
			"elapsed":   "1s",
		},
	}
}

func TestHumanFormatter(t *testing.T) {
	f := &HumanFormatter{}
	f.SetMetadataFlags(MetadataTime | MetadataLevel)
	out, err := f.Format(testEntry())
	require.NoError(t, err)
	assert.Equal(t, "2019-09-03T12:38:49Z [INFO][demo][3]: ACQUIRED elapsed=1s weight=1", string(out))

	f.SetMetadataFlags(MetadataNone)
	f.SetIgnoreFields([]string{"elapsed"})
	out, err = f.Format(testEntry())
	require.NoError(t, err)
	assert.Equal(t, "[demo][3]: ACQUIRED weight=1", string(out))
}

func TestHumanFormatterColor(t *testing.T) {
	f := &HumanFormatter{}
	f.SetMetadataFlags(MetadataLevel | MetadataColor)
	out, err := f.Format(testEntry())
	require.NoError(t, err)
	assert.Contains(t, string(out), "\x1b[")
	assert.Contains(t, string(out), "[INFO]")
}

func TestLogfmtFormatter(t *testing.T) {
	f := &LogfmtFormatter{}
	f.SetMetadataFlags(MetadataAll)
	out, err := f.Format(testEntry())
	require.NoError(t, err)
	assert.Equal(t, "time=2019-09-03T12:38:49Z level=info subsystem=demo worker=3 msg=ACQUIRED elapsed=1s weight=1", string(out))
}

func TestJSONFormatter(t *testing.T) {
	f := &JSONFormatter{}
	f.SetMetadataFlags(MetadataAll)
	out, err := f.Format(testEntry())
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "ACQUIRED", decoded[FieldMessage])
	assert.Equal(t, "info", decoded[FieldLevel])
	assert.Equal(t, "demo", decoded[SubsysField])
	assert.Equal(t, 3.0, decoded[WorkerField])
}

func TestWriterOutlet(t *testing.T) {
	var buf bytes.Buffer
	o := NewWriterOutlet(NoFormatter{}, &buf)
	require.NoError(t, o.WriteEntry(*testEntry()))
	require.NoError(t, o.WriteEntry(*testEntry()))
	assert.Equal(t, "ACQUIRED\nACQUIRED\n", buf.String())
}

func TestOutletsFromConfig(t *testing.T) {
	c, err := config.Default()
	require.NoError(t, err)

	outlets, err := OutletsFromConfig(*c.Logging)
	require.NoError(t, err)
	assert.Len(t, outlets.Get(logger.Debug), 0)
	assert.Len(t, outlets.Get(logger.Info), 1)
	assert.Len(t, outlets.Get(logger.Error), 1)
}

func TestOutletsFromConfigErrors(t *testing.T) {
	badLevel := config.LoggingOutletEnumList{{Ret: &config.StdoutLoggingOutlet{
		LoggingOutletCommon: config.LoggingOutletCommon{Type: "stdout", Level: "verbose", Format: "human"},
	}}}
	_, err := OutletsFromConfig(badLevel)
	assert.Error(t, err)

	badFormat := config.LoggingOutletEnumList{{Ret: &config.StderrLoggingOutlet{
		LoggingOutletCommon: config.LoggingOutletCommon{Type: "stderr", Level: "info", Format: "xml"},
	}}}
	_, err = OutletsFromConfig(badFormat)
	assert.Error(t, err)

	stdout := &config.StdoutLoggingOutlet{
		LoggingOutletCommon: config.LoggingOutletCommon{Type: "stdout", Level: "info", Format: "human"},
	}
	_, err = OutletsFromConfig(config.LoggingOutletEnumList{{Ret: stdout}, {Ret: stdout}})
	assert.Error(t, err)
}

func TestLogSubsystem(t *testing.T) {
	var buf bytes.Buffer
	outlets := logger.NewOutlets()
	outlets.Add(NewWriterOutlet(&LogfmtFormatter{}, &buf), logger.Debug)
	log := LogSubsystem(logger.NewLogger(outlets), SubsysSemaphore)
	log.Debug("hello")
	assert.Equal(t, "subsystem=semaphore msg=hello\n", buf.String())
}
