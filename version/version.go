package version

import (
	"fmt"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	wsemaVersion string // set by build infrastructure
)

type WsemaVersionInformation struct {
	Version         string
	RuntimeGo       string
	RuntimeGOOS     string
	RuntimeGOARCH   string
	RUNTIMECompiler string
}

func NewWsemaVersionInformation() *WsemaVersionInformation {
	return &WsemaVersionInformation{
		Version:         wsemaVersion,
		RuntimeGo:       runtime.Version(),
		RuntimeGOOS:     runtime.GOOS,
		RuntimeGOARCH:   runtime.GOARCH,
		RUNTIMECompiler: runtime.Compiler,
	}
}

func (i *WsemaVersionInformation) String() string {
	return fmt.Sprintf("wsema version=%s go=%s GOOS=%s GOARCH=%s Compiler=%s",
		i.Version, i.RuntimeGo, i.RuntimeGOOS, i.RuntimeGOARCH, i.RUNTIMECompiler)
}

func newPrometheusMetric() prometheus.Collector {
	return prometheus.NewUntypedFunc(
		prometheus.UntypedOpts{
			Namespace: "wsema",
			Subsystem: "version",
			Name:      "info",
			Help:      "wsema version",
			ConstLabels: map[string]string{
				"raw":          wsemaVersion,
				"version_info": NewWsemaVersionInformation().String(),
			},
		},
		func() float64 { return 1 },
	)
}

func PrometheusRegister(r prometheus.Registerer) error {
	return r.Register(newPrometheusMetric())
}
