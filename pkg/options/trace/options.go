// Package trace provides distributed tracing configuration options.
package trace

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/guardian/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Exporter names for the trace.exporter option.
const (
	// ExporterStdout pretty-prints spans to stdout.
	ExporterStdout = "stdout"

	// ExporterOTLPGRPC ships spans to an OTLP collector over gRPC.
	ExporterOTLPGRPC = "otlp-grpc"

	// ExporterNoop records nothing.
	ExporterNoop = "noop"
)

// Options configures span export for the engine's evaluation traces.
type Options struct {
	// Enabled switches span export on. When false the engine still
	// creates spans but they go nowhere.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// Exporter selects where finished spans are sent.
	Exporter string `json:"exporter" mapstructure:"exporter"`

	// Endpoint is the OTLP collector address, host:port.
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`

	// Insecure disables TLS on the OTLP connection.
	Insecure bool `json:"insecure" mapstructure:"insecure"`

	// SampleRatio is the fraction of root traces to sample.
	SampleRatio float64 `json:"sample-ratio" mapstructure:"sample-ratio" validate:"gte=0,lte=1"`
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		Enabled:     false,
		Exporter:    ExporterStdout,
		Endpoint:    "localhost:4317",
		Insecure:    true,
		SampleRatio: 1.0,
	}
}

// AddFlags adds tracing flags to the given FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, "trace.enabled", o.Enabled, "Enable span export")
	fs.StringVar(&o.Exporter, "trace.exporter", o.Exporter, "Span exporter (stdout, otlp-grpc, noop)")
	fs.StringVar(&o.Endpoint, "trace.endpoint", o.Endpoint, "OTLP collector endpoint")
	fs.BoolVar(&o.Insecure, "trace.insecure", o.Insecure, "Disable TLS for the OTLP connection")
	fs.Float64Var(&o.SampleRatio, "trace.sample-ratio", o.SampleRatio, "Fraction of root traces to sample (0.0 to 1.0)")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	var errs []error

	switch o.Exporter {
	case ExporterStdout, ExporterOTLPGRPC, ExporterNoop:
	default:
		errs = append(errs, fmt.Errorf("trace.exporter must be one of stdout, otlp-grpc, noop, got %q", o.Exporter))
	}

	if o.Enabled && o.Exporter == ExporterOTLPGRPC && o.Endpoint == "" {
		errs = append(errs, fmt.Errorf("trace.endpoint must not be empty for the otlp-grpc exporter"))
	}

	if o.SampleRatio < 0 || o.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("trace.sample-ratio must be between 0.0 and 1.0, got %v", o.SampleRatio))
	}

	return errs
}
