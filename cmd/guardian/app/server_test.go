package app

import (
	"testing"

	traceopts "github.com/kart-io/guardian/pkg/options/trace"
)

func TestNewCommandRegistersFlags(t *testing.T) {
	cmd := NewCommand()
	fs := cmd.PersistentFlags()

	for _, name := range []string{
		"config",
		"version",
		"log.level",
		"security.max-failed-attempts",
		"trace.enabled",
		"trace.exporter",
		"trace.endpoint",
	} {
		if fs.Lookup(name) == nil {
			t.Errorf("flag %q not registered", name)
		}
	}
}

func TestDefaultServerOptionsValidate(t *testing.T) {
	opts := NewServerOptions()
	if errs := opts.Validate(); len(errs) > 0 {
		t.Fatalf("default options invalid: %v", errs)
	}
}

func TestServerOptionsValidateRejectsBadExporter(t *testing.T) {
	opts := NewServerOptions()
	opts.Trace.Exporter = "bogus"
	if errs := opts.Validate(); len(errs) == 0 {
		t.Fatal("expected validation error for unknown trace exporter")
	}
}

func TestServerOptionsValidateRejectsBadSampleRatio(t *testing.T) {
	opts := NewServerOptions()
	opts.Trace = &traceopts.Options{
		Exporter:    traceopts.ExporterNoop,
		SampleRatio: 1.5,
	}
	if errs := opts.Validate(); len(errs) == 0 {
		t.Fatal("expected validation error for out-of-range sample ratio")
	}
}
