package config

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasm-resolver/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *Config
		wantErr errors.Kind
	}{
		{
			name: "full",
			input: `
library: mem://localhost/libs/mathlib.wasm
wit: mem://localhost/libs/mathlib.wit
memoryLimitPages: 256
disableWasi: true
log:
  level: debug
  format: json
`,
			want: &Config{
				Library:          "mem://localhost/libs/mathlib.wasm",
				WIT:              "mem://localhost/libs/mathlib.wit",
				MemoryLimitPages: 256,
				DisableWASI:      true,
				Log:              Log{Level: "debug", Format: FormatJSON},
			},
		},
		{
			name:  "defaults",
			input: "library: /opt/libs/mathlib.wasm\n",
			want: &Config{
				Library: "/opt/libs/mathlib.wasm",
				Log:     Log{Level: "info", Format: FormatConsole},
			},
		},
		{
			name:    "missing library",
			input:   "wit: x.wit\n",
			wantErr: errors.KindInvalidArgument,
		},
		{
			name:    "memory limit too large",
			input:   "library: a.wasm\nmemoryLimitPages: 70000\n",
			wantErr: errors.KindInvalidArgument,
		},
		{
			name:    "bad level",
			input:   "library: a.wasm\nlog:\n  level: loud\n",
			wantErr: errors.KindInvalidArgument,
		},
		{
			name:    "bad format",
			input:   "library: a.wasm\nlog:\n  format: xml\n",
			wantErr: errors.KindInvalidArgument,
		},
		{
			name:    "malformed yaml",
			input:   "library: [unclosed\n",
			wantErr: errors.KindInvalidData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.input))
			if tt.wantErr != "" {
				if !errors.IsKind(err, tt.wantErr) {
					t.Fatalf("expected %s, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	url := "mem://localhost/config/resolver.yaml"
	data := []byte("library: mem://localhost/libs/mathlib.wasm\nmemoryLimitPages: 16\n")
	if err := fs.Upload(ctx, url, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(ctx, fs, url)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	rc := cfg.ResolverConfig(fs)
	if rc.MemoryLimitPages != 16 || rc.FS == nil || rc.WIT != "" {
		t.Errorf("ResolverConfig = %+v", rc)
	}

	if _, err := Load(ctx, fs, "mem://localhost/config/missing.yaml"); !errors.IsKind(err, errors.KindLoadFailed) {
		t.Errorf("missing file: expected load_failed, got %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{FormatConsole, FormatJSON} {
		t.Run(format, func(t *testing.T) {
			cfg := &Config{Library: "a.wasm", Log: Log{Level: "warn", Format: format}}
			logger, err := cfg.NewLogger()
			if err != nil {
				t.Fatal(err)
			}
			if logger.Core().Enabled(zapcore.InfoLevel) {
				t.Error("info enabled at warn level")
			}
			if !logger.Core().Enabled(zapcore.ErrorLevel) {
				t.Error("error disabled at warn level")
			}
		})
	}
}
