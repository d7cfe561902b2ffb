package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	streamerrors "github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/stream"
	"github.com/kbukum/streamkit/version"
)

func TestRun_Stdin(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("apple\nbanana\n\ncherry\navocado\n")
	err := run(context.Background(), []string{"--batch-size", "2", "--match", "a"}, in, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := `{"seq":0,"lines":["apple","banana"]}` + "\n" + `{"seq":1,"lines":["avocado"]}` + "\n"
	if out.String() != want {
		t.Errorf("output:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestRun_InputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	err := run(context.Background(), []string{"-i", path, "-b", "5", "--upper"}, strings.NewReader(""), &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := `{"seq":0,"lines":["ONE","TWO","THREE"]}` + "\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestRun_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := "pipeline:\n  batch_size: 1\n  match: \"^b\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	err := run(context.Background(), []string{"--config", path}, strings.NewReader("a\nb1\nb2\n"), &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := `{"seq":0,"lines":["b1"]}` + "\n" + `{"seq":1,"lines":["b2"]}` + "\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	err := run(context.Background(), []string{"--batch-size", "0"}, strings.NewReader("x\n"), io.Discard)
	appErr, ok := streamerrors.As(err)
	if !ok {
		t.Fatalf("err = %v, want *AppError", err)
	}
	if !strings.Contains(appErr.Message, "pipeline.batch_size") {
		t.Errorf("message = %q, want it to name pipeline.batch_size", appErr.Message)
	}
}

func TestRun_MissingInputFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.txt")
	if err := run(context.Background(), []string{"-i", missing}, nil, io.Discard); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want not-exist", err)
	}
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"--version"}, nil, &out); err != nil {
		t.Fatal(err)
	}
	if want := version.String() + "\n"; out.String() != want {
		t.Errorf("version output = %q, want %q", out.String(), want)
	}
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestDrive_ReaderError(t *testing.T) {
	boom := errors.New("boom")
	pipeline := stream.Each(func(context.Context, string) error { return nil })
	if err := drive(context.Background(), failingReader{boom}, stream.DefaultMaxLineSize, pipeline); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestDrive_PipelineError(t *testing.T) {
	boom := errors.New("sink failed")
	pipeline := stream.Each(func(context.Context, string) error { return boom })
	in := io.NopCloser(strings.NewReader("a\nb\nc\n"))
	if err := drive(context.Background(), in, stream.DefaultMaxLineSize, pipeline); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestDrive_Cancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	ctx, cancel := context.WithCancel(context.Background())
	pipeline := stream.Each(func(context.Context, string) error { return nil })

	done := make(chan error, 1)
	go func() { done <- drive(ctx, pr, stream.DefaultMaxLineSize, pipeline) }()
	if _, err := pw.Write([]byte("first\n")); err != nil {
		t.Fatal(err)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRun_LongLine(t *testing.T) {
	long := strings.Repeat("x", 100*1024)
	var out bytes.Buffer
	err := run(context.Background(), []string{"-b", "10"}, strings.NewReader("a\n"+long+"\nb\n"), &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	groups := decodeGroups(t, &out)
	if len(groups) != 1 || len(groups[0].Lines) != 3 || groups[0].Lines[1] != long || groups[0].Lines[2] != "b" {
		t.Errorf("long line not passed through intact: %d groups", len(groups))
	}
}

func TestRun_MaxLineExceeded(t *testing.T) {
	err := run(context.Background(), []string{"--max-line", "8"}, strings.NewReader("short\n"+strings.Repeat("y", 32)+"\n"), io.Discard)
	if !errors.Is(err, bufio.ErrTooLong) {
		t.Fatalf("err = %v, want bufio.ErrTooLong", err)
	}
}

func TestLoadConfig_ZeroSampleRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("telemetry:\n  sample_rate: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	fs := newFlagSet()
	if err := fs.Parse([]string{"--config", path}); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(fs)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Telemetry.SampleRate == nil || *cfg.Telemetry.SampleRate != 0 {
		t.Errorf("sample rate = %v, want explicit 0", cfg.Telemetry.SampleRate)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"plain", errors.New("boom"), 1},
		{"invalid input", streamerrors.InvalidInput("size", "bad"), 2},
		{"invalid config wrapped", fmt.Errorf("load: %w", streamerrors.InvalidConfig("svc", errors.New("x"))), 2},
		{"missing field", streamerrors.MissingField("name"), 2},
		{"internal", streamerrors.Internal(errors.New("x")), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSettle(t *testing.T) {
	boom := errors.New("sink failed")
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "info", Format: "json"}, "test", &buf)

	if err := settle(context.Background(), log, boom); !errors.Is(err, boom) {
		t.Errorf("live context: err = %v, want %v", err, boom)
	}
	if err := settle(cancelled, log, boom); err != nil {
		t.Errorf("interrupted: err = %v, want nil", err)
	}
	if !strings.Contains(buf.String(), "sink failed") {
		t.Errorf("error raced with the signal was not logged: %q", buf.String())
	}

	buf.Reset()
	if err := settle(cancelled, log, context.Canceled); err != nil {
		t.Errorf("err = %v, want nil", err)
	}
	if strings.Contains(buf.String(), `"level":"warn"`) {
		t.Errorf("plain cancellation logged as a warning: %q", buf.String())
	}
}

func TestDrive_PipelinePanic(t *testing.T) {
	pipeline := stream.Each(func(context.Context, string) error { panic("bad stage") })
	err := drive(context.Background(), strings.NewReader("a\n"), stream.DefaultMaxLineSize, pipeline)
	if !streamerrors.IsCode(err, streamerrors.ErrCodeInternal) {
		t.Fatalf("err = %v, want INTERNAL_ERROR", err)
	}
	if !strings.Contains(err.Error(), "bad stage") {
		t.Errorf("panic value missing from %q", err.Error())
	}
}
