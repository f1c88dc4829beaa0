package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mogiioin/hls-m3u8-parse/m3u8"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("m3u8dump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	strict := fs.Bool("strict", false, "reject playlists with unknown tags, stray URIs or version violations")
	format := fs.String("format", "json", "output format: json|yaml")
	watch := fs.Bool("watch", false, "parse the file again whenever it changes")
	logLevel := fs.String("log-level", "info", "log level: debug|info|warn|error")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: m3u8dump [flags] [file]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	usageErr := func(msg string) int {
		fmt.Fprintln(stderr, "m3u8dump:", msg)
		fs.Usage()
		return exitUsage
	}
	if fs.NArg() > 1 {
		return usageErr("at most one file may be given")
	}
	path := fs.Arg(0)
	if *watch && path == "" {
		return usageErr("-watch needs a file")
	}
	level, err := parseLogLevel(*logLevel)
	if err != nil {
		return usageErr(err.Error())
	}
	f, err := newFormatter(*format)
	if err != nil {
		return usageErr(err.Error())
	}

	d := &dumper{
		opts:   m3u8.Options{Strict: *strict},
		format: f,
		out:    stdout,
		logger: slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: level})),
	}

	if path == "" {
		if err := d.dump(stdin, "stdin"); err != nil {
			return exitFail
		}
		return exitOK
	}
	if err := d.dumpFile(path); err != nil && !*watch {
		return exitFail
	}
	if !*watch {
		return exitOK
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	w, err := newFileWatcher(path)
	if err != nil {
		d.logger.Error("watch_failed", slog.String("path", path), slog.Any("err", err))
		return exitFail
	}
	defer w.Close()
	d.logger.Info("watching_playlist", slog.String("path", path))
	watchLoop(ctx, w, path, d.logger, func() {
		_ = d.dumpFile(path) // failures are logged, watching goes on
	})
	return exitOK
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid -log-level %q (use: debug|info|warn|error)", level)
	}
}

// dumper parses playlists and writes them in the chosen format.
type dumper struct {
	opts   m3u8.Options
	format formatter
	out    io.Writer
	logger *slog.Logger
}

func (d *dumper) dumpFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		d.logger.Error("open_failed", slog.String("path", path), slog.Any("err", err))
		return err
	}
	defer f.Close()
	return d.dump(bufio.NewReader(f), path)
}

func (d *dumper) dump(r io.Reader, source string) error {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		d.logger.Error("read_failed", slog.String("source", source), slog.Any("err", err))
		return err
	}

	start := time.Now()
	doc, err := m3u8.ParseWith(buf.String(), d.opts)
	if err != nil {
		var verr *m3u8.ValidationError
		if errors.As(err, &verr) {
			for _, v := range verr.Violations {
				d.logger.Error("version_violation",
					slog.String("source", source),
					slog.Int("line", v.LineNumber),
					slog.String("text", v.Line),
					slog.String("description", v.Description),
					slog.String("how_to_fix", v.HowToFix),
				)
			}
		}
		d.logger.Error("parse_failed", slog.String("source", source), slog.Any("err", err))
		return err
	}
	d.logger.Debug("parsed",
		slog.String("source", source),
		slog.Bool("variant", doc.IsVariant),
		slog.Int("segments", len(doc.Segments)),
		slog.Int("playlists", len(doc.Playlists)),
		slog.Duration("took", time.Since(start)),
	)

	out, err := d.format.Format(doc)
	if err != nil {
		d.logger.Error("format_failed", slog.String("source", source), slog.Any("err", err))
		return err
	}
	if _, err := d.out.Write(out); err != nil {
		d.logger.Error("write_failed", slog.Any("err", err))
		return err
	}
	return nil
}
