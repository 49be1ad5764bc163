// Package logging sets up the admin CLI's operational log: one line per
// subcommand operation (migrate, create-key) and per GC round, written to
// a rotating file so a long-lived process doesn't grow it unbounded.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the rotating log file.
type Options struct {
	// Dir is the directory the log file lives in. Defaults to the
	// current directory if empty.
	Dir string
	// MaxSizeMB is the size in megabytes a log file grows to before
	// rotation. Zero uses lumberjack's 100MB default.
	MaxSizeMB int
	// MaxBackups is how many rotated files to keep. Zero keeps all.
	MaxBackups int
	// Quiet suppresses the stderr mirror, writing only to the file.
	Quiet bool
}

// FileName is the fixed name of the rotating operational log.
const FileName = "keyvaultd-admin.log"

// New builds a *log.Logger that writes to FileName under opts.Dir
// (rotated via lumberjack) and, unless Quiet, also to stderr.
func New(opts Options) *log.Logger {
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, FileName),
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
	}

	var w io.Writer = rotator
	if !opts.Quiet {
		w = io.MultiWriter(rotator, os.Stderr)
	}
	return log.New(w, "", log.LstdFlags|log.Lmicroseconds)
}
