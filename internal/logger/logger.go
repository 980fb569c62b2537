package logger

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup sends the standard logger to stdout and a size-rotated file.
// An empty filename leaves logging on stderr. The returned closer flushes
// and releases the file; call it on shutdown.
func Setup(filename string, maxSizeMB, maxBackups int) io.Closer {
	if filename == "" {
		return nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}

	log.SetOutput(io.MultiWriter(os.Stdout, file))
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	return file
}
