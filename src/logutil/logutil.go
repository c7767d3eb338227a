package logutil

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"unicode"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileName = "screen_pilot.log"
	maxSizeMB   = 10
	maxArchives = 3
	maxLogChars = 100
)

// Options controls where log output goes when file logging is off.
type Options struct {
	// Discard drops output instead of writing to stderr (desktop binary).
	Discard bool
	// Path overrides the log file location.
	Path string
}

// Setup enables file logging with size-based rotation (10MB, max 3 files).
// When disabled, logs go to stderr, or nowhere with Options.Discard.
func Setup(enableFileLogging bool, opts ...Options) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if !enableFileLogging {
		if o.Discard {
			log.SetOutput(io.Discard)
		} else {
			log.SetOutput(os.Stderr)
		}
		return
	}
	path := o.Path
	if path == "" {
		path = logFileName
	}
	log.SetOutput(newRotatingWriter(path))
}

func newRotatingWriter(path string) io.Writer {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxArchives,
		Compress:   true,
	}
}

// RedactKey masks an API key, leaving first/last 4 chars: xxxx...yyyy
func RedactKey(k string) string {
	if len(k) <= 8 {
		return "********"
	}
	return fmt.Sprintf("%s...%s", k[:4], k[len(k)-4:])
}

// Sanitize prepares untrusted text (model output, URLs) for a single log
// line: control characters are escaped and the result is cut to 100 runes.
func Sanitize(s string) string {
	var b strings.Builder
	n := 0
	for _, r := range s {
		if n == maxLogChars {
			b.WriteString("...")
			break
		}
		switch {
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case unicode.IsControl(r):
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
		n++
	}
	return b.String()
}
