package gotftp

import (
	"fmt"

	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"
)

// LogHandler - Handle log print
type LogHandler func(string)

// textHook forwards every log line, formatted as plain text, to a
// caller-supplied handler. It lets callers that want the old line-based
// SetLogHandler hook keep working even though gotftp now logs through
// logrus.
type textHook struct {
	formatter log.Formatter
	handler   LogHandler
}

func (h *textHook) Levels() []log.Level { return log.AllLevels }

func (h *textHook) Fire(entry *log.Entry) error {
	if h.handler == nil {
		return nil
	}
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	h.handler(string(line))
	return nil
}

var baseLogger = func() *log.Logger {
	l := log.New()
	l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	l.SetLevel(log.InfoLevel)
	return l
}()

var activeHook *textHook

// SetLogHandler - set log handler to handle server's log. Passing nil
// removes any previously installed handler.
func SetLogHandler(handler LogHandler) {
	if activeHook != nil {
		baseLogger.ReplaceHooks(make(log.LevelHooks))
		activeHook = nil
	}
	if handler == nil {
		return
	}
	activeHook = &textHook{formatter: baseLogger.Formatter, handler: handler}
	baseLogger.AddHook(activeHook)
}

// EnableVerbose - open verbose mode; verbose maps to logrus' Debug level so
// every block-by-block trace line in the engine becomes visible.
func EnableVerbose(enable bool) {
	if enable {
		baseLogger.SetLevel(log.DebugLevel)
	} else {
		baseLogger.SetLevel(log.InfoLevel)
	}
}

// newTransferID returns an opaque correlation id (§2.1.K) attached to a
// request descriptor for the lifetime of one transfer.
func newTransferID() string {
	return xid.New().String()
}

// entryFor builds a *logrus.Entry pre-populated with the fields every
// transfer-scoped log line carries.
func entryFor(transferID, opcode, remote string) *log.Entry {
	return baseLogger.WithFields(log.Fields{
		"transfer_id": transferID,
		"opcode":      opcode,
		"remote":      remote,
	})
}

func logln(v ...interface{}) {
	baseLogger.Info(fmt.Sprintln(v...))
}

func logf(format string, v ...interface{}) {
	baseLogger.Infof(format, v...)
}
