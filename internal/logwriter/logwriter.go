package logwriter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"code.sztanpet.net/zvpsz/picad-vision/internal/file"
	"github.com/juju/loggo"
)

// Notifier receives every formatted log line, WARNING and above are sent with a notification.
type Notifier interface {
	Send(txt string, disableNotification bool) error
}

type writer struct {
	path   string
	stderr io.Writer
	bot    Notifier
}

// Setup replaces loggo's default writer. Lines are appended to <statePath>/<binary>.log,
// or written to stderr when statePath is empty. bot may be nil.
func Setup(bot Notifier, statePath, spec string) error {
	w := &writer{
		stderr: os.Stderr,
		bot:    bot,
	}
	if statePath != "" {
		path, err := os.Executable()
		if err != nil {
			panic("os.Executable() failed! " + err.Error())
		}
		w.path = filepath.Join(statePath, filepath.Base(path)+".log")
	}

	if _, err := loggo.RemoveWriter("default"); err != nil {
		return err
	}
	if err := loggo.RegisterWriter("default", w); err != nil {
		return err
	}

	if spec != "" {
		return loggo.ConfigureLoggers(spec)
	}

	return nil
}

func (w *writer) Write(e loggo.Entry) {
	line := w.formatEntry(e)

	fp := e.Filename
	ix := strings.Index(e.Filename, "picad-vision/")
	if ix != -1 {
		fp = fp[ix+len("picad-vision/"):]
	}

	l := fmt.Sprintf("%v%v:%v %v\n",
		e.Timestamp.Format("[2006-01-02 15:04:05] "),
		fp, e.Line,
		line,
	)
	if w.path == "" {
		_, _ = io.WriteString(w.stderr, l)
	} else if err := file.Append(w.path, []byte(l)); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write log file: %v\n", err)
	}

	if w.bot == nil {
		return
	}
	go func() {
		needNotification := e.Level >= loggo.WARNING
		if err := w.bot.Send(line, !needNotification); err != nil {
			fmt.Fprintf(os.Stderr, "%v bot send error: %v\n", e.Timestamp.Format("[2006-01-02 15:04:05]"), err)
		}
	}()
}

func (w *writer) formatEntry(e loggo.Entry) string {
	// who can remember the order of the levels right?
	// indicate the level like T1 for TRACE D2 for debug, etc
	return fmt.Sprintf(
		"[%v%v|%v:%v:%v] %v",
		string(e.Level.String()[0]),
		int(e.Level),
		e.Module,
		filepath.Base(e.Filename),
		e.Line,
		e.Message,
	)
}
