// Package logch implements the logging facade (C9): one append-only,
// timestamp-prefixed channel per concern, each its own file under log_dir,
// all side-effect-free from the orchestrator's point of view.
//
// Grounded on grafana-k6/cmd/logger.go's LogstashJSONFormatter (a custom
// logrus.Formatter) and cmd/root.go's `log-output=file[=path]` hook
// (internal/lib/testutils' file-hook pattern); the per-channel fan-out
// replaces the single log-output selector because spec §6 requires
// multiple, simultaneously open channels rather than one.
package logch

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Name identifies one of the fixed log channels spec §6 requires.
type Name string

// The channel names from spec §6's "Log layout" table.
const (
	Err      Name = "err"
	IMURaw   Name = "imu_raw"
	IMUData  Name = "imu_data"
	IMUAvg   Name = "imu_avg"
	W        Name = "w"
	WCtrl    Name = "w_ctrl"
	XHat     Name = "x_hat"
	KalmanIn Name = "kalman_in"
	GPS      Name = "gps"
	TV       Name = "tv"
	TErr     Name = "t_err"
	Int      Name = "int"
	Buk      Name = "buk"
)

// allChannels lists every channel the facade opens at startup, matching
// spec §6's table exactly.
var allChannels = []Name{Err, IMURaw, IMUData, IMUAvg, W, WCtrl, XHat, KalmanIn, GPS, TV, TErr, Int, Buk}

// elapsedFormatter prefixes every log line with the elapsed "tv_sec.tv_usec"
// since epoch, a wire shape this domain calls for instead of a
// logstash-JSON line, built with the same custom logrus.Formatter
// technique.
type elapsedFormatter struct {
	epoch time.Time
}

func (f *elapsedFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	elapsed := entry.Time.Sub(f.epoch)
	sec := int64(elapsed / time.Second)
	usec := int64((elapsed % time.Second) / time.Microsecond)
	line := fmt.Sprintf("%d.%06d %s", sec, usec, entry.Message)
	for k, v := range entry.Data {
		line += fmt.Sprintf(" %s=%v", k, v)
	}
	return append([]byte(line), '\n'), nil
}

// Channels is the orchestrator's explicit logging sink parameter — the
// reimplementation design note §9 calls for replacing "repoint stderr at
// the error log" with "an explicit error-log sink that downstream modules
// accept as a parameter". Every gateway and orchestrator stage that needs
// to log is handed the *logrus.Entry-producing field logger for its
// channel, never a global.
type Channels struct {
	loggers map[Name]*logrus.Logger
	files   map[Name]afero.File
	epoch   time.Time
}

// Open creates (or appends to) one file per channel under dir
// and wires a shared elapsedFormatter referencing epoch as tv_start.
func Open(fs afero.Fs, dir string, epoch time.Time) (*Channels, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir %s: %w", dir, err)
	}
	c := &Channels{
		loggers: make(map[Name]*logrus.Logger, len(allChannels)),
		files:   make(map[Name]afero.File, len(allChannels)),
		epoch:   epoch,
	}
	formatter := &elapsedFormatter{epoch: epoch}
	for _, name := range allChannels {
		f, err := fs.OpenFile(dir+"/"+string(name), fileFlags, 0o644)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("opening log channel %s: %w", name, err)
		}
		c.files[name] = f
		c.loggers[name] = &logrus.Logger{
			Out:       f,
			Formatter: formatter,
			Hooks:     make(logrus.LevelHooks),
			Level:     logrus.DebugLevel,
		}
	}
	return c, nil
}

const fileFlags = os.O_APPEND | os.O_CREATE | os.O_WRONLY

// Logger returns the logger for a named channel. It never returns nil for
// one of the fixed channel names; callers that pass an unknown name get a
// discard logger instead of a nil-pointer panic, since a log-channel typo
// must never crash the flight loop.
func (c *Channels) Logger(name Name) *logrus.Logger {
	if l, ok := c.loggers[name]; ok {
		return l
	}
	discard := logrus.New()
	discard.SetOutput(discardWriter{})
	return discard
}

// Close flushes and closes every open channel file. Errors from individual
// files are ignored (best-effort on shutdown, mirroring grafana-k6's
// defer engine.StopOutputs() not itself returning a checked error to main).
func (c *Channels) Close() {
	for _, f := range c.files {
		_ = f.Close()
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
