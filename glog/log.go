// Package glog is the package-level logger used throughout the module: a
// thin level-filtered wrapper over the standard log package, plus the
// structured JSON logger in structured.go for events worth querying later
// (connection outcomes, virtual channel traffic, performance samples).
package glog

import (
	"fmt"
	"log"
	"os"
)

// LEVEL is the logging verbosity threshold.
type LEVEL int

const (
	DEBUG LEVEL = iota
	INFO
	WARN
	ERROR
)

var (
	std      = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
	curLevel = INFO
)

// SetLevel changes the package-level verbosity threshold.
func SetLevel(level LEVEL) {
	curLevel = level
}

func logf(level LEVEL, prefix, format string, args ...interface{}) {
	if level < curLevel {
		return
	}
	std.Output(3, prefix+fmt.Sprintf(format, args...)) //nolint:errcheck
}

func Debugf(format string, args ...interface{}) { logf(DEBUG, "[DEBUG] ", format, args...) }
func Infof(format string, args ...interface{})  { logf(INFO, "[INFO] ", format, args...) }
func Warnf(format string, args ...interface{})  { logf(WARN, "[WARN] ", format, args...) }
func Errorf(format string, args ...interface{}) { logf(ERROR, "[ERROR] ", format, args...) }

func Debug(args ...interface{}) { logf(DEBUG, "[DEBUG] ", "%s", fmt.Sprint(args...)) }
func Info(args ...interface{})  { logf(INFO, "[INFO] ", "%s", fmt.Sprint(args...)) }
func Warn(args ...interface{})  { logf(WARN, "[WARN] ", "%s", fmt.Sprint(args...)) }
func Error(args ...interface{}) { logf(ERROR, "[ERROR] ", "%s", fmt.Sprint(args...)) }
