//go:build !tinygo

package logx

import "github.com/golang/glog"

// Verbose gates V-level records, as glog.Verbose does.
type Verbose bool

func V(level int32) Verbose { return Verbose(glog.V(glog.Level(level))) }

func (v Verbose) Infof(format string, args ...any) {
	if v {
		glog.InfoDepthf(1, format, args...)
	}
}

func Info(msg string)                     { glog.InfoDepth(1, msg) }
func Infof(format string, args ...any)    { glog.InfoDepthf(1, format, args...) }
func Warningf(format string, args ...any) { glog.WarningDepthf(1, format, args...) }
func Errorf(format string, args ...any)   { glog.ErrorDepthf(1, format, args...) }
func Flush()                              { glog.Flush() }
