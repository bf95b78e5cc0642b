//go:build tinygo

package logx

// Verbose records are dropped on the MCU.
type Verbose bool

func V(int32) Verbose { return false }

func (Verbose) Infof(string, ...any) {}

func Info(msg string)                     { println("I " + msg) }
func Infof(format string, args ...any)    { println(line('I', format, args)) }
func Warningf(format string, args ...any) { println(line('W', format, args)) }
func Errorf(format string, args ...any)   { println(line('E', format, args)) }
func Flush()                              {}
