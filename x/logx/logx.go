// Package logx is the logging front the services share. Host builds write
// through glog; TinyGo builds print to the console with the same severity
// letters, since glog needs a filesystem and os/user.
package logx

import "fmt"

// line renders one record the way both backends agree on.
func line(sev byte, format string, args []any) string {
	return string(sev) + " " + fmt.Sprintf(format, args...)
}
