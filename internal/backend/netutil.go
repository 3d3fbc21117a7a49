package backend

import (
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"
)

// isNetworkError classifies the failures every client-server product has
// in common: the TCP connection went away underneath us. Product-specific
// dialects layer their own checks on top of this.
func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"bad connection",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
