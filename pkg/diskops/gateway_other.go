//go:build !windows

package diskops

import (
	"log/slog"
	"runtime"
)

// NewGateway returns a stub on non-Windows hosts.
func NewGateway(powershell string) Gateway {
	slog.Warn("diskops_unavailable", "platform", runtime.GOOS)
	return Stub{}
}
