//go:build windows

package diskops

import "log/slog"

// NewGateway returns the PowerShell gateway.
func NewGateway(powershell string) Gateway {
	slog.Info("diskops_init", "platform", "windows", "powershell", powershell)
	return NewPowerShell(powershell, ExecRunner{})
}
