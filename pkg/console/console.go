// Package console is the operator-facing prompt layer: line-oriented prompts
// that re-ask until the input is valid, and prefixed progress, warning,
// failure and success lines.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/oneclickfedora/installer/pkg/diskops"
	"github.com/oneclickfedora/installer/pkg/errors"
)

// ErrInputClosed is returned by prompts when the input stream ends.
var ErrInputClosed = errors.New("input closed")

var (
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#3b82f6"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#eab308"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true)
	bannerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f9fafb"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
)

const (
	prefixInfo = "[INFO]"
	prefixOK   = "[OK]"
	prefixWarn = "[WARN]"
	prefixFail = "[FAIL]"
)

// Console reads operator input from in and writes messages to out.
type Console struct {
	in     *bufio.Reader
	out    io.Writer
	styled bool

	// pending is a read still blocked on in after its prompt was
	// cancelled. The next prompt takes its line.
	pending chan readResult
}

type readResult struct {
	text string
	err  error
}

// New returns a Console. When styled is set, prefixes are colored.
func New(in io.Reader, out io.Writer, styled bool) *Console {
	return &Console{
		in:     bufio.NewReader(in),
		out:    out,
		styled: styled,
	}
}

// NewStd returns a Console on stdin/stdout, styled when stdout is a terminal.
func NewStd() *Console {
	fd := os.Stdout.Fd()
	return New(os.Stdin, os.Stdout, isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))
}

func (c *Console) render(style lipgloss.Style, s string) string {
	if !c.styled {
		return s
	}
	return style.Render(s)
}

func (c *Console) line(style lipgloss.Style, prefix, format string, a ...any) {
	fmt.Fprintf(c.out, "%s %s\n", c.render(style, prefix), fmt.Sprintf(format, a...))
}

// Banner prints a title line.
func (c *Console) Banner(title string) {
	bar := strings.Repeat("=", 13)
	fmt.Fprintln(c.out, c.render(bannerStyle, fmt.Sprintf("%s %s %s", bar, title, bar)))
}

func (c *Console) Progress(format string, a ...any) { c.line(infoStyle, prefixInfo, format, a...) }

func (c *Console) Success(format string, a ...any) { c.line(okStyle, prefixOK, format, a...) }

func (c *Console) Warn(format string, a ...any) { c.line(warnStyle, prefixWarn, format, a...) }

func (c *Console) Fail(format string, a ...any) { c.line(failStyle, prefixFail, format, a...) }

// DiskTable prints the host's disks and marks the boot disk.
func (c *Console) DiskTable(disks []diskops.Disk, boot diskops.DiskID) {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "Available disks:")
	fmt.Fprintf(c.out, "  %-8s %-40s %-12s %s\n", "NUMBER", "NAME", "SIZE", "")
	for _, d := range disks {
		marker := ""
		if d.Number == boot {
			marker = c.render(dimStyle, "(Windows)")
		}
		fmt.Fprintf(c.out, "  %-8s %-40s %-12s %s\n", d.Number, truncate(d.FriendlyName, 40), humanize.IBytes(d.Size), marker)
	}
}

// readLine prints prompt and returns the next input line without its line ending.
func (c *Console) readLine(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprintf(c.out, "\n%s", prompt)

	if c.pending == nil {
		ch := make(chan readResult, 1)
		go func() {
			text, err := c.in.ReadString('\n')
			ch <- readResult{text: text, err: err}
		}()
		c.pending = ch
	}

	var res readResult
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res = <-c.pending:
		c.pending = nil
	}

	text, err := res.text, res.err
	if err != nil {
		if err == io.EOF && text != "" {
			return strings.TrimSpace(text), nil
		}
		if err == io.EOF {
			return "", ErrInputClosed
		}
		return "", errors.Wrap(err, "failed to read input")
	}
	return strings.TrimSpace(text), nil
}

// PromptDiskSelection asks for a disk number until a non-negative integer is entered.
func (c *Console) PromptDiskSelection(ctx context.Context) (diskops.DiskID, error) {
	for {
		text, err := c.readLine(ctx, "Enter target disk number (must contain Windows OS): ")
		if err != nil {
			return 0, err
		}
		n, err := strconv.ParseUint(text, 10, 32)
		if err != nil {
			c.Fail("Enter a disk number")
			continue
		}
		return diskops.DiskID(n), nil
	}
}

// PromptPartitionSize asks for a size in GB until an integer >= min is entered.
func (c *Console) PromptPartitionSize(ctx context.Context, min uint64) (uint64, error) {
	prompt := fmt.Sprintf("Enter Linux partition size in GB (minimum %d): ", min)
	for {
		text, err := c.readLine(ctx, prompt)
		if err != nil {
			return 0, err
		}
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			c.Fail("Enter a valid number")
			continue
		}
		if n < int64(min) {
			c.Fail("Minimum size is %dGB", min)
			continue
		}
		return uint64(n), nil
	}
}

// PromptISOPath asks for an ISO location until check accepts it.
// Surrounding quotes, as produced by Explorer's "Copy as path", are removed.
func (c *Console) PromptISOPath(ctx context.Context, check func(string) error) (string, error) {
	for {
		text, err := c.readLine(ctx, "Enter path to the installation ISO: ")
		if err != nil {
			return "", err
		}
		path := stripQuotes(text)
		if path == "" {
			c.Fail("Enter a path")
			continue
		}
		if err := check(path); err != nil {
			c.Fail("%v", err)
			continue
		}
		return path, nil
	}
}

// Confirm asks a yes/no question. Anything other than y/yes is a no.
func (c *Console) Confirm(ctx context.Context, question string) (bool, error) {
	ans, err := c.readLine(ctx, fmt.Sprintf("%s (yes/no): ", question))
	if err != nil {
		return false, err
	}
	ans = strings.ToLower(ans)
	return ans == "y" || ans == "yes", nil
}

func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	for len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'') && first == last {
			s = strings.TrimSpace(s[1 : len(s)-1])
			continue
		}
		break
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
