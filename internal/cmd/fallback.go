package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dukerupert/shrimptech/internal/submit"
)

// logNotifier prints notices. Success goes to stdout, the rest to the log.
type logNotifier struct {
	logger *log.Logger
	stdout io.Writer
}

func (n *logNotifier) Notify(notice submit.Notice) {
	switch notice.Level {
	case submit.LevelLoading:
		n.logger.Info(notice.Text)
	case submit.LevelSuccess:
		fmt.Fprintln(n.stdout, notice.Text)
	case submit.LevelError:
		n.logger.Error(notice.Text)
	default:
		n.logger.Warn(notice.Text)
	}
}

// osFallback opens links with the desktop opener and copies with the
// platform clipboard tool.
type osFallback struct {
	logger *log.Logger
	stderr io.Writer

	// opener overrides the platform opener command.
	opener func() (string, []string)
}

// openerTimeout bounds how long a desktop opener may take to hand off.
const openerTimeout = 10 * time.Second

func (f *osFallback) OpenMailto(link string) error {
	opener := f.opener
	if opener == nil {
		opener = func() (string, []string) { return openCommand(runtime.GOOS) }
	}
	name, args := opener()
	if name == "" {
		return fmt.Errorf("no opener for %s", runtime.GOOS)
	}

	// Openers hand the link to the desktop and exit, so wait for them.
	ctx, cancel := context.WithTimeout(context.Background(), openerTimeout)
	defer cancel()
	if err := exec.CommandContext(ctx, name, append(args, link)...).Run(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (f *osFallback) CopyToClipboard(text string) error {
	for _, tool := range clipboardCommands(runtime.GOOS) {
		path, err := exec.LookPath(tool[0])
		if err != nil {
			continue
		}
		cmd := exec.Command(path, tool[1:]...)
		cmd.Stdin = strings.NewReader(text)
		if err := cmd.Run(); err != nil {
			f.logger.Debug("clipboard tool failed", "tool", tool[0], "error", err)
			continue
		}
		return nil
	}
	return errors.New("no clipboard tool available")
}

func (f *osFallback) Alert(message string) {
	fmt.Fprintln(f.stderr, "!", message)
}

func openCommand(goos string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler"}
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", nil
	default:
		return "", nil
	}
}

func clipboardCommands(goos string) [][]string {
	switch goos {
	case "darwin":
		return [][]string{{"pbcopy"}}
	case "windows":
		return [][]string{{"clip"}}
	default:
		return [][]string{
			{"wl-copy"},
			{"xclip", "-selection", "clipboard"},
			{"xsel", "--clipboard", "--input"},
		}
	}
}
