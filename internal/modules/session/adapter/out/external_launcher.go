package out

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	sessionout "raterc/internal/modules/session/port/out"
)

// BrowserLauncher opens a URL with the platform's default handler.
type BrowserLauncher struct {
	goos  string
	start func(name string, args ...string) error
}

func NewBrowserLauncher() sessionout.Launcher {
	return &BrowserLauncher{goos: runtime.GOOS, start: startDetached}
}

func (l *BrowserLauncher) Open(ctx context.Context, target string) error {
	name, args, err := openCommand(l.goos, target)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.start(name, args...); err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	return nil
}

func openCommand(goos, target string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "open", []string{target}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{target}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}, nil
	default:
		return "", nil, fmt.Errorf("browser open is not supported on %s", goos)
	}
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
