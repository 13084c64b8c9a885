// Package media hands download URLs to the desktop's opener.
package media

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/pders01/idgames/internal/config"
	"github.com/pders01/idgames/internal/debuglog"
	"github.com/pders01/idgames/internal/idgames"
)

var ErrNoDownload = errors.New("file has no download location")

type Launcher struct {
	opener string
	mirror string
	// start runs the prepared command; replaced in tests.
	start func(*exec.Cmd) error
}

func NewLauncher(cfg *config.Config) *Launcher {
	opener := strings.TrimSpace(cfg.Media.DefaultOpener)
	if opener == "" {
		opener = systemOpener()
	}
	return &Launcher{
		opener: opener,
		mirror: cfg.API.MirrorURL,
		start:  startDetached,
	}
}

// Opener returns the command used to open URLs.
func (l *Launcher) Opener() string {
	return l.opener
}

// DownloadURL returns where f can be fetched from the configured mirror.
func (l *Launcher) DownloadURL(f *idgames.FileEntry) (string, error) {
	if l.mirror == "" {
		return "", fmt.Errorf("%w: no mirror configured", ErrNoDownload)
	}
	u := f.DownloadURL(l.mirror)
	if u == "" {
		return "", ErrNoDownload
	}
	return u, nil
}

// OpenFile opens the mirror download of f.
func (l *Launcher) OpenFile(f *idgames.FileEntry) (string, error) {
	u, err := l.DownloadURL(f)
	if err != nil {
		return "", err
	}
	return u, l.Open(u)
}

func (l *Launcher) Open(url string) error {
	if l.opener == "" {
		return fmt.Errorf("no application found to open URL")
	}

	cmd := l.command(url)
	debuglog.Infof("media: opening %s with %s", url, l.opener)
	if err := l.start(cmd); err != nil {
		return fmt.Errorf("failed to start %s: %w", l.opener, err)
	}
	return nil
}

func (l *Launcher) command(url string) *exec.Cmd {
	// start is a cmd.exe builtin; the empty argument is the window title.
	if l.opener == "start" && runtime.GOOS == "windows" {
		return exec.Command("cmd", "/c", "start", "", url)
	}
	fields := strings.Fields(l.opener)
	args := append(fields[1:], url)
	return exec.Command(fields[0], args...)
}

// startDetached starts GUI applications without waiting on them.
func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

func systemOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "windows":
		return "start"
	default:
		for _, cmd := range []string{"xdg-open", "gio", "open"} {
			if _, err := exec.LookPath(cmd); err == nil {
				return cmd
			}
		}
		return "xdg-open"
	}
}
