package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ulogscraper-go/infrastructure/browser"
)

// ScreenCapture writes named checkpoint screenshots into the log directory.
type ScreenCapture struct {
	driver  browser.Driver
	logger  *slog.Logger
	saveDir string
	enabled bool
}

// NewScreenCapture creates a new screen capture service.
// When enabled is false every capture is a no-op.
func NewScreenCapture(driver browser.Driver, saveDir string, enabled bool, logger *slog.Logger) *ScreenCapture {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScreenCapture{
		driver:  driver,
		logger:  logger,
		saveDir: saveDir,
		enabled: enabled,
	}
}

// Enabled reports whether screenshots are written.
func (s *ScreenCapture) Enabled() bool {
	return s.enabled
}

// Path returns the file a screenshot called name is written to.
func (s *ScreenCapture) Path(name string) string {
	return filepath.Join(s.saveDir, sanitizeName(name)+".png")
}

// Capture saves a PNG of the current viewport as <dir>/<name>.png and returns its path.
// It returns "" without error when screenshots are disabled.
func (s *ScreenCapture) Capture(ctx context.Context, name string) (string, error) {
	if !s.enabled {
		return "", nil
	}
	if !s.driver.IsRunning() {
		return "", browser.ErrNotRunning
	}

	data, err := s.driver.CaptureScreenshot(ctx)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.saveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create save directory: %w", err)
	}

	path := s.Path(name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}

	s.logger.Debug("Screenshot saved", "name", name, "path", path)
	return path, nil
}

// Checkpoint captures a screenshot and only logs failures.
func (s *ScreenCapture) Checkpoint(ctx context.Context, name string) string {
	path, err := s.Capture(ctx, name)
	if err != nil {
		s.logger.Warn("Failed to save screenshot", "name", name, "error", err)
		return ""
	}
	return path
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "screenshot"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}
