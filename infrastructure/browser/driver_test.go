package browser

import (
	"context"
	"errors"
	"testing"
)

func TestDefaultDriverConfig(t *testing.T) {
	config := DefaultDriverConfig()

	if config == nil {
		t.Fatal("DefaultDriverConfig returned nil")
	}

	if config.Headless != true {
		t.Errorf("Headless = %v, want true", config.Headless)
	}

	if config.WindowWidth != 1440 {
		t.Errorf("WindowWidth = %d, want 1440", config.WindowWidth)
	}

	if config.WindowHeight != 900 {
		t.Errorf("WindowHeight = %d, want 900", config.WindowHeight)
	}

	if config.KeepAlive {
		t.Error("KeepAlive should default to false")
	}

	if config.DownloadDir != "" {
		t.Errorf("DownloadDir = %q, want empty", config.DownloadDir)
	}
}

func TestNewChromeDPDriver(t *testing.T) {
	t.Run("with nil config", func(t *testing.T) {
		driver := NewChromeDPDriver(nil)
		if driver == nil {
			t.Fatal("NewChromeDPDriver returned nil")
		}
		if driver.config == nil {
			t.Fatal("driver.config is nil")
		}
	})

	t.Run("with custom config", func(t *testing.T) {
		config := &DriverConfig{
			Headless:     false,
			WindowWidth:  1920,
			WindowHeight: 1080,
		}
		driver := NewChromeDPDriver(config)
		if driver.config.Headless != false {
			t.Error("Custom config not applied")
		}
		if driver.config.WindowWidth != 1920 {
			t.Error("Custom config not applied")
		}
	})
}

func TestBuildExecAllocatorOptions_KeepAlive(t *testing.T) {
	base := NewChromeDPDriver(&DriverConfig{WindowWidth: 800, WindowHeight: 600})
	keep := NewChromeDPDriver(&DriverConfig{WindowWidth: 800, WindowHeight: 600, KeepAlive: true})

	if got, want := len(keep.buildExecAllocatorOptions()), len(base.buildExecAllocatorOptions())+1; got != want {
		t.Errorf("KeepAlive options = %d, want %d", got, want)
	}

	withProfile := NewChromeDPDriver(&DriverConfig{UserDataDir: t.TempDir()})
	if len(withProfile.buildExecAllocatorOptions()) != len(base.buildExecAllocatorOptions())+1 {
		t.Error("UserDataDir should add one option")
	}
}

func TestChromeDPDriver_NotStarted(t *testing.T) {
	driver := NewChromeDPDriver(nil)
	ctx := context.Background()

	if driver.IsRunning() {
		t.Error("IsRunning() should return false before Start()")
	}

	if err := driver.Stop(); err != nil {
		t.Errorf("Stop() returned error: %v", err)
	}
	if err := driver.Detach(); err != nil {
		t.Errorf("Detach() returned error: %v", err)
	}

	if err := driver.Navigate(ctx, "https://example.com"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Navigate() error = %v, want ErrNotRunning", err)
	}
	if _, err := driver.CurrentURL(ctx); !errors.Is(err, ErrNotRunning) {
		t.Errorf("CurrentURL() error = %v, want ErrNotRunning", err)
	}
	if _, err := driver.FindElements(ctx, ByCSS, "a"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("FindElements() error = %v, want ErrNotRunning", err)
	}
	if _, err := driver.GetCookies(ctx); !errors.Is(err, ErrNotRunning) {
		t.Errorf("GetCookies() error = %v, want ErrNotRunning", err)
	}
}

func TestChromeDPDriver_FindElements_UnsupportedStrategy(t *testing.T) {
	driver := NewChromeDPDriver(nil)

	_, err := driver.FindElements(context.Background(), By("link-text"), "Logs")
	if err == nil {
		t.Fatal("expected error for unsupported strategy")
	}
}

func TestCookieMap(t *testing.T) {
	cookies := []Cookie{
		{Name: "session", Value: "abc123", Domain: ".example.com", Path: "/", HTTPOnly: true, Secure: true},
		{Name: "csrf", Value: "x"},
		{Name: "session", Value: "def456"},
	}

	m := CookieMap(cookies)

	if len(m) != 2 {
		t.Fatalf("len = %d, want 2", len(m))
	}
	if m["session"] != "def456" {
		t.Errorf("session = %q, want def456", m["session"])
	}
	if m["csrf"] != "x" {
		t.Errorf("csrf = %q, want x", m["csrf"])
	}

	if got := CookieMap(nil); len(got) != 0 {
		t.Errorf("CookieMap(nil) = %v, want empty", got)
	}
}
