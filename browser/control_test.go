package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/scenariokit"
)

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		target   string
		expected string
		err      error
	}{
		{"absolute target ignores base", "https://a.test", "https://b.test/x", "https://b.test/x", nil},
		{"relative path", "https://a.test/app/", "login", "https://a.test/app/login", nil},
		{"rooted path", "https://a.test/app/", "/cart?id=1", "https://a.test/cart?id=1", nil},
		{"relative without base", "", "/cart", "", ErrNoBaseURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveURL(tt.base, tt.target)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(scenariokit.BrowserConfig{
		BaseURL:          "https://a.test",
		Proxy:            "localhost:3128",
		UserAgent:        "agent",
		Headful:          true,
		IgnoreCertErrors: true,
		Stealth:          true,
	}, nil)

	assert.Equal(t, "https://a.test", cfg.BaseURL)
	assert.Equal(t, "localhost:3128", cfg.Proxy)
	assert.Equal(t, "agent", cfg.UserAgent)
	assert.True(t, cfg.Headful)
	assert.True(t, cfg.IgnoreCertErrors)
	assert.True(t, cfg.Stealth)
	assert.Empty(t, cfg.RemoteURL)
}

func TestControlBeforeStart(t *testing.T) {
	c := New(Config{})
	ctx := context.Background()

	assert.ErrorIs(t, c.DeleteCookies(ctx), ErrNotStarted)
	assert.ErrorIs(t, c.SaveScreenshot(ctx, filepath.Join(t.TempDir(), "x.png")), ErrNotStarted)
	assert.ErrorIs(t, c.Open(ctx, "https://a.test"), ErrNotStarted)
	assert.Nil(t, c.Page())

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.DeleteCookies(ctx), ErrClosed)
	assert.ErrorIs(t, c.Start(ctx), ErrClosed)
	require.NoError(t, c.Close(), "close is idempotent")
}

// TestControlWithChrome needs a local Chrome; set SCENARIOKIT_BROWSER_TESTS=1.
func TestControlWithChrome(t *testing.T) {
	if os.Getenv("SCENARIOKIT_BROWSER_TESTS") == "" {
		t.Skip("set SCENARIOKIT_BROWSER_TESTS=1 to run against a real browser")
	}

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		_, _ = w.Write([]byte("<html><body><h1>checkout</h1></body></html>"))
	}))
	defer site.Close()

	c := New(Config{BaseURL: site.URL})
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	defer func() { _ = c.Close() }()

	require.NoError(t, c.Open(ctx, "/"))
	cookies, err := c.Page().Cookies([]string{site.URL})
	require.NoError(t, err)
	require.NotEmpty(t, cookies)

	require.NoError(t, c.DeleteCookies(ctx))
	cookies, err = c.Page().Cookies([]string{site.URL})
	require.NoError(t, err)
	assert.Empty(t, cookies)

	path := filepath.Join(t.TempDir(), "shots", scenariokit.ScreenshotName(time.Now()))
	require.NoError(t, c.SaveScreenshot(ctx, path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
