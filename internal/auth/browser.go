package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/mickolasjae/okta-workflows-backup/internal/constants"
)

// cookiePollInterval is how often the login flow re-checks the browser cookies.
const cookiePollInterval = 2 * time.Second

// fromBrowserLogin drives a Chrome session to the sign-in page and waits for
// the session cookie to appear. In interactive mode the window is visible and
// the user completes the login; headless mode only works when the identity
// provider signs in without user input.
func fromBrowserLogin(ctx context.Context, l *slog.Logger, baseURL string, interactive bool) (string, error) {
	if baseURL == "" {
		return "", fmt.Errorf("no base URL to open for login")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !interactive),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, constants.DefaultLoginTimeout)
	defer cancelTimeout()

	if err := chromedp.Run(browserCtx, chromedp.Navigate(baseURL)); err != nil {
		return "", fmt.Errorf("failed to open %s: %v", baseURL, err)
	}
	if interactive {
		l.Info("Complete the sign-in in the browser window")
	}

	ticker := time.NewTicker(cookiePollInterval)
	defer ticker.Stop()

	for {
		token, err := sessionCookie(browserCtx)
		if err != nil {
			return "", fmt.Errorf("failed to read browser cookies: %v", err)
		}
		if token != "" {
			return token, nil
		}

		select {
		case <-browserCtx.Done():
			return "", fmt.Errorf("gave up waiting for login: %v", browserCtx.Err())
		case <-ticker.C:
		}
	}
}

// sessionCookie returns the value of the session cookie in the running
// browser, or "" when it is not set yet.
func sessionCookie(browserCtx context.Context) (string, error) {
	var token string
	err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			if c.Name == constants.TokenCookieName {
				token = c.Value
				return nil
			}
		}
		return nil
	}))
	return token, err
}
