package browser

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Page is the slice of a browser tab the purchase flow needs.
type Page interface {
	SetCookie(name, value, domain string) error
	Navigate(url string) error
	WaitVisible(selector string, timeout time.Duration) error
	Text(selector string, timeout time.Duration) (string, error)
	Click(selector string, timeout time.Duration) error
	Close()
}

type Launcher interface {
	NewPage(ctx context.Context) (Page, error)
}

// ChromeLauncher starts a local headless chrome, or attaches to a remote
// DevTools endpoint when RemoteURL is set.
type ChromeLauncher struct {
	RemoteURL string
	Resolver  ExecResolver
}

func (l ChromeLauncher) NewPage(ctx context.Context) (Page, error) {
	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if l.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, l.RemoteURL)
	} else {
		execPath, err := l.Resolver.Resolve()
		if err != nil {
			return nil, err
		}
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.ExecPath(execPath),
			chromedp.NoSandbox,
			chromedp.DisableGPU,
			chromedp.WindowSize(1280, 900),
		)
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	}

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	// First Run starts the browser.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, err
	}
	return &chromePage{ctx: tabCtx, cancel: func() {
		tabCancel()
		allocCancel()
	}}, nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (p *chromePage) SetCookie(name, value, domain string) error {
	return chromedp.Run(p.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookies([]*network.CookieParam{{
			Name:     name,
			Value:    value,
			Domain:   domain,
			Path:     "/",
			Secure:   true,
			HTTPOnly: true,
		}}).Do(ctx)
	}))
}

func (p *chromePage) Navigate(url string) error {
	return chromedp.Run(p.ctx, chromedp.Navigate(url))
}

func (p *chromePage) WaitVisible(selector string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, chromedp.WaitVisible(selector, chromedp.BySearch))
}

func (p *chromePage) Text(selector string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	var text string
	err := chromedp.Run(ctx, chromedp.Text(selector, &text, chromedp.BySearch))
	return text, err
}

func (p *chromePage) Click(selector string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx,
		chromedp.WaitVisible(selector, chromedp.BySearch),
		chromedp.Click(selector, chromedp.BySearch),
	)
}

func (p *chromePage) Close() {
	p.cancel()
}
