package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rbxstore/fulfillment-service/internal/domain"
)

const (
	DefaultBaseURL     = "https://www.roblox.com"
	DefaultStepTimeout = 10 * time.Second
	DefaultFlowTimeout = 60 * time.Second

	cookieName   = ".ROBLOSECURITY"
	cookieDomain = ".roblox.com"
)

// Driver buys a game pass through a real browser tab. It never writes to
// any store; callers branch on the returned *domain.PurchaseError.
type Driver struct {
	launcher    Launcher
	locator     Locator
	baseURL     string
	stepTimeout time.Duration
	flowTimeout time.Duration
}

type Option func(*Driver)

func WithBaseURL(url string) Option { return func(d *Driver) { d.baseURL = strings.TrimRight(url, "/") } }

func WithTimeouts(step, flow time.Duration) Option {
	return func(d *Driver) {
		if step > 0 {
			d.stepTimeout = step
		}
		if flow > 0 {
			d.flowTimeout = flow
		}
	}
}

func NewDriver(launcher Launcher, locator Locator, opts ...Option) *Driver {
	d := &Driver{
		launcher:    launcher,
		locator:     locator,
		baseURL:     DefaultBaseURL,
		stepTimeout: DefaultStepTimeout,
		flowTimeout: DefaultFlowTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) Purchase(ctx context.Context, req domain.PurchaseRequest) error {
	ctx, cancel := context.WithTimeout(ctx, d.flowTimeout)
	defer cancel()

	page, err := d.launcher.NewPage(ctx)
	if err != nil {
		return &domain.PurchaseError{Kind: domain.KindLaunch, Err: err}
	}
	defer page.Close()

	if err := page.SetCookie(cookieName, req.Cookie, cookieDomain); err != nil {
		return &domain.PurchaseError{Kind: domain.KindLaunch, Err: fmt.Errorf("set session cookie: %w", err)}
	}

	url := ProductURL(d.baseURL, req.ProductID, req.ProductName)
	if err := page.Navigate(url); err != nil {
		return &domain.PurchaseError{Kind: domain.KindNavigation, Err: err}
	}

	// Price guard: nothing is clicked unless the page shows the expected price.
	if err := page.WaitVisible(d.locator.PriceElement(), d.stepTimeout); err != nil {
		return stepError("price element", err)
	}
	priceText, err := page.Text(d.locator.PriceElement(), d.stepTimeout)
	if err != nil {
		return stepError("price text", err)
	}
	actual, err := ParsePrice(priceText)
	if err != nil {
		return &domain.PurchaseError{Kind: domain.KindElementTimeout, Err: err}
	}
	if actual != req.ExpectedPrice {
		log.Printf("⚠️  [BROWSER] Price mismatch for product %s: expected=%d actual=%d", req.ProductID, req.ExpectedPrice, actual)
		return &domain.PurchaseError{Kind: domain.KindPriceMismatch, Expected: req.ExpectedPrice, Actual: actual}
	}

	if err := page.Click(d.locator.BuyButton(), d.stepTimeout); err != nil {
		return stepError("buy button", err)
	}
	if err := page.WaitVisible(d.locator.ConfirmButton(), d.stepTimeout); err != nil {
		return stepError("confirm dialog", err)
	}
	// From here on the marketplace may have charged the account.
	if err := page.Click(d.locator.ConfirmButton(), d.stepTimeout); err != nil {
		return &domain.PurchaseError{Kind: domain.KindPossiblyCommitted, Err: err}
	}

	log.Printf("✅ [BROWSER] Purchased product %s (%s) for %d robux", req.ProductID, req.ProductName, actual)
	return nil
}

func stepError(step string, err error) error {
	if errors.Is(err, context.Canceled) {
		return &domain.PurchaseError{Kind: domain.KindNavigation, Err: fmt.Errorf("%s: %w", step, err)}
	}
	return &domain.PurchaseError{Kind: domain.KindElementTimeout, Err: fmt.Errorf("%s: %w", step, err)}
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

// ParsePrice keeps the digits of the displayed price, so "1,250" is 1250.
func ParsePrice(text string) (int64, error) {
	digits := nonDigits.ReplaceAllString(text, "")
	if digits == "" {
		return 0, fmt.Errorf("no price in %q", text)
	}
	return strconv.ParseInt(digits, 10, 64)
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

func ProductURL(baseURL, productID, productName string) string {
	slug := strings.Trim(slugUnsafe.ReplaceAllString(strings.ToLower(productName), "-"), "-")
	if slug == "" {
		return fmt.Sprintf("%s/game-pass/%s", baseURL, productID)
	}
	return fmt.Sprintf("%s/game-pass/%s/%s", baseURL, productID, slug)
}
