package browser

import "github.com/rbxstore/fulfillment-service/internal/config"

// Locator isolates the page-structure selectors of the game pass page.
type Locator interface {
	PriceElement() string
	BuyButton() string
	ConfirmButton() string
}

type XPathLocator struct {
	Price   string
	Buy     string
	Confirm string
}

var DefaultLocator = XPathLocator{
	Price:   `//*[@id="item-container"]//span[contains(@class,"text-robux-lg")]`,
	Buy:     `//*[@id="item-container"]//button[contains(@class,"PurchaseButton")]`,
	Confirm: `//*[@id="modal-dialog"]//button[@id="confirm-btn"]`,
}

func (l XPathLocator) PriceElement() string  { return l.Price }
func (l XPathLocator) BuyButton() string     { return l.Buy }
func (l XPathLocator) ConfirmButton() string { return l.Confirm }

// NewLocator applies the configured overrides on top of DefaultLocator.
func NewLocator(cfg config.Locators) XPathLocator {
	l := DefaultLocator
	if cfg.Price != "" {
		l.Price = cfg.Price
	}
	if cfg.Buy != "" {
		l.Buy = cfg.Buy
	}
	if cfg.Confirm != "" {
		l.Confirm = cfg.Confirm
	}
	return l
}
