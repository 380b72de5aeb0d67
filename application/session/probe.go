package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ulogscraper-go/domain/locator"
	"ulogscraper-go/infrastructure/browser"
)

// Finder is anything elements can be searched from: a page or an element.
type Finder interface {
	FindElements(ctx context.Context, by browser.By, selector string) ([]browser.Element, error)
}

// Match is the element a control resolved to and the candidate that found it.
type Match struct {
	Element   browser.Element
	Candidate locator.Candidate
}

// FirstMatch tries the control's candidates in order and returns the first
// element that passes the control's filter. Candidates with a Wait are polled
// for up to that long before the next one is tried. When nothing matches the
// error is an *ElementNotFoundError.
func FirstMatch(ctx context.Context, f Finder, control locator.Control, logger *slog.Logger) (*Match, error) {
	if logger == nil {
		logger = slog.Default()
	}

	for _, cand := range control.Candidates {
		by, err := byFor(cand.Strategy)
		if err != nil {
			return nil, err
		}

		var found browser.Element
		probe := func(ctx context.Context) (bool, error) {
			el, err := firstAccepted(ctx, f, by, cand.Value, control.Filter)
			if err != nil {
				return false, err
			}
			found = el
			return el != nil, nil
		}

		if control.Wait > 0 {
			err = browser.WaitUntil(ctx, control.Wait, 0, probe)
			if err != nil && !errors.Is(err, browser.ErrWaitTimeout) {
				return nil, err
			}
		} else {
			_, err = probe(ctx)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if err != nil {
				logger.Debug("Candidate failed", "control", control.Name, "candidate", cand.String(), "error", err)
			}
		}

		if found != nil {
			logger.Debug("Control found", "control", control.Name, "candidate", cand.String())
			return &Match{Element: found, Candidate: cand}, nil
		}
	}

	return nil, &ElementNotFoundError{Control: control.DisplayName()}
}

// firstAccepted returns the first element matching selector that passes the
// filter, or nil when there is none.
func firstAccepted(ctx context.Context, f Finder, by browser.By, selector string, filter locator.Filter) (browser.Element, error) {
	elements, err := f.FindElements(ctx, by, selector)
	if err != nil {
		return nil, err
	}

	for _, el := range elements {
		ok, err := accepts(ctx, el, filter)
		if err != nil {
			// Stale or detached nodes are skipped.
			continue
		}
		if ok {
			return el, nil
		}
	}
	return nil, nil
}

func accepts(ctx context.Context, el browser.Element, filter locator.Filter) (bool, error) {
	if filter.IsZero() {
		return true, nil
	}

	if filter.Visible {
		visible, err := el.IsDisplayed(ctx)
		if err != nil || !visible {
			return false, err
		}
	}

	var text, placeholder string
	var err error
	if filter.NeedsText() {
		if text, err = el.Text(ctx); err != nil {
			return false, err
		}
	}
	if filter.NeedsPlaceholder() {
		if placeholder, err = el.Attribute(ctx, "placeholder"); err != nil {
			return false, err
		}
	}
	return filter.Accepts(text, placeholder), nil
}

func byFor(s locator.Strategy) (browser.By, error) {
	switch s {
	case locator.StrategyCSS:
		return browser.ByCSS, nil
	case locator.StrategyXPath:
		return browser.ByXPath, nil
	default:
		return "", fmt.Errorf("unsupported locator strategy %q", s)
	}
}
