package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/themehraaryan/costtofly/logger"
)

// ErrWaitTimeout marks an expected element that never appeared within its
// bound. This is the one class of element error that escalates to a site
// failure instead of being skipped.
var ErrWaitTimeout = errors.New("timed out waiting for selector")

const selectorPollInterval = 500 * time.Millisecond

// Page wraps a single browser tab. All interaction with the rendered page
// goes through evaluated scripts, the same way the rest of the pipeline
// avoids holding element handles across re-renders.
type Page struct {
	ctx          context.Context
	log          logger.Logger
	logsDir      string
	debugCapture bool
}

func (p *Page) Navigate(url string) error {
	return chromedp.Run(p.ctx, chromedp.Navigate(url))
}

func (p *Page) Location() (string, error) {
	var loc string
	err := chromedp.Run(p.ctx, chromedp.Location(&loc))
	return loc, err
}

func (p *Page) Sleep(d time.Duration) {
	_ = chromedp.Run(p.ctx, chromedp.Sleep(d))
}

// RandomSleep pauses for a random duration in [min, max] to mimic human
// pacing and let asynchronous rendering settle.
func (p *Page) RandomSleep(min, max time.Duration) {
	d := min
	if max > min {
		d = min + time.Duration(randomOffset(0, int(max-min)))
	}
	p.Sleep(d)
}

func (p *Page) Evaluate(js string, out interface{}) error {
	return chromedp.Run(p.ctx, chromedp.Evaluate(js, out))
}

func (p *Page) CountBySelector(selector string) (int, error) {
	var count int
	err := p.Evaluate(fmt.Sprintf(`document.querySelectorAll(%q).length`, selector), &count)
	return count, err
}

// WaitForAnySelector polls until one of the selectors matches at least one
// element, returning the selector that hit. Exhausting the timeout returns
// ErrWaitTimeout.
func (p *Page) WaitForAnySelector(selectors []string, timeout time.Duration) (string, error) {
	return waitForAnySelector(p.ctx, p, selectors, timeout, p.log)
}

// selectorCounter is the Page behavior the wait poll needs.
type selectorCounter interface {
	CountBySelector(selector string) (int, error)
}

// waitForAnySelector treats poll errors as "not yet present": evaluation
// right after navigation can land in an execution context a redirect has
// already destroyed, and that resolves itself within a poll or two. Only
// the deadline or a dead session context ends the wait.
func waitForAnySelector(ctx context.Context, c selectorCounter, selectors []string, timeout time.Duration, log logger.Logger) (string, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, sel := range selectors {
			count, err := c.CountBySelector(sel)
			if err != nil {
				log.Debug("selector poll failed, retrying", "selector", sel, "err", err)
				continue
			}
			if count > 0 {
				return sel, nil
			}
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(selectorPollInterval):
		}
	}
	return "", fmt.Errorf("%w: %v", ErrWaitTimeout, selectors)
}

func (p *Page) ScrollBy(px int) error {
	return p.Evaluate(fmt.Sprintf(`window.scrollBy(0, %d);`, px), nil)
}

func (p *Page) ScrollTop() error {
	return p.Evaluate(`window.scrollTo(0, 0);`, nil)
}

func (p *Page) ScrollTo(px int) error {
	return p.Evaluate(fmt.Sprintf(`window.scrollTo(0, %d);`, px), nil)
}

func (p *Page) PageHeight() (int, error) {
	var h int
	err := p.Evaluate(`document.body ? document.body.scrollHeight : 0`, &h)
	return h, err
}

// ClickFirstVisible clicks the first visible element matching selector.
// Individual element failures are swallowed inside the script; the scan
// simply moves on.
func (p *Page) ClickFirstVisible(selector string) (bool, error) {
	js := fmt.Sprintf(`(() => {
		const visible = (el) => {
			const r = el.getBoundingClientRect();
			return r.width > 0 && r.height > 0;
		};
		for (const el of document.querySelectorAll(%q)) {
			if (!visible(el)) continue;
			try { el.click(); return true; } catch (e) { continue; }
		}
		return false;
	})();`, selector)
	var clicked bool
	err := p.Evaluate(js, &clicked)
	return clicked, err
}

// ClickAllVisible clicks up to limit visible elements matching selector and
// returns how many were clicked. limit <= 0 means no limit.
func (p *Page) ClickAllVisible(selector string, limit int) (int, error) {
	js := fmt.Sprintf(`((limit) => {
		const visible = (el) => {
			const r = el.getBoundingClientRect();
			return r.width > 0 && r.height > 0;
		};
		let clicked = 0;
		for (const el of document.querySelectorAll(%q)) {
			if (limit > 0 && clicked >= limit) break;
			if (!visible(el)) continue;
			try { el.click(); clicked++; } catch (e) { continue; }
		}
		return clicked;
	})(%d);`, selector, limit)
	var clicked int
	err := p.Evaluate(js, &clicked)
	return clicked, err
}

// ClickVisibleByText clicks visible elements matching selector whose text
// contains one of the keywords (case-insensitive). Clicked elements are
// tagged with a data attribute so repeated passes never re-click the same
// CTA. Returns the number of fresh clicks.
func (p *Page) ClickVisibleByText(selector string, keywords []string, markAttr string) (int, error) {
	js := fmt.Sprintf(`((keywords, markAttr) => {
		const visible = (el) => {
			const r = el.getBoundingClientRect();
			return r.width > 0 && r.height > 0;
		};
		let clicked = 0;
		for (const el of document.querySelectorAll(%q)) {
			if (!visible(el)) continue;
			if (markAttr && el.dataset && el.dataset[markAttr]) continue;
			const text = (el.textContent || '').replace(/\s+/g, ' ').trim().toLowerCase();
			if (!text) continue;
			if (!keywords.some(kw => text.includes(kw))) continue;
			try {
				el.click();
				if (markAttr && el.dataset) el.dataset[markAttr] = '1';
				clicked++;
			} catch (e) { continue; }
		}
		return clicked;
	})(%s, %q);`, selector, jsStringArray(lowerAll(keywords)), markAttr)
	var clicked int
	err := p.Evaluate(js, &clicked)
	return clicked, err
}

// UncheckLabeledCheckboxes clicks labels containing one of the keywords
// whose embedded checkbox is currently checked. Used to undo default result
// filters such as "Non Stop".
func (p *Page) UncheckLabeledCheckboxes(keywords []string) (int, error) {
	js := fmt.Sprintf(`((keywords) => {
		const visible = (el) => {
			const r = el.getBoundingClientRect();
			return r.width > 0 && r.height > 0;
		};
		let clicked = 0;
		for (const label of document.querySelectorAll('label')) {
			if (!visible(label)) continue;
			const text = (label.textContent || '').replace(/\s+/g, ' ').trim().toLowerCase();
			if (!keywords.some(kw => text.includes(kw))) continue;
			const box = label.querySelector("input[type='checkbox']");
			if (!box || !box.checked) continue;
			try { label.click(); clicked++; } catch (e) { continue; }
		}
		return clicked;
	})(%s);`, jsStringArray(lowerAll(keywords)))
	var clicked int
	err := p.Evaluate(js, &clicked)
	return clicked, err
}

// AnyVisible reports whether any element matching selector is visible.
func (p *Page) AnyVisible(selector string) (bool, error) {
	js := fmt.Sprintf(`(() => {
		for (const el of document.querySelectorAll(%q)) {
			const r = el.getBoundingClientRect();
			if (r.width > 0 && r.height > 0) return true;
		}
		return false;
	})();`, selector)
	var found bool
	err := p.Evaluate(js, &found)
	return found, err
}

// skeletonVisible reports whether a transient loading placeholder of
// meaningful size is still on screen.
func (p *Page) skeletonVisible(selectors []string) (bool, error) {
	js := fmt.Sprintf(`((selectors) => {
		for (const sel of selectors) {
			let els;
			try { els = document.querySelectorAll(sel); } catch (e) { continue; }
			for (const el of els) {
				const r = el.getBoundingClientRect();
				if (r.width > 0 && r.height > 10) return true;
			}
		}
		return false;
	})(%s);`, jsStringArray(selectors))
	var found bool
	err := p.Evaluate(js, &found)
	return found, err
}

// WaitSkeletonsGone blocks until no skeleton/shimmer placeholder is visible
// or the timeout expires. Counting cards while placeholders are mid-render
// undercounts, so scroll loops call this before each re-count.
func (p *Page) WaitSkeletonsGone(selectors []string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		found, err := p.skeletonVisible(selectors)
		if err != nil || !found {
			return
		}
		p.Sleep(500 * time.Millisecond)
	}
}

// CollectCards returns the outer HTML and visible text of every element
// matching selector. limit <= 0 collects all matches.
func (p *Page) CollectCards(selector string, limit int) ([]Card, error) {
	js := fmt.Sprintf(`((limit) => {
		const out = [];
		for (const el of document.querySelectorAll(%q)) {
			if (limit > 0 && out.length >= limit) break;
			out.push({
				html: el.outerHTML || '',
				text: (el.innerText || '').trim()
			});
		}
		return out;
	})(%d);`, selector, limit)
	var raw []map[string]string
	if err := p.Evaluate(js, &raw); err != nil {
		return nil, err
	}
	cards := make([]Card, 0, len(raw))
	for _, item := range raw {
		cards = append(cards, Card{HTML: item["html"], Text: item["text"]})
	}
	return cards, nil
}

// CaptureDebug writes a screenshot and the page source under the logs
// directory. Best effort only; failures are logged and swallowed.
func (p *Page) CaptureDebug(prefix string) {
	if !p.debugCapture || p.logsDir == "" {
		return
	}
	if err := os.MkdirAll(p.logsDir, 0o755); err != nil {
		p.log.Warn("debug capture: create logs dir failed", "err", err)
		return
	}
	ts := time.Now().Unix()

	var shot []byte
	if err := chromedp.Run(p.ctx, chromedp.CaptureScreenshot(&shot)); err != nil {
		p.log.Debug("debug capture: screenshot failed", "err", err)
	} else {
		path := filepath.Join(p.logsDir, fmt.Sprintf("%s_%d.png", prefix, ts))
		if err := os.WriteFile(path, shot, 0o644); err == nil {
			p.log.Info("screenshot saved", "path", path)
		}
	}

	var html string
	if err := chromedp.Run(p.ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		p.log.Debug("debug capture: page source failed", "err", err)
	} else {
		path := filepath.Join(p.logsDir, fmt.Sprintf("%s_%d.html", prefix, ts))
		if err := os.WriteFile(path, []byte(html), 0o644); err == nil {
			p.log.Info("page source saved", "path", path)
		}
	}
}

func jsStringArray(items []string) string {
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func lowerAll(items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = strings.ToLower(s)
	}
	return out
}
