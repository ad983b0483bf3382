package rod

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/application/port/output"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/infrastructure/domscan"
)

var _ output.PagePort = (*tabPage)(nil)

// tabPage binds the page port to one live rod page. Structural reads go
// through domscan on the page's outer HTML; mutations use element-level
// evaluation so framework event listeners fire.
type tabPage struct {
	page    *rod.Page
	timeout time.Duration
}

// Screenshots wider than this are downscaled before leaving the adapter.
const maxScreenshotWidth = 1280

func (p *tabPage) Info(ctx context.Context) (entity.PageInfo, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return entity.PageInfo{}, fmt.Errorf("read page info: %w", err)
	}
	return entity.PageInfo{URL: info.URL, Title: info.Title}, nil
}

func (p *tabPage) html(ctx context.Context) (string, error) {
	html, err := p.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("read page html: %w", err)
	}
	return html, nil
}

func (p *tabPage) Snapshot(ctx context.Context) (entity.PageSnapshot, error) {
	html, err := p.html(ctx)
	if err != nil {
		return entity.PageSnapshot{}, err
	}
	snap, err := domscan.Scan(html)
	if err != nil {
		return entity.PageSnapshot{}, err
	}
	if info, ierr := p.Info(ctx); ierr == nil {
		snap.URL = info.URL
		snap.Title = info.Title
	}
	return snap, nil
}

func (p *tabPage) VisibleText(ctx context.Context, maxChars int) (string, error) {
	html, err := p.html(ctx)
	if err != nil {
		return "", err
	}
	return domscan.VisibleText(html, maxChars)
}

func (p *tabPage) FormFields(ctx context.Context) ([]entity.FieldCandidate, error) {
	html, err := p.html(ctx)
	if err != nil {
		return nil, err
	}
	return domscan.Fields(html)
}

func (p *tabPage) Clickables(ctx context.Context) ([]entity.ClickTarget, error) {
	html, err := p.html(ctx)
	if err != nil {
		return nil, err
	}
	return domscan.Clickables(html)
}

func (p *tabPage) element(ctx context.Context, selector string) (*rod.Element, error) {
	el, err := p.page.Context(ctx).Timeout(p.timeout).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element not found for selector %q: %w", selector, err)
	}
	return el, nil
}

func (p *tabPage) ClickSelector(ctx context.Context, selector string) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.ScrollIntoView(); err != nil {
		return fmt.Errorf("scroll to %q: %w", selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

// SetValue writes through the native value setter and fires input/change so
// framework-controlled fields pick the value up.
func (p *tabPage) SetValue(ctx context.Context, selector, value string, clear bool) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	_, err = el.Eval(`(value, clear) => {
		if (this.tagName === 'SELECT') {
			this.value = value;
			this.dispatchEvent(new Event('change', { bubbles: true }));
			return;
		}
		const proto = this.tagName === 'TEXTAREA'
			? HTMLTextAreaElement.prototype
			: HTMLInputElement.prototype;
		const desc = Object.getOwnPropertyDescriptor(proto, 'value');
		const next = clear ? value : (this.value || '') + value;
		if (desc && desc.set) { desc.set.call(this, next); } else { this.value = next; }
		this.dispatchEvent(new Event('input', { bubbles: true }));
		this.dispatchEvent(new Event('change', { bubbles: true }));
	}`, value, clear)
	if err != nil {
		return fmt.Errorf("set value on %q: %w", selector, err)
	}
	return nil
}

func (p *tabPage) ReadValue(ctx context.Context, selector string) (string, error) {
	el, err := p.element(ctx, selector)
	if err != nil {
		return "", err
	}
	res, err := el.Eval(`() => this.value !== undefined ? String(this.value) : (this.textContent || '')`)
	if err != nil {
		return "", fmt.Errorf("read value of %q: %w", selector, err)
	}
	return res.Value.Str(), nil
}

func (p *tabPage) SubmitForm(ctx context.Context, formSelector string) error {
	el, err := p.element(ctx, formSelector)
	if err != nil {
		return err
	}
	_, err = el.Eval(`() => {
		if (typeof this.requestSubmit === 'function') { this.requestSubmit(); }
		else { this.submit(); }
	}`)
	if err != nil {
		return fmt.Errorf("submit form %q: %w", formSelector, err)
	}
	return nil
}

// Highlight outlines visible interactive elements and reverts the styling
// from inside the page, so the effect survives even if the caller goes away.
func (p *tabPage) Highlight(ctx context.Context, maxElements int, revertAfter time.Duration) (int, error) {
	res, err := p.page.Context(ctx).Eval(`(max, revertMs) => {
		const els = Array.from(document.querySelectorAll(
			'a[href], button, input, select, textarea, [role="button"], [onclick]'
		)).filter(el => {
			const r = el.getBoundingClientRect();
			return r.width > 0 && r.height > 0;
		}).slice(0, max);
		const prev = els.map(el => el.style.outline);
		els.forEach(el => { el.style.outline = '2px solid #ff5722'; });
		setTimeout(() => els.forEach((el, i) => { el.style.outline = prev[i]; }), revertMs);
		return els.length;
	}`, maxElements, int(revertAfter.Milliseconds()))
	if err != nil {
		return 0, fmt.Errorf("highlight elements: %w", err)
	}
	return res.Value.Int(), nil
}

func (p *tabPage) ToggleMedia(ctx context.Context) (string, error) {
	res, err := p.page.Context(ctx).Eval(`() => {
		const m = document.querySelector('video, audio');
		if (!m) throw new Error('no media element on this page');
		if (m.paused) { m.play(); return 'playing'; }
		m.pause();
		return 'paused';
	}`)
	if err != nil {
		return "", fmt.Errorf("toggle media: %w", err)
	}
	return res.Value.Str(), nil
}

func (p *tabPage) Screenshot(ctx context.Context) (*entity.Screenshot, error) {
	bin, err := p.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(85),
	})
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(bin))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	if img.Bounds().Dx() > maxScreenshotWidth {
		img = imaging.Resize(img, maxScreenshotWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode screenshot: %w", err)
	}

	return &entity.Screenshot{
		Data:   buf.Bytes(),
		Format: "jpeg",
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}, nil
}
