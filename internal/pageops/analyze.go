package pageops

import (
	"context"
	"fmt"
	"strings"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/application/port/output"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
)

func (e *Engine) analyze(ctx context.Context, page output.PagePort, env entity.ActionEnvelope) (entity.SurfaceReply, error) {
	snap, err := page.Snapshot(ctx)
	if err != nil {
		return entity.SurfaceReply{}, fmt.Errorf("analyze page: %w", err)
	}

	if env.MaxChars > 0 {
		if text, terr := page.VisibleText(ctx, env.MaxChars); terr == nil {
			snap.TextSample = text
		}
	}

	if info, ierr := page.Info(ctx); ierr == nil {
		snap.URL = info.URL
		snap.Title = info.Title
	}

	detail := fmt.Sprintf("analyzed page: %d forms, %d buttons, %d links, %d headings",
		len(snap.Forms), len(snap.Buttons), len(snap.Links), len(snap.Headings))
	if len(snap.LoginHints) > 0 {
		detail += ", login hints: " + strings.Join(snap.LoginHints, "; ")
	}
	return entity.SuccessReplyData(detail, snap), nil
}

// ScrapeReport is the structured data attached to a scrape_page reply.
type ScrapeReport struct {
	Text      string `json:"text"`
	WordCount int    `json:"word_count"`
}

func (e *Engine) scrape(ctx context.Context, page output.PagePort, env entity.ActionEnvelope) (entity.SurfaceReply, error) {
	text, err := page.VisibleText(ctx, env.MaxChars)
	if err != nil {
		return entity.SurfaceReply{}, fmt.Errorf("scrape page: %w", err)
	}

	report := ScrapeReport{Text: text, WordCount: len(strings.Fields(text))}
	return entity.SuccessReplyData(
		fmt.Sprintf("scraped %d characters (%d words)", len(text), report.WordCount), report), nil
}

func (e *Engine) visualize(ctx context.Context, page output.PagePort) (entity.SurfaceReply, error) {
	count, err := page.Highlight(ctx, maxVisualizeElements, visualizeRevert)
	if err != nil {
		return entity.SurfaceReply{}, fmt.Errorf("visualize page: %w", err)
	}
	if count == 0 {
		return entity.SuccessReply("no interactive elements found to highlight"), nil
	}
	return entity.SuccessReply(fmt.Sprintf("highlighted %d interactive elements", count)), nil
}

func (e *Engine) playMedia(ctx context.Context, page output.PagePort) (entity.SurfaceReply, error) {
	info, err := page.Info(ctx)
	if err == nil && isVideoSearchPage(info.URL) {
		if target := firstWatchLink(ctx, page); target != "" {
			if cerr := page.ClickSelector(ctx, target); cerr == nil {
				return entity.SuccessReply("opened first video result"), nil
			}
		}
	}

	state, err := page.ToggleMedia(ctx)
	if err == nil {
		return entity.SuccessReply("media " + state), nil
	}

	// No media element; fall back to a labeled play/pause control.
	targets, terr := page.Clickables(ctx)
	if terr == nil {
		for _, t := range targets {
			label := normalize(t.Text + " " + t.AriaLabel)
			if strings.Contains(label, "play") || strings.Contains(label, "pause") {
				if cerr := page.ClickSelector(ctx, t.Selector); cerr == nil {
					return entity.SuccessReply(fmt.Sprintf("clicked media control %q", clickLabel(t))), nil
				}
			}
		}
	}

	return entity.SurfaceReply{}, fmt.Errorf("nothing playable found on this page")
}

func isVideoSearchPage(url string) bool {
	u := strings.ToLower(url)
	return strings.Contains(u, "youtube.com/results") || strings.Contains(u, "/search?") && strings.Contains(u, "video")
}

func firstWatchLink(ctx context.Context, page output.PagePort) string {
	snap, err := page.Snapshot(ctx)
	if err != nil {
		return ""
	}
	for _, l := range snap.Links {
		if strings.Contains(l.Href, "/watch") {
			return fmt.Sprintf(`a[href="%s"]`, l.Href)
		}
	}
	return ""
}
