package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
)

// restrictedPrefixes are URL schemes where automation must not run. The check
// happens per tab at dispatch time so a tab that navigated away since
// planning is still caught.
var restrictedPrefixes = []string{
	"chrome:",
	"chrome-extension:",
	"about:",
	"devtools:",
	"view-source:",
	"edge:",
	"moz-extension:",
}

func restrictedURL(url string) bool {
	u := strings.ToLower(strings.TrimSpace(url))
	for _, p := range restrictedPrefixes {
		if strings.HasPrefix(u, p) {
			return true
		}
	}
	return false
}

// ResolveTargets expands a target spec into live tabs. Resolution is lazy on
// purpose: tabs may have opened, closed or navigated since the plan was
// built, so the inventory is always read fresh.
func (d *Dispatcher) ResolveTargets(ctx context.Context, spec *entity.TargetSpec) ([]entity.TabInfo, error) {
	tabs, err := d.tabs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tabs: %w", err)
	}
	if len(tabs) == 0 {
		return nil, entity.ErrNoTargetTabs
	}

	if spec == nil {
		spec = entity.ActiveTarget()
	}

	switch spec.Mode {
	case entity.TargetAll:
		return tabs, nil

	case entity.TargetTabID:
		for _, t := range tabs {
			if t.ID == spec.TabID {
				return []entity.TabInfo{t}, nil
			}
		}
		return nil, fmt.Errorf("%w: id %d", entity.ErrTabNotFound, spec.TabID)

	case entity.TargetDomain:
		var out []entity.TabInfo
		want := strings.ToLower(spec.Value)
		for _, t := range tabs {
			if hostMatches(t.URL, want) {
				out = append(out, t)
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("%w: domain %q", entity.ErrNoTargetTabs, spec.Value)
		}
		return out, nil

	case entity.TargetURLContains:
		var out []entity.TabInfo
		want := strings.ToLower(spec.Value)
		for _, t := range tabs {
			if strings.Contains(strings.ToLower(t.URL), want) {
				out = append(out, t)
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("%w: url fragment %q", entity.ErrNoTargetTabs, spec.Value)
		}
		return out, nil

	default:
		return []entity.TabInfo{activeTab(tabs)}, nil
	}
}

// activeTab returns the focused tab, falling back to the first one when the
// browser reports no focus at all.
func activeTab(tabs []entity.TabInfo) entity.TabInfo {
	for _, t := range tabs {
		if t.Active {
			return t
		}
	}
	return tabs[0]
}

// hostMatches reports whether the URL's host equals the domain or is a
// subdomain of it.
func hostMatches(rawURL, domain string) bool {
	host := hostOf(rawURL)
	if host == "" || domain == "" {
		return false
	}
	host = strings.TrimPrefix(host, "www.")
	domain = strings.TrimPrefix(domain, "www.")
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func hostOf(rawURL string) string {
	u := strings.ToLower(rawURL)
	if i := strings.Index(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	for _, sep := range []string{"/", "?", "#"} {
		if i := strings.Index(u, sep); i >= 0 {
			u = u[:i]
		}
	}
	if i := strings.Index(u, ":"); i >= 0 {
		u = u[:i]
	}
	return u
}
