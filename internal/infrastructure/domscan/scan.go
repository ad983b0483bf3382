// Package domscan parses page HTML into the bounded structural views the
// runtime works with: form fields, clickable elements, links, headings and
// visible text. It never touches the live DOM; callers feed it the page's
// outer HTML and act on the selectors it derives.
package domscan

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
)

// Bounds on what one snapshot may carry. Anything beyond these caps is
// dropped in document order; planners work fine on a bounded view and the
// payload has to stay prompt-sized.
const (
	MaxForms         = 8
	MaxFieldsPerForm = 12
	MaxButtons       = 16
	MaxLinks         = 20
	MaxHeadings      = 10
)

type scanner struct {
	labelFor map[string]string
	order    int
}

// Scan builds the full structural snapshot from raw HTML.
func Scan(rawHTML string) (entity.PageSnapshot, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return entity.PageSnapshot{}, fmt.Errorf("parse html: %w", err)
	}

	s := &scanner{labelFor: collectLabels(doc)}
	snap := entity.PageSnapshot{}

	var walk func(n *html.Node, inForm *entity.FormInfo)
	walk = func(n *html.Node, inForm *entity.FormInfo) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "svg", "head", "template":
				return

			case "form":
				if len(snap.Forms) < MaxForms {
					form := entity.FormInfo{
						Selector: cssPath(n),
						Action:   attr(n, "action"),
						Method:   strings.ToUpper(attr(n, "method")),
					}
					for c := n.FirstChild; c != nil; c = c.NextSibling {
						walk(c, &form)
					}
					snap.Forms = append(snap.Forms, form)
				}
				return

			case "input", "textarea", "select":
				if field, ok := s.fieldOf(n); ok && inForm != nil && len(inForm.Fields) < MaxFieldsPerForm {
					inForm.Fields = append(inForm.Fields, field)
				}
				if isSubmitControl(n) {
					if inForm != nil && inForm.SubmitSelector == "" {
						inForm.SubmitSelector = cssPath(n)
					}
					if len(snap.Buttons) < MaxButtons {
						snap.Buttons = append(snap.Buttons, clickTargetOf(n))
					}
				}

			case "button":
				if inForm != nil && inForm.SubmitSelector == "" && attr(n, "type") != "button" {
					inForm.SubmitSelector = cssPath(n)
				}
				if len(snap.Buttons) < MaxButtons {
					snap.Buttons = append(snap.Buttons, clickTargetOf(n))
				}

			case "a":
				if href := attr(n, "href"); href != "" && !strings.HasPrefix(href, "javascript:") {
					if len(snap.Links) < MaxLinks {
						snap.Links = append(snap.Links, entity.LinkInfo{
							Text: collapse(textOf(n)),
							Href: href,
						})
					}
				}

			case "h1", "h2", "h3":
				if text := collapse(textOf(n)); text != "" && len(snap.Headings) < MaxHeadings {
					snap.Headings = append(snap.Headings, text)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inForm)
		}
	}
	walk(doc, nil)

	snap.LoginHints = loginHints(snap)
	return snap, nil
}

// Fields lists every writable field in document order, inside forms or not.
func Fields(rawHTML string) ([]entity.FieldCandidate, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	s := &scanner{labelFor: collectLabels(doc)}
	var out []entity.FieldCandidate

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "svg", "head", "template":
				return
			case "input", "textarea", "select":
				if field, ok := s.fieldOf(n); ok {
					out = append(out, field)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out, nil
}

// Clickables lists buttons, links and elements with a clickable role.
func Clickables(rawHTML string) ([]entity.ClickTarget, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var out []entity.ClickTarget

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "script" || n.Data == "style" || n.Data == "noscript" ||
				n.Data == "svg" || n.Data == "head" || n.Data == "template":
				return
			case n.Data == "button", isSubmitControl(n):
				out = append(out, clickTargetOf(n))
			case n.Data == "a" && attr(n, "href") != "":
				out = append(out, clickTargetOf(n))
			case attr(n, "role") == "button" || attr(n, "role") == "link" ||
				attr(n, "role") == "menuitem" || attr(n, "role") == "tab":
				out = append(out, clickTargetOf(n))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out, nil
}

// VisibleText extracts the page's rendered text, whitespace-collapsed and
// truncated to maxChars (0 means unbounded).
func VisibleText(rawHTML string, maxChars int) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "svg", "head", "template":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := collapse(n.Data); t != "" {
				sb.WriteString(t)
				sb.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	text := strings.TrimSpace(sb.String())
	if maxChars > 0 && len(text) > maxChars {
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text, nil
}

func (s *scanner) fieldOf(n *html.Node) (entity.FieldCandidate, bool) {
	typ := strings.ToLower(attr(n, "type"))
	if n.Data == "input" {
		switch typ {
		case "hidden", "submit", "button", "image", "reset":
			return entity.FieldCandidate{}, false
		}
	}
	if attr(n, "disabled") != "" || hasAttr(n, "disabled") || hasAttr(n, "readonly") {
		return entity.FieldCandidate{}, false
	}

	id := attr(n, "id")
	field := entity.FieldCandidate{
		Selector:     cssPath(n),
		Tag:          n.Data,
		Type:         typ,
		Name:         attr(n, "name"),
		ID:           id,
		Label:        s.labelText(n, id),
		Placeholder:  attr(n, "placeholder"),
		AriaLabel:    attr(n, "aria-label"),
		Autocomplete: attr(n, "autocomplete"),
		Order:        s.order,
	}
	s.order++
	return field, true
}

// labelText resolves the field's label: an explicit <label for=...> wins,
// otherwise the text of a wrapping <label>.
func (s *scanner) labelText(n *html.Node, id string) string {
	if id != "" {
		if text, ok := s.labelFor[id]; ok {
			return text
		}
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "label" {
			return collapse(textOf(p))
		}
	}
	return ""
}

func collectLabels(doc *html.Node) map[string]string {
	labels := make(map[string]string)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "label" {
			if target := attr(n, "for"); target != "" {
				labels[target] = collapse(textOf(n))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return labels
}

func clickTargetOf(n *html.Node) entity.ClickTarget {
	text := collapse(textOf(n))
	if text == "" && n.Data == "input" {
		text = attr(n, "value")
	}
	return entity.ClickTarget{
		Selector:  cssPath(n),
		Tag:       n.Data,
		Role:      attr(n, "role"),
		Text:      text,
		AriaLabel: attr(n, "aria-label"),
		Href:      attr(n, "href"),
	}
}

func isSubmitControl(n *html.Node) bool {
	if n.Data != "input" {
		return false
	}
	typ := strings.ToLower(attr(n, "type"))
	return typ == "submit" || typ == "image"
}

// cssPath derives a stable selector: #id when available, tag[name=...] when
// the name is set, else a positional path anchored at the nearest ancestor
// with an id (or body).
func cssPath(n *html.Node) string {
	if id := attr(n, "id"); id != "" {
		return "#" + cssEscape(id)
	}
	if name := attr(n, "name"); name != "" {
		return fmt.Sprintf(`%s[name="%s"]`, n.Data, name)
	}

	var parts []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		if id := attr(cur, "id"); id != "" && cur != n {
			parts = append([]string{"#" + cssEscape(id)}, parts...)
			return strings.Join(parts, " > ")
		}
		parts = append([]string{fmt.Sprintf("%s:nth-of-type(%d)", cur.Data, nthOfType(cur))}, parts...)
		if cur.Data == "body" {
			break
		}
	}
	return strings.Join(parts, " > ")
}

func nthOfType(n *html.Node) int {
	nth := 1
	for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
		if sib.Type == html.ElementNode && sib.Data == n.Data {
			nth++
		}
	}
	return nth
}

func cssEscape(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteString(fmt.Sprintf("\\%c", r))
		}
	}
	return sb.String()
}

// loginHints flags authentication surfaces so the planner and risk policy
// can reason about them without re-reading the DOM.
func loginHints(snap entity.PageSnapshot) []string {
	var hints []string
	for _, form := range snap.Forms {
		hasPassword := false
		for _, f := range form.Fields {
			if f.Type == "password" {
				hasPassword = true
			}
		}
		if hasPassword {
			hints = append(hints, "form with password field: "+form.Selector)
		}
		action := strings.ToLower(form.Action)
		if strings.Contains(action, "login") || strings.Contains(action, "signin") ||
			strings.Contains(action, "register") || strings.Contains(action, "signup") {
			hints = append(hints, "form action suggests authentication: "+form.Action)
		}
	}
	for _, b := range snap.Buttons {
		t := strings.ToLower(b.Text + " " + b.AriaLabel)
		if strings.Contains(t, "sign in") || strings.Contains(t, "log in") ||
			strings.Contains(t, "sign up") || strings.Contains(t, "register") {
			hints = append(hints, "button: "+b.Text)
			break
		}
	}
	return hints
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
