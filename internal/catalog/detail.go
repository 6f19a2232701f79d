package catalog

import (
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hitoshi/storefront/internal/model"
)

// ParseDetail は商品詳細ページから1件の商品を抽出する。
// pageNameはページのファイル名またはURLパスで、IDの補完に使う。
//
//   - title: .title → h2 → <title> → "Item" の順に探す
//   - price: .priceのテキストから数字だけを取り出す。なければボタンのdata-price
//   - id: #addBtn/#addToCartBtnのdata-id → ページ名（.html除去） → タイトルのスラッグ
//   - img_src: main内の最初のimg → ページ内の最初のimg
func ParseDetail(r io.Reader, pageName string) (model.Product, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return model.Product{}, fmt.Errorf("failed to parse detail html: %w", err)
	}

	button := findFirst(doc, hasID("addBtn"))
	if button == nil {
		button = findFirst(doc, hasID("addToCartBtn"))
	}

	title := ""
	for _, match := range []func(*html.Node) bool{hasClass("title"), isElement(atom.H2), isElement(atom.Title)} {
		if n := findFirst(doc, match); n != nil {
			title = strings.TrimSpace(textContent(n))
			break
		}
	}
	if title == "" {
		title = DefaultProductTitle
	}

	p := model.Product{
		ID:     detailID(button, pageName, title),
		Title:  title,
		Price:  detailPrice(doc, button),
		ImgSrc: detailImage(doc),
	}
	if desc := findFirst(doc, hasClass("description")); desc != nil {
		p.Description = innerHTML(desc)
	}
	return p, nil
}

func detailID(button *html.Node, pageName, title string) string {
	if id := attr(button, "data-id"); id != "" {
		return id
	}
	if base := strings.TrimSuffix(path.Base(pageName), ".html"); base != "" && base != "." && base != "/" {
		return base
	}
	return slug(title)
}

func detailPrice(doc, button *html.Node) float64 {
	if n := findFirst(doc, hasClass("price")); n != nil {
		if digits := onlyDigits(textContent(n)); digits != "" {
			return model.ParseNumber(digits)
		}
	}
	return model.ParseNumber(attr(button, "data-price"))
}

func detailImage(doc *html.Node) string {
	scope := findFirst(doc, isElement(atom.Main))
	if scope != nil {
		if img := findFirst(scope, isElement(atom.Img)); img != nil {
			return attr(img, "src")
		}
	}
	if img := findFirst(doc, isElement(atom.Img)); img != nil {
		return attr(img, "src")
	}
	return ""
}

// slug はタイトルを小文字化し、空白の並びをハイフン1つに置き換える。
func slug(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), "-")
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// --- html.Node helpers ---

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n == nil {
		return nil
	}
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func isElement(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == a
	}
}

func hasID(id string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "id") == id
	}
}

func hasClass(class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		for _, c := range strings.Fields(attr(n, "class")) {
			if c == class {
				return true
			}
		}
		return false
	}
}

func attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func innerHTML(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, c)
	}
	return b.String()
}
