package view

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/storefront/internal/cart"
	"github.com/hitoshi/storefront/internal/currency"
	"github.com/hitoshi/storefront/internal/model"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(currency.NewFormatter(currency.DefaultLocale))
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	return r
}

func render(t *testing.T, r *Renderer, page string, data *PageData) string {
	t.Helper()
	var buf bytes.Buffer
	if err := r.Render(&buf, page, data); err != nil {
		t.Fatalf("Render(%s) error = %v", page, err)
	}
	return buf.String()
}

var testCart = cart.Summarize([]model.CartLineItem{
	{ID: "sku1", Title: "Aviator", Qty: 2, ImgSrc: "a.png", Price: 1500},
})

func TestRender_AllPages(t *testing.T) {
	r := newTestRenderer(t)
	product := model.Product{ID: "sku1", Title: "Aviator", Price: 1500, ImgSrc: "a.png", Description: "<p>Classic</p>"}

	for _, page := range pages {
		data := &PageData{Title: page, CSRFToken: "tok", Product: &product, Products: []model.Product{product}}
		out := render(t, r, page, data)
		if !strings.Contains(out, "<title>"+page+" | Garg Glasses Co.</title>") {
			t.Errorf("%s: missing title", page)
		}
	}
}

func TestRender_NavActiveLink(t *testing.T) {
	r := newTestRenderer(t)

	out := render(t, r, PageProducts, &PageData{Nav: Nav{Active: "products"}})

	if !strings.Contains(out, `href="/products" data-nav="products" class="active-link"`) {
		t.Error("products link should be active")
	}
	if strings.Contains(out, `data-nav="index" class="active-link"`) {
		t.Error("index link must not be active")
	}
}

func TestRender_CartBadge(t *testing.T) {
	r := newTestRenderer(t)

	out := render(t, r, PageIndex, &PageData{Nav: Nav{CartCount: 0}})
	if strings.Contains(out, `id="cartBadge"`) {
		t.Error("badge must be hidden when count is 0")
	}

	out = render(t, r, PageIndex, &PageData{Nav: Nav{CartCount: 3}})
	if !strings.Contains(out, `<span id="cartBadge" class="cart-badge">3</span>`) {
		t.Error("badge should show count 3")
	}
}

func TestRender_AuthLink(t *testing.T) {
	r := newTestRenderer(t)

	out := render(t, r, PageIndex, &PageData{})
	if !strings.Contains(out, `<a id="navAuthLink" href="/login" data-nav="login">Login</a>`) {
		t.Errorf("logged out nav should link to login:\n%s", out)
	}

	out = render(t, r, PageIndex, &PageData{CSRFToken: "tok", Nav: Nav{Session: &model.Session{Email: "asha@example.com", Name: "Asha"}}})
	if !strings.Contains(out, "Asha • Logout") {
		t.Error("logged in nav should show name and Logout")
	}
	if !strings.Contains(out, `action="/logout"`) || !strings.Contains(out, `name="csrf_token" value="tok"`) {
		t.Error("logout must be a CSRF-protected form")
	}
}

func TestRender_IndexCartSidebar(t *testing.T) {
	r := newTestRenderer(t)

	out := render(t, r, PageIndex, &PageData{Cart: testCart})
	if strings.Contains(out, `id="cartSidebar"`) {
		t.Error("sidebar must be hidden unless opened")
	}

	out = render(t, r, PageIndex, &PageData{Cart: testCart, CartOpen: true})
	if !strings.Contains(out, `id="cartSidebar"`) {
		t.Fatal("sidebar should render when opened")
	}
	if !strings.Contains(out, "Price: ₹1,500 • Qty: 2") {
		t.Error("sidebar line missing price and qty")
	}
	if !strings.Contains(out, `<span id="cartTotal">₹3,000</span>`) {
		t.Error("sidebar total should be ₹3,000")
	}

	out = render(t, r, PageIndex, &PageData{CartOpen: true})
	if !strings.Contains(out, "Your cart is empty. Add a bestseller to get started.") {
		t.Error("empty sidebar should show the empty message")
	}
	if !strings.Contains(out, `<span id="cartTotal">₹0</span>`) {
		t.Error("empty sidebar total should be ₹0")
	}
}

func TestRender_CartPage(t *testing.T) {
	r := newTestRenderer(t)

	out := render(t, r, PageCart, &PageData{Cart: testCart, CSRFToken: "tok"})
	for _, want := range []string{
		`action="/cart/items/sku1/inc"`,
		`action="/cart/items/sku1/dec"`,
		`action="/cart/items/sku1/remove"`,
		`<span id="totalQty">2</span>`,
		`<span id="cartTotal">₹3,000</span>`,
		`id="checkoutBtn"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("cart page missing %s", want)
		}
	}
}

func TestRender_LineActionsEscapeIDPathSegment(t *testing.T) {
	r := newTestRenderer(t)
	summary := cart.Summarize([]model.CartLineItem{
		{ID: "https://shop.example/p/1", Title: "Feed Frame", Qty: 1, Price: 100},
		{ID: "a%41", Title: "Percent", Qty: 1, Price: 100},
	})

	out := render(t, r, PageCart, &PageData{Cart: summary, CSRFToken: "tok"})
	for _, want := range []string{
		`action="/cart/items/https:%2F%2Fshop.example%2Fp%2F1/inc"`,
		`action="/cart/items/https:%2F%2Fshop.example%2Fp%2F1/remove"`,
		`action="/cart/items/a%2541/dec"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("cart page missing %s", want)
		}
	}
}

func TestRender_ProductLinkEscapesID(t *testing.T) {
	r := newTestRenderer(t)
	products := []model.Product{{ID: "sku/9", Title: "Slash", Price: 1}}

	out := render(t, r, PageProducts, &PageData{Products: products})
	if !strings.Contains(out, `href="/products/sku%2F9"`) {
		t.Errorf("product link not escaped:\n%s", out)
	}

	detail := render(t, r, PageProduct, &PageData{Product: &products[0]})
	if !strings.Contains(detail, `name="return_to" value="/products/sku%2F9"`) {
		t.Error("detail return_to not escaped")
	}
}

func TestRender_EmptyCartPage_HidesTotalsAndCheckout(t *testing.T) {
	r := newTestRenderer(t)

	out := render(t, r, PageCart, &PageData{})

	if !strings.Contains(out, "Your cart is empty. Add a bestseller to get started.") {
		t.Error("missing empty message")
	}
	if strings.Contains(out, `id="checkoutBtn"`) || strings.Contains(out, `id="cartTotal"`) {
		t.Error("totals and checkout must be hidden for an empty cart")
	}
}

func TestRender_AddToCartFormCarriesProductFields(t *testing.T) {
	r := newTestRenderer(t)
	products := []model.Product{{ID: "sku9", Title: "Round", Price: 799, ImgSrc: "r.png"}}

	out := render(t, r, PageProducts, &PageData{Products: products, CSRFToken: "tok"})

	for _, want := range []string{
		`name="id" value="sku9"`,
		`name="title" value="Round"`,
		`name="price" value="799"`,
		`name="imgSrc" value="r.png"`,
		`name="return_to" value="/products"`,
		`name="csrf_token" value="tok"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("products page missing %s", want)
		}
	}
}

func TestRender_FeedbackAndFormValues(t *testing.T) {
	r := newTestRenderer(t)

	out := render(t, r, PageSignup, &PageData{
		Feedback: &Feedback{Kind: FeedbackError, Message: "Please enter your name."},
		Form:     map[string]string{"email": "a@b.c"},
	})

	if !strings.Contains(out, `<p class="feedback error" role="alert">Please enter your name.</p>`) {
		t.Error("missing feedback message")
	}
	if !strings.Contains(out, `value="a@b.c"`) {
		t.Error("email should be re-filled")
	}
}

func TestRender_EscapesUserContent(t *testing.T) {
	r := newTestRenderer(t)

	out := render(t, r, PageIndex, &PageData{Nav: Nav{Session: &model.Session{Name: "<script>x</script>"}}})

	if strings.Contains(out, "<script>x</script>") {
		t.Error("session name must be escaped")
	}
}

func TestRender_UnknownPage(t *testing.T) {
	r := newTestRenderer(t)
	if err := r.Render(&bytes.Buffer{}, "missing", &PageData{}); err == nil {
		t.Error("expected error for unknown page")
	}
}

func TestActiveNav(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "index"},
		{"", "index"},
		{"/products", "products"},
		{"/products/sku1", "products"},
		{"/Cart", "cart"},
		{"/login", "login"},
	}
	for _, tt := range tests {
		if got := ActiveNav(tt.path); got != tt.want {
			t.Errorf("ActiveNav(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestRefreshHeader(t *testing.T) {
	if got := RefreshHeader(600*time.Millisecond, "/"); got != "0.6; url=/" {
		t.Errorf("RefreshHeader = %q", got)
	}
	if got := RefreshHeader(0, "/"); got != "0; url=/" {
		t.Errorf("RefreshHeader = %q", got)
	}
}

func TestDict(t *testing.T) {
	if _, err := dict("a"); err == nil {
		t.Error("expected error for odd arguments")
	}
	if _, err := dict(1, 2); err == nil {
		t.Error("expected error for non-string key")
	}
	m, err := dict("a", 1)
	if err != nil || m["a"] != 1 {
		t.Errorf("dict = %v, %v", m, err)
	}
}
