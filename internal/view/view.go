// Package view は埋め込みテンプレートによるHTMLページ描画を提供する。
//
// 各ページは共通レイアウト（ヘッダーナビゲーション）とページ固有の
// "content"テンプレートから構成される。描画は常にリクエスト時点で
// 読み直した状態から行う。
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/storefront/internal/cart"
	"github.com/hitoshi/storefront/internal/currency"
	"github.com/hitoshi/storefront/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// ページ名
const (
	PageIndex    = "index"
	PageProducts = "products"
	PageProduct  = "product"
	PageCart     = "cart"
	PageCheckout = "checkout"
	PageLogin    = "login"
	PageSignup   = "signup"
	PageNotFound = "notfound"
)

var pages = []string{
	PageIndex, PageProducts, PageProduct, PageCart,
	PageCheckout, PageLogin, PageSignup, PageNotFound,
}

// フィードバックメッセージの種別（CSSクラス）
const (
	FeedbackError   = "error"
	FeedbackSuccess = "success"
)

// Nav はヘッダーナビゲーションの表示状態。
type Nav struct {
	Active    string         // アクティブなリンクのdata-nav値
	CartCount int            // 0の場合バッジは表示しない
	Session   *model.Session // nilなら"Login"リンクを表示
}

// Feedback はフォーム送信結果のメッセージ。
type Feedback struct {
	Kind    string
	Message string
}

// PageData はテンプレートに渡す描画データ。
type PageData struct {
	Title     string
	Nav       Nav
	CSRFToken string
	ReturnTo  string // カート操作フォームの戻り先

	Products []model.Product
	Product  *model.Product
	Cart     cart.Summary
	CartOpen bool // indexのカートサイドバー

	Feedback *Feedback
	Form     map[string]string // 再表示用の入力値（パスワードは含めない）
}

// Renderer はページ名ごとに解析済みテンプレートを保持する。
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer は埋め込みテンプレートを解析してRendererを生成する。
// formatterはテンプレート関数"inr"で使われる。
func NewRenderer(formatter *currency.Formatter) (*Renderer, error) {
	funcs := template.FuncMap{
		"inr":  formatter.Format,
		"qty":  formatQty,
		"dict": dict,
		// 商品IDはURLパスの1セグメントとして埋め込む。読み取り側はlineIDParamで1回だけ復号する
		"pathEscape": url.PathEscape,
		// 商品説明はカタログ読み込み時にbluemondayでサニタイズ済み
		"safeHTML": func(s string) template.HTML { return template.HTML(s) },
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/partials.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Render はページをwに描画する。
func (r *Renderer) Render(w io.Writer, page string, data *PageData) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page: %s", page)
	}
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", page, err)
	}
	return nil
}

// StaticHandler は埋め込み静的ファイルを配信するハンドラーを返す。
// /static/ 配下にマウントする想定。
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// ActiveNav はリクエストパスからアクティブなナビゲーション項目を返す。
// "/"はindexとして扱う。
func ActiveNav(path string) string {
	segment := strings.Trim(path, "/")
	if segment == "" {
		return PageIndex
	}
	segment, _, _ = strings.Cut(segment, "/")
	return strings.ToLower(segment)
}

// RefreshHeader は成功後の遅延リダイレクト用Refreshヘッダー値を返す。
func RefreshHeader(after time.Duration, to string) string {
	return strconv.FormatFloat(after.Seconds(), 'f', -1, 64) + "; url=" + to
}

// dict はテンプレート呼び出し用に"キー, 値"の並びからmapを作る。
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
