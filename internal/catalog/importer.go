package catalog

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hitoshi/storefront/internal/model"
)

// Fetcher は外部URLの本文を取得する。security.FetchGuardが実装する。
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Sanitizer は取り込んだ文字列を無害化する。security.DescriptionSanitizerが実装する。
type Sanitizer interface {
	Sanitize(rawHTML string) string
	PlainText(raw string) string
}

// 取り込み元の形式
const (
	FormatYAML    = "yaml"
	FormatFeed    = "feed"
	FormatListing = "listing"
	FormatDetail  = "detail"
)

// Importer はURLまたはファイルから商品を取り込む。
type Importer struct {
	fetcher   Fetcher
	sanitizer Sanitizer
	logger    *slog.Logger
}

// NewImporter はImporterを生成する。
func NewImporter(fetcher Fetcher, sanitizer Sanitizer, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{fetcher: fetcher, sanitizer: sanitizer, logger: logger}
}

// Import は取り込み元を読み込み、形式を判定して商品を抽出する。
// http/httpsのURLはFetcher経由で、それ以外はローカルファイルとして読む。
func (im *Importer) Import(ctx context.Context, source string) ([]model.Product, error) {
	body, name, err := im.read(ctx, source)
	if err != nil {
		return nil, err
	}

	products, format, err := Extract(body, name)
	if err != nil {
		return nil, err
	}

	for i := range products {
		products[i].Title = im.sanitizer.PlainText(products[i].Title)
		products[i].Description = im.sanitizer.Sanitize(products[i].Description)
		if products[i].Title == "" {
			products[i].Title = DefaultProductTitle
		}
	}

	im.logger.Info("catalog imported",
		slog.String("source", source),
		slog.String("format", format),
		slog.Int("products", len(products)),
	)
	return products, nil
}

// Extract は本文と名前から形式を判定して商品を抽出する。
// 判定順: 拡張子.yaml/.yml → RSS/Atom → .productカードを含むHTML → 詳細ページ
func Extract(body []byte, name string) ([]model.Product, string, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		products, err := DecodeYAML(bytes.NewReader(body))
		return products, FormatYAML, err
	}

	if LooksLikeFeed(body) {
		products, err := ParseFeed(body)
		return products, FormatFeed, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse html: %w", err)
	}
	if HasProductCards(doc) {
		products, err := ParseListing(bytes.NewReader(body))
		return products, FormatListing, err
	}

	product, err := ParseDetail(bytes.NewReader(body), name)
	if err != nil {
		return nil, "", err
	}
	return []model.Product{product}, FormatDetail, nil
}

func (im *Importer) read(ctx context.Context, source string) ([]byte, string, error) {
	u, err := url.Parse(source)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		if im.fetcher == nil {
			return nil, "", fmt.Errorf("remote catalog source not supported: %s", source)
		}
		body, err := im.fetcher.Fetch(ctx, source)
		if err != nil {
			return nil, "", fmt.Errorf("failed to fetch catalog source: %w", err)
		}
		return body, u.Path, nil
	}

	body, err := os.ReadFile(source)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read catalog source: %w", err)
	}
	return body, source, nil
}
