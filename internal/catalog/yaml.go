package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hitoshi/storefront/internal/model"
)

// fileFormat はカタログファイルのトップレベル構造。
type fileFormat struct {
	Products []model.Product `yaml:"products"`
}

// DecodeYAML はYAML形式のカタログを読み込む。
func DecodeYAML(r io.Reader) ([]model.Product, error) {
	var f fileFormat
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return []model.Product{}, nil
		}
		return nil, fmt.Errorf("failed to decode catalog yaml: %w", err)
	}
	if f.Products == nil {
		return []model.Product{}, nil
	}
	return f.Products, nil
}

// EncodeYAML はカタログをYAML形式で書き出す。
func EncodeYAML(w io.Writer, products []model.Product) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(fileFormat{Products: products}); err != nil {
		return fmt.Errorf("failed to encode catalog yaml: %w", err)
	}
	return enc.Close()
}

// LoadFile はYAMLファイルからCatalogを生成する。
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	products, err := DecodeYAML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return New(products), nil
}
