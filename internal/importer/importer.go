package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/domain"
	productrepo "storefront/internal/repository/product"
)

type ProductWriter interface {
	UpsertByName(ctx context.Context, in productrepo.CreateInput, imageURL string) (*domain.Product, error)
}

type CategoryEnsurer interface {
	Ensure(ctx context.Context, name string) (*domain.Category, error)
}

// CSVImporter reads product rows and inserts or updates them by name.
// Expected columns: name, description, price, stock, category, image. A row
// with only an image adds that image to the product above it.
type CSVImporter struct {
	reader     *csv.Reader
	products   ProductWriter
	categories CategoryEnsurer
	logger     *zap.Logger

	categoryIDs map[string]string
}

func NewCSVImporter(r io.Reader, products ProductWriter, categories CategoryEnsurer, logger *zap.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVImporter{
		reader:      csvr,
		products:    products,
		categories:  categories,
		logger:      logger,
		categoryIDs: map[string]string{},
	}
}

type csvRow struct {
	Line      int
	Name      string
	Desc      string
	Price     int64
	Stock     int
	Category  string
	ImageURLs []string
}

// Run imports every product and returns how many were written.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, col := range []string{"name", "price"} {
		if _, ok := index[col]; !ok {
			return 0, fmt.Errorf("missing required column %q", col)
		}
	}

	var (
		current  *csvRow
		imported int
		line     = 1
	)

	for {
		record, err := i.reader.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row %d: %w", line, err)
		}

		row, err := parseRow(record, index, line)
		if err != nil {
			return imported, err
		}
		if row == nil {
			continue
		}

		if row.Name != "" {
			if current != nil {
				if err := i.save(ctx, current); err != nil {
					return imported, err
				}
				imported++
			}
			current = row
			continue
		}

		// Continuation rows (images) belong to the current product.
		if current != nil && len(row.ImageURLs) > 0 {
			current.ImageURLs = append(current.ImageURLs, row.ImageURLs...)
		}
	}

	if current != nil {
		if err := i.save(ctx, current); err != nil {
			return imported, err
		}
		imported++
	}

	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow) error {
	if row.Price <= 0 {
		return fmt.Errorf("row %d: product %q needs a positive price", row.Line, row.Name)
	}
	if row.Stock < 0 {
		return fmt.Errorf("row %d: product %q has negative stock", row.Line, row.Name)
	}

	in := productrepo.CreateInput{
		Name:        row.Name,
		Description: row.Desc,
		Price:       row.Price,
		Stock:       row.Stock,
	}
	if row.Category != "" {
		id, err := i.categoryID(ctx, row.Category)
		if err != nil {
			return fmt.Errorf("row %d: ensure category %q: %w", row.Line, row.Category, err)
		}
		in.CategoryID = &id
	}

	images := row.ImageURLs
	if len(images) == 0 {
		images = []string{""}
	}
	var p *domain.Product
	for _, url := range images {
		var err error
		p, err = i.products.UpsertByName(ctx, in, url)
		if err != nil {
			return fmt.Errorf("row %d: upsert product %q: %w", row.Line, row.Name, err)
		}
	}
	i.logger.Debug("product imported", zap.String("product_id", p.ID), zap.String("name", p.Name), zap.Int("images", len(row.ImageURLs)))
	return nil
}

func (i *CSVImporter) categoryID(ctx context.Context, name string) (string, error) {
	key := strings.ToLower(name)
	if id, ok := i.categoryIDs[key]; ok {
		return id, nil
	}
	c, err := i.categories.Ensure(ctx, name)
	if err != nil {
		return "", err
	}
	i.categoryIDs[key] = c.ID
	return c.ID, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int, line int) (*csvRow, error) {
	name := pick(record, index, "name")
	imageURL := pick(record, index, "image")
	if name == "" && imageURL == "" {
		return nil, nil
	}

	row := &csvRow{
		Line:     line,
		Name:     name,
		Desc:     pick(record, index, "description"),
		Category: pick(record, index, "category"),
	}
	if imageURL != "" {
		row.ImageURLs = []string{imageURL}
	}
	if name == "" {
		return row, nil
	}

	if raw := pick(record, index, "price"); raw != "" {
		price, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid price %q", line, raw)
		}
		row.Price = price
	}
	if raw := pick(record, index, "stock"); raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid stock %q", line, raw)
		}
		row.Stock = stock
	}
	return row, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
