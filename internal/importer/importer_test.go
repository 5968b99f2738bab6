package importer

import (
	"context"
	"strings"
	"testing"

	"storefront/internal/domain"
	productrepo "storefront/internal/repository/product"
)

type upsertCall struct {
	in    productrepo.CreateInput
	image string
}

type stubProductRepo struct {
	calls []upsertCall
}

func (s *stubProductRepo) UpsertByName(_ context.Context, in productrepo.CreateInput, imageURL string) (*domain.Product, error) {
	s.calls = append(s.calls, upsertCall{in: in, image: imageURL})
	return &domain.Product{ID: "p-" + strings.ToLower(in.Name), Name: in.Name}, nil
}

type stubCategoryRepo struct {
	ensured []string
}

func (s *stubCategoryRepo) Ensure(_ context.Context, name string) (*domain.Category, error) {
	s.ensured = append(s.ensured, name)
	return &domain.Category{ID: "cat-" + strings.ToLower(name), Name: name}, nil
}

func TestCSVImporter_Run(t *testing.T) {
	csvData := `name,description,price,stock,category,image
Phone X,Flagship phone,12000,5,Phones,https://example.com/x1.jpg
,,,,,https://example.com/x2.jpg
Phone Case,Silicone case,300,40,phones,
Charger,Fast charger,450,0,,`

	repo := &stubProductRepo{}
	catRepo := &stubCategoryRepo{}
	imp := NewCSVImporter(strings.NewReader(csvData), repo, catRepo, nil)

	count, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 products imported, got %d", count)
	}

	// Phone X is written once per image.
	if len(repo.calls) != 4 {
		t.Fatalf("expected 4 upserts, got %d", len(repo.calls))
	}
	first := repo.calls[0]
	if first.in.Name != "Phone X" || first.in.Price != 12000 || first.in.Stock != 5 || first.image != "https://example.com/x1.jpg" {
		t.Fatalf("unexpected first upsert %+v", first)
	}
	if first.in.CategoryID == nil || *first.in.CategoryID != "cat-phones" {
		t.Fatalf("expected category id, got %v", first.in.CategoryID)
	}
	if repo.calls[1].image != "https://example.com/x2.jpg" {
		t.Fatalf("expected continuation image, got %+v", repo.calls[1])
	}
	if repo.calls[3].in.CategoryID != nil || repo.calls[3].image != "" {
		t.Fatalf("expected uncategorised charger without image, got %+v", repo.calls[3])
	}
	if len(catRepo.ensured) != 1 {
		t.Fatalf("expected category lookups to be cached case-insensitively, got %v", catRepo.ensured)
	}
}

func TestCSVImporter_RejectsBadRows(t *testing.T) {
	cases := []struct {
		name string
		csv  string
		want string
	}{
		{"missing price column", "name,stock\nPhone,1", `missing required column "price"`},
		{"non numeric price", "name,price\nPhone,abc", `row 2: invalid price "abc"`},
		{"zero price", "name,price,stock\nPhone,0,1", `row 2: product "Phone" needs a positive price`},
		{"negative stock", "name,price,stock\nPhone,10,-1", `row 2: product "Phone" has negative stock`},
	}
	for _, tc := range cases {
		imp := NewCSVImporter(strings.NewReader(tc.csv), &stubProductRepo{}, &stubCategoryRepo{}, nil)
		_, err := imp.Run(context.Background())
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.want, err)
		}
	}
}
