package product

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"storefront/internal/cache"
	"storefront/internal/domain"
	"storefront/internal/metrics"
	productrepo "storefront/internal/repository/product"
	"storefront/internal/storage"
)

const (
	imageFolder   = "products"
	versionKey    = "products:version"
	topLimit      = 3
	cacheName     = "products"
	maxCommentLen = 2000
)

type Service struct {
	repo    productrepo.Repository
	images  storage.ImageStore
	cache   cache.Store
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
}

type Options struct {
	Images   storage.ImageStore
	Cache    cache.Store
	CacheTTL time.Duration
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

func New(repo productrepo.Repository, opts Options) *Service {
	if opts.Images == nil {
		opts.Images = storage.Unconfigured{}
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewMemory()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		images:  opts.Images,
		cache:   opts.Cache,
		ttl:     opts.CacheTTL,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
}

// List returns products matching the keyword and category filters.
func (s *Service) List(ctx context.Context, keyword, categoryID string) ([]domain.Product, error) {
	f := productrepo.ListFilter{Keyword: strings.TrimSpace(keyword), CategoryID: strings.TrimSpace(categoryID)}
	key := fmt.Sprintf("list:%s:%s", strings.ToLower(f.Keyword), f.CategoryID)
	return s.cached(ctx, key, func() ([]domain.Product, error) {
		return s.repo.List(ctx, f)
	})
}

// Top returns the best rated products.
func (s *Service) Top(ctx context.Context) ([]domain.Product, error) {
	return s.cached(ctx, "top", func() ([]domain.Product, error) {
		return s.repo.Top(ctx, topLimit)
	})
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("product not found")
	}
	return p, err
}

type CreateInput struct {
	Name        string
	Description string
	Price       int64
	Stock       int
	CategoryID  string
}

// Create stores a product and uploads its first image when img is set.
func (s *Service) Create(ctx context.Context, in CreateInput, img *storage.Upload) (*domain.Product, error) {
	name := strings.TrimSpace(in.Name)
	desc := strings.TrimSpace(in.Description)
	categoryID := strings.TrimSpace(in.CategoryID)
	if name == "" || desc == "" || categoryID == "" {
		return nil, domain.Invalid("Please provide all fields")
	}
	if in.Price <= 0 {
		return nil, domain.Invalid("price must be greater than 0")
	}
	if in.Stock < 0 {
		return nil, domain.Invalid("stock cannot be negative")
	}

	// The image goes up first so a storage failure leaves no product behind.
	var uploaded *domain.Image
	if img != nil {
		up, err := s.images.Put(ctx, imageFolder, *img)
		if err != nil {
			return nil, err
		}
		uploaded = &up
	}

	p, err := s.repo.Create(ctx, productrepo.CreateInput{
		Name:        name,
		Description: desc,
		Price:       in.Price,
		Stock:       in.Stock,
		CategoryID:  &categoryID,
	})
	if err != nil {
		if uploaded != nil {
			s.dropObject(ctx, uploaded.PublicID)
		}
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("category not found")
		}
		return nil, err
	}

	if uploaded != nil {
		withImage, err := s.repo.AddImage(ctx, p.ID, *uploaded)
		if err != nil {
			if _, derr := s.repo.Delete(ctx, p.ID); derr != nil {
				s.logger.Error("remove product after failed image attach", zap.String("product_id", p.ID), zap.Error(derr))
			}
			s.dropObject(ctx, uploaded.PublicID)
			return nil, err
		}
		p = withImage
	}
	s.invalidate(ctx)
	s.logger.Info("product created", zap.String("product_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

type UpdateInput struct {
	Name        *string
	Description *string
	Price       *int64
	Stock       *int
	CategoryID  *string
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*domain.Product, error) {
	upd := productrepo.UpdateInput{
		Name:        trimmed(in.Name),
		Description: trimmed(in.Description),
		Price:       in.Price,
		Stock:       in.Stock,
		CategoryID:  trimmed(in.CategoryID),
	}
	if upd.Price != nil && *upd.Price <= 0 {
		return nil, domain.Invalid("price must be greater than 0")
	}
	if upd.Stock != nil && *upd.Stock < 0 {
		return nil, domain.Invalid("stock cannot be negative")
	}

	p, err := s.repo.Update(ctx, id, upd)
	if errors.Is(err, domain.ErrNotFound) {
		if upd.CategoryID != nil {
			if _, gerr := s.repo.GetByID(ctx, id); gerr == nil {
				return nil, domain.NotFound("category not found")
			}
		}
		return nil, domain.NotFound("product not found")
	}
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return p, nil
}

// AddImage uploads img and appends it to the product's images.
func (s *Service) AddImage(ctx context.Context, id string, img storage.Upload) (*domain.Product, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.attachImage(ctx, id, img)
}

// DeleteImage removes one image from the product and from storage.
func (s *Service) DeleteImage(ctx context.Context, productID, imageID string) error {
	if strings.TrimSpace(imageID) == "" {
		return domain.Invalid("image id is required")
	}
	img, err := s.repo.RemoveImage(ctx, productID, imageID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound("image not found")
	}
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	s.dropObject(ctx, img.PublicID)
	return nil
}

// Delete removes the product; its cart lines go with it.
func (s *Service) Delete(ctx context.Context, id string) error {
	images, err := s.repo.Delete(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound("product not found")
	}
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	for _, img := range images {
		s.dropObject(ctx, img.PublicID)
	}
	s.logger.Info("product deleted", zap.String("product_id", id), zap.Int("images", len(images)))
	return nil
}

type ReviewInput struct {
	Rating  int
	Comment string
}

// Review records the user's single review and refreshes the rating.
func (s *Service) Review(ctx context.Context, productID string, author domain.User, in ReviewInput) (*domain.Product, error) {
	comment := strings.TrimSpace(in.Comment)
	if in.Rating < 1 || in.Rating > 5 {
		return nil, domain.Invalid("rating must be between 1 and 5")
	}
	if comment == "" {
		return nil, domain.Invalid("please provide a comment")
	}
	if len(comment) > maxCommentLen {
		return nil, domain.Invalid("comment is too long")
	}

	p, err := s.repo.AddReview(ctx, domain.Review{
		ProductID: productID,
		UserID:    author.ID,
		Name:      author.Name,
		Rating:    in.Rating,
		Comment:   comment,
	})
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		return nil, domain.Invalid("product already reviewed")
	case errors.Is(err, domain.ErrNotFound):
		return nil, domain.NotFound("product not found")
	case err != nil:
		return nil, err
	}
	s.invalidate(ctx)
	return p, nil
}

// Invalidate drops every cached listing.
func (s *Service) Invalidate(ctx context.Context) {
	s.invalidate(ctx)
}

func (s *Service) attachImage(ctx context.Context, id string, up storage.Upload) (*domain.Product, error) {
	img, err := s.images.Put(ctx, imageFolder, up)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.AddImage(ctx, id, img)
	if err != nil {
		s.dropObject(ctx, img.PublicID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("product not found")
		}
		return nil, err
	}
	s.invalidate(ctx)
	return p, nil
}

func (s *Service) dropObject(ctx context.Context, publicID string) {
	if publicID == "" {
		return
	}
	if err := s.images.Delete(ctx, publicID); err != nil {
		s.logger.Warn("delete image object", zap.String("public_id", publicID), zap.Error(err))
	}
}

// Listings are cached under a version prefix; a write bumps the version so
// every older entry becomes unreachable and expires on its own.
func (s *Service) cached(ctx context.Context, key string, load func() ([]domain.Product, error)) ([]domain.Product, error) {
	if s.ttl <= 0 {
		return load()
	}
	full := "products:v" + s.version(ctx) + ":" + key

	var products []domain.Product
	if err := cache.GetJSON(ctx, s.cache, full, &products); err == nil {
		s.metrics.CacheLookup(cacheName, true)
		return products, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("product cache read", zap.String("key", full), zap.Error(err))
	}
	s.metrics.CacheLookup(cacheName, false)

	products, err := load()
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, s.cache, full, products, s.ttl); err != nil {
		s.logger.Warn("product cache write", zap.String("key", full), zap.Error(err))
	}
	return products, nil
}

func (s *Service) version(ctx context.Context) string {
	raw, err := s.cache.Get(ctx, versionKey)
	if err != nil {
		return "0"
	}
	if _, err := strconv.ParseInt(string(raw), 10, 64); err != nil {
		return "0"
	}
	return string(raw)
}

func (s *Service) invalidate(ctx context.Context) {
	if _, err := s.cache.Incr(ctx, versionKey); err != nil {
		s.logger.Warn("product cache invalidate", zap.Error(err))
	}
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}
