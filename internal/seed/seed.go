package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
	productrepo "storefront/internal/repository/product"
)

type userStore interface {
	Create(ctx context.Context, u domain.User) (*domain.User, error)
}

type categoryStore interface {
	Ensure(ctx context.Context, name string) (*domain.Category, error)
}

type productStore interface {
	UpsertByName(ctx context.Context, in productrepo.CreateInput, imageURL string) (*domain.Product, error)
}

// Stores are the repositories seeding writes through.
type Stores struct {
	Users      userStore
	Categories categoryStore
	Products   productStore
}

// Admin is the console account created on first run.
type Admin struct {
	Name     string
	Email    string
	Password string
}

type productSeed struct {
	Name        string
	Description string
	Price       int64
	Stock       int
	Category    string
	Image       string
}

var demoProducts = []productSeed{
	{Name: "Aurora X1", Description: "6.5 inch phone with a 48MP camera", Price: 899000, Stock: 25, Category: "Phones"},
	{Name: "Pixelate Mini", Description: "Compact phone with all-day battery", Price: 459000, Stock: 40, Category: "Phones"},
	{Name: "Tab Air 11", Description: "11 inch tablet for reading and video", Price: 649000, Stock: 15, Category: "Tablets"},
	{Name: "Buds Pro", Description: "Wireless earbuds with noise cancelling", Price: 129000, Stock: 80, Category: "Audio"},
	{Name: "Power Brick 65W", Description: "USB-C fast charger", Price: 39000, Stock: 120, Category: "Accessories"},
	{Name: "Clear Case", Description: "Shock absorbing transparent case", Price: 15000, Stock: 200, Category: "Accessories"},
}

// Summary counts what Apply wrote.
type Summary struct {
	AdminCreated bool
	Categories   int
	Products     int
}

// Apply inserts an admin account, categories and demo products. It is safe to
// run repeatedly: existing rows are kept or updated in place.
func Apply(ctx context.Context, stores Stores, admin Admin, logger *zap.Logger) (Summary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var sum Summary

	created, err := ensureAdmin(ctx, stores.Users, admin)
	if err != nil {
		return sum, fmt.Errorf("ensure admin: %w", err)
	}
	sum.AdminCreated = created
	if created {
		logger.Info("seed: admin created", zap.String("email", admin.Email))
	}

	categoryIDs := map[string]string{}
	for _, p := range demoProducts {
		id, ok := categoryIDs[p.Category]
		if !ok {
			c, err := stores.Categories.Ensure(ctx, p.Category)
			if err != nil {
				return sum, fmt.Errorf("ensure category %s: %w", p.Category, err)
			}
			id = c.ID
			categoryIDs[p.Category] = id
			sum.Categories++
		}
		catID := id
		if _, err := stores.Products.UpsertByName(ctx, productrepo.CreateInput{
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Stock:       p.Stock,
			CategoryID:  &catID,
		}, p.Image); err != nil {
			return sum, fmt.Errorf("upsert product %s: %w", p.Name, err)
		}
		sum.Products++
	}

	logger.Info("seed: applied", zap.Int("categories", sum.Categories), zap.Int("products", sum.Products))
	return sum, nil
}

func ensureAdmin(ctx context.Context, users userStore, admin Admin) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(admin.Email))
	if email == "" || admin.Password == "" {
		return false, errors.New("admin email and password are required")
	}
	name := admin.Name
	if name == "" {
		name = "Admin"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}
	_, err = users.Create(ctx, domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Address:      "-",
		City:         "-",
		Phone:        "-",
		Role:         domain.RoleAdmin,
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
