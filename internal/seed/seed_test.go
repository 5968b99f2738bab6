package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
	productrepo "storefront/internal/repository/product"
)

type memoryUsers struct {
	byEmail map[string]domain.User
}

func (m *memoryUsers) Create(_ context.Context, u domain.User) (*domain.User, error) {
	if _, ok := m.byEmail[u.Email]; ok {
		return nil, domain.ErrAlreadyExists
	}
	u.ID = "u-" + u.Email
	m.byEmail[u.Email] = u
	return &u, nil
}

type memoryCategories struct {
	calls int
}

func (m *memoryCategories) Ensure(_ context.Context, name string) (*domain.Category, error) {
	m.calls++
	return &domain.Category{ID: "cat-" + name, Name: name}, nil
}

type memoryProducts struct {
	byName map[string]productrepo.CreateInput
}

func (m *memoryProducts) UpsertByName(_ context.Context, in productrepo.CreateInput, _ string) (*domain.Product, error) {
	m.byName[in.Name] = in
	return &domain.Product{ID: "p-" + in.Name, Name: in.Name}, nil
}

func TestApply_IsIdempotent(t *testing.T) {
	users := &memoryUsers{byEmail: map[string]domain.User{}}
	cats := &memoryCategories{}
	products := &memoryProducts{byName: map[string]productrepo.CreateInput{}}
	stores := Stores{Users: users, Categories: cats, Products: products}
	admin := Admin{Email: " Admin@Shop.test ", Password: "Admin123"}

	sum, err := Apply(context.Background(), stores, admin, nil)
	require.NoError(t, err)
	assert.True(t, sum.AdminCreated)
	assert.Equal(t, 4, sum.Categories)
	assert.Equal(t, len(demoProducts), sum.Products)

	stored, ok := users.byEmail["admin@shop.test"]
	require.True(t, ok)
	assert.Equal(t, domain.RoleAdmin, stored.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("Admin123")))

	sum, err = Apply(context.Background(), stores, admin, nil)
	require.NoError(t, err)
	assert.False(t, sum.AdminCreated)
	assert.Len(t, users.byEmail, 1)
	assert.Len(t, products.byName, len(demoProducts))

	phone := products.byName["Aurora X1"]
	require.NotNil(t, phone.CategoryID)
	assert.Equal(t, "cat-Phones", *phone.CategoryID)
}

func TestApply_RequiresAdminCredentials(t *testing.T) {
	stores := Stores{
		Users:      &memoryUsers{byEmail: map[string]domain.User{}},
		Categories: &memoryCategories{},
		Products:   &memoryProducts{byName: map[string]productrepo.CreateInput{}},
	}
	_, err := Apply(context.Background(), stores, Admin{Email: "admin@shop.test"}, nil)
	assert.Error(t, err)
}
