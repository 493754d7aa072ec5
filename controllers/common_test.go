package controllers

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"go-storefront/apperrors"
	"go-storefront/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func multipartForm(t *testing.T, fields map[string]string) *form {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.True(t, isMultipart(req))
	f, err := parseForm(req)
	require.NoError(t, err)
	return f
}

func TestProductUpdateFromFormKeepsOnlyPresentFields(t *testing.T) {
	f := multipartForm(t, map[string]string{"price": "1999.5", "featured": "false", "name": " Kurta "})

	u, err := productUpdateFromForm(f)
	require.NoError(t, err)
	require.NotNil(t, u.Price)
	assert.Equal(t, 1999.5, *u.Price)
	require.NotNil(t, u.Featured)
	assert.False(t, *u.Featured)
	assert.Equal(t, "Kurta", *u.Name)
	assert.Nil(t, u.Quantity)
	assert.Nil(t, u.Description)
	assert.Nil(t, u.Category)
}

func TestProductFormRejectsBadNumbers(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
	}{
		{"price", map[string]string{"name": "x", "price": "cheap"}},
		{"quantity", map[string]string{"name": "x", "price": "10", "quantity": "2.5"}},
		{"flag", map[string]string{"name": "x", "price": "10", "featured": "maybe"}},
		{"category", map[string]string{"name": "x", "price": "10", "category": "not-an-id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := productInputFromForm(multipartForm(t, tt.fields))
			assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
		})
	}
}

func TestCategoryRequestParent(t *testing.T) {
	parent := primitive.NewObjectID()

	absent := categoryRequest{}
	u, err := absent.toUpdate()
	require.NoError(t, err)
	assert.False(t, u.ParentSet)

	root := categoryRequest{Parent: []byte("null")}
	u, err = root.toUpdate()
	require.NoError(t, err)
	assert.True(t, u.ParentSet)
	assert.Nil(t, u.Parent)

	moved := categoryRequest{Parent: []byte(`"` + parent.Hex() + `"`)}
	u, err = moved.toUpdate()
	require.NoError(t, err)
	require.NotNil(t, u.Parent)
	assert.Equal(t, parent, *u.Parent)

	bad := categoryRequest{Parent: []byte(`42`)}
	_, err = bad.toUpdate()
	assert.Error(t, err)
}

func TestPlaceOrderRequestPrefersCart(t *testing.T) {
	cartLine := models.CartItem{ProductID: primitive.NewObjectID(), Quantity: 1}
	itemLine := models.CartItem{ProductID: primitive.NewObjectID(), Quantity: 2}

	assert.Equal(t, []models.CartItem{itemLine}, placeOrderRequest{Items: []models.CartItem{itemLine}}.lines())
	assert.Equal(t, []models.CartItem{cartLine},
		placeOrderRequest{Cart: []models.CartItem{cartLine}, Items: []models.CartItem{itemLine}}.lines())
	assert.Empty(t, placeOrderRequest{}.lines())
}
