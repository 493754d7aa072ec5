package services

import (
	"context"
	"io"
	"strings"

	"go-storefront/apperrors"
	"go-storefront/logger"
	"go-storefront/models"
	"go-storefront/repository"
	"go-storefront/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MediaFile is one uploaded file waiting to be stored
type MediaFile struct {
	Content     io.Reader
	ContentType string
}

// ProductInput creates a product
type ProductInput struct {
	Name            string              `json:"name" validate:"required"`
	Description     string              `json:"description"`
	Color           string              `json:"color"`
	Category        *primitive.ObjectID `json:"category"`
	Price           float64             `json:"price" validate:"gt=0"`
	SalePrice       float64             `json:"salePrice" validate:"gte=0"`
	DiscountPercent float64             `json:"discountPercent" validate:"gte=0,lte=100"`
	Quantity        int                 `json:"quantity" validate:"gte=0"`
	Featured        bool                `json:"featured"`
	FreeDelivery    bool                `json:"freeDelivery"`
}

type ProductService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	uploader   storage.Uploader
	log        *logger.Logger
}

func NewProductService(store *repository.Store, uploader storage.Uploader, log *logger.Logger) *ProductService {
	return &ProductService{
		products:   store.Products,
		categories: store.Categories,
		uploader:   uploader,
		log:        log.WithComponent("product_service"),
	}
}

// UploadMedia stores files under folder in the order given
func (s *ProductService) UploadMedia(ctx context.Context, files []MediaFile, folder string) ([]models.Media, error) {
	media := make([]models.Media, 0, len(files))
	for _, f := range files {
		url, err := s.uploader.Upload(ctx, f.Content, f.ContentType, folder)
		if err != nil {
			return nil, apperrors.External(apperrors.CodeUploadFailed, "Failed to upload media", err)
		}
		media = append(media, models.Media{URL: url, Type: storage.MediaType(f.ContentType)})
	}
	return media, nil
}

func (s *ProductService) checkCategory(ctx context.Context, id *primitive.ObjectID) error {
	if id == nil {
		return nil
	}
	if _, err := s.categories.GetByID(ctx, *id); err != nil {
		return notFoundOr(err, apperrors.CodeNotFound, "Category not found")
	}
	return nil
}

func validatePricing(price, salePrice, discountPercent float64) error {
	switch {
	case price <= 0:
		return apperrors.BadRequest("Price must be greater than 0")
	case salePrice < 0:
		return apperrors.BadRequest("Sale price cannot be negative")
	case discountPercent < 0 || discountPercent > 100:
		return apperrors.BadRequest("Discount percent must be between 0 and 100")
	}
	return nil
}

func (s *ProductService) Create(ctx context.Context, in ProductInput, files []MediaFile) (*models.Product, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.BadRequest("Product name is required")
	}
	if err := validatePricing(in.Price, in.SalePrice, in.DiscountPercent); err != nil {
		return nil, err
	}
	if in.Quantity < 0 {
		return nil, apperrors.BadRequest("Quantity cannot be negative")
	}
	if err := s.checkCategory(ctx, in.Category); err != nil {
		return nil, err
	}

	media, err := s.UploadMedia(ctx, files, "products")
	if err != nil {
		return nil, err
	}

	p := &models.Product{
		Name:            strings.TrimSpace(in.Name),
		Description:     in.Description,
		Color:           in.Color,
		Category:        in.Category,
		Price:           in.Price,
		SalePrice:       in.SalePrice,
		DiscountPercent: in.DiscountPercent,
		Quantity:        in.Quantity,
		Featured:        in.Featured,
		FreeDelivery:    in.FreeDelivery,
		Media:           media,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, apperrors.Internal("Failed to create product", err)
	}
	s.log.Info("Product created", "product_id", p.ID.Hex(), "media", len(media))
	return p, nil
}

// Update changes the given fields. Uploaded files replace the existing media.
func (s *ProductService) Update(ctx context.Context, id primitive.ObjectID, u models.ProductUpdate, files []MediaFile) (*models.Product, error) {
	current, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, apperrors.CodeProductNotFound, "Product not found")
	}

	next := *current
	u.Apply(&next)
	if strings.TrimSpace(next.Name) == "" {
		return nil, apperrors.BadRequest("Product name is required")
	}
	if err := validatePricing(next.Price, next.SalePrice, next.DiscountPercent); err != nil {
		return nil, err
	}
	if next.Quantity < 0 {
		return nil, apperrors.BadRequest("Quantity cannot be negative")
	}
	if err := s.checkCategory(ctx, u.Category); err != nil {
		return nil, err
	}

	if len(files) > 0 {
		media, err := s.UploadMedia(ctx, files, "products")
		if err != nil {
			return nil, err
		}
		u.Media = media
	}

	updated, err := s.products.Update(ctx, id, u)
	if err != nil {
		return nil, notFoundOr(err, apperrors.CodeProductNotFound, "Product not found")
	}
	return updated, nil
}

func (s *ProductService) Get(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, apperrors.CodeProductNotFound, "Product not found")
	}
	return p, nil
}

func (s *ProductService) list(ctx context.Context, filter repository.ProductFilter) ([]models.Product, error) {
	products, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal("Failed to list products", err)
	}
	return products, nil
}

func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	return s.list(ctx, repository.ProductFilter{})
}

// Search matches q case-insensitively against name and description
func (s *ProductService) Search(ctx context.Context, q string) ([]models.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperrors.BadRequest("Search query is required")
	}
	return s.list(ctx, repository.ProductFilter{Search: q})
}

func (s *ProductService) ListByCategory(ctx context.Context, categoryID primitive.ObjectID) ([]models.Product, error) {
	return s.list(ctx, repository.ProductFilter{Category: &categoryID})
}

func (s *ProductService) ListFeatured(ctx context.Context) ([]models.Product, error) {
	featured := true
	return s.list(ctx, repository.ProductFilter{Featured: &featured})
}

func (s *ProductService) ToggleFeatured(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, apperrors.CodeProductNotFound, "Product not found")
	}
	if err := s.products.SetFeatured(ctx, id, !p.Featured); err != nil {
		return nil, notFoundOr(err, apperrors.CodeProductNotFound, "Product not found")
	}
	p.Featured = !p.Featured
	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return notFoundOr(err, apperrors.CodeProductNotFound, "Product not found")
	}
	return nil
}
