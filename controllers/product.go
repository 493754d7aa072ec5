package controllers

import (
	"net/http"

	"go-storefront/apperrors"
	"go-storefront/models"
	"go-storefront/services"
	"go-storefront/utils"
)

// ProductController handles product-related requests
type ProductController struct {
	products *services.ProductService
	views    *services.ViewService
}

// NewProductController creates a new ProductController
func NewProductController(products *services.ProductService, views *services.ViewService) *ProductController {
	return &ProductController{products: products, views: views}
}

// productInputFromForm reads the multipart product form
func productInputFromForm(f *form) (services.ProductInput, error) {
	category, err := parseObjectID(f.value("category"), "category")
	if err != nil {
		return services.ProductInput{}, err
	}
	in := services.ProductInput{
		Name:            f.value("name"),
		Description:     f.value("description"),
		Color:           f.value("color"),
		Category:        category,
		Price:           deref(f.floatPtr("price")),
		SalePrice:       deref(f.floatPtr("salePrice")),
		DiscountPercent: deref(f.floatPtr("discountPercent")),
		Quantity:        deref(f.intPtr("quantity")),
		Featured:        deref(f.boolPtr("featured")),
		FreeDelivery:    deref(f.boolPtr("freeDelivery")),
	}
	return in, f.err
}

// productUpdateFromForm keeps only the fields present in the form
func productUpdateFromForm(f *form) (models.ProductUpdate, error) {
	u := models.ProductUpdate{
		Name:            f.valuePtr("name"),
		Description:     f.valuePtr("description"),
		Color:           f.valuePtr("color"),
		Price:           f.floatPtr("price"),
		SalePrice:       f.floatPtr("salePrice"),
		DiscountPercent: f.floatPtr("discountPercent"),
		Quantity:        f.intPtr("quantity"),
		Featured:        f.boolPtr("featured"),
		FreeDelivery:    f.boolPtr("freeDelivery"),
	}
	if f.value("category") != "" {
		category, err := parseObjectID(f.value("category"), "category")
		if err != nil {
			return u, err
		}
		u.Category = category
	}
	return u, f.err
}

// CreateProduct handles adding a new product (Admin only). Media comes in as "media" files.
func (pc *ProductController) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var (
		in    services.ProductInput
		files []services.MediaFile
	)
	if isMultipart(r) {
		f, err := parseForm(r)
		if err != nil {
			utils.WriteError(w, err)
			return
		}
		if in, err = productInputFromForm(f); err != nil {
			utils.WriteError(w, err)
			return
		}
		var closeFiles func()
		if files, closeFiles, err = f.mediaFiles("media"); err != nil {
			utils.WriteError(w, err)
			return
		}
		defer closeFiles()
	} else if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}

	product, err := pc.products.Create(r.Context(), in, files)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusCreated, map[string]any{"product": product})
}

// UpdateProduct changes the submitted fields. New media replaces the old.
func (pc *ProductController) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	var (
		u     models.ProductUpdate
		files []services.MediaFile
	)
	if isMultipart(r) {
		f, err := parseForm(r)
		if err != nil {
			utils.WriteError(w, err)
			return
		}
		if u, err = productUpdateFromForm(f); err != nil {
			utils.WriteError(w, err)
			return
		}
		var closeFiles func()
		if files, closeFiles, err = f.mediaFiles("media"); err != nil {
			utils.WriteError(w, err)
			return
		}
		defer closeFiles()
	} else if err := utils.DecodeJSON(r, &u); err != nil {
		utils.WriteError(w, err)
		return
	}

	product, err := pc.products.Update(r.Context(), id, u, files)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"product": product})
}

// GetProducts retrieves all products
func (pc *ProductController) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := pc.products.List(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"products": products})
}

func (pc *ProductController) SearchProducts(w http.ResponseWriter, r *http.Request) {
	products, err := pc.products.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"products": products})
}

func (pc *ProductController) FeaturedProducts(w http.ResponseWriter, r *http.Request) {
	products, err := pc.products.ListFeatured(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"products": products})
}

func (pc *ProductController) ProductsByCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	products, err := pc.products.ListByCategory(r.Context(), id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"products": products})
}

// GetProduct retrieves a single product by ID
func (pc *ProductController) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	product, err := pc.products.Get(r.Context(), id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"product": product})
}

func (pc *ProductController) ToggleFeatured(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	product, err := pc.products.ToggleFeatured(r.Context(), id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"product": product})
}

// DeleteProduct deletes a product by ID (Admin only)
func (pc *ProductController) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := pc.products.Delete(r.Context(), id); err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"message": "Product deleted"})
}

type productViewRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

// RecordProductView counts a signed-in customer's first view of a product
func (pc *ProductController) RecordProductView(w http.ResponseWriter, r *http.Request) {
	var req productViewRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	productID, err := parseObjectID(req.ProductID, "productId")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if productID == nil {
		utils.WriteError(w, apperrors.BadRequest("productId is required"))
		return
	}

	counted, err := pc.views.RecordProductView(r.Context(), *productID, customerID(r))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"counted": counted})
}
