package controllers

import (
	"encoding/json"
	"net/http"

	"go-storefront/apperrors"
	"go-storefront/logger"
	"go-storefront/services"
	"go-storefront/utils"
)

type CategoryController struct {
	categories *services.CategoryService
	products   *services.ProductService
	views      *services.ViewService
}

func NewCategoryController(categories *services.CategoryService, products *services.ProductService, views *services.ViewService) *CategoryController {
	return &CategoryController{categories: categories, products: products, views: views}
}

// categoryRequest is the JSON body for create and update. A present "parent": null moves to the root.
type categoryRequest struct {
	Name   *string         `json:"name"`
	Image  *string         `json:"image"`
	Parent json.RawMessage `json:"parent"`
}

func (req *categoryRequest) toUpdate() (services.CategoryUpdate, error) {
	u := services.CategoryUpdate{Name: req.Name, Image: req.Image}
	if req.Parent == nil {
		return u, nil
	}
	u.ParentSet = true
	var raw *string
	if err := json.Unmarshal(req.Parent, &raw); err != nil {
		return u, apperrors.BadRequest("Invalid parent")
	}
	if raw != nil {
		parent, err := parseObjectID(*raw, "parent")
		if err != nil {
			return u, err
		}
		u.Parent = parent
	}
	return u, nil
}

// readCategory decodes JSON or a multipart form with an optional "image" file
func (cc *CategoryController) readCategory(r *http.Request) (services.CategoryUpdate, error) {
	if !isMultipart(r) {
		var req categoryRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			return services.CategoryUpdate{}, err
		}
		return req.toUpdate()
	}

	f, err := parseForm(r)
	if err != nil {
		return services.CategoryUpdate{}, err
	}
	u := services.CategoryUpdate{Name: f.valuePtr("name"), Image: f.valuePtr("image")}
	if f.has("parent") {
		u.ParentSet = true
		if u.Parent, err = parseObjectID(f.value("parent"), "parent"); err != nil {
			return u, err
		}
	}

	files, closeFiles, err := f.mediaFiles("image")
	if err != nil {
		return u, err
	}
	defer closeFiles()
	if len(files) > 0 {
		media, err := cc.products.UploadMedia(r.Context(), files[:1], "categories")
		if err != nil {
			return u, err
		}
		u.Image = &media[0].URL
	}
	return u, nil
}

func (cc *CategoryController) CreateCategory(w http.ResponseWriter, r *http.Request) {
	u, err := cc.readCategory(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	category, err := cc.categories.Create(r.Context(), services.CategoryInput{
		Name:   deref(u.Name),
		Parent: u.Parent,
		Image:  deref(u.Image),
	})
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusCreated, map[string]any{"category": category})
}

// GetCategories returns the category tree
func (cc *CategoryController) GetCategories(w http.ResponseWriter, r *http.Request) {
	tree, err := cc.categories.Tree(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"categories": tree})
}

// GetCategory returns a category with its products and its children's products
func (cc *CategoryController) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	detail, err := cc.categories.Detail(r.Context(), id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"data": detail})
}

func (cc *CategoryController) CategoryViews(w http.ResponseWriter, r *http.Request) {
	categories, err := cc.categories.ListByViews(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"categories": categories})
}

func (cc *CategoryController) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	u, err := cc.readCategory(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	category, err := cc.categories.Update(r.Context(), id, u)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"category": category})
}

// DeleteCategory removes the whole subtree and its products
func (cc *CategoryController) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	result, err := cc.categories.Delete(r.Context(), id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"message":           "Category deleted",
		"deletedCategories": result.Categories,
		"deletedProducts":   result.Products,
	})
}

// IncrementView counts a visit once per signed-in customer, or once per IP for anonymous visitors
func (cc *CategoryController) IncrementView(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	counted, err := cc.views.RecordCategoryView(r.Context(), id, services.Viewer{
		UserID: customerID(r),
		IP:     logger.ClientIP(r),
	})
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"counted": counted})
}
