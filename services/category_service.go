package services

import (
	"context"
	"errors"
	"strings"

	"go-storefront/apperrors"
	"go-storefront/logger"
	"go-storefront/models"
	"go-storefront/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CategoryInput creates a category
type CategoryInput struct {
	Name   string
	Parent *primitive.ObjectID
	Image  string
}

// CategoryUpdate changes a category. ParentSet with a nil Parent moves it to the root.
type CategoryUpdate struct {
	Name      *string
	Image     *string
	ParentSet bool
	Parent    *primitive.ObjectID
}

// DeleteResult reports what a category delete removed
type DeleteResult struct {
	Categories int64 `json:"deletedCategories"`
	Products   int64 `json:"deletedProducts"`
}

type CategoryService struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
	log        *logger.Logger
}

func NewCategoryService(store *repository.Store, log *logger.Logger) *CategoryService {
	return &CategoryService{
		categories: store.Categories,
		products:   store.Products,
		log:        log.WithComponent("category_service"),
	}
}

func duplicateCategory() error {
	return apperrors.Conflict(apperrors.CodeDuplicateCategory, "A category with this name already exists")
}

func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.BadRequest("Category name is required")
	}
	if in.Parent != nil {
		if _, err := s.categories.GetByID(ctx, *in.Parent); err != nil {
			return nil, notFoundOr(err, apperrors.CodeNotFound, "Parent category not found")
		}
	}

	c := &models.Category{Name: name, Parent: in.Parent, Image: in.Image}
	if err := s.categories.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, duplicateCategory()
		}
		return nil, apperrors.Internal("Failed to create category", err)
	}
	return c, nil
}

// Tree returns every category nested under its parent. Orphans are treated as roots.
func (s *CategoryService) Tree(ctx context.Context) ([]*models.CategoryNode, error) {
	all, err := s.categories.List(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to list categories", err)
	}

	nodes := make(map[primitive.ObjectID]*models.CategoryNode, len(all))
	for _, c := range all {
		nodes[c.ID] = &models.CategoryNode{Category: c, Children: []*models.CategoryNode{}}
	}

	roots := []*models.CategoryNode{}
	for _, c := range all {
		node := nodes[c.ID]
		if c.Parent != nil {
			if parent, ok := nodes[*c.Parent]; ok && *c.Parent != c.ID {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots, nil
}

// Detail returns a category with its own products and each direct child with theirs
func (s *CategoryService) Detail(ctx context.Context, id primitive.ObjectID) (*models.CategoryDetail, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, apperrors.CodeNotFound, "Category not found")
	}

	own, err := s.products.List(ctx, repository.ProductFilter{Category: &c.ID})
	if err != nil {
		return nil, apperrors.Internal("Failed to list products", err)
	}
	children, err := s.categories.ListChildren(ctx, c.ID)
	if err != nil {
		return nil, apperrors.Internal("Failed to list subcategories", err)
	}

	detail := &models.CategoryDetail{Category: *c, ParentProducts: own, Children: []models.CategoryWithProducts{}}
	for _, child := range children {
		childID := child.ID
		products, err := s.products.List(ctx, repository.ProductFilter{Category: &childID})
		if err != nil {
			return nil, apperrors.Internal("Failed to list products", err)
		}
		detail.Children = append(detail.Children, models.CategoryWithProducts{Category: child, Products: products})
	}
	return detail, nil
}

func (s *CategoryService) Update(ctx context.Context, id primitive.ObjectID, in CategoryUpdate) (*models.Category, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, apperrors.CodeNotFound, "Category not found")
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperrors.BadRequest("Category name is required")
		}
		c.Name = name
	}
	if in.Image != nil {
		c.Image = *in.Image
	}
	if in.ParentSet {
		if in.Parent != nil {
			if _, err := s.categories.GetByID(ctx, *in.Parent); err != nil {
				return nil, notFoundOr(err, apperrors.CodeNotFound, "Parent category not found")
			}
			subtree, err := s.subtree(ctx, id)
			if err != nil {
				return nil, err
			}
			for _, member := range subtree {
				if member == *in.Parent {
					return nil, apperrors.Validation(apperrors.CodeCategoryCycle,
						"A category cannot be moved under itself or one of its subcategories")
				}
			}
		}
		c.Parent = in.Parent
	}

	if err := s.categories.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, duplicateCategory()
		}
		return nil, notFoundOr(err, apperrors.CodeNotFound, "Category not found")
	}
	return c, nil
}

// subtree returns root and every descendant, breadth first
func (s *CategoryService) subtree(ctx context.Context, root primitive.ObjectID) ([]primitive.ObjectID, error) {
	seen := map[primitive.ObjectID]bool{root: true}
	ids := []primitive.ObjectID{root}
	for i := 0; i < len(ids); i++ {
		children, err := s.categories.ListChildren(ctx, ids[i])
		if err != nil {
			return nil, apperrors.Internal("Failed to list subcategories", err)
		}
		for _, child := range children {
			if !seen[child.ID] {
				seen[child.ID] = true
				ids = append(ids, child.ID)
			}
		}
	}
	return ids, nil
}

// Delete removes the category, all of its descendants and every product filed under any of them
func (s *CategoryService) Delete(ctx context.Context, id primitive.ObjectID) (*DeleteResult, error) {
	if _, err := s.categories.GetByID(ctx, id); err != nil {
		return nil, notFoundOr(err, apperrors.CodeNotFound, "Category not found")
	}

	ids, err := s.subtree(ctx, id)
	if err != nil {
		return nil, err
	}

	deletedCategories, err := s.categories.DeleteMany(ctx, ids)
	if err != nil {
		return nil, apperrors.Internal("Failed to delete categories", err)
	}
	deletedProducts, err := s.products.DeleteByCategories(ctx, ids)
	if err != nil {
		return nil, apperrors.Internal("Failed to delete category products", err)
	}

	s.log.Info("Category subtree deleted", "category_id", id.Hex(),
		"categories", deletedCategories, "products", deletedProducts)
	return &DeleteResult{Categories: deletedCategories, Products: deletedProducts}, nil
}

// ListByViews lists categories, most viewed first
func (s *CategoryService) ListByViews(ctx context.Context) ([]models.Category, error) {
	categories, err := s.categories.ListByViews(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to list categories", err)
	}
	return categories, nil
}
