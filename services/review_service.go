package services

import (
	"context"
	"errors"
	"math"
	"strings"

	"go-storefront/apperrors"
	"go-storefront/logger"
	"go-storefront/models"
	"go-storefront/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InternalReviewInput is a review posted by a signed-in customer from their order history
type InternalReviewInput struct {
	UserID       string
	OrderID      primitive.ObjectID
	ProductID    primitive.ObjectID
	Rating       int
	Comment      string
	ReviewerName string
	Images       []string
}

type ReviewService struct {
	reviews  repository.ReviewRepository
	tokens   repository.ReviewTokenRepository
	orders   repository.OrderRepository
	products repository.ProductRepository
	log      *logger.Logger
}

func NewReviewService(store *repository.Store, log *logger.Logger) *ReviewService {
	return &ReviewService{
		reviews:  store.Reviews,
		tokens:   store.ReviewTokens,
		orders:   store.Orders,
		products: store.Products,
		log:      log.WithComponent("review_service"),
	}
}

func duplicateReview() *apperrors.AppError {
	return apperrors.Conflict(apperrors.CodeDuplicateReview, "You have already reviewed this product for this order")
}

// SubmitInternal stores an approved review for a product of one of the user's own orders
func (s *ReviewService) SubmitInternal(ctx context.Context, in InternalReviewInput) (*models.Review, error) {
	if in.UserID == "" {
		return nil, apperrors.Unauthorized("Sign in to leave a review")
	}
	if in.OrderID.IsZero() || in.ProductID.IsZero() {
		return nil, apperrors.BadRequest("orderId and productId are required")
	}
	if err := validateReviewBody(in.Rating, in.Comment); err != nil {
		return nil, err
	}

	order, err := s.orders.GetByID(ctx, in.OrderID)
	if err != nil {
		return nil, notFoundOr(err, apperrors.CodeOrderNotFound, "Order not found")
	}
	if order.UserID != in.UserID {
		return nil, apperrors.Forbidden(apperrors.CodeForbidden, "This order belongs to another account")
	}
	if !order.HasProduct(in.ProductID) {
		return nil, apperrors.BadRequest("This product is not part of the order")
	}

	key := models.ReviewKey{UserID: in.UserID, ProductID: in.ProductID, OrderID: in.OrderID}
	if _, err := s.reviews.GetByKey(ctx, key); err == nil {
		return nil, duplicateReview()
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal("Failed to look up review", err)
	}

	review := &models.Review{
		ProductID:    in.ProductID,
		UserID:       in.UserID,
		OrderID:      in.OrderID,
		Rating:       in.Rating,
		Comment:      strings.TrimSpace(in.Comment),
		ReviewerName: strings.TrimSpace(in.ReviewerName),
		Images:       in.Images,
		Status:       models.ReviewApproved,
		IsInternal:   true,
	}
	if review.ReviewerName == "" {
		review.ReviewerName = order.UserDetails.Name
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, duplicateReview()
		}
		return nil, apperrors.Internal("Failed to save review", err)
	}

	if _, err := s.tokens.MarkUsedByKey(ctx, key); err != nil {
		s.log.Warn("Failed to retire review token after internal review", "order_id", in.OrderID.Hex(),
			"product_id", in.ProductID.Hex(), "error", err)
	}
	s.refreshRating(ctx, in.ProductID)
	return review, nil
}

// Moderate sets a review's status and refreshes the product's average rating
func (s *ReviewService) Moderate(ctx context.Context, id primitive.ObjectID, status models.ReviewStatus) (*models.Review, error) {
	if !status.Valid() {
		return nil, apperrors.BadRequest("Status must be one of pending, approved, rejected")
	}
	review, err := s.reviews.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, notFoundOr(err, apperrors.CodeNotFound, "Review not found")
	}
	s.refreshRating(ctx, review.ProductID)
	return review, nil
}

// Reply sets the admin's public reply on a review
func (s *ReviewService) Reply(ctx context.Context, id primitive.ObjectID, reply string) (*models.Review, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, apperrors.BadRequest("Reply is required")
	}
	review, err := s.reviews.SetAdminReply(ctx, id, reply)
	if err != nil {
		return nil, notFoundOr(err, apperrors.CodeNotFound, "Review not found")
	}
	return review, nil
}

func (s *ReviewService) ListAll(ctx context.Context) ([]models.Review, error) {
	reviews, err := s.reviews.List(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to list reviews", err)
	}
	return reviews, nil
}

// ListApproved lists the reviews shown on a product page
func (s *ReviewService) ListApproved(ctx context.Context, productID primitive.ObjectID) ([]models.Review, error) {
	reviews, err := s.reviews.ListByProduct(ctx, productID, models.ReviewApproved)
	if err != nil {
		return nil, apperrors.Internal("Failed to list reviews", err)
	}
	return reviews, nil
}

// ReviewedInOrder returns the ids of products userID already reviewed for orderID
func (s *ReviewService) ReviewedInOrder(ctx context.Context, userID string, orderID primitive.ObjectID) ([]string, error) {
	reviews, err := s.reviews.ListByUserOrder(ctx, userID, orderID)
	if err != nil {
		return nil, apperrors.Internal("Failed to list reviews", err)
	}
	ids := make([]string, 0, len(reviews))
	for _, r := range reviews {
		ids = append(ids, r.ProductID.Hex())
	}
	return ids, nil
}

func (s *ReviewService) refreshRating(ctx context.Context, productID primitive.ObjectID) {
	avg, _, err := s.reviews.AverageRating(ctx, productID)
	if err == nil {
		err = s.products.SetAvgRating(ctx, productID, math.Round(avg*10)/10)
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.log.Warn("Failed to refresh product rating", "product_id", productID.Hex(), "error", err)
	}
}
