package services

import (
	"context"
	"errors"
	"strings"

	"go-storefront/apperrors"
	"go-storefront/logger"
	"go-storefront/models"
	"go-storefront/repository"
	"go-storefront/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TokenInfo is what a valid review token resolves to
type TokenInfo struct {
	ProductID    primitive.ObjectID `json:"productId"`
	ProductName  string             `json:"productName"`
	UserID       string             `json:"userId"`
	OrderID      primitive.ObjectID `json:"orderId"`
	ReviewerName string             `json:"reviewerName"`
}

// RedeemInput is a review submitted with a token
type RedeemInput struct {
	Token        string
	ProductID    *primitive.ObjectID
	Rating       int
	Comment      string
	ReviewerName string
	Images       []string
	// ActingUserID is the signed-in customer, empty for anonymous redemption.
	ActingUserID string
}

// ReviewedPair identifies one reviewed purchase
type ReviewedPair struct {
	ProductID string `json:"productId"`
	OrderID   string `json:"orderId"`
}

type ReviewTokenService struct {
	tokens        repository.ReviewTokenRepository
	reviews       repository.ReviewRepository
	orders        repository.OrderRepository
	products      repository.ProductRepository
	storefrontURL string
	log           *logger.Logger
}

func NewReviewTokenService(store *repository.Store, storefrontURL string, log *logger.Logger) *ReviewTokenService {
	return &ReviewTokenService{
		tokens:        store.ReviewTokens,
		reviews:       store.Reviews,
		orders:        store.Orders,
		products:      store.Products,
		storefrontURL: strings.TrimRight(storefrontURL, "/"),
		log:           log.WithComponent("review_token_service"),
	}
}

// RedemptionURL is the storefront link that redeems token
func (s *ReviewTokenService) RedemptionURL(token string) string {
	return s.storefrontURL + "/review?token=" + token
}

// IssueForOrder creates one token per distinct product of the order that does not have one yet
// and returns links for the tokens created by this call. Calling it again issues nothing new
// but attaches any token left off the order by an earlier failed call.
func (s *ReviewTokenService) IssueForOrder(ctx context.Context, order *models.Order) ([]utils.ReviewLink, error) {
	names := make(map[primitive.ObjectID]string, len(order.Cart))
	for _, line := range order.Cart {
		names[line.ProductID] = line.Name
	}

	links := []utils.ReviewLink{}
	var issued, attach []primitive.ObjectID
	for _, productID := range order.DistinctProductIDs() {
		key := models.ReviewKey{UserID: order.UserID, ProductID: productID, OrderID: order.ID}

		existing, err := s.tokens.GetByKey(ctx, key)
		if err == nil {
			attach = append(attach, existing.ID)
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return links, apperrors.Internal("Failed to look up review token", err)
		}

		token := &models.ReviewToken{
			Token:        uuid.NewString(),
			UserID:       order.UserID,
			ProductID:    productID,
			OrderID:      order.ID,
			ReviewerName: order.UserDetails.Name,
		}
		if err := s.tokens.Create(ctx, token); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				// A concurrent issuer created it first.
				if existing, err := s.tokens.GetByKey(ctx, key); err == nil {
					attach = append(attach, existing.ID)
				}
				continue
			}
			return links, apperrors.Internal("Failed to create review token", err)
		}

		issued = append(issued, token.ID)
		attach = append(attach, token.ID)
		name := names[productID]
		if name == "" {
			name = "Product"
		}
		links = append(links, utils.ReviewLink{ProductName: name, URL: s.RedemptionURL(token.Token)})
	}

	if len(attach) > 0 {
		if err := s.orders.AddReviewTokens(ctx, order.ID, attach...); err != nil {
			return links, apperrors.Internal("Failed to attach review tokens to order", err)
		}
	}
	s.log.Info("Review tokens issued", "order_id", order.ID.Hex(), "issued", len(issued))
	return links, nil
}

// Verify checks that token can still be redeemed
func (s *ReviewTokenService) Verify(ctx context.Context, token, actingUserID string) (*TokenInfo, error) {
	tok, err := s.tokens.GetByToken(ctx, strings.TrimSpace(token))
	if errors.Is(err, repository.ErrNotFound) || (err == nil && tok.Used) {
		return nil, apperrors.Validation(apperrors.CodeInvalidToken, "Invalid or expired token")
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to look up review token", err)
	}

	if err := s.checkNotReviewed(ctx, tok.Key(), apperrors.State(apperrors.CodeDuplicateReview,
		"This product has already been reviewed for this order")); err != nil {
		return nil, err
	}
	if err := checkOwner(tok, actingUserID); err != nil {
		return nil, err
	}

	info := &TokenInfo{
		ProductID:    tok.ProductID,
		UserID:       tok.UserID,
		OrderID:      tok.OrderID,
		ReviewerName: tok.ReviewerName,
	}
	if p, err := s.products.GetByID(ctx, tok.ProductID); err == nil {
		info.ProductName = p.Name
	}
	return info, nil
}

func checkOwner(tok *models.ReviewToken, actingUserID string) error {
	if actingUserID != "" && actingUserID != tok.UserID {
		return apperrors.Forbidden(apperrors.CodeTokenNotOwned, "This review link belongs to another account")
	}
	return nil
}

func (s *ReviewTokenService) checkNotReviewed(ctx context.Context, key models.ReviewKey, dup error) error {
	_, err := s.reviews.GetByKey(ctx, key)
	if err == nil {
		return dup
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return apperrors.Internal("Failed to look up review", err)
	}
	return nil
}

// Redeem stores a review for the token's purchase and consumes the token.
// Of any number of concurrent redemptions of one token exactly one succeeds.
func (s *ReviewTokenService) Redeem(ctx context.Context, in RedeemInput) (*models.Review, error) {
	if err := validateReviewBody(in.Rating, in.Comment); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Token) == "" {
		return nil, apperrors.Validation(apperrors.CodeInvalidToken, "Token is required")
	}

	tok, err := s.tokens.GetByToken(ctx, strings.TrimSpace(in.Token))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Validation(apperrors.CodeInvalidToken, "Invalid token")
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to look up review token", err)
	}
	if tok.Used {
		return nil, apperrors.Validation(apperrors.CodeTokenAlreadyUsed, "This review link has already been used")
	}
	if in.ProductID != nil && *in.ProductID != tok.ProductID {
		return nil, apperrors.Validation(apperrors.CodeInvalidToken, "Token does not match this product")
	}
	if err := checkOwner(tok, in.ActingUserID); err != nil {
		return nil, err
	}

	// An existing review for the purchase is caught by the unique key on insert,
	// so a redemption racing a winner reports the token as used.
	reviewerName := strings.TrimSpace(in.ReviewerName)
	if reviewerName == "" {
		reviewerName = tok.ReviewerName
	}
	review := &models.Review{
		ProductID:    tok.ProductID,
		UserID:       tok.UserID,
		OrderID:      tok.OrderID,
		Rating:       in.Rating,
		Comment:      strings.TrimSpace(in.Comment),
		ReviewerName: reviewerName,
		Images:       in.Images,
		Status:       models.ReviewPending,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Validation(apperrors.CodeTokenAlreadyUsed, "This review link has already been used")
		}
		return nil, apperrors.Internal("Failed to save review", err)
	}

	claimed, err := s.tokens.MarkUsed(ctx, tok.ID)
	if err != nil || !claimed {
		if delErr := s.reviews.Delete(ctx, review.ID); delErr != nil {
			s.log.Error("Failed to remove review after losing token claim",
				"review_id", review.ID.Hex(), "token_id", tok.ID.Hex(), "error", delErr)
		}
		if err != nil {
			return nil, apperrors.Internal("Failed to consume review token", err)
		}
		return nil, apperrors.Validation(apperrors.CodeTokenAlreadyUsed, "This review link has already been used")
	}

	s.log.Info("Review submitted via token", "review_id", review.ID.Hex(), "product_id", review.ProductID.Hex())
	return review, nil
}

// ReviewedByUser lists the purchases whose tokens userID has used
func (s *ReviewTokenService) ReviewedByUser(ctx context.Context, userID string) ([]ReviewedPair, error) {
	if userID == "" {
		return nil, apperrors.BadRequest("Missing userId")
	}
	tokens, err := s.tokens.ListUsedByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to list reviewed products", err)
	}
	out := make([]ReviewedPair, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, ReviewedPair{ProductID: t.ProductID.Hex(), OrderID: t.OrderID.Hex()})
	}
	return out, nil
}

// TokensForOrders loads the review tokens referenced by each order
func (s *ReviewTokenService) TokensForOrders(ctx context.Context, orders []models.Order) ([]models.OrderWithTokens, error) {
	out := make([]models.OrderWithTokens, 0, len(orders))
	for _, o := range orders {
		tokens, err := s.tokens.ListByIDs(ctx, o.ReviewTokens)
		if err != nil {
			return nil, apperrors.Internal("Failed to load review tokens", err)
		}
		out = append(out, models.OrderWithTokens{Order: o, ReviewTokens: tokens})
	}
	return out, nil
}

func validateReviewBody(rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return apperrors.BadRequest("Rating must be between 1 and 5")
	}
	if strings.TrimSpace(comment) == "" {
		return apperrors.BadRequest("Comment is required")
	}
	return nil
}
