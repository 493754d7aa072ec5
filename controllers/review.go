package controllers

import (
	"net/http"
	"strconv"

	"go-storefront/apperrors"
	"go-storefront/models"
	"go-storefront/services"
	"go-storefront/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReviewController serves both token redemption and signed-in reviews
type ReviewController struct {
	tokens   *services.ReviewTokenService
	reviews  *services.ReviewService
	products *services.ProductService
}

func NewReviewController(tokens *services.ReviewTokenService, reviews *services.ReviewService, products *services.ProductService) *ReviewController {
	return &ReviewController{tokens: tokens, reviews: reviews, products: products}
}

// reviewRequest is the JSON form of a review submission
type reviewRequest struct {
	Token        string   `json:"token"`
	ProductID    string   `json:"productId"`
	OrderID      string   `json:"orderId"`
	Rating       int      `json:"rating"`
	Comment      string   `json:"comment"`
	ReviewerName string   `json:"reviewerName"`
	Images       []string `json:"images"`
}

// readReview decodes a JSON or multipart review. Uploaded images are stored first.
func (rc *ReviewController) readReview(r *http.Request) (*reviewRequest, error) {
	if !isMultipart(r) {
		var req reviewRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	f, err := parseForm(r)
	if err != nil {
		return nil, err
	}
	req := &reviewRequest{
		Token:        f.value("token"),
		ProductID:    f.value("productId"),
		OrderID:      f.value("orderId"),
		Comment:      f.value("comment"),
		ReviewerName: f.value("reviewerName"),
	}
	if req.ReviewerName == "" {
		req.ReviewerName = f.value("name")
	}
	if rating := f.value("rating"); rating != "" {
		if req.Rating, err = strconv.Atoi(rating); err != nil {
			return nil, apperrors.BadRequest("Rating must be a whole number between 1 and 5")
		}
	}

	files, closeFiles, err := f.mediaFiles("images")
	if err != nil {
		return nil, err
	}
	defer closeFiles()
	media, err := rc.products.UploadMedia(r.Context(), files, "reviews")
	if err != nil {
		return nil, err
	}
	for _, m := range media {
		req.Images = append(req.Images, m.URL)
	}
	return req, nil
}

// VerifyToken resolves a review link for the review form
func (rc *ReviewController) VerifyToken(w http.ResponseWriter, r *http.Request) {
	info, err := rc.tokens.Verify(r.Context(), r.URL.Query().Get("token"), customerID(r))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"valid": true, "data": info})
}

// VerifyOwnedToken is VerifyToken for a signed-in customer who must own the token
func (rc *ReviewController) VerifyOwnedToken(w http.ResponseWriter, r *http.Request) {
	rc.VerifyToken(w, r)
}

// SubmitTokenReview redeems a review link
func (rc *ReviewController) SubmitTokenReview(w http.ResponseWriter, r *http.Request) {
	req, err := rc.readReview(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	productID, err := parseObjectID(req.ProductID, "productId")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	review, err := rc.tokens.Redeem(r.Context(), services.RedeemInput{
		Token:        req.Token,
		ProductID:    productID,
		Rating:       req.Rating,
		Comment:      req.Comment,
		ReviewerName: req.ReviewerName,
		Images:       req.Images,
		ActingUserID: customerID(r),
	})
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"message": "Thank you! Your review will appear once approved.",
		"review":  review,
	})
}

// TokenStatus lists the purchases a user has already reviewed by link
func (rc *ReviewController) TokenStatus(w http.ResponseWriter, r *http.Request) {
	reviewed, err := rc.tokens.ReviewedByUser(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"reviewed": reviewed})
}

// SubmitInternalReview stores a review from the customer's order history
func (rc *ReviewController) SubmitInternalReview(w http.ResponseWriter, r *http.Request) {
	req, err := rc.readReview(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	orderID, err := parseObjectID(req.OrderID, "orderId")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	productID, err := parseObjectID(req.ProductID, "productId")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	review, err := rc.reviews.SubmitInternal(r.Context(), services.InternalReviewInput{
		UserID:       customerID(r),
		OrderID:      deref(orderID),
		ProductID:    deref(productID),
		Rating:       req.Rating,
		Comment:      req.Comment,
		ReviewerName: req.ReviewerName,
		Images:       req.Images,
	})
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusCreated, map[string]any{"message": "Review submitted", "review": review})
}

// ReviewedProducts returns the product ids already reviewed in one order
func (rc *ReviewController) ReviewedProducts(w http.ResponseWriter, r *http.Request) {
	orderID, err := primitive.ObjectIDFromHex(r.URL.Query().Get("orderId"))
	if err != nil {
		utils.WriteError(w, apperrors.BadRequest("Invalid orderId"))
		return
	}
	ids, err := rc.reviews.ReviewedInOrder(r.Context(), customerID(r), orderID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"reviewedProductIds": ids})
}

func (rc *ReviewController) ProductReviews(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "productId")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	reviews, err := rc.reviews.ListApproved(r.Context(), productID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"reviews": reviews})
}

func (rc *ReviewController) GetReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := rc.reviews.ListAll(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"reviews": reviews})
}

type moderateRequest struct {
	Status models.ReviewStatus `json:"status" validate:"required"`
}

func (rc *ReviewController) ModerateReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req moderateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	review, err := rc.reviews.Moderate(r.Context(), id, req.Status)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"review": review})
}

type replyRequest struct {
	Reply string `json:"reply" validate:"required"`
}

func (rc *ReviewController) ReplyToReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req replyRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	review, err := rc.reviews.Reply(r.Context(), id, req.Reply)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"review": review})
}
