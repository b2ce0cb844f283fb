// internal/services/community_service.go
package services

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yecy-cosmetic/store-backend/internal/database"
	"github.com/yecy-cosmetic/store-backend/internal/i18n"
	"github.com/yecy-cosmetic/store-backend/internal/models"
	"github.com/yecy-cosmetic/store-backend/internal/utils"
)

// excerptLength is how much of a comment the admin alert quotes.
const excerptLength = 40

// CommunityService covers the product forum, comment likes, ratings and
// product likes. Only the author may edit a comment; the author or an admin
// may remove it.
type CommunityService struct {
	db       *gorm.DB
	notifier *NotificationService
	lang     string
}

type CommentRequest struct {
	ProductID uuid.UUID  `json:"producto_id" validate:"required"`
	ParentID  *uuid.UUID `json:"comentario_padre_id,omitempty"`
	Text      string     `json:"texto" validate:"required,max=1000"`
}

type UpdateCommentRequest struct {
	Text string `json:"texto" validate:"required,max=1000"`
}

type RatingRequest struct {
	Score int `json:"valor" validate:"required,min=1,max=5"`
}

type CommentFilter struct {
	ProductID *uuid.UUID
	utils.PaginationParams
}

func NewCommunityService(db *gorm.DB, notifier *NotificationService, lang string) *CommunityService {
	return &CommunityService{
		db:       db,
		notifier: notifier,
		lang:     lang,
	}
}

// ListComments returns active top-level comments, newest first, each with
// its active replies in posting order.
func (s *CommunityService) ListComments(ctx context.Context, filter CommentFilter) ([]models.Comment, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("parent_id IS NULL AND active = ?", true)
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count comments: %w", err)
	}

	var comments []models.Comment
	if err := query.
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Where("active = ?", true).Order("created_at")
		}).
		Scopes(utils.Paginate(filter.PaginationParams)).
		Find(&comments).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list comments: %w", err)
	}

	if err := s.decorate(ctx, comments); err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// CreateComment posts a comment or a reply. Admins hear about every new
// comment; the author of the comment being answered hears about the reply.
func (s *CommunityService) CreateComment(ctx context.Context, userID uuid.UUID, req *CommentRequest) (*models.Comment, error) {
	author, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.activeProduct(ctx, req.ProductID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		UserID:    userID,
		ProductID: req.ProductID,
		Text:      req.Text,
		Active:    true,
	}

	var parent *models.Comment
	if req.ParentID != nil {
		parent, err = s.activeComment(ctx, *req.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.ProductID != req.ProductID {
			return nil, ErrNotFound
		}
		// threads are one level deep; answering a reply joins its thread
		root := parent.ID
		if parent.ParentID != nil {
			root = *parent.ParentID
		}
		comment.ParentID = &root
	}

	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	comment.Author = author.FullName()

	logrus.WithFields(logrus.Fields{
		"comment_id": comment.ID,
		"product_id": comment.ProductID,
		"numero":     author.Numero,
	}).Info("Comment created")

	bg := context.WithoutCancel(ctx)
	logDeliveries(s.notifier.Notify(bg, nil,
		i18n.T(s.lang, i18n.KeyMsgNewComment, excerpt(comment.Text)), models.NotificationNewComment), models.NotificationNewComment)
	if parent != nil && parent.UserID != userID {
		var parentAuthor models.User
		if err := s.db.WithContext(bg).First(&parentAuthor, "id = ?", parent.UserID).Error; err != nil {
			logrus.WithError(err).WithField("comment_id", parent.ID).Warn("Reply author lookup failed")
		} else {
			logDeliveries(s.notifier.Notify(bg, &parentAuthor,
				i18n.T(s.lang, i18n.KeyMsgCommentReply), models.NotificationCommentReply), models.NotificationCommentReply)
		}
	}
	return comment, nil
}

func (s *CommunityService) UpdateComment(ctx context.Context, userID, commentID uuid.UUID, req *UpdateCommentRequest) (*models.Comment, error) {
	author, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	comment, err := s.activeComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != userID {
		logrus.WithFields(logrus.Fields{
			"comment_id": commentID,
			"numero":     author.Numero,
		}).Warn("Attempt to edit another user's comment")
		return nil, ErrUnauthorized
	}

	if err := s.db.WithContext(ctx).Model(comment).Update("text", req.Text).Error; err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	comment.Text = req.Text
	comment.Author = author.FullName()
	return comment, nil
}

// DeleteComment hides a comment; its replies stay stored but are no longer
// reachable from the listing.
func (s *CommunityService) DeleteComment(ctx context.Context, userID, commentID uuid.UUID) error {
	actor, err := s.activeUser(ctx, userID)
	if err != nil {
		return err
	}
	comment, err := s.activeComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != userID && !actor.IsAdmin {
		logrus.WithFields(logrus.Fields{
			"comment_id": commentID,
			"numero":     actor.Numero,
		}).Warn("Attempt to delete another user's comment")
		return ErrUnauthorized
	}

	if err := s.db.WithContext(ctx).Model(comment).Update("active", false).Error; err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"comment_id": commentID,
		"actor_id":   userID,
	}).Info("Comment deleted")
	return nil
}

// ToggleCommentLike adds the caller's like, or removes it when present.
// It reports whether the comment is liked afterwards.
func (s *CommunityService) ToggleCommentLike(ctx context.Context, userID, commentID uuid.UUID) (bool, error) {
	if _, err := s.activeUser(ctx, userID); err != nil {
		return false, err
	}
	comment, err := s.activeComment(ctx, commentID)
	if err != nil {
		return false, err
	}

	liked, err := s.toggle(ctx, &models.CommentLike{}, "comment_id", commentID, userID,
		&models.CommentLike{UserID: userID, CommentID: commentID})
	if err != nil {
		return false, err
	}

	if liked && comment.UserID != userID {
		var author models.User
		bg := context.WithoutCancel(ctx)
		if err := s.db.WithContext(bg).First(&author, "id = ?", comment.UserID).Error; err != nil {
			logrus.WithError(err).WithField("comment_id", commentID).Warn("Comment author lookup failed")
		} else {
			logDeliveries(s.notifier.Notify(bg, &author,
				i18n.T(s.lang, i18n.KeyMsgCommentLike), models.NotificationCommentLike), models.NotificationCommentLike)
		}
	}
	return liked, nil
}

// RateProduct records the caller's score, replacing any earlier one.
func (s *CommunityService) RateProduct(ctx context.Context, userID, productID uuid.UUID, score int) (*models.Rating, error) {
	if _, err := s.activeUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.activeProduct(ctx, productID); err != nil {
		return nil, err
	}

	rating := &models.Rating{UserID: userID, ProductID: productID, Score: score}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"score": score, "updated_at": time.Now()}),
	}).Create(rating).Error; err != nil {
		return nil, fmt.Errorf("failed to save rating: %w", err)
	}

	var stored models.Rating
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&stored).Error; err != nil {
		return nil, fmt.Errorf("failed to reload rating: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    userID,
		"product_id": productID,
		"score":      score,
	}).Info("Product rated")
	return &stored, nil
}

func (s *CommunityService) DeleteRating(ctx context.Context, userID, productID uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.Rating{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete rating: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleProductLike mirrors ToggleCommentLike for products.
func (s *CommunityService) ToggleProductLike(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	if _, err := s.activeUser(ctx, userID); err != nil {
		return false, err
	}
	if err := s.activeProduct(ctx, productID); err != nil {
		return false, err
	}
	return s.toggle(ctx, &models.ProductLike{}, "product_id", productID, userID,
		&models.ProductLike{UserID: userID, ProductID: productID})
}

// LikedProducts lists the active products the user likes.
func (s *CommunityService) LikedProducts(ctx context.Context, userID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).
		Where("activo = ? AND id IN (?)", true,
			s.db.Model(&models.ProductLike{}).Select("product_id").Where("user_id = ?", userID)).
		Order("nombre").
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list liked products: %w", err)
	}
	return products, nil
}

// Stats aggregates ratings, likes and visible comments of an active product.
func (s *CommunityService) Stats(ctx context.Context, productID uuid.UUID) (*models.ProductStats, error) {
	if err := s.activeProduct(ctx, productID); err != nil {
		return nil, err
	}

	var ratings struct {
		Count   int64
		Average *float64
	}
	if err := s.db.WithContext(ctx).Model(&models.Rating{}).
		Select("COUNT(*) AS count, AVG(score) AS average").
		Where("product_id = ?", productID).
		Scan(&ratings).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
	}

	stats := &models.ProductStats{ProductID: productID, Ratings: ratings.Count, Average: decimal.Zero}
	if ratings.Average != nil {
		stats.Average = decimal.NewFromFloat(*ratings.Average).Round(1)
	}
	if err := s.db.WithContext(ctx).Model(&models.ProductLike{}).
		Where("product_id = ?", productID).
		Count(&stats.Likes).Error; err != nil {
		return nil, fmt.Errorf("failed to count likes: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("product_id = ? AND active = ?", productID, true).
		Count(&stats.Comments).Error; err != nil {
		return nil, fmt.Errorf("failed to count comments: %w", err)
	}
	return stats, nil
}

// toggle deletes the caller's row in model's table for target, or creates
// row when there was none.
func (s *CommunityService) toggle(ctx context.Context, model interface{}, column string, target, userID uuid.UUID, row interface{}) (bool, error) {
	liked := false
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		res := tx.Where(column+" = ? AND user_id = ?", target, userID).Delete(model)
		if res.Error != nil {
			return fmt.Errorf("failed to remove like: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			return nil
		}
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("failed to add like: %w", err)
		}
		liked = true
		return nil
	})
	if err != nil {
		return false, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		column:    target,
		"liked":   liked,
	}).Debug("Like toggled")
	return liked, nil
}

// decorate fills author names and like counts for comments and replies.
func (s *CommunityService) decorate(ctx context.Context, comments []models.Comment) error {
	var all []*models.Comment
	for i := range comments {
		all = append(all, &comments[i])
		for j := range comments[i].Replies {
			all = append(all, &comments[i].Replies[j])
		}
	}
	if len(all) == 0 {
		return nil
	}

	userIDs := make([]uuid.UUID, 0, len(all))
	commentIDs := make([]uuid.UUID, 0, len(all))
	for _, c := range all {
		userIDs = append(userIDs, c.UserID)
		commentIDs = append(commentIDs, c.ID)
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Select("id", "nombre", "apellido").
		Where("id IN ?", userIDs).
		Find(&users).Error; err != nil {
		return fmt.Errorf("failed to load comment authors: %w", err)
	}
	names := make(map[uuid.UUID]string, len(users))
	for i := range users {
		names[users[i].ID] = users[i].FullName()
	}

	var counts []struct {
		CommentID uuid.UUID
		Likes     int64
	}
	if err := s.db.WithContext(ctx).Model(&models.CommentLike{}).
		Select("comment_id, COUNT(*) AS likes").
		Where("comment_id IN ?", commentIDs).
		Group("comment_id").
		Scan(&counts).Error; err != nil {
		return fmt.Errorf("failed to count comment likes: %w", err)
	}
	likes := make(map[uuid.UUID]int64, len(counts))
	for _, c := range counts {
		likes[c.CommentID] = c.Likes
	}

	for _, c := range all {
		c.Author = names[c.UserID]
		c.Likes = likes[c.ID]
	}
	return nil
}

func (s *CommunityService) activeUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, notFoundOr(err, "failed to load user")
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	return &user, nil
}

func (s *CommunityService) activeProduct(ctx context.Context, productID uuid.UUID) error {
	var product models.Product
	if err := s.db.WithContext(ctx).Select("id").
		Where("id = ? AND activo = ?", productID, true).
		First(&product).Error; err != nil {
		return notFoundOr(err, "failed to load product")
	}
	return nil
}

func (s *CommunityService) activeComment(ctx context.Context, commentID uuid.UUID) (*models.Comment, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).
		Where("id = ? AND active = ?", commentID, true).
		First(&comment).Error; err != nil {
		return nil, notFoundOr(err, "failed to load comment")
	}
	return &comment, nil
}

func excerpt(text string) string {
	if utf8.RuneCountInString(text) <= excerptLength {
		return text
	}
	return string([]rune(text)[:excerptLength])
}
