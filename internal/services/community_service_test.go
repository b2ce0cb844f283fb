package services

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/yecy-cosmetic/store-backend/internal/models"
	"github.com/yecy-cosmetic/store-backend/internal/utils"
)

type CommunityServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	ctx     context.Context
	pusher  *recordingPusher
	service *CommunityService
	admin   *models.User
	author  *models.User
	reader  *models.User
	product *models.Product
}

func (suite *CommunityServiceTestSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.ctx = context.Background()
	suite.pusher = newRecordingPusher()
	suite.service = NewCommunityService(suite.db, NewNotificationService(suite.db, suite.pusher), "es")

	suite.admin = createUser(suite.T(), suite.db, "3000000000", "Admin", true)
	suite.author = createUser(suite.T(), suite.db, "3004440001", "Lucia", false)
	suite.reader = createUser(suite.T(), suite.db, "3004440002", "Andrea", false)
	suite.product = createProduct(suite.T(), suite.db, "Labial mate", "35.00", 10)
}

func (suite *CommunityServiceTestSuite) comment(user *models.User, text string, parent *models.Comment) *models.Comment {
	req := &CommentRequest{ProductID: suite.product.ID, Text: text}
	if parent != nil {
		req.ParentID = &parent.ID
	}
	comment, err := suite.service.CreateComment(suite.ctx, user.ID, req)
	suite.Require().NoError(err)
	return comment
}

func (suite *CommunityServiceTestSuite) TestCommentNotifiesAdmins() {
	text := "Me encantó el tono, dura todo el día y no reseca los labios para nada"
	comment := suite.comment(suite.author, text, nil)

	suite.True(comment.Active)
	suite.Nil(comment.ParentID)
	suite.Equal("Lucia Prueba", comment.Author)

	suite.Equal(int64(1), countNotifications(suite.T(), suite.db, suite.admin, models.NotificationNewComment))
	var notification models.Notification
	suite.Require().NoError(suite.db.Where("user_id = ? AND type = ?", suite.admin.ID, models.NotificationNewComment).First(&notification).Error)
	suite.Equal("Nuevo comentario: "+string([]rune(text)[:40])+"...", notification.Message)
	suite.Len(suite.pusher.For(suite.admin), 1)
}

func (suite *CommunityServiceTestSuite) TestReplyNotifiesParentAuthorOnly() {
	parent := suite.comment(suite.author, "¿Sirve para piel sensible?", nil)
	reply := suite.comment(suite.reader, "Sí, a mí no me irritó", parent)

	suite.Require().NotNil(reply.ParentID)
	suite.Equal(parent.ID, *reply.ParentID)
	suite.Equal(int64(1), countNotifications(suite.T(), suite.db, suite.author, models.NotificationCommentReply))

	// answering yourself is not news
	suite.comment(suite.author, "Gracias", parent)
	suite.Equal(int64(1), countNotifications(suite.T(), suite.db, suite.author, models.NotificationCommentReply))

	// a reply to a reply joins the same thread and reaches the reply's author
	nested := suite.comment(suite.author, "¿Cuál tono usas?", reply)
	suite.Equal(parent.ID, *nested.ParentID)
	suite.Equal(int64(1), countNotifications(suite.T(), suite.db, suite.reader, models.NotificationCommentReply))
}

func (suite *CommunityServiceTestSuite) TestCommentRequiresActiveProduct() {
	suite.Require().NoError(suite.db.Model(suite.product).Update("activo", false).Error)

	_, err := suite.service.CreateComment(suite.ctx, suite.author.ID, &CommentRequest{ProductID: suite.product.ID, Text: "Hola"})
	suite.ErrorIs(err, ErrNotFound)
	suite.Zero(countNotifications(suite.T(), suite.db, suite.admin, models.NotificationNewComment))
}

func (suite *CommunityServiceTestSuite) TestReplyToAnotherProductsCommentIsRejected() {
	parent := suite.comment(suite.author, "Buen producto", nil)
	other := createProduct(suite.T(), suite.db, "Base líquida", "50.00", 3)

	_, err := suite.service.CreateComment(suite.ctx, suite.reader.ID, &CommentRequest{
		ProductID: other.ID,
		ParentID:  &parent.ID,
		Text:      "Respuesta",
	})
	suite.ErrorIs(err, ErrNotFound)
}

func (suite *CommunityServiceTestSuite) TestListShowsActiveThreadsWithLikes() {
	first := suite.comment(suite.author, "Primero", nil)
	suite.comment(suite.reader, "Respuesta", first)
	hidden := suite.comment(suite.reader, "Borrado", first)
	suite.Require().NoError(suite.service.DeleteComment(suite.ctx, suite.reader.ID, hidden.ID))
	suite.comment(suite.reader, "Segundo", nil)

	_, err := suite.service.ToggleCommentLike(suite.ctx, suite.reader.ID, first.ID)
	suite.Require().NoError(err)

	comments, total, err := suite.service.ListComments(suite.ctx, CommentFilter{
		ProductID:        &suite.product.ID,
		PaginationParams: utils.NewPaginationParams(1, 10, "asc"),
	})
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)
	suite.Require().Len(comments, 2)

	suite.Equal(first.ID, comments[0].ID)
	suite.Equal(int64(1), comments[0].Likes)
	suite.Equal("Lucia Prueba", comments[0].Author)
	suite.Require().Len(comments[0].Replies, 1)
	suite.Equal("Respuesta", comments[0].Replies[0].Text)
	suite.Equal("Andrea Prueba", comments[0].Replies[0].Author)
}

func (suite *CommunityServiceTestSuite) TestOnlyAuthorEditsAndAuthorOrAdminDeletes() {
	comment := suite.comment(suite.author, "Texto original", nil)

	_, err := suite.service.UpdateComment(suite.ctx, suite.reader.ID, comment.ID, &UpdateCommentRequest{Text: "Ajeno"})
	suite.ErrorIs(err, ErrUnauthorized)
	_, err = suite.service.UpdateComment(suite.ctx, suite.admin.ID, comment.ID, &UpdateCommentRequest{Text: "Admin"})
	suite.ErrorIs(err, ErrUnauthorized)

	updated, err := suite.service.UpdateComment(suite.ctx, suite.author.ID, comment.ID, &UpdateCommentRequest{Text: "Texto editado"})
	suite.Require().NoError(err)
	suite.Equal("Texto editado", updated.Text)

	suite.ErrorIs(suite.service.DeleteComment(suite.ctx, suite.reader.ID, comment.ID), ErrUnauthorized)
	suite.Require().NoError(suite.service.DeleteComment(suite.ctx, suite.admin.ID, comment.ID))

	var stored models.Comment
	suite.Require().NoError(suite.db.First(&stored, "id = ?", comment.ID).Error)
	suite.False(stored.Active)
	suite.Equal("Texto editado", stored.Text)

	// a removed comment can no longer be touched
	suite.ErrorIs(suite.service.DeleteComment(suite.ctx, suite.author.ID, comment.ID), ErrNotFound)
	_, err = suite.service.ToggleCommentLike(suite.ctx, suite.reader.ID, comment.ID)
	suite.ErrorIs(err, ErrNotFound)
}

func (suite *CommunityServiceTestSuite) TestCommentLikeToggles() {
	comment := suite.comment(suite.author, "Recomendado", nil)

	liked, err := suite.service.ToggleCommentLike(suite.ctx, suite.reader.ID, comment.ID)
	suite.Require().NoError(err)
	suite.True(liked)
	suite.Equal(int64(1), countNotifications(suite.T(), suite.db, suite.author, models.NotificationCommentLike))
	suite.Len(suite.pusher.For(suite.author), 1)

	liked, err = suite.service.ToggleCommentLike(suite.ctx, suite.reader.ID, comment.ID)
	suite.Require().NoError(err)
	suite.False(liked)

	var likes int64
	suite.Require().NoError(suite.db.Model(&models.CommentLike{}).Count(&likes).Error)
	suite.Zero(likes)

	// liking your own comment stays quiet
	liked, err = suite.service.ToggleCommentLike(suite.ctx, suite.author.ID, comment.ID)
	suite.Require().NoError(err)
	suite.True(liked)
	suite.Equal(int64(1), countNotifications(suite.T(), suite.db, suite.author, models.NotificationCommentLike))
}

func (suite *CommunityServiceTestSuite) TestRatingIsOnePerUserAndProduct() {
	rating, err := suite.service.RateProduct(suite.ctx, suite.author.ID, suite.product.ID, 3)
	suite.Require().NoError(err)
	suite.Equal(3, rating.Score)

	again, err := suite.service.RateProduct(suite.ctx, suite.author.ID, suite.product.ID, 5)
	suite.Require().NoError(err)
	suite.Equal(rating.ID, again.ID)
	suite.Equal(5, again.Score)

	_, err = suite.service.RateProduct(suite.ctx, suite.reader.ID, suite.product.ID, 4)
	suite.Require().NoError(err)

	var count int64
	suite.Require().NoError(suite.db.Model(&models.Rating{}).Count(&count).Error)
	suite.Equal(int64(2), count)

	suite.Require().NoError(suite.service.DeleteRating(suite.ctx, suite.reader.ID, suite.product.ID))
	suite.ErrorIs(suite.service.DeleteRating(suite.ctx, suite.reader.ID, suite.product.ID), ErrNotFound)
}

func (suite *CommunityServiceTestSuite) TestProductLikesAndStats() {
	liked, err := suite.service.ToggleProductLike(suite.ctx, suite.author.ID, suite.product.ID)
	suite.Require().NoError(err)
	suite.True(liked)
	_, err = suite.service.ToggleProductLike(suite.ctx, suite.reader.ID, suite.product.ID)
	suite.Require().NoError(err)

	_, err = suite.service.RateProduct(suite.ctx, suite.author.ID, suite.product.ID, 4)
	suite.Require().NoError(err)
	_, err = suite.service.RateProduct(suite.ctx, suite.reader.ID, suite.product.ID, 5)
	suite.Require().NoError(err)
	suite.comment(suite.reader, "Excelente", nil)

	stats, err := suite.service.Stats(suite.ctx, suite.product.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(2), stats.Likes)
	suite.Equal(int64(2), stats.Ratings)
	suite.Equal(int64(1), stats.Comments)
	suite.True(decimal.RequireFromString("4.5").Equal(stats.Average), "average %s", stats.Average)

	products, err := suite.service.LikedProducts(suite.ctx, suite.author.ID)
	suite.Require().NoError(err)
	suite.Require().Len(products, 1)
	suite.Equal(suite.product.ID, products[0].ID)

	liked, err = suite.service.ToggleProductLike(suite.ctx, suite.author.ID, suite.product.ID)
	suite.Require().NoError(err)
	suite.False(liked)
	products, err = suite.service.LikedProducts(suite.ctx, suite.author.ID)
	suite.Require().NoError(err)
	suite.Empty(products)
}

func (suite *CommunityServiceTestSuite) TestInactiveAccountCannotParticipate() {
	suite.Require().NoError(suite.db.Model(suite.reader).Update("is_active", false).Error)

	_, err := suite.service.CreateComment(suite.ctx, suite.reader.ID, &CommentRequest{
		ProductID: suite.product.ID,
		Text:      strings.Repeat("a", 10),
	})
	suite.ErrorIs(err, ErrAccountInactive)
	_, err = suite.service.ToggleProductLike(suite.ctx, suite.reader.ID, suite.product.ID)
	suite.ErrorIs(err, ErrAccountInactive)
}

func TestCommunityServiceSuite(t *testing.T) {
	suite.Run(t, new(CommunityServiceTestSuite))
}
