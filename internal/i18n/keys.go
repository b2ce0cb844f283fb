// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserInactive       = "auth.user_inactive"
	KeyAuthLocked             = "auth.locked"
	KeyAdminAccessDenied      = "admin.access_denied"

	// Users
	KeyUserRegistered      = "user.registered"
	KeyUserProfileUpdated  = "user.profile_updated"
	KeyUserPasswordChanged = "user.password_changed"
	KeyUserDeactivated     = "user.deactivated"
	KeyUserNumeroTaken     = "user.numero_taken"
	KeyUserWrongPassword   = "user.wrong_password"

	// Password recovery
	KeyRecoveryCodeSent      = "recovery.code_sent"
	KeyRecoveryPasswordReset = "recovery.password_reset"
	KeyRecoveryInvalidCode   = "recovery.invalid_code"

	// Validation
	KeyValidationInvalid  = "validation.invalid"
	KeyValidationRequired = "validation.required"
	KeyValidationMin      = "validation.min"
	KeyValidationMax      = "validation.max"
	KeyValidationLen      = "validation.len"
	KeyValidationNumeric  = "validation.numeric"
	KeyValidationOneOf    = "validation.oneof"
	KeyValidationUUID     = "validation.uuid"

	// Cart
	KeyCartItemAdded     = "cart.item_added"
	KeyCartItemAdjusted  = "cart.item_adjusted"
	KeyCartItemRemoved   = "cart.item_removed"
	KeyCartCleared       = "cart.cleared"
	KeyCartMigrated      = "cart.migrated"
	KeyCartEmpty         = "cart.empty"
	KeyCartChanged       = "cart.changed"
	KeyCartNotFound      = "cart.not_found"
	KeyProductNotFound   = "product.not_found"
	KeyCategoryNotFound  = "category.not_found"
	KeyUserNotFound      = "user.not_found"
	KeyStockInsufficient = "stock.insufficient"

	// Orders
	KeyOrderCreated           = "order.created"
	KeyOrderNotFound          = "order.not_found"
	KeyOrderCancelled         = "order.cancelled"
	KeyOrderStatusUpdated     = "order.status_updated"
	KeyOrderInvalidTransition = "order.invalid_transition"
	KeyOrderForbidden         = "order.forbidden"
	KeyInvoiceUnavailable     = "invoice.unavailable"

	// Community
	KeyCommentCreated   = "comment.created"
	KeyCommentUpdated   = "comment.updated"
	KeyCommentDeleted   = "comment.deleted"
	KeyCommentNotFound  = "comment.not_found"
	KeyCommentForbidden = "comment.forbidden"
	KeyLikeAdded        = "like.added"
	KeyLikeRemoved      = "like.removed"
	KeyRatingSaved      = "rating.saved"
	KeyRatingDeleted    = "rating.deleted"
	KeyRatingNotFound   = "rating.not_found"

	// Notifications
	KeyNotificationNotFound = "notification.not_found"
	KeyNotificationRead     = "notification.read"
	KeyNotificationDeleted  = "notification.deleted"

	// Notification messages
	KeyMsgPurchaseSuccess     = "msg.purchase_success"
	KeyMsgLowStock            = "msg.low_stock"
	KeyMsgNewOrder            = "msg.new_order"
	KeyMsgAdminOrderClient    = "msg.admin_order_client"
	KeyMsgAdminOrderNewClient = "msg.admin_order_new_client"
	KeyMsgAdminOrderAdmin     = "msg.admin_order_admin"
	KeyMsgStatusClient        = "msg.status_client"
	KeyMsgStatusAdmin         = "msg.status_admin"
	KeyMsgCancelledClient     = "msg.cancelled_client"
	KeyMsgCancelledAdmin      = "msg.cancelled_admin"
	KeyMsgNewComment          = "msg.new_comment"
	KeyMsgCommentReply        = "msg.comment_reply"
	KeyMsgCommentLike         = "msg.comment_like"

	// Rate limit
	KeyRateLimitExceeded = "rate_limit.exceeded"

	// General
	KeyInternalError = "error.internal"
)
