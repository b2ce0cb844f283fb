// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yecy-cosmetic/store-backend/internal/i18n"
)

// I18nMiddleware picks the first supported language of Accept-Language,
// falling back to the default locale.
func I18nMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("lang", preferredLanguage(c.GetHeader("Accept-Language")))
		c.Next()
	}
}

func preferredLanguage(header string) string {
	// e.g. "es-CO,es;q=0.9,en;q=0.8"
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.Split(part, ";")[0])
		base := strings.ToLower(strings.SplitN(strings.ReplaceAll(tag, "_", "-"), "-", 2)[0])
		if base != "" && i18n.IsSupported(base) {
			return base
		}
	}
	return i18n.DefaultLanguage()
}
