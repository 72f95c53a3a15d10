package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"
)

// Keys under which TelegramInitData stores the authenticated user.
const (
	UserIDKey       = "user_id"
	UsernameKey     = "username"
	FirstNameKey    = "first_name"
	LastNameKey     = "last_name"
	LanguageCodeKey = "language_code"
)

// InitDataHeader carries raw Mini App init-data.
const InitDataHeader = "X-Telegram-Init-Data"

// TelegramInitData validates Telegram Mini App init-data signed with the bot
// token. It reads the header first and falls back to the init_data query
// parameter. expIn of zero disables the age check.
func TelegramInitData(token string, expIn time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "init-data validation is not configured"})
			return
		}

		raw := c.GetHeader(InitDataHeader)
		if raw == "" {
			raw = c.Query("init_data")
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing init_data"})
			return
		}

		if err := initdata.Validate(raw, token, expIn); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid init_data"})
			return
		}

		parsed, err := initdata.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid init_data format"})
			return
		}
		if parsed.User.ID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "init_data has no user"})
			return
		}

		c.Set(UserIDKey, parsed.User.ID)
		c.Set(UsernameKey, parsed.User.Username)
		c.Set(FirstNameKey, parsed.User.FirstName)
		c.Set(LastNameKey, parsed.User.LastName)
		c.Set(LanguageCodeKey, parsed.User.LanguageCode)
		c.Next()
	}
}

// GetUserID returns the authenticated user id, or 0.
func GetUserID(c *gin.Context) int64 {
	if v, exists := c.Get(UserIDKey); exists {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}
