package response

import (
	"videohub/internal/pkg/apperr"

	"github.com/gin-gonic/gin"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func SuccessWithMessage(c *gin.Context, statusCode int, data interface{}, message string) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
		"message": message,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// FromError writes the error envelope for err and records it on the gin
// context so the request logger can report the cause.
func FromError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, code, message := apperr.Describe(err)
	Error(c, status, code, message)
}

// AbortWithError is FromError for middleware.
func AbortWithError(c *gin.Context, err error) {
	FromError(c, err)
	c.Abort()
}
