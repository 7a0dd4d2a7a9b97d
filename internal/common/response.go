package common

import (
	"github.com/gin-gonic/gin"
)

// Fail writes the error body shared by every endpoint.
func Fail(c *gin.Context, httpStatus int, code int, detail string) {
	c.AbortWithStatusJSON(httpStatus, gin.H{
		"code":   code,
		"detail": detail,
	})
}
