package response

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	appErrors "github.com/geison-bit/horarios-api/pkg/errors"
)

// JSON sends a success payload verbatim. The generation contract predates
// this service, so responses are flat objects, not enveloped.
func JSON(c *gin.Context, status int, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, data)
}

// Error reports a failure the way the legacy frontend expects it: an object
// with `error` and `trace` fields and the status of the normalised error.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(appErr.Status, gin.H{
		"error": appErr.Error(),
		"trace": string(debug.Stack()),
	})
}

// Accepted responds with HTTP 202 for asynchronous job submissions.
func Accepted(c *gin.Context, data interface{}) {
	JSON(c, http.StatusAccepted, data)
}
