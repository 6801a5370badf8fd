package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"meeting-scheduler-api/internal/apperr"
	"meeting-scheduler-api/internal/middleware"
)

func ok(c *gin.Context, code int, data any) {
	c.JSON(code, gin.H{"status": "success", "data": data})
}

func okMessage(c *gin.Context, code int, msg string, data any) {
	body := gin.H{"status": "success", "message": msg}
	if data != nil {
		body["data"] = data
	}
	c.JSON(code, body)
}

// fail writes err in the error envelope. Internal details only reach the log.
func fail(c *gin.Context, err error) {
	code := apperr.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		log.Printf("[%s] %s %s: %v", middleware.RequestIDFrom(c), c.Request.Method, c.FullPath(), err)
	}
	body := gin.H{"status": "error", "message": apperr.Public(err)}
	if fields := apperr.FieldsOf(err); len(fields) > 0 {
		body["errors"] = fields
	}
	c.JSON(code, body)
}

func idParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid(name, name+" must be a positive integer")
	}
	return id, nil
}
