package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flicky/go-food-api/internal/apperr"
)

var kindStatus = map[apperr.Kind]int{
	apperr.InvalidArgument: http.StatusBadRequest,
	apperr.Unauthenticated: http.StatusUnauthorized,
	apperr.Forbidden:       http.StatusForbidden,
	apperr.NotFound:        http.StatusNotFound,
	apperr.Conflict:        http.StatusConflict,
	apperr.Internal:        http.StatusInternalServerError,
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": gin.H{"message": msg}})
}

// writeError maps err to its HTTP status. Internal details stay in the request log.
func writeError(c *gin.Context, err error) {
	status, ok := kindStatus[apperr.KindOf(err)]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	fail(c, status, apperr.Message(err))
}

func bindError(c *gin.Context, err error) {
	fail(c, http.StatusBadRequest, bindMessage(err))
}

// pathID parses the named path parameter, writing a 400 when it is not a UUID.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
