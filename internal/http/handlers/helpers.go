package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/enrollment-backend/internal/data/repos"
	"github.com/yungbote/enrollment-backend/internal/http/response"
)

// respondServiceError writes the classified error. Server-side failures are attached to the
// gin context so RequestLogger records the cause the client never sees.
func respondServiceError(c *gin.Context, err error) {
	if status, _ := response.Classify(err); status >= http.StatusInternalServerError {
		_ = c.Error(err).SetType(gin.ErrorTypePrivate)
	}
	response.RespondServiceError(c, err)
}

func uuidParam(c *gin.Context, name, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil || id == uuid.Nil {
		if err == nil {
			err = errNilID
		}
		response.RespondError(c, http.StatusBadRequest, code, err)
		return uuid.Nil, false
	}
	return id, true
}

// GET ?page=2&page_size=20. Missing values fall back to the repo defaults.
func pageQuery(c *gin.Context) (repos.Page, bool) {
	var page repos.Page
	for _, q := range []struct {
		key string
		dst *int
	}{{"page", &page.Number}, {"page_size", &page.Size}} {
		raw := strings.TrimSpace(c.Query(q.key))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.RespondError(c, http.StatusBadRequest, "invalid_pagination", errInvalidPage(q.key, raw))
			return repos.Page{}, false
		}
		*q.dst = n
	}
	return page, true
}
