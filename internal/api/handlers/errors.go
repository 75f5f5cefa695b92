package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/predictarena-go/internal/middleware"
	"github.com/irfndi/predictarena-go/internal/utils"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// StatusForKind maps an engine error kind to its HTTP status.
func StatusForKind(kind utils.Kind) int {
	switch kind {
	case utils.KindInvalidInput:
		return http.StatusBadRequest
	case utils.KindContestClosed, utils.KindDuplicatePrediction:
		return http.StatusConflict
	case utils.KindIncompleteMarketData:
		return http.StatusUnprocessableEntity
	case utils.KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case utils.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	kind := utils.KindOf(err)
	status := StatusForKind(kind)

	resp := ErrorResponse{Error: string(kind), Code: utils.CodeOf(err)}
	var typed *utils.Error
	switch {
	case status == http.StatusInternalServerError:
		if kind == "" {
			resp.Error = string(utils.KindStorageFailure)
		}
		resp.Message = "internal error, please retry later"
	case errors.As(err, &typed):
		resp.Message = typed.Message
	default:
		resp.Message = err.Error()
	}

	if status >= http.StatusInternalServerError {
		middleware.RecordError(c, err, resp.Error)
	}
	_ = c.Error(err)
	c.JSON(status, resp)
}

func respondBadRequest(c *gin.Context, message string) {
	respondError(c, utils.NewValidationError(message))
}
