package httpserver

import (
	"errors"
	"net/http"

	"cis-portal/internal/domain"
	"cis-portal/internal/httpclient"
	"cis-portal/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeError maps service errors onto gateway responses. Upstream HTTP
// errors keep the backend's status and message.
func writeError(c *gin.Context, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		logger.FromGin(c).Error("request failed", zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, body)
}

func errorResponse(err error) (int, gin.H) {
	var (
		verr *domain.ValidationError
		derr *domain.DownloadError
		herr *httpclient.HTTPError
		cerr *domain.DecodeError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, gin.H{"message": "validation failed", "fields": verr.Fields}
	case errors.As(err, &derr):
		return downloadStatus(derr.Kind), gin.H{"message": derr.Warning(), "kind": derr.Kind}
	case errors.As(err, &herr):
		switch {
		case herr.Timeout():
			return http.StatusGatewayTimeout, gin.H{"message": herr.Message}
		case herr.Status == 0:
			return http.StatusBadGateway, gin.H{"message": herr.Message}
		default:
			return herr.Status, gin.H{"message": herr.Message}
		}
	case errors.As(err, &cerr):
		return http.StatusBadGateway, gin.H{"message": cerr.Error()}
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, gin.H{"message": err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, gin.H{"message": err.Error()}
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, gin.H{"message": err.Error()}
	default:
		return http.StatusInternalServerError, gin.H{"message": "internal error"}
	}
}

func downloadStatus(kind domain.DownloadKind) int {
	switch kind {
	case domain.DownloadNotFound:
		return http.StatusNotFound
	case domain.DownloadRateLimited:
		return http.StatusTooManyRequests
	case domain.DownloadTimeout:
		return http.StatusGatewayTimeout
	case domain.DownloadSave:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}
