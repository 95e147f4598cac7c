package download

import (
	"net/http"

	"cis-portal/internal/domain"
	"cis-portal/internal/httpclient"
)

// FetchFailure classifies an error from fetching an artifact.
func FetchFailure(filename string, err error) *domain.DownloadError {
	kind := domain.DownloadFailed
	switch {
	case httpclient.IsNotFound(err):
		kind = domain.DownloadNotFound
	case httpclient.IsStatus(err, http.StatusTooManyRequests):
		kind = domain.DownloadRateLimited
	case httpclient.IsTimeout(err):
		kind = domain.DownloadTimeout
	}
	return &domain.DownloadError{Kind: kind, Filename: filename, Err: err}
}

// SaveFailure wraps an error from persisting an artifact.
func SaveFailure(filename string, err error) *domain.DownloadError {
	return &domain.DownloadError{Kind: domain.DownloadSave, Filename: filename, Err: err}
}
