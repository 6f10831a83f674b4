package api

import (
	"errors"
	"net/http"

	"github.com/FairForge/s3connector/internal/engine"
	"github.com/FairForge/s3connector/internal/host"
)

// Error kinds reported in response bodies and execution metrics.
const (
	KindInvalidInput       = "invalid_input"
	KindUnknownNode        = "unknown_node"
	KindNotFound           = "not_found"
	KindConfiguration      = "configuration"
	KindContextUnavailable = "context_unavailable"
	KindEncoding           = "encoding"
	KindDecoding           = "decoding"
	KindUpload             = "upload"
	KindDownload           = "download"
	KindInternal           = "internal"
	KindRouteNotFound      = "route_not_found"
	KindMethodNotAllowed   = "method_not_allowed"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// classify maps err onto an HTTP status and error kind.
func classify(err error) (int, string) {
	var (
		cfgErr *engine.ConfigurationError
		encErr *engine.EncodingError
		decErr *engine.DecodingError
		upErr  *engine.UploadError
		dlErr  *engine.DownloadError
	)
	switch {
	case errors.Is(err, host.ErrUnknownNode):
		return http.StatusNotFound, KindUnknownNode
	case errors.Is(err, engine.ErrObjectNotFound):
		return http.StatusNotFound, KindNotFound
	case errors.Is(err, engine.ErrInvalidInput),
		errors.Is(err, host.ErrMissingInput),
		errors.Is(err, host.ErrInputType):
		return http.StatusBadRequest, KindInvalidInput
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError, KindConfiguration
	case errors.Is(err, host.ErrContextUnavailable):
		return http.StatusUnprocessableEntity, KindContextUnavailable
	case errors.As(err, &encErr):
		return http.StatusUnprocessableEntity, KindEncoding
	case errors.As(err, &decErr):
		return http.StatusUnprocessableEntity, KindDecoding
	case errors.As(err, &upErr):
		return http.StatusBadGateway, KindUpload
	case errors.As(err, &dlErr):
		return http.StatusBadGateway, KindDownload
	default:
		return http.StatusInternalServerError, KindInternal
	}
}

func writeError(w http.ResponseWriter, err error) string {
	status, kind := classify(err)
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind})
	return kind
}
