package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/FairForge/s3connector/internal/host"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

// maxRequestBytes bounds an execute body; tensors travel as JSON numbers.
const maxRequestBytes = 512 << 20

func (s *Server) handleObjectInfo(w http.ResponseWriter, r *http.Request) {
	info := make(map[string]host.Definition)
	for _, def := range s.registry.Definitions() {
		info[def.Class] = def
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	class := mux.Vars(r)["class"]
	node, ok := s.registry.Lookup(class)
	if !ok {
		s.metrics.RecordExecution(class, KindUnknownNode)
		writeError(w, fmt.Errorf("%w: %s", host.ErrUnknownNode, class))
		return
	}

	req, err := s.readExecuteRequest(w, r, node.Definition())
	if err != nil {
		kind := writeError(w, err)
		s.metrics.RecordExecution(class, kind)
		return
	}

	inputs, err := decodeInputs(node.Definition(), req.Inputs)
	if err != nil {
		s.metrics.RecordExecution(class, KindInvalidInput)
		writeError(w, err)
		return
	}

	outs, err := s.registry.Execute(r.Context(), class, req.Context, inputs)
	if err != nil {
		kind := writeError(w, err)
		s.metrics.RecordExecution(class, kind)
		s.logger.Error("node failed",
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.String("class", class),
			zap.String("kind", kind),
			zap.Error(err))
		return
	}

	s.metrics.RecordExecution(class, "success")
	writeJSON(w, http.StatusOK, ExecuteResponse{Outputs: encodeOutputs(outs)})
}

// readExecuteRequest reads a possibly gzip encoded body, checks it against
// the node's request schema and decodes it.
func (s *Server) readExecuteRequest(w http.ResponseWriter, r *http.Request, def host.Definition) (*ExecuteRequest, error) {
	var body io.Reader = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if strings.EqualFold(r.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, invalid("gzip body: %v", err)
		}
		defer func() { _ = zr.Close() }()
		body = io.LimitReader(zr, maxRequestBytes+1)
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, invalid("read body: %v", err)
	}
	if len(raw) > maxRequestBytes {
		return nil, invalid("body exceeds %d bytes", maxRequestBytes)
	}

	if err := s.schemas.validateRequest(def, raw); err != nil {
		return nil, err
	}

	var req ExecuteRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, invalid("malformed request body: %v", err)
	}
	return &req, nil
}

func (s *Server) handleIsChanged(w http.ResponseWriter, r *http.Request) {
	token, err := s.registry.IsChanged(mux.Vars(r)["class"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
