package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/jask/glrecon/internal/apperr"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, log logrus.FieldLogger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithField("module", "httpapi").Warnf("writeJSON encode error: %v", err)
	}
}

// writeError renders err with the status of its kind.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		s.log.WithFields(logrus.Fields{
			"module": "httpapi",
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error(err.Error())
	}
	writeJSON(w, s.log, status, apperr.Public(err, s.production))
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("invalid request body").WithDetail(err.Error())
	}
	return nil
}

const maxUploadBytes = 32 << 20

// readUpload returns the raw request body, capped at maxUploadBytes.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.Validation("upload exceeds %d bytes", maxUploadBytes)
		}
		return nil, apperr.Validation("read upload").WithDetail(err.Error())
	}
	if len(data) == 0 {
		return nil, apperr.Validation("empty upload")
	}
	return data, nil
}

func queryInt(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
