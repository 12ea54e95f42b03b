package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"vapex/internal/apperr"
	applog "vapex/internal/log"
)

const maxBodyBytes = 1 << 20

var errDatabaseUnavailable = errors.New("database not configured")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		applog.Error(context.Background(), "failed to encode json response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeError maps a store error onto its status code. Unclassified errors are
// logged and answered with fallback.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := apperr.Status(err)
	if status == http.StatusInternalServerError {
		applog.Error(r.Context(), fallback, "error", err, "path", r.URL.Path)
	} else {
		applog.Debug(r.Context(), "request rejected", "status", status, "error", err, "path", r.URL.Path)
	}
	writeJSONError(w, status, apperr.Message(err, fallback))
}

// decodeJSON reads a JSON body into dst. An empty body is accepted when
// allowEmpty is set and leaves dst untouched.
func decodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	if r.Body == nil {
		if allowEmpty {
			return nil
		}
		return apperr.Validation("request body is required")
	}
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			if allowEmpty {
				return nil
			}
			return apperr.Validation("request body is required")
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return apperr.Validation("%s has the wrong type", typeErr.Field)
		}
		return apperr.Validation("invalid JSON payload")
	}
	return nil
}

// decodeAndValidate decodes a JSON body and checks its validate tags.
func decodeAndValidate(r *http.Request, dst any, allowEmpty bool) error {
	if err := decodeJSON(r, dst, allowEmpty); err != nil {
		return err
	}
	return apperr.ValidateStruct(dst)
}

func parseID(value string) (uint, error) {
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, fmt.Errorf("invalid identifier %q", value)
	}
	return uint(parsed), nil
}

// pathSegments strips prefix from the request path and splits the rest.
func pathSegments(r *http.Request, prefix string) []string {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("%s must be an integer", key)
	}
	return value, nil
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
}
