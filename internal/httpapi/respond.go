package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	apimw "github.com/hamed0406/urlchecker/internal/httpapi/middleware"
	"github.com/hamed0406/urlchecker/internal/repo"
)

const totalCountHeader = "X-Total-Count"

type errorBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Message: msg})
}

func writeList[T any](w http.ResponseWriter, items []T, total int) {
	if items == nil {
		items = []T{}
	}
	w.Header().Set(totalCountHeader, strconv.Itoa(total))
	writeJSON(w, http.StatusOK, items)
}

// storeError maps repository errors onto HTTP statuses.
func (s *Server) storeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, repo.ErrConflict):
		writeError(w, http.StatusConflict, "a check for this url already exists")
	case errors.Is(err, repo.ErrInvalidReference):
		writeError(w, http.StatusBadRequest, "checkId does not reference an existing check definition")
	default:
		s.Logger.Error("store_error",
			zap.String("op", op),
			zap.String("request_id", apimw.GetRequestID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads a JSON body into dst and validates it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		parts = append(parts, fmt.Sprintf("%s: failed on '%s'", fe.Field(), fe.Tag()))
	}
	return "invalid " + strings.Join(parts, ", ")
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func parseIDs(values []string) ([]int64, error) {
	out := make([]int64, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			n, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid id %q", part)
			}
			out = append(out, n)
		}
	}
	return out, nil
}

// parseListQuery reads the json-server list parameters:
// id, checkId (repeatable), urlcontains, _sort, _order, _start and _end.
func parseListQuery(r *http.Request) (repo.ListQuery, error) {
	v := r.URL.Query()
	var q repo.ListQuery
	var err error
	if q.IDs, err = parseIDs(v["id"]); err != nil {
		return q, err
	}
	if q.CheckIDs, err = parseIDs(v["checkId"]); err != nil {
		return q, err
	}
	q.URLContains = v.Get("urlcontains")
	q.Sort = v.Get("_sort")
	q.Order = strings.ToUpper(v.Get("_order"))
	if q.Order != "" && q.Order != "ASC" && q.Order != "DESC" {
		return q, fmt.Errorf("_order must be ASC or DESC")
	}
	for key, dst := range map[string]*int{"_start": &q.Start, "_end": &q.End} {
		raw := v.Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return q, fmt.Errorf("%s must be a non-negative integer", key)
		}
		*dst = n
	}
	return q, nil
}
