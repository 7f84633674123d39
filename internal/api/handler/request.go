package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"data_quest/internal/api/middleware"
	"data_quest/internal/common"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}

// jsonAction serves fn as a handler: the body decodes into Req and fn's
// result is written with status.
func jsonAction[Req, Resp any](status int, fn func(context.Context, Req) (Resp, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if !decodeJSON(w, r, &req) {
			return
		}
		resp, err := fn(r.Context(), req)
		if err != nil {
			common.RespondWithDomainError(w, err)
			return
		}
		common.RespondWithJSON(w, status, resp)
	}
}

// currentUser reads the caller stored by middleware.RequireCaller.
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller, ok := middleware.CallerFrom(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
	}
	return caller.ID, ok
}

// queryInt returns def when the parameter is absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("query parameter %s must be an integer: %w", name, common.ErrBadRequest)
	}
	return v, nil
}
