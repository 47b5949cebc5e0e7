package web

import (
	"context"
	"encoding/json"
	"net/http"
)

// Respond writes data to w as JSON with statusCode, and records the
// status code on the request's Values for logging middleware.
func Respond(ctx context.Context, w http.ResponseWriter, data any, statusCode int) error {
	SetStatusCode(ctx, statusCode)

	if statusCode == http.StatusNoContent {
		w.WriteHeader(statusCode)
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	_, err = w.Write(jsonData)
	return err
}

// Decode reads r's body as JSON into v.
func Decode(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	return decoder.Decode(v)
}

// Param returns the value of a named URL path parameter, following
// httptreemux's route parameter conventions.
func Param(r *http.Request, key string) string {
	params := httptreemuxParams(r)
	return params[key]
}
