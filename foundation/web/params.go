package web

import (
	"net/http"

	"github.com/dimfeld/httptreemux/v5"
)

func httptreemuxParams(r *http.Request) map[string]string {
	return httptreemux.ContextParams(r.Context())
}
