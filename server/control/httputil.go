package control

import (
	"encoding/json"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/cyclopcam/logs"
	"github.com/julienschmidt/httprouter"

	"github.com/ljj727/edge-core-hailo/pkg/apperr"
)

// sendJSON encodes obj as the HTTP response body, mirroring the teacher's
// www.SendJSON.
func sendJSON(w http.ResponseWriter, obj any) {
	w.Header().Set("Content-Type", "application/json")
	b, err := json.Marshal(obj)
	if err != nil {
		sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Write(b)
}

func sendError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorJSON{Error: message})
}

// sendAppErr maps an apperr.Kind onto the HTTP status code the §6.1 control
// surface should report it as.
func sendAppErr(w http.ResponseWriter, err error) {
	switch apperr.KindOf(err) {
	case apperr.NotFound:
		sendError(w, err.Error(), http.StatusNotFound)
	case apperr.Conflict:
		sendError(w, err.Error(), http.StatusConflict)
	case apperr.InvalidInput:
		sendError(w, err.Error(), http.StatusBadRequest)
	case apperr.ModelLoad:
		sendError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		sendError(w, err.Error(), http.StatusInternalServerError)
	}
}

// handle wraps an httprouter.Handle in a panic recovery guard, mirroring the
// teacher's www.Handle/RunProtected pair.
func handle(log logs.Log, router *httprouter.Router, method, path string, h httprouter.Handle) {
	router.Handle(method, path, func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		defer func() {
			if rec := recover(); rec != nil {
				if rtErr, ok := rec.(runtime.Error); ok {
					log.Errorf("control: panic on %v: %v\n%v", r.URL.Path, rtErr, string(debug.Stack()))
				} else {
					log.Errorf("control: panic on %v: %v", r.URL.Path, rec)
				}
				sendError(w, "internal error", http.StatusInternalServerError)
			}
		}()
		h(w, r, p)
	})
}
