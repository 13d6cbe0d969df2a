// SPDX-License-Identifier: Apache-2.0
// Copyright 2020 Intel Corporation

package pfcpiface

import (
	"encoding/json"
	"net/http"

	"github.com/omec-project/pdngw/logger"
)

type SessionsHandler struct {
	upf *upf
}

func setupSessionsHandler(mux *http.ServeMux, upf *upf) {
	mux.Handle("/v1/sessions", &SessionsHandler{upf: upf})
}

func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger.AppLog.Debugln("handle http request for /v1/sessions")

	switch r.Method {
	case http.MethodGet:
		sendJSON(w, http.StatusOK, h.upf.sessionsSnapshot())
	default:
		logger.AppLog.Infoln("only GET is supported on /v1/sessions, got", r.Method)
		sendJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "Method Not Allowed"})
	}
}

func sendJSON(w http.ResponseWriter, status int, body interface{}) {
	jsonResp, err := json.Marshal(body)
	if err != nil {
		logger.AppLog.Errorln("error happened in JSON marshal:", err)
		w.WriteHeader(http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err = w.Write(jsonResp); err != nil {
		logger.AppLog.Errorln("http response write failed:", err)
	}
}
