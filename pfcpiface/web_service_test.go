// SPDX-License-Identifier: Apache-2.0
// Copyright 2022-present Open Networking Foundation

package pfcpiface

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionsHandler(t *testing.T) {
	upf := NewUPF(testConf())
	mux := http.NewServeMux()
	setupSessionsHandler(mux, upf)

	t.Run("empty", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("one session", func(t *testing.T) {
		_, err := upf.establishSession(basicEstablish(0x42, 0x10))
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		assert.JSONEq(t, `[{
			"controlId": 66,
			"subscriberAddress": "10.0.0.1",
			"apn": "internet",
			"apnGateway": "198.19.0.1",
			"peerGateway": "192.0.2.1",
			"bearers": [{"teid": 16, "peerTeid": 119, "uplinkBytesPerSec": 100, "downlinkBytesPerSec": 100}],
			"defaultBearer": 16
		}]`, rec.Body.String())

		var sessions []sessionInfo
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
		assert.Len(t, sessions, 1)
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sessions", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}
