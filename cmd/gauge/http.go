/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"encoding/json"
	"net/http"

	"github.com/carverauto/sdngauge/pkg/metrics"
	"github.com/carverauto/sdngauge/pkg/registry"
)

type statusSource interface {
	Status() []registry.SlotStatus
}

type reloadResponse struct {
	ID     string `json:"reload_id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func newMux(collector *metrics.Collector, status statusSource, events chan<- registry.Event) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /metrics", collector.Handler())

	mux.HandleFunc("GET /status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, status.Status())
	})

	mux.HandleFunc("POST /reload", func(w http.ResponseWriter, req *http.Request) {
		result := make(chan error, 1)
		id := requestReload(req.Context(), events, "http", result)

		select {
		case err := <-result:
			if err != nil {
				writeJSON(w, http.StatusUnprocessableEntity, reloadResponse{ID: id, Status: metrics.ReloadFailed, Error: err.Error()})
				return
			}

			writeJSON(w, http.StatusOK, reloadResponse{ID: id, Status: metrics.ReloadApplied})
		case <-req.Context().Done():
		}
	})

	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(v)
}
