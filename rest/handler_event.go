package rest

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/waflow/waflow/logger"
	"github.com/waflow/waflow/model"
)

// HandleEvent is the webhook ingress: an inbound message or button
// reply resumes the waiting run it addresses.
func (s *Server) HandleEvent(w http.ResponseWriter, r *http.Request) {
	var ev model.FlowEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	if ev.RunId == "" {
		respondWithError(w, http.StatusBadRequest, "runId is required")
		return
	}
	result, err := s.executorService.HandleEvent(r.Context(), ev)
	if err != nil {
		logger.Error("error handling event", zap.String("runId", ev.RunId), zap.Error(err))
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}
