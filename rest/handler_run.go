package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/waflow/waflow/flow"
	"github.com/waflow/waflow/logger"
	"github.com/waflow/waflow/model"
	"github.com/waflow/waflow/persistence"
)

func (s *Server) HandleRunFlow(w http.ResponseWriter, r *http.Request) {
	var runReq model.FlowRunRequest
	if err := json.NewDecoder(r.Body).Decode(&runReq); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	result, err := s.executorService.StartFlow(r.Context(), runReq)
	if err != nil {
		logger.Error("error running flow", zap.String("flowId", runReq.FlowId), zap.Error(err))
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (s *Server) HandleTestFlow(w http.ResponseWriter, r *http.Request) {
	var runReq model.FlowRunRequest
	if err := json.NewDecoder(r.Body).Decode(&runReq); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	result, err := s.executorService.TestFlow(r.Context(), runReq)
	if err != nil {
		logger.Error("error testing flow", zap.String("flowId", runReq.FlowId), zap.Error(err))
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (s *Server) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	runId := mux.Vars(r)["id"]
	detail, err := s.executorService.GetRun(r.Context(), runId)
	if err != nil {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, detail)
}

func (s *Server) HandleCancelRun(w http.ResponseWriter, r *http.Request) {
	runId := mux.Vars(r)["id"]
	if err := s.executorService.Cancel(r.Context(), runId); err != nil {
		logger.Error("error cancelling run", zap.String("runId", runId), zap.Error(err))
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondOK(w, "cancelled")
}

func statusFor(err error) int {
	var vErr flow.ValidationError
	var notWaiting flow.NotWaitingError
	var locked flow.RunLockedError
	var runNotFound persistence.RunNotFoundError
	var defNotFound persistence.DefinitionNotFoundError
	switch {
	case errors.As(err, &vErr), errors.As(err, &notWaiting):
		return http.StatusBadRequest
	case errors.As(err, &locked):
		return http.StatusConflict
	case errors.As(err, &runNotFound), errors.As(err, &defNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
