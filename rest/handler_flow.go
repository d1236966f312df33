package rest

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/waflow/waflow/flow"
	"github.com/waflow/waflow/logger"
	"github.com/waflow/waflow/persistence"
)

func (s *Server) HandleSaveFlow(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	def, err := s.metadataService.Save(raw)
	if err != nil {
		var vErr flow.ValidationError
		if errors.As(err, &vErr) {
			respondWithError(w, http.StatusBadRequest, vErr.Error())
			return
		}
		logger.Error("error saving flow definition", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error saving flow definition")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"flowId": def.Id, "version": def.Version})
}

func (s *Server) HandleGetFlow(w http.ResponseWriter, r *http.Request) {
	flowId := mux.Vars(r)["id"]
	def, err := s.metadataService.GetDefinition(flowId)
	if err != nil {
		logger.Info("flow definition does not exist", zap.String("flowId", flowId))
		respondWithError(w, http.StatusNotFound, "flow definition does not exist")
		return
	}
	respondWithJSON(w, http.StatusOK, def)
}

// HandleExportFlow serves the definition exactly as it was submitted,
// byte for byte.
func (s *Server) HandleExportFlow(w http.ResponseWriter, r *http.Request) {
	flowId := mux.Vars(r)["id"]
	raw, err := s.metadataService.Export(flowId)
	if err != nil {
		var notFound persistence.DefinitionNotFoundError
		if errors.As(err, &notFound) {
			respondWithError(w, http.StatusNotFound, "flow definition does not exist")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "error exporting flow definition")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

func (s *Server) HandleDeleteFlow(w http.ResponseWriter, r *http.Request) {
	flowId := mux.Vars(r)["id"]
	if err := s.metadataService.Delete(flowId); err != nil {
		logger.Error("error deleting flow definition", zap.String("flowId", flowId), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error deleting flow definition")
		return
	}
	respondOK(w, "deleted")
}
