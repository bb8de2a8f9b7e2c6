package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-sensorgw/internal/metadata"
	"github.com/nerrad567/gray-logic-sensorgw/internal/sensor"
)

// MetadataResponse lists the attributes resolved for a device.
type MetadataResponse struct {
	DeviceID   string               `json:"device_id"`
	Attributes []sensor.Description `json:"attributes"`
}

// handleGetMetadata resolves the device's metadata through the cache and
// describes each attribute.
func (s *Server) handleGetMetadata(w http.ResponseWriter, r *http.Request) {
	id := metadata.DeviceID(chi.URLParam(r, "id"))

	reading := sensor.NewReading(id, nil, time.Now())
	if err := s.metadata.Resolve(r.Context(), reading, sensor.Factory{}); err != nil {
		s.logger.Warn("metadata lookup failed", "device_id", id, "error", err)
		writeResolveError(w, err)
		return
	}

	resp := MetadataResponse{
		DeviceID:   string(id),
		Attributes: make([]sensor.Description, 0, len(reading.Attributes())),
	}
	for _, a := range reading.Attributes() {
		if attr, ok := a.(*sensor.Attribute); ok {
			resp.Attributes = append(resp.Attributes, attr.Describe())
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleInvalidateMetadata drops the device's cache entry so the next event
// re-reads the store.
func (s *Server) handleInvalidateMetadata(w http.ResponseWriter, r *http.Request) {
	id := metadata.DeviceID(chi.URLParam(r, "id"))

	removed := s.metadata.Invalidate(id)
	s.logger.Info("metadata cache entry invalidated",
		"device_id", id,
		"removed", removed,
		"user", userFromContext(r.Context())["username"],
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": string(id),
		"removed":   removed,
	})
}
