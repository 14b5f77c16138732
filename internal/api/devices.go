package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mrweisheng/wscontroller/internal/registry"
)

const msgInvalidDeviceID = "设备编号格式无效，必须是三位数字"

// deviceStatusResponse is the body of GET /status/{deviceId}.
// LastSeen and Status are omitted when the device is offline.
type deviceStatusResponse struct {
	Online   bool   `json:"online"`
	LastSeen int64  `json:"lastSeen,omitempty"`
	Status   string `json:"status,omitempty"`
}

// deviceView is one entry of GET /devices. Times are Unix milliseconds.
type deviceView struct {
	DeviceID    string `json:"deviceId"`
	LastSeen    int64  `json:"lastSeen"`
	Status      string `json:"status"`
	ConnectedAt int64  `json:"connectedAt"`
}

type deviceListResponse struct {
	Count   int          `json:"count"`
	Devices []deviceView `json:"devices"`
}

func (s *Server) handleDeviceStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "deviceId")
	if !registry.ValidDeviceID(id) {
		writeFailure(w, http.StatusBadRequest, msgInvalidDeviceID)
		return
	}

	rec, ok := s.registry.Get(id)
	if !ok {
		writeJSON(w, http.StatusOK, deviceStatusResponse{Online: false})
		return
	}
	writeJSON(w, http.StatusOK, deviceStatusResponse{
		Online:   true,
		LastSeen: rec.LastSeen().UnixMilli(),
		Status:   rec.Status(),
	})
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	infos := s.registry.Snapshot()
	devices := make([]deviceView, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, deviceView{
			DeviceID:    info.DeviceID,
			LastSeen:    info.LastSeen.UnixMilli(),
			Status:      info.Status,
			ConnectedAt: info.ConnectedAt.UnixMilli(),
		})
	}
	writeJSON(w, http.StatusOK, deviceListResponse{Count: len(devices), Devices: devices})
}
