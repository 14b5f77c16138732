package api

import (
	"embed"
	"html/template"
	"net/http"
	"time"
)

//go:embed templates/status.html
var templateFS embed.FS

var statusPage = template.Must(template.ParseFS(templateFS, "templates/status.html"))

// lastSeenLayout formats activity times on the status page.
const lastSeenLayout = "2006-01-02 15:04:05"

type pageDevice struct {
	ID       string
	Status   string
	LastSeen string
}

type pageData struct {
	Count   int
	Devices []pageDevice
}

// handleStatusPage renders the human-readable device list.
func (s *Server) handleStatusPage(w http.ResponseWriter, _ *http.Request) {
	infos := s.registry.Snapshot()
	data := pageData{Count: len(infos), Devices: make([]pageDevice, 0, len(infos))}
	for _, info := range infos {
		data.Devices = append(data.Devices, pageDevice{
			ID:       info.DeviceID,
			Status:   info.Status,
			LastSeen: info.LastSeen.In(time.Local).Format(lastSeenLayout),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := statusPage.Execute(w, data); err != nil {
		s.logger.Error("rendering status page", "error", err)
	}
}
