package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mrweisheng/wscontroller/internal/relay"
)

const (
	msgSent           = "消息已发送"
	msgMissingContent = "缺少消息内容参数(content或message)"
)

// sendResponse is the success body of /send.
type sendResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	MessageID    string `json:"messageId"`
	DeviceStatus string `json:"deviceStatus"`
}

// sendRequest is the POST /send body.
type sendRequest struct {
	TargetDevice string          `json:"targetDevice"`
	Message      json.RawMessage `json:"message"`
}

// handleSendQuery relays a message given in the query string.
//
// The message parameter carries a JSON object. When it is absent or does not
// decode, type and content build {type, content} instead.
func (s *Server) handleSendQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	msg, err := relay.ParseMessage([]byte(q.Get("message")))
	if err != nil {
		msg, err = relay.FlatMessage(q.Get("type"), q.Get("content"))
		if errors.Is(err, relay.ErrMissingMessage) {
			writeFailure(w, http.StatusBadRequest, msgMissingContent)
			return
		}
		if err != nil {
			s.writeRelayError(w, err)
			return
		}
	}

	s.send(w, r, relay.Request{
		TargetDevice: q.Get("targetDevice"),
		Message:      msg,
		Source:       relay.SourceHTTPGet,
	})
}

// handleSendJSON relays {targetDevice, message} from the request body.
func (s *Server) handleSendJSON(w http.ResponseWriter, r *http.Request) {
	var body sendRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			s.writeRelayError(w, relay.ErrMissingMessage)
			return
		}
		s.writeRelayError(w, relay.ErrInvalidMessage)
		return
	}

	msg, err := relay.ParseMessage(body.Message)
	if err != nil {
		s.writeRelayError(w, err)
		return
	}

	s.send(w, r, relay.Request{
		TargetDevice: body.TargetDevice,
		Message:      msg,
		Source:       relay.SourceHTTPPost,
	})
}

func (s *Server) send(w http.ResponseWriter, r *http.Request, req relay.Request) {
	if req.TargetDevice == "" {
		s.writeRelayError(w, relay.ErrMissingMessage)
		return
	}

	res, err := s.dispatcher.Send(r.Context(), req)
	if err != nil {
		s.writeRelayError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sendResponse{
		Success:      true,
		Message:      msgSent,
		MessageID:    res.MessageID,
		DeviceStatus: res.DeviceStatus,
	})
}

func (s *Server) writeRelayError(w http.ResponseWriter, err error) {
	code := relay.StatusCode(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("relay failed", "error", err)
	}
	writeFailure(w, code, relay.UserMessage(err))
}
