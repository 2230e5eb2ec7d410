package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"i4.energy/across/avrctl/avr"
	"i4.energy/across/avrctl/dialect"
)

// Server handles incoming HTTP requests for controlling the configured
// receiver
type Server struct {
	Logger     *slog.Logger
	Controller avr.Controller
	Model      dialect.Model
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /zones/{zone}", s.handleStatus)
	mux.HandleFunc("POST /zones/{zone}/power", s.handlePower)
	mux.HandleFunc("POST /zones/{zone}/mute", s.handleMute)
	mux.HandleFunc("POST /zones/{zone}/volume", s.handleVolume)
	mux.HandleFunc("POST /zones/{zone}/source", s.handleSource)
	mux.HandleFunc("POST /commands/{name}", s.handleCommand)
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) sendJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

// sendFailure maps receiver errors to HTTP status codes.
func (s *Server) sendFailure(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, dialect.ErrUnknownCommand),
		errors.Is(err, dialect.ErrMissingArgument),
		errors.Is(err, dialect.ErrInvalidArgument),
		errors.Is(err, dialect.ErrEncoding):
		code = http.StatusBadRequest
	case errors.Is(err, avr.ErrNotConnected),
		errors.Is(err, avr.ErrConnectionLost),
		errors.Is(err, avr.ErrAlreadyClosed):
		code = http.StatusServiceUnavailable
	case errors.Is(err, avr.ErrReadTimeout),
		errors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	}
	if code >= http.StatusInternalServerError {
		s.Logger.Error("Receiver command failed", "error", err)
	}
	s.sendError(w, err.Error(), code)
}

func (s *Server) zone(w http.ResponseWriter, r *http.Request) (int, bool) {
	zone, err := strconv.Atoi(r.PathValue("zone"))
	if err != nil {
		s.sendError(w, "zone must be a number", http.StatusBadRequest)
		return 0, false
	}
	if !s.Model.HasZone(zone) {
		s.sendError(w, "no such zone", http.StatusNotFound)
		return 0, false
	}
	return zone, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// handleStatus reports the status of a zone
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	zone, ok := s.zone(w, r)
	if !ok {
		return
	}

	status, err := s.Controller.ZoneStatus(r.Context(), zone)
	if err != nil {
		s.sendFailure(w, err)
		return
	}

	type StatusResponse struct {
		Zone        int            `json:"zone"`
		Status      dialect.Status `json:"status"`
		SourceLabel string         `json:"source_label,omitempty"`
	}
	resp := StatusResponse{Zone: zone, Status: status}
	if source, ok := status.String("source"); ok {
		resp.SourceLabel = s.Model.SourceLabel(source)
	}
	s.sendJSON(w, resp)
}

type switchRequest struct {
	On *bool `json:"on"`
}

func (s *Server) handlePower(w http.ResponseWriter, r *http.Request) {
	zone, ok := s.zone(w, r)
	if !ok {
		return
	}
	var req switchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.On == nil {
		s.sendError(w, "'on' field is required", http.StatusBadRequest)
		return
	}

	if err := s.Controller.SetPower(r.Context(), zone, *req.On); err != nil {
		s.sendFailure(w, err)
		return
	}
	s.Logger.Info("Power switched", "zone", zone, "on", *req.On)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMute(w http.ResponseWriter, r *http.Request) {
	zone, ok := s.zone(w, r)
	if !ok {
		return
	}
	var req switchRequest
	if !s.decode(w, r, &req) {
		return
	}

	var err error
	if req.On == nil {
		err = s.Controller.ToggleMute(r.Context(), zone)
	} else {
		err = s.Controller.SetMute(r.Context(), zone, *req.On)
	}
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	zone, ok := s.zone(w, r)
	if !ok {
		return
	}

	type VolumeRequest struct {
		Level *int   `json:"level"`
		Step  string `json:"step"`
	}
	var req VolumeRequest
	if !s.decode(w, r, &req) {
		return
	}

	var err error
	switch {
	case req.Level != nil:
		err = s.Controller.SetVolume(r.Context(), zone, *req.Level)
	case req.Step == "up":
		err = s.Controller.VolumeUp(r.Context(), zone)
	case req.Step == "down":
		err = s.Controller.VolumeDown(r.Context(), zone)
	default:
		s.sendError(w, "either 'level' or 'step' (up, down) is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	zone, ok := s.zone(w, r)
	if !ok {
		return
	}

	type SourceRequest struct {
		Source string `json:"source"`
	}
	var req SourceRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Source == "" {
		s.sendError(w, "'source' field is required", http.StatusBadRequest)
		return
	}

	code, err := parseSource(s.Model, req.Source)
	if err != nil {
		s.sendFailure(w, err)
		return
	}
	if err := s.Controller.SetSource(r.Context(), zone, code); err != nil {
		s.sendFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCommand runs any command of the receiver's protocol by name
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	type CommandRequest struct {
		Args  dialect.Args `json:"args"`
		Reply bool         `json:"reply"`
	}
	var req CommandRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.Args = commandArgs(req.Args)

	name := r.PathValue("name")
	status, err := s.Controller.SendCommand(r.Context(), name, req.Args, req.Reply)
	if err != nil {
		s.sendFailure(w, err)
		return
	}

	if !req.Reply {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	type CommandResponse struct {
		Command string         `json:"command"`
		Status  dialect.Status `json:"status"`
	}
	s.sendJSON(w, CommandResponse{Command: name, Status: status})
}

// commandArgs turns integral JSON numbers into ints so templates can pad
// them.
func commandArgs(args dialect.Args) dialect.Args {
	for key, value := range args {
		n, ok := value.(json.Number)
		if !ok {
			continue
		}
		if i, err := n.Int64(); err == nil {
			args[key] = int(i)
		} else if f, err := n.Float64(); err == nil {
			args[key] = f
		} else {
			args[key] = n.String()
		}
	}
	return args
}
