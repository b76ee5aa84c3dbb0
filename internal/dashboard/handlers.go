package dashboard

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"

	"codeberg.org/mutker/obsctl/internal/errors"
	"codeberg.org/mutker/obsctl/internal/kinematics"
	"codeberg.org/mutker/obsctl/internal/logger"
	"codeberg.org/mutker/obsctl/internal/settings"
)

const (
	maxBodyBytes    = 64 << 10
	contentTypeTOML = "application/toml"
)

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	obs := s.store.Snapshot()
	writeJSON(w, http.StatusOK, obs.Motors.History.Records())
}

func (s *Server) handleAngles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, kinematics.Compute(s.store.Snapshot(), s.settings.Geometry()))
}

// handleGetGeometry returns JSON, or a TOML preset with ?format=toml.
func (s *Server) handleGetGeometry(w http.ResponseWriter, r *http.Request) {
	g := s.settings.Geometry()

	if r.URL.Query().Get("format") != "toml" {
		writeJSON(w, http.StatusOK, g)
		return
	}

	data, err := settings.EncodePreset(g)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentTypeTOML)
	w.Header().Set("Content-Disposition", `attachment; filename="geometry.toml"`)
	w.Write(data)
}

// handlePutGeometry accepts a full JSON geometry or a TOML preset.
func (s *Server) handlePutGeometry(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, errors.New().Wrap(errors.ErrInvalidArgument, err))
		return
	}

	var g settings.Geometry
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == contentTypeTOML {
		g, err = settings.DecodePreset(body)
	} else {
		g = settings.DefaultGeometry()
		if jsonErr := json.Unmarshal(body, &g); jsonErr != nil {
			err = errors.New().Wrap(errors.ErrInvalidArgument, jsonErr)
		}
	}
	if err != nil {
		writeError(w, err)
		return
	}

	rev, err := s.settings.Update(r.Context(), g)
	if err != nil {
		writeError(w, err)
		return
	}

	// Renderers need new angles when the geometry changes. If a commit
	// overtakes this publish, clients discard it by seq.
	s.Publish(s.store.Snapshot())

	writeJSON(w, http.StatusOK, struct {
		Revision int64             `json:"revision"`
		Geometry settings.Geometry `json:"geometry"`
	}{rev.Number, g})
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Debug().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	var body errorBody
	body.Error.Message = err.Error()
	body.Error.Code = string(errors.ErrInternal)

	var appErr errors.Error
	if errors.As(err, &appErr) {
		body.Error.Code = string(appErr.Code())
	}

	writeJSON(w, statusFor(err), body)
}

func statusFor(err error) int {
	switch {
	case errors.HasCode(err, errors.ErrInvalidArgument),
		errors.HasCode(err, settings.ErrInvalidGeometry),
		errors.HasCode(err, settings.ErrPresetDecode),
		errors.HasCode(err, errControlInvalid):
		return http.StatusBadRequest
	case errors.HasCode(err, errors.ErrUnreachable),
		errors.HasCode(err, errors.ErrSourceStatus),
		errors.HasCode(err, errors.ErrSourceDecode):
		return http.StatusBadGateway
	case errors.HasCode(err, errors.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.HasCode(err, errors.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
