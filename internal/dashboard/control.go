package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"codeberg.org/mutker/obsctl/internal/controlserver"
	"codeberg.org/mutker/obsctl/internal/errors"
	"codeberg.org/mutker/obsctl/internal/logger"
)

const errControlInvalid = errors.ErrorCode("dashboard_invalid_control_request")

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

type directionRequest struct {
	Direction  controlserver.Direction `json:"direction"`
	DurationMs int64                   `json:"durationMs"`
}

type slewRequest struct {
	controlserver.Target
	SlewType controlserver.SlewType `json:"slewType"`
	PierSide string                 `json:"pierSide"`
}

type domeSlewRequest struct {
	Azimuth *float64 `json:"azimuth"`
}

// controlOp runs one proxied mutation. decode is nil for body-less calls.
type controlOp struct {
	name   string
	decode func(r *http.Request) (func(ctx context.Context, c Controller) error, error)
}

func (s *Server) registerControlEndpoints(mux *http.ServeMux) {
	noBody := func(call func(ctx context.Context, c Controller) error) func(*http.Request) (func(context.Context, Controller) error, error) {
		return func(*http.Request) (func(context.Context, Controller) error, error) {
			return call, nil
		}
	}

	ops := map[string]controlOp{
		"/api/telescope/tracking": {"tracking", func(r *http.Request) (func(context.Context, Controller) error, error) {
			var req enabledRequest
			if err := decodeBody(r, &req); err != nil {
				return nil, err
			}
			if req.Enabled == nil {
				return nil, errors.New().WithMessage(errControlInvalid, "enabled is required")
			}
			return func(ctx context.Context, c Controller) error { return c.SetTracking(ctx, *req.Enabled) }, nil
		}},
		"/api/telescope/flip":   {"flip", noBody(func(ctx context.Context, c Controller) error { return c.Flip(ctx) })},
		"/api/telescope/park":   {"park", noBody(func(ctx context.Context, c Controller) error { return c.Park(ctx) })},
		"/api/telescope/unpark": {"unpark", noBody(func(ctx context.Context, c Controller) error { return c.Unpark(ctx) })},
		"/api/telescope/stop":   {"stop", noBody(func(ctx context.Context, c Controller) error { return c.Stop(ctx) })},
		"/api/telescope/halt": {"halt", directionOp(func(ctx context.Context, c Controller, req directionRequest) error {
			return c.Halt(ctx, req.Direction)
		})},
		"/api/telescope/move": {"move", directionOp(func(ctx context.Context, c Controller, req directionRequest) error {
			return c.Move(ctx, req.Direction)
		})},
		"/api/telescope/nudge": {"nudge", directionOp(func(ctx context.Context, c Controller, req directionRequest) error {
			return c.Nudge(ctx, req.Direction, time.Duration(req.DurationMs)*time.Millisecond)
		})},
		"/api/telescope/slew": {"slew", func(r *http.Request) (func(context.Context, Controller) error, error) {
			var req slewRequest
			if err := decodeBody(r, &req); err != nil {
				return nil, err
			}
			if req.SlewType == "" {
				req.SlewType = controlserver.SlewEquatorial
			}
			return func(ctx context.Context, c Controller) error {
				return c.SlewTo(ctx, req.Target, controlserver.SlewOptions{SlewType: req.SlewType, PierSide: req.PierSide})
			}, nil
		}},
		"/api/dome/slew": {"dome_slew", func(r *http.Request) (func(context.Context, Controller) error, error) {
			var req domeSlewRequest
			if err := decodeBody(r, &req); err != nil {
				return nil, err
			}
			if req.Azimuth == nil || *req.Azimuth < 0 || *req.Azimuth >= 360 {
				return nil, errors.New().WithMessage(errControlInvalid, "azimuth must be in [0, 360)")
			}
			return func(ctx context.Context, c Controller) error { return c.SlewDome(ctx, *req.Azimuth) }, nil
		}},
		"/api/dome/sync": {"dome_sync", func(r *http.Request) (func(context.Context, Controller) error, error) {
			var req enabledRequest
			if err := decodeBody(r, &req); err != nil {
				return nil, err
			}
			if req.Enabled == nil {
				return nil, errors.New().WithMessage(errControlInvalid, "enabled is required")
			}
			return func(ctx context.Context, c Controller) error { return c.SetDomeSlave(ctx, *req.Enabled) }, nil
		}},
		"/api/dome/shutter/open":  {"shutter_open", noBody(func(ctx context.Context, c Controller) error { return c.OpenShutter(ctx) })},
		"/api/dome/shutter/close": {"shutter_close", noBody(func(ctx context.Context, c Controller) error { return c.CloseShutter(ctx) })},
		"/api/dome/stop":          {"dome_stop", noBody(func(ctx context.Context, c Controller) error { return c.StopDome(ctx) })},
	}

	for path, op := range ops {
		mux.Handle("POST "+path, s.controlHandler(op))
	}
}

func directionOp(call func(ctx context.Context, c Controller, req directionRequest) error) func(*http.Request) (func(context.Context, Controller) error, error) {
	return func(r *http.Request) (func(context.Context, Controller) error, error) {
		var req directionRequest
		if err := decodeBody(r, &req); err != nil {
			return nil, err
		}
		if !req.Direction.Valid() {
			return nil, errors.New().WithData(errControlInvalid, struct {
				Direction string
			}{string(req.Direction)})
		}
		return func(ctx context.Context, c Controller) error { return call(ctx, c, req) }, nil
	}
}

func (s *Server) controlHandler(op controlOp) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.control == nil {
			writeError(w, errors.New().WithMessage(errors.ErrUnavailable, "control server not configured"))
			return
		}

		call, err := op.decode(r)
		if err != nil {
			writeError(w, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), controlTimeout)
		defer cancel()

		start := time.Now()
		err = call(ctx, s.control)
		s.recorder.ObserveControl(op.name, time.Since(start), err)

		if err != nil {
			appErr := errors.New().Wrap(errors.ErrControlRequest, err).WithData(op.name)
			logger.ErrorWithCode(appErr).Str("op", op.name).Msg("Control request failed")
			writeError(w, appErr)
			return
		}

		logger.Info().Str("op", op.name).Msg("Control request forwarded")
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New().Wrap(errors.ErrInvalidArgument, err)
	}
	return nil
}
