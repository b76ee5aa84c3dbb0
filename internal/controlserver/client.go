// Package controlserver is a client for the observatory control server's
// REST API.
package controlserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/obsctl/internal/errors"
	"codeberg.org/mutker/obsctl/internal/logger"
)

const (
	PathMountStatus    = "/telescope/mount_status"
	PathDomeStatus     = "/dome/status"
	PathDomeSyncStatus = "/dome/sync/status"
	PathTemperatures   = "/telescope/temperatures"
	PathSystemStatus   = "/system/status"
	PathTime           = "/telescope/time"

	maxErrorBody = 4096
)

// Client talks to the control server. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the API rooted at baseURL, e.g.
// "http://localhost:8000/api".
func New(baseURL string, timeout time.Duration) (*Client, error) {
	errFactory := errors.New()

	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errFactory.WithData(ErrInvalidBaseURL, baseURL)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// MountStatus fetches the mount's pointing and tracking state.
func (c *Client) MountStatus(ctx context.Context) (*MountStatus, error) {
	var out MountStatus
	if err := c.get(ctx, PathMountStatus, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DomeStatus fetches dome azimuth, motion and shutter state.
func (c *Client) DomeStatus(ctx context.Context) (*DomeStatus, error) {
	var out DomeStatus
	if err := c.get(ctx, PathDomeStatus, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DomeSyncStatus fetches whether the dome is slaved to the telescope.
func (c *Client) DomeSyncStatus(ctx context.Context) (*DomeSyncStatus, error) {
	var out DomeSyncStatus
	if err := c.get(ctx, PathDomeSyncStatus, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Temperatures fetches the motor and electronics temperature sensors.
func (c *Client) Temperatures(ctx context.Context) (*Temperatures, error) {
	var out Temperatures
	if err := c.get(ctx, PathTemperatures, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SystemStatus fetches host metrics of the control computer.
func (c *Client) SystemStatus(ctx context.Context) (*SystemStatus, error) {
	var out SystemStatus
	if err := c.get(ctx, PathSystemStatus, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Time fetches local, UTC and sidereal time as seen by the mount.
func (c *Client) Time(ctx context.Context) (*TimeStatus, error) {
	var out TimeStatus
	if err := c.get(ctx, PathTime, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetTarget stores target coordinates for the next slew.
func (c *Client) SetTarget(ctx context.Context, target Target) error {
	return c.post(ctx, "/telescope/target", nil, target)
}

// Slew starts a slew to the stored target.
func (c *Client) Slew(ctx context.Context, opts SlewOptions) error {
	if opts.SlewType != SlewEquatorial && opts.SlewType != SlewAltAz {
		return errors.New().WithData(ErrInvalidSlewType, opts.SlewType)
	}
	return c.post(ctx, "/telescope/slew", nil, opts)
}

// SlewTo sets the target and then issues the slew.
func (c *Client) SlewTo(ctx context.Context, target Target, opts SlewOptions) error {
	if err := c.SetTarget(ctx, target); err != nil {
		return err
	}
	return c.Slew(ctx, opts)
}

// SetTracking starts or stops sidereal tracking.
func (c *Client) SetTracking(ctx context.Context, tracking bool) error {
	action := "stop"
	if tracking {
		action = "start"
	}
	return c.post(ctx, "/telescope/tracking/"+action, nil, nil)
}

// Flip requests a meridian flip.
func (c *Client) Flip(ctx context.Context) error {
	return c.post(ctx, "/telescope/flip", nil, nil)
}

// Park sends the mount to its park position.
func (c *Client) Park(ctx context.Context) error {
	return c.post(ctx, "/telescope/park", nil, nil)
}

// Unpark releases the mount from its park position.
func (c *Client) Unpark(ctx context.Context) error {
	return c.post(ctx, "/telescope/unpark", nil, nil)
}

// Nudge moves the mount in a direction for a fixed duration.
func (c *Client) Nudge(ctx context.Context, dir Direction, duration time.Duration) error {
	if !dir.Valid() {
		return errors.New().WithData(ErrInvalidDirection, dir)
	}
	q := url.Values{}
	q.Set("direction", string(dir))
	q.Set("duration_ms", strconv.FormatInt(duration.Milliseconds(), 10))
	return c.post(ctx, "/telescope/nudge", q, nil)
}

// Move starts a continuous move until Halt is called.
func (c *Client) Move(ctx context.Context, dir Direction) error {
	if !dir.Valid() {
		return errors.New().WithData(ErrInvalidDirection, dir)
	}
	q := url.Values{}
	q.Set("direction", string(dir))
	return c.post(ctx, "/telescope/move", q, nil)
}

// Halt stops motion in one direction, or all motion when dir is empty.
func (c *Client) Halt(ctx context.Context, dir Direction) error {
	if dir != "" && !dir.Valid() {
		return errors.New().WithData(ErrInvalidDirection, dir)
	}
	return c.post(ctx, "/telescope/halt", nil, struct {
		Direction Direction `json:"direction"`
	}{dir})
}

// Stop aborts any slew or move.
func (c *Client) Stop(ctx context.Context) error {
	return c.post(ctx, "/telescope/stop", nil, nil)
}

// SetDomeSlave enables or disables dome-to-telescope synchronisation.
func (c *Client) SetDomeSlave(ctx context.Context, slave bool) error {
	return c.post(ctx, "/dome/sync", nil, struct {
		Slave bool `json:"slave"`
	}{slave})
}

// SlewDome rotates the dome to an azimuth in degrees.
func (c *Client) SlewDome(ctx context.Context, azimuth float64) error {
	return c.post(ctx, "/dome/slew", nil, struct {
		Az float64 `json:"az"`
	}{azimuth})
}

// OpenShutter opens the dome shutter.
func (c *Client) OpenShutter(ctx context.Context) error {
	return c.post(ctx, "/shutter/open", nil, nil)
}

// CloseShutter closes the dome shutter.
func (c *Client) CloseShutter(ctx context.Context) error {
	return c.post(ctx, "/shutter/close", nil, nil)
}

// StopDome stops dome rotation.
func (c *Client) StopDome(ctx context.Context) error {
	return c.post(ctx, "/dome/stop", nil, nil)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, nil, out)
}

func (c *Client) post(ctx context.Context, path string, query url.Values, body any) error {
	return c.do(ctx, http.MethodPost, path, query, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	errFactory := errors.New()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errFactory.Wrap(ErrBuildRequest, err).WithData(path)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return errFactory.Wrap(ErrBuildRequest, err).WithData(path)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errFactory.Wrap(ErrUnreachable, err).WithData(path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errFactory.WithData(ErrBadStatus, StatusError{
			Path:       path,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(msg)),
		})
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errFactory.Wrap(ErrDecode, err).WithData(path)
	}

	logger.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("control server request")

	return nil
}
