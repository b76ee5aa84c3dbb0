package metrics

import (
	"net/http"
	"time"

	"codeberg.org/mutker/obsctl/internal/acquisition"
	"codeberg.org/mutker/obsctl/internal/state"
)

// Sink is everything the daemon reports about itself.
type Sink interface {
	acquisition.Recorder
	ObserveCommit(accepted bool)
	SetConnection(status state.ConnectionStatus)
	SetClients(n int)
	ObserveControl(op string, d time.Duration, err error)
	Handler() http.Handler
}

// Error classes used as the "result" label.
const (
	ResultOK          = "ok"
	ResultUnreachable = "unreachable"
	ResultBadStatus   = "bad_status"
	ResultDecode      = "decode"
	ResultError       = "error"
)
