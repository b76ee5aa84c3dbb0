package state

import "encoding/json"

// HistoryCapacity is the number of motor temperature records retained.
const HistoryCapacity = 100

// HistoryRecord is one motor temperature sample for time-series display.
type HistoryRecord struct {
	Timestamp string `json:"time"`
	MotorReadings
}

// History is a fixed-capacity ring of the most recent records in arrival
// order. It has value semantics: copying a History copies the ring, so an
// Observatory snapshot never aliases the history of its successor.
type History struct {
	buf   [HistoryCapacity]HistoryRecord
	start int
	n     int
}

// Append adds r, evicting the oldest record once the ring is full.
func (h *History) Append(r HistoryRecord) {
	if h.n < HistoryCapacity {
		h.buf[(h.start+h.n)%HistoryCapacity] = r
		h.n++
		return
	}
	h.buf[h.start] = r
	h.start = (h.start + 1) % HistoryCapacity
}

// Len returns the number of stored records.
func (h *History) Len() int {
	return h.n
}

// Records returns the stored records, oldest first.
func (h *History) Records() []HistoryRecord {
	out := make([]HistoryRecord, h.n)
	for i := 0; i < h.n; i++ {
		out[i] = h.buf[(h.start+i)%HistoryCapacity]
	}
	return out
}

func (h History) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Records())
}
