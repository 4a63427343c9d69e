package input

import (
	"sync"

	"github.com/gwillem/flexpendant/pkg/robot"
)

// DeviceID names an object that can be held in a hand.
type DeviceID string

// Holdings tracks which object, if any, each hand is holding.
type Holdings struct {
	mu   sync.RWMutex
	held [2]DeviceID
}

// Hold records that hand picked up id, replacing anything it held.
func (h *Holdings) Hold(hand robot.Hand, id DeviceID) {
	if !hand.Valid() {
		return
	}
	h.mu.Lock()
	h.held[hand] = id
	h.mu.Unlock()
}

// Release empties hand.
func (h *Holdings) Release(hand robot.Hand) {
	h.Hold(hand, "")
}

// HeldObject returns the object in hand, if any.
func (h *Holdings) HeldObject(hand robot.Hand) (DeviceID, bool) {
	if !hand.Valid() {
		return "", false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	id := h.held[hand]
	return id, id != ""
}
