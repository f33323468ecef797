package rules

import "fmt"

// InterruptWindow is the bounded opportunity for an Attack's target to answer
// with a Response before the Attack resolves.
type InterruptWindow struct {
	ID           string `json:"id"`
	AttackerID   string `json:"attacker_id"`
	TargetID     string `json:"target_id"`
	CardID       string `json:"card_id"`
	TargetCardID string `json:"target_card_id,omitempty"`
	Chaos        bool   `json:"chaos,omitempty"`
}

// WindowManager tracks the single open interrupt window of a match. It is
// owned by the match actor and is not safe for concurrent use.
type WindowManager struct {
	prefix  string
	next    int
	active  *InterruptWindow
	history []string
}

// NewWindowManager creates a manager whose window ids start with prefix.
func NewWindowManager(prefix string) *WindowManager {
	return &WindowManager{
		prefix:  prefix,
		history: make([]string, 0, 16),
	}
}

// Open starts a new window. Only one window may be open at a time.
func (wm *WindowManager) Open(attackerID, targetID, cardID, targetCardID string, chaos bool) (*InterruptWindow, error) {
	if wm.active != nil {
		return nil, fmt.Errorf("interrupt window %s already open", wm.active.ID)
	}
	wm.next++
	wm.active = &InterruptWindow{
		ID:           fmt.Sprintf("%s-w%d", wm.prefix, wm.next),
		AttackerID:   attackerID,
		TargetID:     targetID,
		CardID:       cardID,
		TargetCardID: targetCardID,
		Chaos:        chaos,
	}
	return wm.active, nil
}

// Close ends the window identified by id.
func (wm *WindowManager) Close(id string) error {
	if wm.active == nil {
		return fmt.Errorf("no interrupt window open")
	}
	if wm.active.ID != id {
		return fmt.Errorf("window mismatch: expected %s, got %s", wm.active.ID, id)
	}
	wm.history = append(wm.history, id)
	wm.active = nil
	return nil
}

// Active returns the open window or nil.
func (wm *WindowManager) Active() *InterruptWindow {
	return wm.active
}

// IsOpen reports whether a window is currently open.
func (wm *WindowManager) IsOpen() bool {
	return wm.active != nil
}

// IsCurrent reports whether id names the open window. Timeouts carrying a
// stale id are ignored by the engine.
func (wm *WindowManager) IsCurrent(id string) bool {
	return wm.active != nil && wm.active.ID == id
}

// Closed returns how many windows have been resolved.
func (wm *WindowManager) Closed() int {
	return len(wm.history)
}
