// Package tray provides the optional desktop menu of the hand cricket game.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/handcricket/internal/app"
	"github.com/ayusman/handcricket/internal/gesture"
	"github.com/ayusman/handcricket/internal/match"
)

// Tray is the system tray menu: gesture toggle, camera restart, last gesture
// and score.
type Tray struct {
	onToggle  func(enabled bool)
	onRestart func()
	onQuit    func()
	enabled   bool
	mu        sync.RWMutex

	menuToggle  *systray.MenuItem
	menuGesture *systray.MenuItem
	menuScore   *systray.MenuItem
	menuCamera  *systray.MenuItem
}

// New creates a Tray showing the given initial gesture toggle.
func New(enabled bool) *Tray {
	return &Tray{enabled: enabled}
}

// OnToggle sets the callback for the gesture toggle.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnRestartCamera sets the callback for the camera restart item.
func (t *Tray) OnRestartCamera(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRestart = fn
}

// OnQuit sets the callback for the quit item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the tray. It blocks until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Hand Cricket")
	systray.SetTooltip("Hand Cricket")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle gesture input")
	menuRestart := systray.AddMenuItem("Restart Camera", "Restart the camera feed")
	systray.AddSeparator()

	t.menuGesture = systray.AddMenuItem("Last: none", "Last stabilized gesture")
	t.menuGesture.Disable()
	t.menuScore = systray.AddMenuItem("Score: -", "Current match")
	t.menuScore.Disable()
	t.menuCamera = systray.AddMenuItem("Camera: stopped", "Camera state")
	t.menuCamera.Disable()
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Hand Cricket")
	t.mu.Unlock()

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuRestart.ClickedCh:
				t.handleRestart()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Gestures On"
	}
	return "○ Gestures Off"
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Outside the lock: the callback may publish events back into the tray.
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleRestart() {
	t.mu.RLock()
	callback := t.onRestart
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
	systray.Quit()
}

// IsEnabled returns the toggle state shown in the menu.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Update refreshes the menu from a game event. It is an app subscriber.
func (t *Tray) Update(ev app.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case ev.Gesture != nil:
		if t.menuGesture != nil {
			t.menuGesture.SetTitle(gestureTitle(ev.Gesture.Symbol))
		}
	case ev.Match != nil:
		if t.menuScore != nil {
			t.menuScore.SetTitle(ScoreTitle(ev.Match.State))
		}
	case ev.Camera != nil:
		if t.menuCamera != nil {
			t.menuCamera.SetTitle("Camera: " + ev.Camera.State.String())
		}
	case ev.Status != nil:
		t.enabled = ev.Status.GesturesEnabled
		if t.menuToggle != nil {
			t.menuToggle.SetTitle(toggleTitle(t.enabled))
		}
	}
}

func gestureTitle(s gesture.Symbol) string {
	return "Last: " + s.String()
}

// ScoreTitle renders a one-line score for the menu.
func ScoreTitle(s match.State) string {
	switch s.Phase {
	case match.PhaseToss:
		return "Score: waiting for toss"
	case match.PhaseGameOver:
		return fmt.Sprintf("Final: You %d - %d AI (%s)", s.PlayerScore, s.AIScore, s.Result)
	}
	line := fmt.Sprintf("You %d - %d AI", s.PlayerScore, s.AIScore)
	if s.HasTarget() {
		line += fmt.Sprintf(", target %d", s.Target)
	}
	return line
}
