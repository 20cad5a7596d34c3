// Package camera manages exclusive access to the capture device. The
// recognition loop acquires a session, reads frames, and releases it;
// a second acquire while a session is live is refused instead of
// fighting over the hardware.
package camera

import (
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
)

// ErrBusy is returned by Acquire while another session holds the device.
var ErrBusy = errors.New("camera already in use")

// ErrReleased is returned by ReadFrame after the session was released.
var ErrReleased = errors.New("camera session released")

// Device is the capture hardware. Implementations are not required to
// be goroutine safe; the Session serializes access.
type Device interface {
	Open() error
	// Read returns the next frame. An error means the frame could not
	// be captured; the device may still recover on the next call.
	Read() (image.Image, error)
	Close() error
}

// State tracks the session lifecycle.
type State int

const (
	StateIdle State = iota
	StateActive
	StateReleased
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateReleased:
		return "released"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Manager hands out exclusive sessions over a single device.
type Manager struct {
	device Device

	mu     sync.Mutex
	active *Session
}

// NewManager creates a manager for the device.
func NewManager(device Device) *Manager {
	return &Manager{device: device}
}

// Acquire opens the device and returns an active session. Returns
// ErrBusy while another session holds the device.
func (m *Manager) Acquire() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return nil, ErrBusy
	}
	if err := m.device.Open(); err != nil {
		return nil, fmt.Errorf("could not open camera: %w", err)
	}

	s := &Session{manager: m, device: m.device, state: StateActive}
	m.active = s
	log.Printf("camera acquired")
	return s, nil
}

// Busy reports whether a session is currently live.
func (m *Manager) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

func (m *Manager) release(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == s {
		m.active = nil
	}
}

// Session is one exclusive hold on the device.
type Session struct {
	manager *Manager
	device  Device

	mu    sync.Mutex
	state State
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ReadFrame grabs the next frame from the device.
func (s *Session) ReadFrame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return nil, ErrReleased
	}
	img, err := s.device.Read()
	if err != nil {
		return nil, fmt.Errorf("frame read failed: %w", err)
	}
	return img, nil
}

// Release closes the device and frees it for the next session. Safe to
// call more than once.
func (s *Session) Release() {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return
	}
	s.state = StateReleased
	s.mu.Unlock()

	if err := s.device.Close(); err != nil {
		log.Printf("closing camera: %v", err)
	}
	s.manager.release(s)
	log.Printf("camera released")
}

// Fail marks the session broken after repeated read errors and frees
// the device like Release. The distinct state shows up in diagnostics.
func (s *Session) Fail() {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return
	}
	s.state = StateFailed
	s.mu.Unlock()

	if err := s.device.Close(); err != nil {
		log.Printf("closing camera: %v", err)
	}
	s.manager.release(s)
	log.Printf("camera session failed, device released")
}
