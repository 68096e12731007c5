package pipeline

import "sync"

// ProcessSlot carries one Handle from the step that starts a process to the
// step that releases it. The handle is terminated at most once.
type ProcessSlot struct {
	mu       sync.Mutex
	handle   Handle
	released bool
}

// Hold stores h. It reports false, and keeps the current handle, when the
// slot is already occupied or has been released.
func (s *ProcessSlot) Hold(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h == nil || s.handle != nil || s.released {
		return false
	}
	s.handle = h
	return true
}

// Release terminates the held handle. Only the first call has an effect.
func (s *ProcessSlot) Release() error {
	s.mu.Lock()
	h := s.handle
	s.handle = nil
	s.released = true
	s.mu.Unlock()

	if h == nil {
		return nil
	}
	return h.Terminate()
}

// Held reports whether a handle is waiting to be released.
func (s *ProcessSlot) Held() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil
}
