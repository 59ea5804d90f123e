package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vk/depload/internal/unit"
)

// ScriptedSink is a unit.Sink whose behavior is scripted by unit name, the
// file name without directory and extension. It records every call.
type ScriptedSink struct {
	// Needs lists, per unit, the units that must be loaded before it. A unit
	// whose needs are missing fails with KindNameUnresolved.
	Needs map[string][]string
	// Fail makes a unit fail with the given error every time.
	Fail map[string]error

	mu       sync.Mutex
	loaded   map[string]bool
	attempts []string
	unloaded []string
}

var _ unit.Sink = (*ScriptedSink)(nil)

// NewScriptedSink returns a ScriptedSink with the given needs.
func NewScriptedSink(needs map[string][]string) *ScriptedSink {
	return &ScriptedSink{Needs: needs, Fail: make(map[string]error), loaded: make(map[string]bool)}
}

// UnitName maps a path to the name ScriptedSink scripts it by.
func UnitName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (s *ScriptedSink) Load(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := UnitName(path)
	s.attempts = append(s.attempts, name)

	if err, ok := s.Fail[name]; ok {
		return err
	}
	for _, need := range s.Needs[name] {
		if !s.loaded[need] {
			return unit.NameUnresolved(path, fmt.Errorf("%s needs %s", name, need))
		}
	}
	s.loaded[name] = true
	return nil
}

func (s *ScriptedSink) Unload(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := UnitName(path)
	s.unloaded = append(s.unloaded, name)
	delete(s.loaded, name)
	return nil
}

// Attempts returns the unit names passed to Load, in call order.
func (s *ScriptedSink) Attempts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.attempts...)
}

// Unloaded returns the unit names passed to Unload, in call order.
func (s *ScriptedSink) Unloaded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.unloaded...)
}

// IsLoaded reports whether the named unit is loaded.
func (s *ScriptedSink) IsLoaded(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded[name]
}
