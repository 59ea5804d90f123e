// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package lifecycle

// State is the load state of a Controller.
type State int32

const (
	Unloaded State = iota
	Loading
	Loaded
	Reloading
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Reloading:
		return "reloading"
	default:
		return "unloaded"
	}
}
