//go:build !whispercpp

package engine

import "errors"

// NativeAvailable reports whether the whisper.cpp backend was compiled in.
func NativeAvailable() bool { return false }

// NewNativeEngine is unavailable without the whispercpp build tag.
func NewNativeEngine(modelPath string) (Engine, error) {
	_ = modelPath
	return nil, errors.New("whisper: native backend disabled at build time")
}
