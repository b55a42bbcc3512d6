// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package main

import (
	"bytes"
	"sync"
)

// SafeWriter is a buffer that run can log into while the test reads it.
type SafeWriter struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (w *SafeWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.b.Write(p)
}

// Bytes returns a copy of everything written so far.
func (w *SafeWriter) Bytes() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return bytes.Clone(w.b.Bytes())
}
