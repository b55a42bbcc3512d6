// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package profile

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// SuffixLength is the number of trailing characters stripped from a profile
// name to derive its routing context name (".hcl", ".xml").
const SuffixLength = 4

var (
	// ErrMalformedLine is returned for a descriptor line with no profile name.
	ErrMalformedLine = errors.New("malformed profile line")
	// ErrNameTooShort is returned when a profile name leaves nothing once the
	// suffix is stripped.
	ErrNameTooShort = errors.New("profile name too short")
)

// separator splits a descriptor line on a comma and any whitespace after it.
var separator = regexp.MustCompile(`,\s*`)

// Ref is the parsed form of a descriptor line.
type Ref struct {
	Scope    string
	HasScope bool
	Name     string
}

// String renders the reference back into descriptor line form.
func (r Ref) String() string {
	if r.HasScope {
		return r.Scope + "," + r.Name
	}
	return r.Name
}

// Parse turns a descriptor line into a Ref. A single token is a bare profile
// name; with two or more tokens the first is the scope and the second the
// name. Anything past the second token is ignored.
func Parse(line string) (Ref, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Ref{}, fmt.Errorf("%w: line is empty", ErrMalformedLine)
	}

	parts := separator.Split(trimmed, -1)
	// Trailing empty tokens carry no information: "billing.hcl," is a bare name.
	for len(parts) > 0 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	switch len(parts) {
	case 0:
		return Ref{}, fmt.Errorf("%w: %q has no profile name", ErrMalformedLine, line)
	case 1:
		return Ref{Name: strings.TrimSpace(parts[0])}, nil
	}

	ref := Ref{
		Scope:    strings.TrimSpace(parts[0]),
		HasScope: true,
		Name:     strings.TrimSpace(parts[1]),
	}
	if ref.Name == "" {
		return Ref{}, fmt.Errorf("%w: %q has no profile name", ErrMalformedLine, line)
	}
	if ref.Scope == "" {
		ref.HasScope = false
	}
	return ref, nil
}

// Accepts reports whether ref applies to currentScope: either it carries no
// scope, or its scope equals currentScope ignoring case.
func Accepts(ref Ref, currentScope string) bool {
	if !ref.HasScope {
		return true
	}
	return strings.EqualFold(ref.Scope, currentScope)
}

// DerivedName strips the trailing SuffixLength characters from a profile
// name. Names that would end up empty are rejected.
func DerivedName(name string) (string, error) {
	r := []rune(name)
	if len(r) <= SuffixLength {
		return "", fmt.Errorf("%w: %q must be longer than %d characters", ErrNameTooShort, name, SuffixLength)
	}
	return string(r[:len(r)-SuffixLength]), nil
}
