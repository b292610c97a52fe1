// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package aligner

import "strings"

// OptionCodes is a parsed getopt-style allow-list, e.g. "1paMCSPVYJk:c:".
// A code followed by ':' takes a value.
type OptionCodes struct {
	raw     string
	allowed string
	// known[c] is set iff c is allowed; takesValue[c] iff it also takes a
	// value.
	known      [256]bool
	takesValue [256]bool
}

// ParseOptionCodes parses the allow-list published by the engine.
func ParseOptionCodes(list string) OptionCodes {
	c := OptionCodes{raw: list}
	var allowed strings.Builder
	for i := 0; i < len(list); i++ {
		ch := list[i]
		if ch == ':' {
			continue
		}
		c.known[ch] = true
		allowed.WriteByte(ch)
		if i+1 < len(list) && list[i+1] == ':' {
			c.takesValue[ch] = true
		}
	}
	c.allowed = allowed.String()
	return c
}

// String returns the allow-list as published by the engine.
func (c OptionCodes) String() string { return c.raw }

// Allowed returns the option codes with the value markers stripped.
func (c OptionCodes) Allowed() string { return c.allowed }

// Known reports whether ch is an allowed option code.
func (c OptionCodes) Known(ch byte) bool { return c.known[ch] }

// TakesValue reports whether option code ch takes a value.
func (c OptionCodes) TakesValue(ch byte) bool { return c.takesValue[ch] }

// Validate checks option tokens the way getopt would consume them. Each token
// starting with '-' is a cluster of option codes; every code must be known. A
// value-taking code consumes the rest of its token, or the following token if
// nothing is left, as its value. Value tokens and other non-dash tokens are not
// checked. The first offending token is reported as an *OptionError.
func (c OptionCodes) Validate(tokens []string) error {
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if len(tok) == 0 || tok[0] != '-' {
			continue
		}
		if len(tok) == 1 {
			return &OptionError{Option: tok, Allowed: c.allowed}
		}
		for j := 1; j < len(tok); j++ {
			ch := tok[j]
			if !c.known[ch] {
				return &OptionError{Option: tok, Allowed: c.allowed}
			}
			if c.takesValue[ch] {
				if j == len(tok)-1 {
					i++ // value is the next token
				}
				break
			}
		}
	}
	return nil
}

// Split separates command line arguments into bwa option tokens and the
// remaining positional arguments, using the allow-list to decide which tokens
// are option values. Unknown dash tokens are kept as options so that Validate
// can report them.
func (c OptionCodes) Split(args []string) (options, positional []string) {
	for i := 0; i < len(args); i++ {
		tok := args[i]
		if len(tok) < 2 || tok[0] != '-' {
			if tok == "-" {
				options = append(options, tok)
				continue
			}
			positional = append(positional, tok)
			continue
		}
		options = append(options, tok)
		for j := 1; j < len(tok); j++ {
			ch := tok[j]
			if !c.known[ch] {
				break
			}
			if c.takesValue[ch] {
				if j == len(tok)-1 && i+1 < len(args) {
					i++
					options = append(options, args[i])
				}
				break
			}
		}
	}
	return
}
