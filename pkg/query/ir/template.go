// Copyright 2017 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ir

import "strings"

// ChunkToken and SubChunkToken are the placeholder tokens a rendered
// template carries for a partitioned table reference, later resolved by
// the query mapping (spec §4.3) by string substitution against a concrete
// ChunkSpec. They are deliberately distinct from any legal SQL identifier
// character run so substitution cannot collide with user identifiers.
const (
	ChunkToken    = "%CHUNK%"
	SubChunkToken = "%SUBCHUNK%"
)

// Template accumulates the canonical SQL fragment for a SelectStmt (or
// sub-tree of one) as IR nodes render themselves in turn.
type Template struct {
	b strings.Builder
}

// NewTemplate returns an empty Template ready for rendering into.
func NewTemplate() *Template {
	return &Template{}
}

// WriteString appends s verbatim.
func (t *Template) WriteString(s string) {
	t.b.WriteString(s)
}

// WriteByte appends b verbatim.
func (t *Template) WriteByte(b byte) {
	t.b.WriteByte(b)
}

// String returns the accumulated template text.
func (t *Template) String() string {
	return t.b.String()
}

// Renderable is implemented by every IR node.
type Renderable interface {
	Render(t *Template)
}

// Render renders r into a fresh template and returns the resulting string.
// This is the convenience form most callers (clone-equivalence checks,
// tests) want; the pipeline itself builds one Template per SelectStmt so
// that FROM/WHERE/etc. all append to the same buffer.
func Render(r Renderable) string {
	t := NewTemplate()
	r.Render(t)
	return t.String()
}
