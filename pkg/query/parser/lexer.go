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

// Package parser implements the subset of SELECT grammar this system
// accepts as parser input (spec §6: "UTF-8 SQL SELECT text; 4 MiB hard cap
// per statement"): projections, a comma-joined FROM list, a boolean WHERE
// clause of comparisons and qserv_* restrictor calls, GROUP BY, HAVING,
// ORDER BY and LIMIT. It does not attempt general ANSI SQL coverage; joins
// beyond a two-table comma list, subqueries and DML are out of scope.
package parser

import (
	"strings"
	"unicode"

	"github.com/provingground-moe/qserv-sub001/pkg/qerrors"
)

// MaxStatementBytes is the hard cap on parser input (spec §6).
const MaxStatementBytes = 4 << 20

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokPunct
)

type token struct {
	kind tokenKind
	text string
}

// lexer tokenizes SQL text into identifiers, keywords (returned as
// upper-cased idents), numbers, single-quoted strings, and punctuation
// runs of exactly one rune each except for the two-rune comparison
// operators (<=, >=, <>, !=).
type lexer struct {
	src []rune
	pos int
}

func newLexer(sql string) *lexer {
	return &lexer{src: []rune(sql)}
}

func (l *lexer) peekRune() (rune, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos], true
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) && unicode.IsSpace(l.src[l.pos]) {
		l.pos++
	}
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentCont(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// next returns the next token, or a ParseError if the input contains an
// unterminated string literal.
func (l *lexer) next() (token, error) {
	l.skipSpace()
	r, ok := l.peekRune()
	if !ok {
		return token{kind: tokEOF}, nil
	}
	switch {
	case isIdentStart(r):
		start := l.pos
		for l.pos < len(l.src) && isIdentCont(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokIdent, text: string(l.src[start:l.pos])}, nil
	case unicode.IsDigit(r):
		start := l.pos
		for l.pos < len(l.src) && (unicode.IsDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
			l.pos++
		}
		return token{kind: tokNumber, text: string(l.src[start:l.pos])}, nil
	case r == '\'':
		l.pos++
		var b strings.Builder
		for {
			if l.pos >= len(l.src) {
				return token{}, qerrors.New(qerrors.KindParseError, "unterminated string literal")
			}
			if l.src[l.pos] == '\'' {
				l.pos++
				if l.pos < len(l.src) && l.src[l.pos] == '\'' {
					b.WriteRune('\'')
					l.pos++
					continue
				}
				break
			}
			b.WriteRune(l.src[l.pos])
			l.pos++
		}
		return token{kind: tokString, text: b.String()}, nil
	case strings.ContainsRune("<>=!", r):
		start := l.pos
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '=' || (r == '<' && l.src[l.pos] == '>')) {
			l.pos++
		}
		return token{kind: tokPunct, text: string(l.src[start:l.pos])}, nil
	default:
		l.pos++
		return token{kind: tokPunct, text: string(r)}, nil
	}
}

// tokenize reads the full token stream for sql, enforcing MaxStatementBytes.
func tokenize(sql string) ([]token, error) {
	if len(sql) > MaxStatementBytes {
		return nil, qerrors.Newf(qerrors.KindParseError, "statement exceeds %d byte limit", MaxStatementBytes)
	}
	l := newLexer(sql)
	var toks []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokEOF {
			break
		}
		toks = append(toks, tok)
	}
	return toks, nil
}
