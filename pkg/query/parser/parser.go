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

package parser

import (
	"strconv"
	"strings"

	"github.com/provingground-moe/qserv-sub001/pkg/qerrors"
	"github.com/provingground-moe/qserv-sub001/pkg/query/ir"
)

var cmpOps = map[string]bool{"=": true, "<": true, ">": true, "<=": true, ">=": true, "<>": true, "!=": true}

type parser struct {
	toks []token
	pos  int
}

// Parse parses sql (a single SELECT statement) into a SelectStmt.
func Parse(sql string) (*ir.SelectStmt, error) {
	toks, err := tokenize(sql)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	stmt, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	if !p.atEOF() {
		return nil, qerrors.Newf(qerrors.KindParseError, "unexpected trailing input near %q", p.cur().text)
	}
	return stmt, nil
}

func (p *parser) cur() token {
	if p.pos >= len(p.toks) {
		return token{kind: tokEOF}
	}
	return p.toks[p.pos]
}

func (p *parser) atEOF() bool { return p.pos >= len(p.toks) }

func (p *parser) advance() token {
	t := p.cur()
	p.pos++
	return t
}

func (p *parser) isKeyword(kw string) bool {
	t := p.cur()
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

func (p *parser) eatKeyword(kw string) bool {
	if p.isKeyword(kw) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectKeyword(kw string) error {
	if !p.eatKeyword(kw) {
		return qerrors.Newf(qerrors.KindParseError, "expected %s near %q", kw, p.cur().text)
	}
	return nil
}

func (p *parser) expectPunct(s string) error {
	t := p.cur()
	if t.kind != tokPunct || t.text != s {
		return qerrors.Newf(qerrors.KindParseError, "expected %q near %q", s, t.text)
	}
	p.pos++
	return nil
}

func (p *parser) isPunct(s string) bool {
	t := p.cur()
	return t.kind == tokPunct && t.text == s
}

func (p *parser) parseSelect() (*ir.SelectStmt, error) {
	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}
	stmt := ir.NewSelectStmt()
	stmt.HasDistinct = p.eatKeyword("DISTINCT")

	selectList, err := p.parseSelectList()
	if err != nil {
		return nil, err
	}
	stmt.SelectList = selectList

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	fromList, err := p.parseFromList()
	if err != nil {
		return nil, err
	}
	stmt.FromList = fromList

	if p.eatKeyword("WHERE") {
		where, err := p.parseOrExpr()
		if err != nil {
			return nil, err
		}
		stmt.WhereClause = where
	}

	if p.eatKeyword("GROUP") {
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		exprs, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		stmt.GroupBy = ir.NewGroupBy(exprs...)
	}

	if p.eatKeyword("HAVING") {
		having, err := p.parseOrExpr()
		if err != nil {
			return nil, err
		}
		stmt.Having = having
	}

	if p.eatKeyword("ORDER") {
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		orderBy, err := p.parseOrderByList()
		if err != nil {
			return nil, err
		}
		stmt.OrderBy = orderBy
	}

	if p.eatKeyword("LIMIT") {
		t := p.advance()
		if t.kind != tokNumber {
			return nil, qerrors.Newf(qerrors.KindParseError, "expected number after LIMIT, got %q", t.text)
		}
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, qerrors.Wrap(qerrors.KindParseError, err)
		}
		stmt.Limit = int(n)
	}

	return stmt, nil
}

func (p *parser) parseSelectList() (*ir.SelectList, error) {
	var terms []*ir.SelectTerm
	for {
		expr, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		term := &ir.SelectTerm{Expr: expr}
		if p.eatKeyword("AS") {
			t := p.advance()
			if t.kind != tokIdent {
				return nil, qerrors.Newf(qerrors.KindParseError, "expected alias after AS, got %q", t.text)
			}
			term.Alias = t.text
		} else if p.cur().kind == tokIdent && !isReservedAfterExpr(p.cur().text) {
			term.Alias = p.advance().text
		}
		terms = append(terms, term)
		if !p.isPunct(",") {
			break
		}
		p.pos++
	}
	return ir.NewSelectList(terms...), nil
}

// isReservedAfterExpr reports whether word, if seen right after a
// select-list/order-by expression, must be a clause keyword rather than an
// implicit alias.
func isReservedAfterExpr(word string) bool {
	switch strings.ToUpper(word) {
	case "FROM", "WHERE", "GROUP", "HAVING", "ORDER", "LIMIT", "ASC", "DESC", "AND", "OR":
		return true
	default:
		return false
	}
}

func (p *parser) parseFromList() (*ir.FromList, error) {
	var tables []*ir.TableRef
	for {
		ref, err := p.parseTableRef()
		if err != nil {
			return nil, err
		}
		tables = append(tables, ref)
		if !p.isPunct(",") {
			break
		}
		p.pos++
	}
	return ir.NewFromList(tables...), nil
}

func (p *parser) parseTableRef() (*ir.TableRef, error) {
	first := p.advance()
	if first.kind != tokIdent {
		return nil, qerrors.Newf(qerrors.KindParseError, "expected table name, got %q", first.text)
	}
	ref := &ir.TableRef{Table: first.text}
	if p.isPunct(".") {
		p.pos++
		second := p.advance()
		if second.kind != tokIdent {
			return nil, qerrors.Newf(qerrors.KindParseError, "expected table name after '.', got %q", second.text)
		}
		ref.Db = first.text
		ref.Table = second.text
	}
	if p.eatKeyword("AS") {
		alias := p.advance()
		if alias.kind != tokIdent {
			return nil, qerrors.Newf(qerrors.KindParseError, "expected alias after AS, got %q", alias.text)
		}
		ref.Alias = alias.text
	} else if p.cur().kind == tokIdent && !isReservedAfterExpr(p.cur().text) {
		ref.Alias = p.advance().text
	}
	return ref, nil
}

func (p *parser) parseExprList() ([]ir.ValueExpr, error) {
	var exprs []ir.ValueExpr
	for {
		e, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
		if !p.isPunct(",") {
			break
		}
		p.pos++
	}
	return exprs, nil
}

func (p *parser) parseOrderByList() (*ir.OrderBy, error) {
	var terms []*ir.OrderByTerm
	for {
		e, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		term := &ir.OrderByTerm{Expr: e}
		if p.eatKeyword("DESC") {
			term.Desc = true
		} else {
			p.eatKeyword("ASC")
		}
		terms = append(terms, term)
		if !p.isPunct(",") {
			break
		}
		p.pos++
	}
	return ir.NewOrderBy(terms...), nil
}

// parseValueExpr parses a column reference, function call, or literal. This
// grammar subset has no arithmetic or string-concatenation operators:
// everything this system pushes through the plugin pipeline is either a
// named column, an aggregate/restrictor call, or a constant.
func (p *parser) parseValueExpr() (ir.ValueExpr, error) {
	t := p.cur()
	switch t.kind {
	case tokNumber:
		p.pos++
		if strings.Contains(t.text, ".") {
			return &ir.Literal{Text: t.text}, nil
		}
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, qerrors.Wrap(qerrors.KindParseError, err)
		}
		return ir.NewIntLiteral(n), nil
	case tokString:
		p.pos++
		return ir.NewStringLiteral(t.text), nil
	case tokIdent:
		p.pos++
		if p.isPunct("(") {
			return p.parseFuncCall(t.text)
		}
		if p.isPunct(".") {
			p.pos++
			col := p.advance()
			if col.kind != tokIdent {
				return nil, qerrors.Newf(qerrors.KindParseError, "expected column after '.', got %q", col.text)
			}
			return &ir.ColumnRef{Table: t.text, Column: col.text}, nil
		}
		return ir.NewColumnRef("", t.text), nil
	default:
		return nil, qerrors.Newf(qerrors.KindParseError, "expected expression, got %q", t.text)
	}
}

func (p *parser) parseFuncCall(name string) (ir.ValueExpr, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	fnName := name
	if upper := strings.ToUpper(name); ir.IsAggregateFuncName(upper) {
		fnName = upper
	}
	fn := &ir.FuncExpr{Name: fnName}
	if p.isPunct("*") {
		p.pos++
		fn.Star = true
	} else if !p.isPunct(")") {
		args, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		fn.Args = args
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return fn, nil
}

func (p *parser) parseOrExpr() (ir.BoolTerm, error) {
	left, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}
	children := []ir.BoolTerm{left}
	for p.eatKeyword("OR") {
		right, err := p.parseAndExpr()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return ir.NewOrTerm(children...), nil
}

func (p *parser) parseAndExpr() (ir.BoolTerm, error) {
	left, err := p.parseNotExpr()
	if err != nil {
		return nil, err
	}
	children := []ir.BoolTerm{left}
	for p.eatKeyword("AND") {
		right, err := p.parseNotExpr()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return ir.NewAndTerm(children...), nil
}

func (p *parser) parseNotExpr() (ir.BoolTerm, error) {
	if p.eatKeyword("NOT") {
		inner, err := p.parsePrimaryBool()
		if err != nil {
			return nil, err
		}
		return &ir.BoolFactor{Not: true, Terms: []ir.BoolFactorTerm{inner}}, nil
	}
	return p.parsePrimaryBool()
}

func (p *parser) parsePrimaryBool() (ir.BoolTerm, error) {
	if p.isPunct("(") {
		p.pos++
		inner, err := p.parseOrExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return p.parsePredicate()
}

func (p *parser) parsePredicate() (ir.BoolTerm, error) {
	left, err := p.parseValueExpr()
	if err != nil {
		return nil, err
	}

	if p.eatKeyword("BETWEEN") {
		return p.parsePassThrough(left, "BETWEEN")
	}
	if p.eatKeyword("IN") {
		return p.parsePassThrough(left, "IN")
	}
	if p.eatKeyword("LIKE") {
		return p.parsePassThrough(left, "LIKE")
	}

	t := p.cur()
	if t.kind == tokPunct && cmpOps[t.text] {
		p.pos++
		right, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		return ir.NewValueExprPredicate(&ir.BinaryOp{Op: t.text, Left: left, Right: right}), nil
	}

	// A bare function call (e.g. a qserv_* restrictor) is itself the
	// predicate; any other bare expression is malformed as a boolean term.
	if _, ok := left.(*ir.FuncExpr); ok {
		return ir.NewValueExprPredicate(left), nil
	}
	return nil, qerrors.Newf(qerrors.KindParseError, "expected comparison operator near %q", p.cur().text)
}

// parsePassThrough captures a BETWEEN/IN/LIKE predicate as an opaque
// PassTerm: this grammar subset renders such predicates verbatim rather
// than modeling their structure, while still recording the column
// reference(s) they mention so later passes can see them (spec's
// ValueExprPredicate/PassTerm distinction carries the boundary of what the
// IR models structurally).
func (p *parser) parsePassThrough(left ir.ValueExpr, kind string) (ir.BoolTerm, error) {
	var refs []*ir.ColumnRef
	refs = left.ColumnRefs(refs)
	var b strings.Builder
	b.WriteString(ir.Render(left))
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte(' ')

	switch kind {
	case "BETWEEN":
		lo, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("AND"); err != nil {
			return nil, err
		}
		hi, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		b.WriteString(ir.Render(lo))
		b.WriteString(" AND ")
		b.WriteString(ir.Render(hi))
	case "IN":
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		exprs, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		b.WriteByte('(')
		for i, e := range exprs {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(ir.Render(e))
		}
		b.WriteByte(')')
	case "LIKE":
		pat, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		b.WriteString(ir.Render(pat))
	}
	return ir.NewPassTerm(b.String(), refs...), nil
}
