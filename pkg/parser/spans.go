package parser

import "jsonnet/interpreter-go/pkg/ast"

func joinSpans(start, end ast.Span) ast.Span {
	return ast.Span{File: start.File, Start: start.Start, End: end.End}
}

// annotate sets node's span from the start token to the last consumed token.
func annotate[T ast.Node](p *parser, node T, start Token) T {
	ast.SetSpan(node, joinSpans(start.Span, p.last().Span))
	return node
}

// annotateFrom extends a span that begins at an existing node.
func annotateFrom[T ast.Node](p *parser, node T, from ast.Node) T {
	ast.SetSpan(node, joinSpans(from.Span(), p.last().Span))
	return node
}
