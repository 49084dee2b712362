package template

// Parse tokenizes input and builds its node list.
func Parse(input, file string) (*Template, error) {
	tokens, err := NewLexer(input, file).Tokenize()
	if err != nil {
		return nil, err
	}

	tmpl := &Template{File: file, Nodes: make([]Node, 0, len(tokens))}
	for _, tok := range tokens {
		base := nodeBase{pos: tok.Pos}
		switch tok.Type {
		case TokenText:
			tmpl.Nodes = append(tmpl.Nodes, &TextNode{nodeBase: base, Text: tok.Value})
		case TokenExpr:
			tmpl.Nodes = append(tmpl.Nodes, &ExprNode{nodeBase: base, Expr: tok.Value})
		case TokenRef:
			tmpl.Nodes = append(tmpl.Nodes, &RefNode{nodeBase: base, Ident: tok.Value})
		case TokenEOF:
		}
	}
	return tmpl, nil
}
