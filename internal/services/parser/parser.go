package parser

import (
	"fmt"
	"strings"
)

// Parser parses the schema DSL into an AST
type Parser struct {
	lexer   *Lexer
	current *Token
	peek    *Token
	errors  []string
}

// NewParser creates a new Parser
func NewParser(lexer *Lexer) *Parser {
	p := &Parser{
		lexer:  lexer,
		errors: []string{},
	}

	// Read two tokens to initialize current and peek
	p.nextToken()
	p.nextToken()

	return p
}

// nextToken advances to the next token
func (p *Parser) nextToken() {
	p.current = p.peek
	tok, err := p.lexer.NextToken()
	if err != nil {
		p.errors = append(p.errors, err.Error())
		p.peek = &Token{Type: TOKEN_EOF}
	} else {
		p.peek = tok
	}
}

// currentTokenIs checks if the current token is of the given type
func (p *Parser) currentTokenIs(t TokenType) bool {
	return p.current != nil && p.current.Type == t
}

// peekTokenIs checks if the peek token is of the given type
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peek != nil && p.peek.Type == t
}

// expectPeek checks if the next token is of the expected type and advances
func (p *Parser) expectPeek(t TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

// peekError adds an error for unexpected peek token
func (p *Parser) peekError(t TokenType) {
	msg := fmt.Sprintf("expected next token to be %s, got %s instead at %d:%d",
		tokenNames[t], tokenNames[p.peek.Type], p.peek.Line, p.peek.Column)
	p.errors = append(p.errors, msg)
}

// Parse parses the entire schema
func (p *Parser) Parse() (*SchemaAST, error) {
	schema := &SchemaAST{
		Types: []*TypeAST{},
	}

	for !p.currentTokenIs(TOKEN_EOF) {
		if p.currentTokenIs(TOKEN_ABSTRACT) || p.currentTokenIs(TOKEN_TYPE) {
			typeDef := p.parseType()
			if typeDef != nil {
				schema.Types = append(schema.Types, typeDef)
			} else {
				// If parseType failed, skip to next token to avoid infinite loop
				p.nextToken()
			}
		} else {
			p.errors = append(p.errors, fmt.Sprintf("unexpected token %s at %d:%d, expected 'type' or 'abstract'",
				tokenNames[p.current.Type], p.current.Line, p.current.Column))
			p.nextToken()
		}
	}

	if len(p.errors) > 0 {
		return nil, fmt.Errorf("parse errors:\n%s", strings.Join(p.errors, "\n"))
	}

	return schema, nil
}

// parseType parses a type definition
func (p *Parser) parseType() *TypeAST {
	typeDef := &TypeAST{
		Properties:  []*PropertyAST{},
		Constraints: []*ConstraintAST{},
	}

	if p.currentTokenIs(TOKEN_ABSTRACT) {
		typeDef.Abstract = true
		if !p.expectPeek(TOKEN_TYPE) {
			return nil
		}
	}

	// Expect identifier (type name)
	if !p.expectPeek(TOKEN_IDENTIFIER) {
		return nil
	}
	typeDef.Name = p.current.Value

	// Optional extending clause
	if p.peekTokenIs(TOKEN_EXTENDING) {
		p.nextToken() // consume extending
		if !p.expectPeek(TOKEN_IDENTIFIER) {
			return nil
		}
		typeDef.Extends = append(typeDef.Extends, p.current.Value)

		for p.peekTokenIs(TOKEN_COMMA) {
			p.nextToken() // consume ,
			if !p.expectPeek(TOKEN_IDENTIFIER) {
				return nil
			}
			typeDef.Extends = append(typeDef.Extends, p.current.Value)
		}
	}

	// Expect {
	if !p.expectPeek(TOKEN_LBRACE) {
		return nil
	}

	// Parse type body
	p.nextToken()
	for !p.currentTokenIs(TOKEN_RBRACE) && !p.currentTokenIs(TOKEN_EOF) {
		switch {
		case p.currentTokenIs(TOKEN_REQUIRED) || p.currentTokenIs(TOKEN_MULTI) || p.currentTokenIs(TOKEN_PROPERTY):
			property := p.parseProperty()
			if property != nil {
				typeDef.Properties = append(typeDef.Properties, property)
			}
		case p.currentTokenIs(TOKEN_CONSTRAINT):
			constraint := p.parseConstraint()
			if constraint != nil {
				typeDef.Constraints = append(typeDef.Constraints, constraint)
			}
		default:
			p.errors = append(p.errors, fmt.Sprintf("unexpected token %s in type at %d:%d",
				tokenNames[p.current.Type], p.current.Line, p.current.Column))
			p.nextToken()
		}
	}

	// Expect }
	if !p.currentTokenIs(TOKEN_RBRACE) {
		p.errors = append(p.errors, fmt.Sprintf("expected '}' at end of type, got %s at %d:%d",
			tokenNames[p.current.Type], p.current.Line, p.current.Column))
		return nil
	}

	p.nextToken()
	return typeDef
}

// parseProperty parses a property declaration
// Syntax: [required] [multi] property name: type [{ constraint ... }]
func (p *Parser) parseProperty() *PropertyAST {
	property := &PropertyAST{}

	if p.currentTokenIs(TOKEN_REQUIRED) {
		property.Required = true
		p.nextToken()
	}
	if p.currentTokenIs(TOKEN_MULTI) {
		property.Multi = true
		p.nextToken()
	}

	if !p.currentTokenIs(TOKEN_PROPERTY) {
		p.errors = append(p.errors, fmt.Sprintf("expected 'property', got %s at %d:%d",
			tokenNames[p.current.Type], p.current.Line, p.current.Column))
		return nil
	}

	// Expect identifier (property name)
	if !p.expectPeek(TOKEN_IDENTIFIER) {
		return nil
	}
	property.Name = p.current.Value

	// Expect :
	if !p.expectPeek(TOKEN_COLON) {
		return nil
	}

	// Expect identifier (scalar type)
	if !p.expectPeek(TOKEN_IDENTIFIER) {
		return nil
	}
	property.Type = p.current.Value

	// Optional constraint block
	if p.peekTokenIs(TOKEN_LBRACE) {
		p.nextToken() // consume {
		p.nextToken()
		for !p.currentTokenIs(TOKEN_RBRACE) && !p.currentTokenIs(TOKEN_EOF) {
			if p.currentTokenIs(TOKEN_CONSTRAINT) {
				constraint := p.parseConstraint()
				if constraint != nil {
					property.Constraints = append(property.Constraints, constraint)
				}
			} else {
				p.errors = append(p.errors, fmt.Sprintf("unexpected token %s in property block at %d:%d",
					tokenNames[p.current.Type], p.current.Line, p.current.Column))
				p.nextToken()
			}
		}
		if !p.currentTokenIs(TOKEN_RBRACE) {
			p.errors = append(p.errors, "expected '}' at end of property block")
			return nil
		}
	}

	p.nextToken()
	return property
}

// parseConstraint parses a constraint declaration
// Syntax: constraint exclusive [{ errmessage "..." }]
//
//	constraint expression (<CEL>) [{ errmessage "..." }]
func (p *Parser) parseConstraint() *ConstraintAST {
	constraint := &ConstraintAST{}

	switch {
	case p.peekTokenIs(TOKEN_EXCLUSIVE):
		p.nextToken()
		constraint.Kind = "exclusive"
		p.nextToken()

	case p.peekTokenIs(TOKEN_EXPRESSION):
		p.nextToken()
		constraint.Kind = "expression"
		expression, ok := p.parseExpressionBody()
		if !ok {
			return nil
		}
		constraint.Expression = expression

	default:
		p.peekError(TOKEN_EXCLUSIVE)
		p.nextToken()
		return nil
	}

	// Optional errmessage block
	if p.currentTokenIs(TOKEN_LBRACE) {
		if !p.expectPeek(TOKEN_ERRMESSAGE) {
			return nil
		}
		if !p.expectPeek(TOKEN_STRING) {
			return nil
		}
		constraint.ErrMessage = p.current.Value
		if !p.expectPeek(TOKEN_RBRACE) {
			return nil
		}
		p.nextToken()
	}

	return constraint
}

// parseExpressionBody reads a parenthesized CEL expression verbatim.
// On return the current token is the one following the closing paren.
func (p *Parser) parseExpressionBody() (string, bool) {
	// Expect (
	if !p.expectPeek(TOKEN_LPAREN) {
		return "", false
	}

	// Read the CEL expression until the matching )
	p.nextToken()
	var expressionParts []string
	parenCount := 1
	prevToken := &Token{Type: TOKEN_LPAREN}

	for parenCount > 0 && !p.currentTokenIs(TOKEN_EOF) {
		if p.currentTokenIs(TOKEN_LPAREN) {
			parenCount++
		} else if p.currentTokenIs(TOKEN_RPAREN) {
			parenCount--
			if parenCount == 0 {
				break
			}
		}

		tokenValue := p.current.Value

		// Add quotes back for string literals
		if p.current.Type == TOKEN_STRING {
			tokenValue = `"` + tokenValue + `"`
		}

		if len(expressionParts) > 0 && needsSpaceBefore(prevToken, p.current) {
			expressionParts = append(expressionParts, " ")
		}

		expressionParts = append(expressionParts, tokenValue)
		prevToken = p.current
		p.nextToken()
	}

	if !p.currentTokenIs(TOKEN_RPAREN) {
		p.errors = append(p.errors, "expected ')' at end of constraint expression")
		return "", false
	}

	p.nextToken()
	return strings.Join(expressionParts, ""), true
}

// needsSpaceBefore determines if a space is needed between two tokens
func needsSpaceBefore(prev, current *Token) bool {
	// No space after opening paren or before closing paren
	if prev.Type == TOKEN_LPAREN || current.Type == TOKEN_RPAREN {
		return false
	}
	// No space before/after dot
	if prev.Type == TOKEN_DOT || current.Type == TOKEN_DOT {
		return false
	}
	// No space before comma
	if current.Type == TOKEN_COMMA {
		return false
	}
	// No space around function call parens and index brackets
	if current.Type == TOKEN_LPAREN && prev.Type == TOKEN_IDENTIFIER {
		return false
	}
	if current.Type == TOKEN_LBRACKET || prev.Type == TOKEN_RBRACKET {
		return false
	}
	// Default: add space between tokens
	return true
}
