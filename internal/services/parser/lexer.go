package parser

import (
	"fmt"
	"unicode"
)

// TokenType represents the type of a token
type TokenType int

const (
	TOKEN_ILLEGAL TokenType = iota
	TOKEN_EOF

	// Identifiers and literals
	TOKEN_IDENTIFIER
	TOKEN_NUMBER
	TOKEN_STRING // String literals (quoted)

	// Keywords
	TOKEN_ABSTRACT
	TOKEN_TYPE
	TOKEN_EXTENDING
	TOKEN_REQUIRED
	TOKEN_MULTI
	TOKEN_PROPERTY
	TOKEN_CONSTRAINT
	TOKEN_EXCLUSIVE
	TOKEN_EXPRESSION
	TOKEN_ERRMESSAGE

	// Operators (for CEL expressions inside constraint expression(...))
	TOKEN_EQ          // ==
	TOKEN_NEQ         // !=
	TOKEN_LT          // <
	TOKEN_LTE         // <=
	TOKEN_GT          // >
	TOKEN_GTE         // >=
	TOKEN_LOGICAL_AND // &&
	TOKEN_LOGICAL_OR  // ||
	TOKEN_EXCLAMATION // !
	TOKEN_PLUS        // +
	TOKEN_MINUS       // -
	TOKEN_STAR        // *
	TOKEN_SLASH       // /
	TOKEN_PERCENT     // %

	// Delimiters
	TOKEN_COLON
	TOKEN_LBRACE
	TOKEN_RBRACE
	TOKEN_LPAREN
	TOKEN_RPAREN
	TOKEN_LBRACKET
	TOKEN_RBRACKET
	TOKEN_DOT
	TOKEN_COMMA
)

var tokenNames = map[TokenType]string{
	TOKEN_ILLEGAL:     "ILLEGAL",
	TOKEN_EOF:         "EOF",
	TOKEN_IDENTIFIER:  "IDENTIFIER",
	TOKEN_NUMBER:      "NUMBER",
	TOKEN_STRING:      "STRING",
	TOKEN_ABSTRACT:    "abstract",
	TOKEN_TYPE:        "type",
	TOKEN_EXTENDING:   "extending",
	TOKEN_REQUIRED:    "required",
	TOKEN_MULTI:       "multi",
	TOKEN_PROPERTY:    "property",
	TOKEN_CONSTRAINT:  "constraint",
	TOKEN_EXCLUSIVE:   "exclusive",
	TOKEN_EXPRESSION:  "expression",
	TOKEN_ERRMESSAGE:  "errmessage",
	TOKEN_EQ:          "==",
	TOKEN_NEQ:         "!=",
	TOKEN_LT:          "<",
	TOKEN_LTE:         "<=",
	TOKEN_GT:          ">",
	TOKEN_GTE:         ">=",
	TOKEN_LOGICAL_AND: "&&",
	TOKEN_LOGICAL_OR:  "||",
	TOKEN_EXCLAMATION: "!",
	TOKEN_PLUS:        "+",
	TOKEN_MINUS:       "-",
	TOKEN_STAR:        "*",
	TOKEN_SLASH:       "/",
	TOKEN_PERCENT:     "%",
	TOKEN_COLON:       ":",
	TOKEN_LBRACE:      "{",
	TOKEN_RBRACE:      "}",
	TOKEN_LPAREN:      "(",
	TOKEN_RPAREN:      ")",
	TOKEN_LBRACKET:    "[",
	TOKEN_RBRACKET:    "]",
	TOKEN_DOT:         ".",
	TOKEN_COMMA:       ",",
}

var keywords = map[string]TokenType{
	"abstract":   TOKEN_ABSTRACT,
	"type":       TOKEN_TYPE,
	"extending":  TOKEN_EXTENDING,
	"required":   TOKEN_REQUIRED,
	"multi":      TOKEN_MULTI,
	"property":   TOKEN_PROPERTY,
	"constraint": TOKEN_CONSTRAINT,
	"exclusive":  TOKEN_EXCLUSIVE,
	"expression": TOKEN_EXPRESSION,
	"errmessage": TOKEN_ERRMESSAGE,
}

// Token represents a lexical token
type Token struct {
	Type   TokenType
	Value  string
	Line   int
	Column int
}

// String returns a string representation of the token
func (t *Token) String() string {
	typeName := tokenNames[t.Type]
	if typeName == "" {
		typeName = fmt.Sprintf("UNKNOWN(%d)", t.Type)
	}
	return fmt.Sprintf("%s(%s) at %d:%d", typeName, t.Value, t.Line, t.Column)
}

// Lexer performs lexical analysis
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int
	column       int
}

// NewLexer creates a new Lexer
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		column: 0,
	}
	l.readChar()
	return l
}

// readChar reads the next character and advances position
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0 // EOF
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
}

// peekChar returns the next character without advancing position
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// skipWhitespace skips whitespace characters
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// skipComment skips single-line comments starting with //
func (l *Lexer) skipComment() {
	if l.ch == '/' && l.peekChar() == '/' {
		for l.ch != '\n' && l.ch != 0 {
			l.readChar()
		}
	}
}

// readIdentifier reads an identifier or keyword
func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber reads a number literal
func (l *Lexer) readNumber() string {
	position := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // consume '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[position:l.position]
}

// readString reads a string literal enclosed in quotes
func (l *Lexer) readString() string {
	position := l.position + 1 // Skip opening quote
	for {
		l.readChar()
		if l.ch == '"' || l.ch == 0 {
			break
		}
	}
	return l.input[position:l.position]
}

// NextToken returns the next token
func (l *Lexer) NextToken() (*Token, error) {
	// Skip whitespace and comments in a loop
	for {
		l.skipWhitespace()
		if l.ch == '/' && l.peekChar() == '/' {
			l.skipComment()
		} else {
			break
		}
	}

	var tok *Token
	line := l.line
	column := l.column

	switch l.ch {
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = &Token{Type: TOKEN_EQ, Value: "==", Line: line, Column: column}
			l.readChar()
		} else {
			return nil, fmt.Errorf("illegal character '=' at %d:%d", line, column)
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = &Token{Type: TOKEN_NEQ, Value: "!=", Line: line, Column: column}
			l.readChar()
		} else {
			tok = &Token{Type: TOKEN_EXCLAMATION, Value: "!", Line: line, Column: column}
			l.readChar()
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = &Token{Type: TOKEN_LTE, Value: "<=", Line: line, Column: column}
			l.readChar()
		} else {
			tok = &Token{Type: TOKEN_LT, Value: "<", Line: line, Column: column}
			l.readChar()
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = &Token{Type: TOKEN_GTE, Value: ">=", Line: line, Column: column}
			l.readChar()
		} else {
			tok = &Token{Type: TOKEN_GT, Value: ">", Line: line, Column: column}
			l.readChar()
		}
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			tok = &Token{Type: TOKEN_LOGICAL_AND, Value: "&&", Line: line, Column: column}
			l.readChar()
		} else {
			return nil, fmt.Errorf("illegal character '&' at %d:%d", line, column)
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			tok = &Token{Type: TOKEN_LOGICAL_OR, Value: "||", Line: line, Column: column}
			l.readChar()
		} else {
			return nil, fmt.Errorf("illegal character '|' at %d:%d", line, column)
		}
	case '+':
		tok = &Token{Type: TOKEN_PLUS, Value: "+", Line: line, Column: column}
		l.readChar()
	case '-':
		tok = &Token{Type: TOKEN_MINUS, Value: "-", Line: line, Column: column}
		l.readChar()
	case '*':
		tok = &Token{Type: TOKEN_STAR, Value: "*", Line: line, Column: column}
		l.readChar()
	case '/':
		tok = &Token{Type: TOKEN_SLASH, Value: "/", Line: line, Column: column}
		l.readChar()
	case '%':
		tok = &Token{Type: TOKEN_PERCENT, Value: "%", Line: line, Column: column}
		l.readChar()
	case ':':
		tok = &Token{Type: TOKEN_COLON, Value: ":", Line: line, Column: column}
		l.readChar()
	case '{':
		tok = &Token{Type: TOKEN_LBRACE, Value: "{", Line: line, Column: column}
		l.readChar()
	case '}':
		tok = &Token{Type: TOKEN_RBRACE, Value: "}", Line: line, Column: column}
		l.readChar()
	case '(':
		tok = &Token{Type: TOKEN_LPAREN, Value: "(", Line: line, Column: column}
		l.readChar()
	case ')':
		tok = &Token{Type: TOKEN_RPAREN, Value: ")", Line: line, Column: column}
		l.readChar()
	case '[':
		tok = &Token{Type: TOKEN_LBRACKET, Value: "[", Line: line, Column: column}
		l.readChar()
	case ']':
		tok = &Token{Type: TOKEN_RBRACKET, Value: "]", Line: line, Column: column}
		l.readChar()
	case '.':
		tok = &Token{Type: TOKEN_DOT, Value: ".", Line: line, Column: column}
		l.readChar()
	case ',':
		tok = &Token{Type: TOKEN_COMMA, Value: ",", Line: line, Column: column}
		l.readChar()
	case '"':
		value := l.readString()
		tok = &Token{Type: TOKEN_STRING, Value: value, Line: line, Column: column}
		l.readChar() // Skip closing quote
	case 0:
		tok = &Token{Type: TOKEN_EOF, Value: "", Line: line, Column: column}
	default:
		if isLetter(l.ch) {
			value := l.readIdentifier()
			tokenType := TOKEN_IDENTIFIER
			if kw, ok := keywords[value]; ok {
				tokenType = kw
			}
			tok = &Token{Type: tokenType, Value: value, Line: line, Column: column}
			return tok, nil
		} else if isDigit(l.ch) {
			value := l.readNumber()
			tok = &Token{Type: TOKEN_NUMBER, Value: value, Line: line, Column: column}
			return tok, nil
		}
		return nil, fmt.Errorf("illegal character '%c' at %d:%d", l.ch, line, column)
	}

	return tok, nil
}

// isLetter checks if a character is a letter
func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch))
}

// isDigit checks if a character is a digit
func isDigit(ch byte) bool {
	return unicode.IsDigit(rune(ch))
}
