package parser

import (
	"fmt"
	"strings"
)

// Generator generates canonical DSL text from an AST
type Generator struct {
	indent string
}

// NewGenerator creates a new Generator
func NewGenerator() *Generator {
	return &Generator{
		indent: "  ",
	}
}

// Generate generates DSL string from SchemaAST
func (g *Generator) Generate(schema *SchemaAST) string {
	var sb strings.Builder

	for i, t := range schema.Types {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(g.generateType(t))
	}

	return sb.String()
}

// generateType generates DSL for a type definition
func (g *Generator) generateType(t *TypeAST) string {
	var sb strings.Builder

	if t.Abstract {
		sb.WriteString("abstract ")
	}
	sb.WriteString(fmt.Sprintf("type %s", t.Name))
	if len(t.Extends) > 0 {
		sb.WriteString(" extending ")
		sb.WriteString(strings.Join(t.Extends, ", "))
	}
	sb.WriteString(" {\n")

	for _, p := range t.Properties {
		sb.WriteString(g.generateProperty(p))
	}

	for _, c := range t.Constraints {
		sb.WriteString(g.generateConstraint(c, g.indent))
	}

	sb.WriteString("}")

	return sb.String()
}

// generateProperty generates DSL for a property declaration
func (g *Generator) generateProperty(p *PropertyAST) string {
	var sb strings.Builder

	sb.WriteString(g.indent)
	if p.Required {
		sb.WriteString("required ")
	}
	if p.Multi {
		sb.WriteString("multi ")
	}
	sb.WriteString(fmt.Sprintf("property %s: %s", p.Name, p.Type))

	if len(p.Constraints) > 0 {
		sb.WriteString(" {\n")
		for _, c := range p.Constraints {
			sb.WriteString(g.generateConstraint(c, g.indent+g.indent))
		}
		sb.WriteString(g.indent)
		sb.WriteString("}")
	}

	sb.WriteString("\n")
	return sb.String()
}

// generateConstraint generates DSL for a constraint declaration
func (g *Generator) generateConstraint(c *ConstraintAST, indent string) string {
	var sb strings.Builder

	sb.WriteString(indent)
	if c.Kind == "expression" {
		sb.WriteString(fmt.Sprintf("constraint expression (%s)", c.Expression))
	} else {
		sb.WriteString(fmt.Sprintf("constraint %s", c.Kind))
	}

	if c.ErrMessage != "" {
		sb.WriteString(fmt.Sprintf(" {\n%s%serrmessage %q\n%s}", indent, g.indent, c.ErrMessage, indent))
	}

	sb.WriteString("\n")
	return sb.String()
}
