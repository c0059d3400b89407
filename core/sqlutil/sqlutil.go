// Package sqlutil provides small SQL text helpers shared by the migration
// planner and generator: identifier qualification, statement joining, and
// comment stripping.
package sqlutil

import (
	"strings"
)

// QualifiedName returns the table reference used in emitted DDL. The schema
// prefix is included only when it is present and not the default "main"
// namespace, so statements against the primary database stay unqualified.
func QualifiedName(schema, name string) string {
	if schema == "" || schema == "main" {
		return name
	}
	return schema + "." + name
}

// JoinStatements renders an ordered statement list into a single SQL script.
// Statements are separated by ";\n\n" and the script ends with a single
// terminating semicolon. An empty list renders as an empty string.
func JoinStatements(statements []string) string {
	if len(statements) == 0 {
		return ""
	}
	return strings.Join(statements, ";\n\n") + ";"
}

// StripComments removes SQL line comments (-- ...) and block comments
// (/* ... */) from the given text. String literals are respected so that
// comment markers inside quoted values survive.
func StripComments(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))

	inLine := false
	inBlock := false
	inString := false
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case inLine:
			if ch == '\n' {
				inLine = false
				b.WriteByte(ch)
			}
		case inBlock:
			if ch == '*' && i+1 < len(sql) && sql[i+1] == '/' {
				inBlock = false
				i++
			}
		case inString:
			b.WriteByte(ch)
			if ch == '\'' {
				// Doubled quotes are an escaped quote, not a terminator.
				if i+1 < len(sql) && sql[i+1] == '\'' {
					b.WriteByte(sql[i+1])
					i++
				} else {
					inString = false
				}
			}
		default:
			switch {
			case ch == '-' && i+1 < len(sql) && sql[i+1] == '-':
				inLine = true
				i++
			case ch == '/' && i+1 < len(sql) && sql[i+1] == '*':
				inBlock = true
				i++
			default:
				if ch == '\'' {
					inString = true
				}
				b.WriteByte(ch)
			}
		}
	}
	return b.String()
}

// HasStatements reports whether the list contains at least one statement
// with actual SQL content once comments are stripped.
func HasStatements(statements []string) bool {
	for _, stmt := range statements {
		if strings.TrimSpace(StripComments(stmt)) != "" {
			return true
		}
	}
	return false
}
