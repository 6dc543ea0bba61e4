// Package fieldcode parses WordprocessingML field instructions (the text of w:instrText)
// into a canonical form so that field codes differing only in spacing or letter case
// compare equal.
package fieldcode

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Instruction is a parsed field instruction such as `REF _Ref123 \h \* MERGEFORMAT`.
type Instruction struct {
	Name string `@Word`
	Args []*Arg  `@@*`
}

// Arg is one argument of a field instruction.
type Arg struct {
	Switch *string `  @Switch`
	Quoted *string `| @String`
	Word   *string `| @Word`
}

var instructionLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Switches: \h, \* MERGEFORMAT's "\*", \@ for date pictures
	{Name: "Switch", Pattern: `\\[^\s"]+`},
	{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
	{Name: "Word", Pattern: `[^\s"\\]+`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var instructionParser = participle.MustBuild[Instruction](
	participle.Lexer(instructionLexer),
	participle.Elide("Whitespace"),
)

// Parse parses a field instruction.
func Parse(input string) (*Instruction, error) {
	ins, err := instructionParser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("failed to parse field instruction %q: %w", input, err)
	}
	return ins, nil
}

// String returns the canonical form: upper-cased field name and switches, arguments
// separated by single spaces, quoted arguments verbatim.
func (ins *Instruction) String() string {
	parts := make([]string, 0, len(ins.Args)+1)
	parts = append(parts, strings.ToUpper(ins.Name))
	for _, a := range ins.Args {
		switch {
		case a.Switch != nil:
			parts = append(parts, strings.ToUpper(*a.Switch))
		case a.Quoted != nil:
			parts = append(parts, *a.Quoted)
		case a.Word != nil:
			parts = append(parts, *a.Word)
		}
	}
	return strings.Join(parts, " ")
}

// Canonical returns the canonical form of an instruction. Text that does not parse is
// returned with its whitespace collapsed.
func Canonical(input string) string {
	ins, err := Parse(input)
	if err != nil {
		return strings.Join(strings.Fields(input), " ")
	}
	return ins.String()
}
