package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Script front end
	SynInfo             Code = 2000
	SynUnexpectedToken  Code = 2001
	SynUnterminated     Code = 2002
	SynExpectIdentifier Code = 2003
	SynExpectType       Code = 2004
	SynExpectExpression Code = 2005
	SynUnknownStatement Code = 2006
	SynMissingEnd       Code = 2007
	SynDuplicateDecl    Code = 2008
	SynMissingBehaviour Code = 2009
	SynBadLiteral       Code = 2010
	SynStatementOutside Code = 2011
	SynUnknownType      Code = 2012

	// Expression capture / code generation
	SemaInfo               Code = 3000
	SemaUnresolvedName     Code = 3001
	SemaMemberAccess       Code = 3002
	SemaNoOverload         Code = 3003
	SemaNotExposed         Code = 3004
	SemaNotSupportedByUdon Code = 3005
	SemaNoImplicitCast     Code = 3006
	SemaNoCast             Code = 3007
	SemaIllegalOperation   Code = 3008
	SemaArgumentCount      Code = 3009
	SemaIntrinsic          Code = 3010

	// Assembly
	AsmUnplacedLabel Code = 5001
	AsmOverflow      Code = 5002

	// IO / project
	IOLoadFileError  Code = 4001
	ProjInfo         Code = 6000
	ProjBadManifest  Code = 6001
	ProjVersionCheck Code = 6002
)

var (
	codeDescription = map[Code]string{
		UnknownCode:            "Unknown error",
		SynInfo:                "Syntax information",
		SynUnexpectedToken:     "Unexpected token",
		SynUnterminated:        "Unterminated literal",
		SynExpectIdentifier:    "Expected identifier",
		SynExpectType:          "Expected type",
		SynExpectExpression:    "Expected expression",
		SynUnknownStatement:    "Unknown statement",
		SynMissingEnd:          "Missing end",
		SynDuplicateDecl:       "Duplicate declaration",
		SynMissingBehaviour:    "Missing behaviour declaration",
		SynBadLiteral:          "Malformed literal",
		SynStatementOutside:    "Statement outside of method",
		SynUnknownType:         "Unknown type",
		SemaInfo:               "Semantic information",
		SemaUnresolvedName:     "Name does not exist in the current context",
		SemaMemberAccess:       "Member access failed",
		SemaNoOverload:         "No matching overload",
		SemaNotExposed:         "Method is not exposed to Udon",
		SemaNotSupportedByUdon: "Method does not exist in Udon",
		SemaNoImplicitCast:     "Cannot implicitly convert type",
		SemaNoCast:             "Cannot find cast",
		SemaIllegalOperation:   "Illegal operation",
		SemaArgumentCount:      "Argument count mismatch",
		SemaIntrinsic:          "Invalid compiler intrinsic call",
		AsmUnplacedLabel:       "Jump label never placed",
		AsmOverflow:            "Program too large",
		IOLoadFileError:        "Failed to load file",
		ProjInfo:               "Project information",
		ProjBadManifest:        "Invalid project manifest",
		ProjVersionCheck:       "Compiler version constraint not satisfied",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("ASM%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("PRJ%04d", ic)
	}
	return fmt.Sprintf("E%04d", int(c))
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
