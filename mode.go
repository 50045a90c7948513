package rapfiles

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Mode captures the open intent derived from a mode token at open time.
// It is immutable for the handle's lifetime. The Binary flag only selects
// raw-bytes versus UTF-8-validated behavior on reads; text and binary
// variants of the same letter share read/write/append semantics.
type Mode struct {
	Read   bool
	Write  bool
	Append bool
	Binary bool

	// token is the canonical text-form token ("r", "r+", "w", ...). It
	// disambiguates r+ from w+, which share the same boolean triple but
	// differ in truncate-on-open and create-if-absent behavior.
	token string
}

// modeTable is the single source of truth for legal mode tokens. The legal
// set, the OS flag derivation, and the validation error message all derive
// from this table; no call site re-parses mode strings.
var modeTable = map[string]Mode{
	"r":   {Read: true, token: "r"},
	"r+":  {Read: true, Write: true, token: "r+"},
	"w":   {Write: true, token: "w"},
	"w+":  {Read: true, Write: true, token: "w+"},
	"a":   {Write: true, Append: true, token: "a"},
	"a+":  {Read: true, Write: true, Append: true, token: "a+"},
	"rb":  {Read: true, Binary: true, token: "r"},
	"rb+": {Read: true, Write: true, Binary: true, token: "r+"},
	"wb":  {Write: true, Binary: true, token: "w"},
	"wb+": {Read: true, Write: true, Binary: true, token: "w+"},
	"ab":  {Write: true, Append: true, Binary: true, token: "a"},
	"ab+": {Read: true, Write: true, Append: true, Binary: true, token: "a+"},
}

// legalModes returns the legal token set, sorted, for error messages.
func legalModes() string {
	tokens := make([]string, 0, len(modeTable))
	for tok := range modeTable {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	return strings.Join(tokens, ", ")
}

// ParseMode maps a mode token to its Mode. Unrecognized tokens fail with a
// validation error naming the offending token and the full legal set.
// Pure function; performs no I/O.
func ParseMode(token string) (Mode, error) {
	m, ok := modeTable[token]
	if !ok {
		return Mode{}, newValidationError("open", "",
			fmt.Sprintf("invalid mode %q: must be one of %s", token, legalModes()), nil)
	}
	return m, nil
}

// flags derives the OS open flags. Write or append implies create-if-absent;
// plain write (not append) implies truncate-on-open; append sets the append
// flag and disables truncate. r+ opens for update without creating or
// truncating.
func (m Mode) flags() int {
	switch m.token {
	case "r":
		return os.O_RDONLY
	case "r+":
		return os.O_RDWR
	case "w":
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case "w+":
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC
	case "a":
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND
	default: // "a+"
		return os.O_RDWR | os.O_CREATE | os.O_APPEND
	}
}

// String returns the canonical mode token, with the binary suffix folded
// back in ("rb+" renders as "rb+", not "r+b").
func (m Mode) String() string {
	if !m.Binary {
		return m.token
	}
	if plus := strings.HasSuffix(m.token, "+"); plus {
		return m.token[:len(m.token)-1] + "b+"
	}
	return m.token + "b"
}
