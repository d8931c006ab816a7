package webhook

import (
	"strings"
	"unicode"
)

// CommandKind names a participant command.
type CommandKind string

const (
	CmdStart CommandKind = "start"
	CmdJoin  CommandKind = "join"
	CmdLeave CommandKind = "leave"
	CmdMove  CommandKind = "move"
	CmdBoard CommandKind = "board"
	CmdHelp  CommandKind = "help"
)

// Command is a parsed inbound text.
type Command struct {
	Kind CommandKind

	// Arg is the text after the keyword, trimmed.
	Arg string
}

// ParseCommand reads the case-insensitive keyword, the first
// whitespace-delimited token, from text. Unknown keywords and empty text
// become CmdHelp.
func ParseCommand(text string) Command {
	keyword, rest := strings.TrimSpace(text), ""
	if i := strings.IndexFunc(keyword, unicode.IsSpace); i >= 0 {
		keyword, rest = keyword[:i], keyword[i:]
	}
	cmd := Command{Kind: CmdHelp, Arg: strings.TrimSpace(rest)}
	switch k := CommandKind(strings.ToLower(keyword)); k {
	case CmdStart, CmdJoin, CmdLeave, CmdMove, CmdBoard:
		cmd.Kind = k
	}
	return cmd
}
