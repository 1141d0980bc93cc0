package linemark

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// Command names dispatched through action links. The host editor's link
// handler maps them back onto the corresponding AnnotationCommands method.
const (
	CommandCreate = "linemark.create"
	CommandEdit   = "linemark.edit"
	CommandDelete = "linemark.delete"
)

// CommandLink builds the pseudo-URI for an action link: the command name
// plus a URL-escaped JSON argument object.
func CommandLink(command string, args CommandArgs) string {
	payload, _ := json.Marshal(args)
	return fmt.Sprintf("command:%s?%s", command, url.QueryEscape(string(payload)))
}

// DefaultTemplate is the initial note document written on first create.
// The first line is the human summary shown inline; the action links
// re-invoke edit/delete for the annotated line.
func DefaultTemplate(line int) string {
	args := CommandArgs{Line: line}
	return fmt.Sprintf(`# Note

## Usage

The first line of this file is shown inline next to the annotated line.
Replace the heading above with your summary, then add detail below.
Edits to this file are picked up automatically.

`+"```"+`
linemark show <file> %d
`+"```"+`

[Edit](%s) · [Delete](%s)
`, line+1, CommandLink(CommandEdit, args), CommandLink(CommandDelete, args))
}
