package linemark

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// CommandArgs is the typed argument object carried by action links and
// bridge command messages. Line is the zero-based line index in the active
// document.
type CommandArgs struct {
	Line int `json:"line"`
}

// DefaultArgs is the explicit fallback when a link or message carries no
// argument payload.
func DefaultArgs() CommandArgs {
	return CommandArgs{Line: 0}
}

const commandArgsSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"line": {"type": "integer", "minimum": 0}
	},
	"required": ["line"],
	"additionalProperties": false
}`

var commandArgsValidator = mustCompileArgsSchema()

func mustCompileArgsSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(commandArgsSchema))
	if err != nil {
		panic(err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("command-args.json", doc); err != nil {
		panic(err)
	}
	schema, err := compiler.Compile("command-args.json")
	if err != nil {
		panic(err)
	}
	return schema
}

// ParseArgs validates and decodes a raw argument payload from a link or
// bridge message. An empty payload yields DefaultArgs.
func ParseArgs(raw []byte) (CommandArgs, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return DefaultArgs(), nil
	}
	value, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return CommandArgs{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := commandArgsValidator.Validate(value); err != nil {
		return CommandArgs{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	obj := value.(map[string]any)
	line, ok := obj["line"].(json.Number)
	if !ok {
		return CommandArgs{}, fmt.Errorf("%w: line is not a number", ErrInvalidInput)
	}
	n, err := line.Int64()
	if err != nil {
		return CommandArgs{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return CommandArgs{Line: int(n)}, nil
}

// Commands implements the user-triggered note operations for a specific
// line of the active document. All storage mutations go through the store;
// the index catches up via the watch loop, except for delete, which drops
// the entry directly so the marker disappears before the watcher reports.
type Commands struct {
	core     *Core
	editor   Editor
	notifier Notifier
	logger   Logger
}

func NewCommands(core *Core, editor Editor, notifier Notifier, logger Logger) *Commands {
	return &Commands{core: core, editor: editor, notifier: notifier, logger: logger}
}

// Create annotates a line. A blank line is a validation case, reported to
// the user with no storage mutation. If the line already has a note it is
// opened as-is, never overwritten.
func (c *Commands) Create(lines []string, line int) error {
	text, err := c.lineAt(lines, line)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		c.notifier.Info(fmt.Sprintf("linemark: line %d is blank, nothing to annotate", line+1))
		return nil
	}
	id := HashLine(text)
	_, err = c.core.Store().Read(id)
	switch {
	case err == nil:
		// Existing note, just open it.
	case errors.Is(err, ErrNotFound):
		if writeErr := c.core.Store().Write(id, DefaultTemplate(line)); writeErr != nil {
			c.notifier.Error(fmt.Sprintf("linemark: cannot save note: %v", writeErr))
			return writeErr
		}
	default:
		c.notifier.Error(fmt.Sprintf("linemark: cannot read note: %v", err))
		return err
	}
	return c.open(id)
}

// Edit opens the existing note for a line. There is no auto-create; a
// missing note surfaces as a non-fatal user-visible error.
func (c *Commands) Edit(lines []string, line int) error {
	text, err := c.lineAt(lines, line)
	if err != nil {
		return err
	}
	id := HashLine(text)
	if _, err := c.core.Store().Read(id); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.notifier.Error(fmt.Sprintf("linemark: no note for line %d", line+1))
		} else {
			c.notifier.Error(fmt.Sprintf("linemark: cannot read note: %v", err))
		}
		return err
	}
	return c.open(id)
}

// Delete removes the note for a line, then drops the index entry and fires
// the change notification directly. Waiting for the watcher's removed
// event would leave a stale marker visible in the race window. Deleting a
// note that does not exist is logged, not surfaced.
func (c *Commands) Delete(lines []string, line int) error {
	text, err := c.lineAt(lines, line)
	if err != nil {
		return err
	}
	id := HashLine(text)
	if err := c.core.Store().Delete(id); err != nil {
		if errors.Is(err, ErrNotFound) {
			logf(c.logger, "linemark: delete: no note for line %d (%s)", line+1, id)
		} else {
			c.notifier.Error(fmt.Sprintf("linemark: cannot delete note: %v", err))
			return err
		}
	}
	c.core.DropFromIndex(id)
	return nil
}

// Lookup backs the on-hover presentation. It reads through a fresh
// directory snapshot rather than the index, so it stays correct even when
// the index is briefly stale. When no note exists it synthesizes a prompt
// offering to create one.
func (c *Commands) Lookup(lines []string, line int) (content string, exists bool, err error) {
	text, err := c.lineAt(lines, line)
	if err != nil {
		return "", false, err
	}
	all, err := c.core.Store().ListAll()
	if err != nil {
		return "", false, err
	}
	if content, ok := all[HashLine(text)]; ok {
		return content, true, nil
	}
	prompt := fmt.Sprintf("No note for this line yet.\n\n[Create one](%s)",
		CommandLink(CommandCreate, CommandArgs{Line: line}))
	return prompt, false, nil
}

func (c *Commands) open(id string) error {
	if err := c.editor.OpenBeside(c.core.Store().Path(id)); err != nil {
		c.notifier.Error(fmt.Sprintf("linemark: cannot open note: %v", err))
		return err
	}
	return nil
}

func (c *Commands) lineAt(lines []string, line int) (string, error) {
	if line < 0 || line >= len(lines) {
		err := fmt.Errorf("%w: line %d out of range (document has %d lines)", ErrInvalidInput, line, len(lines))
		c.notifier.Error(fmt.Sprintf("linemark: %v", err))
		return "", err
	}
	return lines[line], nil
}
