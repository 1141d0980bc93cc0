package linemark

import (
	"errors"
	"strings"
	"testing"
)

func newTestCommands(t *testing.T) (*Commands, *Core, *recordingEditor, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	core := newTestCore(t, &fakeVCS{}, notifier)
	core.HandleBranchChange("feature-x")
	if core.State() != Armed {
		t.Fatalf("test core failed to arm")
	}
	editor := &recordingEditor{}
	commands := NewCommands(core, editor, notifier, nil)
	return commands, core, editor, notifier
}

func TestCreateBlankLineValidates(t *testing.T) {
	commands, core, editor, notifier := newTestCommands(t)

	if err := commands.Create([]string{"   ", "code"}, 0); err != nil {
		t.Fatalf("blank-line create must not fail: %v", err)
	}
	infos, _, _ := notifier.counts()
	if infos != 1 {
		t.Fatalf("expected one validation message, got %d", infos)
	}
	all, err := core.Store().ListAll()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("blank-line create wrote to storage")
	}
	if len(editor.openedPaths()) != 0 {
		t.Fatalf("blank-line create opened a document")
	}
}

func TestCreateWritesTemplateAndOpens(t *testing.T) {
	commands, core, editor, _ := newTestCommands(t)

	if err := commands.Create([]string{"code line"}, 0); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	id := HashLine("code line")
	content, err := core.Store().Read(id)
	if err != nil {
		t.Fatalf("read after create failed: %v", err)
	}
	for _, want := range []string{
		"command:" + CommandEdit,
		"command:" + CommandDelete,
		"%7B%22line%22%3A0%7D",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("template missing %q:\n%s", want, content)
		}
	}
	opened := editor.openedPaths()
	if len(opened) != 1 || opened[0] != core.Store().Path(id) {
		t.Fatalf("expected note opened beside, got %v", opened)
	}
}

func TestCreateExistingOpensWithoutOverwrite(t *testing.T) {
	commands, core, editor, _ := newTestCommands(t)
	id := HashLine("code line")
	if err := core.Store().Write(id, "my existing note"); err != nil {
		t.Fatalf("seed write failed: %v", err)
	}

	if err := commands.Create([]string{"code line"}, 0); err != nil {
		t.Fatalf("create on existing failed: %v", err)
	}
	content, err := core.Store().Read(id)
	if err != nil || content != "my existing note" {
		t.Fatalf("create overwrote existing note: %q, %v", content, err)
	}
	if len(editor.openedPaths()) != 1 {
		t.Fatalf("existing note was not opened")
	}
}

func TestEditMissingSurfacesNotFound(t *testing.T) {
	commands, _, editor, notifier := newTestCommands(t)

	err := commands.Edit([]string{"code line"}, 0)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, errs := notifier.counts(); errs != 1 {
		t.Fatalf("missing-note edit must surface a user-visible error")
	}
	if len(editor.openedPaths()) != 0 {
		t.Fatalf("missing-note edit opened a document")
	}
}

func TestDeleteUpdatesIndexSynchronously(t *testing.T) {
	commands, core, _, _ := newTestCommands(t)

	if err := commands.Create([]string{"code line"}, 0); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	id := HashLine("code line")
	waitFor(t, "note indexed after create", func() bool {
		_, ok := core.Index().Get(id)
		return ok
	})

	if err := commands.Delete([]string{"code line"}, 0); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	// No waiting here: the marker must be gone before any watch event.
	if markers := core.Markers([]string{"code line"}); len(markers) != 0 {
		t.Fatalf("marker still visible immediately after delete")
	}
}

func TestDeleteMissingIsNonFatal(t *testing.T) {
	commands, _, _, notifier := newTestCommands(t)
	if err := commands.Delete([]string{"code line"}, 0); err != nil {
		t.Fatalf("delete of missing note must not fail: %v", err)
	}
	if _, _, errs := notifier.counts(); errs != 0 {
		t.Fatalf("delete of missing note must not surface an error")
	}
}

func TestLookupFreshReadAndPrompt(t *testing.T) {
	commands, core, _, _ := newTestCommands(t)

	// Bypass the index entirely: write straight to the store and look up
	// before any watch event could have run.
	id := HashLine("code line")
	if err := core.Store().Write(id, "hover content"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	content, exists, err := commands.Lookup([]string{"code line"}, 0)
	if err != nil || !exists || content != "hover content" {
		t.Fatalf("lookup: %q, %v, %v", content, exists, err)
	}

	prompt, exists, err := commands.Lookup([]string{"unannotated"}, 0)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if exists {
		t.Fatalf("lookup of unannotated line reported existing note")
	}
	if !strings.Contains(prompt, "command:"+CommandCreate) {
		t.Fatalf("prompt missing create link: %q", prompt)
	}
}

func TestCommandOutOfRange(t *testing.T) {
	commands, _, _, notifier := newTestCommands(t)
	if err := commands.Create([]string{"only line"}, 5); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, _, errs := notifier.counts(); errs != 1 {
		t.Fatalf("out-of-range line must surface an error")
	}
}

func TestParseArgs(t *testing.T) {
	args, err := ParseArgs([]byte(`{"line": 12}`))
	if err != nil || args.Line != 12 {
		t.Fatalf("parse: %+v, %v", args, err)
	}

	if args, err = ParseArgs(nil); err != nil || args != DefaultArgs() {
		t.Fatalf("empty payload should yield defaults: %+v, %v", args, err)
	}

	for _, bad := range []string{
		`{"line": -1}`,
		`{"line": "12"}`,
		`{"line": 1, "extra": true}`,
		`{}`,
		`[1]`,
		`{"line": 1.5}`,
	} {
		if _, err := ParseArgs([]byte(bad)); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("payload %s should be rejected, got %v", bad, err)
		}
	}
}

func TestCommandLinkEscaping(t *testing.T) {
	link := CommandLink(CommandEdit, CommandArgs{Line: 7})
	if link != "command:linemark.edit?%7B%22line%22%3A7%7D" {
		t.Fatalf("unexpected link %q", link)
	}
}
