// Package clipboard reads the system clipboard for the capture loop.
package clipboard

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	systemclip "github.com/atotto/clipboard"

	"github.com/ericfisherdev/fastclip/internal/domain/model"
	"github.com/ericfisherdev/fastclip/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.ClipboardSource = (*CommandSource)(nil)
	_ driven.ClipboardSource = (*SystemSource)(nil)
)

const mimePNG = "image/png"

// Runner executes an external command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands through os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", name, err)
	}
	return out, nil
}

// tool describes how one clipboard utility lists offered types and reads a
// given type. An empty mime means the tool's default text target.
type tool struct {
	name  string
	types []string
	read  func(mime string) []string
}

var wlPaste = tool{
	name:  "wl-paste",
	types: []string{"--list-types"},
	read: func(mime string) []string {
		if mime == "" {
			return []string{"--no-newline"}
		}
		return []string{"--no-newline", "--type", mime}
	},
}

var xclip = tool{
	name:  "xclip",
	types: []string{"-selection", "clipboard", "-t", "TARGETS", "-o"},
	read: func(mime string) []string {
		if mime == "" {
			return []string{"-selection", "clipboard", "-o"}
		}
		return []string{"-selection", "clipboard", "-t", mime, "-o"}
	},
}

// CommandSource reads the clipboard through wl-paste (Wayland) or xclip (X11).
// PNG images are preferred over text when both are offered.
type CommandSource struct {
	tool tool
	run  Runner
}

// NewWaylandSource creates a CommandSource backed by wl-paste.
func NewWaylandSource(run Runner) *CommandSource {
	return &CommandSource{tool: wlPaste, run: run}
}

// NewX11Source creates a CommandSource backed by xclip.
func NewX11Source(run Runner) *CommandSource {
	return &CommandSource{tool: xclip, run: run}
}

// Tool returns the name of the utility this source shells out to.
func (s *CommandSource) Tool() string {
	return s.tool.name
}

// Read returns the current clipboard content. A failing command or empty
// output is reported as driven.ErrNoContent.
func (s *CommandSource) Read(ctx context.Context) (model.Snapshot, error) {
	out, err := s.run(ctx, s.tool.name, s.tool.types...)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: list types: %v", driven.ErrNoContent, err)
	}

	mime, kind, ok := pickType(strings.Fields(string(out)))
	if !ok {
		return model.Snapshot{}, driven.ErrNoContent
	}

	content, err := s.run(ctx, s.tool.name, s.tool.read(mime)...)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: read %s: %v", driven.ErrNoContent, kind, err)
	}
	if len(content) == 0 {
		return model.Snapshot{}, driven.ErrNoContent
	}

	return model.Snapshot{Content: content, Kind: kind}, nil
}

// pickType chooses what to read from the offered targets.
func pickType(offered []string) (string, model.EntryKind, bool) {
	text := false
	for _, t := range offered {
		if t == mimePNG {
			return mimePNG, model.EntryKindImage, true
		}
		if isText(t) {
			text = true
		}
	}
	if text {
		return "", model.EntryKindText, true
	}
	return "", "", false
}

func isText(target string) bool {
	switch target {
	case "UTF8_STRING", "STRING", "TEXT":
		return true
	}
	return strings.HasPrefix(target, "text/")
}

// SystemSource reads text through github.com/atotto/clipboard. It never
// reports images.
type SystemSource struct{}

// NewSystemSource creates a SystemSource.
func NewSystemSource() *SystemSource {
	return &SystemSource{}
}

// Read returns the clipboard text, or driven.ErrNoContent when it is empty
// or unreadable.
func (s *SystemSource) Read(ctx context.Context) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, err
	}
	if systemclip.Unsupported {
		return model.Snapshot{}, fmt.Errorf("%w: no clipboard utility", driven.ErrNoContent)
	}

	text, err := systemclip.ReadAll()
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %v", driven.ErrNoContent, err)
	}
	if text == "" {
		return model.Snapshot{}, driven.ErrNoContent
	}

	return model.Snapshot{Content: []byte(text), Kind: model.EntryKindText}, nil
}

// New picks wl-paste, then xclip, falling back to SystemSource when neither
// is installed.
func New() driven.ClipboardSource {
	return newWithLookup(exec.LookPath)
}

func newWithLookup(lookPath func(string) (string, error)) driven.ClipboardSource {
	if _, err := lookPath(wlPaste.name); err == nil {
		return NewWaylandSource(ExecRunner)
	}
	if _, err := lookPath(xclip.name); err == nil {
		return NewX11Source(ExecRunner)
	}
	return NewSystemSource()
}
