package wire

import "testing"

func TestAssemblerBuffersPartialLine(t *testing.T) {
	a := NewAssembler()

	lines := a.Feed([]byte("hel"))
	if len(lines) != 0 {
		t.Fatalf("partial chunk yielded lines: %v", lines)
	}

	lines = a.Feed([]byte("lo\nworld\npartial"))
	if got, want := lines, []string{"hello", "world"}; !equalSlices(got, want) {
		t.Fatalf("Feed = %v, want %v", got, want)
	}

	lines = a.Feed([]byte("-tail\n"))
	if got, want := lines, []string{"partial-tail"}; !equalSlices(got, want) {
		t.Fatalf("Feed = %v, want %v", got, want)
	}
}

func TestAssemblerMultipleLinesInOneChunk(t *testing.T) {
	a := NewAssembler()
	lines := a.Feed([]byte("/clients\nhello\n/help\n"))
	want := []string{"/clients", "hello", "/help"}
	if !equalSlices(lines, want) {
		t.Fatalf("Feed = %v, want %v", lines, want)
	}
}

func TestClassifyLineCommand(t *testing.T) {
	cmd, isCommand, chat := ClassifyLine("/connect bob")
	if !isCommand {
		t.Fatal("expected a command")
	}
	if chat != "" {
		t.Fatalf("unexpected chat text: %q", chat)
	}
	if cmd.Name != "connect" || len(cmd.Args) != 1 || cmd.Args[0] != "bob" {
		t.Fatalf("got %+v", cmd)
	}
}

func TestClassifyLineStripsLeadingSlashRun(t *testing.T) {
	cmd, isCommand, _ := ClassifyLine("///clients")
	if !isCommand || cmd.Name != "clients" {
		t.Fatalf("got %+v isCommand=%v", cmd, isCommand)
	}
}

func TestClassifyLineBareSlashesYieldEmptyName(t *testing.T) {
	cmd, isCommand, _ := ClassifyLine("///")
	if !isCommand || cmd.Name != "" {
		t.Fatalf("got %+v isCommand=%v", cmd, isCommand)
	}
}

func TestClassifyLineChatTextIsTrimmed(t *testing.T) {
	_, isCommand, chat := ClassifyLine("  hello there  ")
	if isCommand {
		t.Fatal("expected chat text, not a command")
	}
	if chat != "hello there" {
		t.Fatalf("got %q", chat)
	}
}

// P7: every encoded outbound message ends in exactly one '\n'.
func TestEncodeLineExactlyOneTrailingNewline(t *testing.T) {
	for _, payload := range []string{"", "hi", "line\nwith\nembedded\nnewlines"} {
		out := EncodeLine(payload)
		if len(out) == 0 || out[len(out)-1] != '\n' {
			t.Fatalf("EncodeLine(%q) = %q, missing trailing newline", payload, out)
		}
		if len(out) >= 2 && out[len(out)-2] == '\n' {
			t.Fatalf("EncodeLine(%q) produced a double newline: %q", payload, out)
		}
	}
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
