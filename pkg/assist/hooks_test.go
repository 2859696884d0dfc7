package assist

import "testing"

func TestCommandSection(t *testing.T) {
	tests := []struct {
		command Command
		section Section
		ok      bool
	}{
		{CommandOpenSermons, SectionSermons, true},
		{CommandOpenLetters, SectionLetters, true},
		{CommandOpenSayings, SectionSayings, true},
		{CommandSetDarkMode, "", false},
		{Command("unknown"), "", false},
	}
	for _, tt := range tests {
		sec, ok := tt.command.Section()
		if sec != tt.section || ok != tt.ok {
			t.Errorf("Section(%q) = %q/%v, want %q/%v", tt.command, sec, ok, tt.section, tt.ok)
		}
	}
}

func TestHooksApply(t *testing.T) {
	var sections []Section
	var modes []bool
	h := Hooks{
		OpenSection: func(s Section) { sections = append(sections, s) },
		SetDarkMode: func(on bool) { modes = append(modes, on) },
	}

	on := true
	if !h.Apply(Action{Command: CommandOpenSayings}) {
		t.Error("Apply(openSayings) = false, want true")
	}
	if !h.Apply(Action{Command: CommandSetDarkMode, Enabled: &on}) {
		t.Error("Apply(setDarkMode, true) = false, want true")
	}

	// setDarkMode without its payload must not fire.
	if h.Apply(Action{Command: CommandSetDarkMode}) {
		t.Error("Apply(setDarkMode, nil) = true, want false")
	}
	// Unknown commands are ignored.
	if h.Apply(Action{Command: "selfDestruct"}) {
		t.Error("Apply(unknown) = true, want false")
	}

	if len(sections) != 1 || sections[0] != SectionSayings {
		t.Errorf("sections = %v", sections)
	}
	if len(modes) != 1 || !modes[0] {
		t.Errorf("modes = %v", modes)
	}
}

func TestHooksApplyZeroValue(t *testing.T) {
	var h Hooks
	on := true
	if h.Apply(Action{Command: CommandOpenSermons}) {
		t.Error("zero Hooks reported a fired callback")
	}
	if h.Apply(Action{Command: CommandSetDarkMode, Enabled: &on}) {
		t.Error("zero Hooks reported a fired callback")
	}
}
