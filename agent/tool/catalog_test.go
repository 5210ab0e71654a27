package tool

import (
	"context"
	"testing"

	registryx "github.com/pitchside/pitchside-agent/agent/registry"
)

func TestRegisterBuiltins(t *testing.T) {
	t.Parallel()

	registry := registryx.New()
	if err := RegisterBuiltins(registry); err != nil {
		t.Fatalf("register builtins: %v", err)
	}
	registry.Seal()

	if registry.Len() != len(Builtins()) {
		t.Fatalf("registry has %d tools, want %d", registry.Len(), len(Builtins()))
	}

	for _, builtin := range Builtins() {
		entry, err := registry.Get(builtin.Descriptor.ID)
		if err != nil {
			t.Fatalf("get %s: %v", builtin.Descriptor.ID, err)
		}
		if entry.Descriptor.Category != builtin.Descriptor.Category {
			t.Fatalf("%s category = %q", builtin.Descriptor.ID, entry.Descriptor.Category)
		}
	}
}

func TestBuiltinsReturnData(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	args := map[string]any{
		"team": "Arsenal", "player": "Saka", "subject": "Arsenal",
		"team_a": "Arsenal", "team_b": "Chelsea", "date_range": "last_5",
	}
	for _, builtin := range Builtins() {
		payload, err := builtin.Impl.Invoke(ctx, args)
		if err != nil {
			t.Fatalf("%s: %v", builtin.Descriptor.ID, err)
		}
		if payload == nil {
			t.Fatalf("%s returned nil payload", builtin.Descriptor.ID)
		}
	}
}

func TestBuiltinDescriptorsValid(t *testing.T) {
	t.Parallel()

	for _, builtin := range Builtins() {
		d := builtin.Descriptor
		if d.Reliability < 0 || d.Reliability > 1 {
			t.Errorf("%s reliability = %v", d.ID, d.Reliability)
		}
		for _, spec := range d.InputSchema {
			if spec.Name == "" {
				t.Errorf("%s has an unnamed parameter", d.ID)
			}
		}
	}
}
