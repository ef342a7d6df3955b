package action

import "testing"

func TestCatalogCoversAllTypes(t *testing.T) {
	want := []Type{
		TypeFindContacts,
		TypeStageContacts,
		TypeGetStagedContacts,
		TypeApproveStagedContacts,
		TypeRunEmailFinding,
		TypeRunInsertGeneration,
		TypeRunDraftCreation,
		TypeSendEmails,
		TypeQueryContacts,
		TypeMovePipelineStage,
		TypeUpdateContactField,
		TypeBulkUpdateContacts,
		TypeDeleteContacts,
		TypeSaveContactView,
	}

	if len(AllTypes()) != len(want) {
		t.Fatalf("expected %d registered types, got %d", len(want), len(AllTypes()))
	}
	for _, typ := range want {
		if !Known(typ) {
			t.Errorf("expected %s to be a known type", typ)
		}
		if len(AllowedModes(typ)) == 0 {
			t.Errorf("expected %s to allow at least one mode", typ)
		}
	}
	if Known(Type("drop_database")) {
		t.Error("unregistered type should not be known")
	}
}

func TestModeMatrix(t *testing.T) {
	tests := []struct {
		typ     Type
		mode    Mode
		allowed bool
	}{
		{TypeFindContacts, ModeFinder, true},
		{TypeFindContacts, ModeManager, true},
		{TypeFindContacts, ModeAssistant, false},
		{TypeApproveStagedContacts, ModeFinder, true},
		{TypeApproveStagedContacts, ModeAssistant, false},
		{TypeRunEmailFinding, ModeManager, true},
		{TypeRunEmailFinding, ModeFinder, false},
		{TypeSendEmails, ModeManager, true},
		{TypeSendEmails, ModeAssistant, false},
		{TypeQueryContacts, ModeFinder, true},
		{TypeQueryContacts, ModeManager, true},
		{TypeQueryContacts, ModeAssistant, true},
		{TypeDeleteContacts, ModeManager, true},
		{TypeDeleteContacts, ModeFinder, false},
		{TypeSaveContactView, ModeAssistant, true},
		{TypeSaveContactView, ModeFinder, false},
	}

	for _, tc := range tests {
		if got := ModeAllowed(tc.typ, tc.mode); got != tc.allowed {
			t.Errorf("ModeAllowed(%s, %s) = %v, want %v", tc.typ, tc.mode, got, tc.allowed)
		}
	}
}

func TestConfirmationGatedSet(t *testing.T) {
	gated := map[Type]bool{
		TypeApproveStagedContacts: true,
		TypeSendEmails:            true,
		TypeBulkUpdateContacts:    true,
		TypeDeleteContacts:        true,
	}

	for _, typ := range AllTypes() {
		if got := RequiresConfirmation(typ); got != gated[typ] {
			t.Errorf("RequiresConfirmation(%s) = %v, want %v", typ, got, gated[typ])
		}
	}
}
