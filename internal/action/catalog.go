// Package action implements the agent-facing action layer: a static catalog
// of 14 named actions, payload validation, mode and confirmation gating, and
// an executor that dispatches approved actions to their handlers.
package action

import "fmt"

// Mode is the privilege level of the calling session
type Mode string

const (
	ModeFinder    Mode = "finder"
	ModeManager   Mode = "manager"
	ModeAssistant Mode = "assistant"
)

// Type identifies one of the enumerated actions an agent may request
type Type string

const (
	// discovery
	TypeFindContacts         Type = "find_contacts"
	TypeStageContacts        Type = "stage_contacts"
	TypeGetStagedContacts    Type = "get_staged_contacts"
	TypeApproveStagedContacts Type = "approve_staged_contacts"

	// campaign stages
	TypeRunEmailFinding     Type = "run_email_finding"
	TypeRunInsertGeneration Type = "run_insert_generation"
	TypeRunDraftCreation    Type = "run_draft_creation"
	TypeSendEmails          Type = "send_emails"

	// read
	TypeQueryContacts Type = "query_contacts"

	// mutation
	TypeMovePipelineStage  Type = "move_pipeline_stage"
	TypeUpdateContactField Type = "update_contact_field"
	TypeBulkUpdateContacts Type = "bulk_update_contacts"
	TypeDeleteContacts     Type = "delete_contacts"
	TypeSaveContactView    Type = "save_contact_view"
)

// spec describes one catalog entry
type spec struct {
	modes        []Mode
	confirmation bool
}

var catalog = map[Type]spec{
	TypeFindContacts:          {modes: []Mode{ModeFinder, ModeManager}},
	TypeStageContacts:         {modes: []Mode{ModeFinder, ModeManager}},
	TypeGetStagedContacts:     {modes: []Mode{ModeFinder, ModeManager}},
	TypeApproveStagedContacts: {modes: []Mode{ModeFinder, ModeManager}, confirmation: true},

	TypeRunEmailFinding:     {modes: []Mode{ModeManager}},
	TypeRunInsertGeneration: {modes: []Mode{ModeManager}},
	TypeRunDraftCreation:    {modes: []Mode{ModeManager}},
	TypeSendEmails:          {modes: []Mode{ModeManager}, confirmation: true},

	TypeQueryContacts: {modes: []Mode{ModeFinder, ModeManager, ModeAssistant}},

	TypeMovePipelineStage:  {modes: []Mode{ModeManager}},
	TypeUpdateContactField: {modes: []Mode{ModeManager}},
	TypeBulkUpdateContacts: {modes: []Mode{ModeManager}, confirmation: true},
	TypeDeleteContacts:     {modes: []Mode{ModeManager}, confirmation: true},
	TypeSaveContactView:    {modes: []Mode{ModeManager, ModeAssistant}},
}

// AllTypes returns every registered action type
func AllTypes() []Type {
	out := make([]Type, 0, len(catalog))
	for t := range catalog {
		out = append(out, t)
	}
	return out
}

// Known reports whether t is a registered action type
func Known(t Type) bool {
	_, ok := catalog[t]
	return ok
}

// AllowedModes returns the operating modes in which t may run
func AllowedModes(t Type) []Mode {
	return catalog[t].modes
}

// RequiresConfirmation reports whether t needs explicit user confirmation
func RequiresConfirmation(t Type) bool {
	return catalog[t].confirmation
}

// ModeAllowed reports whether t may run in mode m
func ModeAllowed(t Type, m Mode) bool {
	for _, allowed := range catalog[t].modes {
		if allowed == m {
			return true
		}
	}
	return false
}

func modeError(t Type, current Mode) error {
	return fmt.Errorf("action %s requires mode %v, current mode is %s", t, AllowedModes(t), current)
}
