package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/foxzi/outreach/internal/models"
	"github.com/foxzi/outreach/internal/repository"
)

// Errors surfaced by the state machine. Never retried automatically.
var (
	ErrAlreadyRunning = errors.New("Another campaign is already running")
	ErrNoRun          = errors.New("No run found")
	ErrStateMismatch  = errors.New("Current state mismatch")
	ErrBadTransition  = errors.New("Invalid state transition")
)

// ValidTransitions is the authoritative stage-ordering table. idle may enter
// at insert generation directly for callers whose contacts already carry
// emails. Drafts may not jump to complete: sending is mandatory.
var ValidTransitions = map[string][]string{
	models.RunStateIdle:         {models.RunStateEmailFinding, models.RunStateInserts},
	models.RunStateEmailFinding: {models.RunStateInserts, models.RunStateFailed},
	models.RunStateInserts:      {models.RunStateDrafts, models.RunStateFailed},
	models.RunStateDrafts:       {models.RunStateSending, models.RunStateFailed},
	models.RunStateSending:      {models.RunStateComplete, models.RunStateFailed},
	models.RunStateComplete:     {},
	models.RunStateFailed:       {models.RunStateIdle},
}

// CanTransition reports whether from may legally move to to. Pure table
// lookup, usable by callers that want to pre-validate without mutating state.
func CanTransition(from, to string) bool {
	for _, allowed := range ValidTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Manager serializes campaign pipeline execution per user and enforces legal
// stage ordering. All state lives in the run repository; the database's
// conditional updates and partial unique index make the checks safe under
// concurrent callers.
type Manager struct {
	runs     *repository.RunRepository
	contacts *repository.ContactRepository
	logger   *slog.Logger
}

func NewManager(runs *repository.RunRepository, contacts *repository.ContactRepository, logger *slog.Logger) *Manager {
	return &Manager{
		runs:     runs,
		contacts: contacts,
		logger:   logger.With("component", "pipeline"),
	}
}

// IsRunning reports whether the user has a stage batch executing
func (m *Manager) IsRunning(userID string) (bool, error) {
	return m.runs.HasActive(userID)
}

// GetStatus returns the run progress for a campaign
func (m *Manager) GetStatus(campaignID string) (*models.CampaignRun, error) {
	run, err := m.runs.GetByCampaign(campaignID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrNoRun
	}
	return run, nil
}

// StartEmailFinding begins a fresh run at the email-finding stage. Rejects
// when any run is active for the user or the campaign exceeds the contact
// cap. A previous failed run is first reset through the failed→idle edge.
func (m *Manager) StartEmailFinding(userID, campaignID string) (*models.CampaignRun, error) {
	if err := m.checkNotRunning(userID); err != nil {
		return nil, err
	}

	count, err := m.contacts.CountByCampaign(campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to count contacts: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("campaign %s has no contacts", campaignID)
	}
	if count > MaxCampaignContacts {
		return nil, fmt.Errorf("campaign has %d contacts, exceeds maximum of %d", count, MaxCampaignContacts)
	}

	if err := m.resetIfFailed(campaignID); err != nil {
		return nil, err
	}
	return m.startFresh(userID, campaignID, models.RunStateEmailFinding, count)
}

// StartInsertGeneration begins the insert-generation stage. When the
// campaign's run sits at emailFindingRunning it advances along the table;
// with no prior run it enters directly from idle, which presumes the caller
// guarantees contacts already have emails.
func (m *Manager) StartInsertGeneration(userID, campaignID string) (*models.CampaignRun, error) {
	if err := m.checkNotRunning(userID); err != nil {
		return nil, err
	}

	count, err := m.contacts.CountByCampaign(campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to count contacts: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("campaign %s has no contacts", campaignID)
	}

	run, err := m.runs.GetByCampaign(campaignID)
	if err != nil {
		return nil, err
	}
	if run != nil && run.State == models.RunStateEmailFinding {
		return m.advance(campaignID, models.RunStateEmailFinding, models.RunStateInserts, count)
	}

	if err := m.resetIfFailed(campaignID); err != nil {
		return nil, err
	}

	// Fresh entry presumes contacts already carry emails; only those are
	// eligible work, so they are the batch total.
	emailCount, err := m.contacts.CountByCampaignWithEmail(campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to count contacts: %w", err)
	}
	if emailCount == 0 {
		return nil, fmt.Errorf("campaign %s has no contacts with emails", campaignID)
	}
	return m.startFresh(userID, campaignID, models.RunStateInserts, emailCount)
}

// StartDraftCreation begins the draft-composition stage. Requires the run to
// sit at insertsRunning; there is no fresh-entry path for drafts.
func (m *Manager) StartDraftCreation(userID, campaignID string) (*models.CampaignRun, error) {
	return m.startContinuation(userID, campaignID, models.RunStateInserts, models.RunStateDrafts)
}

// StartSending begins the sending stage. Requires the run to sit at
// draftsRunning.
func (m *Manager) StartSending(userID, campaignID string) (*models.CampaignRun, error) {
	return m.startContinuation(userID, campaignID, models.RunStateDrafts, models.RunStateSending)
}

// Transition moves the run along the table, validating that its stored state
// matches fromState. Only the transition to complete stamps completedAt.
func (m *Manager) Transition(campaignID, fromState, toState string) error {
	run, err := m.runs.GetByCampaign(campaignID)
	if err != nil {
		return err
	}
	if run == nil {
		return ErrNoRun
	}
	if run.State != fromState {
		return fmt.Errorf("%w: run is %s, expected %s", ErrStateMismatch, run.State, fromState)
	}
	if !CanTransition(fromState, toState) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, fromState, toState)
	}

	ok, err := m.runs.TransitionState(campaignID, fromState, toState)
	if err != nil {
		return err
	}
	if !ok {
		// Lost a race: someone moved the run between our read and write.
		return fmt.Errorf("%w: run is no longer %s", ErrStateMismatch, fromState)
	}

	m.logger.Info("run transitioned", "campaign_id", campaignID, "from", fromState, "to", toState)
	return nil
}

// FinishStage marks the current stage batch as done executing without moving
// the pipeline position.
func (m *Manager) FinishStage(campaignID string) error {
	return m.runs.Deactivate(campaignID)
}

// FailRun degrades the run to failed from whatever running state it holds
func (m *Manager) FailRun(campaignID, fromState string) error {
	return m.Transition(campaignID, fromState, models.RunStateFailed)
}

// ResetRun returns a failed run to idle so the pipeline can be retried
func (m *Manager) ResetRun(campaignID string) error {
	return m.Transition(campaignID, models.RunStateFailed, models.RunStateIdle)
}

func (m *Manager) checkNotRunning(userID string) error {
	running, err := m.runs.HasActive(userID)
	if err != nil {
		return err
	}
	if running {
		return ErrAlreadyRunning
	}
	return nil
}

// resetIfFailed walks the failed→idle retry edge before a fresh start
func (m *Manager) resetIfFailed(campaignID string) error {
	run, err := m.runs.GetByCampaign(campaignID)
	if err != nil {
		return err
	}
	if run != nil && run.State == models.RunStateFailed {
		if _, err := m.runs.TransitionState(campaignID, models.RunStateFailed, models.RunStateIdle); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) startFresh(userID, campaignID, state string, total int) (*models.CampaignRun, error) {
	run := &models.CampaignRun{
		UserID:     userID,
		CampaignID: campaignID,
		State:      state,
		TotalCount: total,
		Errors:     []models.RunError{},
	}
	if err := m.runs.Start(run); err != nil {
		if errors.Is(err, repository.ErrRunActive) {
			return nil, ErrAlreadyRunning
		}
		return nil, err
	}
	run.StageActive = true
	m.logger.Info("run started", "campaign_id", campaignID, "state", state, "total", total)
	return run, nil
}

func (m *Manager) advance(campaignID, fromState, toState string, total int) (*models.CampaignRun, error) {
	ok, err := m.runs.Advance(campaignID, fromState, toState, total)
	if err != nil {
		if errors.Is(err, repository.ErrRunActive) {
			return nil, ErrAlreadyRunning
		}
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: run is no longer %s", ErrStateMismatch, fromState)
	}
	m.logger.Info("run advanced", "campaign_id", campaignID, "from", fromState, "to", toState)
	return m.runs.GetByCampaign(campaignID)
}

func (m *Manager) startContinuation(userID, campaignID, fromState, toState string) (*models.CampaignRun, error) {
	if err := m.checkNotRunning(userID); err != nil {
		return nil, err
	}

	run, err := m.runs.GetByCampaign(campaignID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrNoRun
	}
	if run.State != fromState {
		return nil, fmt.Errorf("%w: run is %s, expected %s", ErrStateMismatch, run.State, fromState)
	}

	return m.advance(campaignID, fromState, toState, run.TotalCount)
}
