package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/foxzi/outreach/internal/metrics"
	"github.com/foxzi/outreach/internal/models"
	"github.com/foxzi/outreach/internal/repository"
)

// ContentGenerator unifies the two generation concerns a run needs
type ContentGenerator interface {
	InsertGenerator
	DraftGenerator
}

// StageSummary is what a stage-trigger action returns to the caller
type StageSummary struct {
	CampaignID string       `json:"campaignId"`
	Stage      string       `json:"stage"`
	State      string       `json:"state"`
	Processed  int          `json:"processed"`
	Succeeded  int          `json:"succeeded"`
	Skipped    int          `json:"skipped"`
	Failed     int          `json:"failed"`
	Errors     []StageError `json:"errors,omitempty"`
}

// Runner drives one pipeline stage end to end: claims the stage through the
// state machine, executes the batch, persists contact changes and progress,
// and releases or degrades the run.
type Runner struct {
	manager   *Manager
	contacts  *repository.ContactRepository
	runs      *repository.RunRepository
	finder    EmailFinder
	fetcher   PageFetcher
	generator ContentGenerator
	mail      MailProvider
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewRunner(
	manager *Manager,
	contacts *repository.ContactRepository,
	runs *repository.RunRepository,
	finder EmailFinder,
	fetcher PageFetcher,
	generator ContentGenerator,
	mail MailProvider,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		manager:   manager,
		contacts:  contacts,
		runs:      runs,
		finder:    finder,
		fetcher:   fetcher,
		generator: generator,
		mail:      mail,
		metrics:   m,
		logger:    logger.With("component", "runner"),
	}
}

// RunEmailFinding executes the email-finding stage for a campaign
func (r *Runner) RunEmailFinding(ctx context.Context, userID, campaignID string) (*StageSummary, error) {
	run, err := r.manager.StartEmailFinding(userID, campaignID)
	if err != nil {
		return nil, err
	}

	list, err := r.contacts.ListByCampaign(campaignID)
	if err != nil {
		r.degrade(campaignID, run.State, err)
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}

	result := FindEmails(ctx, r.finder, list, r.progressFunc(campaignID))
	if err := r.persistContacts(list, result.Contacts); err != nil {
		r.degrade(campaignID, run.State, err)
		return nil, err
	}

	return r.finishStage(campaignID, run.State, StageEmailFinding, len(list), result.Found, result.Skipped, result.Errors)
}

// RunInsertGeneration executes the insert-generation stage for a campaign
func (r *Runner) RunInsertGeneration(ctx context.Context, userID, campaignID string) (*StageSummary, error) {
	run, err := r.manager.StartInsertGeneration(userID, campaignID)
	if err != nil {
		return nil, err
	}

	list, err := r.contacts.ListByCampaign(campaignID)
	if err != nil {
		r.degrade(campaignID, run.State, err)
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}

	result := GenerateInserts(ctx, r.fetcher, r.generator, list, r.progressFunc(campaignID))
	if err := r.persistContacts(list, result.Contacts); err != nil {
		r.degrade(campaignID, run.State, err)
		return nil, err
	}

	return r.finishStage(campaignID, run.State, StageInserts, len(list), result.Generated, result.Skipped, result.Errors)
}

// RunDraftCreation executes the draft-composition stage for a campaign
func (r *Runner) RunDraftCreation(ctx context.Context, userID, campaignID string) (*StageSummary, error) {
	run, err := r.manager.StartDraftCreation(userID, campaignID)
	if err != nil {
		return nil, err
	}

	list, err := r.contacts.ListByCampaign(campaignID)
	if err != nil {
		r.degrade(campaignID, run.State, err)
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}

	result := ComposeDrafts(ctx, r.generator, r.mail, list, r.progressFunc(campaignID))
	if err := r.persistContacts(list, result.Contacts); err != nil {
		r.degrade(campaignID, run.State, err)
		return nil, err
	}

	return r.finishStage(campaignID, run.State, StageDrafts, len(list), result.Drafted, result.Skipped, result.Errors)
}

// RunSending executes the sending stage for a campaign. Completing it moves
// the run to its terminal complete state.
func (r *Runner) RunSending(ctx context.Context, userID, campaignID string) (*StageSummary, error) {
	run, err := r.manager.StartSending(userID, campaignID)
	if err != nil {
		return nil, err
	}

	list, err := r.contacts.ListByCampaign(campaignID)
	if err != nil {
		r.degrade(campaignID, run.State, err)
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}

	result := SendDrafts(ctx, r.mail, list, r.progressFunc(campaignID))
	if err := r.persistContacts(list, result.Contacts); err != nil {
		r.degrade(campaignID, run.State, err)
		return nil, err
	}

	runErrors := toRunErrors(result.Errors, StageSending)
	if err := r.runs.UpdateProgress(campaignID, len(list), runErrors); err != nil {
		r.logger.Error("failed to update run progress", "campaign_id", campaignID, "error", err)
	}
	if err := r.manager.Transition(campaignID, models.RunStateSending, models.RunStateComplete); err != nil {
		return nil, err
	}
	if r.metrics != nil {
		r.metrics.RecordStage(StageSending, result.Sent, result.Skipped, len(result.Errors))
	}

	r.logger.Info("sending complete", "campaign_id", campaignID,
		"sent", result.Sent, "skipped", result.Skipped, "failed", len(result.Errors))

	return &StageSummary{
		CampaignID: campaignID,
		Stage:      StageSending,
		State:      models.RunStateComplete,
		Processed:  len(list),
		Succeeded:  result.Sent,
		Skipped:    result.Skipped,
		Failed:     len(result.Errors),
		Errors:     result.Errors,
	}, nil
}

// progressFunc persists the processed counter after every contact. Batches
// are capped at 30 contacts, so a write per item is cheap enough.
func (r *Runner) progressFunc(campaignID string) ProgressFunc {
	return func(processed, _ int) {
		if err := r.runs.UpdateProcessed(campaignID, processed); err != nil {
			r.logger.Debug("failed to persist progress", "campaign_id", campaignID, "error", err)
		}
	}
}

// persistContacts writes back the contacts the stage changed
func (r *Runner) persistContacts(before, after []models.Contact) error {
	for i := range after {
		if i < len(before) && contactUnchanged(before[i], after[i]) {
			continue
		}
		c := after[i]
		if err := r.contacts.UpdateWorkflow(&c); err != nil {
			return fmt.Errorf("failed to persist contact %s: %w", c.ID, err)
		}
	}
	return nil
}

func contactUnchanged(a, b models.Contact) bool {
	return a.Email == b.Email &&
		a.EmailConfidence == b.EmailConfidence &&
		a.Insert == b.Insert &&
		a.InsertConfidence == b.InsertConfidence &&
		a.EmailStatus == b.EmailStatus &&
		a.DraftID == b.DraftID &&
		a.PipelineStage == b.PipelineStage
}

// finishStage records errors, releases the stage and builds the summary for
// the three non-terminal stages.
func (r *Runner) finishStage(campaignID, state, stage string, processed, succeeded, skipped int, stageErrors []StageError) (*StageSummary, error) {
	runErrors := toRunErrors(stageErrors, stage)
	if err := r.runs.UpdateProgress(campaignID, processed, runErrors); err != nil {
		r.logger.Error("failed to update run progress", "campaign_id", campaignID, "error", err)
	}
	if err := r.manager.FinishStage(campaignID); err != nil {
		return nil, err
	}
	if r.metrics != nil {
		r.metrics.RecordStage(stage, succeeded, skipped, len(stageErrors))
	}

	r.logger.Info("stage complete", "campaign_id", campaignID, "stage", stage,
		"succeeded", succeeded, "skipped", skipped, "failed", len(stageErrors))

	return &StageSummary{
		CampaignID: campaignID,
		Stage:      stage,
		State:      state,
		Processed:  processed,
		Succeeded:  succeeded,
		Skipped:    skipped,
		Failed:     len(stageErrors),
		Errors:     stageErrors,
	}, nil
}

// degrade moves the run to failed after an infrastructure-level error
func (r *Runner) degrade(campaignID, fromState string, cause error) {
	r.logger.Error("stage failed", "campaign_id", campaignID, "state", fromState, "error", cause)
	if err := r.manager.FailRun(campaignID, fromState); err != nil {
		r.logger.Error("failed to degrade run", "campaign_id", campaignID, "error", err)
	}
}

func toRunErrors(stageErrors []StageError, stage string) []models.RunError {
	out := make([]models.RunError, len(stageErrors))
	for i, e := range stageErrors {
		out[i] = models.RunError{ContactID: e.ContactID, Stage: stage, Error: e.Error}
	}
	return out
}
