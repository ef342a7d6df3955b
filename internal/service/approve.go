// Package service holds business operations that span more than one
// repository.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/foxzi/outreach/internal/action"
	"github.com/foxzi/outreach/internal/models"
	"github.com/foxzi/outreach/internal/repository"
)

// Approver converts kept staged contacts into a campaign with committed
// contacts, then clears the user's staging area. Contacts the user did not
// keep are discarded along with the rest of the staging area.
type Approver struct {
	staging   *repository.StagingRepository
	campaigns *repository.CampaignRepository
	contacts  *repository.ContactRepository
	logger    *slog.Logger
}

func NewApprover(staging *repository.StagingRepository, campaigns *repository.CampaignRepository, contacts *repository.ContactRepository, logger *slog.Logger) *Approver {
	return &Approver{
		staging:   staging,
		campaigns: campaigns,
		contacts:  contacts,
		logger:    logger.With("component", "approver"),
	}
}

// Approve creates the campaign, commits the kept contacts, and clears
// staging. Every kept ID must exist in the user's staging area.
func (a *Approver) Approve(ctx context.Context, userID, campaignName string, keptContactIDs []string) (*models.Campaign, error) {
	if len(keptContactIDs) > action.MaxBatchSize {
		return nil, fmt.Errorf("campaign size %d exceeds maximum of %d", len(keptContactIDs), action.MaxBatchSize)
	}

	staged, err := a.staging.GetByIDs(userID, keptContactIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load staged contacts: %w", err)
	}
	if len(staged) != len(keptContactIDs) {
		return nil, fmt.Errorf("%d of %d staged contacts not found", len(keptContactIDs)-len(staged), len(keptContactIDs))
	}

	campaign := &models.Campaign{
		UserID: userID,
		Name:   campaignName,
	}
	if err := a.campaigns.Create(campaign); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	for _, s := range staged {
		c := &models.Contact{
			ID:            uuid.New().String(),
			UserID:        userID,
			CampaignID:    campaign.ID,
			Name:          s.Name,
			Company:       s.Company,
			WebsiteURL:    s.URL,
			EmailStatus:   models.EmailStatusNone,
			PipelineStage: models.PipelineStageProspect,
		}
		if err := a.contacts.Create(c); err != nil {
			return nil, fmt.Errorf("failed to commit contact %s: %w", s.ID, err)
		}
	}
	campaign.ContactCount = len(staged)

	if err := a.staging.Clear(userID); err != nil {
		// Contacts are committed; stale staging rows are an annoyance, not
		// a correctness problem.
		a.logger.Warn("failed to clear staging area", "user_id", userID, "error", err)
	}

	a.logger.Info("campaign approved",
		"campaign_id", campaign.ID,
		"name", campaignName,
		"contacts", len(staged))
	return campaign, nil
}
