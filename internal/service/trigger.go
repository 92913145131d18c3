package service

import (
	"context"

	"github.com/freelanceops/billing/internal/api/dto"
	"github.com/freelanceops/billing/internal/cache"
	"github.com/freelanceops/billing/internal/domain/workflow"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
	"github.com/samber/lo"
)

type TriggerService interface {
	CreateTrigger(ctx context.Context, req dto.CreateTriggerRequest) (*dto.TriggerResponse, error)
	GetTrigger(ctx context.Context, id string) (*dto.TriggerResponse, error)
	ListTriggers(ctx context.Context, filter *types.WorkflowTriggerFilter) (*dto.ListTriggersResponse, error)
	UpdateTrigger(ctx context.Context, id string, req dto.UpdateTriggerRequest) (*dto.TriggerResponse, error)
	DeleteTrigger(ctx context.Context, id string) error
	// ToggleTrigger flips the active flag
	ToggleTrigger(ctx context.Context, id string) (*dto.TriggerResponse, error)
}

type triggerService struct {
	ServiceParams
}

func NewTriggerService(params ServiceParams) TriggerService {
	return &triggerService{ServiceParams: params}
}

func (s *triggerService) CreateTrigger(ctx context.Context, req dto.CreateTriggerRequest) (*dto.TriggerResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t := req.ToTrigger(ctx)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.encryptSecrets(t, nil); err != nil {
		return nil, err
	}
	if err := s.TriggerRepo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx)

	s.Logger.Infow("workflow trigger created",
		"trigger_id", t.ID,
		"event_type", t.EventType,
		"actions", len(t.Actions),
	)
	return dto.NewTriggerResponse(t), nil
}

func (s *triggerService) GetTrigger(ctx context.Context, id string) (*dto.TriggerResponse, error) {
	t, err := s.TriggerRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewTriggerResponse(t), nil
}

func (s *triggerService) ListTriggers(ctx context.Context, filter *types.WorkflowTriggerFilter) (*dto.ListTriggersResponse, error) {
	if filter == nil {
		filter = types.NewWorkflowTriggerFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if filter.EventType != "" {
		if err := filter.EventType.Validate(); err != nil {
			return nil, err
		}
	}

	triggers, err := s.TriggerRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.TriggerRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	resp := types.NewListResponse(
		lo.Map(triggers, func(t *workflow.Trigger, _ int) *dto.TriggerResponse { return dto.NewTriggerResponse(t) }),
		total, filter.GetLimit(), filter.GetOffset(),
	)
	return &resp, nil
}

func (s *triggerService) UpdateTrigger(ctx context.Context, id string, req dto.UpdateTriggerRequest) (*dto.TriggerResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t, err := s.TriggerRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := append([]workflow.Action(nil), t.Actions...)

	req.Apply(t)
	if err := s.encryptSecrets(t, previous); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.TriggerRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx)

	s.Logger.Infow("workflow trigger updated", "trigger_id", t.ID, "event_type", t.EventType)
	return dto.NewTriggerResponse(t), nil
}

func (s *triggerService) DeleteTrigger(ctx context.Context, id string) error {
	if err := s.TriggerRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateCache(ctx)
	s.Logger.Infow("workflow trigger deleted", "trigger_id", id)
	return nil
}

func (s *triggerService) ToggleTrigger(ctx context.Context, id string) (*dto.TriggerResponse, error) {
	t, err := s.TriggerRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t.IsActive = !t.IsActive
	if err := s.TriggerRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx)

	s.Logger.Infow("workflow trigger toggled", "trigger_id", t.ID, "is_active", t.IsActive)
	return dto.NewTriggerResponse(t), nil
}

// encryptSecrets encrypts new webhook secrets in place. A masked or empty secret keeps the
// encrypted secret of the webhook action at the same position in previous.
func (s *triggerService) encryptSecrets(t *workflow.Trigger, previous []workflow.Action) error {
	for i := range t.Actions {
		hook := t.Actions[i].Webhook
		if hook == nil {
			continue
		}
		if dto.IsMaskedSecret(hook.Secret) {
			if i >= len(previous) || previous[i].Webhook == nil || previous[i].Webhook.Secret == "" {
				return ierr.NewErrorf("actions[%d]: webhook secret is required", i).
					WithHint("Provide the webhook secret, the masked value only keeps an existing secret").
					Mark(ierr.ErrValidation)
			}
			kept := *hook
			kept.Secret = previous[i].Webhook.Secret
			t.Actions[i].Webhook = &kept
			continue
		}
		encrypted, err := s.Encryption.Encrypt(hook.Secret)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Webhook secret could not be encrypted").
				Mark(ierr.ErrSystem)
		}
		sealed := *hook
		sealed.Secret = encrypted
		t.Actions[i].Webhook = &sealed
	}
	return nil
}

func (s *triggerService) invalidateCache(ctx context.Context) {
	cache.InvalidateTriggers(ctx, s.Cache)
}
