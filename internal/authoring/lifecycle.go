package authoring

import "github.com/japanesestudent/course-authoring/internal/models"

// intentRule describes when a commit intent may run and where it leads
type intentRule struct {
	from   models.LifecycleStatus
	tier   models.ValidationTier
	target models.LifecycleStatus
}

var intentRules = map[models.CommitIntent]intentRule{
	models.CommitIntentSaveDraft: {
		from:   models.LifecycleStatusDraft,
		tier:   models.ValidationTierDraft,
		target: models.LifecycleStatusDraft,
	},
	models.CommitIntentPublish: {
		from:   models.LifecycleStatusDraft,
		tier:   models.ValidationTierPublish,
		target: models.LifecycleStatusPublished,
	},
	models.CommitIntentSaveAsDraftFromPublished: {
		from:   models.LifecycleStatusPublished,
		tier:   models.ValidationTierDraft,
		target: models.LifecycleStatusDraft,
	},
	models.CommitIntentEditPublished: {
		from:   models.LifecycleStatusPublished,
		tier:   models.ValidationTierPublish,
		target: models.LifecycleStatusPublished,
	},
}

// ruleFor returns the rule of an intent and checks it is valid from "status"
func ruleFor(intent models.CommitIntent, status models.LifecycleStatus) (intentRule, error) {
	rule, ok := intentRules[intent]
	if !ok {
		return intentRule{}, ErrUnknownIntent
	}
	if rule.from != status {
		return intentRule{}, ErrIntentNotAllowed
	}
	return rule, nil
}

// validateTierLocked runs the validation gate of a tier. Must be called with s.mu held.
func (s *Session) validateTierLocked(tier models.ValidationTier) models.FieldErrors {
	if tier == models.ValidationTierPublish {
		return validateForPublish(s.metadata, s.media, s.cover)
	}
	return validateForDraft(s.metadata, s.media)
}

// AvailableIntents lists the commit intents valid from the current status
func (s *Session) AvailableIntents() []models.CommitIntent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var intents []models.CommitIntent
	for _, intent := range []models.CommitIntent{
		models.CommitIntentSaveDraft,
		models.CommitIntentPublish,
		models.CommitIntentSaveAsDraftFromPublished,
		models.CommitIntentEditPublished,
	} {
		if intentRules[intent].from == s.status {
			intents = append(intents, intent)
		}
	}
	return intents
}
