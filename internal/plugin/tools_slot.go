package plugin

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrctran/mnemo/internal/domain"
	"github.com/mrctran/mnemo/internal/store"
)

// resolveTiers maps a tool scope parameter to the tiers to operate on.
func resolveTiers(scopeParam string) ([]domain.Tier, error) {
	if scopeParam == "" {
		return []domain.Tier{domain.TierPrivate}, nil
	}
	if !domain.ValidTier(scopeParam) {
		return nil, fmt.Errorf("invalid scope %q", scopeParam)
	}
	if tier := domain.Tier(scopeParam); tier != domain.TierAll {
		return []domain.Tier{tier}, nil
	}
	return []domain.Tier{domain.TierPrivate, domain.TierTeam, domain.TierPublic}, nil
}

func (a *App) toolSlotGet(ctx context.Context, sessionID string, p Params) Result {
	tiers, err := resolveTiers(p.String("scope"))
	if err != nil {
		return errResult(ErrKindValidation, "%v", err)
	}
	base := domain.ParseSessionID(sessionID)

	if key := p.String("key"); key != "" {
		for _, tier := range tiers {
			slot, err := a.Slots.Get(ctx, base.ForTier(tier), key)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return errResult(ErrKindStorage, "reading slot %s: %v", key, err)
			}
			return Result{
				Text:    fmt.Sprintf("%s = %v (v%d, %s scope)", slot.Key, slot.Value, slot.Version, tier),
				Details: map[string]any{"slot": slot, "scope": string(tier)},
			}
		}
		return Result{
			Text:    fmt.Sprintf("No slot found for key %q", key),
			Details: map[string]any{"slot": nil},
		}
	}

	grouped := map[string][]domain.Slot{}
	total := 0
	for _, tier := range tiers {
		var (
			slots []domain.Slot
			err   error
		)
		if category := p.String("category"); category != "" {
			slots, err = a.Slots.GetByCategory(ctx, base.ForTier(tier), category)
		} else {
			slots, err = a.Slots.GetAll(ctx, base.ForTier(tier))
		}
		if err != nil {
			return errResult(ErrKindStorage, "listing slots: %v", err)
		}
		grouped[string(tier)] = slots
		total += len(slots)
	}
	return Result{
		Text:    fmt.Sprintf("Found %d slot(s)", total),
		Details: map[string]any{"slots": grouped},
	}
}

func (a *App) toolSlotSet(ctx context.Context, sessionID string, p Params) Result {
	key := p.String("key")
	if key == "" {
		return errResult(ErrKindValidation, "key is required")
	}
	value, ok := p["value"]
	if !ok {
		return errResult(ErrKindValidation, "value is required")
	}
	scopeParam := p.String("scope")
	if scopeParam == string(domain.TierAll) {
		return errResult(ErrKindValidation, "scope %q is read-only", domain.TierAll)
	}
	tiers, err := resolveTiers(scopeParam)
	if err != nil {
		return errResult(ErrKindValidation, "%v", err)
	}
	source := domain.SlotSource(p.StringDefault("source", string(domain.SlotSourceTool)))
	if !domain.ValidSlotSource(string(source)) {
		return errResult(ErrKindValidation, "invalid source %q", source)
	}

	scope := domain.ParseSessionID(sessionID).ForTier(tiers[0])
	slot, err := a.Slots.Set(ctx, scope, domain.SlotWrite{
		Key:      key,
		Value:    value,
		Category: p.String("category"),
		Source:   source,
	})
	if err != nil {
		return errResult(ErrKindStorage, "storing slot %s: %v", key, err)
	}
	return Result{
		Text:    fmt.Sprintf("Stored %s (v%d, category %s)", slot.Key, slot.Version, slot.Category),
		Details: map[string]any{"slot": slot},
	}
}

func (a *App) toolSlotList(ctx context.Context, sessionID string, p Params) Result {
	tiers, err := resolveTiers(p.String("scope"))
	if err != nil {
		return errResult(ErrKindValidation, "%v", err)
	}
	base := domain.ParseSessionID(sessionID)
	filter := domain.SlotFilter{
		Category: p.String("category"),
		Prefix:   p.String("prefix"),
	}

	grouped := map[string][]domain.Slot{}
	total := 0
	for _, tier := range tiers {
		slots, err := a.Slots.List(ctx, base.ForTier(tier), filter)
		if err != nil {
			return errResult(ErrKindStorage, "listing slots: %v", err)
		}
		grouped[string(tier)] = slots
		total += len(slots)
	}
	return Result{
		Text:    fmt.Sprintf("Found %d slot(s)", total),
		Details: map[string]any{"slots": grouped},
	}
}

func (a *App) toolSlotDelete(ctx context.Context, sessionID string, p Params) Result {
	key := p.String("key")
	if key == "" {
		return errResult(ErrKindValidation, "key is required")
	}
	removed, err := a.Slots.Delete(ctx, domain.ParseSessionID(sessionID), key)
	if err != nil {
		return errResult(ErrKindStorage, "deleting slot %s: %v", key, err)
	}
	text := fmt.Sprintf("No slot found for key %q", key)
	if removed {
		text = fmt.Sprintf("Deleted slot %s", key)
	}
	return Result{
		Text:    text,
		Details: map[string]any{"deleted": removed},
	}
}
