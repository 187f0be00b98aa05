package metrics

import "github.com/vincentbai/accounts-metrics/internal/models"

var allowedFields = func() map[string]bool {
	allowed := make(map[string]bool, len(models.AllowedFields))
	for _, field := range models.AllowedFields {
		allowed[field] = true
	}
	return allowed
}()

// AllData returns everything tracked, whether it is allowed to be sent
// or not.
func (m *Metrics) AllData() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allDataLocked()
}

// FilteredData returns the allow-listed fields that are set and not
// empty strings.
func (m *Metrics) FilteredData() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return filter(m.allDataLocked())
}

// allDataLocked assumes m.mu is held.
func (m *Metrics) allDataLocked() map[string]any {
	ab := []models.ABAssignment{}
	if m.ab != nil {
		if report := m.ab.Report(); report != nil {
			ab = report
		}
	}

	referrer := ""
	if m.window != nil {
		referrer = m.window.Referrer()
	}

	data := map[string]any{
		models.FieldAB:          ab,
		models.FieldBroker:      m.brokerType,
		models.FieldCampaign:    m.campaign,
		models.FieldContext:     m.context,
		models.FieldDuration:    m.buffer.Duration(),
		models.FieldEntrypoint:  m.entrypoint,
		models.FieldEvents:      m.buffer.Events(),
		models.FieldLang:        m.lang,
		models.FieldMarketing:   m.marketing.flatten(),
		models.FieldMigration:   m.migration,
		models.FieldReferrer:    referrer,
		models.FieldScreen:      m.screen,
		models.FieldService:     m.service,
		models.FieldTimers:      m.buffer.Timers(),
		models.FieldUTMCampaign: m.utmCampaign,
		models.FieldUTMContent:  m.utmContent,
		models.FieldUTMMedium:   m.utmMedium,
		models.FieldUTMSource:   m.utmSource,
		models.FieldUTMTerm:     m.utmTerm,
	}
	if timing := m.buffer.NavigationTiming(); timing != nil {
		data[models.FieldNavigationTiming] = timing
	}
	return data
}

func filter(data map[string]any) map[string]any {
	filtered := make(map[string]any, len(allowedFields))
	for name, value := range data {
		if !allowedFields[name] || value == nil {
			continue
		}
		if s, ok := value.(string); ok && s == "" {
			continue
		}
		filtered[name] = value
	}
	return filtered
}
