package metrics

import "github.com/vincentbai/accounts-metrics/internal/models"

// marketingImpressions is keyed by campaign then url. Flattening keeps
// campaigns in first-seen order and urls in first-seen order within a
// campaign.
type marketingImpressions struct {
	campaigns []string
	urls      map[string][]string
	byKey     map[string]map[string]*models.MarketingImpression
}

func newMarketingImpressions() *marketingImpressions {
	return &marketingImpressions{
		urls:  make(map[string][]string),
		byKey: make(map[string]map[string]*models.MarketingImpression),
	}
}

func (mi *marketingImpressions) put(campaignID, url string) {
	byURL, ok := mi.byKey[campaignID]
	if !ok {
		byURL = make(map[string]*models.MarketingImpression)
		mi.byKey[campaignID] = byURL
		mi.campaigns = append(mi.campaigns, campaignID)
	}
	if _, ok := byURL[url]; !ok {
		mi.urls[campaignID] = append(mi.urls[campaignID], url)
	}
	byURL[url] = &models.MarketingImpression{CampaignID: campaignID, URL: url}
}

func (mi *marketingImpressions) get(campaignID, url string) *models.MarketingImpression {
	return mi.byKey[campaignID][url]
}

func (mi *marketingImpressions) flatten() []models.MarketingImpression {
	flat := []models.MarketingImpression{}
	for _, campaignID := range mi.campaigns {
		for _, url := range mi.urls[campaignID] {
			flat = append(flat, *mi.byKey[campaignID][url])
		}
	}
	return flat
}

// LogMarketingImpression records that a marketing snippet linking to url
// was shown. An existing record for the same campaign and url is
// replaced.
func (m *Metrics) LogMarketingImpression(campaignID, url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marketing.put(orDefault(campaignID, UnknownCampaignID), orDefault(url, UnknownCampaignID))
}

// LogMarketingClick marks a previously logged impression as clicked. It
// does nothing if no impression was logged.
func (m *Metrics) LogMarketingClick(campaignID, url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if impression := m.marketing.get(orDefault(campaignID, UnknownCampaignID), orDefault(url, UnknownCampaignID)); impression != nil {
		impression.Clicked = true
	}
}

// MarketingImpression returns a copy of the stored impression.
func (m *Metrics) MarketingImpression(campaignID, url string) (models.MarketingImpression, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	impression := m.marketing.get(orDefault(campaignID, UnknownCampaignID), orDefault(url, UnknownCampaignID))
	if impression == nil {
		return models.MarketingImpression{}, false
	}
	return *impression, true
}
