package models

import "fmt"

// Field names accepted in a metrics flush. Anything else a client tracks
// is dropped before sending.
const (
	FieldAB               = "ab"
	FieldBroker           = "broker"
	FieldCampaign         = "campaign"
	FieldContext          = "context"
	FieldDuration         = "duration"
	FieldEntrypoint       = "entrypoint"
	FieldEvents           = "events"
	FieldLang             = "lang"
	FieldMarketing        = "marketing"
	FieldMigration        = "migration"
	FieldNavigationTiming = "navigationTiming"
	FieldReferrer         = "referrer"
	FieldScreen           = "screen"
	FieldService          = "service"
	FieldTimers           = "timers"
	FieldUTMCampaign      = "utm_campaign"
	FieldUTMContent       = "utm_content"
	FieldUTMMedium        = "utm_medium"
	FieldUTMSource        = "utm_source"
	FieldUTMTerm          = "utm_term"
)

var AllowedFields = []string{
	FieldAB,
	FieldBroker,
	FieldCampaign,
	FieldContext,
	FieldDuration,
	FieldEntrypoint,
	FieldEvents,
	FieldLang,
	FieldMarketing,
	FieldMigration,
	FieldNavigationTiming,
	FieldReferrer,
	FieldScreen,
	FieldService,
	FieldTimers,
	FieldUTMCampaign,
	FieldUTMContent,
	FieldUTMMedium,
	FieldUTMSource,
	FieldUTMTerm,
}

// NotReported marks a field the page knows about but has no value for.
const NotReported = "none"

type EventRecord struct {
	Type   string `json:"type"`
	Offset int64  `json:"offset"` // ms since the buffer baseline
}

type TimerRecord struct {
	Start   int64 `json:"start"`
	Stop    int64 `json:"stop"`
	Elapsed int64 `json:"elapsed"`
}

type MarketingImpression struct {
	CampaignID string `json:"campaignId"`
	URL        string `json:"url"`
	Clicked    bool   `json:"clicked"`
}

type ABAssignment struct {
	Experiment string `json:"experiment"`
	Group      string `json:"group"`
}

// Screen values are either a number or NotReported.
type Screen struct {
	DevicePixelRatio any `json:"devicePixelRatio"`
	ClientWidth      any `json:"clientWidth"`
	ClientHeight     any `json:"clientHeight"`
	Width            any `json:"width"`
	Height           any `json:"height"`
}

// Payload is the collector's view of one flush body.
type Payload struct {
	AB               []ABAssignment           `json:"ab"`
	Broker           string                   `json:"broker"`
	Campaign         string                   `json:"campaign"`
	Context          string                   `json:"context"`
	Duration         int64                    `json:"duration"`
	Entrypoint       string                   `json:"entrypoint"`
	Events           []EventRecord            `json:"events"`
	Lang             string                   `json:"lang"`
	Marketing        []MarketingImpression    `json:"marketing"`
	Migration        string                   `json:"migration"`
	NavigationTiming map[string]int64         `json:"navigationTiming,omitempty"`
	Referrer         string                   `json:"referrer,omitempty"`
	Screen           *Screen                  `json:"screen,omitempty"`
	Service          string                   `json:"service"`
	Timers           map[string][]TimerRecord `json:"timers"`
	UTMCampaign      string                   `json:"utm_campaign"`
	UTMContent       string                   `json:"utm_content"`
	UTMMedium        string                   `json:"utm_medium"`
	UTMSource        string                   `json:"utm_source"`
	UTMTerm          string                   `json:"utm_term"`
}

// ClientError is an error reported by an auth backend: the context it
// was raised in, the backend namespace and a numeric errno.
type ClientError struct {
	Context   string
	Namespace string
	Errno     int
	Message   string
}

// A nil *ClientError reports empty parts.
func (e *ClientError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s error %d", e.Namespace, e.Errno)
}

func (e *ClientError) ErrorContext() string {
	if e == nil {
		return ""
	}
	return e.Context
}

func (e *ClientError) ErrorNamespace() string {
	if e == nil {
		return ""
	}
	return e.Namespace
}

func (e *ClientError) ErrorNumber() int {
	if e == nil {
		return 0
	}
	return e.Errno
}
