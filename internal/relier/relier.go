// Package relier models the relying party that sent the user to the
// accounts flow. Its fields come from the page query string and from the
// resume token carried in the "resume" query parameter.
package relier

import (
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/vincentbai/accounts-metrics/internal/environment"
	"github.com/vincentbai/accounts-metrics/internal/resumetoken"
)

const (
	FieldCampaign       = "campaign"
	FieldEmail          = "email"
	FieldEntrypoint     = "entrypoint"
	FieldPreVerifyToken = "preVerifyToken"
	FieldService        = "service"
	FieldSetting        = "setting"
	FieldUID            = "uid"
	FieldUTMCampaign    = "utm_campaign"
	FieldUTMContent     = "utm_content"
	FieldUTMMedium      = "utm_medium"
	FieldUTMSource      = "utm_source"
	FieldUTMTerm        = "utm_term"
)

const (
	// ResumeParam is the query parameter holding the resume token.
	ResumeParam = "resume"

	// SyncService is the service name of Firefox Sync.
	SyncService = "sync"

	// DisallowCachedCredentials, passed as email, asks for a fresh sign-in.
	DisallowCachedCredentials = "blank"
)

// FieldsInResumeToken are the relier fields saved to and restored from a
// resume token.
var FieldsInResumeToken = []string{FieldCampaign, FieldEntrypoint}

// importedFields are read from the query string by Fetch.
var importedFields = []string{
	FieldCampaign,
	FieldEmail,
	FieldEntrypoint,
	FieldPreVerifyToken,
	FieldService,
	FieldSetting,
	FieldUID,
	FieldUTMCampaign,
	FieldUTMContent,
	FieldUTMMedium,
	FieldUTMSource,
	FieldUTMTerm,
}

// Relier is not safe for concurrent use.
type Relier struct {
	window                 environment.Window
	logger                 *zap.Logger
	attrs                  resumetoken.Fields
	allowCachedCredentials bool
}

// ErrNoWindow is returned by Fetch when the relier was built without a
// window.
var ErrNoWindow = errors.New("relier has no window")

// New builds a relier reading from window, which Fetch requires.
func New(window environment.Window, logger *zap.Logger) *Relier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relier{
		window:                 window,
		logger:                 logger,
		attrs:                  make(resumetoken.Fields),
		allowCachedCredentials: true,
	}
}

// Fetch hydrates the relier from the current page. The resume token is
// applied first so explicit query parameters override it. A malformed
// query string is reported after every parameter that could be parsed has
// been imported.
func (r *Relier) Fetch() error {
	if r.window == nil {
		return ErrNoWindow
	}
	query, parseErr := url.ParseQuery(r.window.Search())

	resumetoken.Populate(r.attrs, query.Get(ResumeParam), FieldsInResumeToken)

	for _, name := range importedFields {
		r.importSearchParam(query, name)
	}

	if r.attrs[FieldEmail] == DisallowCachedCredentials {
		delete(r.attrs, FieldEmail)
		r.allowCachedCredentials = false
	}

	r.logger.Debug("Fetched relier",
		zap.String("service", r.attrs[FieldService]),
		zap.String("entrypoint", r.attrs[FieldEntrypoint]),
		zap.Bool("allow_cached_credentials", r.allowCachedCredentials),
	)

	if parseErr != nil {
		return fmt.Errorf("failed to parse query string: %w", parseErr)
	}
	return nil
}

func (r *Relier) importSearchParam(query url.Values, name string) {
	values, ok := query[name]
	if !ok || len(values) == 0 {
		return
	}
	r.attrs[name] = values[0]
}

func (r *Relier) Get(name string) (string, bool) {
	value, ok := r.attrs[name]
	return value, ok
}

func (r *Relier) Has(name string) bool {
	_, ok := r.attrs[name]
	return ok
}

func (r *Relier) Set(name, value string) {
	r.attrs[name] = value
}

func (r *Relier) Unset(name string) {
	delete(r.attrs, name)
}

func (r *Relier) Campaign() string    { return r.attrs[FieldCampaign] }
func (r *Relier) Email() string       { return r.attrs[FieldEmail] }
func (r *Relier) Entrypoint() string  { return r.attrs[FieldEntrypoint] }
func (r *Relier) Service() string     { return r.attrs[FieldService] }
func (r *Relier) Setting() string     { return r.attrs[FieldSetting] }
func (r *Relier) UID() string         { return r.attrs[FieldUID] }
func (r *Relier) UTMCampaign() string { return r.attrs[FieldUTMCampaign] }
func (r *Relier) UTMContent() string  { return r.attrs[FieldUTMContent] }
func (r *Relier) UTMMedium() string   { return r.attrs[FieldUTMMedium] }
func (r *Relier) UTMSource() string   { return r.attrs[FieldUTMSource] }
func (r *Relier) UTMTerm() string     { return r.attrs[FieldUTMTerm] }

// IsSync reports whether the relier is Sync for Firefox Desktop.
func (r *Relier) IsSync() bool {
	return r.attrs[FieldService] == SyncService
}

// WantsKeys is true for Sync, which needs the key fetch token even when
// the user verifies in a second tab.
func (r *Relier) WantsKeys() bool {
	return r.IsSync()
}

// AllowCachedCredentials is false when the relier passed email=blank.
func (r *Relier) AllowCachedCredentials() bool {
	return r.allowCachedCredentials
}

// PickResumeTokenInfo returns the fields to carry in a resume token.
func (r *Relier) PickResumeTokenInfo() resumetoken.Fields {
	return resumetoken.Pick(r.attrs, FieldsInResumeToken)
}

// ResumeToken encodes PickResumeTokenInfo, e.g. for verification links.
func (r *Relier) ResumeToken() string {
	return resumetoken.Encode(r.attrs, FieldsInResumeToken)
}
