package relier

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vincentbai/accounts-metrics/internal/environment"
	"github.com/vincentbai/accounts-metrics/internal/resumetoken"
)

func setupRelier(t *testing.T, query url.Values) *Relier {
	t.Helper()
	window, err := environment.NewStatic("https://accounts.example.com/signin?"+query.Encode(), "")
	require.NoError(t, err)
	return New(window, nil)
}

func TestFetchImportsKnownSearchParams(t *testing.T) {
	relier := setupRelier(t, url.Values{
		"allowCachedCredentials": {"false"},
		"campaign":               {"fennec"},
		"email":                  {"email"},
		"entrypoint":             {"preferences"},
		"ignored":                {"ignored"},
		"preVerifyToken":         {"abigtoken"},
		"service":                {"service"},
		"setting":                {"avatar"},
		"uid":                    {"uid"},
		"utm_campaign":           {"utm_campaign"},
		"utm_content":            {"utm_content"},
		"utm_medium":             {"utm_medium"},
		"utm_source":             {"utm_source"},
		"utm_term":               {"utm_term"},
	})

	require.NoError(t, relier.Fetch())

	assert.True(t, relier.AllowCachedCredentials(), "never imported from the query string")
	assert.Equal(t, "fennec", relier.Campaign())
	assert.Equal(t, "email", relier.Email())
	assert.Equal(t, "preferences", relier.Entrypoint())
	preVerifyToken, _ := relier.Get(FieldPreVerifyToken)
	assert.Equal(t, "abigtoken", preVerifyToken)
	assert.Equal(t, "service", relier.Service())
	assert.Equal(t, "avatar", relier.Setting())
	assert.Equal(t, "uid", relier.UID())
	assert.Equal(t, "utm_campaign", relier.UTMCampaign())
	assert.Equal(t, "utm_content", relier.UTMContent())
	assert.Equal(t, "utm_medium", relier.UTMMedium())
	assert.Equal(t, "utm_source", relier.UTMSource())
	assert.Equal(t, "utm_term", relier.UTMTerm())
	assert.False(t, relier.Has("ignored"))
}

func TestIsSync(t *testing.T) {
	sync := setupRelier(t, url.Values{"service": {SyncService}})
	require.NoError(t, sync.Fetch())
	assert.True(t, sync.IsSync())
	assert.True(t, sync.WantsKeys())

	other := setupRelier(t, url.Values{"service": {"service"}})
	require.NoError(t, other.Fetch())
	assert.False(t, other.IsSync())
	assert.False(t, other.WantsKeys())
}

func TestAllowCachedCredentials(t *testing.T) {
	tests := []struct {
		name      string
		query     url.Values
		wantAllow bool
		wantEmail bool
	}{
		{"email not set", url.Values{}, true, false},
		{"email address", url.Values{"email": {"testuser@testuser.com"}}, true, true},
		{"email blank", url.Values{"email": {DisallowCachedCredentials}}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relier := setupRelier(t, tt.query)
			require.NoError(t, relier.Fetch())
			assert.Equal(t, tt.wantAllow, relier.AllowCachedCredentials())
			assert.Equal(t, tt.wantEmail, relier.Has(FieldEmail))
		})
	}
}

func TestPickResumeTokenInfo(t *testing.T) {
	relier := setupRelier(t, url.Values{})
	relier.Set(FieldCampaign, "campaign id")
	relier.Set(FieldEntrypoint, "entry point")
	relier.Set("notPassed", "this should not be picked")

	assert.Equal(t, resumetoken.Fields{
		FieldCampaign:   "campaign id",
		FieldEntrypoint: "entry point",
	}, relier.PickResumeTokenInfo())
}

func TestFetchPopulatesFromResumeToken(t *testing.T) {
	token := resumetoken.Encode(resumetoken.Fields{
		"campaign":    "campaign id",
		"entrypoint":  "entry point",
		"notImported": "this should not be picked",
	}, []string{"campaign", "entrypoint", "notImported"})

	relier := setupRelier(t, url.Values{ResumeParam: {token}})
	require.NoError(t, relier.Fetch())

	assert.Equal(t, "campaign id", relier.Campaign())
	assert.Equal(t, "entry point", relier.Entrypoint())
	assert.False(t, relier.Has("notImported"))
}

func TestQueryParamsOverrideResumeToken(t *testing.T) {
	token := resumetoken.Encode(resumetoken.Fields{"campaign": "old", "entrypoint": "x"}, FieldsInResumeToken)

	relier := setupRelier(t, url.Values{
		"campaign":  {"fennec"},
		"service":   {"sync"},
		ResumeParam: {token},
	})
	require.NoError(t, relier.Fetch())

	assert.Equal(t, "fennec", relier.Campaign())
	assert.Equal(t, "x", relier.Entrypoint(), "fields missing from the query keep the resume value")
	assert.Equal(t, "sync", relier.Service())
}

func TestFetchWithMalformedResumeToken(t *testing.T) {
	relier := setupRelier(t, url.Values{ResumeParam: {"!!!"}, "service": {"sync"}})

	require.NoError(t, relier.Fetch())
	assert.False(t, relier.Has(FieldCampaign))
	assert.True(t, relier.IsSync())
}

func TestFetchWithMalformedQueryString(t *testing.T) {
	window, err := environment.NewStatic("https://accounts.example.com/signin", "")
	require.NoError(t, err)
	window.SetSearch("service=sync&campaign=%zz")
	relier := New(window, nil)

	assert.Error(t, relier.Fetch())
	assert.True(t, relier.IsSync(), "parseable parameters are still imported")
	assert.False(t, relier.Has(FieldCampaign))
}

func TestFetchLeavesParseErrorLoggingToCaller(t *testing.T) {
	window, err := environment.NewStatic("https://accounts.example.com/signin", "")
	require.NoError(t, err)
	window.SetSearch("service=sync&campaign=%zz")
	core, logs := observer.New(zapcore.DebugLevel)
	relier := New(window, zap.New(core))

	require.Error(t, relier.Fetch())
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, 1, logs.FilterMessage("Fetched relier").Len())
}

func TestFetchWithoutWindow(t *testing.T) {
	relier := New(nil, nil)

	assert.ErrorIs(t, relier.Fetch(), ErrNoWindow)
	assert.True(t, relier.AllowCachedCredentials())
	assert.False(t, relier.Has(FieldService))
}

func TestResumeTokenRoundTrip(t *testing.T) {
	source := setupRelier(t, url.Values{"campaign": {"fennec"}, "entrypoint": {"menupanel"}, "service": {"sync"}})
	require.NoError(t, source.Fetch())

	destination := setupRelier(t, url.Values{ResumeParam: {source.ResumeToken()}})
	require.NoError(t, destination.Fetch())

	assert.Equal(t, "fennec", destination.Campaign())
	assert.Equal(t, "menupanel", destination.Entrypoint())
	assert.False(t, destination.Has(FieldService), "service is not carried in the resume token")
}
