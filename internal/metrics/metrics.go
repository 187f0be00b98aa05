// Package metrics collects client-side analytics for the accounts flow.
//
// A Metrics value has two primary APIs:
//
//	m.LogEvent(name)
//	m.StartTimer(name) / m.StopTimer(name)
//
// Collected data is sent to the collector when the page unloads, after a
// period of inactivity, or when Flush is called.
package metrics

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vincentbai/accounts-metrics/internal/clock"
	"github.com/vincentbai/accounts-metrics/internal/environment"
	"github.com/vincentbai/accounts-metrics/internal/models"
	"github.com/vincentbai/accounts-metrics/internal/speedtrap"
	"github.com/vincentbai/accounts-metrics/internal/transport"
)

const (
	DefaultInactivityFlush = 10 * time.Minute
	DefaultContext         = "web"
	DefaultSendTimeout     = 30 * time.Second

	// UnknownCampaignID stands in for a missing marketing campaign or url.
	UnknownCampaignID = "unknown"
	unknownLang       = "unknown"

	inactivityFlushEvent = "inactivity.flush"
)

// ABReporter reports the A/B test groups the user has been placed in.
type ABReporter interface {
	Report() []models.ABAssignment
}

// Screen geometry. Zero values are reported as models.NotReported.
type Screen struct {
	DevicePixelRatio float64
	ClientWidth      int
	ClientHeight     int
	Width            int
	Height           int
}

type Options struct {
	// Collector is the base URL of the collector. Empty means the origin
	// of Window.
	Collector string

	BrokerType  string
	Campaign    string
	Context     string
	Entrypoint  string
	Lang        string
	Migration   string
	Service     string
	UTMCampaign string
	UTMContent  string
	UTMMedium   string
	UTMSource   string
	UTMTerm     string
	Screen      Screen

	NavigationTiming map[string]int64
	InactivityFlush  time.Duration

	AB        ABReporter
	Transport transport.Transport
	Window    environment.Window
	Clock     clock.Clock
	Logger    *zap.Logger
	Observers []FlushObserver
}

// Metrics is safe for concurrent use; the inactivity timer fires on its
// own goroutine.
type Metrics struct {
	mu sync.Mutex

	url       string
	transport transport.Transport
	window    environment.Window
	logger    *zap.Logger
	ab        ABReporter
	observers []FlushObserver

	brokerType  string
	campaign    string
	context     string
	entrypoint  string
	lang        string
	migration   string
	service     string
	utmCampaign string
	utmContent  string
	utmMedium   string
	utmSource   string
	utmTerm     string
	screen      models.Screen

	buffer      *speedtrap.Buffer
	marketing   *marketingImpressions
	inactivity  *inactivityScheduler
	removeHook  func()
	initialized bool
}

func New(options Options) *Metrics {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := options.Clock
	if c == nil {
		c = clock.Real()
	}
	t := options.Transport
	if t == nil {
		t = transport.NewHTTPTransport(nil, DefaultSendTimeout, logger)
	}
	inactivityFlush := options.InactivityFlush
	if inactivityFlush <= 0 {
		inactivityFlush = DefaultInactivityFlush
	}

	collector := options.Collector
	if collector == "" && options.Window != nil {
		collector = options.Window.Origin()
	}

	m := &Metrics{
		url:         transport.URL(collector),
		transport:   t,
		window:      options.Window,
		logger:      logger,
		ab:          options.AB,
		observers:   options.Observers,
		brokerType:  orNotReported(options.BrokerType),
		campaign:    orNotReported(options.Campaign),
		context:     orDefault(options.Context, DefaultContext),
		entrypoint:  orNotReported(options.Entrypoint),
		lang:        orDefault(options.Lang, unknownLang),
		migration:   orNotReported(options.Migration),
		service:     orNotReported(options.Service),
		utmCampaign: orNotReported(options.UTMCampaign),
		utmContent:  orNotReported(options.UTMContent),
		utmMedium:   orNotReported(options.UTMMedium),
		utmSource:   orNotReported(options.UTMSource),
		utmTerm:     orNotReported(options.UTMTerm),
		screen: models.Screen{
			DevicePixelRatio: ratioOrNotReported(options.Screen.DevicePixelRatio),
			ClientWidth:      sizeOrNotReported(options.Screen.ClientWidth),
			ClientHeight:     sizeOrNotReported(options.Screen.ClientHeight),
			Width:            sizeOrNotReported(options.Screen.Width),
			Height:           sizeOrNotReported(options.Screen.Height),
		},
		buffer:    speedtrap.New(c, options.NavigationTiming),
		marketing: newMarketingImpressions(),
	}
	m.inactivity = newInactivityScheduler(c, inactivityFlush, m.flushOnInactivity)
	return m
}

// Init registers the unload hook and arms the inactivity timer, which
// also clears navigation timing data if the page sits idle.
func (m *Metrics) Init() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		return
	}
	m.initialized = true
	if m.window != nil {
		m.removeHook = m.window.OnUnload(m.flushOnUnload)
	}
	m.inactivity.Reset()
}

// Destroy deregisters the unload hook and cancels the inactivity timer.
func (m *Metrics) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeHook != nil {
		m.removeHook()
		m.removeHook = nil
	}
	m.initialized = false
	m.inactivity.Cancel()
}

func (m *Metrics) LogEvent(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inactivity.Reset()
	m.buffer.Capture(name)
}

func (m *Metrics) StartTimer(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inactivity.Reset()
	m.buffer.Start(name)
}

func (m *Metrics) StopTimer(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inactivity.Reset()
	m.buffer.Stop(name)
}

func (m *Metrics) LogScreen(screenName string) {
	m.LogEvent(ScreenToID(screenName))
}

// ScreenToID converts a screen name to an event name.
func ScreenToID(screenName string) string {
	return "screen." + screenName
}

func (m *Metrics) SetBrokerType(brokerType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.brokerType = brokerType
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func orNotReported(value string) string {
	return orDefault(value, models.NotReported)
}

func sizeOrNotReported(value int) any {
	if value == 0 {
		return models.NotReported
	}
	return value
}

func ratioOrNotReported(value float64) any {
	if value == 0 {
		return models.NotReported
	}
	return value
}
