// Package provider holds the CalDAV server quirks registry: small, pure
// data describing how a given server deviates from strict RFC 4791/6578
// compliance, and pure helper functions that consult it. It never wraps or
// overrides caldav.Client behavior by embedding or interface dispatch - a
// caldav.Client simply reads a Config's fields when it needs to decide
// something server-specific.
package provider

import (
	"net/url"
	"strings"
	"time"
)

// Name identifies a known CalDAV server implementation.
type Name string

const (
	ICloud    Name = "icloud"
	Google    Name = "google"
	Fastmail  Name = "fastmail"
	Radicale  Name = "radicale"
	Nextcloud Name = "nextcloud"
	Baikal    Name = "baikal"
	Generic   Name = "generic"
)

// Config captures one provider's deviations from the spec, consumed by
// caldav.Client as plain data.
type Config struct {
	Name Name

	// InvalidSyncTokenStatus holds the full set of HTTP status codes
	// (including the RFC 6578 403) this server uses to signal that a
	// sync-token is no longer valid and a full resync is required;
	// IsInvalidSyncToken consults only this set.
	InvalidSyncTokenStatus map[int]bool

	// SkipsSyncCollection is true for servers known not to implement
	// sync-collection REPORT at all (so the client must fall back to CTag
	// polling without first trying sync-token and failing).
	SkipsSyncCollection bool

	// DefaultSyncRangeBack/Forward are the default window for an event
	// fetch with no explicit time-range. caldav.Client does not read them.
	DefaultSyncRangeBack    time.Duration
	DefaultSyncRangeForward time.Duration

	// TreatVTodoOnlyAsList excludes from the default calendar listing any
	// collection whose supported-calendar-component-set reports VTODO
	// without VEVENT (see DESIGN.md Open Question #2: the "list" heuristic
	// is driven by the server-reported component set, not by display name).
	TreatVTodoOnlyAsList bool

	// UnquotedETags is true for servers known to emit getetag values
	// without the RFC 4918-mandated surrounding double quotes.
	UnquotedETags bool
}

// defaultSyncRange is used by every provider unless overridden: one year
// back, two years forward, which covers the overwhelming majority of
// fetch_events calls client applications make (recent history plus
// near-future planning) without asking a server to walk its entire history.
const (
	defaultSyncRangeBack    = 365 * 24 * time.Hour
	defaultSyncRangeForward = 2 * 365 * 24 * time.Hour
)

// defaultInvalidSyncTokenStatus is the RFC 6578-mandated set every provider
// uses unless it's known to deviate: 403 Forbidden (the status RFC 6578
// section 3.2.1 itself documents) plus 412 Precondition Failed, which a
// sync-collection REPORT against a stale token commonly fails with too.
func defaultInvalidSyncTokenStatus() map[int]bool {
	return map[int]bool{403: true, 412: true}
}

var registry = map[Name]Config{
	ICloud: {
		Name: ICloud,
		// iCloud only ever reports a stale sync-token as 403, never 412.
		InvalidSyncTokenStatus:  map[int]bool{403: true},
		DefaultSyncRangeBack:    defaultSyncRangeBack,
		DefaultSyncRangeForward: defaultSyncRangeForward,
		TreatVTodoOnlyAsList:    true,
	},
	Google: {
		Name:                    Google,
		InvalidSyncTokenStatus:  defaultInvalidSyncTokenStatus(),
		DefaultSyncRangeBack:    defaultSyncRangeBack,
		DefaultSyncRangeForward: defaultSyncRangeForward,
		TreatVTodoOnlyAsList:    true,
	},
	Fastmail: {
		Name:                    Fastmail,
		InvalidSyncTokenStatus:  defaultInvalidSyncTokenStatus(),
		DefaultSyncRangeBack:    defaultSyncRangeBack,
		DefaultSyncRangeForward: defaultSyncRangeForward,
		TreatVTodoOnlyAsList:    true,
	},
	Radicale: {
		Name:                    Radicale,
		InvalidSyncTokenStatus:  defaultInvalidSyncTokenStatus(),
		SkipsSyncCollection:     true,
		DefaultSyncRangeBack:    defaultSyncRangeBack,
		DefaultSyncRangeForward: defaultSyncRangeForward,
		TreatVTodoOnlyAsList:    true,
		UnquotedETags:           true,
	},
	Nextcloud: {
		Name:                    Nextcloud,
		InvalidSyncTokenStatus:  defaultInvalidSyncTokenStatus(),
		DefaultSyncRangeBack:    defaultSyncRangeBack,
		DefaultSyncRangeForward: defaultSyncRangeForward,
		TreatVTodoOnlyAsList:    true,
	},
	Baikal: {
		Name:                    Baikal,
		InvalidSyncTokenStatus:  defaultInvalidSyncTokenStatus(),
		DefaultSyncRangeBack:    defaultSyncRangeBack,
		DefaultSyncRangeForward: defaultSyncRangeForward,
		TreatVTodoOnlyAsList:    true,
		UnquotedETags:           true,
	},
	Generic: {
		Name:                    Generic,
		InvalidSyncTokenStatus:  defaultInvalidSyncTokenStatus(),
		DefaultSyncRangeBack:    defaultSyncRangeBack,
		DefaultSyncRangeForward: defaultSyncRangeForward,
		TreatVTodoOnlyAsList:    true,
	},
}

// hostSuffixes maps a recognizable host suffix to the provider it implies.
// Entries are checked in table order and the first match wins; no entry is
// a suffix of another.
var hostSuffixes = []struct {
	suffix string
	name   Name
}{
	{"icloud.com", ICloud},
	{"google.com", Google},
	{"fastmail.com", Fastmail},
	{"fastmail.fm", Fastmail},
}

// ForServer returns the Config to use for the given CalDAV endpoint URL,
// matching known hosting providers by host suffix and falling back to
// Generic for anything else (self-hosted Radicale/Nextcloud/Baikal
// instances don't have a recognizable host, so they're only distinguished
// when the caller already knows which software it's talking to - see
// ForName).
func ForServer(endpoint string) Config {
	u, err := url.Parse(endpoint)
	if err != nil {
		return registry[Generic]
	}
	host := strings.ToLower(u.Hostname())

	for _, m := range hostSuffixes {
		if host == m.suffix || strings.HasSuffix(host, "."+m.suffix) {
			return registry[m.name]
		}
	}
	return registry[Generic]
}

// ForName returns the Config for an explicitly named provider, e.g. when a
// caller configures caldav.Client with
// WithProvider(provider.ForName(provider.Radicale))
// because it already knows what it's talking to.
func ForName(name Name) Config {
	if c, ok := registry[name]; ok {
		return c
	}
	return registry[Generic]
}

// ShouldSkipCalendar reports whether a discovered calendar collection
// should be excluded from the default event listing, per
// TreatVTodoOnlyAsList.
func (c Config) ShouldSkipCalendar(supportedComponents []string) bool {
	if !c.TreatVTodoOnlyAsList {
		return false
	}

	hasVTodo, hasVEvent := false, false
	for _, comp := range supportedComponents {
		switch comp {
		case "VTODO":
			hasVTodo = true
		case "VEVENT":
			hasVEvent = true
		}
	}
	return hasVTodo && !hasVEvent
}

// IsInvalidSyncToken reports whether the given REPORT response status
// indicates the client's sync-token is stale and a full resync (empty
// sync-token) must be issued instead, per RFC 6578 section 3.2.1 plus this
// provider's documented deviations from it.
func (c Config) IsInvalidSyncToken(status int) bool {
	return c.InvalidSyncTokenStatus[status]
}

// FormatDateForQuery renders t as the UTC, second-truncated
// "20060102T150405Z" form CalDAV time-range filters expect (RFC 4791
// section 9.9), truncating rather than rounding so a time-range start is
// never pushed later than the instant the caller asked for.
func FormatDateForQuery(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format("20060102T150405Z")
}
