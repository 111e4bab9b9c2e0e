package config

import (
	"fmt"
	"net/url"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy plus everything wrong or
// suspicious about it. Errors block saving; warnings don't.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	out.Harvest.SourceOrigin = strings.TrimRight(strings.TrimSpace(out.Harvest.SourceOrigin), "/")
	out.Rates.Endpoint = strings.TrimSpace(out.Rates.Endpoint)
	out.Rates.Currency = strings.ToUpper(strings.TrimSpace(out.Rates.Currency))

	if out.Harvest.SourceOrigin == "" {
		res.addErr("harvest.source_origin is required (used to absolutize listing links)")
	} else if u, err := url.Parse(out.Harvest.SourceOrigin); err != nil || u.Scheme == "" || u.Host == "" {
		res.addErr("harvest.source_origin must be an absolute URL, got %q", out.Harvest.SourceOrigin)
	}

	if out.Harvest.MaxPages <= 0 {
		res.addErr("harvest.max_pages must be > 0")
	} else if out.Harvest.MaxPages > 500 {
		res.addWarn("harvest.max_pages is very high (%d); the source may rate-limit long runs.", out.Harvest.MaxPages)
	}

	if out.Harvest.Concurrency <= 0 {
		res.addErr("harvest.concurrency must be > 0")
	} else if out.Harvest.Concurrency > 10 {
		res.addWarn("harvest.concurrency above 10 tends to trip anti-scraping defenses.")
	}

	if out.Harvest.PolitenessMS < 0 {
		res.addErr("harvest.politeness_ms must be >= 0")
	} else if out.Harvest.PolitenessMS < 200 {
		res.addWarn("harvest.politeness_ms below 200 is impolite to the source.")
	}

	if out.Harvest.FetchTimeoutSeconds <= 0 {
		res.addErr("harvest.fetch_timeout_seconds must be > 0")
	}

	if out.Harvest.ScheduleSeconds < 0 {
		res.addErr("harvest.schedule_seconds must be >= 0")
	}
	if out.Harvest.ScheduleSeconds > 0 && strings.TrimSpace(out.Harvest.ScheduleURL) == "" {
		res.addErr("harvest.schedule_url is required when harvest.schedule_seconds is set")
	}

	if out.Rates.Endpoint == "" {
		res.addErr("rates.endpoint is required")
	}
	if out.Rates.Currency == "" {
		res.addErr("rates.currency is required")
	}
	if out.Rates.Fallback <= 0 {
		res.addErr("rates.fallback must be > 0")
	}
	if out.Rates.TimeoutSeconds <= 0 {
		res.addErr("rates.timeout_seconds must be > 0")
	}

	return out, res
}
