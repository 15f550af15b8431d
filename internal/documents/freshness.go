// Package documents implements upload, async extraction, completeness
// checking, HMDA field routing, and per-doc-type freshness validation for
// spec.md §4.6/§4.7.
package documents

import (
	"time"

	"github.com/originpoint/backend/internal/domain"
)

// freshnessThresholds names, per document type, which extracted field holds
// the document's reference date and how many days old that date may be
// before the document is considered stale. Ported from
// original_source/packages/api/src/services/freshness.py's
// _FRESHNESS_THRESHOLDS — kept as an immutable Go literal per spec.md §9
// ("dynamic configuration... → immutable data declared at program start"),
// not a YAML-configurable value.
var freshnessThresholds = map[domain.DocumentType]struct {
	DateField string
	MaxDays   int
}{
	domain.DocPayStub:       {DateField: "pay_period_end", MaxDays: 30},
	domain.DocBankStatement: {DateField: "statement_period_end", MaxDays: 60},
}

// dateLayouts are the accepted extracted-date formats, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"01-02-2006",
	"2006/01/02",
	"02/01/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// FreshnessFlag is the outcome of CheckFreshness.
type FreshnessFlag string

const (
	FlagNone        FreshnessFlag = ""
	FlagFutureDate  FreshnessFlag = "future_date"
	FlagWrongPeriod FreshnessFlag = "wrong_period"
)

// CheckFreshness compares an extracted reference date against now and the
// doc type's max-age threshold. Returns FlagNone (with ok=false) if the
// doc type has no freshness rule or the date field couldn't be parsed —
// both are "undeterminable", not a failure.
func CheckFreshness(docType domain.DocumentType, extractedFields map[string]string, now time.Time) (flag FreshnessFlag, ok bool) {
	rule, hasRule := freshnessThresholds[docType]
	if !hasRule {
		return FlagNone, false
	}

	raw, hasField := extractedFields[rule.DateField]
	if !hasField || raw == "" {
		return FlagNone, false
	}

	parsed, parseErr := parseFlexibleDate(raw)
	if parseErr != nil {
		return FlagNone, false
	}

	if parsed.After(now) {
		return FlagFutureDate, true
	}

	ageDays := int(now.Sub(parsed).Hours() / 24)
	if ageDays > rule.MaxDays {
		return FlagWrongPeriod, true
	}

	return FlagNone, true
}

func parseFlexibleDate(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}
