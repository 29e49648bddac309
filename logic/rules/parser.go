// Package rules lifts structured ItemRules from catalog item
// descriptions. Parsing is pure, deterministic and idempotent: the same
// record always yields the same rule, and a failed parse degrades to a
// permissive rule rather than an error.
package rules

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Ethan225300/mbspro/types"
)

// DefaultConfidence is the fixed prior attached to parsed rules.
const DefaultConfidence = 0.7

var (
	reTimeBetween = regexp.MustCompile(`(?i)at least (\d+) min(?:ute)?s?\s+(?:and|but)\s+less than (\d+)`)
	reTimeAtLeast = regexp.MustCompile(`(?i)(?:≥|>=|at least)\s*(\d+)\s*min(?:ute)?s?`)
	reTimeLess    = regexp.MustCompile(`(?i)(?:<|less than)\s*(\d+)\s*min(?:ute)?s?`)

	reAgeBetweenWords = regexp.MustCompile(`(?i)aged (?:at least )?(\d+)(?: years?)?(?: or more)? and (?:aged )?less than (\d+)`)
	reAgeBetween      = regexp.MustCompile(`(?i)aged between (\d+) and (\d+)`)
	reAgeMin          = regexp.MustCompile(`(?i)aged (\d+) years? or (?:more|over|older)`)
	reAgeMax          = regexp.MustCompile(`(?i)aged (?:less than|under) (\d+)`)

	reFirst  = regexp.MustCompile(`(?i)first attendance|initial consultation|initial assessment`)
	reReview = regexp.MustCompile(`(?i)\breview\b`)

	reCondition = regexp.MustCompile(`(?i)(?:before or after|follows)(?: an?)? (comprehensive|initial|review) assessment under item[s]? (\d+(?:\s*,\s*\d+)*)`)

	reProviders = regexp.MustCompile(`(?i)at least (\d+) other (?:care )?providers?`)

	rePhone = regexp.MustCompile(`(?i)\bphone\b`)
)

// ParseItemRule derives the structured rule for one catalog record.
// Structured duration metadata on the record overrides textual parsing
// of the time window. The optional confidence argument overrides the
// fixed prior.
func ParseItemRule(rec *types.CatalogRecord, confidence ...float64) types.ItemRule {
	rule := types.ItemRule{
		Code:       rec.ItemNum,
		Group:      rec.Group,
		Subgroup:   rec.Subgroup,
		Confidence: DefaultConfidence,
	}
	if len(confidence) > 0 {
		rule.Confidence = confidence[0]
	}

	desc := rec.Description
	lower := strings.ToLower(desc)

	rule.TimeWindow = parseTimeWindow(rec, desc, &rule)
	rule.AgeRange = parseAgeRange(desc, &rule)
	rule.SettingAllowed = parseSettings(lower, &rule)
	rule.ModalityAllowed = parseModalities(lower, &rule)
	rule.SpecialtyRequired = parseSpecialty(lower)
	rule.FirstOrReview = parseFirstOrReview(desc)
	rule.Conditions = parseConditions(desc)
	rule.Flags = parseFlags(lower, desc)

	if strings.Contains(lower, "referral") {
		t := true
		rule.ReferralRequired = &t
	}

	return rule
}

// parseTimeWindow prefers the record's structured duration hints over
// the wording of the description.
func parseTimeWindow(rec *types.CatalogRecord, desc string, rule *types.ItemRule) *types.Interval {
	if rec.DurationMinMinutes != nil || rec.DurationMaxMinutes != nil {
		iv := &types.Interval{
			Min:         rec.DurationMinMinutes,
			Max:         rec.DurationMaxMinutes,
			LeftClosed:  true,
			RightClosed: false,
		}
		if rec.DurationMinInclusive != nil {
			iv.LeftClosed = *rec.DurationMinInclusive
		}
		if rec.DurationMaxInclusive != nil {
			iv.RightClosed = *rec.DurationMaxInclusive
		}
		return iv
	}

	if m := reTimeBetween.FindStringSubmatch(desc); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		rule.EvidenceSpans = append(rule.EvidenceSpans, m[0])
		return &types.Interval{Min: &lo, Max: &hi, LeftClosed: true, RightClosed: false}
	}
	if m := reTimeAtLeast.FindStringSubmatch(desc); m != nil {
		lo, _ := strconv.Atoi(m[1])
		rule.EvidenceSpans = append(rule.EvidenceSpans, m[0])
		return &types.Interval{Min: &lo, LeftClosed: true, RightClosed: false}
	}
	if m := reTimeLess.FindStringSubmatch(desc); m != nil {
		hi, _ := strconv.Atoi(m[1])
		rule.EvidenceSpans = append(rule.EvidenceSpans, m[0])
		return &types.Interval{Max: &hi, LeftClosed: true, RightClosed: false}
	}
	return nil
}

func parseAgeRange(desc string, rule *types.ItemRule) *types.AgeRange {
	if m := reAgeBetweenWords.FindStringSubmatch(desc); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		rule.EvidenceSpans = append(rule.EvidenceSpans, m[0])
		return &types.AgeRange{Min: &lo, Max: &hi, LeftClosed: true, RightClosed: false}
	}
	if m := reAgeBetween.FindStringSubmatch(desc); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		rule.EvidenceSpans = append(rule.EvidenceSpans, m[0])
		return &types.AgeRange{Min: &lo, Max: &hi, LeftClosed: true, RightClosed: false}
	}
	if m := reAgeMin.FindStringSubmatch(desc); m != nil {
		lo, _ := strconv.Atoi(m[1])
		rule.EvidenceSpans = append(rule.EvidenceSpans, m[0])
		return &types.AgeRange{Min: &lo, LeftClosed: true, RightClosed: false}
	}
	if m := reAgeMax.FindStringSubmatch(desc); m != nil {
		hi, _ := strconv.Atoi(m[1])
		rule.EvidenceSpans = append(rule.EvidenceSpans, m[0])
		return &types.AgeRange{Max: &hi, LeftClosed: true, RightClosed: false}
	}
	return nil
}

func parseSettings(lower string, rule *types.ItemRule) []string {
	var settings []string
	if strings.Contains(lower, "consulting rooms") {
		settings = append(settings, types.SettingConsultingRooms)
		rule.EvidenceSpans = append(rule.EvidenceSpans, "consulting rooms")
	}
	if strings.Contains(lower, "hospital") || strings.Contains(lower, "inpatient") {
		settings = append(settings, types.SettingHospital)
		rule.EvidenceSpans = append(rule.EvidenceSpans, "hospital")
	}
	if strings.Contains(lower, "residential aged care") || strings.Contains(lower, "residential care") {
		settings = append(settings, types.SettingResidentialCare)
		rule.EvidenceSpans = append(rule.EvidenceSpans, "residential care")
	}
	return settings
}

// parseModalities always returns a non-empty set: items that never
// mention telehealth are face-to-face items.
func parseModalities(lower string, rule *types.ItemRule) []string {
	var modalities []string
	if strings.Contains(lower, "video") || strings.Contains(lower, "telehealth") {
		modalities = append(modalities, types.ModalityVideo)
		rule.EvidenceSpans = append(rule.EvidenceSpans, "telehealth/video")
	}
	if strings.Contains(lower, "telephone") || rePhone.MatchString(lower) {
		modalities = append(modalities, types.ModalityPhone)
		rule.EvidenceSpans = append(rule.EvidenceSpans, "phone")
	}
	if len(modalities) == 0 {
		modalities = []string{types.ModalityInPerson}
	}
	return modalities
}

func parseSpecialty(lower string) *string {
	if strings.Contains(lower, "general practitioner") {
		s := "gp"
		return &s
	}
	if strings.Contains(lower, "sexual health medicine specialist") {
		s := "sexual health medicine"
		return &s
	}
	return nil
}

func parseFirstOrReview(desc string) *string {
	if reFirst.MatchString(desc) {
		s := types.VisitFirst
		return &s
	}
	if reReview.MatchString(desc) {
		s := types.VisitReview
		return &s
	}
	return nil
}

func parseConditions(desc string) []types.RuleCondition {
	var conds []types.RuleCondition
	for _, m := range reCondition.FindAllStringSubmatch(desc, -1) {
		conds = append(conds, types.RuleCondition{
			Type:        "relation_required",
			Description: strings.TrimSpace(m[0]),
		})
	}
	return conds
}

func parseFlags(lower, desc string) types.ItemFlags {
	var flags types.ItemFlags
	if strings.Contains(lower, "case conference") || strings.Contains(lower, "multidisciplinary") {
		flags.CaseConference = true
	}
	if m := reProviders.FindStringSubmatch(desc); m != nil {
		k, _ := strconv.Atoi(m[1])
		// K other providers plus the rendering practitioner.
		min := k + 1
		flags.CaseConferenceMin = &min
		flags.CaseConference = true
	}
	if strings.Contains(lower, "usual gp") || strings.Contains(lower, "usual medical practitioner") {
		flags.UsualGPRequired = true
	}
	if strings.Contains(lower, "home visit") || strings.Contains(lower, "attendance at home") {
		flags.HomeOnly = true
	}
	if strings.Contains(lower, "gp referral") || strings.Contains(lower, "referring practitioner") {
		flags.ReferralGP = true
	}
	if strings.Contains(lower, "specialist referral") {
		flags.ReferralSpecialist = true
	}
	return flags
}
