// Package verify runs the deterministic tri-state checks of NoteFacts
// against an ItemRule. Uncertainty surfaces as SOFT, never as FAIL: only
// a clear conflict blocks an item.
package verify

import (
	"fmt"
	"strings"

	"github.com/Ethan225300/mbspro/types"
)

// Verify runs the full check table for one (facts, rule) pair. title is
// the item's display text, consulted by the keyword-refine gate.
func Verify(facts *types.NoteFacts, rule *types.ItemRule, title string) *types.VerifyReport {
	cats := CategoriesFor(rule.Group, rule.Subgroup, title)

	results := []types.CheckResult{
		checkTimeWindow(facts, rule),
		checkAge(facts, rule),
		checkModality(facts, rule),
		checkSetting(facts, rule),
		checkFirstOrReview(facts, rule),
		checkReferral(facts, rule),
		checkSpecialty(facts, rule),
		checkConditions(rule),
	}
	results = append(results, checkContext(facts, cats)...)
	results = append(results, checkFlags(facts, rule)...)
	results = append(results, checkKeywordRefine(facts, cats, title))

	report := &types.VerifyReport{
		ItemCode:   rule.Code,
		Passes:     true,
		Categories: cats,
	}
	for _, r := range results {
		if r.Status == types.StatusFail {
			report.Passes = false
		}
		report.Checks = append(report.Checks, r.Flatten())
	}
	report.RationaleMarkdown = buildRationale(rule.Code, results)
	return report
}

// ResolveTimeConflicts is the seam for pair-wise exclusivity resolution
// between accepted items. It currently returns the items unchanged with
// no notes.
func ResolveTimeConflicts(items []types.VerifiedItem) ([]types.VerifiedItem, []string) {
	return items, nil
}

// --- individual checks ---

func checkTimeWindow(facts *types.NoteFacts, rule *types.ItemRule) types.CheckResult {
	c := types.CheckResult{Name: "time_window"}
	if rule.TimeWindow == nil {
		c.Status = types.StatusPass
		return c
	}
	noteIv := facts.DurationInterval()
	if noteIv == nil {
		c.Status = types.StatusSoft
		c.Detail = "soft_info_missing: consultation duration not stated"
		return c
	}
	switch {
	case rule.TimeWindow.ContainsInterval(noteIv):
		c.Status = types.StatusPass
	case rule.TimeWindow.Overlaps(noteIv):
		c.Status = types.StatusSoft
		c.Detail = "soft_pass_overlap: note duration only partially inside the item window"
	default:
		c.Status = types.StatusFail
		c.Detail = fmt.Sprintf("duration %s outside item window %s", intervalString(noteIv), intervalString(rule.TimeWindow))
	}
	return c
}

func checkAge(facts *types.NoteFacts, rule *types.ItemRule) types.CheckResult {
	c := types.CheckResult{Name: "age"}
	if rule.AgeRange == nil {
		c.Status = types.StatusPass
		return c
	}
	if facts.Age == nil {
		c.Status = types.StatusSoft
		c.Detail = "soft_info_missing: patient age not stated"
		return c
	}
	if rule.AgeRange.Contains(*facts.Age) {
		c.Status = types.StatusPass
	} else {
		c.Status = types.StatusFail
		c.Detail = fmt.Sprintf("age %d outside required range", *facts.Age)
	}
	return c
}

func checkModality(facts *types.NoteFacts, rule *types.ItemRule) types.CheckResult {
	c := types.CheckResult{Name: "modality"}
	if len(rule.ModalityAllowed) == 0 {
		c.Status = types.StatusPass
		return c
	}

	effective := types.ModalityInPerson
	explicit := false
	if facts.Modality != nil {
		effective = *facts.Modality
		explicit = true
	}

	if rule.AllowsModality(effective) {
		c.Status = types.StatusPass
		return c
	}

	inPersonOnly := len(rule.ModalityAllowed) == 1 && rule.ModalityAllowed[0] == types.ModalityInPerson
	if explicit && inPersonOnly && (effective == types.ModalityVideo || effective == types.ModalityPhone) {
		// The only clear conflict: a remote consult against an item that
		// is strictly face-to-face.
		c.Status = types.StatusFail
		c.Detail = fmt.Sprintf("item requires in-person attendance, note is %s", effective)
		return c
	}

	c.Status = types.StatusSoft
	switch {
	case onlyModality(rule, types.ModalityVideo) && effective == types.ModalityInPerson:
		c.Detail = "soft_mismatch: telehealth not mentioned in note"
	case onlyModality(rule, types.ModalityPhone) && effective == types.ModalityInPerson:
		c.Detail = "soft_mismatch: phone consultation not mentioned in note"
	default:
		c.Detail = "soft_info_missing: modality not specified"
	}
	return c
}

func onlyModality(rule *types.ItemRule, m string) bool {
	return len(rule.ModalityAllowed) == 1 && rule.ModalityAllowed[0] == m
}

func checkSetting(facts *types.NoteFacts, rule *types.ItemRule) types.CheckResult {
	c := types.CheckResult{Name: "setting"}
	if len(rule.SettingAllowed) == 0 {
		c.Status = types.StatusPass
		return c
	}

	remoteEvidence := facts.HasKeyword("home visit") ||
		(facts.Modality != nil && *facts.Modality != types.ModalityInPerson)
	requiresFacility := (rule.AllowsSetting(types.SettingHospital) || rule.AllowsSetting(types.SettingConsultingRooms)) &&
		!rule.AllowsSetting(types.SettingHome)

	if facts.Setting == nil || *facts.Setting == types.SettingOther {
		if remoteEvidence && requiresFacility {
			c.Status = types.StatusFail
			c.Detail = "note carries remote/home evidence but item requires a facility setting"
			return c
		}
		c.Status = types.StatusSoft
		c.Detail = fmt.Sprintf("soft_info_missing: setting not stated; item requires one of [%s]", strings.Join(rule.SettingAllowed, ", "))
		return c
	}

	if rule.AllowsSetting(*facts.Setting) {
		c.Status = types.StatusPass
		return c
	}
	if *facts.Setting == types.SettingHospital || *facts.Setting == types.SettingConsultingRooms {
		c.Status = types.StatusFail
		c.Detail = fmt.Sprintf("note setting %s is excluded by the item", *facts.Setting)
		return c
	}
	c.Status = types.StatusSoft
	c.Detail = fmt.Sprintf("soft_mismatch: note setting %s, item requires one of [%s]", *facts.Setting, strings.Join(rule.SettingAllowed, ", "))
	return c
}

func checkFirstOrReview(facts *types.NoteFacts, rule *types.ItemRule) types.CheckResult {
	c := types.CheckResult{Name: "first_or_review"}
	if rule.FirstOrReview == nil || *rule.FirstOrReview == "either" {
		c.Status = types.StatusPass
		return c
	}
	if facts.FirstOrReview == nil {
		c.Status = types.StatusSoft
		c.Detail = "soft_info_missing: first attendance vs review not stated"
		return c
	}
	if *facts.FirstOrReview == *rule.FirstOrReview {
		c.Status = types.StatusPass
	} else {
		c.Status = types.StatusFail
		c.Detail = fmt.Sprintf("item is a %s attendance, note is a %s", *rule.FirstOrReview, *facts.FirstOrReview)
	}
	return c
}

func checkReferral(facts *types.NoteFacts, rule *types.ItemRule) types.CheckResult {
	c := types.CheckResult{Name: "referral"}
	if rule.ReferralRequired == nil || !*rule.ReferralRequired {
		c.Status = types.StatusPass
		return c
	}
	if facts.ReferralPresent == nil {
		c.Status = types.StatusSoft
		c.Detail = "soft_info_missing: referral not mentioned"
		return c
	}
	if *facts.ReferralPresent {
		c.Status = types.StatusPass
	} else {
		c.Status = types.StatusFail
		c.Detail = "item requires a referral, note states none"
	}
	return c
}

func checkSpecialty(facts *types.NoteFacts, rule *types.ItemRule) types.CheckResult {
	c := types.CheckResult{Name: "specialty"}
	if rule.SpecialtyRequired == nil {
		c.Status = types.StatusPass
		return c
	}
	if facts.Specialty == nil {
		c.Status = types.StatusSoft
		c.Detail = fmt.Sprintf("soft_info_missing: specialty not stated, item requires %s", *rule.SpecialtyRequired)
		return c
	}
	if strings.EqualFold(*facts.Specialty, *rule.SpecialtyRequired) {
		c.Status = types.StatusPass
	} else {
		c.Status = types.StatusFail
		c.Detail = fmt.Sprintf("item requires %s, note indicates %s", *rule.SpecialtyRequired, *facts.Specialty)
	}
	return c
}

// checkConditions surfaces sequence relations. They are advisory only:
// the note cannot prove or disprove a prior assessment, so the worst
// outcome is SOFT.
func checkConditions(rule *types.ItemRule) types.CheckResult {
	c := types.CheckResult{Name: "conditions"}
	if len(rule.Conditions) == 0 {
		c.Status = types.StatusPass
		return c
	}
	var descs []string
	for _, cond := range rule.Conditions {
		descs = append(descs, cond.Description)
	}
	c.Status = types.StatusSoft
	c.Detail = "soft_relation_unverified: " + strings.Join(descs, "; ")
	return c
}

func intervalString(iv *types.Interval) string {
	lo, hi := "-inf", "+inf"
	lb, rb := "(", ")"
	if iv.Min != nil {
		lo = fmt.Sprintf("%d", *iv.Min)
		if iv.LeftClosed {
			lb = "["
		}
	}
	if iv.Max != nil {
		hi = fmt.Sprintf("%d", *iv.Max)
		if iv.RightClosed {
			rb = "]"
		}
	}
	return fmt.Sprintf("%s%s,%s%s", lb, lo, hi, rb)
}
