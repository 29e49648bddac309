package verify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Ethan225300/mbspro/logic/facts"
	"github.com/Ethan225300/mbspro/types"
)

var reCTTitle = regexp.MustCompile(`\b(?:ct|computed tomography)\b`)

// checkContext evaluates the practitioner/urgency context flags against
// the item's category set. Categories the item does not carry impose
// nothing.
func checkContext(f *types.NoteFacts, cats []string) []types.CheckResult {
	var results []types.CheckResult

	if hasCategory(cats, CategoryGP) {
		results = append(results, contextCheck("gp_context", f.IsGP, "GP attendance item"))
	}
	if hasCategory(cats, CategorySpecialist) {
		results = append(results, contextCheck("specialist_context", f.IsSpecialist, "specialist attendance item"))
	}
	if hasCategory(cats, CategoryEmergency) {
		results = append(results, contextCheck("emergency_context", f.IsEmergency, "emergency item"))
	}
	return results
}

func contextCheck(name string, fact *bool, what string) types.CheckResult {
	c := types.CheckResult{Name: name}
	switch {
	case fact == nil:
		c.Status = types.StatusSoft
		c.Detail = fmt.Sprintf("soft_info_missing: note does not establish context for %s", what)
	case *fact:
		c.Status = types.StatusPass
	default:
		c.Status = types.StatusFail
		c.Detail = fmt.Sprintf("note context conflicts with %s", what)
	}
	return c
}

// checkFlags evaluates the sparse behavioral flags: missing evidence is
// SOFT, an explicit contradiction is FAIL, satisfied evidence is PASS.
func checkFlags(f *types.NoteFacts, rule *types.ItemRule) []types.CheckResult {
	var results []types.CheckResult

	if rule.Flags.CaseConference {
		results = append(results, checkCaseConference(f, rule.Flags.CaseConferenceMin))
	}
	if rule.Flags.UsualGPRequired {
		results = append(results, checkUsualGP(f))
	}
	if rule.Flags.HomeOnly {
		results = append(results, checkHomeOnly(f))
	}
	if rule.Flags.ReferralGP {
		results = append(results, checkReferralKind(f, "referral_gp", "gp referral", "referring practitioner"))
	}
	if rule.Flags.ReferralSpecialist {
		results = append(results, checkReferralKind(f, "referral_specialist", "specialist referral"))
	}
	return results
}

func checkCaseConference(f *types.NoteFacts, minParticipants *int) types.CheckResult {
	c := types.CheckResult{Name: "case_conference"}
	if !f.HasAnyKeyword("conference", "case conference", "team", "multidisciplinary") {
		c.Status = types.StatusSoft
		c.Detail = "soft_info_missing: no case conference or team evidence in note"
		return c
	}
	if minParticipants != nil {
		// Role nouns in the keyword bag plus the rendering practitioner
		// bound the participant count from below.
		count := 1
		for _, role := range facts.RoleNouns {
			if f.HasKeyword(role) {
				count++
			}
		}
		if count < *minParticipants {
			c.Status = types.StatusSoft
			c.Detail = fmt.Sprintf("soft_info_missing: %d participants evidenced, item requires at least %d", count, *minParticipants)
			return c
		}
	}
	c.Status = types.StatusPass
	return c
}

func checkUsualGP(f *types.NoteFacts) types.CheckResult {
	c := types.CheckResult{Name: "usual_gp"}
	switch {
	case f.HasKeyword("usual gp"):
		c.Status = types.StatusPass
	case f.IsGP != nil && !*f.IsGP:
		c.Status = types.StatusFail
		c.Detail = "item requires the patient's usual GP, note indicates a non-GP practitioner"
	default:
		c.Status = types.StatusSoft
		c.Detail = "soft_info_missing: usual GP relationship not evidenced"
	}
	return c
}

func checkHomeOnly(f *types.NoteFacts) types.CheckResult {
	c := types.CheckResult{Name: "home_only"}
	switch {
	case f.HasKeyword("home visit") || (f.Setting != nil && *f.Setting == types.SettingHome):
		c.Status = types.StatusPass
	case f.Setting != nil && (*f.Setting == types.SettingHospital || *f.Setting == types.SettingConsultingRooms):
		c.Status = types.StatusFail
		c.Detail = fmt.Sprintf("item is a home attendance, note setting is %s", *f.Setting)
	default:
		c.Status = types.StatusSoft
		c.Detail = "soft_info_missing: home visit not evidenced"
	}
	return c
}

func checkReferralKind(f *types.NoteFacts, name string, evidence ...string) types.CheckResult {
	c := types.CheckResult{Name: name}
	if f.ReferralPresent != nil && !*f.ReferralPresent {
		c.Status = types.StatusFail
		c.Detail = "item requires a referral, note states none"
		return c
	}
	if f.HasAnyKeyword(evidence...) {
		c.Status = types.StatusPass
		return c
	}
	c.Status = types.StatusSoft
	c.Detail = fmt.Sprintf("soft_info_missing: %s not evidenced", strings.Join(evidence, " / "))
	return c
}

// checkKeywordRefine is the category-sensitive heuristic gate over the
// item title and the note's evidence tokens.
func checkKeywordRefine(f *types.NoteFacts, cats []string, title string) types.CheckResult {
	c := types.CheckResult{Name: "keyword_refine"}
	titleLower := strings.ToLower(title)

	if hasCategory(cats, CategorySurgery) &&
		!f.HasAnyKeyword("surgery", "surgical", "operation", "anaesthesia", "anaesthetic") {
		c.Status = types.StatusSoft
		c.Detail = "soft_mismatch: surgery/anaesthesia not mentioned in note"
		return c
	}

	hasContrast := strings.Contains(titleLower, "contrast")
	titleHasCT := reCTTitle.MatchString(titleLower)
	if titleHasCT && hasContrast && !f.HasKeyword("contrast") {
		c.Status = types.StatusSoft
		c.Detail = "soft_mismatch: contrast study not mentioned in note"
		return c
	}
	if titleHasCT && !hasContrast &&
		f.HasAnyKeyword("chest", "abdomen", "head", "neck", "pelvis", "spine", "brain", "limb") {
		c.Status = types.StatusPass
		return c
	}

	if strings.Contains(titleLower, "ultrasound") && !f.HasKeyword("ultrasound") {
		c.Status = types.StatusSoft
		c.Detail = "soft_mismatch: ultrasound not mentioned in note"
		return c
	}

	c.Status = types.StatusPass
	return c
}
