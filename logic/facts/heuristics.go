// Package facts extracts structured NoteFacts from free-text clinical
// notes: a deterministic heuristic pre-pass, then conditional LLM
// completion for whatever the heuristics could not see.
package facts

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Ethan225300/mbspro/types"
)

var (
	reExact     = regexp.MustCompile(`(?i)(?:exactly|precisely)\s+(\d+)\s*min(?:ute)?s?`)
	reRange     = regexp.MustCompile(`(?i)(\d+)\s*(?:-|–|—|to)\s*(\d+)\s*min(?:ute)?s?`)
	reAtLeastLess = regexp.MustCompile(`(?i)at least\s+(\d+)(?:\s*min(?:ute)?s?)?\s+(?:and|but)\s+less than\s+(\d+)(?:\s*min(?:ute)?s?)?`)
	reAtLeast   = regexp.MustCompile(`(?i)(?:≥|>=|at least)\s*(\d+)\s*min(?:ute)?s?`)
	reMoreThan  = regexp.MustCompile(`(?i)(?:more than|over|>)\s*(\d+)\s*min(?:ute)?s?`)
	reLessThan  = regexp.MustCompile(`(?i)(?:less than|under|<)\s*(\d+)\s*min(?:ute)?s?`)
	rePlus      = regexp.MustCompile(`(?i)(\d+)\+\s*min(?:ute)?s?`)
	reBare      = regexp.MustCompile(`(?i)(\d+)\s*min(?:ute)?s?`)

	reAgeWord = regexp.MustCompile(`(?i)\bage[d]?\s*:?\s*(\d+)\b`)
	reAgeOld  = regexp.MustCompile(`(?i)\b(\d+)\s*(?:\-|\s)?years?[\s-]*old\b`)
	reAgeYo   = regexp.MustCompile(`(?i)\b(\d+)\s*(?:yo|y\.o\.|y/o|y)\b`)
)

var videoLexicon = []string{"telehealth", "video", "zoom", "virtual", "webex", "teams"}
var phoneLexicon = []string{"telephone", "phone", "called the patient", "phone call"}
var inPersonLexicon = []string{"face to face", "face-to-face", "f2f", "in person", "in-person"}

var specialistLexicon = []string{
	"specialist", "consultant", "surgeon", "cardiologist", "dermatologist",
	"psychiatrist", "neurologist", "oncologist", "orthopaedic",
}
var gpLexicon = []string{"general practitioner", "gp ", " gp", "family doctor", "family physician"}

var emergencyLexicon = []string{"emergency", "resus", "triage", "urgent presentation"}
var routineLexicon = []string{"routine", "elective"}

// keywordVocabulary is the fixed evidence-token vocabulary kept for the
// verifier's flag checks. Role nouns double as participant evidence when
// counting case-conference attendees.
var keywordVocabulary = []string{
	"conference", "case conference", "team", "multidisciplinary",
	"usual gp", "home visit", "gp referral", "referring practitioner",
	"specialist referral", "referral",
	"nurse", "physiotherapist", "psychologist", "dietitian",
	"pharmacist", "social worker", "occupational therapist",
	"surgery", "surgical", "operation", "anaesthesia", "anaesthetic",
	"ultrasound", "contrast", "ct",
	"chest", "abdomen", "head", "neck", "pelvis", "spine", "brain", "limb",
}

// RoleNouns are the care-provider nouns counted as conference
// participants.
var RoleNouns = []string{
	"nurse", "physiotherapist", "psychologist", "dietitian",
	"pharmacist", "social worker", "occupational therapist",
}

// HeuristicFacts runs the deterministic pre-pass. It never errs; fields
// it cannot see stay nil.
func HeuristicFacts(note string) *types.NoteFacts {
	f := &types.NoteFacts{}
	lower := strings.ToLower(note)

	extractDuration(note, f)
	extractAge(note, f)
	extractModality(lower, f)
	extractSetting(lower, f)
	extractVisitType(lower, f)
	extractContext(lower, f)
	extractKeywords(lower, f)

	return f
}

// extractDuration applies the duration ladder in priority order. Later
// rules never overwrite an earlier match.
func extractDuration(note string, f *types.NoteFacts) {
	set := func(min, max *int, minIncl, maxIncl bool) {
		f.DurationMin = min
		f.DurationMax = max
		mi, ma := minIncl, maxIncl
		f.DurationMinInclusive = &mi
		f.DurationMaxInclusive = &ma
	}

	if m := reExact.FindStringSubmatch(note); m != nil {
		n, _ := strconv.Atoi(m[1])
		set(&n, intp(n), true, true)
		return
	}
	if m := reAtLeastLess.FindStringSubmatch(note); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		set(&lo, &hi, true, false)
		return
	}
	if m := reRange.FindStringSubmatch(note); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		set(&lo, &hi, true, true)
		return
	}
	if m := reAtLeast.FindStringSubmatch(note); m != nil {
		lo, _ := strconv.Atoi(m[1])
		set(&lo, nil, true, false)
		return
	}
	if m := reMoreThan.FindStringSubmatch(note); m != nil {
		lo, _ := strconv.Atoi(m[1])
		set(&lo, nil, false, false)
		return
	}
	if m := reLessThan.FindStringSubmatch(note); m != nil {
		hi, _ := strconv.Atoi(m[1])
		// Widened lower bound: "less than N" rarely means a consult of
		// zero minutes, so anchor just under the cap.
		lo := hi - 1
		if lo < 0 {
			lo = 0
		}
		set(&lo, &hi, true, false)
		return
	}
	if m := rePlus.FindStringSubmatch(note); m != nil {
		lo, _ := strconv.Atoi(m[1])
		set(&lo, nil, true, false)
		return
	}
	// Bare "N min" with no surrounding modifier reads as exact.
	if loc := reBare.FindStringSubmatchIndex(note); loc != nil {
		prefix := note
		if loc[0] > 0 {
			start := loc[0] - 12
			if start < 0 {
				start = 0
			}
			prefix = note[start:loc[0]]
		} else {
			prefix = ""
		}
		if !hasDurationModifier(prefix) {
			n, _ := strconv.Atoi(note[loc[2]:loc[3]])
			set(&n, intp(n), true, true)
		}
	}
}

func hasDurationModifier(prefix string) bool {
	p := strings.ToLower(prefix)
	for _, mod := range []string{"at least", "more than", "less than", "over", "under", ">", "<", "≥", "-", "–", "—", "to "} {
		if strings.Contains(p, mod) {
			return true
		}
	}
	return false
}

func extractAge(note string, f *types.NoteFacts) {
	for _, re := range []*regexp.Regexp{reAgeWord, reAgeOld, reAgeYo} {
		if m := re.FindStringSubmatch(note); m != nil {
			n, _ := strconv.Atoi(m[1])
			f.Age = &n
			return
		}
	}
}

func extractModality(lower string, f *types.NoteFacts) {
	if containsAny(lower, videoLexicon) {
		f.Modality = strp(types.ModalityVideo)
		return
	}
	if containsAny(lower, phoneLexicon) {
		f.Modality = strp(types.ModalityPhone)
		return
	}
	if containsAny(lower, inPersonLexicon) {
		f.Modality = strp(types.ModalityInPerson)
	}
	// No signal: stays nil; the verifier applies the weak in_person
	// default.
}

func extractSetting(lower string, f *types.NoteFacts) {
	switch {
	case strings.Contains(lower, "hospital") || strings.Contains(lower, "inpatient") || strings.Contains(lower, "ward"):
		f.Setting = strp(types.SettingHospital)
	case strings.Contains(lower, "consulting rooms") || strings.Contains(lower, "clinic"):
		f.Setting = strp(types.SettingConsultingRooms)
	case strings.Contains(lower, "residential aged care") || strings.Contains(lower, "residential care") || strings.Contains(lower, "nursing home"):
		f.Setting = strp(types.SettingResidentialCare)
	case strings.Contains(lower, "home visit") || strings.Contains(lower, "at home") || strings.Contains(lower, "patient's home"):
		f.Setting = strp(types.SettingHome)
	}
}

func extractVisitType(lower string, f *types.NoteFacts) {
	switch {
	case strings.Contains(lower, "first attendance") || strings.Contains(lower, "new patient") ||
		strings.Contains(lower, "initial consultation") || strings.Contains(lower, "initial assessment") ||
		strings.Contains(lower, "first visit"):
		f.FirstOrReview = strp(types.VisitFirst)
	case strings.Contains(lower, "review") || strings.Contains(lower, "follow-up") || strings.Contains(lower, "follow up"):
		f.FirstOrReview = strp(types.VisitReview)
	}
	if strings.Contains(lower, "referral") || strings.Contains(lower, "referred") {
		t := true
		f.ReferralPresent = &t
	}
}

// extractContext sets the practitioner and urgency flags. Specialist
// language wins over GP language.
func extractContext(lower string, f *types.NoteFacts) {
	specialist := containsAny(lower, specialistLexicon)
	gp := containsAny(lower, gpLexicon) || strings.HasPrefix(lower, "gp") || strings.HasSuffix(lower, "gp")
	if specialist {
		f.IsSpecialist = boolp(true)
		f.IsGP = boolp(false)
	} else if gp {
		f.IsGP = boolp(true)
		f.IsSpecialist = boolp(false)
		f.Specialty = strp("gp")
	}
	if containsAny(lower, emergencyLexicon) {
		f.IsEmergency = boolp(true)
	} else if containsAny(lower, routineLexicon) {
		f.IsEmergency = boolp(false)
	}
}

var keywordPatterns = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(keywordVocabulary))
	for _, kw := range keywordVocabulary {
		// Word-bounded so short tokens ("ct", "head") don't fire inside
		// unrelated words.
		m[kw] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
	}
	return m
}()

func extractKeywords(lower string, f *types.NoteFacts) {
	seen := map[string]bool{}
	for _, kw := range keywordVocabulary {
		if keywordPatterns[kw].MatchString(lower) && !seen[kw] {
			seen[kw] = true
			f.Keywords = append(f.Keywords, kw)
		}
	}
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }
func boolp(v bool) *bool    { return &v }
