package types

// RuleCondition is a sequence constraint lifted from an item description
// ("before or after assessment under item N"). Conditions never hard-fail
// verification; they only surface as SOFT.
type RuleCondition struct {
	Type        string `json:"type"` // "relation_required"
	Description string `json:"description"`
}

// ItemFlags is a sparse set of behavioral requirements parsed from the
// description. Absent flags impose nothing.
type ItemFlags struct {
	CaseConference     bool `json:"case_conference,omitempty"`
	CaseConferenceMin  *int `json:"case_conference_min,omitempty"`
	UsualGPRequired    bool `json:"usual_gp_required,omitempty"`
	HomeOnly           bool `json:"home_only,omitempty"`
	ReferralGP         bool `json:"referral_gp,omitempty"`
	ReferralSpecialist bool `json:"referral_specialist,omitempty"`
}

// AgeRange constrains patient age in whole years. Endpoint closedness
// follows the parsed wording; the common MBS phrasing "aged X or more and
// less than Y" yields [X, Y).
type AgeRange struct {
	Min         *int `json:"min"`
	Max         *int `json:"max"`
	LeftClosed  bool `json:"left_closed"`
	RightClosed bool `json:"right_closed"`
}

// Contains reports whether age satisfies the range.
func (r *AgeRange) Contains(age int) bool {
	iv := Interval{Min: r.Min, Max: r.Max, LeftClosed: r.LeftClosed, RightClosed: r.RightClosed}
	return iv.Contains(age)
}

// ItemRule is the structured constraint set derived from one catalog
// item's description and metadata. Nil/empty members are unconstrained.
type ItemRule struct {
	Code     string `json:"code"`
	Group    string `json:"group"`
	Subgroup string `json:"subgroup"`

	TimeWindow *Interval `json:"time_window"`
	AgeRange   *AgeRange `json:"age_range"`

	SettingAllowed  []string `json:"setting_allowed"`  // nil = unconstrained
	ModalityAllowed []string `json:"modality_allowed"` // always non-empty after parsing

	SpecialtyRequired *string `json:"specialty_required"`
	ReferralRequired  *bool   `json:"referral_required"` // true or nil, never false
	FirstOrReview     *string `json:"first_or_review"`

	Conditions []RuleCondition `json:"conditions"`
	Flags      ItemFlags       `json:"flags"`

	EvidenceSpans []string `json:"evidence_spans"`
	Confidence    float64  `json:"confidence"`
}

// AllowsModality reports whether m is in the allowed set (empty set
// allows everything).
func (r *ItemRule) AllowsModality(m string) bool {
	if len(r.ModalityAllowed) == 0 {
		return true
	}
	for _, v := range r.ModalityAllowed {
		if v == m {
			return true
		}
	}
	return false
}

// AllowsSetting reports whether s is in the allowed set (nil allows
// everything).
func (r *ItemRule) AllowsSetting(s string) bool {
	if len(r.SettingAllowed) == 0 {
		return true
	}
	for _, v := range r.SettingAllowed {
		if v == s {
			return true
		}
	}
	return false
}
