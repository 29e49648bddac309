package types

// Modality values.
const (
	ModalityInPerson = "in_person"
	ModalityVideo    = "video"
	ModalityPhone    = "phone"
)

// Setting values.
const (
	SettingConsultingRooms = "consulting_rooms"
	SettingHospital        = "hospital"
	SettingResidentialCare = "residential_care"
	SettingHome            = "home"
	SettingOther           = "other"
)

// Visit type values.
const (
	VisitFirst  = "first"
	VisitReview = "review"
)

// Interval is a possibly unbounded minute/year interval. A nil endpoint
// means unbounded on that side.
type Interval struct {
	Min         *int `json:"min"`
	Max         *int `json:"max"`
	LeftClosed  bool `json:"left_closed"`
	RightClosed bool `json:"right_closed"`
}

// Contains reports whether v lies inside the interval.
func (iv *Interval) Contains(v int) bool {
	if iv.Min != nil {
		if iv.LeftClosed {
			if v < *iv.Min {
				return false
			}
		} else if v <= *iv.Min {
			return false
		}
	}
	if iv.Max != nil {
		if iv.RightClosed {
			if v > *iv.Max {
				return false
			}
		} else if v >= *iv.Max {
			return false
		}
	}
	return true
}

// ContainsInterval reports whether other is fully inside iv.
func (iv *Interval) ContainsInterval(other *Interval) bool {
	if other == nil {
		return false
	}
	// Lower bound: iv.Min must not cut into other.
	if iv.Min != nil {
		if other.Min == nil {
			return false
		}
		if *other.Min < *iv.Min {
			return false
		}
		if *other.Min == *iv.Min && other.LeftClosed && !iv.LeftClosed {
			return false
		}
	}
	// Upper bound.
	if iv.Max != nil {
		if other.Max == nil {
			return false
		}
		if *other.Max > *iv.Max {
			return false
		}
		if *other.Max == *iv.Max && other.RightClosed && !iv.RightClosed {
			return false
		}
	}
	return true
}

// Overlaps reports whether the two intervals share at least one point.
func (iv *Interval) Overlaps(other *Interval) bool {
	if other == nil {
		return false
	}
	// iv entirely below other?
	if iv.Max != nil && other.Min != nil {
		if *iv.Max < *other.Min {
			return false
		}
		if *iv.Max == *other.Min && !(iv.RightClosed && other.LeftClosed) {
			return false
		}
	}
	// iv entirely above other?
	if iv.Min != nil && other.Max != nil {
		if *iv.Min > *other.Max {
			return false
		}
		if *iv.Min == *other.Max && !(iv.LeftClosed && other.RightClosed) {
			return false
		}
	}
	return true
}

// Midpoint returns a representative minute for bucket matching. With one
// open side it returns the bounded endpoint.
func (iv *Interval) Midpoint() (int, bool) {
	switch {
	case iv.Min != nil && iv.Max != nil:
		return (*iv.Min + *iv.Max) / 2, true
	case iv.Min != nil:
		return *iv.Min, true
	case iv.Max != nil:
		return *iv.Max, true
	}
	return 0, false
}

// NoteFacts is the structured view of a clinical note. Every field is
// nullable: nil means the note did not state it.
type NoteFacts struct {
	DurationMin          *int     `json:"duration_min"`
	DurationMax          *int     `json:"duration_max"`
	DurationMinInclusive *bool    `json:"duration_min_inclusive"`
	DurationMaxInclusive *bool    `json:"duration_max_inclusive"`
	Age                  *int     `json:"age"`
	Modality             *string  `json:"modality"`
	Setting              *string  `json:"setting"`
	FirstOrReview        *string  `json:"first_or_review"`
	ReferralPresent      *bool    `json:"referral_present"`
	Specialty            *string  `json:"specialty"`
	IsGP                 *bool    `json:"is_gp"`
	IsSpecialist         *bool    `json:"is_specialist"`
	IsEmergency          *bool    `json:"is_emergency"`
	Keywords             []string `json:"keywords"`
}

// DurationInterval assembles the note's duration facts into an Interval,
// or nil when no duration was extracted. Missing inclusivity flags
// default to closed.
func (f *NoteFacts) DurationInterval() *Interval {
	if f.DurationMin == nil && f.DurationMax == nil {
		return nil
	}
	iv := &Interval{Min: f.DurationMin, Max: f.DurationMax, LeftClosed: true, RightClosed: true}
	if f.DurationMinInclusive != nil {
		iv.LeftClosed = *f.DurationMinInclusive
	}
	if f.DurationMaxInclusive != nil {
		iv.RightClosed = *f.DurationMaxInclusive
	}
	return iv
}

// HasKeyword reports whether the keyword bag contains token.
func (f *NoteFacts) HasKeyword(token string) bool {
	for _, k := range f.Keywords {
		if k == token {
			return true
		}
	}
	return false
}

// HasAnyKeyword reports whether any of the tokens is in the bag.
func (f *NoteFacts) HasAnyKeyword(tokens ...string) bool {
	for _, t := range tokens {
		if f.HasKeyword(t) {
			return true
		}
	}
	return false
}
