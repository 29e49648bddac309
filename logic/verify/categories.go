package verify

import "strings"

// Item categories derived from the catalog taxonomy. They drive the
// context and keyword-refine checks.
const (
	CategoryGP         = "GP"
	CategorySpecialist = "Specialist"
	CategoryTelehealth = "Telehealth"
	CategoryAfterHours = "AfterHours"
	CategoryEmergency  = "Emergency"
	CategoryImaging    = "Imaging"
	CategorySurgery    = "Surgery"
	CategoryPathology  = "Pathology"
	CategoryOther      = "Other"
)

// CategoriesFor maps an item's group/subgroup (and title, for the
// anaesthesia case) to its category set.
func CategoriesFor(group, subgroup, title string) []string {
	g := strings.ToUpper(strings.TrimSpace(group))
	sub := strings.TrimSpace(subgroup)
	var cats []string

	switch g {
	case "A1", "A7":
		cats = append(cats, CategoryGP)
	case "A3", "A4", "A28", "A29":
		cats = append(cats, CategorySpecialist)
	case "A40":
		cats = append(cats, CategoryTelehealth)
	case "A11", "A22", "A23":
		cats = append(cats, CategoryAfterHours)
	case "A21":
		cats = append(cats, CategoryEmergency)
	}
	if g == "T1" && sub == "14" {
		cats = append(cats, CategoryEmergency)
	}
	if strings.HasPrefix(g, "I") {
		cats = append(cats, CategoryImaging)
	}
	if strings.HasPrefix(g, "T8") || strings.Contains(strings.ToLower(title), "anaes") {
		cats = append(cats, CategorySurgery)
	}
	if strings.HasPrefix(g, "P") {
		cats = append(cats, CategoryPathology)
	}
	if len(cats) == 0 {
		cats = append(cats, CategoryOther)
	}
	return cats
}

func hasCategory(cats []string, c string) bool {
	for _, v := range cats {
		if v == c {
			return true
		}
	}
	return false
}
