package verify

import (
	"fmt"
	"strings"

	"github.com/Ethan225300/mbspro/types"
)

// buildRationale renders the human-readable verdict: a headline with the
// item code and verdict emoji, then a bullet per FAIL or SOFT check.
func buildRationale(code string, results []types.CheckResult) string {
	emoji := "✅"
	worst := types.StatusPass
	for _, r := range results {
		if r.Status > worst {
			worst = r.Status
		}
	}
	switch worst {
	case types.StatusFail:
		emoji = "❌"
	case types.StatusSoft:
		emoji = "⚠️"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "### Item %s %s\n", code, emoji)
	if worst == types.StatusPass {
		b.WriteString("All checks passed.\n")
		return b.String()
	}
	for _, r := range results {
		if r.Status == types.StatusPass {
			continue
		}
		fmt.Fprintf(&b, "- **%s** (%s): %s\n", r.Name, r.Status, r.Detail)
	}
	return b.String()
}
