// Package phone converts between E.164 strings and the integer form numbers
// are stored in, and formats numbers and durations for display.
package phone

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// NoBreakSpace is the default group separator for Pretty.
const NoBreakSpace = "\u00a0"

var e164Pattern = regexp.MustCompile(`^\+\d{2,15}$`)

// ParseE164 converts a full E.164 number such as "+4790000000" to its
// integer form.
func ParseE164(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if !e164Pattern.MatchString(s) {
		return 0, fmt.Errorf("%q is not a phone number in full E.164 format", s)
	}
	return strconv.ParseInt(s[1:], 10, 64)
}

// E164 formats an integer number as "+<digits>". Zero yields "".
func E164(n int64) string {
	if n == 0 {
		return ""
	}
	return "+" + strconv.FormatInt(n, 10)
}

type grouping struct {
	pattern *regexp.Regexp
	groups  []int
}

// Ordered: the first matching pattern wins.
var groupings = []grouping{
	{regexp.MustCompile(`^447\d{9}$`), []int{2, 4, 3, 3}},
	{regexp.MustCompile(`^45\d{8}$`), []int{2, 2, 2, 2, 2}},
	{regexp.MustCompile(`^468\d{6}$`), []int{2, 1, 2, 2, 2}},
	{regexp.MustCompile(`^468\d{7}$`), []int{2, 1, 3, 2, 2}},
	{regexp.MustCompile(`^468\d{8}$`), []int{2, 1, 3, 3, 1}},
	{regexp.MustCompile(`^46[012345679]\d{8}$`), []int{2, 2, 3, 2, 2}},
	{regexp.MustCompile(`^46[123456790]\d{6}$`), []int{2, 2, 3, 2}},
	{regexp.MustCompile(`^475[89]\d{10}$`), []int{2, 4, 4, 4}},
	{regexp.MustCompile(`^47[123567]\d{7}$`), []int{2, 2, 2, 2, 2}},
	{regexp.MustCompile(`^47[489]\d{7}$`), []int{2, 3, 2, 3}},
}

// Pretty formats n according to E.123 and local custom, separating digit
// groups with sep. Numbers without a known grouping are returned as "+<digits>".
func Pretty(n int64, sep string) string {
	digits := strconv.FormatInt(n, 10)
	for _, g := range groupings {
		if g.pattern.MatchString(digits) {
			return "+" + separateGroups(digits, g.groups, sep)
		}
	}
	return "+" + digits
}

func separateGroups(value string, groups []int, sep string) string {
	total := 0
	for _, g := range groups {
		total += g
	}
	if total != len(value) {
		return value
	}
	parts := make([]string, 0, len(groups))
	start := 0
	for _, g := range groups {
		parts = append(parts, value[start:start+g])
		start += g
	}
	return strings.Join(parts, sep)
}

// FormatDuration renders seconds as e.g. "1 minute and 3 seconds".
func FormatDuration(seconds float64) string {
	total := int(math.RoundToEven(seconds))
	minutes, secs := total/60, total%60

	var minutesText string
	switch {
	case minutes > 1:
		minutesText = fmt.Sprintf("%d minutes", minutes)
	case minutes == 1:
		minutesText = "1 minute"
	}

	secondsText := fmt.Sprintf("%d seconds", secs)
	if secs == 1 {
		secondsText = "1 second"
	}

	if minutes > 0 {
		return minutesText + " and " + secondsText
	}
	return secondsText
}
