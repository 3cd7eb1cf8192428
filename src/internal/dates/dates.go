package dates

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// YearFromDate parses the leading year of a YYYY, YYYY-MM-DD, or YYYY/MM
// string. Anything else returns 0.
func YearFromDate(date string) int {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	if len(date) > 4 && date[4] != '-' && date[4] != '/' {
		return 0
	}
	return y
}

// ExtractYear scans a string and returns a plausible 4-digit year if found.
func ExtractYear(s string) int {
	s = strings.TrimSpace(s)
	for i := 0; i+4 <= len(s); i++ {
		var y int
		if _, err := fmt.Sscanf(s[i:i+4], "%d", &y); err == nil {
			if y >= 1000 && y <= time.Now().Year()+1 {
				return y
			}
		}
	}
	return 0
}

var monthNumbers = map[string]string{
	"jan": "1", "january": "1",
	"feb": "2", "february": "2",
	"mar": "3", "march": "3",
	"apr": "4", "april": "4",
	"may": "5",
	"jun": "6", "june": "6",
	"jul": "7", "july": "7",
	"aug": "8", "august": "8",
	"sep": "9", "sept": "9", "september": "9",
	"oct": "10", "october": "10",
	"nov": "11", "november": "11",
	"dec": "12", "december": "12",
}

// MonthNumber maps an English month name or abbreviation to its number.
func MonthNumber(name string) (string, bool) {
	n, ok := monthNumbers[strings.ToLower(strings.TrimSpace(name))]
	return n, ok
}
