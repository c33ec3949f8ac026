package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/earnings-cli/internal/model"
)

// The pattern banks below target prose from earnings press releases. Each
// bank deduplicates by value so a figure repeated in headline and body is
// reported once.

// Revenue: "revenue of $2.5 billion", "$2.5 billion in revenue", and the
// "net sales increased 13% to $143.1 billion" phrasing.
var revenuePatterns = []struct {
	re        *regexp.Regexp
	metric    string
	keySuffix string
}{
	{regexp.MustCompile(`(?i)revenue\s+(?:to|of|was|reached|totaled|grew\s+to)\s+\$\s?([\d,]+\.?\d*)\s*(billion|million|thousand)`), "total_revenue", ""},
	{regexp.MustCompile(`(?i)\$\s?([\d,]+\.?\d*)\s*(billion|million)\s+(?:in\s+)?revenue`), "total_revenue", ""},
	{regexp.MustCompile(`(?i)(?:net\s+)?sales?\s+(?:increased|grew)\s+[\d.]+%?\s+to\s+\$\s?([\d,]+\.?\d*)\s*(billion|million)`), "net_sales", "_sales"},
}

// EPS: "diluted earnings per share of $1.86", "EPS of $3.20",
// "$1.86 per diluted share".
var epsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)diluted\s+(?:net\s+)?(?:income|earnings)\s+per\s+share\s+(?:of\s+)?\$\s?([\d.]+)`),
	regexp.MustCompile(`(?i)EPS\s+(?:of\s+)?\$\s?([\d.]+)`),
	regexp.MustCompile(`(?i)earnings\s+per\s+share\s+(?:of\s+)?\$\s?([\d.]+)`),
	regexp.MustCompile(`(?i)\$\s?([\d.]+)\s+per\s+(?:diluted\s+)?share`),
	regexp.MustCompile(`(?i)(?:or\s+)?\$\s?([\d.]+)\s+per\s+diluted\s+share`),
}

// Net income: the unit is optional in the first form so bare-dollar
// amounts still match.
var netIncomePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)net\s+income\s+(?:increased|grew|was|reached|of)\s+(?:to\s+)?\$\s?([\d,]+\.?\d*)\s*(billion|million|thousand)?`),
	regexp.MustCompile(`(?i)\$\s?([\d,]+\.?\d*)\s*(billion|million)\s+(?:in\s+)?net\s+income`),
}

var operatingIncomePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)operating\s+income\s+(?:increased|grew|was|reached)\s+(?:to\s+)?\$\s?([\d,]+\.?\d*)\s*(billion|million)?`),
	regexp.MustCompile(`(?i)\$\s?([\d,]+\.?\d*)\s*(billion|million)\s+(?:in\s+)?operating\s+income`),
}

// Growth: percentage phrasings in either order plus year-over-year.
var growthPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:increased|grew|growth\s+of|up)\s+([\d.]+)\s*%`),
	regexp.MustCompile(`(?i)([\d.]+)\s*%\s+(?:increase|growth|up)`),
	regexp.MustCompile(`(?i)([\d.]+)\s*%\s+year[- ]over[- ]year`),
	regexp.MustCompile(`(?i)(?:sales|revenue|income)\s+(?:increased|grew)\s+([\d.]+)%`),
}

// Guidance: forward-looking dollar figures near guidance verbs.
var guidancePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:guidance|expected?|forecast|outlook|projects?)\s+(?:to\s+be\s+)?(?:between\s+)?\$\s?([\d,]+\.?\d*)\s*(?:billion|million)`),
	regexp.MustCompile(`(?i)estimates?\s+(?:of\s+)?\$\s?([\d,]+\.?\d*)\s*(billion|million)`),
}

var unitWordRe = regexp.MustCompile(`(?i)(billion|million)`)

// ParseFacts runs every built-in pattern bank over cleaned page text.
func ParseFacts(text string) []model.Fact {
	var facts []model.Fact
	facts = append(facts, extractRevenue(text)...)
	facts = append(facts, extractEarnings(text)...)
	facts = append(facts, extractGrowth(text)...)
	facts = append(facts, extractGuidance(text)...)
	return facts
}

func extractRevenue(text string) []model.Fact {
	var facts []model.Fact
	seen := map[string]bool{}

	for _, p := range revenuePatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			value, ok := parseAmount(m[1])
			if !ok {
				continue
			}
			unit := strings.ToLower(m[2])
			key := fmt.Sprintf("%v_%s%s", value, unit, p.keySuffix)
			if seen[key] {
				continue
			}
			seen[key] = true

			facts = append(facts, model.Fact{
				FactType:   "revenue",
				Metric:     p.metric,
				Value:      value,
				Unit:       unit + "_usd",
				Confidence: model.ConfidenceHigh,
				SourceText: truncate(m[0], 150),
			})
		}
	}
	return facts
}

func extractEarnings(text string) []model.Fact {
	var facts []model.Fact
	seen := map[string]bool{}

	for _, re := range epsPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			value, err := strconv.ParseFloat(m[1], 64)
			if err != nil || value <= 0 || value >= 1000 {
				continue
			}
			key := fmt.Sprintf("eps_%v", value)
			if seen[key] {
				continue
			}
			seen[key] = true

			facts = append(facts, model.Fact{
				FactType:   "earnings",
				Metric:     "eps",
				Value:      value,
				Unit:       "usd_per_share",
				Confidence: model.ConfidenceHigh,
				SourceText: truncate(m[0], 150),
			})
		}
	}

	facts = append(facts, extractDollarMetric(text, netIncomePatterns, "net_income", seen)...)
	facts = append(facts, extractDollarMetric(text, operatingIncomePatterns, "operating_income", seen)...)
	return facts
}

// extractDollarMetric handles the income banks, whose unit group may be
// absent when the phrase quotes a bare dollar amount.
func extractDollarMetric(text string, patterns []*regexp.Regexp, metric string, seen map[string]bool) []model.Fact {
	var facts []model.Fact

	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			value, ok := parseAmount(m[1])
			if !ok {
				continue
			}
			unit := "usd"
			if len(m) > 2 && m[2] != "" {
				unit = strings.ToLower(m[2])
			}
			key := fmt.Sprintf("%s_%v_%s", metric, value, unit)
			if seen[key] {
				continue
			}
			seen[key] = true

			unitLabel := unit
			if unit != "usd" {
				unitLabel = unit + "_usd"
			}
			facts = append(facts, model.Fact{
				FactType:   "earnings",
				Metric:     metric,
				Value:      value,
				Unit:       unitLabel,
				Confidence: model.ConfidenceHigh,
				SourceText: truncate(m[0], 150),
			})
		}
	}
	return facts
}

func extractGrowth(text string) []model.Fact {
	var facts []model.Fact
	seen := map[string]bool{}

	for _, re := range growthPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			value, err := strconv.ParseFloat(m[1], 64)
			if err != nil || value < 0 || value > 1000 {
				continue
			}
			key := fmt.Sprintf("growth_%v", value)
			if seen[key] {
				continue
			}
			seen[key] = true

			direction := "increase"
			lower := strings.ToLower(m[0])
			if strings.Contains(lower, "decrease") || strings.Contains(lower, "decline") || strings.Contains(lower, "down") {
				direction = "decrease"
			}

			facts = append(facts, model.Fact{
				FactType:   "growth",
				Metric:     "growth_rate",
				Value:      value,
				Unit:       "percent",
				Direction:  direction,
				Confidence: model.ConfidenceMedium,
				SourceText: truncate(m[0], 150),
			})
		}
	}
	return facts
}

func extractGuidance(text string) []model.Fact {
	var facts []model.Fact
	seen := map[string]bool{}

	for _, re := range guidancePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			value, ok := parseAmount(m[1])
			if !ok {
				continue
			}
			unit := "usd"
			if w := unitWordRe.FindString(m[0]); w != "" {
				unit = strings.ToLower(w)
			}
			key := fmt.Sprintf("guidance_%v_%s", value, unit)
			if seen[key] {
				continue
			}
			seen[key] = true

			facts = append(facts, model.Fact{
				FactType:   "guidance",
				Metric:     "forward_guidance",
				Value:      value,
				Unit:       unit + "_usd",
				Confidence: model.ConfidenceMedium,
				SourceText: truncate(m[0], 150),
			})
		}
	}
	return facts
}

// parseAmount parses a dollar amount that may carry thousands separators.
func parseAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// truncate limits source snippets to n characters.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
