package moderation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// RecommendedAction is what the scorer suggests doing about a listing
type RecommendedAction string

const (
	RecommendBan            RecommendedAction = "ban"
	RecommendContentRemoval RecommendedAction = "content_removal"
	RecommendWarning        RecommendedAction = "warning"
	RecommendEscalate       RecommendedAction = "escalate"
	RecommendNone           RecommendedAction = "none"
)

// Violation severities, ordered low < medium < high < critical
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// ListingContent is the scannable part of a listing
type ListingContent struct {
	Title       string
	Description string
	Category    string
	Price       float64
}

// Violation is one fired detector with its contribution to the risk score
type Violation struct {
	Kind     string   `json:"kind"`
	Severity string   `json:"severity"`
	Score    int      `json:"score"`
	Details  []string `json:"details,omitempty"`
}

// Analysis is the scorer output
type Analysis struct {
	Violations        []Violation       `json:"violations"`
	RiskScore         int               `json:"risk_score"`
	RecommendedAction RecommendedAction `json:"recommended_action"`
	Severity          string            `json:"severity"`
	Automatic         bool              `json:"automatic"`
}

// ScorerConfig holds every heuristic weight and cut-off. All values are
// deployment configuration; DefaultScorerConfig gives the tuned baseline.
type ScorerConfig struct {
	// Blocked-word points per severity band
	BlockInTitlePoints int
	BlockInBodyPoints  int
	WarnInTitlePoints  int
	WarnInBodyPoints   int

	// Spam detector
	CapsRatioThreshold float64
	CapsPoints         int
	RepeatRunLength    int
	RepeatPoints       int
	MinRealisticPrice  float64
	LowPricePoints     int
	ContactPoints      int
	SpamFires          int
	SpamHigh           int

	// Scam detector
	BaitPhrases            []string
	BaitPoints             int
	HighValueFloors        map[string]float64
	UnrealisticPricePoints int
	UrgencyWords           []string
	UrgencyMin             int
	UrgencyPoints          int
	ScamFires              int
	ScamCritical           int
	ScamHigh               int

	// Inappropriate-content detector
	AdultKeywords      []string
	AdultPoints        int
	ProhibitedKeywords []string
	ProhibitedPoints   int
	InappropriateFires int
	InappropriateHigh  int

	// Decision thresholds, descending; first match wins
	AutoBanScore    int
	AutoRemoveScore int
	WarnScore       int
	EscalateScore   int
}

// DefaultScorerConfig returns the tuned baseline weights
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		BlockInTitlePoints: 40,
		BlockInBodyPoints:  25,
		WarnInTitlePoints:  15,
		WarnInBodyPoints:   5,

		CapsRatioThreshold: 0.5,
		CapsPoints:         20,
		RepeatRunLength:    5,
		RepeatPoints:       15,
		MinRealisticPrice:  1.0,
		LowPricePoints:     10,
		ContactPoints:      25,
		SpamFires:          30,
		SpamHigh:           60,

		BaitPhrases: []string{
			"western union", "wire transfer", "cash only", "money order",
			"gift card", "pay in advance", "shipping agent", "overseas payment",
		},
		BaitPoints: 20,
		HighValueFloors: map[string]float64{
			"electronics": 25,
			"phones":      50,
			"computers":   50,
			"vehicles":    500,
			"jewelry":     25,
			"watches":     50,
		},
		UnrealisticPricePoints: 40,
		UrgencyWords: []string{
			"act now", "buy now", "hurry", "limited time", "today only",
			"last chance", "urgent", "won't last", "first come",
		},
		UrgencyMin:    2,
		UrgencyPoints: 25,
		ScamFires:     40,
		ScamCritical:  80,
		ScamHigh:      60,

		AdultKeywords: []string{
			"adult content", "xxx video", "explicit", "escort",
		},
		AdultPoints: 30,
		ProhibitedKeywords: []string{
			"firearm", "ammunition", "narcotic", "counterfeit", "stolen",
			"prescription drug", "endangered",
		},
		ProhibitedPoints:   40,
		InappropriateFires: 30,
		InappropriateHigh:  50,

		AutoBanScore:    80,
		AutoRemoveScore: 60,
		WarnScore:       40,
		EscalateScore:   20,
	}
}

var (
	// Matches phone-shaped sequences, digits or the common "x" masking.
	phonePattern = regexp.MustCompile(`(?i)[\dx]{3}[-.\s][\dx]{3}[-.\s][\dx]{4}`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	// Off-platform contact solicitation.
	messengerPattern = regexp.MustCompile(`(?i)\b(whatsapp|telegram|viber|signal|dm me|text me|call me)\b`)
)

// Scorer combines the word filter with the heuristic detectors into a
// single 0-100 risk score and a recommended action. Side-effect free.
type Scorer struct {
	cfg ScorerConfig
}

// NewScorer creates a scorer with the given weights
func NewScorer(cfg ScorerConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Analyze runs all detectors independently, sums their scores and clamps
// the total to [0,100]. Adding violations never lowers the aggregate.
func (s *Scorer) Analyze(content ListingContent, words []*BlockedWord) Analysis {
	var a Analysis

	if v, ok := s.detectBlockedWords(content, words); ok {
		a.Violations = append(a.Violations, v)
		a.RiskScore += v.Score
	}
	spamScore, spamDetails := s.spamScore(content)
	if spamScore >= s.cfg.SpamFires {
		sev := SeverityMedium
		if spamScore >= s.cfg.SpamHigh {
			sev = SeverityHigh
		}
		a.Violations = append(a.Violations, Violation{
			Kind: "spam", Severity: sev, Score: spamScore, Details: spamDetails,
		})
	}
	a.RiskScore += spamScore

	scamScore, scamDetails := s.scamScore(content)
	if scamScore >= s.cfg.ScamFires {
		sev := SeverityMedium
		switch {
		case scamScore >= s.cfg.ScamCritical:
			sev = SeverityCritical
		case scamScore >= s.cfg.ScamHigh:
			sev = SeverityHigh
		}
		a.Violations = append(a.Violations, Violation{
			Kind: "scam", Severity: sev, Score: scamScore, Details: scamDetails,
		})
	}
	a.RiskScore += scamScore

	inapScore, inapDetails := s.inappropriateScore(content)
	if inapScore >= s.cfg.InappropriateFires {
		sev := SeverityMedium
		if inapScore >= s.cfg.InappropriateHigh {
			sev = SeverityHigh
		}
		a.Violations = append(a.Violations, Violation{
			Kind: "inappropriate", Severity: sev, Score: inapScore, Details: inapDetails,
		})
	}
	a.RiskScore += inapScore

	if a.RiskScore > 100 {
		a.RiskScore = 100
	}

	a.RecommendedAction, a.Severity, a.Automatic = s.decide(a.RiskScore)
	return a
}

// decide maps the aggregate score to a recommendation, descending
// thresholds, first match wins.
func (s *Scorer) decide(score int) (RecommendedAction, string, bool) {
	switch {
	case score >= s.cfg.AutoBanScore:
		return RecommendBan, SeverityCritical, true
	case score >= s.cfg.AutoRemoveScore:
		return RecommendContentRemoval, SeverityHigh, true
	case score >= s.cfg.WarnScore:
		return RecommendWarning, SeverityMedium, false
	case score >= s.cfg.EscalateScore:
		return RecommendEscalate, SeverityLow, false
	default:
		return RecommendNone, "", false
	}
}

func (s *Scorer) detectBlockedWords(content ListingContent, words []*BlockedWord) (Violation, bool) {
	titleRes := Filter(content.Title, words)
	bodyRes := Filter(content.Description, words)
	if !titleRes.HasViolations && !bodyRes.HasViolations {
		return Violation{}, false
	}

	score := 0
	sev := SeverityLow
	var details []string
	for _, m := range titleRes.Violations {
		if m.Severity == WordSeverityBlock {
			score += s.cfg.BlockInTitlePoints
			sev = maxSeverity(sev, SeverityCritical)
		} else {
			score += s.cfg.WarnInTitlePoints
			sev = maxSeverity(sev, SeverityMedium)
		}
		details = append(details, "title: "+m.Word)
	}
	for _, m := range bodyRes.Violations {
		if m.Severity == WordSeverityBlock {
			score += s.cfg.BlockInBodyPoints
			sev = maxSeverity(sev, SeverityHigh)
		} else {
			score += s.cfg.WarnInBodyPoints
		}
		details = append(details, "description: "+m.Word)
	}

	return Violation{Kind: "blocked_words", Severity: sev, Score: score, Details: details}, true
}

func (s *Scorer) spamScore(content ListingContent) (int, []string) {
	text := content.Title + " " + content.Description
	score := 0
	var details []string

	if capsRatio(text) > s.cfg.CapsRatioThreshold {
		score += s.cfg.CapsPoints
		details = append(details, "excessive capitalization")
	}
	if hasRepeatRun(text, s.cfg.RepeatRunLength) {
		score += s.cfg.RepeatPoints
		details = append(details, "repeated characters")
	}
	if content.Price > 0 && content.Price < s.cfg.MinRealisticPrice {
		score += s.cfg.LowPricePoints
		details = append(details, "suspiciously low price")
	}
	if phonePattern.MatchString(text) || emailPattern.MatchString(text) || messengerPattern.MatchString(text) {
		score += s.cfg.ContactPoints
		details = append(details, "off-platform contact info")
	}

	return score, details
}

func (s *Scorer) scamScore(content ListingContent) (int, []string) {
	text := strings.ToLower(content.Title + " " + content.Description)
	score := 0
	var details []string

	for _, phrase := range s.cfg.BaitPhrases {
		if strings.Contains(text, phrase) {
			score += s.cfg.BaitPoints
			details = append(details, "bait phrase: "+phrase)
		}
	}

	if floor, ok := s.cfg.HighValueFloors[strings.ToLower(content.Category)]; ok {
		if content.Price > 0 && content.Price < floor {
			score += s.cfg.UnrealisticPricePoints
			details = append(details, fmt.Sprintf("unrealistic price for %s", content.Category))
		}
	}

	urgency := 0
	for _, w := range s.cfg.UrgencyWords {
		if strings.Contains(text, w) {
			urgency++
		}
	}
	if urgency >= s.cfg.UrgencyMin {
		score += s.cfg.UrgencyPoints
		details = append(details, "urgency pressure")
	}

	return score, details
}

func (s *Scorer) inappropriateScore(content ListingContent) (int, []string) {
	text := strings.ToLower(content.Title + " " + content.Description)
	score := 0
	var details []string

	for _, kw := range s.cfg.AdultKeywords {
		if strings.Contains(text, kw) {
			score += s.cfg.AdultPoints
			details = append(details, "adult content")
			break
		}
	}
	for _, kw := range s.cfg.ProhibitedKeywords {
		if strings.Contains(text, kw) {
			score += s.cfg.ProhibitedPoints
			details = append(details, "prohibited item")
			break
		}
	}

	return score, details
}

// capsRatio is uppercase letters over all letters; short texts (under ten
// letters) never count as shouting.
func capsRatio(text string) float64 {
	letters, upper := 0, 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters < 10 {
		return 0
	}
	return float64(upper) / float64(letters)
}

func hasRepeatRun(text string, minRun int) bool {
	if minRun <= 1 {
		return len(text) > 0
	}
	run := 1
	var prev rune
	for i, r := range text {
		if i > 0 && r == prev && !unicode.IsSpace(r) {
			run++
			if run >= minRun {
				return true
			}
		} else {
			run = 1
		}
		prev = r
	}
	return false
}

var severityRank = map[string]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

func maxSeverity(a, b string) string {
	if severityRank[b] > severityRank[a] {
		return b
	}
	return a
}
