package domain

import "time"

// Entry is one usage log record. Insert-only; every field except Action is optional.
type Entry struct {
	ID        int64
	Action    string
	Phrase    string
	Category  string
	Language  string
	TableID   string
	CreatedAt time.Time
}

// Well-known actions. Like call types, the set is open.
const (
	ActionPhraseTap = "phrase_tap"
	ActionTranslate = "translate"
	ActionStaffCall = "staff_call"
	ActionAudioPlay = "audio_play"
)

// Count is one group of an aggregate: a key (action, language or phrase) and how often it occurred.
type Count struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Stats is the computed usage view shown on the staff dashboard.
type Stats struct {
	// ByAction holds the entry count per action, largest first.
	ByAction []Count `json:"by_action"`
	// Languages holds entry counts grouped by language, largest first.
	Languages []Count `json:"languages"`
	// PopularPhrases holds the most tapped phrases, largest first; ties keep first-seen order.
	PopularPhrases []Count `json:"popular_phrases"`
	PhraseTaps     int64   `json:"phrase_taps"`
	Translations   int64   `json:"translations"`
	// Total is PhraseTaps plus Translations, the board's headline usage figure.
	Total int64 `json:"total"`
}

// EmptyStats returns zero counts with non-nil groupings.
func EmptyStats() *Stats {
	return &Stats{
		ByAction:       []Count{},
		Languages:      []Count{},
		PopularPhrases: []Count{},
	}
}

// ActionCount returns the count recorded for action, or 0.
func (s *Stats) ActionCount(action string) int64 {
	for _, c := range s.ByAction {
		if c.Key == action {
			return c.Count
		}
	}
	return 0
}

// Flag returns the dashboard flag for a language code; unknown codes get a white flag.
func Flag(language string) string {
	switch language {
	case "en":
		return "🇺🇸"
	case "zh":
		return "🇨🇳"
	case "vi":
		return "🇻🇳"
	case "ne":
		return "🇳🇵"
	case "ko":
		return "🇰🇷"
	case "tl":
		return "🇵🇭"
	case "id":
		return "🇮🇩"
	case "th":
		return "🇹🇭"
	case "pt":
		return "🇧🇷"
	case "es":
		return "🇪🇸"
	default:
		return "🏳️"
	}
}
