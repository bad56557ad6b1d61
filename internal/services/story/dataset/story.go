package dataset

import "github.com/louisbranch/budgetstory/internal/services/story/tracker"

// NavSectionIDs are the sections offered in the section navigation, in
// display order.
var NavSectionIDs = []string{"how_to_read", "early_decades_intro", "turning_point", "new_normal_intro", "word_trends_intro", "explore"}

// Section is one curated narrative section.
type Section struct {
	ID         string `json:"id"`
	YearRange  [2]int `json:"year_range"`
	Type       string `json:"type"`
	EraLabel   string `json:"era_label,omitempty"`
	HeaderText string `json:"header_text,omitempty"`
	Title      string `json:"title,omitempty"`
	Setup      string `json:"setup,omitempty"`
	Reflection string `json:"reflection,omitempty"`
	TrendType  string `json:"trend_type,omitempty"`
}

// Story is the curated narrative document. Stats are passed through
// untouched.
type Story struct {
	Sections []Section      `json:"sections"`
	Stats    map[string]any `json:"stats,omitempty"`
}

func parseStory(data []byte) (Story, error) {
	var story Story
	if err := decodeDocument(StoryFile, data, &story); err != nil {
		return Story{}, err
	}
	if len(story.Sections) == 0 {
		return Story{}, invalid(StoryFile, "sections missing")
	}
	seen := make(map[string]bool, len(story.Sections))
	for i, section := range story.Sections {
		if section.ID == "" {
			return Story{}, invalid(StoryFile, "section %d: id missing", i)
		}
		if seen[section.ID] {
			return Story{}, invalid(StoryFile, "section %q: duplicate id", section.ID)
		}
		seen[section.ID] = true
	}
	return story, nil
}

// Section returns the section with the given id.
func (s Story) Section(id string) (Section, bool) {
	for _, section := range s.Sections {
		if section.ID == id {
			return section, true
		}
	}
	return Section{}, false
}

// TrackerSections converts the sections for scroll tracking.
func (s Story) TrackerSections() []tracker.Section {
	out := make([]tracker.Section, 0, len(s.Sections))
	for _, section := range s.Sections {
		out = append(out, tracker.Section{
			ID:         section.ID,
			YearRange:  section.YearRange,
			Type:       section.Type,
			EraLabel:   section.EraLabel,
			HeaderText: section.HeaderText,
			Title:      section.Title,
		})
	}
	return out
}

// NavIDs returns the navigation sections present in the story.
func (s Story) NavIDs() []string {
	var out []string
	for _, id := range NavSectionIDs {
		if _, ok := s.Section(id); ok {
			out = append(out, id)
		}
	}
	return out
}
