package hover

import "github.com/louisbranch/budgetstory/internal/services/story/layout"

// Category is the tag shown on the detail panel.
type Category struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// Categories lists the four record categories in legend order.
var Categories = []Category{
	{Key: "promise_citizen", Label: "Promises to you", Color: "#C44F4F"},
	{Key: "promise_firm", Label: "Promises to firms", Color: "#E89898"},
	{Key: "obligation_citizen", Label: "Asks of you", Color: "#2B4460"},
	{Key: "obligation_firm", Label: "Asks of firms", Color: "#6B8CAE"},
}

// CategoryFor returns the tag for record. ok is false for records outside
// the four categories.
func CategoryFor(record layout.Record) (Category, bool) {
	key := string(record.PrimaryType) + "_" + string(record.PrimaryValue)
	for _, category := range Categories {
		if category.Key == key {
			return category, true
		}
	}
	return Category{}, false
}
