// Package layout places classified speech records on the horizontal time
// axis.
//
// Records are grouped into one band per year. Promise records stack upward
// from a shared baseline and obligation records stack downward, with
// citizen-directed records nearest the baseline in both directions.
package layout

// Type is the rhetorical type of a record.
type Type string

const (
	TypePromise    Type = "promise"
	TypeObligation Type = "obligation"
	TypeNone       Type = "none"
)

// Value is the audience a record is addressed to.
type Value string

const (
	ValueCitizen Value = "citizen"
	ValueFirm    Value = "firm"
	ValueNone    Value = "none"
)

// Record is one classified paragraph. X and Y are only meaningful when
// Positioned is true; both are always written together by Compute.
type Record struct {
	// Seq is the record's index in the eligible record sequence. Compute
	// assigns it, and ties during hit-testing resolve toward lower Seq.
	Seq          int     `json:"seq"`
	Year         int     `json:"year"`
	Text         string  `json:"text"`
	SpeakerName  string  `json:"speaker_name"`
	PrimaryType  Type    `json:"primary_type"`
	PrimaryValue Value   `json:"primary_value"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Positioned   bool    `json:"positioned"`
}

// Eligible reports whether the record takes part in layout and interaction.
func (r Record) Eligible() bool {
	if r.PrimaryValue != ValueCitizen && r.PrimaryValue != ValueFirm {
		return false
	}
	return r.PrimaryType == TypePromise || r.PrimaryType == TypeObligation
}

func (r *Record) place(x, y float64) {
	r.X = x
	r.Y = y
	r.Positioned = true
}

func (r *Record) clearPosition() {
	r.X = 0
	r.Y = 0
	r.Positioned = false
}

// baselineRank orders records within a class: citizen first, then firm.
func baselineRank(v Value) int {
	if v == ValueCitizen {
		return 0
	}
	return 1
}
