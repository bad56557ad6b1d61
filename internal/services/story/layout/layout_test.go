package layout

import (
	"math"
	"testing"

	"github.com/louisbranch/budgetstory/internal/services/story/viewport"
)

func makeRecords(year int, n int, typ Type, value Value) []Record {
	out := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Record{Year: year, PrimaryType: typ, PrimaryValue: value, Text: "paragraph"})
	}
	return out
}

func mixedCorpus() []Record {
	var records []Record
	for year := 1965; year <= 2026; year += 3 {
		count := 1 + (year % 9)
		for i := 0; i < count; i++ {
			typ := TypePromise
			if i%3 == 0 {
				typ = TypeObligation
			}
			value := ValueFirm
			if i%2 == 1 {
				value = ValueCitizen
			}
			records = append(records, Record{Year: year, PrimaryType: typ, PrimaryValue: value})
		}
	}
	return records
}

func TestComputeBandsFitAndAscend(t *testing.T) {
	t.Parallel()

	for _, width := range []float64{1440, 760, 375} {
		cfg := viewport.ConfigFor(width, 900)
		result := Compute(mixedCorpus(), cfg)
		if result.Status != StatusOK {
			t.Fatalf("width %v: Status = %s, want ok", width, result.Status)
		}
		available, _ := cfg.DrawingArea()
		sum := 0.0
		for i, band := range result.Bands {
			sum += band.Width
			if band.Width <= 0 {
				t.Fatalf("width %v: band %d width = %v, want > 0", width, band.Year, band.Width)
			}
			if i > 0 {
				prev := result.Bands[i-1]
				if band.Start <= prev.Start {
					t.Fatalf("width %v: band %d start %v not after %v", width, band.Year, band.Start, prev.Start)
				}
				if band.Start < prev.End {
					t.Fatalf("width %v: band %d overlaps previous", width, band.Year)
				}
				if band.Year <= prev.Year {
					t.Fatalf("width %v: years not ascending: %d after %d", width, band.Year, prev.Year)
				}
			}
		}
		if sum > available+1e-9 {
			t.Fatalf("width %v: band widths sum %v exceeds available %v", width, sum, available)
		}
		last := result.Bands[len(result.Bands)-1]
		gap := YearGap * (available / rawTotal(mixedCorpus(), cfg))
		if math.Abs(last.End+gap-(cfg.Margin.Left+available)) > 1e-6 {
			t.Fatalf("width %v: bands do not span the drawing area: end %v", width, last.End)
		}
	}
}

func rawTotal(records []Record, cfg viewport.Config) float64 {
	counts := map[int]int{}
	for _, record := range records {
		counts[record.Year]++
	}
	total := 0.0
	for _, count := range counts {
		cols := count
		if cols > cfg.MaxCols {
			cols = cfg.MaxCols
		}
		total += float64(cols)*cfg.Pitch() + YearGap
	}
	return total
}

func TestComputeEveryEligibleRecordPositioned(t *testing.T) {
	t.Parallel()

	records := mixedCorpus()
	records = append(records, Record{Year: 1990, PrimaryType: TypeNone, PrimaryValue: ValueNone})
	result := Compute(records, viewport.ConfigFor(1280, 800))
	if len(result.Records) != len(records)-1 {
		t.Fatalf("records = %d, want %d", len(result.Records), len(records)-1)
	}
	for i, record := range result.Records {
		if !record.Positioned {
			t.Fatalf("record %d not positioned", i)
		}
		if record.Seq != i {
			t.Fatalf("record %d Seq = %d", i, record.Seq)
		}
		band, ok := result.Band(record.Year)
		if !ok {
			t.Fatalf("record %d has no band for %d", i, record.Year)
		}
		if record.X < band.Start || record.X > band.End {
			t.Fatalf("record %d x %v outside band [%v, %v]", i, record.X, band.Start, band.End)
		}
	}
	for _, record := range records {
		if record.Positioned {
			t.Fatal("input records were modified")
		}
	}
}

func TestComputeDivergesAroundBaseline(t *testing.T) {
	t.Parallel()

	for _, width := range []float64{1440, 700, 400} {
		result := Compute(mixedCorpus(), viewport.ConfigFor(width, 800))
		for _, record := range result.Records {
			switch record.PrimaryType {
			case TypePromise:
				if record.Y >= result.Baseline {
					t.Fatalf("width %v: promise y %v not above baseline %v", width, record.Y, result.Baseline)
				}
			case TypeObligation:
				if record.Y <= result.Baseline {
					t.Fatalf("width %v: obligation y %v not below baseline %v", width, record.Y, result.Baseline)
				}
			}
		}
	}
}

func TestComputeCitizenRowsNearBaseline(t *testing.T) {
	t.Parallel()

	var records []Record
	// Interleave firm and citizen so input order alone would mix rows.
	for i := 0; i < 20; i++ {
		value := ValueFirm
		if i%2 == 0 {
			value = ValueCitizen
		}
		records = append(records, Record{Year: 2000, PrimaryType: TypePromise, PrimaryValue: value})
		records = append(records, Record{Year: 2000, PrimaryType: TypeObligation, PrimaryValue: value})
	}
	records = append(records, makeRecords(2001, 3, TypePromise, ValueFirm)...)

	for _, width := range []float64{1440, 600, 320} {
		result := Compute(records, viewport.ConfigFor(width, 800))
		pitch := result.DotSize + result.DotGap
		for _, typ := range []Type{TypePromise, TypeObligation} {
			maxCitizenRow, minFirmRow := -1, math.MaxInt
			for _, record := range result.Records {
				if record.Year != 2000 || record.PrimaryType != typ {
					continue
				}
				row := int(math.Round((math.Abs(record.Y-result.Baseline) - result.DotSize) / pitch))
				if record.PrimaryValue == ValueCitizen && row > maxCitizenRow {
					maxCitizenRow = row
				}
				if record.PrimaryValue == ValueFirm && row < minFirmRow {
					minFirmRow = row
				}
			}
			if maxCitizenRow > minFirmRow {
				t.Fatalf("width %v type %s: citizen row %d beyond firm row %d", width, typ, maxCitizenRow, minFirmRow)
			}
		}
	}
}

func TestComputeEqualCountsGiveEqualSingleRowBands(t *testing.T) {
	t.Parallel()

	records := append(makeRecords(1965, 6, TypePromise, ValueCitizen), makeRecords(2026, 6, TypePromise, ValueCitizen)...)
	cfg := viewport.ConfigFor(1280, 800)
	if cfg.MaxCols != 6 {
		t.Fatalf("MaxCols = %d, want 6", cfg.MaxCols)
	}
	result := Compute(records, cfg)
	if len(result.Bands) != 2 {
		t.Fatalf("bands = %d, want 2", len(result.Bands))
	}
	if math.Abs(result.Bands[0].Width-result.Bands[1].Width) > 1e-9 {
		t.Fatalf("band widths differ: %v vs %v", result.Bands[0].Width, result.Bands[1].Width)
	}
	for _, record := range result.Records {
		if record.Y != result.Baseline-result.DotSize {
			t.Fatalf("record in year %d not on first row: y = %v", record.Year, record.Y)
		}
	}
}

func TestComputeEmptyInputs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		records []Record
		width   float64
	}{
		{name: "no records", records: nil, width: 1280},
		{name: "only ineligible records", records: makeRecords(1990, 4, TypeNone, ValueNone), width: 1280},
		{name: "no width", records: mixedCorpus(), width: 20},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			result := Compute(tc.records, viewport.ConfigFor(tc.width, 800))
			if result.Status != StatusEmpty {
				t.Fatalf("Status = %s, want empty", result.Status)
			}
			if !result.Empty() || len(result.Records) != 0 {
				t.Fatalf("bands = %d records = %d, want none", len(result.Bands), len(result.Records))
			}
			if _, _, ok := result.YearSpan(); ok {
				t.Fatal("YearSpan() ok = true, want false")
			}
		})
	}
}

func TestBandsCovering(t *testing.T) {
	t.Parallel()

	result := Compute(mixedCorpus(), viewport.ConfigFor(1280, 800))
	minStart, maxEnd, ok := result.BandsCovering(1970, 1990)
	if !ok {
		t.Fatal("BandsCovering() ok = false, want true")
	}
	first, _ := result.Band(1971)
	last, _ := result.Band(1989)
	if minStart != first.Start || maxEnd != last.End {
		t.Fatalf("BandsCovering() = [%v, %v], want [%v, %v]", minStart, maxEnd, first.Start, last.End)
	}
	if _, _, ok := result.BandsCovering(1800, 1900); ok {
		t.Fatal("BandsCovering(out of range) ok = true, want false")
	}
}

func TestYearLabelsSitBelowLowestRecord(t *testing.T) {
	t.Parallel()

	records := append(makeRecords(1965, 4, TypeObligation, ValueCitizen), makeRecords(1966, 2, TypePromise, ValueFirm)...)
	cfg := viewport.ConfigFor(1280, 800)
	result := Compute(records, cfg)
	if len(result.Labels) != 1 || result.Labels[0].Year != 1965 {
		t.Fatalf("labels = %+v, want one label for 1965", result.Labels)
	}
	lowest := 0.0
	for _, record := range result.Records {
		if record.Year == 1965 && record.Y > lowest {
			lowest = record.Y
		}
	}
	want := lowest + cfg.DotSize/2 + cfg.YearLabelPadding
	if result.Labels[0].Y != want {
		t.Fatalf("label y = %v, want %v", result.Labels[0].Y, want)
	}
}
