package extract

import (
	"strings"
	"testing"

	"carharvest-engine/internal/domain"
)

const origin = "https://www.tc-v.com"

const fullListing = `<html><body><ul>
<li class="car-item">
  <a href="/used_car/mazda/rx-7/12345.html">Mazda RX-7 Type RS</a>
  <p class="price">US$ 3,200</p>
  <p class="grade">Type RS</p>
  <div class="spec">1308cc 1999 model 86,000 km 5MT 2WD</div>
</li>
</ul></body></html>`

func TestExtractFullListing(t *testing.T) {
	recs := Extract(fullListing, 150.0, "mazda", "rx-7", origin)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	r := recs[0]

	if r.Price != 480 {
		t.Errorf("price = %d, want 480 (3200 * 150 / 1000 truncated)", r.Price)
	}
	if r.Year != 1999 {
		t.Errorf("year = %d, want 1999", r.Year)
	}
	if r.Mileage != 86000 {
		t.Errorf("mileage = %d, want 86000", r.Mileage)
	}
	if r.EngineCapacity != 1308 {
		t.Errorf("engine = %d, want 1308", r.EngineCapacity)
	}
	if r.Transmission != domain.TransmissionManual {
		t.Errorf("transmission = %q, want mt", r.Transmission)
	}
	if r.Drive != domain.DriveTwoWheel {
		t.Errorf("drive = %q, want 2wd", r.Drive)
	}
	if r.Grade != "Type RS" {
		t.Errorf("grade = %q, want Type RS", r.Grade)
	}
	if r.Mark != "mazda" || r.Model != "rx-7" {
		t.Errorf("mark/model = %q/%q", r.Mark, r.Model)
	}
	if r.Link != origin+"/used_car/mazda/rx-7/12345.html" {
		t.Errorf("link = %q, relative href not absolutized", r.Link)
	}
}

func TestYearNotConfusedByEngineSize(t *testing.T) {
	page := `<div class="car-item"><span>US$ 2,000</span> 1995cc 2010 model</div>`
	recs := Extract(page, 150.0, "m", "m", origin)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Year != 2010 {
		t.Errorf("year = %d, want 2010 (1995cc must not match)", recs[0].Year)
	}
	if recs[0].EngineCapacity != 1995 {
		t.Errorf("engine = %d, want 1995", recs[0].EngineCapacity)
	}
}

func TestPriceFromTextFallback(t *testing.T) {
	// No price-classed element at all; the US$ pattern over flattened text
	// is the second strategy.
	page := `<div class="car-item"><span>2005</span><span>US$ 1,000</span></div>`
	recs := Extract(page, 150.0, "m", "m", origin)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Price != 150 {
		t.Errorf("price = %d, want 150", recs[0].Price)
	}
}

func TestPriceElementWinsOverText(t *testing.T) {
	page := `<div class="car-item"><p class="fob-price">US$ 5,000</p> US$ 1,000 2005</div>`
	recs := Extract(page, 150.0, "m", "m", origin)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Price != 750 {
		t.Errorf("price = %d, want 750 (labeled element wins)", recs[0].Price)
	}
}

func TestDefaultsWhenFieldsAbsent(t *testing.T) {
	page := `<div class="car-item">US$ 800 2012</div>`
	recs := Extract(page, 150.0, "m", "m", origin)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	r := recs[0]
	if r.Mileage != 0 || r.EngineCapacity != 0 {
		t.Errorf("mileage/engine = %d/%d, want 0/0", r.Mileage, r.EngineCapacity)
	}
	if r.Transmission != domain.TransmissionAutomatic {
		t.Errorf("transmission = %q, want at default", r.Transmission)
	}
	if r.Drive != domain.DriveTwoWheel {
		t.Errorf("drive = %q, want 2wd default", r.Drive)
	}
	if r.Grade != domain.GradeUnknown {
		t.Errorf("grade = %q, want Unknown", r.Grade)
	}
	if r.Link != "" {
		t.Errorf("link = %q, want empty", r.Link)
	}
}

func TestFourWheelDriveKeywords(t *testing.T) {
	for _, kw := range []string{"4WD", "AWD", "awd"} {
		page := `<div class="car-item">US$ 900 2015 ` + kw + `</div>`
		recs := Extract(page, 150.0, "m", "m", origin)
		if len(recs) != 1 || recs[0].Drive != domain.DriveFourWheel {
			t.Errorf("keyword %q not detected as 4wd", kw)
		}
	}
}

func TestInvalidContainersSkipped(t *testing.T) {
	page := `<ul>
<li class="car-item">no price here 2001</li>
<li class="car-item">US$ 3,000 but no year token</li>
<li class="car-item">US$ 2,500 2003</li>
</ul>`
	recs := Extract(page, 150.0, "m", "m", origin)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1 (price-less and year-less skipped)", len(recs))
	}
	if recs[0].Year != 2003 {
		t.Errorf("wrong survivor: %+v", recs[0])
	}
}

func TestFallbackContainerMatch(t *testing.T) {
	// No car-item anywhere; the looser product/item/listing match kicks in.
	page := `<div class="product-box">US$ 4,000 2008 12,345 km</div>`
	recs := Extract(page, 150.0, "m", "m", origin)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1 via fallback selector", len(recs))
	}
	if recs[0].Mileage != 12345 {
		t.Errorf("mileage = %d, want 12345", recs[0].Mileage)
	}
}

func TestEmptyAndGarbageMarkup(t *testing.T) {
	for _, page := range []string{
		"",
		"<html><body><p>maintenance page</p></body></html>",
		"<<<<not html at all>>>>",
		strings.Repeat("<div>", 50),
	} {
		if recs := Extract(page, 150.0, "m", "m", origin); len(recs) != 0 {
			t.Errorf("Extract(%.20q...) = %d records, want 0", page, len(recs))
		}
	}
}

func TestAbsoluteLinkKept(t *testing.T) {
	page := `<div class="car-item"><a href="https://elsewhere.example/x">x</a> US$ 700 2019</div>`
	recs := Extract(page, 150.0, "m", "m", origin)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Link != "https://elsewhere.example/x" {
		t.Errorf("absolute link rewritten: %q", recs[0].Link)
	}
}

func TestFlattenedTextSeparatesElements(t *testing.T) {
	// Year and unit tokens sit in adjacent elements; flattening must not
	// fuse them into one unmatched blob.
	page := `<div class="car-item"><span>US$ 600</span><span>2014</span><span>30,000</span><span>km</span></div>`
	recs := Extract(page, 150.0, "m", "m", origin)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Year != 2014 {
		t.Errorf("year = %d, want 2014", recs[0].Year)
	}
	if recs[0].Mileage != 30000 {
		t.Errorf("mileage = %d, want 30000", recs[0].Mileage)
	}
}
