// Package extract turns one page of search-results markup into structured
// listing records. The source's layout drifts, so discovery works through an
// ordered chain of looser and looser matches, and a malformed container only
// ever costs itself, never the page.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"carharvest-engine/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	classCarItem  = regexp.MustCompile(`(?i)car-item`)
	classFallback = regexp.MustCompile(`(?i)(product|item|listing)`)
	classPrice    = regexp.MustCompile(`(?i)(price|fob)`)
	classGrade    = regexp.MustCompile(`(?i)grade`)

	rePriceUSD = regexp.MustCompile(`US\$\s*([\d,]+)`)
	reNonDigit = regexp.MustCompile(`[^\d]`)
	reYear     = regexp.MustCompile(`\b(198\d|199\d|200\d|201\d|202\d)\b`)
	reMileage  = regexp.MustCompile(`(?i)([\d,]+)\s*km\b`)
	reEngine   = regexp.MustCompile(`(?i)([\d,]+)\s*cc\b`)
	reManual   = regexp.MustCompile(`(?i)\b(MT|Manual|F5|F6|5MT|6MT)\b`)
	reFourWD   = regexp.MustCompile(`(?i)\b(4WD|AWD)\b`)
)

// Extract parses markup into zero or more valid listing records. Pure: no
// I/O, no retained state. Mark and model come from the caller's URL context,
// not from the page. A page with no recognizable containers yields an empty
// slice, not an error.
func Extract(markup string, rate float64, mark, model, origin string) []domain.ListingRecord {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var out []domain.ListingRecord
	containers(doc).Each(func(_ int, s *goquery.Selection) {
		if rec, ok := oneListing(s, rate, mark, model, origin); ok {
			out = append(out, rec)
		}
	})
	return out
}

// containers finds candidate listing chunks: the source's own car-item class
// first, then a looser product/item/listing match that survives minor
// layout drift.
func containers(doc *goquery.Document) *goquery.Selection {
	sel := doc.Find("li,div").FilterFunction(classMatches(classCarItem))
	if sel.Length() == 0 {
		sel = doc.Find("div").FilterFunction(classMatches(classFallback))
	}
	return sel
}

func classMatches(re *regexp.Regexp) func(int, *goquery.Selection) bool {
	return func(_ int, s *goquery.Selection) bool {
		c, ok := s.Attr("class")
		return ok && re.MatchString(c)
	}
}

func oneListing(s *goquery.Selection, rate float64, mark, model, origin string) (rec domain.ListingRecord, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	// Flatten once; every regex probe below runs over this.
	text := flattenText(s)

	rec = domain.ListingRecord{
		Price:        price(s, text, rate),
		Year:         year(text),
		Mileage:      unitNumber(reMileage, text),
		Transmission: domain.TransmissionAutomatic,
		Drive:        domain.DriveTwoWheel,
		Grade:        domain.GradeUnknown,
		Mark:         mark,
		Model:        model,
	}
	rec.EngineCapacity = unitNumber(reEngine, text)
	if reManual.MatchString(text) {
		rec.Transmission = domain.TransmissionManual
	}
	if reFourWD.MatchString(text) {
		rec.Drive = domain.DriveFourWheel
	}
	if g := strings.TrimSpace(s.Find("p").FilterFunction(classMatches(classGrade)).First().Text()); g != "" {
		rec.Grade = g
	}
	if href, found := s.Find("a[href]").First().Attr("href"); found && href != "" {
		if !strings.HasPrefix(href, "http") {
			href = origin + href
		}
		rec.Link = href
	}

	return rec, rec.Valid()
}

// price runs the ordered strategy chain: a price/fob-labeled sub-element
// (digits only) first, then the US$ pattern over the flattened text. The USD
// amount is converted and rescaled to thousands of JPY, truncating.
func price(s *goquery.Selection, text string, rate float64) int {
	usd := 0

	if tag := s.Find("p,span,div").FilterFunction(classMatches(classPrice)).First(); tag.Length() > 0 {
		if digits := reNonDigit.ReplaceAllString(tag.Text(), ""); digits != "" {
			usd, _ = strconv.Atoi(digits)
		}
	}
	if usd == 0 {
		if m := rePriceUSD.FindStringSubmatch(text); m != nil {
			usd, _ = strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		}
	}

	if usd > 0 {
		return int(float64(usd) * rate / 1000)
	}
	return 0
}

// year picks the first plausible 4-digit model year. Word boundaries keep it
// from biting into unit-suffixed numbers like "1995cc".
func year(text string) int {
	m := reYear.FindString(text)
	if m == "" {
		return 0
	}
	y, _ := strconv.Atoi(m)
	return y
}

// unitNumber extracts the first number immediately followed by the regex's
// unit suffix, with thousands separators stripped. Zero when absent.
func unitNumber(re *regexp.Regexp, text string) int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	return n
}

// flattenText walks the container once and joins its text nodes with single
// spaces, so tokens from adjacent elements never fuse together.
func flattenText(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		appendText(&b, n)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func appendText(b *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		appendText(b, c)
	}
}
