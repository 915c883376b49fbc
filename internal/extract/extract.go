package extract

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	pdf "github.com/ledongthuc/pdf"
	"golang.org/x/net/html"

	"carbonequip/internal"
	"carbonequip/internal/util"
)

// Seed carries what the operator knows about a source before extraction.
type Seed struct {
	OEM               string   `yaml:"oem"`
	Country           string   `yaml:"country"`
	TypeHint          string   `yaml:"type_hint"`
	DevelopmentStatus string   `yaml:"development_status"`
	StartURLs         []string `yaml:"start_urls"`
}

type labelPattern struct {
	label string
	re    *regexp.Regexp
}

var powerPatterns = []labelPattern{
	{label: "Hydrogen", re: regexp.MustCompile(`(?i)\b(hydrogen|fuel[- ]?cell|h2)\b`)},
	{label: "Hybrid", re: regexp.MustCompile(`(?i)\b(hybrid|e[- ]?drive)\b`)},
	{label: "Battery", re: regexp.MustCompile(`(?i)\b(battery|bev|all-?electric|zero[- ]?emission)\b`)},
	{label: "Methanol/Other", re: regexp.MustCompile(`(?i)\b(methanol|ethanol|bio[- ]?fuel)\b`)},
}

var typePatterns = []labelPattern{
	{label: "Excavator", re: regexp.MustCompile(`(?i)\bexcavators?\b`)},
	{label: "Wheel loader", re: regexp.MustCompile(`(?i)\bwheel\s*loaders?\b`)},
	{label: "Bulldozer", re: regexp.MustCompile(`(?i)\b(bulldozer|dozer)s?\b`)},
	{label: "Grader", re: regexp.MustCompile(`(?i)\bgraders?\b`)},
	{label: "Dump truck", re: regexp.MustCompile(`(?i)\b(dump|haul|mining)\s*trucks?\b`)},
	{label: "Backhoe", re: regexp.MustCompile(`(?i)\bbackhoe(\s*loader)?\b`)},
}

var (
	modelHintPattern    = regexp.MustCompile(`(?i:model|series|code|型番|モデル)[:\s\-]*([A-Z0-9][A-Z0-9\-]{1,})`)
	modelHeadingPattern = regexp.MustCompile(`\b([A-Z]{1,5}[0-9]{1,4}[A-Z0-9\-]*)\b`)
)

func DetectPower(text string) string {
	for _, p := range powerPatterns {
		if p.re.MatchString(text) {
			return p.label
		}
	}
	return ""
}

func DetectType(text, hint string) string {
	for _, p := range typePatterns {
		if p.re.MatchString(text) {
			return p.label
		}
	}
	return strings.TrimSpace(hint)
}

// ExtractAll pulls the technical fields out of one page. doc may be nil for
// non-HTML sources. Structured data wins over headings, which win over
// regex matches on the visible text.
func ExtractAll(text string, doc *goquery.Document, typeHint string) internal.RawRecord {
	m := util.ParseMeasures(text)
	ld := structuredData(doc)

	model := util.FirstNonEmpty(ld.Model, headingModel(doc), modelHint(text))

	return internal.RawRecord{
		"power":           DetectPower(text),
		"type":            DetectType(text, typeHint),
		"engine_power_kw": util.FirstNonEmpty(ld.EngineKW, m.EngineKW),
		"bucket_size_m3":  util.FirstNonEmpty(ld.BucketM3, m.BucketM3),
		"class_tons":      m.ClassTons,
		"blade_size":      m.BladeSize,
		"model_number":    model,
		"year_of_release": m.Year,
	}
}

// BuildRecord combines seed knowledge, extracted fields and provenance into
// a dataset record.
func BuildRecord(text string, doc *goquery.Document, seed Seed, link string, seenAt time.Time) internal.RawRecord {
	rec := ExtractAll(text, doc, seed.TypeHint)
	rec["oem"] = strings.TrimSpace(seed.OEM)
	rec["country"] = strings.TrimSpace(seed.Country)
	rec["development_status"] = strings.TrimSpace(seed.DevelopmentStatus)
	rec["link"] = link
	rec["link_date"] = ""
	rec["last_seen_utc"] = seenAt.UTC().Format("2006-01-02T15:04:05Z")
	return rec
}

type ldFields struct {
	Model    string
	EngineKW string
	BucketM3 string
}

// structuredData reads schema.org Product blocks, which some OEMs publish
// with the datasheet as additionalProperty entries.
func structuredData(doc *goquery.Document) ldFields {
	out := ldFields{}
	if doc == nil {
		return out
	}
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var payload any
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			return
		}
		switch t := payload.(type) {
		case []any:
			for _, item := range t {
				if m, ok := item.(map[string]any); ok {
					mergeLD(&out, m)
				}
			}
		case map[string]any:
			mergeLD(&out, t)
		}
	})
	return out
}

func mergeLD(out *ldFields, node map[string]any) {
	if out.Model == "" {
		for _, key := range []string{"name", "model", "sku"} {
			if v, ok := util.ScalarText(node[key]); ok {
				out.Model = v
				break
			}
		}
	}
	props, _ := node["additionalProperty"].([]any)
	for _, p := range props {
		prop, ok := p.(map[string]any)
		if !ok {
			continue
		}
		name, _ := util.ScalarText(prop["name"])
		value, _ := util.ScalarText(prop["value"])
		if out.EngineKW == "" && util.ContainsFold(value, "kw") {
			out.EngineKW = util.FindKW(value)
		}
		if out.BucketM3 == "" && util.ContainsAnyFold(name, "bucket", "capacity") {
			out.BucketM3 = util.FindM3(value)
		}
	}
}

func headingModel(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	heading := util.NormalizeSpaces(doc.Find("h1, h2, h3").First().Text())
	if m := modelHeadingPattern.FindStringSubmatch(heading); len(m) > 1 {
		return m[1]
	}
	return ""
}

func modelHint(text string) string {
	if m := modelHintPattern.FindStringSubmatch(text); len(m) > 1 {
		return strings.Trim(m[1], "-")
	}
	return ""
}

// ParseHTML returns the document and its visible text, one text node per
// line. Scripts and styles are skipped for the text but stay in the document
// for structured data.
func ParseHTML(content []byte) (*goquery.Document, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, "", err
	}
	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	parts := []string{}
	for _, n := range root.Nodes {
		collectText(n, &parts)
	}
	return doc, strings.Join(parts, "\n"), nil
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		}
	}
	if n.Type == html.TextNode {
		if text := util.NormalizeSpaces(n.Data); text != "" {
			*parts = append(*parts, text)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

func ParsePDF(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	lines := []string{}
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		lines = append(lines, splitLines(text)...)
	}
	return strings.Join(lines, "\n"), nil
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
