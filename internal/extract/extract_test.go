package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productPage = `<html><head>
<script type="application/ld+json">{"@type":"Product","name":"EC230 Electric","additionalProperty":[{"name":"Engine power","value":"120 kW"},{"name":"Bucket capacity","value":"1.2 m3"}]}</script>
<style>.sheet{color:red}</style>
</head><body>
<h1>EC230 Electric</h1>
<p>The battery <b>excavator</b> weighs 23 t.</p>
<script>var promo = "999 kW";</script>
<p>Launched 2023.</p>
</body></html>`

func TestParseHTMLSkipsScripts(t *testing.T) {
	doc, text, err := ParseHTML([]byte(productPage))
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Contains(t, text, "excavator")
	assert.Contains(t, text, "The battery")
	assert.NotContains(t, text, "999")
	assert.NotContains(t, text, "color:red")
}

func TestExtractAllFromHTML(t *testing.T) {
	doc, text, err := ParseHTML([]byte(productPage))
	require.NoError(t, err)

	rec := ExtractAll(text, doc, "")
	assert.Equal(t, "Battery", rec["power"])
	assert.Equal(t, "Excavator", rec["type"])
	assert.Equal(t, "EC230 Electric", rec["model_number"])
	assert.Equal(t, "120", rec["engine_power_kw"])
	assert.Equal(t, "1.2", rec["bucket_size_m3"])
	assert.Equal(t, "23", rec["class_tons"])
	assert.Equal(t, "2023", rec["year_of_release"])
}

func TestExtractAllFromPlainText(t *testing.T) {
	text := "Komatsu HB365LC-3 hybrid excavator\nModel: HB365LC-3\nEngine 202 kW, bucket 1.9 m³, operating weight 36 tonnes\nReleased 2019"
	rec := ExtractAll(text, nil, "")
	assert.Equal(t, "Hybrid", rec["power"])
	assert.Equal(t, "Excavator", rec["type"])
	assert.Equal(t, "HB365LC-3", rec["model_number"])
	assert.Equal(t, "202", rec["engine_power_kw"])
	assert.Equal(t, "1.9", rec["bucket_size_m3"])
	assert.Equal(t, "36", rec["class_tons"])
	assert.Equal(t, "2019", rec["year_of_release"])
}

func TestDetectPower(t *testing.T) {
	cases := map[string]string{
		"hydrogen hybrid concept":  "Hydrogen",
		"Fuel-cell haul truck":     "Hydrogen",
		"E-Drive wheel loader":     "Hybrid",
		"BEV dozer":                "Battery",
		"all-electric grader":      "Battery",
		"runs on biofuel":          "Methanol/Other",
		"Tier 4 diesel excavator":  "",
		"H2O cooled diesel engine": "",
	}
	for text, want := range cases {
		assert.Equal(t, want, DetectPower(text), text)
	}
}

func TestDetectTypeFallsBackToHint(t *testing.T) {
	assert.Equal(t, "Dump truck", DetectType("The new mining truck range", "Excavator"))
	assert.Equal(t, "Backhoe", DetectType("backhoe loader with battery pack", ""))
	assert.Equal(t, "Crusher", DetectType("mobile crushing unit", " Crusher "))
	assert.Equal(t, "", DetectType("nothing here", ""))
}

func TestBuildRecordCarriesSeed(t *testing.T) {
	seed := Seed{OEM: " Volvo CE ", Country: "Sweden", TypeHint: "Excavator", DevelopmentStatus: "Commercial"}
	seenAt := time.Date(2024, 5, 1, 10, 30, 0, 0, time.FixedZone("CEST", 2*3600))

	rec := BuildRecord("Electric machine, zero emission", nil, seed, "https://volvoce.test/ec230", seenAt)
	assert.Equal(t, "Volvo CE", rec["oem"])
	assert.Equal(t, "Sweden", rec["country"])
	assert.Equal(t, "Commercial", rec["development_status"])
	assert.Equal(t, "Excavator", rec["type"])
	assert.Equal(t, "Battery", rec["power"])
	assert.Equal(t, "https://volvoce.test/ec230", rec["link"])
	assert.Equal(t, "", rec["link_date"])
	assert.Equal(t, "2024-05-01T08:30:00Z", rec["last_seen_utc"])
}

func TestExtractFromInput(t *testing.T) {
	dir := t.TempDir()
	htmlPath := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(htmlPath, []byte(productPage), 0o644))
	textPath := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(textPath, []byte("  Hydrogen wheel loader  \r\n\r\n Model: ZW-H2 \n"), 0o644))

	rec, err := ExtractFromInput("html", htmlPath, Seed{OEM: "Volvo"})
	require.NoError(t, err)
	assert.Equal(t, "EC230 Electric", rec["model_number"])
	assert.Equal(t, "Volvo", rec["oem"])
	assert.True(t, strings.HasSuffix(rec["link"].(string), "page.html"))

	rec, err = ExtractFromInput(InputTypeFromPath(textPath), textPath, Seed{OEM: "Hitachi"})
	require.NoError(t, err)
	assert.Equal(t, "Hydrogen", rec["power"])
	assert.Equal(t, "Wheel loader", rec["type"])
	assert.Equal(t, "ZW-H2", rec["model_number"])

	_, err = ExtractFromInput("pdf", textPath, Seed{})
	assert.Error(t, err)

	_, err = ExtractFromInput("xlsx", textPath, Seed{})
	assert.EqualError(t, err, "unsupported input type: xlsx")
}

func TestInputTypeFromPath(t *testing.T) {
	assert.Equal(t, "html", InputTypeFromPath("a/B.HTM"))
	assert.Equal(t, "pdf", InputTypeFromPath("brochure.pdf"))
	assert.Equal(t, "text", InputTypeFromPath("notes"))
}
