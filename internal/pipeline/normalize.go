package pipeline

import (
	"carbonequip/internal"
	"carbonequip/internal/util"
)

// Candidate keys per canonical attribute, highest priority first. The
// scraper renamed fields several times; add new aliases here only. Each list
// ends with the CanonicalRow JSON name so a serialized row normalizes back to
// itself.
var (
	powerKeys   = []string{"power", "power_source", "powerSource"}
	oemKeys     = []string{"oem", "OEM"}
	countryKeys = []string{"country"}
	classKeys   = []string{"class", "class_tons", "class_t", "classTons"}
	engineKeys  = []string{"engine", "engine_power_kw", "motor_kw", "enginePowerKw"}
	bucketKeys  = []string{"bucket", "bucket_size_m3", "bucket_m3", "bucketVolumeM3"}
	bladeKeys   = []string{"blade", "blade_size", "bladeDisplay"}
	typeKeys    = []string{"type", "type_hint", "equipmentType"}
	yearKeys    = []string{"year", "year_of_release", "release_year"}
	statusKeys  = []string{"status", "development_status"}
	modelKeys   = []string{"model", "model_number"}
	linkKeys    = []string{"link", "sourceLink"}
	dateKeys    = []string{"link_date", "date", "linkDate"}
	tonnageKeys = []string{"tonnage", "tonnage_t", "operating_weight_t", "tonnageTons"}

	bladeWidthKeys  = []string{"blade_w_m"}
	bladeHeightKeys = []string{"blade_h_m"}
)

// NormalizeRecord projects one raw record onto the canonical row shape. It
// never fails: attributes without a usable candidate are "".
func NormalizeRecord(rec internal.RawRecord) internal.CanonicalRow {
	equipmentType := util.Resolve(rec, typeKeys, "")
	return internal.CanonicalRow{
		PowerSource:    util.Resolve(rec, powerKeys, ""),
		OEM:            util.Resolve(rec, oemKeys, ""),
		Country:        util.Resolve(rec, countryKeys, ""),
		ClassTons:      util.Resolve(rec, classKeys, ""),
		EnginePowerKW:  util.Resolve(rec, engineKeys, ""),
		BladeDisplay:   BladeDisplay(rec),
		BucketVolumeM3: util.Resolve(rec, bucketKeys, ""),
		EquipmentType:  equipmentType,
		TypeNormalized: ClassifyType(equipmentType),
		Year:           util.Resolve(rec, yearKeys, ""),
		Status:         util.Resolve(rec, statusKeys, ""),
		Model:          util.Resolve(rec, modelKeys, ""),
		SourceLink:     util.Resolve(rec, linkKeys, ""),
		LinkDate:       util.Resolve(rec, dateKeys, ""),
		TonnageTons:    util.Resolve(rec, tonnageKeys, ""),
	}
}

func NormalizeRecords(records []internal.RawRecord) []internal.CanonicalRow {
	out := make([]internal.CanonicalRow, 0, len(records))
	for _, rec := range records {
		out = append(out, NormalizeRecord(rec))
	}
	return out
}

// BladeDisplay prefers a pre-formatted blade field and otherwise composes
// "W m × H m" from the metric dimensions. Width alone renders "W m"; a
// height without a width is not displayable and yields "".
func BladeDisplay(rec internal.RawRecord) string {
	if v, ok := util.Lookup(rec, bladeKeys); ok {
		return v
	}
	width, hasWidth := util.Lookup(rec, bladeWidthKeys)
	if !hasWidth {
		return ""
	}
	if height, ok := util.Lookup(rec, bladeHeightKeys); ok {
		return width + " m × " + height + " m"
	}
	return width + " m"
}
