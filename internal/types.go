package internal

// RawRecord is one entry of the machines dataset exactly as decoded from JSON.
// Keys differ between scraper generations; values are scalars (string,
// json.Number, bool) or nil.
type RawRecord map[string]any

type TypeLabel string

const (
	TypeDumpTruck   TypeLabel = "Dump truck"
	TypeBulldozer   TypeLabel = "Bulldozer"
	TypeGrader      TypeLabel = "Grader"
	TypeWheelLoader TypeLabel = "Wheel loader"
	TypeExcavator   TypeLabel = "Excavator"
	TypeBackhoe     TypeLabel = "Backhoe"
	TypeUnknown     TypeLabel = "Unknown"
)

// KnownTypes is the closed label set offered as filter toggles, in display order.
var KnownTypes = []TypeLabel{
	TypeExcavator,
	TypeWheelLoader,
	TypeBulldozer,
	TypeGrader,
	TypeDumpTruck,
	TypeBackhoe,
}

type PowerCategory string

const (
	PowerNone     PowerCategory = ""
	PowerBattery  PowerCategory = "battery"
	PowerHydrogen PowerCategory = "hydrogen"
	PowerHybrid   PowerCategory = "hybrid"
	PowerAltFuel  PowerCategory = "methanol"
)

var KnownPowers = []PowerCategory{
	PowerBattery,
	PowerHydrogen,
	PowerHybrid,
	PowerAltFuel,
}

// CanonicalRow is the display-ready projection of a RawRecord. Every field is
// always a renderable string; unresolved inputs are "".
type CanonicalRow struct {
	PowerSource    string    `json:"powerSource"`
	OEM            string    `json:"oem"`
	Country        string    `json:"country"`
	ClassTons      string    `json:"classTons"`
	EnginePowerKW  string    `json:"enginePowerKw"`
	BladeDisplay   string    `json:"bladeDisplay"`
	BucketVolumeM3 string    `json:"bucketVolumeM3"`
	EquipmentType  string    `json:"equipmentType"`
	TypeNormalized TypeLabel `json:"typeNormalized"`
	Year           string    `json:"year"`
	Status         string    `json:"status"`
	Model          string    `json:"model"`
	SourceLink     string    `json:"sourceLink"`
	LinkDate       string    `json:"linkDate"`
	TonnageTons    string    `json:"tonnageTons"`
}

// Column pairs an export header with the accessor producing its cell text.
type Column struct {
	Title    string
	Accessor func(CanonicalRow) string
}

// DisplayRow is one table row ready for the page template.
type DisplayRow struct {
	Cells      []string
	PowerClass string
	Link       string
}
