package signal

// InfrastructureSubjectCode is the wire code of an infrastructure subject.
type InfrastructureSubjectCode string

const (
	SubjectUnspecified    InfrastructureSubjectCode = "00"
	SubjectBuilding       InfrastructureSubjectCode = "10"
	SubjectHospital       InfrastructureSubjectCode = "11"
	SubjectSchool         InfrastructureSubjectCode = "12"
	SubjectReligious      InfrastructureSubjectCode = "13"
	SubjectCulturalSite   InfrastructureSubjectCode = "14"
	SubjectShelter        InfrastructureSubjectCode = "15"
	SubjectBridge         InfrastructureSubjectCode = "20"
	SubjectRoad           InfrastructureSubjectCode = "21"
	SubjectRailway        InfrastructureSubjectCode = "22"
	SubjectPort           InfrastructureSubjectCode = "23"
	SubjectAirfield       InfrastructureSubjectCode = "24"
	SubjectPowerPlant     InfrastructureSubjectCode = "30"
	SubjectPowerLine      InfrastructureSubjectCode = "31"
	SubjectDam            InfrastructureSubjectCode = "32"
	SubjectWaterSupply    InfrastructureSubjectCode = "40"
	SubjectFuelStorage    InfrastructureSubjectCode = "41"
	SubjectCommunications InfrastructureSubjectCode = "50"
)

var subjectLabels = map[InfrastructureSubjectCode]string{
	SubjectUnspecified:    "Unspecified",
	SubjectBuilding:       "Building",
	SubjectHospital:       "Hospital",
	SubjectSchool:         "School",
	SubjectReligious:      "Religious",
	SubjectCulturalSite:   "CulturalSite",
	SubjectShelter:        "Shelter",
	SubjectBridge:         "Bridge",
	SubjectRoad:           "Road",
	SubjectRailway:        "Railway",
	SubjectPort:           "Port",
	SubjectAirfield:       "Airfield",
	SubjectPowerPlant:     "PowerPlant",
	SubjectPowerLine:      "PowerLine",
	SubjectDam:            "Dam",
	SubjectWaterSupply:    "WaterSupply",
	SubjectFuelStorage:    "FuelStorage",
	SubjectCommunications: "Communications",
}

// SubjectLabel maps a wire code back to its name. Unknown codes yield "".
func SubjectLabel(code string) string {
	return subjectLabels[InfrastructureSubjectCode(code)]
}

func (c InfrastructureSubjectCode) String() string {
	if l, ok := subjectLabels[c]; ok {
		return l
	}
	return string(c)
}
