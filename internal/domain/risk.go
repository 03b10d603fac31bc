package domain

import (
	"encoding/json"
	"fmt"
)

// Device classes as written on FDA and EU submissions.
const (
	ClassI   = "Class I"
	ClassII  = "Class II"
	ClassIIa = "Class IIa"
	ClassIIb = "Class IIb"
	ClassIII = "Class III"
)

// RiskLevel is ordinal: Low < Medium < High < VeryHigh.
type RiskLevel int

const (
	RiskLevelLow RiskLevel = iota
	RiskLevelMedium
	RiskLevelHigh
	RiskLevelVeryHigh
)

var riskLevelNames = [...]string{"Low", "Medium", "High", "Very High"}

func (l RiskLevel) String() string {
	if l < RiskLevelLow || l > RiskLevelVeryHigh {
		return fmt.Sprintf("RiskLevel(%d)", int(l))
	}
	return riskLevelNames[l]
}

func (l RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *RiskLevel) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, n := range riskLevelNames {
		if n == name {
			*l = RiskLevel(i)
			return nil
		}
	}
	return fmt.Errorf("unknown risk level %q", name)
}

// DeviceAttributes are the raw flags a user enters about the device.
type DeviceAttributes struct {
	FDAClass            string `json:"fdaClass,omitempty" yaml:"fda_class"`
	EUClass             string `json:"euClass,omitempty" yaml:"eu_class"`
	IsSterile           bool   `json:"isSterile" yaml:"sterile"`
	IsMeasuring         bool   `json:"isMeasuring" yaml:"measuring"`
	HasActiveComponents bool   `json:"hasActiveComponents" yaml:"active"`
	IsDrugDevice        bool   `json:"isDrugDevice" yaml:"drug_device"`
	DeviceCategory      string `json:"deviceCategory,omitempty" yaml:"category"`
}

// RiskClassification is derived from DeviceAttributes and never edited directly.
type RiskClassification struct {
	DeviceAttributes
	Level RiskLevel `json:"riskLevel"`
}
