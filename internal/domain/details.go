package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// DishwasherDetails holds the dishwasher-specific optional fields.
type DishwasherDetails struct {
	PlaceSettings            *int     `json:"place_settings,omitempty"`
	EnergyConsumptionKWh     *float64 `json:"energy_consumption_kwh_100cycles,omitempty"`
	WaterConsumptionLiters   *float64 `json:"water_consumption_liters_cycle,omitempty"`
	DryingEfficiencyClass    string   `json:"drying_efficiency_class,omitempty"`
	NoiseClass               string   `json:"noise_class,omitempty"`
	NoiseLevelDB             *float64 `json:"noise_level_db,omitempty"`
	EcoProgramDurationMinute *int     `json:"eco_program_duration_minutes,omitempty"`
}

// WashingMachineDetails holds the washing-machine-specific optional fields.
type WashingMachineDetails struct {
	RatedCapacityKg          *float64 `json:"rated_capacity_kg,omitempty"`
	EnergyConsumptionKWh     *float64 `json:"energy_consumption_kwh_100cycles,omitempty"`
	WaterConsumptionLiters   *float64 `json:"water_consumption_liters_cycle,omitempty"`
	SpinDryingEfficiencyClas string   `json:"spin_drying_efficiency_class,omitempty"`
	NoiseClass               string   `json:"noise_class,omitempty"`
	NoiseLevelDB             *float64 `json:"noise_level_db,omitempty"`
	MaxSpinSpeedRPM          *int     `json:"max_spin_speed_rpm,omitempty"`
}

// RefrigeratorDetails holds the refrigerating-appliance-specific fields.
type RefrigeratorDetails struct {
	ApplianceType           string   `json:"appliance_type,omitempty"`
	TotalVolumeLiters       *float64 `json:"total_volume_liters,omitempty"`
	RefrigeratorVolume      *float64 `json:"refrigerator_volume_liters,omitempty"`
	FreezerVolume           *float64 `json:"freezer_volume_liters,omitempty"`
	AnnualEnergyConsumption *float64 `json:"annual_energy_consumption_kwh,omitempty"`
	NoiseClass              string   `json:"noise_class,omitempty"`
	NoiseLevelDB            *float64 `json:"noise_level_db,omitempty"`
	ClimateClass            string   `json:"climate_class,omitempty"`
	FrostFree               *bool    `json:"frost_free,omitempty"`
}

// DisplayDetails holds the electronic-display-specific fields.
type DisplayDetails struct {
	DisplayType             string   `json:"display_type,omitempty"`
	ScreenDiagonalCm        *float64 `json:"screen_diagonal_cm,omitempty"`
	ScreenDiagonalInches    *float64 `json:"screen_diagonal_inches,omitempty"`
	ResolutionHorizontal    *int     `json:"resolution_horizontal,omitempty"`
	ResolutionVertical      *int     `json:"resolution_vertical,omitempty"`
	PanelTechnology         string   `json:"panel_technology,omitempty"`
	OnModePowerW            *float64 `json:"on_mode_power_consumption_w,omitempty"`
	StandbyPowerW           *float64 `json:"standby_power_consumption_w,omitempty"`
	AnnualEnergyConsumption *float64 `json:"annual_energy_consumption_kwh,omitempty"`
}

// TyreDetails holds the tyre-specific fields.
type TyreDetails struct {
	SizeDesignation      string   `json:"tyre_size_designation,omitempty"`
	FuelEfficiencyClass  string   `json:"fuel_efficiency_class,omitempty"`
	WetGripClass         string   `json:"wet_grip_class,omitempty"`
	RollingNoiseClass    string   `json:"external_rolling_noise_class,omitempty"`
	RollingNoiseDB       *float64 `json:"external_rolling_noise_db,omitempty"`
	TyreType             string   `json:"tyre_type,omitempty"`
	SnowTyre             *bool    `json:"snow_tyre,omitempty"`
	IceTyre              *bool    `json:"ice_tyre,omitempty"`
}

// CategoryDetails is a tagged union over the category-specific field records.
// At most one arm is set; categories without a mapping leave all arms nil and
// rely on the verbatim raw payload. Stored as a JSON column.
type CategoryDetails struct {
	Dishwasher     *DishwasherDetails     `json:"dishwasher,omitempty"`
	WashingMachine *WashingMachineDetails `json:"washing_machine,omitempty"`
	Refrigerator   *RefrigeratorDetails   `json:"refrigerator,omitempty"`
	Display        *DisplayDetails        `json:"display,omitempty"`
	Tyre           *TyreDetails           `json:"tyre,omitempty"`
}

// Empty reports whether no arm is set.
func (d CategoryDetails) Empty() bool {
	return d.Dishwasher == nil && d.WashingMachine == nil &&
		d.Refrigerator == nil && d.Display == nil && d.Tyre == nil
}

// Value implements the driver.Valuer interface for database serialization.
func (d CategoryDetails) Value() (driver.Value, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (d *CategoryDetails) Scan(value interface{}) error {
	if value == nil {
		*d = CategoryDetails{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan CategoryDetails")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, d)
}

// ExtractDetails builds the typed detail record for a category from a raw
// payload. Unmapped categories return an empty union.
func ExtractDetails(category string, raw RawPayload) CategoryDetails {
	switch category {
	case "dishwashers":
		return CategoryDetails{Dishwasher: extractDishwasher(raw)}
	case "washingmachines":
		return CategoryDetails{WashingMachine: extractWashingMachine(raw)}
	case "refrigeratingappliances":
		return CategoryDetails{Refrigerator: extractRefrigerator(raw)}
	case "electronicdisplays":
		return CategoryDetails{Display: extractDisplay(raw)}
	case "tyres":
		return CategoryDetails{Tyre: extractTyre(raw)}
	default:
		return CategoryDetails{}
	}
}

func extractDishwasher(raw RawPayload) *DishwasherDetails {
	d := &DishwasherDetails{
		DryingEfficiencyClass: raw.String("dryingEfficiencyClass"),
		NoiseClass:            raw.String("noiseClass"),
	}
	if v, ok := raw.Int("placeSettings"); ok {
		d.PlaceSettings = &v
	}
	if v, ok := raw.Float("energyConsumption100Cycles"); ok {
		d.EnergyConsumptionKWh = &v
	}
	if v, ok := raw.Float("waterConsumptionCycle"); ok {
		d.WaterConsumptionLiters = &v
	}
	if v, ok := raw.Float("noiseLevel"); ok {
		d.NoiseLevelDB = &v
	}
	if v, ok := raw.Int("ecoProgramDuration"); ok {
		d.EcoProgramDurationMinute = &v
	}
	return d
}

func extractWashingMachine(raw RawPayload) *WashingMachineDetails {
	w := &WashingMachineDetails{
		SpinDryingEfficiencyClas: raw.String("spinDryingEfficiencyClass"),
		NoiseClass:               raw.String("noiseClass"),
	}
	if v, ok := raw.Float("ratedCapacity"); ok {
		w.RatedCapacityKg = &v
	}
	if v, ok := raw.Float("energyConsumption100Cycles"); ok {
		w.EnergyConsumptionKWh = &v
	}
	if v, ok := raw.Float("waterConsumptionCycle"); ok {
		w.WaterConsumptionLiters = &v
	}
	if v, ok := raw.Float("noiseLevel"); ok {
		w.NoiseLevelDB = &v
	}
	if v, ok := raw.Int("maxSpinSpeed"); ok {
		w.MaxSpinSpeedRPM = &v
	}
	return w
}

func extractRefrigerator(raw RawPayload) *RefrigeratorDetails {
	r := &RefrigeratorDetails{
		ApplianceType: raw.String("applianceType"),
		NoiseClass:    raw.String("noiseClass"),
		ClimateClass:  raw.String("climateClass"),
	}
	if v, ok := raw.Float("totalVolume"); ok {
		r.TotalVolumeLiters = &v
	}
	if v, ok := raw.Float("refrigeratorVolume"); ok {
		r.RefrigeratorVolume = &v
	}
	if v, ok := raw.Float("freezerVolume"); ok {
		r.FreezerVolume = &v
	}
	if v, ok := raw.Float("annualEnergyConsumption"); ok {
		r.AnnualEnergyConsumption = &v
	}
	if v, ok := raw.Float("noiseLevel"); ok {
		r.NoiseLevelDB = &v
	}
	if v, ok := raw.Bool("frostFree"); ok {
		r.FrostFree = &v
	}
	return r
}

func extractDisplay(raw RawPayload) *DisplayDetails {
	d := &DisplayDetails{
		DisplayType:     raw.String("displayType"),
		PanelTechnology: raw.String("panelTechnology"),
	}
	if v, ok := raw.Float("screenDiagonalCm"); ok {
		d.ScreenDiagonalCm = &v
	}
	if v, ok := raw.Float("screenDiagonalInches"); ok {
		d.ScreenDiagonalInches = &v
	}
	if v, ok := raw.Int("horizontalResolution"); ok {
		d.ResolutionHorizontal = &v
	}
	if v, ok := raw.Int("verticalResolution"); ok {
		d.ResolutionVertical = &v
	}
	if v, ok := raw.Float("onModePowerConsumption"); ok {
		d.OnModePowerW = &v
	}
	if v, ok := raw.Float("standbyPowerConsumption"); ok {
		d.StandbyPowerW = &v
	}
	if v, ok := raw.Float("annualEnergyConsumption"); ok {
		d.AnnualEnergyConsumption = &v
	}
	return d
}

func extractTyre(raw RawPayload) *TyreDetails {
	t := &TyreDetails{
		SizeDesignation:     raw.String("tyreSizeDesignation"),
		FuelEfficiencyClass: raw.String("fuelEfficiencyClass"),
		WetGripClass:        raw.String("wetGripClass"),
		RollingNoiseClass:   raw.String("externalRollingNoiseClass"),
		TyreType:            raw.String("tyreType"),
	}
	if v, ok := raw.Float("externalRollingNoiseLevel"); ok {
		t.RollingNoiseDB = &v
	}
	if v, ok := raw.Bool("snowTyre"); ok {
		t.SnowTyre = &v
	}
	if v, ok := raw.Bool("iceTyre"); ok {
		t.IceTyre = &v
	}
	return t
}
