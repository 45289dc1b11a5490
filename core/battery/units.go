package battery

// Unit helpers for energy accounting. Battery energy is tracked in joules;
// fleet definitions use kWh and kWh/100km.

// KWhToJ converts kilowatt hours to joules.
func KWhToJ(kwh float64) float64 { return kwh * 1000 * 3600 }

// JToKWh converts joules to kilowatt hours.
func JToKWh(j float64) float64 { return j / 1000 / 3600 }

// ConsumptionToJPerM converts a mean consumption in kWh/100km to J/m.
func ConsumptionToJPerM(kwhPer100km float64) float64 { return 36 * kwhPer100km }
