package config

// MaterialPreset returns field-calibrated properties for a soil or straw type name.
// Unknown names get a generic material.
func MaterialPreset(name string) MaterialProperties {
	switch name {
	case string(StrawRice):
		// wet residue, flexible and tough
		return MaterialProperties{PoissonRatio: 0.35, ShearModulus: 4.5e6, Density: 280}
	case string(StrawWheat):
		// dry residue, stiff and brittle
		return MaterialProperties{PoissonRatio: 0.30, ShearModulus: 9.0e6, Density: 160}
	case string(StrawCorn):
		return MaterialProperties{PoissonRatio: 0.32, ShearModulus: 1.5e7, Density: 300}
	case string(SoilClayLoam):
		return MaterialProperties{PoissonRatio: 0.40, ShearModulus: 5e7, Density: 1350}
	case string(SoilHeavyClay):
		return MaterialProperties{PoissonRatio: 0.45, ShearModulus: 3.5e7, Density: 1500}
	case string(SoilSandyLoam):
		return MaterialProperties{PoissonRatio: 0.28, ShearModulus: 7e7, Density: 1250}
	case string(SoilSilt):
		return MaterialProperties{PoissonRatio: 0.35, ShearModulus: 4e7, Density: 1300}
	default:
		return MaterialProperties{PoissonRatio: 0.3, ShearModulus: 1e7, Density: 1000}
	}
}

// ApplyPresets overwrites soil and straw properties with the presets for the
// configured soil and straw types.
func (c *Config) ApplyPresets() {
	c.Simulation.SoilProps = MaterialPreset(string(c.Simulation.SoilType))
	c.Simulation.StrawProps = MaterialPreset(string(c.Simulation.StrawType))
}
