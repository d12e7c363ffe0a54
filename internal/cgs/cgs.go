// Package cgs holds physical constants in cgs units.
package cgs

const (
	// Fundamental constants
	GravConst  = 6.6743e-8     // gravitational constant [cm^3 g^-1 s^-2]
	Boltzmann  = 1.380649e-16  // Boltzmann constant [erg K^-1]
	ProtonMass = 1.6726219e-24 // proton mass [g]
	StefBoltz  = 5.670374e-5   // Stefan-Boltzmann constant [erg cm^-2 s^-1 K^-4]

	// Astronomical units
	AU        = 1.495978707e13 // astronomical unit [cm]
	SolarMass = 1.98892e33     // solar mass [g]
	SolarLum  = 3.828e33       // solar luminosity [erg s^-1]
	Year      = 3.1557e7       // Julian year [s]

	// Gas properties
	MuGas   = 2.3     // mean molecular weight of H2/He mix [proton masses]
	SigmaH2 = 2.0e-15 // H2 collisional cross section [cm^2]
)
