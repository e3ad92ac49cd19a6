package domain

// Profile is the operator's profile, read-only input to the scorer.
// It is persisted as JSON beside the config and edited out of band.
type Profile struct {
	Skills              []string `json:"skills"`
	ExperienceYears     int      `json:"experience_years"`
	PreferredRoles      []string `json:"preferred_roles"`
	LocationPreferences []string `json:"location_preferences"`
	RegionAliases       []string `json:"region_aliases"`
	SalaryMin           float64  `json:"salary_min"`
	SalaryMax           float64  `json:"salary_max"`
}

// DefaultProfile is written on first run when no profile file exists.
func DefaultProfile() Profile {
	return Profile{
		Skills:              []string{"python", "go", "docker", "sql", "git"},
		ExperienceYears:     3,
		PreferredRoles:      []string{"backend developer", "software engineer"},
		LocationPreferences: []string{"remote", "são paulo", "sp"},
		RegionAliases:       []string{"brasil", "brazil", "sp", "são paulo"},
		SalaryMin:           5000,
		SalaryMax:           15000,
	}
}
