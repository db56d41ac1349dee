package schema

// DefaultVersion tags the built-in schema.
const DefaultVersion = "2024.1"

// Default returns the built-in schema for state industrial-registration
// exports: one row per registered unit, exported once per year with drifting
// headers and district spellings.
func Default() *Schema {
	return &Schema{
		Version:          DefaultVersion,
		ProvenanceColumn: "source_year",
		Columns: []Column{
			{Name: "unit_name", Type: TypeText, Policy: PolicyFixed, Default: "Unknown",
				Aliases: []string{"name_of_the_unit", "name_of_unit", "industry_name", "company_name", "unit"}},
			{Name: "district", Type: TypeCategorical, Policy: PolicyFixed, Default: "Unknown",
				Aliases: []string{"district_name", "dist", "dist_name", "location_district"}},
			{Name: "mandal", Type: TypeCategorical, Policy: PolicyFixed, Default: "Unknown",
				Aliases: []string{"mandal_name", "block"}},
			{Name: "category", Type: TypeCategorical, Policy: PolicyFixed, Default: "Unknown",
				Aliases: []string{"unit_category", "enterprise_category", "msme_category", "size"}},
			{Name: "sector", Type: TypeCategorical, Policy: PolicyFixed, Default: "Unknown",
				Aliases: []string{"sector_name", "line_of_activity", "activity", "industry_type"}},
			{Name: "investment", Type: TypeNumeric, Policy: PolicyMedian,
				Aliases: []string{"investment_in_rs", "investment_rs", "investment_(rs)", "total_investment", "invest", "capital_investment"}},
			{Name: "employment", Type: TypeNumeric, Policy: PolicyMean,
				Aliases: []string{"employement", "employees", "no_of_employees", "headcount", "employment_generated"}},
			{Name: "date_of_establishment", Type: TypeDate, Policy: PolicyNone,
				Aliases: []string{"establishment_date", "date_of_commencement", "doc", "start_date"}},
		},
		Derived: []DerivedField{
			{Name: "investment_per_employee", Kind: DerivedRatio, Numerator: "investment", Denominator: "employment"},
			{Name: "years_in_operation", Kind: DerivedYearsSince, Source: "date_of_establishment"},
		},
		Categories: []CategoryAlias{
			{Canonical: "Ranga Reddy", Variants: []string{"Rangareddy", "R.R. District", "RR District"}, Columns: []string{"district"}},
			{Canonical: "Hyderabad", Variants: []string{"Hyd", "Hyderabad District"}, Columns: []string{"district"}},
			{Canonical: "Warangal Rural", Variants: []string{"Warangal - Rural", "Warangal Rura"}, Columns: []string{"district"}},
			{Canonical: "Warangal Urban", Variants: []string{"Warangal - Urban", "Hanamkonda"}, Columns: []string{"district"}},
			{Canonical: "Medchal-Malkajgiri", Variants: []string{"Medchal", "Medchal Malkajgiri", "Malkajgiri"}, Columns: []string{"district"}},
			{Canonical: "Yadadri Bhuvanagiri", Variants: []string{"Yadadri", "Bhuvanagiri", "Yadadri - Bhongir"}, Columns: []string{"district"}},
			{Canonical: "Komaram Bheem Asifabad", Variants: []string{"Kumuram Bheem", "Asifabad", "Komaram Bheem"}, Columns: []string{"district"}},
			{Canonical: "Jayashankar Bhupalpally", Variants: []string{"Bhupalpally", "Jayashankar"}, Columns: []string{"district"}},
			{Canonical: "Micro", Variants: []string{"Micro Enterprise", "Mic"}, Columns: []string{"category"}},
			{Canonical: "Small", Variants: []string{"Small Enterprise", "Sml"}, Columns: []string{"category"}},
			{Canonical: "Medium", Variants: []string{"Medium Enterprise", "Med"}, Columns: []string{"category"}},
			{Canonical: "Large", Variants: []string{"Large Enterprise", "Mega", "Large & Mega"}, Columns: []string{"category"}},
		},
	}
}
