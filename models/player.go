package models

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

func (g Gender) IsValid() bool {
	return g == GenderMale || g == GenderFemale
}

// Genders lists every gender cohort a points table or schedule is partitioned by.
var Genders = []Gender{GenderMale, GenderFemale}

type Player struct {
	RegNumber string `json:"reg_number"`
	FullName  string `json:"full_name"`
	Gender    Gender `json:"gender"`
}
