// Package mapper translates feed enumerations into platform enumerations.
// Every table is exhaustive over the values the feed documents; anything else
// maps to the named Unknown value of the target type.
package mapper

import "vacancy_syncer/internal/domain"

var experienceLevels = map[string]domain.Level{
	"noExperience": domain.LevelIntern,
	"between1And3": domain.LevelJunior,
	"between3And6": domain.LevelMiddle,
	"moreThan6":    domain.LevelSenior,
}

var employmentTypes = map[string]domain.ContractType{
	"full":      domain.ContractFullTime,
	"part":      domain.ContractPartTime,
	"project":   domain.ContractProject,
	"probation": domain.ContractInternship,
	"volunteer": domain.ContractVolunteer,
}

const scheduleRemote = "remote"

// Level maps a feed experience id. ok is false when the id is not in the table.
func Level(experienceID string) (level domain.Level, ok bool) {
	level, ok = experienceLevels[experienceID]
	if !ok {
		return domain.LevelUnknown, false
	}
	return level, true
}

// ContractType maps a feed employment id. ok is false when the id is not in the table.
func ContractType(employmentID string) (contract domain.ContractType, ok bool) {
	contract, ok = employmentTypes[employmentID]
	if !ok {
		return domain.ContractUnknown, false
	}
	return contract, true
}

// Remote reports whether a feed schedule id denotes remote work.
func Remote(scheduleID string) bool {
	return scheduleID == scheduleRemote
}
