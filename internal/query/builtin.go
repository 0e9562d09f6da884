package query

import (
	"fmt"

	"mortstat/internal/aggregate"
	"mortstat/internal/config"
	"mortstat/internal/export"
	"mortstat/internal/layout"
)

// MannersByAge ranks manners of death for ages lo..hi years by count.
func MannersByAge(l *layout.Layout, lo, hi int) Query {
	return Query{
		Name:     "manners_by_age",
		Title:    fmt.Sprintf("Leading manners of death for %d to %d years", lo, hi),
		Pred:     AgeYears(l.DetailAge, lo, hi),
		Key:      FieldKey(l.Manner),
		Order:    aggregate.ByCount,
		KeyOrder: FieldOrder(l.Manner),
	}
}

// ElectrocutionByAgeGroup counts deaths with ICD-10 categories W85-W87
// (exposure to electric current) per 12-group age recode, in age order.
func ElectrocutionByAgeGroup(l *layout.Layout) Query {
	return Query{
		Name:     "electrocution_by_age_group",
		Title:    "Electrocution deaths for each age group",
		Pred:     DiagnosisRange(l.ICD10, "W85", "W87"),
		Key:      FieldKey(l.AgeRecode12),
		Order:    aggregate.ByKey,
		KeyOrder: FieldOrder(l.AgeRecode12),
	}
}

// YouthExport writes age, race and cause for ages 1..18 years to a CSV file.
func YouthExport(l *layout.Layout, path string) Export {
	return Export{
		Name: "youth",
		Pred: AgeYears(l.DetailAge, 1, 18),
		Columns: []export.Column{
			AgeYearsColumn("AgeYears", l.DetailAge),
			export.FieldColumn("Race", l.Race),
			export.FieldColumn("ICD10Code", l.ICD10),
		},
		Sink: config.Sink{Kind: "csv", Path: path},
	}
}

// Builtins returns the three standard analyses: manners of death for ages
// 5-9, electrocution deaths by age group, and the youth export to csvPath.
func Builtins(l *layout.Layout, csvPath string) ([]Query, []Export) {
	return []Query{MannersByAge(l, 5, 9), ElectrocutionByAgeGroup(l)},
		[]Export{YouthExport(l, csvPath)}
}
