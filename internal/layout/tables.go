package layout

import "mortstat/internal/field"

var monthTable = []field.Entry{
	{Code: "01", Label: "January"},
	{Code: "02", Label: "February"},
	{Code: "03", Label: "March"},
	{Code: "04", Label: "April"},
	{Code: "05", Label: "May"},
	{Code: "06", Label: "June"},
	{Code: "07", Label: "July"},
	{Code: "08", Label: "August"},
	{Code: "09", Label: "September"},
	{Code: "10", Label: "October"},
	{Code: "11", Label: "November"},
	{Code: "12", Label: "December"},
}

var sexTable = []field.Entry{
	{Code: "M", Label: "Male"},
	{Code: "F", Label: "Female"},
}

var dayOfWeekTable = []field.Entry{
	{Code: "1", Label: "Sunday"},
	{Code: "2", Label: "Monday"},
	{Code: "3", Label: "Tuesday"},
	{Code: "4", Label: "Wednesday"},
	{Code: "5", Label: "Thursday"},
	{Code: "6", Label: "Friday"},
	{Code: "7", Label: "Saturday"},
	{Code: "9", Label: "Unknown"},
}

var ageRecode12Table = []field.Entry{
	{Code: "01", Label: "Under 1 year"},
	{Code: "02", Label: "1 - 4 years"},
	{Code: "03", Label: "5 - 14 years"},
	{Code: "04", Label: "15 - 24 years"},
	{Code: "05", Label: "25 - 34 years"},
	{Code: "06", Label: "35 - 44 years"},
	{Code: "07", Label: "45 - 54 years"},
	{Code: "08", Label: "55 - 64 years"},
	{Code: "09", Label: "65 - 74 years"},
	{Code: "10", Label: "75 - 84 years"},
	{Code: "11", Label: "85 years and over"},
	{Code: "12", Label: "Age not stated"},
}

// A blank manner code means the certifier left the item empty.
var mannerTable = []field.Entry{
	{Code: "1", Label: "Accident"},
	{Code: "2", Label: "Suicide"},
	{Code: "3", Label: "Homicide"},
	{Code: "4", Label: "Pending investigation"},
	{Code: "5", Label: "Could not determine"},
	{Code: "6", Label: "Self-Inflicted"},
	{Code: "7", Label: "Natural"},
	{Code: " ", Label: "Not specified"},
}

// Codes 18-78 are the bridged Asian and Pacific Islander detail codes; 68 and
// 78 both fold into "Other Asian".
var raceTable = []field.Entry{
	{Code: "01", Label: "White"},
	{Code: "02", Label: "Black"},
	{Code: "03", Label: "American Indian"},
	{Code: "04", Label: "Chinese"},
	{Code: "05", Label: "Japanese"},
	{Code: "06", Label: "Hawaiian"},
	{Code: "07", Label: "Filipino"},
	{Code: "18", Label: "Asian Indian"},
	{Code: "28", Label: "Korean"},
	{Code: "38", Label: "Samoan"},
	{Code: "48", Label: "Vietnamese"},
	{Code: "58", Label: "Guamanian"},
	{Code: "68", Label: "Other Asian"},
	{Code: "78", Label: "Other Asian"},
}
