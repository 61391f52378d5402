package vendors

import "github.com/JonMunkholm/telemetry/internal/core"

// speedhiveProfile covers Speedhive lap-by-lap practice exports.
var speedhiveProfile = Profile{
	Name:        "speedhive",
	Description: "MyLaps Speedhive lap times",
	Aliases: []core.Alias{
		{Name: "Nr", Field: core.FieldNumber},
		{Name: "Competitor", Field: core.FieldDriver},
		{Name: "Lap Tm", Field: core.FieldFLTime},
		{Name: "Speed", Field: core.FieldFLKPH},
		{Name: "Sector 1 Tm", Field: core.FieldS1},
		{Name: "Sector 2 Tm", Field: core.FieldS2},
		{Name: "Sector 3 Tm", Field: core.FieldS3},
	},
}
