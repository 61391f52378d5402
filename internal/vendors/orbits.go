package vendors

import "github.com/JonMunkholm/telemetry/internal/core"

// orbitsProfile covers MyLaps Orbits result exports. Orbits reports the gap
// to the leader as "Diff" and the gap to the car ahead as "Gap", the
// opposite of the default table, and "Best Lap" holds the lap number of
// the best lap rather than its time. Bare "Total" and "Int" columns are
// only trusted in Orbits exports.
var orbitsProfile = Profile{
	Name:        "orbits",
	Description: "MyLaps Orbits results and lap charts",
	Aliases: []core.Alias{
		{Name: "Nr", Field: core.FieldNumber},
		{Name: "Total Tm", Field: core.FieldTotalTime},
		{Name: "Total", Field: core.FieldTotalTime},
		{Name: "Int", Field: core.FieldGapPrev},
		{Name: "Best Tm", Field: core.FieldFLTime},
		{Name: "Best Speed", Field: core.FieldFLKPH},
		{Name: "Diff", Field: core.FieldGapFirst},
		{Name: "Gap", Field: core.FieldGapPrev},
		{Name: "Lap Tm", Field: core.FieldFLTime},
		{Name: "Best Lap", Field: ""},
	},
}
