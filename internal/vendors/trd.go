package vendors

import "github.com/JonMunkholm/telemetry/internal/core"

// trdProfile covers the Toyota GR Cup data packs. Lap files carry both
// vehicle_id (a chassis code such as GR86-002-000) and vehicle_number; only
// the latter is the car number. elapsed_time there is the running clock at
// the end of each lap, not a race total, so lap files still reshape.
var trdProfile = Profile{
	Name:        "trd",
	Description: "Toyota GR Cup results and lap data",
	Aliases: []core.Alias{
		{Name: "vehicle_id", Field: core.FieldVehicle},
		{Name: "elapsed_time", Field: core.FieldElapsed},
	},
}
