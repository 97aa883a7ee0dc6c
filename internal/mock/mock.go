// Package mock holds the development data set: seed rows, seed history and
// the owner identity used when no host identity is available and the dev
// fallback has been switched on explicitly. Nothing outside bootstrap and
// tests should import it.
package mock

import (
	"github.com/DoyleJ11/alliance-stats/internal/engine"
	"github.com/DoyleJ11/alliance-stats/internal/history"
)

func Rows() []engine.Row {
	return []engine.Row{
		{ID: 101, Rank: 1, Name: "Alpha", Kingdom: "K20", Role: "user", Power: 48_200_000},
		{ID: 102, Rank: 2, Name: "Beta", Kingdom: "K2", Role: "user", Power: 31_750_000},
		{ID: 103, Rank: 10, Name: "Gamma", Kingdom: "K100", Role: "user", Power: 9_400_000},
		{ID: 104, Rank: 5, Name: "Delta", Kingdom: "Kingdom 5", Role: "user", Power: 17_050_000},
	}
}

// History is keyed by row id. 103 deliberately has no entries.
func History() history.Static {
	return history.Static{
		101: {
			{Date: "2023-10-01", Action: "Joined Alliance", Details: "Kingdom 44"},
			{Date: "2023-10-05", Action: "Increased Power", Details: "+5M"},
		},
		102: {
			{Date: "2023-09-12", Action: "Joined Alliance", Details: "Kingdom 2"},
			{Date: "2023-10-02", Action: "Promoted", Details: "R3 -> R4"},
		},
		104: {
			{Date: "2023-10-07", Action: "Migrated", Details: "Kingdom 9 -> Kingdom 5"},
		},
	}
}

// DevUser is the identity granted by the development fallback.
func DevUser() *engine.User {
	return &engine.User{ID: 1, Role: "owner", Name: "Site Owner"}
}
