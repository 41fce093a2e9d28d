package acconfig

// DefaultConfig is the baseline used when no default template file is
// configured: a small practice/qualify/race weekend on the default ports.
func DefaultConfig() Config {
	return Config{
		SectionServer: {
			KeyName:                        "AC Server",
			KeyCars:                        []string{},
			"CONFIG_TRACK":                 "",
			KeyTrack:                       "",
			"SUN_ANGLE":                    int64(48),
			"PASSWORD":                     "",
			"ADMIN_PASSWORD":               "",
			KeyUDPPort:                     int64(DefaultUDPPort),
			KeyTCPPort:                     int64(DefaultTCPPort),
			KeyHTTPPort:                    int64(DefaultHTTPPort),
			KeyMaxClients:                  int64(18),
			KeyRegisterToLobby:             int64(0),
			"PICKUP_MODE_ENABLED":          int64(1),
			"LOOP_MODE":                    int64(1),
			"SLEEP_TIME":                   int64(1),
			"CLIENT_SEND_INTERVAL_HZ":      int64(18),
			"SEND_BUFFER_SIZE":             int64(0),
			"RECV_BUFFER_SIZE":             int64(0),
			"RACE_OVER_TIME":               int64(180),
			"KICK_QUORUM":                  int64(85),
			"VOTING_QUORUM":                int64(80),
			"VOTE_DURATION":                int64(20),
			"BLACKLIST_MODE":               int64(1),
			"FUEL_RATE":                    int64(100),
			"DAMAGE_MULTIPLIER":            int64(100),
			"TYRE_WEAR_RATE":               int64(100),
			"ALLOWED_TYRES_OUT":            int64(2),
			"ABS_ALLOWED":                  int64(1),
			"TC_ALLOWED":                   int64(1),
			"STABILITY_ALLOWED":            int64(0),
			"AUTOCLUTCH_ALLOWED":           int64(1),
			"TYRE_BLANKETS_ALLOWED":        int64(1),
			"FORCE_VIRTUAL_MIRROR":         int64(0),
			"MAX_BALLAST_KG":               int64(0),
			"QUALIFY_MAX_WAIT_PERC":        int64(120),
			"RACE_GAS_PENALTY_DISABLED":    int64(0),
			"NUM_THREADS":                  int64(2),
			"RACE_PIT_WINDOW_START":        int64(0),
			"RACE_PIT_WINDOW_END":          int64(0),
			"REVERSED_GRID_RACE_POSITIONS": int64(0),
			"TIME_OF_DAY_MULT":             int64(1),
			"LEGAL_TYRES":                  "",
			"WELCOME_MESSAGE":              "",
		},
		"PRACTICE": {
			"NAME":    "Practice",
			"TIME":    int64(10),
			"IS_OPEN": int64(1),
		},
		"QUALIFY": {
			"NAME":    "Qualify",
			"TIME":    int64(10),
			"IS_OPEN": int64(1),
		},
		"RACE": {
			"NAME":      "Race",
			"LAPS":      int64(5),
			"WAIT_TIME": int64(60),
			"IS_OPEN":   int64(2),
		},
		"DYNAMIC_TRACK": {
			"SESSION_START":    int64(95),
			"RANDOMNESS":       int64(2),
			"SESSION_TRANSFER": int64(90),
			"LAP_GAIN":         int64(10),
		},
		"WEATHER_0": {
			"GRAPHICS":                 "3_clear",
			"BASE_TEMPERATURE_AMBIENT": int64(18),
			"BASE_TEMPERATURE_ROAD":    int64(6),
			"VARIATION_AMBIENT":        int64(1),
			"VARIATION_ROAD":           int64(1),
		},
	}
}
