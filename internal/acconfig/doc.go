// Package acconfig maps the dedicated server's sectioned key=value files
// (server_cfg.ini, entry_list.ini) to an in-memory Config and back.
//
//   - config.go: Config/Section value model, normalization, field accessors.
//   - codec.go: Parse/Encode and the format rules applied on the way in and out.
//   - entrylist.go: round-robin propagation of the car selection into entry_list.ini.
//   - store.go: Store, the on-disk active config and per-instance config dirs.
//   - defaults.go: built-in baseline configuration.
//
// Values are one of: string, int64, float64 or []string (only for list fields
// such as SERVER.CARS). Anything else is normalized into one of these.
package acconfig
