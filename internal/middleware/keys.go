package middleware

import "strings"

// composeKey expands an underscore separated strategy such as
// "ip_user_route" into label/value pairs taken from values, in strategy
// order. A strategy naming a component values lacks falls back to def.
func composeKey(strategy, def string, values map[string]string) []string {
	names := strings.Split(strings.ToLower(strategy), "_")
	for _, n := range names {
		if _, ok := values[n]; !ok {
			names = strings.Split(def, "_")
			break
		}
	}
	out := make([]string, 0, 2*len(names))
	for _, n := range names {
		out = append(out, n, values[n])
	}
	return out
}
