package world

import "strings"

// Opposite returns the reverse travel direction. Directions the server
// invents that have no geometric opposite map to themselves, so a
// connection stored under "through the mirror" is reachable from both ends.
func Opposite(direction string) string {
	switch strings.ToLower(direction) {
	case "north":
		return "south"
	case "south":
		return "north"
	case "east":
		return "west"
	case "west":
		return "east"
	case "up":
		return "down"
	case "down":
		return "up"
	case "northeast":
		return "southwest"
	case "southwest":
		return "northeast"
	case "northwest":
		return "southeast"
	case "southeast":
		return "northwest"
	default:
		return direction
	}
}
