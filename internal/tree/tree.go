// Package tree maps accumulated conscious-stop days to growth stages.
package tree

// Stage describes one growth step of the tree.
type Stage struct {
	// MinDays is the conscious-day total at which the stage begins.
	MinDays int
	Name    string
	Emoji   string
}

var stages = []Stage{
	{MinDays: 30, Name: "Могучее дерево", Emoji: "🌳"},
	{MinDays: 15, Name: "Ветвистое деревце", Emoji: "🌴"},
	{MinDays: 7, Name: "Молодое деревце", Emoji: "🌿"},
	{MinDays: 3, Name: "Росток", Emoji: "🌱"},
	{MinDays: 1, Name: "Семечко", Emoji: "🌰"},
}

// StageFor returns the stage reached with the given number of
// conscious days, or false when the tree has not been planted yet.
func StageFor(consciousDays int) (Stage, bool) {
	for _, s := range stages {
		if consciousDays >= s.MinDays {
			return s, true
		}
	}
	return Stage{}, false
}

// Next returns the following stage and how many conscious days remain
// until it, or false when the tree is fully grown.
func Next(consciousDays int) (Stage, int, bool) {
	for i := len(stages) - 1; i >= 0; i-- {
		if consciousDays < stages[i].MinDays {
			return stages[i], stages[i].MinDays - consciousDays, true
		}
	}
	return Stage{}, 0, false
}
