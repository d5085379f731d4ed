package domain

type Level struct {
	Number    int    `json:"number"`
	Name      string `json:"name"`
	MinPoints int    `json:"min_points"`
}

// Levels are ordered by MinPoints.
var Levels = []Level{
	{Number: 1, Name: "Turista", MinPoints: 0},
	{Number: 2, Name: "Local", MinPoints: 100},
	{Number: 3, Name: "Explorador Urbano", MinPoints: 250},
	{Number: 4, Name: "Trotamundos", MinPoints: 500},
	{Number: 5, Name: "Leyenda 360", MinPoints: 1000},
}

// LevelFor returns the level number for a balance. Negative balances
// stay at level 1.
func LevelFor(points int) int {
	n := 1
	for _, l := range Levels {
		if points >= l.MinPoints {
			n = l.Number
		}
	}
	return n
}

func LevelName(number int) string {
	for _, l := range Levels {
		if l.Number == number {
			return l.Name
		}
	}
	return Levels[0].Name
}
