package coins

// EnergyUse is a coarse rating of a network's energy consumption.
type EnergyUse string

const (
	EnergyLow    EnergyUse = "low"
	EnergyMedium EnergyUse = "medium"
	EnergyHigh   EnergyUse = "high"
)

// Sustainability is the static environmental rating of a coin.
// Score is a fraction in [0,1].
type Sustainability struct {
	EnergyUse EnergyUse
	Score     float64
}

var sustainability = map[ID]Sustainability{
	Bitcoin:  {EnergyUse: EnergyHigh, Score: 3.0 / 10},
	Ethereum: {EnergyUse: EnergyMedium, Score: 6.0 / 10},
	Cardano:  {EnergyUse: EnergyLow, Score: 8.0 / 10},
}

// SustainabilityOf returns the rating for id.
func SustainabilityOf(id ID) (Sustainability, bool) {
	s, ok := sustainability[id]
	return s, ok
}

// ScoreOutOf100 truncates the score to an integer percentage.
func (s Sustainability) ScoreOutOf100() int {
	return int(s.Score * 100)
}
