package strikes

// Config holds put credit spread selection thresholds
type Config struct {
	MinDTE          int     `yaml:"min_dte" json:"min_dte"`
	MaxDTE          int     `yaml:"max_dte" json:"max_dte"`
	SpreadWidth     float64 `yaml:"spread_width" json:"spread_width"`         // dollars between the legs
	MinDelta        float64 `yaml:"min_delta" json:"min_delta"`               // -0.30 ≈ 70% PoP
	MaxDelta        float64 `yaml:"max_delta" json:"max_delta"`               // -0.15 ≈ 85% PoP
	MinVolume       int64   `yaml:"min_volume" json:"min_volume"`             // either volume or OI suffices
	MinOpenInterest int64   `yaml:"min_open_interest" json:"min_open_interest"`
	MinCredit       float64 `yaml:"min_credit" json:"min_credit"` // per share, exclusive
	TopN            int     `yaml:"top_n" json:"top_n"`
}

// DefaultConfig returns the selector thresholds used when none are configured
func DefaultConfig() Config {
	return Config{
		MinDTE:          30,
		MaxDTE:          45,
		SpreadWidth:     5.0,
		MinDelta:        -0.30,
		MaxDelta:        -0.15,
		MinVolume:       10,
		MinOpenInterest: 50,
		MinCredit:       0.10,
		TopN:            5,
	}
}
