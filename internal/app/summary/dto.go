package summary

type Request struct {
	ParticipantID string
	Block         string
	// Limit keeps only the most recent trials. Zero means all.
	Limit int
}

type Response struct {
	ParticipantID string  `json:"participant_id"`
	Block         string  `json:"block,omitempty"`
	Trials        int     `json:"trials"`
	Responses     int     `json:"responses"`
	NoResponses   int     `json:"no_responses"`
	OptimalRate   float64 `json:"optimal_rate"`
	TotalEarnings float64 `json:"total_earnings"`
	MeanRTMs      float64 `json:"mean_rt_ms"`
	RTStdDevMs    float64 `json:"rt_std_dev_ms"`
	LeftChoices   int     `json:"left_choices"`
	RightChoices  int     `json:"right_choices"`
}
